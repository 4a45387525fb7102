package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/set-night/chatcreate/internal/config"
	"github.com/set-night/chatcreate/internal/domain"
	"github.com/set-night/chatcreate/internal/state"
)

type ImageFetcher interface {
	FetchImage(ctx context.Context, url string) ([]byte, string, error)
}

type ImageService struct {
	images   ImageFetcher
	baseURL  string
	referrer string
	newSeed  func() string
	now      func() time.Time
}

func NewImageService(images ImageFetcher, cfg *config.Config) *ImageService {
	return &ImageService{
		images:   images,
		baseURL:  cfg.ImageAPIURL,
		referrer: cfg.ImageReferrer,
		newSeed:  state.RandomSeed,
		now:      time.Now,
	}
}

// Generate builds the request URL from the session options, fetches the
// image and records it in the gallery. A failed fetch only flags the
// session; the transcript is never touched.
func (s *ImageService) Generate(ctx context.Context, store *state.Store, prompt string) (*domain.GeneratedImage, []byte, error) {
	return s.generate(ctx, store, prompt, false)
}

// Variation unlocks the seed and generates again. An empty prompt reuses
// the newest gallery prompt. The lock is only released once the request is
// accepted.
func (s *ImageService) Variation(ctx context.Context, store *state.Store, prompt string) (*domain.GeneratedImage, []byte, error) {
	if strings.TrimSpace(prompt) == "" {
		snap := store.Snapshot()
		if len(snap.Images) == 0 {
			return nil, nil, fmt.Errorf("%w: nothing to vary", domain.ErrInvalidImageOptions)
		}
		prompt = snap.Images[0].Prompt
	}
	return s.generate(ctx, store, prompt, true)
}

func (s *ImageService) generate(ctx context.Context, store *state.Store, prompt string, unlockSeed bool) (*domain.GeneratedImage, []byte, error) {
	var (
		opts     domain.ImageOptions
		imageURL string
	)
	_, err := store.Update(ctx, func(st state.State) (state.State, error) {
		if st.IsGenerating {
			return st, domain.ErrBusy
		}
		if unlockSeed {
			st = st.WithLockSeed(false)
		}
		next, o, err := st.NextImageOptions(prompt, s.referrer, s.newSeed)
		if err != nil {
			return st, err
		}
		u, err := BuildImageURL(s.baseURL, o)
		if err != nil {
			return st, err
		}
		opts, imageURL = o, u
		return next.BeginImage(u), nil
	})
	if err != nil {
		return nil, nil, err
	}

	data, _, err := s.images.FetchImage(ctx, imageURL)
	if err != nil {
		slog.Warn("image fetch failed", "key", store.Key(), "model", opts.Model, "error", err)
		store.Apply(ctx, state.State.ImageFailed)
		return nil, nil, err
	}

	id := uuid.NewString()
	snap := store.Apply(ctx, func(st state.State) state.State {
		return st.CommitImage(imageURL, opts, id, s.now())
	})
	for _, img := range snap.Images {
		if img.ID == id {
			return &img, data, nil
		}
	}
	return nil, nil, fmt.Errorf("commit image %s: record missing", id)
}
