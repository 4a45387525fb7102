package state

import (
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/set-night/chatcreate/internal/config"
	"github.com/set-night/chatcreate/internal/domain"
)

// persisted is the durable subset of State. Field names match the
// document written by earlier deployments.
type persisted struct {
	Theme           domain.Theme            `json:"theme"`
	ChatModel       string                  `json:"chatModel"`
	ImageModel      string                  `json:"imageModel"`
	AspectRatio     domain.AspectRatio      `json:"aspectRatio"`
	Seed            string                  `json:"seed"`
	NoLogo          bool                    `json:"nologo"`
	Enhance         bool                    `json:"enhance"`
	Safe            bool                    `json:"safe"`
	Private         bool                    `json:"isPrivate"`
	GeneratedImages []domain.GeneratedImage `json:"generatedImages"`
}

// Encode serializes the durable subset, keeping the newest images only.
func Encode(s State) ([]byte, error) {
	images := s.Images
	if len(images) > config.MaxPersistedImages {
		images = images[:config.MaxPersistedImages]
	}
	if images == nil {
		images = []domain.GeneratedImage{}
	}

	data, err := json.Marshal(persisted{
		Theme:           s.Theme,
		ChatModel:       s.ChatModel,
		ImageModel:      s.ImageModel,
		AspectRatio:     s.AspectRatio,
		Seed:            s.Seed,
		NoLogo:          s.NoLogo,
		Enhance:         s.Enhance,
		Safe:            s.Safe,
		Private:         s.Private,
		GeneratedImages: images,
	})
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return data, nil
}

// Decode applies every durable field found in data on top of base. Fields
// that are missing keep their base value; fields that fail to decode or
// validate keep their base value and are reported in the returned error.
// The returned State is always usable.
func Decode(data []byte, base State) (State, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return base, fmt.Errorf("decode state: %w", err)
	}

	s := base
	var result *multierror.Error

	collect := func(err error) {
		if err != nil {
			result = multierror.Append(result, err)
		}
	}

	collect(decodeField(fields, "theme", domain.Theme.Valid, func(v domain.Theme) { s.Theme = v }))
	collect(decodeField(fields, "chatModel", nonEmpty, func(v string) { s.ChatModel = v }))
	collect(decodeField(fields, "imageModel", nonEmpty, func(v string) { s.ImageModel = v }))
	collect(decodeField(fields, "aspectRatio", domain.AspectRatio.Valid, func(v domain.AspectRatio) { s.AspectRatio = v }))
	collect(decodeField(fields, "seed", domain.ValidSeed, func(v string) { s.Seed = v }))
	collect(decodeField(fields, "nologo", anyBool, func(v bool) { s.NoLogo = v }))
	collect(decodeField(fields, "enhance", anyBool, func(v bool) { s.Enhance = v }))
	collect(decodeField(fields, "safe", anyBool, func(v bool) { s.Safe = v }))
	collect(decodeField(fields, "isPrivate", anyBool, func(v bool) { s.Private = v }))

	if raw, ok := fields["generatedImages"]; ok {
		images, err := decodeImages(raw)
		collect(err)
		if images != nil {
			s.Images = images
		}
	}

	return s, result.ErrorOrNil()
}

func decodeField[T any](fields map[string]json.RawMessage, name string, valid func(T) bool, apply func(T)) error {
	raw, ok := fields[name]
	if !ok {
		return nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("field %s: %w", name, err)
	}
	if !valid(v) {
		return fmt.Errorf("field %s: invalid value %s", name, raw)
	}
	apply(v)
	return nil
}

// decodeImages keeps every well-formed entry, newest first, capped.
// A nil slice means the field was unusable as a whole.
func decodeImages(raw json.RawMessage) ([]domain.GeneratedImage, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("field generatedImages: %w", err)
	}

	var result *multierror.Error
	images := make([]domain.GeneratedImage, 0, len(entries))
	for i, entry := range entries {
		var img domain.GeneratedImage
		if err := json.Unmarshal(entry, &img); err != nil {
			result = multierror.Append(result, fmt.Errorf("generatedImages[%d]: %w", i, err))
			continue
		}
		if !img.Valid() {
			result = multierror.Append(result, fmt.Errorf("generatedImages[%d]: missing id or url", i))
			continue
		}
		images = append(images, img)
	}
	if len(images) > config.MaxPersistedImages {
		images = images[:config.MaxPersistedImages]
	}
	return images, result.ErrorOrNil()
}

func nonEmpty(s string) bool { return s != "" }

func anyBool(bool) bool { return true }
