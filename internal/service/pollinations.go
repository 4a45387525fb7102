package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/lo"
	"github.com/set-night/chatcreate/internal/config"
	"github.com/set-night/chatcreate/internal/domain"
)

const maxErrorDetail = 200

type PollinationsService struct {
	textURL        string
	openAIURL      string
	textModelsURL  string
	imageModelsURL string
	contextMode    string
	wordDelay      time.Duration
	modelsTimeout  time.Duration

	httpClient  *http.Client
	imageClient *http.Client
	cache       *ModelsCache
}

func NewPollinationsService(cfg *config.Config) *PollinationsService {
	return &PollinationsService{
		textURL:        cfg.TextAPIURL,
		openAIURL:      cfg.TextOpenAIURL,
		textModelsURL:  cfg.TextModelsURL,
		imageModelsURL: cfg.ImageModelsURL,
		contextMode:    cfg.TextContextMode,
		wordDelay:      cfg.StreamWordDelay,
		modelsTimeout:  config.ModelListTimeout,
		httpClient:     &http.Client{Timeout: cfg.RequestTimeout},
		imageClient:    &http.Client{Timeout: config.ImageFetchTimeout},
		cache:          NewModelsCache(cfg.ModelCacheTTL),
	}
}

// Completion is a non-streamed answer in OpenAI shape.
type Completion struct {
	Choices []CompletionChoice `json:"choices"`
	Model   string             `json:"model"`
	Created int64              `json:"created"`
}

type CompletionChoice struct {
	Message CompletionMessage `json:"message"`
}

type CompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Text returns the first choice's content.
func (c *Completion) Text() string {
	if c == nil || len(c.Choices) == 0 {
		return ""
	}
	return c.Choices[0].Message.Content
}

type openAIRequest struct {
	Model    string               `json:"model"`
	Messages []domain.ChatMessage `json:"messages"`
	Stream   bool                 `json:"stream"`
}

type streamChunk struct {
	Choices []streamChoice `json:"choices"`
}

type streamChoice struct {
	Delta struct {
		Content string `json:"content"`
	} `json:"delta"`
}

// Complete requests a whole answer at once. An empty answer is replaced by
// a fixed notice so callers always have something to show.
func (s *PollinationsService) Complete(ctx context.Context, model string, messages []domain.ChatMessage) (*Completion, error) {
	resp, err := s.send(ctx, model, messages, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyError(ctx, fmt.Errorf("read response: %w", err))
	}

	var content string
	if s.contextMode == config.ContextModeFull {
		var parsed Completion
		if err := json.Unmarshal(body, &parsed); err != nil {
			slog.Warn("unparsable completion", "model", model, "error", err)
		}
		content = parsed.Text()
	} else {
		content = string(body)
	}
	if strings.TrimSpace(content) == "" {
		content = config.EmptyCompletionText
	}

	if model == "" {
		model = "openai"
	}
	return &Completion{
		Choices: []CompletionChoice{{Message: CompletionMessage{Role: string(domain.RoleAssistant), Content: content}}},
		Model:   model,
		Created: time.Now().UnixMilli(),
	}, nil
}

// Stream returns a server-sent-events body. Upstream event streams are
// passed through untouched; plain bodies are replayed one word per event.
// The caller must close the returned reader.
func (s *PollinationsService) Stream(ctx context.Context, model string, messages []domain.ChatMessage) (io.ReadCloser, error) {
	resp, err := s.send(ctx, model, messages, true)
	if err != nil {
		return nil, err
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "text/event-stream" {
		return resp.Body, nil
	}

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyError(ctx, fmt.Errorf("read response: %w", err))
	}
	return replayAsEvents(ctx, string(body), s.wordDelay), nil
}

func (s *PollinationsService) send(ctx context.Context, model string, messages []domain.ChatMessage, stream bool) (*http.Response, error) {
	req, err := s.newTextRequest(ctx, model, domain.StripIDs(messages), stream)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, classifyError(ctx, fmt.Errorf("text request: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, newServiceError(resp)
	}
	return resp, nil
}

func (s *PollinationsService) newTextRequest(ctx context.Context, model string, messages []domain.ChatMessage, stream bool) (*http.Request, error) {
	if s.contextMode == config.ContextModeFull {
		payload, err := json.Marshal(openAIRequest{Model: model, Messages: messages, Stream: stream})
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.openAIURL, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if stream {
			req.Header.Set("Accept", "text/event-stream")
		}
		return req, nil
	}

	var text string
	if last, _, ok := domain.LastUserMessage(messages); ok {
		text = last.Content
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.textURL, strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")
	return req, nil
}

func replayAsEvents(ctx context.Context, text string, delay time.Duration) io.ReadCloser {
	pr, pw := io.Pipe()

	go func() {
		var timer *time.Timer
		if delay > 0 {
			timer = time.NewTimer(delay)
			defer timer.Stop()
		}

		for _, word := range strings.Split(text, " ") {
			var choice streamChoice
			choice.Delta.Content = word + " "
			event, err := json.Marshal(streamChunk{Choices: []streamChoice{choice}})
			if err != nil {
				pw.CloseWithError(fmt.Errorf("encode event: %w", err))
				return
			}
			if _, err := fmt.Fprintf(pw, "data: %s\n\n", event); err != nil {
				return
			}

			if timer != nil {
				select {
				case <-ctx.Done():
					pw.CloseWithError(domain.ErrCancelled)
					return
				case <-timer.C:
					timer.Reset(delay)
				}
			} else if ctx.Err() != nil {
				pw.CloseWithError(domain.ErrCancelled)
				return
			}
		}

		if _, err := io.WriteString(pw, "data: [DONE]\n\n"); err != nil {
			return
		}
		pw.Close()
	}()

	return pr
}

// BuildImageURL renders opts against base. Only the boolean flags that are
// set appear in the query.
func BuildImageURL(base string, opts domain.ImageOptions) (string, error) {
	if err := opts.Validate(); err != nil {
		return "", err
	}

	params := url.Values{}
	params.Set("model", opts.Model)
	params.Set("width", strconv.Itoa(opts.Width))
	params.Set("height", strconv.Itoa(opts.Height))
	params.Set("seed", opts.Seed)
	params.Set("referrer", opts.Referrer)

	for _, flag := range []struct {
		key string
		on  bool
	}{
		{"nologo", opts.NoLogo},
		{"enhance", opts.Enhance},
		{"safe", opts.Safe},
		{"private", opts.Private},
	} {
		if flag.on {
			params.Set(flag.key, "true")
		}
	}

	return base + escapePrompt(opts.Prompt) + "?" + params.Encode(), nil
}

var promptUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// escapePrompt percent-encodes everything except unreserved characters and
// !'()*, with spaces as %20.
func escapePrompt(prompt string) string {
	return promptUnescaper.Replace(url.QueryEscape(prompt))
}

// FetchImage downloads a generated image.
func (s *PollinationsService) FetchImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: create request: %w", domain.ErrImageLoad, err)
	}

	resp, err := s.imageClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", domain.ErrImageLoad, classifyError(ctx, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("%w: %w", domain.ErrImageLoad, newServiceError(resp))
	}

	contentType := resp.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if !strings.HasPrefix(mediaType, "image/") {
		return nil, "", fmt.Errorf("%w: unexpected content type %q", domain.ErrImageLoad, contentType)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("%w: read body: %w", domain.ErrImageLoad, err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty body", domain.ErrImageLoad)
	}
	return data, mediaType, nil
}

// ListModels returns the model identifiers for class. It never fails: any
// problem with the listing endpoint yields the built-in list.
func (s *PollinationsService) ListModels(ctx context.Context, class domain.AssetClass) []string {
	if cached := s.cache.Get(class); cached != nil {
		return cached
	}

	endpoint := s.textModelsURL
	if class == domain.AssetImage {
		endpoint = s.imageModelsURL
	}

	models, err := s.fetchModels(ctx, endpoint)
	if err != nil {
		slog.Warn("list models failed, using fallback", "class", class, "error", err)
		return domain.FallbackModels(class)
	}
	if len(models) == 0 {
		slog.Warn("model listing empty, using fallback", "class", class)
		return domain.FallbackModels(class)
	}

	s.cache.Set(class, models)
	return models
}

func (s *PollinationsService) fetchModels(ctx context.Context, endpoint string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.modelsTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch models: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newServiceError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return parseModelList(body)
}

// parseModelList accepts a bare array or an object with a models array.
// Elements are strings or objects carrying name, id or model.
func parseModelList(body []byte) ([]string, error) {
	var raw json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedResponse, err)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		var wrapped struct {
			Models json.RawMessage `json:"models"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil || wrapped.Models == nil {
			return nil, fmt.Errorf("%w: expected array or object with models", domain.ErrMalformedResponse)
		}
		if err := json.Unmarshal(wrapped.Models, &items); err != nil {
			items = nil
		}
	}

	names := lo.FilterMap(items, func(item json.RawMessage, _ int) (string, bool) {
		name := modelName(item)
		return name, name != ""
	})
	return names, nil
}

func modelName(item json.RawMessage) string {
	var name string
	if err := json.Unmarshal(item, &name); err == nil {
		return strings.TrimSpace(name)
	}

	var obj struct {
		Name  string `json:"name"`
		ID    string `json:"id"`
		Model string `json:"model"`
	}
	if err := json.Unmarshal(item, &obj); err != nil {
		return ""
	}
	for _, candidate := range []string{obj.Name, obj.ID, obj.Model} {
		if c := strings.TrimSpace(candidate); c != "" {
			return c
		}
	}
	return ""
}

// classifyError maps a transport failure onto the domain error kinds.
func classifyError(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(ctx.Err(), context.Canceled), errors.Is(err, domain.ErrCancelled):
		return domain.ErrCancelled
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %w", domain.ErrNetworkUnavailable, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
}

func newServiceError(resp *http.Response) *domain.ServiceError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return &domain.ServiceError{
		Status: resp.StatusCode,
		Detail: errorDetail(resp.Header.Get("Content-Type"), body),
	}
}

// errorDetail reduces an error body to one short line.
func errorDetail(contentType string, body []byte) string {
	mediaType, _, _ := mime.ParseMediaType(contentType)

	var text string
	switch {
	case mediaType == "text/html" || bytes.HasPrefix(bytes.TrimSpace(body), []byte("<")):
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			break
		}
		text = doc.Find("title").First().Text()
		if strings.TrimSpace(text) == "" {
			text = doc.Find("body").Text()
		}
	case mediaType == "application/json":
		var payload struct {
			Error   json.RawMessage `json:"error"`
			Message string          `json:"message"`
		}
		if err := json.Unmarshal(body, &payload); err == nil {
			text = payload.Message
			var msg string
			var nested struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(payload.Error, &msg) == nil && msg != "" {
				text = msg
			} else if json.Unmarshal(payload.Error, &nested) == nil && nested.Message != "" {
				text = nested.Message
			}
		}
	}
	if strings.TrimSpace(text) == "" {
		text = string(body)
	}

	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) > maxErrorDetail {
		text = string([]rune(text)[:maxErrorDetail]) + "…"
	}
	return text
}
