package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrCancelled           = errors.New("request was cancelled")
	ErrNetworkUnavailable  = errors.New("network unavailable")
	ErrMalformedResponse   = errors.New("malformed response")
	ErrGenerationFailed    = errors.New("generation failed")
	ErrImageLoad           = errors.New("image failed to load")
	ErrBusy                = errors.New("a generation is already in progress")
	ErrEmptyMessage        = errors.New("message is empty")
	ErrNothingToRegenerate = errors.New("no user message to regenerate")
	ErrInvalidImageOptions = errors.New("invalid image options")
	ErrUnknownAspectRatio  = errors.New("unknown aspect ratio")
	ErrUnknownModel        = errors.New("unknown model")
)

// ServiceError is a non-success HTTP status from the generation service.
type ServiceError struct {
	Status int
	Detail string
}

func (e *ServiceError) Error() string {
	text := http.StatusText(e.Status)
	if text == "" {
		text = "unexpected status"
	}
	if e.Detail != "" {
		return fmt.Sprintf("service error: %d %s - %s", e.Status, text, e.Detail)
	}
	return fmt.Sprintf("service error: %d %s", e.Status, text)
}

// UserMessage converts a generation error into the assistant text shown in the transcript.
func UserMessage(err error) string {
	var svcErr *ServiceError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCancelled):
		return "The request was cancelled."
	case errors.As(err, &svcErr):
		return fmt.Sprintf("Sorry, the AI service is temporarily unavailable. Error: %s\n\nPlease try again in a few moments.", svcErr.Error())
	case errors.Is(err, ErrNetworkUnavailable):
		return "Network error: unable to connect to the AI service. Please check your internet connection and try again."
	default:
		return "Sorry, something went wrong. Please check your internet connection and try again."
	}
}

// AsServiceError unwraps err to the service error it carries, if any.
func AsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	ok := errors.As(err, &svcErr)
	return svcErr, ok
}
