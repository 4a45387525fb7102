package domain

import "fmt"

// AssetClass selects which model listing to use.
type AssetClass string

const (
	AssetText  AssetClass = "text"
	AssetImage AssetClass = "image"
)

func ParseAssetClass(s string) (AssetClass, error) {
	switch AssetClass(s) {
	case AssetText:
		return AssetText, nil
	case AssetImage:
		return AssetImage, nil
	}
	return "", fmt.Errorf("%w: asset class %q", ErrUnknownModel, s)
}

var (
	fallbackTextModels  = []string{"mistral", "llama-3.1-8b", "gemma-2-9b-it", "claude-3-haiku", "gpt-4"}
	fallbackImageModels = []string{"flux", "turbo", "stability", "flux-realism", "flux-3d"}
)

// FallbackModels returns the built-in model list for the class.
func FallbackModels(class AssetClass) []string {
	src := fallbackTextModels
	if class == AssetImage {
		src = fallbackImageModels
	}
	return append([]string(nil), src...)
}
