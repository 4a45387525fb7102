package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type AspectRatio string

const (
	Ratio1x1  AspectRatio = "1:1"
	Ratio3x4  AspectRatio = "3:4"
	Ratio4x3  AspectRatio = "4:3"
	Ratio9x16 AspectRatio = "9:16"
	Ratio16x9 AspectRatio = "16:9"
)

type dimensions struct {
	width, height int
}

var aspectTable = map[AspectRatio]dimensions{
	Ratio1x1:  {1024, 1024},
	Ratio3x4:  {768, 1024},
	Ratio4x3:  {1024, 768},
	Ratio9x16: {768, 1365},
	Ratio16x9: {1365, 768},
}

// AspectRatios lists the supported ratios in display order.
var AspectRatios = []AspectRatio{Ratio1x1, Ratio3x4, Ratio4x3, Ratio9x16, Ratio16x9}

// Dimensions returns the pixel size for a ratio.
func (r AspectRatio) Dimensions() (width, height int, ok bool) {
	d, ok := aspectTable[r]
	return d.width, d.height, ok
}

func (r AspectRatio) Valid() bool {
	_, ok := aspectTable[r]
	return ok
}

// Next cycles to the following ratio in display order.
func (r AspectRatio) Next() AspectRatio {
	for i, ar := range AspectRatios {
		if ar == r {
			return AspectRatios[(i+1)%len(AspectRatios)]
		}
	}
	return AspectRatios[0]
}

func ParseAspectRatio(s string) (AspectRatio, error) {
	r := AspectRatio(strings.TrimSpace(s))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownAspectRatio, s)
	}
	return r, nil
}

// RandomSeed is the sentinel seed meaning "let the service pick".
const RandomSeed = "random"

// ValidSeed reports whether s is the random sentinel or a non-negative base-10 integer.
func ValidSeed(s string) bool {
	if s == RandomSeed {
		return true
	}
	if s == "" {
		return false
	}
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}

// ImageOptions is the full parameter set of one image request.
type ImageOptions struct {
	Prompt   string `json:"prompt,omitempty"`
	Model    string `json:"model"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Seed     string `json:"seed"`
	NoLogo   bool   `json:"nologo"`
	Enhance  bool   `json:"enhance"`
	Safe     bool   `json:"safe"`
	Private  bool   `json:"private"`
	Referrer string `json:"referrer,omitempty"`
}

func (o ImageOptions) Validate() error {
	if strings.TrimSpace(o.Prompt) == "" {
		return fmt.Errorf("%w: empty prompt", ErrInvalidImageOptions)
	}
	if strings.TrimSpace(o.Model) == "" {
		return fmt.Errorf("%w: empty model", ErrInvalidImageOptions)
	}
	if o.Width <= 0 || o.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidImageOptions, o.Width, o.Height)
	}
	if !ValidSeed(o.Seed) {
		return fmt.Errorf("%w: seed %q", ErrInvalidImageOptions, o.Seed)
	}
	return nil
}

// GeneratedImage is one gallery entry.
type GeneratedImage struct {
	ID        string       `json:"id"`
	Prompt    string       `json:"prompt"`
	URL       string       `json:"url"`
	Params    ImageOptions `json:"params"`
	CreatedAt time.Time    `json:"-"`
}

type generatedImageJSON struct {
	ID        string       `json:"id"`
	Prompt    string       `json:"prompt"`
	URL       string       `json:"url"`
	Params    ImageOptions `json:"params"`
	Timestamp int64        `json:"timestamp"`
}

// MarshalJSON stores CreatedAt as epoch milliseconds.
func (g GeneratedImage) MarshalJSON() ([]byte, error) {
	return json.Marshal(generatedImageJSON{
		ID:        g.ID,
		Prompt:    g.Prompt,
		URL:       g.URL,
		Params:    g.Params,
		Timestamp: g.CreatedAt.UnixMilli(),
	})
}

func (g *GeneratedImage) UnmarshalJSON(data []byte) error {
	var raw generatedImageJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*g = GeneratedImage{
		ID:        raw.ID,
		Prompt:    raw.Prompt,
		URL:       raw.URL,
		Params:    raw.Params,
		CreatedAt: time.UnixMilli(raw.Timestamp),
	}
	return nil
}

// Valid reports whether a rehydrated entry is usable.
func (g GeneratedImage) Valid() bool {
	return g.ID != "" && g.URL != ""
}
