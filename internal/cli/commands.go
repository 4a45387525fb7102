package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/set-night/chatcreate/internal/domain"
	"github.com/set-night/chatcreate/internal/service"
	"github.com/set-night/chatcreate/internal/state"
)

var (
	headerStyle = color.New(color.FgCyan, color.Bold)
	dimStyle    = color.New(color.FgHiBlack)
	urlStyle    = color.New(color.FgGreen)
)

func (c *CLI) runModels(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: studio models text|image")
	}
	class, err := domain.ParseAssetClass(args[0])
	if err != nil {
		return err
	}
	if c.deps.Models == nil {
		return errors.New("model listing not configured")
	}

	models := c.deps.Models.ListModels(ctx, class)
	headerStyle.Fprintf(c.stdout(), "%s models (%d)\n", class, len(models))
	for _, name := range models {
		fmt.Fprintf(c.stdout(), "  %s\n", name)
	}
	return nil
}

func (c *CLI) runURL(args []string) error {
	defaults := state.Default()

	fs := flag.NewFlagSet("url", flag.ContinueOnError)
	fs.SetOutput(c.stderr())

	ratio := fs.String("ratio", string(defaults.AspectRatio), "aspect ratio: 1:1, 3:4, 4:3, 9:16 or 16:9")
	seed := fs.String("seed", domain.RandomSeed, "seed number, random draws one")
	model := fs.String("model", defaults.ImageModel, "image model")
	nologo := fs.Bool("nologo", defaults.NoLogo, "hide the watermark")
	enhance := fs.Bool("enhance", defaults.Enhance, "let the service enhance the prompt")
	safe := fs.Bool("safe", defaults.Safe, "enable the safety filter")
	private := fs.Bool("private", defaults.Private, "keep the image out of the public feed")

	if err := fs.Parse(args); err != nil {
		return err
	}
	prompt := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(prompt) == "" {
		return errors.New("usage: studio url [flags] prompt")
	}

	aspect, err := domain.ParseAspectRatio(*ratio)
	if err != nil {
		return err
	}

	s, err := defaults.WithAspectRatio(aspect)
	if err != nil {
		return err
	}
	if s, err = s.WithImageModel(*model); err != nil {
		return err
	}
	if s, err = s.WithSeed(*seed); err != nil {
		return err
	}
	s = s.WithLockSeed(*seed != domain.RandomSeed).
		WithFlag(domain.FlagNoLogo, *nologo).
		WithFlag(domain.FlagEnhance, *enhance).
		WithFlag(domain.FlagSafe, *safe).
		WithFlag(domain.FlagPrivate, *private)

	_, opts, err := s.NextImageOptions(prompt, c.deps.Cfg.ImageReferrer, state.RandomSeed)
	if err != nil {
		return err
	}
	imageURL, err := service.BuildImageURL(c.deps.Cfg.ImageAPIURL, opts)
	if err != nil {
		return err
	}
	urlStyle.Fprintln(c.stdout(), imageURL)
	return nil
}

func (c *CLI) runGallery() error {
	if c.deps.Store == nil {
		return errors.New("state store not configured")
	}
	images := c.deps.Store.Snapshot().Images
	if len(images) == 0 {
		fmt.Fprintln(c.stdout(), "gallery is empty")
		return nil
	}

	for i, img := range images {
		headerStyle.Fprintf(c.stdout(), "%d. %s\n", i+1, img.Prompt)
		dimStyle.Fprintf(c.stdout(), "   %s · seed %s · %s · %dx%d\n",
			img.CreatedAt.Format("2006-01-02 15:04"), img.Params.Seed, img.Params.Model, img.Params.Width, img.Params.Height)
		urlStyle.Fprintf(c.stdout(), "   %s\n", img.URL)
	}
	return nil
}
