// Package cli dispatches the studio subcommands. With no subcommand it
// hands over to the interactive terminal UI.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/set-night/chatcreate/internal/config"
	"github.com/set-night/chatcreate/internal/domain"
	"github.com/set-night/chatcreate/internal/state"
)

type Models interface {
	ListModels(ctx context.Context, class domain.AssetClass) []string
}

type Deps struct {
	Cfg         *config.Config
	Models      Models
	Store       *state.Store
	Interactive func(ctx context.Context) error
}

// CLI coordinates subcommands and writes their results to out.
type CLI struct {
	out  io.Writer
	err  io.Writer
	deps Deps
}

func New(out io.Writer, err io.Writer, deps Deps) *CLI {
	return &CLI{out: out, err: err, deps: deps}
}

const usage = `usage:
  studio                      interactive chat and image studio
  studio models text|image    list available models
  studio url [flags] prompt   print an image URL
  studio gallery              list the saved gallery`

func (c *CLI) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		if c.deps.Interactive == nil {
			return errors.New("interactive mode not configured")
		}
		return c.deps.Interactive(ctx)
	}

	switch args[0] {
	case "models":
		return c.runModels(ctx, args[1:])
	case "url":
		return c.runURL(args[1:])
	case "gallery":
		return c.runGallery()
	case "help", "-h", "-help", "--help":
		fmt.Fprintln(c.stdout(), usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

func (c *CLI) stdout() io.Writer {
	if c.out != nil {
		return c.out
	}
	return io.Discard
}

func (c *CLI) stderr() io.Writer {
	if c.err != nil {
		return c.err
	}
	return io.Discard
}
