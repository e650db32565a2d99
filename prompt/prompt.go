package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/mattn/go-isatty"

	"github.com/xeptore/ytmdl/types"
)

var ErrInterrupted = errors.New("prompt interrupted")

type Stdio struct {
	In  terminal.FileReader
	Out terminal.FileWriter
	Err io.Writer
}

func DefaultStdio() Stdio {
	return Stdio{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

// Interactive reports whether both stdin and stdout are terminals.
func Interactive() bool {
	return isTerminal(os.Stdin.Fd()) && isTerminal(os.Stdout.Fd())
}

// ColorOutput reports whether stdout can render colors.
func ColorOutput() bool {
	return isTerminal(os.Stdout.Fd())
}

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (s Stdio) opts(extra ...survey.AskOpt) []survey.AskOpt {
	return append([]survey.AskOpt{survey.WithStdio(s.In, s.Out, s.Err), survey.WithShowCursor(true)}, extra...)
}

func (s Stdio) input(message string, value *string, extra ...survey.AskOpt) error {
	prompt := &survey.Input{ //nolint:exhaustruct
		Message: message,
		Default: *value,
	}
	if err := survey.AskOne(prompt, value, s.opts(extra...)...); nil != err {
		if errors.Is(err, terminal.InterruptErr) {
			return ErrInterrupted
		}
		return fmt.Errorf("failed to ask %q: %v", message, err)
	}

	return nil
}

// EditRelease asks for every editable field of a release, prefilled with
// its current value.
func EditRelease(stdio Stdio) func(ctx context.Context, r *types.ReleaseRecord) error {
	return func(ctx context.Context, r *types.ReleaseRecord) error {
		e := EditsOf(*r)

		if err := stdio.input("Album title:", &e.Title, survey.WithValidator(survey.Required)); nil != err {
			return err
		}
		for i := range e.Artists {
			if err := stdio.input(fmt.Sprintf("Artist %d (blank to remove):", i+1), &e.Artists[i]); nil != err {
				return err
			}
		}
		for {
			var extra string
			if err := stdio.input("Additional artist (blank to finish):", &extra); nil != err {
				return err
			}
			if strings.TrimSpace(extra) == "" {
				break
			}
			e.Artists = append(e.Artists, extra)
		}
		if err := stdio.input("Genre:", &e.Genre); nil != err {
			return err
		}
		yearValidator := func(ans any) error {
			_, err := parseYear(fmt.Sprint(ans))
			return err
		}
		if err := stdio.input("Year:", &e.Year, survey.WithValidator(yearValidator)); nil != err {
			return err
		}

		for i := range e.TrackTitles {
			if err := ctx.Err(); nil != err {
				return err
			}
			if err := stdio.input(fmt.Sprintf("Track %d title:", i+1), &e.TrackTitles[i]); nil != err {
				return err
			}
		}

		return e.Apply(r)
	}
}

// ConfirmMismatch asks whether to download the paired tracks despite m.
func ConfirmMismatch(stdio Stdio) func(ctx context.Context, m *types.MismatchError) (bool, error) {
	return func(_ context.Context, m *types.MismatchError) (bool, error) {
		var ok bool
		prompt := &survey.Confirm{ //nolint:exhaustruct
			Message: fmt.Sprintf(
				"%d track(s) and %d playlist entr(ies) are unmatched. Download the matched tracks anyway?",
				len(m.UnmatchedTracks),
				len(m.UnmatchedEntries),
			),
			Default: false,
		}
		if err := survey.AskOne(prompt, &ok, stdio.opts()...); nil != err {
			if errors.Is(err, terminal.InterruptErr) {
				return false, nil
			}
			return false, fmt.Errorf("failed to ask for confirmation: %v", err)
		}

		return ok, nil
	}
}
