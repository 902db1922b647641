package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v2"

	"github.com/natasadenman-dotcom/authorsvoice/internal/errors"
	"github.com/natasadenman-dotcom/authorsvoice/internal/store"
	"github.com/natasadenman-dotcom/authorsvoice/internal/transcript"
	"github.com/natasadenman-dotcom/authorsvoice/internal/tui"
)

// stopGrace is how long a stopped session may take to deliver its last
// results before the transcript is saved anyway.
const stopGrace = 5 * time.Second

func dictateCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "dictate",
		Usage: "Capture a dictation and save it as a document",
		Description: "Recognition events are read as NDJSON from a speech daemon socket or from a\n" +
			"file (- for stdin). Without --tui the session runs until the stream ends or\n" +
			"the process is interrupted.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "socket", Usage: "Unix socket of a speech daemon"},
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "NDJSON event file, or - for stdin"},
			&cli.BoolFlag{Name: "tui", Usage: "Show the live dictation view"},
			&cli.StringFlag{Name: "document", Aliases: []string{"d"}, Usage: "Replace the raw text of this document"},
			&cli.StringFlag{Name: "manuscript", Aliases: []string{"m"}, Usage: "Save as a chapter of this manuscript"},
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Document title"},
			&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags"},
			&cli.StringFlag{Name: "locale", Usage: "Recognition language (default from config)"},
		},
		Action: func(c *cli.Context) error {
			rec, closeRec, err := openRecognizer(c)
			if err != nil {
				return outputError(err)
			}
			defer closeRec()

			locale := c.String("locale")
			if locale == "" {
				locale = e.cfg.Locale
			}
			cfg := transcript.Config{Locale: locale, Logger: e.logger}

			var text string
			if c.Bool("tui") {
				text, err = dictateTUI(rec, cfg)
			} else {
				text, err = dictateHeadless(c.Context, rec, cfg)
			}
			if err != nil {
				return outputError(err)
			}

			input := store.SaveTranscriptInput{
				DocumentID: c.String("document"),
				Title:      c.String("title"),
				Text:       text,
				Tags:       parseTags(c.String("tags")),
			}
			if ms := c.String("manuscript"); ms != "" {
				input.ManuscriptID = &ms
			}
			doc, err := e.store.SaveTranscript(c.Context, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, doc)
		},
	}
}

// openRecognizer builds the recognizer named by --socket or --input.
func openRecognizer(c *cli.Context) (transcript.Recognizer, func(), error) {
	socket, input := c.String("socket"), c.String("input")
	switch {
	case socket != "" && input != "":
		return nil, nil, errors.NewInvalidRequest("--socket and --input are mutually exclusive")
	case socket != "":
		return transcript.NewSocketRecognizer(socket), func() {}, nil
	case input == "-":
		if c.Bool("tui") {
			return nil, nil, errors.NewInvalidRequest("--tui reads keys from stdin; use --socket or an --input file")
		}
		return transcript.NewReaderRecognizer(os.Stdin), func() {}, nil
	case input != "":
		f, err := os.Open(input)
		if err != nil {
			return nil, nil, errors.NewInvalidRequest("open event file: " + err.Error())
		}
		return transcript.NewReaderRecognizer(f), func() { f.Close() }, nil
	default:
		return nil, nil, errors.NewCapabilityUnavailable("speech", nil)
	}
}

// dictateHeadless runs one session until the stream ends, or until an
// interrupt stops it, and returns the transcript.
func dictateHeadless(ctx context.Context, rec transcript.Recognizer, cfg transcript.Config) (string, error) {
	acc := transcript.New(rec, cfg)
	defer acc.Close()

	if err := acc.Start(); err != nil {
		return "", err
	}
	done := acc.Done()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-done:
	case <-sigCtx.Done():
		if err := acc.Stop(); err != nil {
			cfg.Logger.Warn("stop failed", "error", err)
		}
		select {
		case <-done:
		case <-time.After(stopGrace):
			cfg.Logger.Warn("session did not end after stop; saving what was heard")
		}
	}

	return finish(acc)
}

// dictateTUI runs the live view. The user starts, stops and resets capture
// from the keyboard; the transcript on quit is returned.
func dictateTUI(rec transcript.Recognizer, cfg transcript.Config) (string, error) {
	updates := make(chan transcript.State, 16)
	quit := make(chan struct{})
	cfg.OnChange = func(s transcript.State) {
		select {
		case updates <- s:
		case <-quit:
		}
	}

	acc := transcript.New(rec, cfg)
	defer acc.Close()

	p := tea.NewProgram(tui.New(acc, updates), tea.WithAltScreen())
	_, err := p.Run()
	close(quit)
	if err != nil {
		return "", errors.NewInternal(err)
	}
	return finish(acc)
}

// finish folds any draft text into the transcript and returns it. A capture
// error is returned only when nothing was heard.
func finish(acc *transcript.Accumulator) (string, error) {
	_ = acc.Stop()
	state := acc.State()
	text := strings.TrimSpace(state.Transcript())
	if text == "" && state.Err != nil {
		return "", state.Err
	}
	return text, nil
}
