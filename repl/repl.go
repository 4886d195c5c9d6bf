// Copyright © 2024 The Mago authors

// Package repl implements an interactive session that analyzes statements
// as they are entered and prints the type inferred for each expression.
package repl

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ergochat/readline"
	"go.uber.org/zap"

	"github.com/magophp/mago/analysis"
	"github.com/magophp/mago/diagnostic"
)

type config struct {
	stdin    io.ReadCloser
	stderr   io.Writer
	settings analysis.Settings
	color    diagnostic.ColorMode
	history  string
	log      *zap.Logger
}

func newConfig(opts ...Option) *config {
	config := &config{
		settings: analysis.DefaultSettings(),
		history:  historyPath(),
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(config)
	}
	return config
}

type Option func(*config)

// WithStdin allows overriding the input to the REPL.
func WithStdin(stdin io.ReadCloser) Option {
	return func(c *config) {
		c.stdin = stdin
	}
}

// WithStderr allows overriding the output of the REPL.
func WithStderr(stderr io.Writer) Option {
	return func(c *config) {
		c.stderr = stderr
	}
}

// WithSettings sets the analyzer settings of the session.
func WithSettings(s analysis.Settings) Option {
	return func(c *config) {
		c.settings = s
	}
}

// WithColor sets the color mode used to render issues.
func WithColor(mode diagnostic.ColorMode) Option {
	return func(c *config) {
		c.color = mode
	}
}

// WithHistory sets the history file.  An empty path disables history.
func WithHistory(path string) Option {
	return func(c *config) {
		c.history = path
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *config) {
		c.log = log
	}
}

const helpText = `Enter PHP statements; the type of each expression is printed.
Statements without errors are kept for later inputs.

  :help    show this message
  :source  print the kept statements
  :reset   forget the kept statements
  :quit    leave the session
`

// Run runs the REPL until the input ends or :quit is entered.
func Run(prompt string, opts ...Option) error {
	cfg := newConfig(opts...)
	out := cfg.stderr
	if out == nil {
		out = os.Stderr
	}

	session, err := NewSession(cfg.settings)
	if err != nil {
		return fmt.Errorf("repl: %w", err)
	}

	cont := strings.Repeat(" ", len(prompt)-2) + "> "
	if len(prompt) < 2 {
		cont = prompt
	}
	ensureHistoryFilePermissions(cfg.history)
	rlCfg := &readline.Config{
		Stdout:            out,
		Stderr:            out,
		Prompt:            prompt,
		HistoryFile:       cfg.history,
		HistorySearchFold: true,
		AutoComplete:      &symbolCompleter{session: session},
	}
	if cfg.stdin != nil {
		rlCfg.Stdin = cfg.stdin
	}
	rl, err := readline.NewEx(rlCfg)
	if err != nil {
		return fmt.Errorf("repl: %w", err)
	}
	defer rl.Close() //nolint:errcheck // best-effort cleanup

	r := &diagnostic.Renderer{Color: cfg.color, Files: session.Files()}
	var pending strings.Builder
	for {
		if pending.Len() == 0 {
			rl.SetPrompt(prompt)
		} else {
			rl.SetPrompt(cont)
		}
		line, err := rl.ReadLine()
		if err == readline.ErrInterrupt {
			pending.Reset()
			continue
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		if pending.Len() == 0 {
			switch strings.TrimSpace(line) {
			case "":
				continue
			case ":quit", ":q":
				return nil
			case ":help":
				fmt.Fprint(out, helpText) //nolint:errcheck // best-effort REPL output
				continue
			case ":reset":
				session.Reset()
				continue
			case ":source":
				fmt.Fprint(out, session.Source()) //nolint:errcheck // best-effort REPL output
				continue
			}
		}

		pending.WriteString(line)
		pending.WriteString("\n")
		if Incomplete(pending.String()) {
			continue
		}
		input := pending.String()
		pending.Reset()

		res, err := session.Eval(input)
		if err != nil {
			cfg.log.Error("repl.eval", zap.Error(err))
			fmt.Fprintln(out, err) //nolint:errcheck // best-effort error display
			continue
		}
		cfg.log.Debug("repl.eval", zap.Int("types", len(res.Types)), zap.Int("issues", len(res.Issues)))
		printResult(out, r, res)
	}
}

func printResult(w io.Writer, r *diagnostic.Renderer, res *Result) {
	for _, t := range res.Types {
		fmt.Fprintln(w, t.Type) //nolint:errcheck // best-effort REPL output
	}
	if len(res.Issues) > 0 {
		_ = r.RenderAll(w, res.Issues)
	}
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".mago_history")
}

// ensureHistoryFilePermissions creates the history file if needed and
// restricts it to the current user.
func ensureHistoryFilePermissions(path string) {
	if path == "" {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0o600) //nolint:gosec // path is the user's history file
	if err != nil {
		return
	}
	_ = f.Close()
	_ = os.Chmod(path, 0o600)
}
