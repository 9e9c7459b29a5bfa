package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/yuanying/epubterm/internal/book"
	"github.com/yuanying/epubterm/internal/config"
	"github.com/yuanying/epubterm/internal/paginate"
	"github.com/yuanying/epubterm/internal/progress"
	"github.com/yuanying/epubterm/internal/session"
)

var version = "dev"

const (
	defaultWidth  = 80
	defaultHeight = 24
)

type cliOptions struct {
	Path   string
	Config *config.Config
	// WPM is non-zero when a rate was configured explicitly; otherwise the
	// rate saved with the book is used.
	WPM int
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "epubterm --path <file>",
		Short: "Read EPUB books in the terminal",
		Long: `epubterm renders an EPUB book as plain text in the terminal,
paginated to the window size, and remembers the last page of every book.

Keys: l/right/space/pgdown next page, h/left/pgup previous page,
j/down and k/up scroll, e reading time, m book details, q quit.`,
		Version:      version,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readCLIOptions(cmd)
			if err != nil {
				return err
			}
			return run(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringP("path", "p", "", "EPUB file to read (required)")
	f.IntP("words-per-minute", "w", paginate.DefaultWPM, "Reading speed used for time estimates")
	f.StringP("config", "c", "", "Configuration file (YAML)")
	f.String("progress-file", "", "Progress file (default: <user config dir>/epubterm/progress.yaml)")
	f.String("log-level", "", "File log level: none, normal or debug")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

// readCLIOptions layers command-line flags over the loaded configuration.
func readCLIOptions(cmd *cobra.Command) (*cliOptions, error) {
	f := cmd.Flags()
	path, _ := f.GetString("path")
	if path == "" {
		return nil, fmt.Errorf("--path is required")
	}
	configPath, _ := f.GetString("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if f.Changed("words-per-minute") {
		cfg.WPM, _ = f.GetInt("words-per-minute")
		cfg.WPMSet = true
	}
	if f.Changed("progress-file") {
		cfg.ProgressFile, _ = f.GetString("progress-file")
	}
	if f.Changed("log-level") {
		cfg.Logging.Level, _ = f.GetString("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := &cliOptions{Path: path, Config: cfg}
	if cfg.WPMSet {
		opts.WPM = cfg.WPM
	}
	return opts, nil
}

func run(ctx context.Context, opts *cliOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	log, err := opts.Config.Logging.Prepare()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	width, height := terminalSize()
	ctrl, err := openSession(ctx, opts, textViewport(width, height), log)
	if err != nil {
		return err
	}

	p := tea.NewProgram(newModel(ctrl), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	return multierr.Append(err, ctrl.Close())
}

// openSession loads the book and its saved position. Errors are fatal
// load errors; a corrupt progress file is only logged.
func openSession(ctx context.Context, opts *cliOptions, vp paginate.Viewport, log *zap.Logger) (*session.Controller, error) {
	b, _, err := book.Load(ctx, opts.Path, book.Options{
		Workers: opts.Config.Workers,
		Logger:  log,
	})
	if err != nil {
		return nil, err
	}

	store, err := progress.Load(opts.Config.ProgressFile)
	if err != nil {
		log.Warn("Starting without saved progress", zap.Error(err))
	}

	return session.New(b, store, session.Options{
		Viewport:     vp,
		WPM:          opts.WPM,
		ProgressFile: opts.Config.ProgressFile,
		Logger:       log,
	}), nil
}

func terminalSize() (int, int) {
	w, h, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 || h <= 0 {
		return defaultWidth, defaultHeight
	}
	return w, h
}

// textViewport reserves the bottom row for the status line.
func textViewport(width, height int) paginate.Viewport {
	return paginate.Viewport{Width: width, Height: height - 1}.Clamp()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
