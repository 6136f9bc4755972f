package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/novasvilla/facelift/internal/config"
	"github.com/novasvilla/facelift/internal/copilot"
	"github.com/novasvilla/facelift/internal/logging"
	"github.com/novasvilla/facelift/internal/memory"
	"github.com/novasvilla/facelift/internal/session"
	"github.com/novasvilla/facelift/internal/storage"
	"github.com/novasvilla/facelift/internal/store"
)

var (
	// Global flags
	verbose    bool
	workspace  string
	configPath string
	sessionKey string
	timeout    time.Duration

	// analyze/refine flags
	project     string
	section     string
	sectionType string
	style       string
	choice      string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "facelift",
	Short: "facelift - conversational renovation design copilot",
	Long: `facelift turns photos of a space into renovation proposals.

It inventories every visible element, proposes three design alternatives
with exact paints and finishes, renders each one as an edited photo, and
refines the design conversationally while guaranteeing the structure of
the original photo is never altered.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if workspace == "" {
			workspace, _ = os.Getwd()
		}
		if err := logging.Initialize(workspace); err != nil {
			logger.Warn("file logging unavailable", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: <workspace>/.facelift/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&sessionKey, "session", "s", "default", "session key")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 15*time.Minute, "overall command timeout")

	analyzeCmd.Flags().StringVar(&project, "project", "", "style-memory project id")
	analyzeCmd.Flags().StringVar(&section, "section", "", "project section, e.g. fachada-principal")
	analyzeCmd.Flags().StringVar(&sectionType, "type", "", "section type: fachada, salon, jardin, ...")
	analyzeCmd.Flags().StringVar(&style, "style", "", "desired style, free text")

	refineCmd.Flags().StringVarP(&choice, "choice", "c", "", "alternative the feedback applies to (A, B, C)")

	watchCmd.Flags().StringVar(&project, "project", "", "style-memory project id")
	watchCmd.Flags().StringVar(&section, "section", "", "project section")
	watchCmd.Flags().StringVar(&sectionType, "type", "", "section type")
	watchCmd.Flags().StringVar(&style, "style", "", "desired style, free text")

	rootCmd.AddCommand(initCmd, analyzeCmd, refineCmd, productsCmd, sessionsCmd, resetCmd, watchCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app bundles everything a command needs, built once per invocation.
type app struct {
	cfg     *config.Config
	copilot *copilot.Copilot
	manager *session.Manager
	closers []func()
}

func (a *app) close() {
	for _, fn := range a.closers {
		fn()
	}
}

func buildApp() (*app, error) {
	path := configPath
	if path == "" {
		path = filepath.Join(workspace, ".facelift", "config.yaml")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := logging.ApplyConfig(logging.Settings{
		DebugMode:  cfg.Logging.DebugMode,
		Level:      cfg.Logging.Level,
		Categories: cfg.Logging.Categories,
	}); err != nil {
		logger.Warn("file logging config not applied", zap.Error(err))
	}

	client := perceptionClient(cfg)

	sessStore, err := store.NewSessionStore(filepath.Join(workspace, cfg.Session.DatabasePath))
	if err != nil {
		return nil, err
	}
	manager := session.NewManager(sessStore)

	var cloud memory.Store
	if cfg.Memory.Project != "" {
		cloud = memory.NewFirestoreStore(cfg.Memory.Project, cfg.Memory.Database)
	}
	mem := memory.NewPropagator(cloud, memory.NewFileStore(filepath.Join(workspace, cfg.Memory.LocalDir)))

	var uploader storage.Uploader = storage.NopUploader{}
	if cfg.Storage.Enabled && cfg.Storage.Bucket != "" {
		uploader = storage.NewGCSUploader(cfg.Storage.Project, cfg.Storage.Bucket)
	}

	cp := copilot.New(client, mem, manager, uploader,
		filepath.Join(workspace, cfg.Generation.OutputDir),
		filepath.Join(workspace, cfg.Generation.UploadsDir)).
		WithAlternatives(cfg.Generation.Alternatives)

	return &app{
		cfg:     cfg,
		copilot: cp,
		manager: manager,
		closers: []func(){func() { sessStore.Close() }},
	}, nil
}

// commandContext returns a context bounded by the --timeout flag and
// cancelled on Ctrl-C.
func commandContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	return ctx, func() {
		stop()
		cancel()
	}
}

// renderMarkdown pretty-prints a report for the terminal, falling back
// to the raw markdown when the renderer is unavailable.
func renderMarkdown(md string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return md
	}
	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}
