// cmd/web/main.go
//
// Neurion contact service – command-line entry point.
//
// Commands
// --------
//
//	web serve    – run the HTTP server (default)
//	web probe    – one connectivity check against the configured store
//	web migrate  – create the submissions table (sql backend only)
//
// Start-up (shared by every command)
// ----------------------------------
//
//  1. If conf/global.yaml or NEURION_* env holds `vault:` refs, open a Vault
//     client so the loader can resolve them.
//
//  2. Load, default, and validate the configuration tree.
//
//  3. Start the daily rotating logger (tees to console when in a TTY).
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yanizio/neurion/internal/config"
	"github.com/yanizio/neurion/internal/logger"
	"github.com/yanizio/neurion/internal/vault"

	_ "github.com/yanizio/neurion/components/contact" // contact API
	_ "github.com/yanizio/neurion/components/debug"   // /api/debug, off by default
)

// app carries what PersistentPreRunE builds for the subcommands.
type app struct {
	root  string
	level string
	cfg   *config.Config
	log   *zap.SugaredLogger
	vault *vault.Client
}

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "web",
		Short:         "Neurion AI contact submission service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.boot(cmd.Context())
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&a.root, "root", "", "project root holding conf/ (default: NEURION_ROOT or discovered)")
	root.PersistentFlags().StringVar(&a.level, "log-level", "", "override log.level")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP server",
			RunE:  func(cmd *cobra.Command, _ []string) error { return a.serve(cmd.Context()) },
		},
		&cobra.Command{
			Use:   "probe",
			Short: "Check store connectivity once and exit non-zero on failure",
			RunE:  func(cmd *cobra.Command, _ []string) error { return a.probe(cmd.Context()) },
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create the submissions table when missing (sql backend)",
			RunE:  func(cmd *cobra.Command, _ []string) error { return a.migrate(cmd.Context()) },
		},
	)
	return root
}

// boot resolves config and logging for every subcommand.
func (a *app) boot(ctx context.Context) error {
	//
	// ── 1.  Vault (only when refs are present) ──────────────────────────
	//
	var resolver config.Resolver
	if config.NeedsVault(a.root) {
		vc, err := vault.New(ctx, vault.Options{})
		if err != nil {
			return fmt.Errorf("vault: %w", err)
		}
		a.vault = vc
		resolver = vc
	}

	//
	// ── 2.  Configuration ───────────────────────────────────────────────
	//
	cfg, err := config.Load(ctx, config.Options{Root: a.root, Resolver: resolver})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.level != "" {
		cfg.Log.Level = a.level
	}
	a.cfg = cfg

	//
	// ── 3.  Logger ──────────────────────────────────────────────────────
	//
	log, err := logger.New(logger.Options{
		Dir:   cfg.Log.Dir,
		Level: cfg.Log.Level,
		Tee:   runningInTTY(),
	})
	if err != nil {
		return fmt.Errorf("start logger: %w", err)
	}
	a.log = log
	log.Infow("config loaded", "root", cfg.Paths.Root, "backend", cfg.Store.Backend, "vault", a.vault != nil)
	return nil
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "web:", err)
		os.Exit(1)
	}
}
