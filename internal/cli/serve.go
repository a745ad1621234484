package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ratelens/demoserver/internal/config"
	"github.com/ratelens/demoserver/internal/registry"
	"github.com/ratelens/demoserver/internal/server"
	"github.com/ratelens/demoserver/internal/version"
	"github.com/ratelens/demoserver/web"
)

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := applyFlagOverrides(cmd, cfg); err != nil {
		return err
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)

	fsys := afero.NewOsFs()
	reg := registry.New(fsys, cfg.DataDir, log)

	// A missing data root is not fatal: the server stays up in a degraded,
	// observable state and a later reload can recover it.
	if err := reg.Load(); err != nil {
		log.Warn("starting without client data", "err", err)
	}

	srv, err := server.New(&server.Config{
		Port:     cfg.Port,
		Registry: reg,
		Resolver: version.NewResolver(fsys),
		Assets:   web.Assets(cfg.PublicDir),
		Log:      log,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("shutting down", "signal", sig.String())
		cancel()
	}()

	return srv.Start(ctx)
}

// applyFlagOverrides lets explicit flags win over the environment.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("port") {
		port, err := cmd.Flags().GetInt("port")
		if err != nil {
			return err
		}
		cfg.Port = port
	}
	if cmd.Flags().Changed("data-dir") {
		dir, err := cmd.Flags().GetString("data-dir")
		if err != nil {
			return err
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("failed to resolve data dir: %w", err)
		}
		cfg.DataDir = abs
	}
	if cmd.Flags().Changed("public-dir") {
		dir, err := cmd.Flags().GetString("public-dir")
		if err != nil {
			return err
		}
		cfg.PublicDir = dir
	}
	return config.Validate(cfg)
}
