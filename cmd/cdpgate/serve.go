package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/cdpgate/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/cdpgate/internal/infrastructure/server"
)

type serveOptions struct {
	host              string
	port              string
	upstream          string
	publicBaseURL     string
	trustForwarded    bool
	rewriteTargetList bool
}

func newServeCommand(g *globalOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the CDP reverse proxy.",
		Long: `Serve the CDP HTTP endpoints and WebSocket sessions of the upstream browser.
Flags override the matching environment variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, g, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.host, "host", "", "listen host (env HOST)")
	f.StringVarP(&opts.port, "port", "p", "", "listen port (env PORT)")
	f.StringVarP(&opts.upstream, "upstream", "u", "", "internal CDP server base URL (env UPSTREAM_URL)")
	f.StringVar(&opts.publicBaseURL, "public-base-url", "", "fixed external base for rewritten URLs (env PUBLIC_BASE_URL)")
	f.BoolVar(&opts.trustForwarded, "trust-forwarded", true, "derive the external base from X-Forwarded-* (env TRUST_FORWARDED)")
	f.BoolVar(&opts.rewriteTargetList, "rewrite-target-list", false, "also rewrite /json and /json/list (env REWRITE_TARGET_LIST)")

	return cmd
}

func (o *serveOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("host") {
		cfg.Server.Host = o.host
	}
	if f.Changed("port") {
		cfg.Server.Port = o.port
	}
	if f.Changed("upstream") {
		cfg.Upstream.URL = o.upstream
	}
	if f.Changed("public-base-url") {
		cfg.Server.PublicBaseURL = o.publicBaseURL
	}
	if f.Changed("trust-forwarded") {
		cfg.Server.TrustForwarded = o.trustForwarded
	}
	if f.Changed("rewrite-target-list") {
		cfg.Upstream.RewriteTargetList = o.rewriteTargetList
	}
}

func runServe(cmd *cobra.Command, g *globalOptions, opts *serveOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	opts.apply(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := g.logger(cmd, cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	srv, err := server.NewServer(cfg, logger)
	if err != nil {
		logger.Error("Failed to create server", zap.Error(err))
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("Server error", zap.Error(err))
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
