package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"weblogd/internal/config"
	"weblogd/internal/maintenance"
	"weblogd/internal/server"
	"weblogd/internal/uploads"
	"weblogd/internal/weblog"
)

// Base64 grows upload bodies by a third; the rest is envelope headroom.
const rpcEnvelopeBytes = 1 << 20

func newSrvCmd(cfg *config.Config) *cobra.Command {
	var trustProxy bool

	cmd := &cobra.Command{
		Use:   "srv",
		Short: "Run the weblogd API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg, trustProxy)
		},
	}

	cmd.Flags().BoolVar(&trustProxy, "trust-proxy", false, "take client address and scheme from X-Forwarded-* headers")
	return cmd
}

// runServer wires the store, upload sessions and facade and serves until ctx ends.
func runServer(ctx context.Context, cfg *config.Config, trustProxy bool) error {
	logger := slog.Default().With("component", "server")

	addr, err := server.ListenAddr(cfg.ListenAddr)
	if err != nil {
		return err
	}

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	registry, closeRegistry, err := openUploadRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRegistry()

	links, err := weblog.NewLinks(cfg.BaseURL())
	if err != nil {
		return err
	}

	throttle := server.NewLoginThrottle(cfg.Auth.MaxFailures, cfg.Auth.FailureWindow.Duration, cfg.Auth.BlockDuration.Duration)
	deps := weblog.Deps{
		Documents:   st,
		Tags:        st,
		Attachments: st,
		Workflows:   st,
		Versions:    st,
		Auth:        st,
		Authorizer:  st,
		Bans:        st,
		Events:      st,
		Uploads:     registry,
		Links:       links,
	}
	if throttle != nil {
		deps.Throttle = throttle
	}
	facade, err := weblog.New(deps, weblog.Options{
		MaxTitleLength:  cfg.Posts.MaxTitleLength,
		GenerateSummary: cfg.Posts.GenerateSummary,
		SummaryLength:   cfg.Posts.SummaryLength,
		DeleteUnused:    cfg.Attachments.DeleteUnused,
		MaxUploadBytes:  cfg.Attachments.MaxUploadBytes,
		Location:        cfg.Location(),
	}, slog.Default().With("component", "weblog"))
	if err != nil {
		return err
	}

	runner := maintenance.New(st, registry, cfg.Attachments.TempTTL.Duration, slog.Default().With("component", "maintenance"))
	if err := runner.Start(ctx, cfg.Maintenance.Schedule); err != nil {
		return err
	}
	defer runner.Stop()

	srv := server.New(addr, facade, server.Options{
		PublicURL:    cfg.PublicURL,
		SiteName:     cfg.SiteName,
		DBPath:       cfg.DBPath,
		TrustProxy:   trustProxy,
		MaxBodyBytes: cfg.Attachments.MaxUploadBytes*4/3 + rpcEnvelopeBytes,
		Files:        st,
		Info:         st,
		Logger:       logger,
	})
	return srv.ListenAndServe(ctx)
}

func openUploadRegistry(ctx context.Context, cfg *config.Config) (uploads.Registry, func(), error) {
	ttl := cfg.Uploads.SessionTTL.Duration
	if cfg.Uploads.Backend != config.UploadBackendRedis {
		return uploads.NewMemoryRegistry(ttl), func() {}, nil
	}

	registry, err := uploads.NewRedisRegistry(ctx, uploads.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TTL:      ttl,
	})
	if err != nil {
		return nil, nil, err
	}
	return registry, func() { _ = registry.Close() }, nil
}
