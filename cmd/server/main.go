package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"derrclan.com/bible-passage/internal/config"
	"derrclan.com/bible-passage/internal/gateway"
	"derrclan.com/bible-passage/internal/logging"
	"derrclan.com/bible-passage/internal/passage"
	"derrclan.com/bible-passage/internal/server"
)

const shutdownTimeout = 10 * time.Second

var rootCmd = &cobra.Command{
	Use:   "passage-server",
	Short: "Serve Bible passage lookups over MCP and REST",
	Long: `passage-server retrieves Bible passages by reference and returns them as
plain text.

Modes:
  stdio  MCP over stdin/stdout
  mcp    MCP over streamable HTTP at /mcp
  rest   REST endpoints plus MCP over HTTP`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	config.RegisterFlags(rootCmd.Flags())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	opts := []gateway.Option{gateway.WithLogger(logger)}
	if cfg.UserAgent != "" {
		opts = append(opts, gateway.WithUserAgent(cfg.UserAgent))
	}
	client := gateway.NewClient(cfg.BaseURL, cfg.Timeout, opts...)
	svc := passage.NewService(client, cfg.Translations(),
		passage.WithConcurrency(cfg.FetchConcurrency),
		passage.WithDefaultVersion(cfg.DefaultVersion),
		passage.WithLogger(logger),
	)

	if cfg.Mode == config.ModeStdio {
		return serveStdio(cmd.Context(), svc, logger)
	}
	return serveHTTP(cfg, svc, logger)
}

func serveStdio(ctx context.Context, svc *passage.Service, logger *zap.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("serving MCP over stdio")
	srv := server.NewMCPServer(svc, server.Version, logger)
	if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio server: %w", err)
	}
	return nil
}

func serveHTTP(cfg *config.Config, svc *passage.Service, logger *zap.Logger) error {
	srv := http.Server{
		Addr:              cfg.Addr(),
		Handler:           server.Muxer(cfg, svc, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	idleConns := make(chan struct{})
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("error shutting down http server", zap.Error(err))
		}
		close(idleConns)
	}()

	logger.Info("http server listening", zap.String("addr", srv.Addr), zap.String("mode", cfg.Mode))
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server died: %w", err)
	}
	<-idleConns
	logger.Info("http server stopped")
	return nil
}
