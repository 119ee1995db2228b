// Package server exposes the passage service over HTTP: REST endpoints and
// the MCP streamable HTTP transport.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"derrclan.com/bible-passage/internal/config"
	"derrclan.com/bible-passage/internal/passage"
)

// ServiceName identifies this server in health checks and MCP handshakes.
const ServiceName = "bible"

// Version is reported by /health, /info and the MCP handshake.
var Version = "1.0.0"

// Muxer returns the HTTP router for cfg.Mode. In config.ModeMCP only /health
// and /mcp are served.
func Muxer(cfg *config.Config, svc *passage.Service, logger *zap.Logger) *chi.Mux {
	h := NewHandler(svc, logger)
	mcpServer := NewMCPServer(svc, Version, logger)
	mcpHandler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return mcpServer
	}, nil)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	if cfg.CORSEnabled && len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Mcp-Session-Id", "Mcp-Protocol-Version", "Last-Event-ID"},
			ExposedHeaders:   []string{"Mcp-Session-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/health", h.Health)
	r.Handle("/mcp", mcpHandler)

	if cfg.Mode == config.ModeREST {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Compress(5))
			r.Get("/info", h.Info)
			r.Post("/passage", h.Passage)
		})
	}

	return r
}
