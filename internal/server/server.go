// Package server exposes the connection registry, introspector and query
// executor as MCP tools and resources over stdio.
package server

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/datascout-labs/datascout/internal/config"
	"github.com/datascout-labs/datascout/internal/dberr"
	"github.com/datascout-labs/datascout/internal/introspect"
	"github.com/datascout-labs/datascout/internal/query"
	"github.com/datascout-labs/datascout/internal/registry"
)

const (
	// Name identifies this server in the MCP handshake.
	Name = "datascout"

	// Version is the advertised server version.
	Version = "0.3.0"
)

// Server wires the core components behind the MCP tool surface.
type Server struct {
	mcp      *server.MCPServer
	registry *registry.Registry
	resolver *config.Resolver
	inspect  *introspect.Introspector
	executor *query.Executor
	logger   *slog.Logger

	cacheMu sync.Mutex
	cache   map[string]cachedResource
}

// cachedResource holds one rendered resource body, valid only while the
// registry generation is unchanged.
type cachedResource struct {
	generation uint64
	body       string
}

// New constructs the server and registers all tools and resources. If
// logger is nil, a discard logger is used.
func New(resolver *config.Resolver, reg *registry.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		mcp: server.NewMCPServer(
			Name,
			Version,
			server.WithToolCapabilities(true),
			server.WithResourceCapabilities(true, true),
		),
		registry: reg,
		resolver: resolver,
		inspect:  introspect.New(logger),
		executor: query.NewExecutor(logger),
		logger:   logger,
		cache:    make(map[string]cachedResource),
	}

	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio blocks serving MCP over stdin/stdout until the client
// disconnects.
func (s *Server) ServeStdio() error {
	s.logger.Info("serving MCP over stdio", slog.String("name", Name), slog.String("version", Version))
	return server.ServeStdio(s.mcp)
}

// Close tears down all live sessions.
func (s *Server) Close() {
	s.registry.CloseAll()
}

// jsonResult marshals payload into a text tool result.
func jsonResult(payload any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return errorResult(dberr.Wrap(dberr.QueryExecution, err, "failed to encode result")), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// errorResult renders err as the structured {error_kind, message} failure
// payload. Tool calls report failure in-band; the Go error return is
// reserved for protocol-level problems.
func errorResult(err error) *mcp.CallToolResult {
	payload := struct {
		ErrorKind string `json:"error_kind"`
		Message   string `json:"message"`
	}{
		ErrorKind: string(dberr.KindOf(err)),
		Message:   err.Error(),
	}
	if payload.ErrorKind == "" {
		payload.ErrorKind = string(dberr.QueryExecution)
	}
	data, mErr := json.Marshal(payload)
	if mErr != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultError(string(data))
}
