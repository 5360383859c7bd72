package server

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/datascout-labs/datascout/internal/backend"
	"github.com/datascout-labs/datascout/internal/core"
	"github.com/datascout-labs/datascout/internal/dberr"
)

func (s *Server) registerResources() {
	s.mcp.AddResource(mcp.NewResource(
		"connections://list",
		"Connection registry",
		mcp.WithResourceDescription("All configured and live connections with status."),
		mcp.WithMIMEType("application/json"),
	), s.readConnectionList)

	s.mcp.AddResourceTemplate(mcp.NewResourceTemplate(
		"schema://{connection}",
		"Database schema",
		mcp.WithTemplateDescription("Full schema description of a connected database."),
		mcp.WithTemplateMIMEType("application/json"),
	), s.readSchema)

	s.mcp.AddResourceTemplate(mcp.NewResourceTemplate(
		"schema://{connection}/{table}",
		"Table schema",
		mcp.WithTemplateDescription("Structure of one table in a connected database."),
		mcp.WithTemplateMIMEType("application/json"),
	), s.readSchema)
}

func (s *Server) readConnectionList(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(struct {
		Connections []core.ConnectionState `json:"connections"`
	}{Connections: s.registry.List()}, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{mcp.TextResourceContents{
		URI:      req.Params.URI,
		MIMEType: "application/json",
		Text:     string(data),
	}}, nil
}

// readSchema serves both schema://{connection} and
// schema://{connection}/{table}. Bodies are cached per URI keyed on the
// registry generation, so any connect or disconnect invalidates them.
func (s *Server) readSchema(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	name, table, err := parseSchemaURI(req.Params.URI)
	if err != nil {
		return nil, err
	}

	gen := s.registry.Generation()
	s.cacheMu.Lock()
	if c, ok := s.cache[req.Params.URI]; ok && c.generation == gen {
		s.cacheMu.Unlock()
		return []mcp.ResourceContents{mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     c.body,
		}}, nil
	}
	s.cacheMu.Unlock()

	var payload any
	doErr := s.registry.Do(name, func(h backend.Backend) error {
		if table == "" {
			desc, err := s.inspect.Describe(ctx, h)
			if err != nil {
				return err
			}
			payload = desc
			return nil
		}
		td, err := s.inspect.DescribeTable(ctx, h, table)
		if err != nil {
			return err
		}
		payload = td
		return nil
	})
	if doErr != nil {
		return nil, doErr
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, err
	}

	s.cacheMu.Lock()
	s.cache[req.Params.URI] = cachedResource{generation: gen, body: string(data)}
	s.cacheMu.Unlock()

	return []mcp.ResourceContents{mcp.TextResourceContents{
		URI:      req.Params.URI,
		MIMEType: "application/json",
		Text:     string(data),
	}}, nil
}

// parseSchemaURI splits schema://{connection}[/{table}] into its parts.
func parseSchemaURI(uri string) (name, table string, err error) {
	rest, ok := strings.CutPrefix(uri, "schema://")
	if !ok || rest == "" {
		return "", "", dberr.New(dberr.ConfigInvalid, "unsupported resource URI %q", uri)
	}
	parts := strings.SplitN(rest, "/", 2)
	name = parts[0]
	if len(parts) == 2 {
		table = parts[1]
	}
	if name == "" {
		return "", "", dberr.New(dberr.ConfigInvalid, "unsupported resource URI %q", uri)
	}
	return name, table, nil
}
