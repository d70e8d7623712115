// Package mcp exposes a tree engine to MCP clients: run execution and
// tree introspection as tools, the tree snapshot as a resource, over
// stdio or SSE transports.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/canopy"
	"github.com/aretw0/canopy/internal/logging"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/ports"
	"github.com/aretw0/canopy/pkg/schema"
)

// RunResult is the structured outcome of a run_tree call: the aggregate
// view plus the full encoded event log.
type RunResult struct {
	Response  string            `json:"response,omitempty" jsonschema_description:"Content of the last response event"`
	Completed bool              `json:"completed" jsonschema_description:"Whether the run ended with a completion event"`
	Error     string            `json:"error,omitempty" jsonschema_description:"Fatal error message, when the run failed"`
	Events    []json.RawMessage `json:"events" jsonschema_description:"Ordered event envelopes"`
}

// Server wraps a tree engine and exposes it as an MCP server.
type Server struct {
	engine    ports.Engine
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates an MCP server over engine.
func NewServer(engine ports.Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("canopy-mcp", strings.TrimSpace(canopy.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE, shutting down
// gracefully when ctx is canceled.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("mcp server listening (sse)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: run_tree
	runTool := mcp.NewTool("run_tree",
		mcp.WithDescription("Run the decision tree for a prompt and return the aggregated outcome plus the full event log."),
		mcp.WithString("prompt", mcp.Required(), mcp.Description("The user query to route through the tree")),
		mcp.WithString("collections", mcp.Description("JSON array of data-set handles to attach to the run (optional)")),
		mcp.WithString("metadata", mcp.Description("JSON object of run annotations (optional)")),
		mcp.WithOutputSchema[RunResult](),
	)
	s.mcpServer.AddTool(runTool, mcp.NewStructuredToolHandler(s.handleRunTree))

	// TOOL: inspect_tree
	inspectTool := mcp.NewTool("inspect_tree",
		mcp.WithDescription("Get the assembled tree's structure: branches, tools and their relationships."),
		mcp.WithOutputSchema[domain.TreeInfo](),
	)
	s.mcpServer.AddTool(inspectTool, mcp.NewStructuredToolHandler(s.handleInspectTree))
}

func (s *Server) handleRunTree(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (RunResult, error) {
	prompt, _ := args["prompt"].(string)
	if prompt == "" {
		return RunResult{}, fmt.Errorf("prompt is required")
	}

	spec := ports.RunSpec{Prompt: prompt}
	if collStr, ok := args["collections"].(string); ok && collStr != "" {
		if err := json.Unmarshal([]byte(collStr), &spec.Collections); err != nil {
			return RunResult{}, fmt.Errorf("invalid collections: %w", err)
		}
	}
	if metaStr, ok := args["metadata"].(string); ok && metaStr != "" {
		if err := json.Unmarshal([]byte(metaStr), &spec.Metadata); err != nil {
			return RunResult{}, fmt.Errorf("invalid metadata: %w", err)
		}
	}

	result := RunResult{Events: []json.RawMessage{}}
	for ev := range s.engine.Execute(ctx, spec) {
		if data, err := schema.Encode(ev); err == nil {
			result.Events = append(result.Events, data)
		} else {
			s.logger.Error("event encode failed", "err", err)
		}

		switch e := ev.(type) {
		case domain.Response:
			result.Response = e.Content
		case domain.Error:
			if !e.Recoverable {
				result.Error = e.Message
			}
		case domain.Completed:
			result.Completed = true
		}
	}
	return result, nil
}

func (s *Server) handleInspectTree(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (domain.TreeInfo, error) {
	return s.engine.Inspect(), nil
}

func (s *Server) registerResources() {
	// EXPOSE: canopy://tree
	s.mcpServer.AddResource(mcp.NewResource("canopy://tree", "Current Tree Definition",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		info := s.engine.Inspect()
		jsonBytes, err := json.Marshal(info)
		if err != nil {
			return nil, fmt.Errorf("failed to encode tree: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "canopy://tree",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
