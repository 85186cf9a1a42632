// Package mcp implements the Model Context Protocol server for mnemos.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/jaehoon-lim/mnemos/internal/classifier"
	"github.com/jaehoon-lim/mnemos/internal/models"
	"github.com/jaehoon-lim/mnemos/internal/service"
)

// defaultSearchLimit is the default number of results for search.
const defaultSearchLimit = 5

// Server wraps an MCPServer around the memory service.
type Server struct {
	mcp    *mcpserver.MCPServer
	svc    *service.Service
	logger *slog.Logger
}

// NewServer creates a new MCP server. If svc is nil, tool calls return an
// error response instead of panicking.
func NewServer(svc *service.Service, logger *slog.Logger) *Server {
	s := &Server{
		svc:    svc,
		logger: logger,
	}

	mcpSrv := mcpserver.NewMCPServer(
		"mnemos",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
	)

	mcpSrv.AddTool(buildClassifyTool(), s.handleClassify)
	mcpSrv.AddTool(buildRememberTool(), s.handleRemember)
	mcpSrv.AddTool(buildSearchTool(), s.handleSearch)
	mcpSrv.AddTool(buildForgetTool(), s.handleForget)
	mcpSrv.AddTool(buildStatsTool(), s.handleStats)

	s.mcp = mcpSrv
	return s
}

// MCPServer returns the underlying mcp-go MCPServer for use with ServeStdio.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcp
}

// HandleClassify is the exported handler for the "classify" tool.
// It is exposed for direct testing without the mcp-go transport layer.
func (s *Server) HandleClassify(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleClassify(ctx, req)
}

// HandleRemember is the exported handler for the "remember" tool.
func (s *Server) HandleRemember(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleRemember(ctx, req)
}

// HandleSearch is the exported handler for the "search" tool.
func (s *Server) HandleSearch(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleSearch(ctx, req)
}

// HandleForget is the exported handler for the "forget" tool.
func (s *Server) HandleForget(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleForget(ctx, req)
}

// HandleStats is the exported handler for the "stats" tool.
func (s *Server) HandleStats(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleStats(ctx, req)
}

// toolResultJSON marshals v to JSON and returns it as a tool text result.
func toolResultJSON(v any) (*mcpgo.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mcp: marshaling result: %w", err)
	}
	return mcpgo.NewToolResultText(string(b)), nil
}

// --- tool definitions ---

func buildClassifyTool() mcpgo.Tool {
	return mcpgo.NewTool("classify",
		mcpgo.WithDescription("Classify a text as an episodic or semantic memory without storing it. Returns category, confidence, feature counts, and applied rules."),
		mcpgo.WithString("text",
			mcpgo.Required(),
			mcpgo.Description("The text to classify"),
		),
		mcpgo.WithString("fact_type",
			mcpgo.Description("Hint: explicit fact type forcing semantic classification"),
		),
		mcpgo.WithString("conversation_id",
			mcpgo.Description("Hint: conversation the text came from"),
		),
		mcpgo.WithString("speaker",
			mcpgo.Description("Hint: who said the text"),
		),
	)
}

func buildRememberTool() mcpgo.Tool {
	return mcpgo.NewTool("remember",
		mcpgo.WithDescription("Classify, embed, and store a memory. The memory is routed to the episodic or semantic collection automatically unless category is given."),
		mcpgo.WithString("text",
			mcpgo.Required(),
			mcpgo.Description("The text content to remember"),
		),
		mcpgo.WithString("user_id",
			mcpgo.Required(),
			mcpgo.Description("The user the memory belongs to"),
		),
		mcpgo.WithString("category",
			mcpgo.Description("Force a collection: episodic or semantic (default: classify automatically)"),
		),
		mcpgo.WithString("source",
			mcpgo.Description("Where the memory came from"),
		),
		mcpgo.WithString("speaker",
			mcpgo.Description("Hint: who said the text"),
		),
		mcpgo.WithString("fact_type",
			mcpgo.Description("Hint: explicit fact type forcing semantic classification"),
		),
	)
}

func buildSearchTool() mcpgo.Tool {
	return mcpgo.NewTool("search",
		mcpgo.WithDescription("Weighted semantic search across episodic and semantic collections. Classifies the query first and biases weights toward the predicted category."),
		mcpgo.WithString("query",
			mcpgo.Required(),
			mcpgo.Description("The query to search for"),
		),
		mcpgo.WithString("user_id",
			mcpgo.Required(),
			mcpgo.Description("The user whose memories to search"),
		),
		mcpgo.WithNumber("limit",
			mcpgo.Description("Maximum number of results (default: 5)"),
		),
		mcpgo.WithBoolean("use_decay",
			mcpgo.Description("Blend time decay into ranking (default: false)"),
		),
	)
}

func buildForgetTool() mcpgo.Tool {
	return mcpgo.NewTool("forget",
		mcpgo.WithDescription("Delete all of a user's memories, optionally limited to one category."),
		mcpgo.WithString("user_id",
			mcpgo.Required(),
			mcpgo.Description("The user whose memories to delete"),
		),
		mcpgo.WithString("category",
			mcpgo.Description("Limit deletion to one collection: episodic or semantic"),
		),
	)
}

func buildStatsTool() mcpgo.Tool {
	return mcpgo.NewTool("stats",
		mcpgo.WithDescription("Get a user's memory counts per category and the episodic/semantic distribution."),
		mcpgo.WithString("user_id",
			mcpgo.Required(),
			mcpgo.Description("The user to report on"),
		),
	)
}

// --- tool handlers ---

func hintsFromRequest(req mcpgo.CallToolRequest) classifier.Hints {
	return classifier.Hints{
		FactType:       req.GetString("fact_type", ""),
		ConversationID: req.GetString("conversation_id", ""),
		Speaker:        req.GetString("speaker", ""),
	}
}

func (s *Server) handleClassify(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.svc == nil {
		return mcpgo.NewToolResultError("service is unavailable"), nil
	}

	text := req.GetString("text", "")
	if strings.TrimSpace(text) == "" {
		return mcpgo.NewToolResultError("text is required and must not be empty"), nil
	}

	result := s.svc.Classify(text, hintsFromRequest(req))
	return toolResultJSON(result)
}

func (s *Server) handleRemember(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.svc == nil {
		return mcpgo.NewToolResultError("service is unavailable"), nil
	}

	text := req.GetString("text", "")
	if strings.TrimSpace(text) == "" {
		return mcpgo.NewToolResultError("text is required and must not be empty"), nil
	}
	userID := req.GetString("user_id", "")
	if strings.TrimSpace(userID) == "" {
		return mcpgo.NewToolResultError("user_id is required and must not be empty"), nil
	}

	category := models.MemoryCategory(req.GetString("category", ""))
	if category != "" && !category.IsValid() {
		return mcpgo.NewToolResultErrorf("invalid category %q: must be episodic or semantic", category), nil
	}

	source := req.GetString("source", "")
	if source == "" {
		source = "mcp"
	}

	resp, err := s.svc.Remember(ctx, service.RememberRequest{
		Text:     text,
		UserID:   userID,
		Category: category,
		Source:   source,
		Hints:    hintsFromRequest(req),
	})
	if err != nil {
		return mcpgo.NewToolResultErrorf("remember failed: %s", err.Error()), nil
	}

	s.logger.Info("mcp: remember stored memory", "id", resp.ID, "category", resp.Category)
	return toolResultJSON(resp)
}

func (s *Server) handleSearch(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.svc == nil {
		return mcpgo.NewToolResultError("service is unavailable"), nil
	}

	query := req.GetString("query", "")
	if strings.TrimSpace(query) == "" {
		return mcpgo.NewToolResultError("query is required and must not be empty"), nil
	}
	userID := req.GetString("user_id", "")
	if strings.TrimSpace(userID) == "" {
		return mcpgo.NewToolResultError("user_id is required and must not be empty"), nil
	}

	limit := req.GetInt("limit", defaultSearchLimit)
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	res, classification, err := s.svc.SmartSearch(ctx, service.SearchRequest{
		Query:    query,
		UserID:   userID,
		Limit:    uint64(limit), //nolint:gosec // limit validated above
		UseDecay: req.GetBool("use_decay", false),
	})
	if err != nil {
		return mcpgo.NewToolResultErrorf("search failed: %s", err.Error()), nil
	}

	result := map[string]any{
		"hits":           res.Hits,
		"classification": classification,
	}
	if len(res.Failures) > 0 {
		var failed []string
		for _, f := range res.Failures {
			failed = append(failed, string(f.Collection))
		}
		result["failed_collections"] = failed
	}
	return toolResultJSON(result)
}

func (s *Server) handleForget(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.svc == nil {
		return mcpgo.NewToolResultError("service is unavailable"), nil
	}

	userID := req.GetString("user_id", "")
	if strings.TrimSpace(userID) == "" {
		return mcpgo.NewToolResultError("user_id is required and must not be empty"), nil
	}

	category := models.MemoryCategory(req.GetString("category", ""))
	if category != "" && !category.IsValid() {
		return mcpgo.NewToolResultErrorf("invalid category %q: must be episodic or semantic", category), nil
	}

	if err := s.svc.DeleteUserMemories(ctx, userID, category); err != nil {
		return mcpgo.NewToolResultErrorf("forget failed: %s", err.Error()), nil
	}

	s.logger.Info("mcp: forgot user memories", "user_id", userID, "category", category)
	return toolResultJSON(map[string]any{"deleted": true})
}

func (s *Server) handleStats(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.svc == nil {
		return mcpgo.NewToolResultError("service is unavailable"), nil
	}

	userID := req.GetString("user_id", "")
	if strings.TrimSpace(userID) == "" {
		return mcpgo.NewToolResultError("user_id is required and must not be empty"), nil
	}

	stats, err := s.svc.UserStats(ctx, userID)
	if err != nil {
		return mcpgo.NewToolResultErrorf("stats failed: %s", err.Error()), nil
	}
	return toolResultJSON(stats)
}
