package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaehoon-lim/mnemos/internal/embedder"
	"github.com/jaehoon-lim/mnemos/internal/models"
	"github.com/jaehoon-lim/mnemos/internal/service"
	"github.com/jaehoon-lim/mnemos/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newMCPServer returns a Server backed by a MockStore and mock embedder.
func newMCPServer(t *testing.T) (*Server, *store.MockStore) {
	t.Helper()
	ms := store.NewMockStore()
	svc := service.New(embedder.NewMockEmbedder(8), ms, service.Options{}, testLogger())
	return NewServer(svc, testLogger()), ms
}

// makeReq builds a CallToolRequest with the given arguments.
func makeReq(toolName string, args map[string]any) mcpgo.CallToolRequest {
	req := mcpgo.CallToolRequest{}
	req.Params.Name = toolName
	req.Params.Arguments = args
	return req
}

// textContent extracts the first TextContent string from a CallToolResult.
func textContent(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content, "expected at least one content item")
	tc, ok := result.Content[0].(mcpgo.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return tc.Text
}

func TestMCPClassify(t *testing.T) {
	srv, _ := newMCPServer(t)
	ctx := context.Background()

	result, err := srv.HandleClassify(ctx, makeReq("classify", map[string]any{
		"text": "오늘 기분이 좋아",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, "classify returned error: %s", textContent(t, result))

	var out models.ClassificationResult
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &out))
	assert.Equal(t, models.CategoryEpisodic, out.Category)
	assert.Greater(t, out.Confidence, 0.0)
}

func TestMCPClassify_FactTypeHint(t *testing.T) {
	srv, _ := newMCPServer(t)
	ctx := context.Background()

	result, err := srv.HandleClassify(ctx, makeReq("classify", map[string]any{
		"text":      "the quick brown fox jumps",
		"fact_type": "trivia",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out models.ClassificationResult
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &out))
	assert.Equal(t, models.CategorySemantic, out.Category)
	assert.GreaterOrEqual(t, out.Confidence, 0.95)
}

func TestMCPClassify_EmptyText(t *testing.T) {
	srv, _ := newMCPServer(t)

	result, err := srv.HandleClassify(context.Background(), makeReq("classify", map[string]any{
		"text": "   ",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError, "expected an error for empty text")
}

func TestMCPRemember_StoresMemory(t *testing.T) {
	srv, ms := newMCPServer(t)
	ctx := context.Background()

	result, err := srv.HandleRemember(ctx, makeReq("remember", map[string]any{
		"text":    "오늘 기분이 좋아",
		"user_id": "u1",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, "remember returned error: %s", textContent(t, result))

	var out service.RememberResponse
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &out))
	assert.NotEmpty(t, out.ID)
	assert.Equal(t, models.CategoryEpisodic, out.Category)

	n, err := ms.Count(ctx, "u1", models.CategoryEpisodic)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestMCPRemember_MissingArgs(t *testing.T) {
	srv, _ := newMCPServer(t)
	ctx := context.Background()

	result, err := srv.HandleRemember(ctx, makeReq("remember", map[string]any{
		"user_id": "u1",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError, "expected an error for missing text")

	result, err = srv.HandleRemember(ctx, makeReq("remember", map[string]any{
		"text": "hello",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError, "expected an error for missing user_id")

	result, err = srv.HandleRemember(ctx, makeReq("remember", map[string]any{
		"text": "hello", "user_id": "u1", "category": "procedural",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError, "expected an error for invalid category")
}

func TestMCPSearch_ReturnsHits(t *testing.T) {
	srv, _ := newMCPServer(t)
	ctx := context.Background()

	result, err := srv.HandleRemember(ctx, makeReq("remember", map[string]any{
		"text":    "오늘 기분이 좋아",
		"user_id": "u1",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	result, err = srv.HandleSearch(ctx, makeReq("search", map[string]any{
		"query":   "오늘 기분이 좋아",
		"user_id": "u1",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, "search returned error: %s", textContent(t, result))

	var out struct {
		Hits           []models.SearchHit           `json:"hits"`
		Classification *models.ClassificationResult `json:"classification"`
	}
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &out))
	require.Len(t, out.Hits, 1)
	assert.Equal(t, "오늘 기분이 좋아", out.Hits[0].Record.Text)
	require.NotNil(t, out.Classification)
	assert.Equal(t, models.CategoryEpisodic, out.Classification.Category)
}

func TestMCPSearch_ReportsFailedCollections(t *testing.T) {
	srv, ms := newMCPServer(t)
	ms.FailCategories[models.CategorySemantic] = true

	result, err := srv.HandleSearch(context.Background(), makeReq("search", map[string]any{
		"query":   "hello",
		"user_id": "u1",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out struct {
		Failed []string `json:"failed_collections"`
	}
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &out))
	assert.Equal(t, []string{string(models.CategorySemantic)}, out.Failed)
}

func TestMCPSearch_MissingQuery(t *testing.T) {
	srv, _ := newMCPServer(t)

	result, err := srv.HandleSearch(context.Background(), makeReq("search", map[string]any{
		"user_id": "u1",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestMCPForget(t *testing.T) {
	srv, ms := newMCPServer(t)
	ctx := context.Background()

	result, err := srv.HandleRemember(ctx, makeReq("remember", map[string]any{
		"text": "오늘 기분이 좋아", "user_id": "u1",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	result, err = srv.HandleForget(ctx, makeReq("forget", map[string]any{
		"user_id": "u1",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, "forget returned error: %s", textContent(t, result))

	n, err := ms.Count(ctx, "u1", models.CategoryEpisodic)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMCPForget_InvalidCategory(t *testing.T) {
	srv, _ := newMCPServer(t)

	result, err := srv.HandleForget(context.Background(), makeReq("forget", map[string]any{
		"user_id": "u1", "category": "procedural",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestMCPStats(t *testing.T) {
	srv, _ := newMCPServer(t)
	ctx := context.Background()

	result, err := srv.HandleRemember(ctx, makeReq("remember", map[string]any{
		"text": "오늘 기분이 좋아", "user_id": "u1", "category": "episodic",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	result, err = srv.HandleStats(ctx, makeReq("stats", map[string]any{
		"user_id": "u1",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, "stats returned error: %s", textContent(t, result))

	var out models.UserStats
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &out))
	assert.Equal(t, "u1", out.UserID)
	assert.EqualValues(t, 1, out.TotalMemories)
}

func TestMCPNilService(t *testing.T) {
	srv := NewServer(nil, testLogger())
	ctx := context.Background()

	handlers := map[string]func(context.Context, mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error){
		"classify": srv.HandleClassify,
		"remember": srv.HandleRemember,
		"search":   srv.HandleSearch,
		"forget":   srv.HandleForget,
		"stats":    srv.HandleStats,
	}
	for name, handler := range handlers {
		result, err := handler(ctx, makeReq(name, map[string]any{}))
		require.NoError(t, err, name)
		assert.True(t, result.IsError, "%s should fail with nil service", name)
	}
}
