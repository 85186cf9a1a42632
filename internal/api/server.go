package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jaehoon-lim/mnemos/internal/classifier"
	"github.com/jaehoon-lim/mnemos/internal/models"
	"github.com/jaehoon-lim/mnemos/internal/retrieval"
	"github.com/jaehoon-lim/mnemos/internal/service"
	"github.com/jaehoon-lim/mnemos/internal/store"
)

// Server is an HTTP API server that exposes classification and memory
// operations.
type Server struct {
	svc       *service.Service
	logger    *slog.Logger
	authToken string // empty = no auth required
}

// NewServer creates a new Server over the given service.
func NewServer(svc *service.Service, logger *slog.Logger, authToken string) *Server {
	return &Server{
		svc:       svc,
		logger:    logger,
		authToken: authToken,
	}
}

// Handler returns an http.Handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check, no auth required.
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	mux.HandleFunc("POST /v1/classify", s.auth(s.handleClassify))
	mux.HandleFunc("POST /v1/classify/batch", s.auth(s.handleClassifyBatch))
	mux.HandleFunc("POST /v1/memories", s.auth(s.handleRemember))
	mux.HandleFunc("POST /v1/search", s.auth(s.handleSearch))
	mux.HandleFunc("POST /v1/search/smart", s.auth(s.handleSmartSearch))
	mux.HandleFunc("GET /v1/users/{user_id}/stats", s.auth(s.handleUserStats))
	mux.HandleFunc("DELETE /v1/users/{user_id}/memories", s.auth(s.handleForget))
	mux.HandleFunc("GET /v1/collections/{category}/stats", s.auth(s.handleCollectionStats))
	mux.HandleFunc("POST /v1/collections/{category}/reset", s.auth(s.handleCollectionReset))

	return mux
}

// --- middleware ---

// auth wraps a handler with Bearer token authentication when authToken is set.
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.authToken == "" {
			next(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

// --- handlers ---

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// classifyRequest is the body accepted by POST /v1/classify.
type classifyRequest struct {
	Text  string           `json:"text"`
	Hints classifier.Hints `json:"hints"`
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req classifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		s.writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	s.writeJSON(w, http.StatusOK, s.svc.Classify(req.Text, req.Hints))
}

// classifyBatchRequest is the body accepted by POST /v1/classify/batch.
type classifyBatchRequest struct {
	Texts []string         `json:"texts"`
	Hints classifier.Hints `json:"hints"`
}

type classifyBatchResponse struct {
	Results []models.ClassificationResult `json:"results"`
}

func (s *Server) handleClassifyBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 4<<20) // 4 MB limit for batches
	var req classifyBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Texts) == 0 {
		s.writeError(w, http.StatusBadRequest, "texts is required")
		return
	}

	s.writeJSON(w, http.StatusOK, classifyBatchResponse{
		Results: s.svc.BatchClassify(req.Texts, req.Hints),
	})
}

func (s *Server) handleRemember(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req service.RememberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		s.writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	if req.UserID == "" {
		s.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if req.Category != "" && !req.Category.IsValid() {
		s.writeError(w, http.StatusBadRequest, "invalid category")
		return
	}

	resp, err := s.svc.Remember(r.Context(), req)
	if err != nil {
		s.logger.Error("failed to store memory", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to store memory")
		return
	}

	s.writeJSON(w, http.StatusCreated, resp)
}

// failureInfo is the JSON shape of one failed collection in a search
// response.
type failureInfo struct {
	Collection models.MemoryCategory `json:"collection"`
	Error      string                `json:"error"`
}

type searchResponse struct {
	Hits           []models.SearchHit           `json:"hits"`
	Failures       []failureInfo                `json:"failures,omitempty"`
	Classification *models.ClassificationResult `json:"classification,omitempty"`
}

func toSearchResponse(res *retrieval.Result) searchResponse {
	resp := searchResponse{Hits: res.Hits}
	if resp.Hits == nil {
		resp.Hits = []models.SearchHit{}
	}
	for _, f := range res.Failures {
		resp.Failures = append(resp.Failures, failureInfo{Collection: f.Collection, Error: f.Err.Error()})
	}
	return resp
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeSearchRequest(w, r)
	if !ok {
		return
	}

	res, err := s.svc.Search(r.Context(), req)
	if err != nil {
		s.logger.Error("search failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	s.writeJSON(w, http.StatusOK, toSearchResponse(res))
}

func (s *Server) handleSmartSearch(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeSearchRequest(w, r)
	if !ok {
		return
	}

	res, classification, err := s.svc.SmartSearch(r.Context(), req)
	if err != nil {
		s.logger.Error("smart search failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	resp := toSearchResponse(res)
	resp.Classification = &classification
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) decodeSearchRequest(w http.ResponseWriter, r *http.Request) (service.SearchRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req service.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	if req.Query == "" {
		s.writeError(w, http.StatusBadRequest, "query is required")
		return req, false
	}
	if req.UserID == "" {
		s.writeError(w, http.StatusBadRequest, "user_id is required")
		return req, false
	}
	for _, c := range req.Collections {
		if !c.IsValid() {
			s.writeError(w, http.StatusBadRequest, "invalid collection")
			return req, false
		}
	}
	return req, true
}

func (s *Server) handleUserStats(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if userID == "" {
		s.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	stats, err := s.svc.UserStats(r.Context(), userID)
	if err != nil {
		s.logger.Error("failed to get user stats", "user_id", userID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleForget(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if userID == "" {
		s.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	category := models.MemoryCategory(r.URL.Query().Get("category"))
	if category != "" && !category.IsValid() {
		s.writeError(w, http.StatusBadRequest, "invalid category")
		return
	}

	if err := s.svc.DeleteUserMemories(r.Context(), userID, category); err != nil {
		s.logger.Error("failed to delete user memories", "user_id", userID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to delete memories")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleCollectionStats(w http.ResponseWriter, r *http.Request) {
	category := models.MemoryCategory(r.PathValue("category"))
	if !category.IsValid() {
		s.writeError(w, http.StatusBadRequest, "invalid category")
		return
	}

	stats, err := s.svc.CollectionStats(r.Context(), category)
	if err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			s.writeError(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
		s.logger.Error("failed to get collection stats", "category", category, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleCollectionReset(w http.ResponseWriter, r *http.Request) {
	category := models.MemoryCategory(r.PathValue("category"))
	if !category.IsValid() {
		s.writeError(w, http.StatusBadRequest, "invalid category")
		return
	}

	if err := s.svc.ResetCollection(r.Context(), category); err != nil {
		s.logger.Error("failed to reset collection", "category", category, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to reset collection")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]bool{"reset": true})
}

// --- helpers ---

// writeJSON encodes v as JSON and writes it to w with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(v); encErr != nil {
		s.logger.Error("failed to encode response", "error", encErr)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// Shutdown gracefully shuts down an http.Server with the given timeout.
// This is a convenience helper used by the serve command.
func Shutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
