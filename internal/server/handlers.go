package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/pkg/utils"
	"go.uber.org/zap"
)

const (
	banner              = "Question Answering API - Kotae"
	msgInvalidFormat    = "Invalid input format. Expected JSON object."
	msgInitialized      = "Database initialized successfully."
	maxRequestBodyBytes = 1 << 20
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, banner)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, msgInvalidFormat)
		return
	}
	var req models.AskRequest
	if trimmed := bytes.TrimSpace(body); len(trimmed) == 0 || trimmed[0] != '{' || json.Unmarshal(trimmed, &req) != nil {
		s.respondError(w, http.StatusBadRequest, msgInvalidFormat)
		return
	}
	if err := req.Validate(); err != nil {
		var fe *models.FieldError
		if errors.As(err, &fe) {
			s.respondError(w, http.StatusBadRequest, fe.Message())
			return
		}
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.Debug("ask request",
		zap.String("user_name", req.UserName),
		zap.String("question", utils.Truncate(req.Question, 80)))
	answer, err := s.answerer.Generate(r.Context(), req.Question)
	if err != nil {
		s.logger.Error("answer failed", zap.Error(err))
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.AskResponse{Answer: answer.Text()})
}

func (s *Server) handleInitDB(w http.ResponseWriter, r *http.Request) {
	path := s.config.Document.Path
	s.logger.Debug("init_db request", zap.String("path", path))
	res, err := s.ingester.Ingest(r.Context(), path)
	if err != nil {
		s.logger.Error("ingestion failed", zap.Error(err))
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.IngestResponse{
		Message:    msgInitialized,
		DocumentID: res.DocumentID,
		Chunks:     res.Chunks,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.catalog.Stats(r.Context())
	if err != nil {
		s.logger.Error("status failed", zap.Error(err))
		s.respondFailure(w, err)
		return
	}

	if n, err := storage.Footprint(s.config.Storage.DatabasePath, keywordPath(s.config)); err == nil {
		status.DiskUsageBytes = n
	} else {
		s.logger.Warn("disk usage unavailable", zap.Error(err))
	}

	s.respondJSON(w, http.StatusOK, models.StatusReport{
		Status: status,
		Config: map[string]interface{}{
			"document_path":        s.config.Document.Path,
			"database_path":        s.config.Storage.DatabasePath,
			"keyword_index_path":   s.config.Storage.KeywordIndexPath,
			"embedding_provider":   s.config.Embedding.Provider,
			"embedding_dimensions": s.config.Embedding.Dimensions,
			"generation_provider":  s.config.Generation.Provider,
			"generation_model":     s.config.Generation.Model,
			"chunk_size":           s.config.Chunking.ChunkSize,
			"chunk_overlap":        s.config.Chunking.ChunkOverlap,
			"top_k":                s.config.Generation.TopK,
		},
	})
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := &models.LookupQuery{Query: params.Get("q")}
	if v := params.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		q.Limit = limit
	}
	fuzziness := 0
	if v := params.Get("fuzzy"); v != "" {
		f, err := strconv.Atoi(v)
		if err != nil || f < 0 || f > 2 {
			s.respondError(w, http.StatusBadRequest, "fuzzy must be 0, 1 or 2")
			return
		}
		fuzziness = f
	}

	res, err := s.catalog.Lookup(r.Context(), q, fuzziness)
	if err != nil {
		s.logger.Error("lookup failed", zap.Error(err))
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func keywordPath(cfg *config.Config) string {
	if cfg.Storage.KeywordEnabled() {
		return cfg.Storage.KeywordIndexPath
	}
	return ""
}

// respondFailure maps invalid input to 400, a disabled lookup to 503 and
// everything else to 500.
func (s *Server) respondFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, models.ErrLookupDisabled):
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.respondError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
