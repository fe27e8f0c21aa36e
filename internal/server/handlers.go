package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/labelworks/doclabel/internal/common"
	"github.com/labelworks/doclabel/internal/entity"
	"github.com/labelworks/doclabel/internal/review"
)

// Uploads above this size are rejected while parsing the multipart form.
const maxUploadBytes = 32 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.ping != nil {
		if err := s.ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.review.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, common.Validationf("invalid multipart form: %v", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, common.Validation("multipart field \"file\" is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, common.Validationf("read upload: %v", err))
		return
	}

	rec, err := s.ingest.Ingest(r.Context(), data, header.Filename)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	id, err := fileID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	rec, err := s.review.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handlePatchKeyValuePairs(w http.ResponseWriter, r *http.Request) {
	id, err := fileID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
	if err != nil {
		s.writeError(w, common.Validationf("read body: %v", err))
		return
	}
	if err := review.ValidateEditPayload(review.KeyValuePairsSchema(), body); err != nil {
		s.writeError(w, err)
		return
	}
	var pairs []entity.KeyValuePair
	if err := json.Unmarshal(body, &pairs); err != nil {
		s.writeError(w, common.Validationf("decode key-value pairs: %v", err))
		return
	}

	rec, err := s.review.UpdateKeyValuePairs(r.Context(), id, pairs)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handlePatchTables(w http.ResponseWriter, r *http.Request) {
	id, err := fileID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
	if err != nil {
		s.writeError(w, common.Validationf("read body: %v", err))
		return
	}
	if err := review.ValidateEditPayload(review.TablesSchema(), body); err != nil {
		s.writeError(w, err)
		return
	}
	var tables []entity.Table
	if err := json.Unmarshal(body, &tables); err != nil {
		s.writeError(w, common.Validationf("decode tables: %v", err))
		return
	}

	rec, err := s.review.UpdateTables(r.Context(), id, tables)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	id, err := fileID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	rec, err := s.review.Approve(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id, err := fileID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	data, err := s.export.ExportXLSX(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id.String()+"-annotations.xlsx"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// fileID parses the path id. A malformed id can never resolve to a record,
// so it reports not-found rather than a validation error.
func fileID(r *http.Request) (uuid.UUID, error) {
	raw := mux.Vars(r)["fileId"]
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, common.NotFound("document " + raw + " not found")
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, common.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrUpstream):
		status = http.StatusBadGateway
	default:
		status = http.StatusInternalServerError
	}

	msg := "internal error"
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	if status >= 500 {
		s.logger.Error("http.request_failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}
