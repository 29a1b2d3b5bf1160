package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/shopspring/decimal"

	"procurement-audit/internal/audit"
	"procurement-audit/internal/report"
)

// APIResponse is the JSON envelope for every /api reply. Status is 0 on success.
type APIResponse struct {
	Status int    `json:"status"`
	Msg    string `json:"msg"`
	Data   any    `json:"data,omitempty"`
}

// SessionView is the JSON shape of the caller's dashboard session.
type SessionView struct {
	ID          string              `json:"id"`
	FileName    string              `json:"file_name,omitempty"`
	Columns     []string            `json:"columns,omitempty"`
	Rows        int                 `json:"rows"`
	Mapping     audit.ColumnMapping `json:"mapping"`
	Sensitivity decimal.Decimal     `json:"sensitivity"`
	Result      *audit.Result       `json:"result,omitempty"`
}

func successResponse(msg string, data any) APIResponse {
	return APIResponse{Status: 0, Msg: msg, Data: data}
}

func errorResponse(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, APIResponse{Status: status, Msg: msg})
}

// handleAPIAudit audits a multipart upload in one request without touching
// session state. Mapping fields are optional and default to the guessed mapping.
func (s *Server) handleAPIAudit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		errorResponse(w, r, http.StatusBadRequest, userMessage(fmt.Errorf("no file received: %w", err)))
		return
	}
	defer file.Close()

	ds, err := s.svc.Ingest(header.Filename, file)
	if err != nil {
		errorResponse(w, r, http.StatusUnprocessableEntity, userMessage(err))
		return
	}

	mapping := audit.GuessMapping(ds.Columns).Override(mappingFromForm(r))

	sensitivity := s.cfg.DefaultSensitivity()
	if raw := strings.TrimSpace(r.FormValue("sensitivity")); raw != "" {
		v, ok := audit.ParsePrice(raw)
		if !ok || !v.IsPositive() {
			errorResponse(w, r, http.StatusBadRequest, fmt.Sprintf("sensitivity %q must be a positive number", raw))
			return
		}
		sensitivity = v
	}

	res, err := s.svc.RunAudit(r.Context(), header.Filename, ds, mapping, sensitivity)
	if err != nil {
		var mapErr *audit.ColumnMappingError
		if errors.As(err, &mapErr) {
			errorResponse(w, r, http.StatusUnprocessableEntity, userMessage(err))
			return
		}
		errorResponse(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	msg := "audit completed"
	if res.Empty() {
		msg = report.EmptyMessage
	}
	render.JSON(w, r, successResponse(msg, res))
}

func (s *Server) handleAPISession(w http.ResponseWriter, r *http.Request) {
	rec, err := s.svc.OpenSession(sessionID(r))
	if err != nil {
		errorResponse(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	view := SessionView{
		ID:          rec.ID,
		FileName:    rec.FileName,
		Mapping:     rec.Mapping,
		Sensitivity: rec.Sensitivity,
		Result:      rec.Result,
	}
	if rec.Dataset != nil {
		view.Columns = rec.Dataset.Columns
		view.Rows = rec.Dataset.Len()
	}
	render.JSON(w, r, successResponse("ok", view))
}
