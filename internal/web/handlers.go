package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/shopspring/decimal"

	"procurement-audit/internal/audit"
	"procurement-audit/internal/report"
	"procurement-audit/internal/session"
)

type sessionKey struct{}

// withSession resolves the session cookie, creating a session when needed.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(s.cfg.Session.CookieName); err == nil {
			id = c.Value
		}

		rec, err := s.svc.OpenSession(id)
		if err != nil {
			http.Error(w, "session unavailable", http.StatusInternalServerError)
			return
		}
		if rec.ID != id {
			http.SetCookie(w, &http.Cookie{
				Name:     s.cfg.Session.CookieName,
				Value:    rec.ID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, rec.ID)))
	})
}

func sessionID(r *http.Request) string {
	id, _ := r.Context().Value(sessionKey{}).(string)
	return id
}

type roleField struct {
	Name     string
	Label    string
	Selected string
}

type slider struct {
	Min, Max, Step float64
	Value          string
}

type pageData struct {
	Title        string
	Session      session.Record
	Columns      []string
	Roles        []roleField
	Slider       slider
	Result       *audit.Result
	Error        string
	Warning      string
	ExportName   string
	ChartVersion int64
}

var roleLabels = map[audit.Role]string{
	audit.RoleItem:          "Item / description",
	audit.RoleVendor:        "Vendor",
	audit.RolePricePaid:     "Price paid",
	audit.RoleStandardPrice: "Standard / market price",
}

func (s *Server) page(rec session.Record) pageData {
	data := pageData{
		Title:      "Procurement Price Audit",
		Session:    rec,
		ExportName: s.cfg.Export.FileName,
		Slider: slider{
			Min:   s.cfg.Audit.MinSensitivity,
			Max:   s.cfg.Audit.MaxSensitivity,
			Step:  s.cfg.Audit.SensitivityStep,
			Value: s.cfg.ClampSensitivity(rec.Sensitivity).String(),
		},
	}
	if rec.Dataset != nil {
		data.Columns = rec.Dataset.Columns
		for _, role := range audit.Roles() {
			data.Roles = append(data.Roles, roleField{
				Name:     string(role),
				Label:    roleLabels[role],
				Selected: rec.Mapping.Column(role),
			})
		}
	}
	if rec.Result != nil {
		if rec.Result.Empty() {
			data.Warning = report.EmptyMessage
		} else {
			data.Result = rec.Result
			data.ChartVersion = rec.UpdatedAt.UnixNano()
		}
	}
	return data
}

func (s *Server) render(w http.ResponseWriter, status int, data pageData) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "index.html", data); err != nil {
		s.logger.Error().Err(err).Msg("render template")
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderError shows the session as it was before the failed action, with
// the error message and without any result.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, err error) {
	rec, getErr := s.svc.OpenSession(sessionID(r))
	if getErr != nil {
		http.Error(w, err.Error(), status)
		return
	}
	data := s.page(rec)
	data.Result = nil
	data.Warning = ""
	data.Error = userMessage(err)
	s.render(w, status, data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, successResponse("ok", nil))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	rec, err := s.svc.OpenSession(sessionID(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.render(w, http.StatusOK, s.page(rec))
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.renderError(w, r, http.StatusBadRequest, fmt.Errorf("no file received: %w", err))
		return
	}
	defer file.Close()

	rec, err := s.svc.Upload(sessionID(r), header.Filename, file)
	if err != nil {
		s.renderError(w, r, http.StatusUnprocessableEntity, err)
		return
	}
	s.render(w, http.StatusOK, s.page(rec))
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, err)
		return
	}

	mapping := mappingFromForm(r)
	sensitivity := s.sensitivityFromForm(r)

	rec, err := s.svc.Audit(r.Context(), sessionID(r), mapping, sensitivity)
	if err != nil {
		status := http.StatusUnprocessableEntity
		switch {
		case errors.Is(err, session.ErrNoDataset):
			status = http.StatusBadRequest
		case errors.Is(err, session.ErrStaleDataset):
			status = http.StatusConflict
		}
		s.renderError(w, r, status, err)
		return
	}
	s.render(w, http.StatusOK, s.page(rec))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if _, err := s.svc.Reset(sessionID(r)); err != nil {
		s.renderError(w, r, http.StatusInternalServerError, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) currentResult(r *http.Request) (*audit.Result, bool) {
	rec, err := s.svc.OpenSession(sessionID(r))
	if err != nil || rec.Result == nil || rec.Result.Empty() {
		return nil, false
	}
	return rec.Result, true
}

func (s *Server) handleReportCSV(w http.ResponseWriter, r *http.Request) {
	res, ok := s.currentResult(r)
	if !ok {
		http.Error(w, "no audit result to export", http.StatusNotFound)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, res.Records); err != nil {
		s.logger.Error().Err(err).Msg("write csv export")
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.cfg.Export.FileName))
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	res, ok := s.currentResult(r)
	if !ok {
		http.Error(w, "no audit result to plot", http.StatusNotFound)
		return
	}

	var buf bytes.Buffer
	opts := report.ChartOptions{Width: s.cfg.Export.ChartWidth, Height: s.cfg.Export.ChartHeight}
	if err := report.WriteChartPNG(&buf, *res, opts); err != nil {
		s.logger.Error().Err(err).Msg("render chart")
		http.Error(w, "chart failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

func mappingFromForm(r *http.Request) audit.ColumnMapping {
	return audit.ColumnMapping{
		Item:          strings.TrimSpace(r.FormValue(string(audit.RoleItem))),
		Vendor:        strings.TrimSpace(r.FormValue(string(audit.RoleVendor))),
		PricePaid:     strings.TrimSpace(r.FormValue(string(audit.RolePricePaid))),
		StandardPrice: strings.TrimSpace(r.FormValue(string(audit.RoleStandardPrice))),
	}
}

func (s *Server) sensitivityFromForm(r *http.Request) decimal.Decimal {
	v, ok := audit.ParsePrice(r.FormValue("sensitivity"))
	if !ok {
		return s.cfg.DefaultSensitivity()
	}
	return s.cfg.ClampSensitivity(v)
}

func userMessage(err error) string {
	var mapErr *audit.ColumnMappingError
	switch {
	case errors.As(err, &mapErr):
		if mapErr.Column == "" {
			return fmt.Sprintf("Please choose a column for %s.", roleLabels[mapErr.Role])
		}
		return fmt.Sprintf("The column %q selected for %s does not exist in the uploaded file.", mapErr.Column, roleLabels[mapErr.Role])
	case errors.Is(err, session.ErrNoDataset):
		return "Upload a file before running the audit."
	case errors.Is(err, session.ErrStaleDataset):
		return "A new file was uploaded while the audit was running. Please run the audit again."
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Sprintf("The file is larger than the %d byte upload limit.", tooLarge.Limit)
		}
		return err.Error()
	}
}
