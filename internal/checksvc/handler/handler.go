// Package handler serves the checker service over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checksvc"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/report"
	apperrors "github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/proto"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/tracing"
)

type Handler struct {
	svc          *checksvc.Service
	maxBodyBytes int64
	logger       *slog.Logger
}

func New(svc *checksvc.Service, maxBodyBytes int64) *Handler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = 4 << 20
	}
	return &Handler{
		svc:          svc,
		maxBodyBytes: maxBodyBytes,
		logger:       slog.Default().With("component", "check-handler"),
	}
}

// Check handles POST /api/v1/check. The report is JSON unless the format
// query parameter asks for xml or text.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.StartSpan(r.Context(), "http.check")
	var err error
	defer func() {
		span.End(err)
		span.Log(ctx, h.logger)
	}()

	format := report.FormatJSON
	if f := r.URL.Query().Get("format"); f != "" {
		if format, err = report.ParseFormat(f); err != nil {
			h.writeError(w, r, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, err.Error()))
			return
		}
	}

	var req proto.CheckRequest
	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err = dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, r, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusRequestEntityTooLarge,
				"request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		h.writeError(w, r, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "invalid request body: %v", err))
		return
	}

	res, err := h.svc.Check(ctx, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	span.SetAttr("errors", res.Report.Summary.Errors)
	span.SetAttr("warnings", res.Report.Summary.Warnings)

	switch format {
	case report.FormatJSON:
		h.writeJSON(w, http.StatusOK, res.Proto())
	case report.FormatXML:
		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
		h.writeReport(w, res.Report, format)
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		h.writeReport(w, res.Report, format)
	}
}

// RuleSet handles GET /api/v1/rules.
func (h *Handler) RuleSet(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.svc.RuleSet())
}

// Reload handles POST /api/v1/rules/reload.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	rs, err := h.svc.Reload(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("rules reloaded", "version", rs.Version, "rules", rs.Rules)
	h.writeJSON(w, http.StatusOK, rs)
}

// ListReports handles GET /api/v1/reports?limit=&offset=.
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	var page proto.Pagination
	for name, dst := range map[string]*int32{"limit": &page.Limit, "offset": &page.Offset} {
		v := r.URL.Query().Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n < 0 {
			h.writeError(w, r, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "%s must be a non-negative integer", name))
			return
		}
		*dst = int32(n)
	}
	resp, err := h.svc.ListReports(r.Context(), page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// GetReport handles GET /api/v1/reports/{id}.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, r, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "report id must be a positive integer"))
		return
	}
	resp, err := h.svc.GetReport(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// CacheInvalidate handles POST /api/v1/cache/invalidate.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.InvalidateCache(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": n})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeReport(w http.ResponseWriter, rep report.Report, f report.Format) {
	w.WriteHeader(http.StatusOK)
	if err := rep.Write(w, f, false); err != nil {
		h.logger.Error("failed to write report", "format", f, "error", err)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
		if status == http.StatusInternalServerError {
			message = "internal error"
		}
	} else {
		log.Warn("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	h.writeJSON(w, status, map[string]string{"error": message})
}
