package http

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"pocketbook/internal/domain/report"
)

type ReportHandler struct {
	reports  *report.Service
	renderer report.Renderer
}

func NewReportHandler(reports *report.Service, renderer report.Renderer) *ReportHandler {
	return &ReportHandler{reports: reports, renderer: renderer}
}

// HandleMonthlyReport handles GET /api/reports/monthly
func (h *ReportHandler) HandleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	period, err := requiredPeriod(r, report.ErrPeriodRequired)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rep, err := h.reports.MonthlyReport(r.Context(), userID, period)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// Render fully before writing so a failure can still produce a JSON error.
	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, rep); err != nil {
		writeError(w, r, report.ErrRenderFailed.Wrap(err))
		return
	}

	w.Header().Set("Content-Type", h.renderer.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rep.Filename()))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.WarnContext(r.Context(), "failed to stream report", "user_id", userID, "error", err)
	}
}
