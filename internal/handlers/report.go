package handlers

import (
	"fmt"
	"net/http"

	"github.com/diewo77/recoup/httpx"
	"github.com/diewo77/recoup/internal/report"
	"github.com/diewo77/recoup/internal/services"
)

// ReportHandler serves a division's bill as JSON, xlsx or pdf.
type ReportHandler struct {
	views   *views
	reports *services.ReportService
}

const xlsxType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// DivisionBill handles GET /bill?division=<id>[&format=xlsx|pdf][&year=<id>].
func (h *ReportHandler) DivisionBill(w http.ResponseWriter, r *http.Request) {
	divisionID, ok := queryUint(w, r, "division")
	if !ok {
		return
	}
	if divisionID == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "division_required", nil)
		return
	}
	year, err := h.views.referenceYear(r.Context(), r)
	if err != nil {
		writeError(w, r, "financial_year", 0, err)
		return
	}
	bill, err := h.reports.DivisionBill(r.Context(), divisionID, year)
	if err != nil {
		writeError(w, r, "division", divisionID, err)
		return
	}

	var (
		data        []byte
		contentType string
		ext         string
	)
	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		httpx.JSON(w, http.StatusOK, bill)
		return
	case "xlsx":
		data, err = report.XLSX(bill)
		contentType, ext = xlsxType, "xlsx"
	case "pdf":
		data, err = report.PDF(bill)
		contentType, ext = "application/pdf", "pdf"
	default:
		httpx.JSONError(w, http.StatusBadRequest, "unknown_format", format)
		return
	}
	if err != nil {
		writeError(w, r, "division", divisionID, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", bill.Filename(ext)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
