package handlers

import (
	"net/http"

	"github.com/diewo77/recoup/httpx"
	"github.com/diewo77/recoup/internal/models"
	"github.com/diewo77/recoup/internal/services"
	"github.com/rs/zerolog"
)

// BillHandler serves the filtered bill list and the cascade recompute.
type BillHandler struct {
	bills *services.BillService
}

// List accepts year, active, allocation (0, lt_100, 100, gt_100) and q.
func (h *BillHandler) List(w http.ResponseWriter, r *http.Request) {
	yearID, ok := queryUint(w, r, "year")
	if !ok {
		return
	}
	active, ok := queryBool(w, r, "active")
	if !ok {
		return
	}
	rows, err := h.bills.List(r.Context(), services.BillFilter{
		YearID:     yearID,
		Active:     active,
		Allocation: models.AllocationFilter(r.URL.Query().Get("allocation")),
		Search:     r.URL.Query().Get("q"),
	})
	if err != nil {
		writeError(w, r, "bill", 0, err)
		return
	}
	httpx.List(w, rows)
}

// Recompute re-derives every cost item from its bill.
func (h *BillHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	n, err := h.bills.Recompute(r.Context())
	if err != nil {
		writeError(w, r, "bill", 0, err)
		return
	}
	zerolog.Ctx(r.Context()).Info().Int("bills", n).Msg("cost items recomputed")
	httpx.JSON(w, http.StatusOK, map[string]int{"bills": n})
}

// LinkHandler maintains the divisions consuming an end-user service.
type LinkHandler struct {
	divisions *services.DivisionService
}

type linkRequest struct {
	DivisionIDs []uint `json:"division_ids"`
}

func (h *LinkHandler) Replace(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req linkRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if err := h.divisions.LinkDivisions(r.Context(), id, req.DivisionIDs); err != nil {
		writeError(w, r, "end_user_service", id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
