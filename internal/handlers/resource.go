package handlers

import (
	"context"
	"net/http"

	"github.com/diewo77/recoup/httpx"
	"github.com/diewo77/recoup/internal/services"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Resource serves list, view, create, update and delete for one entity.
// Cost fields and counters the client sends are recomputed by the write
// hooks, so bodies can be the entity's JSON as returned by List.
type Resource[T any] struct {
	Entity string
	DB     *gorm.DB
	Store  *services.Store
	// Order is applied to List.
	Order []string
	// New returns a value carrying the entity's defaults.
	New func() *T
	// ID exposes the primary key so the path id always wins over the body.
	ID func(*T) *uint
	// Detail builds the View payload; nil returns the entity itself.
	Detail func(ctx context.Context, r *http.Request, v *T) (any, error)
}

func (h *Resource[T]) List(w http.ResponseWriter, r *http.Request) {
	items, err := services.List[T](r.Context(), h.DB, h.Order...)
	if err != nil {
		writeError(w, r, h.Entity, 0, err)
		return
	}
	httpx.List(w, items)
}

func (h *Resource[T]) View(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	v := h.New()
	if err := h.Store.Get(r.Context(), v, id); err != nil {
		writeError(w, r, h.Entity, id, err)
		return
	}
	h.respond(w, r, http.StatusOK, id, v)
}

func (h *Resource[T]) Create(w http.ResponseWriter, r *http.Request) {
	v := h.New()
	if err := httpx.DecodeJSON(r, v); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	*h.ID(v) = 0
	if err := h.Store.Save(r.Context(), v); err != nil {
		writeError(w, r, h.Entity, 0, err)
		return
	}
	id := *h.ID(v)
	zerolog.Ctx(r.Context()).Info().Str("entity", h.Entity).Uint("id", id).Msg("created")
	h.respond(w, r, http.StatusCreated, id, v)
}

// Update applies the body over the stored entity, so omitted fields keep
// their stored values.
func (h *Resource[T]) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	v := h.New()
	if err := h.Store.Get(r.Context(), v, id); err != nil {
		writeError(w, r, h.Entity, id, err)
		return
	}
	if err := httpx.DecodeJSON(r, v); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	*h.ID(v) = id
	if err := h.Store.Save(r.Context(), v); err != nil {
		writeError(w, r, h.Entity, id, err)
		return
	}
	zerolog.Ctx(r.Context()).Info().Str("entity", h.Entity).Uint("id", id).Msg("updated")
	h.respond(w, r, http.StatusOK, id, v)
}

func (h *Resource[T]) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Store.Delete(r.Context(), h.New(), id); err != nil {
		writeError(w, r, h.Entity, id, err)
		return
	}
	zerolog.Ctx(r.Context()).Info().Str("entity", h.Entity).Uint("id", id).Msg("deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Resource[T]) respond(w http.ResponseWriter, r *http.Request, status int, id uint, v *T) {
	if h.Detail == nil {
		httpx.JSON(w, status, v)
		return
	}
	payload, err := h.Detail(r.Context(), r, v)
	if err != nil {
		writeError(w, r, h.Entity, id, err)
		return
	}
	httpx.JSON(w, status, payload)
}
