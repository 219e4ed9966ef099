package handlers

import (
	"errors"
	"net/http"

	"github.com/diewo77/recoup/httpx"
	"github.com/diewo77/recoup/internal/models"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// writeError maps domain errors to HTTP statuses. Only unexpected errors
// are logged at error level; rejected writes are logged as warnings.
func writeError(w http.ResponseWriter, r *http.Request, entity string, id uint, err error) {
	log := zerolog.Ctx(r.Context())
	var ve *models.ValidationError
	var pe *models.ProtectedError
	var zu *models.ZeroUsersError
	switch {
	case errors.As(err, &ve):
		log.Warn().Str("entity", entity).Uint("id", id).Str("violations", ve.Violations.String()).Msg("write rejected")
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed", ve.Violations)
	case errors.As(err, &pe):
		log.Warn().Str("entity", entity).Uint("id", id).Str("dependent", pe.Dependent).Msg("delete rejected")
		httpx.JSONError(w, http.StatusConflict, "protected", map[string]any{
			"dependent": pe.Dependent,
			"count":     pe.Count,
		})
	case errors.As(err, &zu):
		httpx.JSONError(w, http.StatusUnprocessableEntity, "division_by_zero", map[string]any{
			"service_id":   zu.ServiceID,
			"service_name": zu.ServiceName,
		})
	case errors.Is(err, models.ErrDivisionByZero):
		httpx.JSONError(w, http.StatusUnprocessableEntity, "division_by_zero", nil)
	case errors.Is(err, gorm.ErrRecordNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	case errors.Is(err, models.ErrNoFinancialYear):
		httpx.JSONError(w, http.StatusNotFound, "no_financial_year", nil)
	default:
		log.Error().Err(err).Str("entity", entity).Uint("id", id).Msg("request failed")
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}
