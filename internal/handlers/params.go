package handlers

import (
	"net/http"
	"strconv"

	"github.com/diewo77/recoup/httpx"
)

// pathID parses the {id} path value, writing a 400 when it is not a
// positive integer.
func pathID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return 0, false
	}
	return uint(id), true
}

// queryUint parses an optional unsigned query parameter; zero when absent.
func queryUint(w http.ResponseWriter, r *http.Request, key string) (uint, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_"+key, nil)
		return 0, false
	}
	return uint(v), true
}

// queryBool parses an optional boolean query parameter; nil when absent.
func queryBool(w http.ResponseWriter, r *http.Request, key string) (*bool, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_"+key, nil)
		return nil, false
	}
	return &v, true
}
