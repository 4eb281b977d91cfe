// Package httpx reúne los helpers de respuesta que antes estaban duplicados
// en cada handler (writeJSON) más el mapeo de errores de dominio a HTTP.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"care-connect/internal/domain/apperr"
	"care-connect/internal/middleware"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError traduce el kind del error a status + código estable.
func WriteError(w http.ResponseWriter, err error) {
	status, code := StatusOf(err)
	msg := apperr.MessageOf(err)
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	WriteJSON(w, status, ErrorResponse{Code: code, Message: msg})
}

func StatusOf(err error) (int, string) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperr.ErrInvalidState):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, apperr.ErrConfiguration):
		return http.StatusUnprocessableEntity, "configuration_error"
	case errors.Is(err, apperr.ErrAlreadyExists):
		return http.StatusConflict, "already_exists"
	case errors.Is(err, apperr.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func BadRequest(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusBadRequest, ErrorResponse{Code: "invalid_input", Message: msg})
}

// DecodeJSON decodifica el body rechazando campos desconocidos.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.InvalidInput("invalid json")
	}
	return nil
}

// Caller devuelve el user id autenticado. Las rutas protegidas pasan por
// middleware.RequireUser, así que acá siempre hay claims.
func Caller(r *http.Request) string {
	c, _ := middleware.GetClaims(r.Context())
	return strings.TrimSpace(c.UserID)
}

// IntQuery lee un entero positivo de la query; si falta o es inválido usa def.
func IntQuery(r *http.Request, key string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// StrictIntQuery es como IntQuery pero falla si el valor viene y no es un
// entero positivo.
func StrictIntQuery(r *http.Request, key string, def int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, apperr.Newf(apperr.ErrInvalidInput, "%s must be a positive integer", key)
	}
	return n, nil
}
