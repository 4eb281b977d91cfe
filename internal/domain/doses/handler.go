package doses

import (
	"context"
	"net/http"
	"strings"
	"time"

	"care-connect/internal/domain/apperr"
	"care-connect/internal/platform/httpx"

	"github.com/go-chi/chi/v5"
)

// Access evita importar links (rompe ciclos).
type Access interface {
	CanView(ctx context.Context, callerID, patientID string) (bool, error)
}

func RegisterRoutes(r chi.Router, lc *Lifecycle, access Access) {
	r.Route("/doses", func(dr chi.Router) {
		dr.Get("/today", todayHandler(lc, access))
		dr.Get("/history", historyHandler(lc, access))

		dr.Get("/{doseID}", getDoseHandler(lc, access))
		dr.Patch("/{doseID}/take", takeDoseHandler(lc))
		dr.Patch("/{doseID}/miss", missDoseHandler(lc))
	})
}

type doseResponse struct {
	ID            string     `json:"id"`
	MedicationID  string     `json:"medicationId"`
	PatientID     string     `json:"patientId"`
	ScheduledTime time.Time  `json:"scheduledTime"`
	Status        Status     `json:"status" enums:"pending,taken,missed,skipped"`
	TakenAt       *time.Time `json:"takenAt,omitempty"`
}

type historyResponse struct {
	Doses      []doseResponse `json:"doses"`
	Pagination pagination     `json:"pagination"`
}

type pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// todayHandler godoc
// @Summary Dosis de hoy
// @Description Dosis del día (zona horaria de referencia). Un caretaker con link aceptado puede pasar patientId.
// @Tags doses
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev"
// @Param patientId query string false "Paciente (default: el usuario autenticado)"
// @Success 200 {array} doseResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Router /doses/today [get]
func todayHandler(lc *Lifecycle, access Access) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := targetPatient(r, access)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		items, err := lc.Today(r.Context(), patientID)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toDoseResponses(items))
	}
}

// historyHandler godoc
// @Summary Historial de dosis
// @Tags doses
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev"
// @Param patientId query string false "Paciente (default: el usuario autenticado)"
// @Param days query int false "Ventana en días" default(7)
// @Param page query int false "Página" default(1)
// @Param limit query int false "Tamaño de página" default(20)
// @Success 200 {object} historyResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Router /doses/history [get]
func historyHandler(lc *Lifecycle, access Access) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := targetPatient(r, access)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		p, err := lc.History(r.Context(), patientID,
			httpx.IntQuery(r, "days", defaultHistoryDays),
			httpx.IntQuery(r, "page", 1),
			httpx.IntQuery(r, "limit", defaultHistoryLimit),
		)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		httpx.WriteJSON(w, http.StatusOK, historyResponse{
			Doses: toDoseResponses(p.Items),
			Pagination: pagination{
				Page:  p.Page,
				Limit: p.Limit,
				Total: p.Total,
				Pages: p.Pages(),
			},
		})
	}
}

func getDoseHandler(lc *Lifecycle, access Access) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := lc.GetByID(r.Context(), chi.URLParam(r, "doseID"))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		ok, err := access.CanView(r.Context(), httpx.Caller(r), d.PatientID)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		if !ok {
			httpx.WriteError(w, apperr.Forbidden("not your dose"))
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toDoseResponse(d))
	}
}

// takeDoseHandler godoc
// @Summary Marcar dosis como tomada
// @Description Solo el paciente dueño y solo si la dosis sigue pending. No es idempotente.
// @Tags doses
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev"
// @Param doseID path string true "Dose ID"
// @Success 200 {object} doseResponse
// @Failure 403 {object} httpx.ErrorResponse "not your dose"
// @Failure 404 {object} httpx.ErrorResponse "dose not found"
// @Failure 409 {object} httpx.ErrorResponse "dose already recorded"
// @Router /doses/{doseID}/take [patch]
func takeDoseHandler(lc *Lifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := lc.MarkTaken(r.Context(), chi.URLParam(r, "doseID"), httpx.Caller(r))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toDoseResponse(d))
	}
}

// missDoseHandler godoc
// @Summary Marcar dosis como omitida
// @Tags doses
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev"
// @Param doseID path string true "Dose ID"
// @Success 200 {object} doseResponse
// @Failure 403 {object} httpx.ErrorResponse "not your dose"
// @Failure 404 {object} httpx.ErrorResponse "dose not found"
// @Failure 409 {object} httpx.ErrorResponse "dose already recorded"
// @Router /doses/{doseID}/miss [patch]
func missDoseHandler(lc *Lifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := lc.MarkMissed(r.Context(), chi.URLParam(r, "doseID"), httpx.Caller(r))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toDoseResponse(d))
	}
}

func targetPatient(r *http.Request, access Access) (string, error) {
	caller := httpx.Caller(r)
	patientID := strings.TrimSpace(r.URL.Query().Get("patientId"))
	if patientID == "" || patientID == caller {
		return caller, nil
	}
	ok, err := access.CanView(r.Context(), caller, patientID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", apperr.Forbidden("access denied to this patient")
	}
	return patientID, nil
}

func toDoseResponses(items []Dose) []doseResponse {
	out := make([]doseResponse, 0, len(items))
	for _, d := range items {
		out = append(out, toDoseResponse(d))
	}
	return out
}

func toDoseResponse(d Dose) doseResponse {
	return doseResponse{
		ID:            d.ID,
		MedicationID:  d.MedicationID,
		PatientID:     d.PatientID,
		ScheduledTime: d.ScheduledTime,
		Status:        d.Status,
		TakenAt:       d.TakenAt,
	}
}
