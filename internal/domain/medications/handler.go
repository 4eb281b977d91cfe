package medications

import (
	"context"
	"net/http"
	"strings"
	"time"

	"care-connect/internal/domain/apperr"
	"care-connect/internal/domain/users"
	"care-connect/internal/platform/clock"
	"care-connect/internal/platform/httpx"
	"care-connect/internal/platform/logger"

	"github.com/go-chi/chi/v5"
)

// DoseScheduler materializa dosis por adelantado. Lo implementa doses.Generator;
// la interfaz vive acá para no importar doses.
type DoseScheduler interface {
	ScheduleAhead(ctx context.Context, medicationID string) (int, error)
}

// Access evita importar links (rompe ciclos).
type Access interface {
	CanView(ctx context.Context, callerID, patientID string) (bool, error)
}

type Deps struct {
	Service   *Service
	Users     *users.Service
	Access    Access
	Scheduler DoseScheduler
	Log       logger.Logger
}

func RegisterRoutes(r chi.Router, d Deps) {
	if d.Log == nil {
		d.Log = logger.Nop()
	}

	r.Get("/patients/{patientID}/medications", listPatientMedicationsHandler(d))

	r.Route("/medications", func(mr chi.Router) {
		mr.Post("/", createMedicationHandler(d))
		mr.Get("/", listMyMedicationsHandler(d))

		mr.Get("/{medicationID}", getMedicationHandler(d))
		mr.Patch("/{medicationID}", updateMedicationHandler(d))
		mr.Delete("/{medicationID}", retireMedicationHandler(d))
		mr.Post("/{medicationID}/doses/generate", generateDosesHandler(d))
	})
}

type createMedicationRequest struct {
	PatientID    string   `json:"patientId"`
	Name         string   `json:"name"`
	Dosage       string   `json:"dosage"`
	Frequency    string   `json:"frequency"`
	Timing       []string `json:"timing" example:"08:00,20:00"`
	Instructions string   `json:"instructions"`
	StartDate    string   `json:"startDate" example:"2026-01-15"`
	EndDate      string   `json:"endDate,omitempty"`
}

type updateMedicationRequest struct {
	Name         *string  `json:"name"`
	Dosage       *string  `json:"dosage"`
	Frequency    *string  `json:"frequency"`
	Timing       []string `json:"timing"`
	Instructions *string  `json:"instructions"`
	EndDate      *string  `json:"endDate"` // "" limpia la fecha de fin
}

type medicationResponse struct {
	ID           string    `json:"id"`
	PatientID    string    `json:"patientId"`
	CaretakerID  string    `json:"caretakerId"`
	Name         string    `json:"name"`
	Dosage       string    `json:"dosage"`
	Frequency    string    `json:"frequency"`
	Timing       []string  `json:"timing"`
	Instructions string    `json:"instructions,omitempty"`
	StartDate    string    `json:"startDate"`
	EndDate      *string   `json:"endDate,omitempty"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type generateResponse struct {
	MedicationID string `json:"medicationId"`
	Generated    int    `json:"generated"`
}

// createMedicationHandler godoc
// @Summary Prescribir medicación
// @Description El caretaker con link aceptado crea la medicación y se generan las dosis de los próximos días.
// @Tags medications
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev"
// @Param payload body createMedicationRequest true "Medicación"
// @Success 201 {object} medicationResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 403 {object} httpx.ErrorResponse "no accepted link with this patient"
// @Failure 422 {object} httpx.ErrorResponse "invalid timing"
// @Router /medications [post]
func createMedicationHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := httpx.Caller(r)
		if _, err := d.Users.RequireRole(r.Context(), caller, users.RoleCaretaker); err != nil {
			httpx.WriteError(w, err)
			return
		}

		var req createMedicationRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}
		start, err := d.Service.ParseDate(req.StartDate)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		end, err := d.Service.ParseDate(req.EndDate)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		m, err := d.Service.Create(r.Context(), caller, CreateInput{
			PatientID:    req.PatientID,
			Name:         req.Name,
			Dosage:       req.Dosage,
			Frequency:    req.Frequency,
			Timing:       req.Timing,
			Instructions: req.Instructions,
			StartDate:    start,
			EndDate:      end,
		})
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		// La medicación ya quedó creada: si falla la generación se loguea y el
		// cron la completa en la próxima corrida.
		if d.Scheduler != nil {
			if _, err := d.Scheduler.ScheduleAhead(r.Context(), m.ID); err != nil {
				d.Log.Warn("initial dose generation failed", map[string]any{"medication_id": m.ID, "err": err})
			}
		}

		httpx.WriteJSON(w, http.StatusCreated, toMedicationResponse(m))
	}
}

// listMyMedicationsHandler devuelve las medicaciones activas del paciente autenticado.
func listMyMedicationsHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := d.Service.ListByPatient(r.Context(), httpx.Caller(r))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toMedicationResponses(items))
	}
}

func listPatientMedicationsHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID := chi.URLParam(r, "patientID")
		if err := requireView(r, d.Access, patientID); err != nil {
			httpx.WriteError(w, err)
			return
		}

		items, err := d.Service.ListByPatient(r.Context(), patientID)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toMedicationResponses(items))
	}
}

func getMedicationHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := d.Service.GetByID(r.Context(), chi.URLParam(r, "medicationID"))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		if err := requireView(r, d.Access, m.PatientID); err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toMedicationResponse(m))
	}
}

// updateMedicationHandler godoc
// @Summary Actualizar medicación
// @Description Update parcial. Solo el caretaker que la prescribió. Las dosis ya generadas no cambian.
// @Tags medications
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev"
// @Param medicationID path string true "Medication ID"
// @Param payload body updateMedicationRequest true "Campos a cambiar"
// @Success 200 {object} medicationResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse "medication is retired"
// @Failure 422 {object} httpx.ErrorResponse "invalid timing"
// @Router /medications/{medicationID} [patch]
func updateMedicationHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateMedicationRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}

		in := UpdateInput{
			Name:         req.Name,
			Dosage:       req.Dosage,
			Frequency:    req.Frequency,
			Timing:       req.Timing,
			Instructions: req.Instructions,
		}
		if req.EndDate != nil {
			if strings.TrimSpace(*req.EndDate) == "" {
				in.ClearEndDate = true
			} else {
				end, err := d.Service.ParseDate(*req.EndDate)
				if err != nil {
					httpx.WriteError(w, err)
					return
				}
				in.EndDate = end
			}
		}

		m, err := d.Service.Update(r.Context(), chi.URLParam(r, "medicationID"), httpx.Caller(r), in)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toMedicationResponse(m))
	}
}

// retireMedicationHandler godoc
// @Summary Retirar medicación
// @Description Soft delete: la medicación queda inactiva y conserva su historial de dosis.
// @Tags medications
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev"
// @Param medicationID path string true "Medication ID"
// @Success 200 {object} medicationResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /medications/{medicationID} [delete]
func retireMedicationHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := d.Service.Retire(r.Context(), chi.URLParam(r, "medicationID"), httpx.Caller(r))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toMedicationResponse(m))
	}
}

// generateDosesHandler regenera (idempotente) las dosis de los próximos días.
func generateDosesHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := d.Service.GetByID(r.Context(), chi.URLParam(r, "medicationID"))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		if err := requireView(r, d.Access, m.PatientID); err != nil {
			httpx.WriteError(w, err)
			return
		}
		if d.Scheduler == nil {
			httpx.WriteError(w, apperr.New(apperr.ErrConfiguration, "dose generation is not configured"))
			return
		}

		n, err := d.Scheduler.ScheduleAhead(r.Context(), m.ID)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, generateResponse{MedicationID: m.ID, Generated: n})
	}
}

func requireView(r *http.Request, access Access, patientID string) error {
	ok, err := access.CanView(r.Context(), httpx.Caller(r), patientID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Forbidden("access denied to this patient")
	}
	return nil
}

func toMedicationResponses(items []Medication) []medicationResponse {
	out := make([]medicationResponse, 0, len(items))
	for _, m := range items {
		out = append(out, toMedicationResponse(m))
	}
	return out
}

func toMedicationResponse(m Medication) medicationResponse {
	out := medicationResponse{
		ID:           m.ID,
		PatientID:    m.PatientID,
		CaretakerID:  m.CaretakerID,
		Name:         m.Name,
		Dosage:       m.Dosage,
		Frequency:    m.Frequency,
		Timing:       m.Timing,
		Instructions: m.Instructions,
		StartDate:    m.StartDate.Format(clock.DateLayout),
		IsActive:     m.Active(),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if m.EndDate != nil {
		end := m.EndDate.Format(clock.DateLayout)
		out.EndDate = &end
	}
	return out
}
