package users

import (
	"context"
	"net/http"
	"time"

	"care-connect/internal/domain/apperr"
	"care-connect/internal/platform/httpx"

	"github.com/go-chi/chi/v5"
)

// PatientAccess evita importar links (rompe ciclos).
type PatientAccess interface {
	CanView(ctx context.Context, callerID, patientID string) (bool, error)
	PatientsOf(ctx context.Context, caretakerID string) ([]string, error)
}

func RegisterRoutes(r chi.Router, svc *Service, access PatientAccess) {
	r.Post("/users", registerHandler(svc))
	r.Get("/me", meHandler(svc))

	// Sin r.Route: medications cuelga /patients/{patientID}/medications del mismo árbol.
	r.Get("/patients", listMyPatientsHandler(svc, access))
	r.Get("/patients/{patientID}", getPatientHandler(svc, access))
}

type registerRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   Role   `json:"role" enums:"patient,caretaker,donor"`
	Phone  string `json:"phone"`
	Age    *int   `json:"age"`
	Gender string `json:"gender"`

	PushoverKey string `json:"pushoverKey"`
}

type userResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Role          Role      `json:"role"`
	Phone         string    `json:"phone,omitempty"`
	Age           *int      `json:"age,omitempty"`
	Gender        string    `json:"gender,omitempty"`
	Status        Status    `json:"status"`
	AdherenceRate *int      `json:"adherenceRate,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// registerHandler godoc
// @Summary Registrar perfil
// @Description Crea el perfil local del usuario autenticado (rol patient, caretaker o donor).
// @Tags users
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev"
// @Param payload body registerRequest true "Perfil"
// @Success 201 {object} userResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse "profile already registered"
// @Router /users [post]
func registerHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}

		u, err := svc.Register(r.Context(), httpx.Caller(r), RegisterInput{
			Name:   req.Name,
			Email:  req.Email,
			Role:   req.Role,
			Phone:  req.Phone,
			Age:    req.Age,
			Gender: req.Gender,

			PushoverKey: req.PushoverKey,
		})
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, toUserResponse(u))
	}
}

func meHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := svc.GetByID(r.Context(), httpx.Caller(r))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
	}
}

// listMyPatientsHandler devuelve los pacientes con link aceptado del caretaker.
func listMyPatientsHandler(svc *Service, access PatientAccess) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := httpx.Caller(r)
		if _, err := svc.RequireRole(r.Context(), caller, RoleCaretaker); err != nil {
			httpx.WriteError(w, err)
			return
		}

		ids, err := access.PatientsOf(r.Context(), caller)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		items, err := svc.ListByIDs(r.Context(), ids)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		out := make([]userResponse, 0, len(items))
		for _, u := range items {
			if u.Role != RolePatient {
				continue
			}
			out = append(out, toUserResponse(u))
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}

func getPatientHandler(svc *Service, access PatientAccess) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID := chi.URLParam(r, "patientID")

		p, err := svc.GetPatient(r.Context(), patientID)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		ok, err := access.CanView(r.Context(), httpx.Caller(r), p.ID)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		if !ok {
			httpx.WriteError(w, apperr.Forbidden("access denied to this patient"))
			return
		}

		httpx.WriteJSON(w, http.StatusOK, toUserResponse(p))
	}
}

func toUserResponse(u User) userResponse {
	out := userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		Phone:     u.Phone,
		Age:       u.Age,
		Gender:    u.Gender,
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
	}
	if u.Role == RolePatient {
		rate := u.AdherenceRate
		out.AdherenceRate = &rate
	}
	return out
}
