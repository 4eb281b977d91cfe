package links

import (
	"net/http"
	"strings"
	"time"

	"care-connect/internal/domain/users"
	"care-connect/internal/platform/httpx"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, directory *users.Service) {
	r.Post("/links", requestLinkHandler(svc, directory))
	r.Get("/me/links", listMyLinksHandler(svc))

	r.Route("/links/{linkID}", func(lr chi.Router) {
		lr.Post("/accept", acceptLinkHandler(svc))
		lr.Post("/reject", rejectLinkHandler(svc))
		lr.Post("/revoke", revokeLinkHandler(svc))
	})
}

type requestLinkRequest struct {
	PatientID string `json:"patientId"`
}

type linkResponse struct {
	ID          string     `json:"id"`
	CaretakerID string     `json:"caretakerId"`
	PatientID   string     `json:"patientId"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	RespondedAt *time.Time `json:"respondedAt,omitempty"`
}

// requestLinkHandler godoc
// @Summary Solicitar vínculo con un paciente
// @Description El caretaker autenticado pide seguir el plan de medicación de un paciente. Si ya hay un vínculo abierto se devuelve ese.
// @Tags links
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev"
// @Param payload body requestLinkRequest true "Paciente"
// @Success 201 {object} linkResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse "patient not found"
// @Router /links [post]
func requestLinkHandler(svc *Service, directory *users.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := httpx.Caller(r)
		if _, err := directory.RequireRole(r.Context(), caller, users.RoleCaretaker); err != nil {
			httpx.WriteError(w, err)
			return
		}

		var req requestLinkRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}
		patientID := strings.TrimSpace(req.PatientID)
		if patientID == "" {
			httpx.BadRequest(w, "patientId required")
			return
		}
		if _, err := directory.GetPatient(r.Context(), patientID); err != nil {
			httpx.WriteError(w, err)
			return
		}

		l, err := svc.Request(r.Context(), caller, patientID)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, toLinkResponse(l))
	}
}

func listMyLinksHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.ListByUser(r.Context(), httpx.Caller(r))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		out := make([]linkResponse, 0, len(items))
		for _, l := range items {
			out = append(out, toLinkResponse(l))
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}

// acceptLinkHandler godoc
// @Summary Aceptar vínculo
// @Tags links
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev"
// @Param linkID path string true "Link ID"
// @Success 200 {object} linkResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse "link is rejected/revoked"
// @Router /links/{linkID}/accept [post]
func acceptLinkHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l, err := svc.Accept(r.Context(), chi.URLParam(r, "linkID"), httpx.Caller(r))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toLinkResponse(l))
	}
}

func rejectLinkHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l, err := svc.Reject(r.Context(), chi.URLParam(r, "linkID"), httpx.Caller(r))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toLinkResponse(l))
	}
}

func revokeLinkHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l, err := svc.Revoke(r.Context(), chi.URLParam(r, "linkID"), httpx.Caller(r))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toLinkResponse(l))
	}
}

func toLinkResponse(l Link) linkResponse {
	return linkResponse{
		ID:          l.ID,
		CaretakerID: l.CaretakerID,
		PatientID:   l.PatientID,
		Status:      l.Status,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
		RespondedAt: l.RespondedAt,
	}
}
