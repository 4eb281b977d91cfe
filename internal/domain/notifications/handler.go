package notifications

import (
	"net/http"
	"time"

	"care-connect/internal/platform/httpx"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/notifications", func(nr chi.Router) {
		nr.Get("/", listHandler(svc))
		nr.Get("/unread/count", unreadCountHandler(svc))
		nr.Patch("/read-all", markAllReadHandler(svc))
		nr.Patch("/{notificationID}/read", markReadHandler(svc))
	})
}

type notificationResponse struct {
	ID        string            `json:"id"`
	UserID    string            `json:"userId"`
	Type      Type              `json:"type"`
	Message   string            `json:"message"`
	IsRead    bool              `json:"isRead"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

type pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type listResponse struct {
	Notifications []notificationResponse `json:"notifications"`
	Pagination    pagination             `json:"pagination"`
}

// listHandler godoc
// @Summary Listar notificaciones
// @Tags notifications
// @Produce json
// @Param page query int false "Página (default 1)"
// @Param limit query int false "Tamaño de página (default 20, máx 100)"
// @Success 200 {object} listResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Router /notifications [get]
func listHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.List(r.Context(), httpx.Caller(r), httpx.IntQuery(r, "page", 1), httpx.IntQuery(r, "limit", defaultPageSize))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		out := listResponse{
			Notifications: make([]notificationResponse, 0, len(p.Items)),
			Pagination: pagination{
				Page:  p.Page,
				Limit: p.Limit,
				Total: p.Total,
				Pages: p.Pages(),
			},
		}
		for _, n := range p.Items {
			out.Notifications = append(out.Notifications, toResponse(n))
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}

func unreadCountHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := svc.UnreadCount(r.Context(), httpx.Caller(r))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]int{"count": n})
	}
}

func markReadHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := svc.MarkRead(r.Context(), chi.URLParam(r, "notificationID"), httpx.Caller(r))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toResponse(n))
	}
}

func markAllReadHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := svc.MarkAllRead(r.Context(), httpx.Caller(r))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]int{"updated": n})
	}
}

func toResponse(n Notification) notificationResponse {
	return notificationResponse{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      n.Type,
		Message:   n.Message,
		IsRead:    n.IsRead,
		Metadata:  n.Metadata,
		CreatedAt: n.CreatedAt,
	}
}
