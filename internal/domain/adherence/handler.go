package adherence

import (
	"context"
	"net/http"

	"care-connect/internal/domain/apperr"
	"care-connect/internal/platform/httpx"

	"github.com/go-chi/chi/v5"
)

// Access evita importar links (rompe ciclos).
type Access interface {
	CanView(ctx context.Context, callerID, patientID string) (bool, error)
}

func RegisterRoutes(r chi.Router, svc *Service, access Access, defaultDays int) {
	if defaultDays <= 0 {
		defaultDays = DefaultDays
	}
	r.Get("/reports/adherence/{patientID}", reportHandler(svc, access, defaultDays))
}

type countsResponse struct {
	Taken     int `json:"taken"`
	Missed    int `json:"missed"`
	Total     int `json:"total"`
	Adherence int `json:"adherence"`
}

type dailyResponse struct {
	Date string `json:"date" example:"2026-03-10"`
	countsResponse
}

type medicationStatResponse struct {
	MedicationID string `json:"medicationId"`
	Name         string `json:"name"`
	countsResponse
}

type reportResponse struct {
	PatientID        string                   `json:"patientId"`
	PatientName      string                   `json:"patientName"`
	Period           int                      `json:"period"`
	OverallAdherence int                      `json:"overallAdherence"`
	TotalDoses       int                      `json:"totalDoses"`
	TakenDoses       int                      `json:"takenDoses"`
	MissedDoses      int                      `json:"missedDoses"`
	DailyData        []dailyResponse          `json:"dailyData"`
	MedicationWise   []medicationStatResponse `json:"medicationWise"`
}

// reportHandler godoc
// @Summary Reporte de adherencia
// @Description Adherencia global, diaria y por medicación de los últimos `days` días. Lo puede ver el paciente o un caretaker con link aceptado.
// @Tags reports
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev"
// @Param patientID path string true "Patient ID"
// @Param days query int false "Ventana en días" default(30)
// @Success 200 {object} reportResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse "patient not found"
// @Router /reports/adherence/{patientID} [get]
func reportHandler(svc *Service, access Access, defaultDays int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID := chi.URLParam(r, "patientID")

		days, err := httpx.StrictIntQuery(r, "days", defaultDays)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		ok, err := access.CanView(r.Context(), httpx.Caller(r), patientID)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		if !ok {
			httpx.WriteError(w, apperr.Forbidden("access denied to this patient"))
			return
		}

		snap, err := svc.Report(r.Context(), patientID, days)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toReportResponse(snap))
	}
}

func toCounts(c Counts) countsResponse {
	return countsResponse{Taken: c.Taken, Missed: c.Missed, Total: c.Total, Adherence: c.Adherence}
}

func toReportResponse(s Snapshot) reportResponse {
	out := reportResponse{
		PatientID:        s.PatientID,
		PatientName:      s.PatientName,
		Period:           s.Period,
		OverallAdherence: s.OverallAdherence,
		TotalDoses:       s.TotalDoses,
		TakenDoses:       s.TakenDoses,
		MissedDoses:      s.MissedDoses,
		DailyData:        make([]dailyResponse, 0, len(s.DailyData)),
		MedicationWise:   make([]medicationStatResponse, 0, len(s.MedicationWise)),
	}
	for _, d := range s.DailyData {
		out.DailyData = append(out.DailyData, dailyResponse{Date: d.Date, countsResponse: toCounts(d.Counts)})
	}
	for _, m := range s.MedicationWise {
		out.MedicationWise = append(out.MedicationWise, medicationStatResponse{
			MedicationID:   m.MedicationID,
			Name:           m.Name,
			countsResponse: toCounts(m.Counts),
		})
	}
	return out
}
