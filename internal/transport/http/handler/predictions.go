package handler

import (
	"net/http"

	"github.com/go-api-careauth/internal/application/prediction"
	"github.com/go-api-careauth/internal/domain"
	"github.com/go-api-careauth/internal/transport/http/middleware"
)

// PredictionHandler serves predictions and the role dashboards.
type PredictionHandler struct {
	svc prediction.Service
}

func NewPredictionHandler(svc prediction.Service) *PredictionHandler {
	return &PredictionHandler{svc: svc}
}

func (h *PredictionHandler) Predict(w http.ResponseWriter, r *http.Request) {
	var in domain.PredictionInput
	if !decode(w, r, &in) {
		return
	}
	caller, _ := middleware.UserFromContext(r.Context())
	p, err := h.svc.Predict(r.Context(), caller, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// History lists predictions for ?email= (defaulting to the caller).
func (h *PredictionHandler) History(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.UserFromContext(r.Context())
	email := r.URL.Query().Get("email")
	preds, err := h.svc.History(r.Context(), caller, email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if email == "" {
		email = caller.Email
	}
	writeJSON(w, http.StatusOK, HistoryEnvelope{Email: email, TotalPredictions: len(preds), Predictions: preds})
}

func (h *PredictionHandler) DoctorPatients(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.UserFromContext(r.Context())
	rows, err := h.svc.DoctorPatients(r.Context(), caller)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PatientsEnvelope{Total: len(rows), Patients: rows})
}

func (h *PredictionHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.UserFromContext(r.Context())
	a, err := h.svc.Analytics(r.Context(), caller)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// All lists every prediction for admins.
func (h *PredictionHandler) All(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.UserFromContext(r.Context())
	preds, err := h.svc.All(r.Context(), caller)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PredictionsEnvelope{Count: len(preds), Predictions: preds})
}
