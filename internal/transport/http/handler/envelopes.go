package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-api-careauth/internal/application/prediction"
	"github.com/go-api-careauth/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AuthEnvelope wraps login responses.
type AuthEnvelope struct {
	Token     string                `json:"token"`
	ExpiresAt time.Time             `json:"expires_at"`
	User      *domain.PublicProfile `json:"user"`
	Message   string                `json:"message,omitempty"`
}

// ProfileEnvelope wraps a single user profile.
type ProfileEnvelope struct {
	User    *domain.PublicProfile `json:"user"`
	Message string                `json:"message,omitempty"`
}

// UsersPageEnvelope wraps cursor-paginated user list responses.
type UsersPageEnvelope struct {
	Data       []domain.PublicProfile `json:"data"`
	NextCursor string                 `json:"next_cursor,omitempty"`
}

// PredictionsEnvelope is the admin listing of every prediction.
type PredictionsEnvelope struct {
	Count       int                 `json:"count"`
	Predictions []domain.Prediction `json:"predictions"`
}

type HistoryEnvelope struct {
	Email            string              `json:"email"`
	TotalPredictions int                 `json:"total_predictions"`
	Predictions      []domain.Prediction `json:"predictions"`
}

type PatientsEnvelope struct {
	Total    int                         `json:"total"`
	Patients []prediction.PatientSummary `json:"patients"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}
