package domain

import "time"

type Prediction struct {
	PredictionID     string    `json:"id" dynamodbav:"prediction_id"`
	Email            string    `json:"email" dynamodbav:"email"`
	PredictedLOSDays float64   `json:"predicted_los_days" dynamodbav:"predicted_los_days"`
	MortalityPct     float64   `json:"in_hospital_mortality_pct" dynamodbav:"in_hospital_mortality_pct"`
	RiskLevel        string    `json:"mortality_risk_level" dynamodbav:"mortality_risk_level"`
	CreatedAt        time.Time `json:"created" dynamodbav:"created_at"`
}

// PredictionInput carries the vitals a prediction is computed from.
// Nil fields fall back to the clinical defaults applied by the service.
type PredictionInput struct {
	Age             *int `json:"age" validate:"omitempty,min=0,max=130"`
	HeartRate       *int `json:"heart_rate" validate:"omitempty,min=0,max=300"`
	SystolicBP      *int `json:"systolic_bp" validate:"omitempty,min=0,max=300"`
	RespiratoryRate *int `json:"respiratory_rate" validate:"omitempty,min=0,max=100"`
}

// Analytics summarises the system for the admin dashboard.
type Analytics struct {
	TotalUsers        int          `json:"total_users"`
	TotalDoctors      int          `json:"total_doctors"`
	TotalPatients     int          `json:"total_patients"`
	TotalPredictions  int          `json:"total_predictions"`
	RecentPredictions []Prediction `json:"recent_predictions"`
}
