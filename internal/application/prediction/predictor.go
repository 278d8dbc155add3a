package prediction

import (
	"math"
	"math/rand/v2"
	"sync"

	"github.com/go-api-careauth/internal/domain"
)

// Vitals is a PredictionInput with every default filled in.
type Vitals struct {
	Age             int
	HeartRate       int
	SystolicBP      int
	RespiratoryRate int
}

// Outcome is what a Predictor returns for a set of vitals.
type Outcome struct {
	LOSDays      float64
	MortalityPct float64
	RiskLevel    string
}

// Predictor turns vitals into an outcome. The model behind it is opaque.
type Predictor interface {
	Predict(v Vitals) Outcome
}

// Risk levels by mortality percentage.
const (
	RiskLow      = "Low"
	RiskModerate = "Moderate"
	RiskHigh     = "High"
)

// HeuristicPredictor is a placeholder scoring formula standing in for a
// trained model. It is safe for concurrent use.
type HeuristicPredictor struct {
	mu  sync.Mutex // guards rnd
	rnd *rand.Rand
}

// NewHeuristicPredictor uses rnd for the jitter terms. A nil rnd uses a
// randomly seeded source.
func NewHeuristicPredictor(rnd *rand.Rand) *HeuristicPredictor {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &HeuristicPredictor{rnd: rnd}
}

func (p *HeuristicPredictor) Predict(v Vitals) Outcome {
	p.mu.Lock()
	losJitter, scoreJitter := p.uniform(0.5, 2.0), p.uniform(-5, 5)
	p.mu.Unlock()

	los := float64(v.Age%7) + float64(v.HeartRate)/100 + losJitter
	score := float64(v.RespiratoryRate)*1.2 + float64(v.Age)/5 - float64(v.SystolicBP)/10 + scoreJitter
	score = math.Min(100, math.Max(0, score))
	return Outcome{
		LOSDays:      round(los, 1),
		MortalityPct: round(score, 2),
		RiskLevel:    riskLevel(score),
	}
}

// uniform must be called with p.mu held.
func (p *HeuristicPredictor) uniform(lo, hi float64) float64 {
	return lo + p.rnd.Float64()*(hi-lo)
}

func riskLevel(score float64) string {
	switch {
	case score > 60:
		return RiskHigh
	case score > 30:
		return RiskModerate
	default:
		return RiskLow
	}
}

func round(f float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(f*scale) / scale
}

func vitalsFrom(in domain.PredictionInput) Vitals {
	v := Vitals{Age: 0, HeartRate: 80, SystolicBP: 120, RespiratoryRate: 16}
	if in.Age != nil {
		v.Age = *in.Age
	}
	if in.HeartRate != nil {
		v.HeartRate = *in.HeartRate
	}
	if in.SystolicBP != nil {
		v.SystolicBP = *in.SystolicBP
	}
	if in.RespiratoryRate != nil {
		v.RespiratoryRate = *in.RespiratoryRate
	}
	return v
}
