package service

import "context"

// Regressor fits a model on a feature matrix and target vector.
type Regressor interface {
	Name() string
	Fit(ctx context.Context, X [][]float64, y []float64) (Model, error)
}

// Model is a fitted regressor. Implementations are immutable and safe for
// concurrent use.
type Model interface {
	Predict(row []float64) float64
}
