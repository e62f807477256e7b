package regression

import (
	"context"
	"fmt"

	ols "github.com/sajari/regression"

	"CryptoVision/internal/domain/models"
	domsvc "CryptoVision/internal/domain/service"
)

const LinearName = "linear"

// Linear fits an ordinary least squares model. It is the lightweight
// alternative to the forest for quick startup.
type Linear struct{}

func NewLinear() *Linear { return &Linear{} }

var _ domsvc.Regressor = (*Linear)(nil)

func (l *Linear) Name() string { return LinearName }

func (l *Linear) Fit(ctx context.Context, X [][]float64, y []float64) (domsvc.Model, error) {
	if err := checkShape(X, y); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var r ols.Regression
	r.SetObserved(models.TargetColumn)
	for i := range X[0] {
		r.SetVar(i, featureName(i))
	}
	for i, row := range X {
		r.Train(ols.DataPoint(y[i], row))
	}
	if err := r.Run(); err != nil {
		return nil, fmt.Errorf("linear regression: %w", err)
	}

	coeffs := r.GetCoeffs()
	if len(coeffs) != len(X[0])+1 {
		return nil, fmt.Errorf("linear regression: got %d coefficients for %d features", len(coeffs), len(X[0]))
	}
	return &LinearModel{Intercept: coeffs[0], Weights: coeffs[1:]}, nil
}

// LinearModel is a fitted intercept and one weight per feature.
type LinearModel struct {
	Intercept float64
	Weights   []float64
}

func (m *LinearModel) Predict(row []float64) float64 {
	v := m.Intercept
	for i, w := range m.Weights {
		v += w * row[i]
	}
	return v
}

func featureName(i int) string {
	if i < len(models.FeatureColumns) {
		return models.FeatureColumns[i]
	}
	return fmt.Sprintf("x%d", i)
}
