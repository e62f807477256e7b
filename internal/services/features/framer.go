package features

import (
	"CryptoVision/internal/domain/models"
)

// Frame splits a cleaned dataset into feature vectors and the target column,
// one-to-one by row and in row order. It fails with a schema error when a
// feature or the target column is absent.
func Frame(ds *models.Dataset) ([]models.FeatureVector, []float64, error) {
	records, err := ds.Records()
	if err != nil {
		return nil, nil, err
	}

	X := make([]models.FeatureVector, len(records))
	y := make([]float64, len(records))
	for i, r := range records {
		X[i] = models.FeatureVector{
			Open:      r.MonthlyOpen,
			High:      r.MonthlyHigh,
			Low:       r.MonthlyLow,
			Volume:    r.Volume,
			MarketCap: r.MarketCap,
		}
		y[i] = r.MonthlyClose
	}
	return X, y, nil
}

// Matrix converts feature vectors to rows in FeatureColumns order.
func Matrix(X []models.FeatureVector) [][]float64 {
	out := make([][]float64, len(X))
	for i, v := range X {
		out[i] = v.Values()
	}
	return out
}
