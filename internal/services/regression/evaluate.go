package regression

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	domsvc "CryptoVision/internal/domain/service"
)

// Scores are holdout metrics of a fitted model.
type Scores struct {
	R2   float64
	RMSE float64
	MAE  float64
}

// Evaluate scores m on the given rows. Undefined metrics (for example R2 on a
// constant target) are reported as 0.
func Evaluate(m domsvc.Model, X [][]float64, y []float64) Scores {
	if len(y) == 0 {
		return Scores{}
	}
	pred := make([]float64, len(y))
	for i, row := range X {
		pred[i] = m.Predict(row)
	}

	resid := make([]float64, len(y))
	floats.SubTo(resid, y, pred)
	n := float64(len(y))
	rmse := math.Sqrt(floats.Dot(resid, resid) / n)
	mae := floats.Norm(resid, 1) / n

	return Scores{
		R2:   finite(stat.RSquaredFrom(pred, y, nil)),
		RMSE: finite(rmse),
		MAE:  finite(mae),
	}
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
