package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"CryptoVision/internal/domain/models"
	"CryptoVision/pkg/util"
)

// Predictor serves forecasts from a frozen registry. Predict reads only the
// registry and its request, so concurrent calls need no locking.
type Predictor struct {
	registry *Registry
}

func NewPredictor(registry *Registry) *Predictor {
	return &Predictor{registry: registry}
}

// Registry exposes the registry the predictor reads from.
func (p *Predictor) Registry() *Registry { return p.registry }

// Predict validates the request, looks up the asset's model and returns its
// forecast of monthly_close rounded to two decimals.
func (p *Predictor) Predict(ctx context.Context, req models.PredictionRequest) (models.PredictionResult, error) {
	const op = "predict"
	if err := ctx.Err(); err != nil {
		return models.PredictionResult{}, err
	}

	asset := strings.TrimSpace(req.Asset)
	if asset == "" {
		return models.PredictionResult{}, models.Errorf(models.KindValidation, op, "asset is required").WithField("asset")
	}

	raw := [...]interface{}{req.Open, req.High, req.Low, req.Volume, req.MarketCap}
	names := [...]string{"open", "high", "low", "volume", "marketCap"}
	var values [len(raw)]float64
	for i, v := range raw {
		f, err := toFloat(v)
		if err != nil {
			return models.PredictionResult{}, models.Errorf(models.KindValidation, op, "%s: %v", names[i], err).
				WithAsset(asset).WithField(names[i])
		}
		values[i] = f
	}

	model, err := p.registry.Get(asset)
	if err != nil {
		return models.PredictionResult{}, err
	}

	vec := models.FeatureVector{Open: values[0], High: values[1], Low: values[2], Volume: values[3], MarketCap: values[4]}
	out := model.Predict(vec.Values())
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return models.PredictionResult{}, models.Errorf(models.KindValidation, op, "prediction is not finite for the given features").WithAsset(asset)
	}
	return models.PredictionResult{Asset: asset, Features: vec, Value: Round2(out)}, nil
}

// roundLimit is the magnitude above which a float64 has no fractional digits
// left, and scaling by 100 could overflow.
const roundLimit = 1e15

// Round2 rounds to two decimal places, halves to even.
func Round2(v float64) float64 {
	if math.Abs(v) >= roundLimit {
		return v
	}
	return math.RoundToEven(v*100) / 100
}

// toFloat accepts JSON numbers and numeric strings.
func toFloat(v interface{}) (float64, error) {
	switch x := v.(type) {
	case nil:
		return 0, fmt.Errorf("value is required")
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, fmt.Errorf("%v is not a finite number", x)
		}
		return x, nil
	case float32:
		return toFloat(float64(x))
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case json.Number:
		return util.ParseFinite(x.String())
	case string:
		return util.ParseFinite(x)
	default:
		return 0, fmt.Errorf("%v is not a number", x)
	}
}
