package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CryptoVision/internal/domain/models"
	domsvc "CryptoVision/internal/domain/service"
	"CryptoVision/internal/repository"
	"CryptoVision/internal/services/features"
	"CryptoVision/internal/services/regression"
	applogger "CryptoVision/pkg/logger"
)

// constModel predicts a fixed value.
type constModel float64

func (c constModel) Predict([]float64) float64 { return float64(c) }

func testRegistry() *Registry {
	return NewRegistry(
		map[string]domsvc.Model{"bitcoin": constModel(123.456), "ethereum": constModel(-7.006)},
		map[string]models.Evaluation{
			"bitcoin":  {Asset: "bitcoin", R2: 0.9, RMSE: 5, MAE: 4},
			"ethereum": {Asset: "ethereum", R2: 0.95, RMSE: 1, MAE: 0.8},
		},
	)
}

func validRequest(asset string) models.PredictionRequest {
	return models.PredictionRequest{Asset: asset, Open: 1.0, High: 2.0, Low: 0.5, Volume: 10.0, MarketCap: 20.0}
}

func cleanDataset(n int, seed int64) *models.Dataset {
	rng := rand.New(rand.NewSource(seed))
	ds := models.NewDataset("bitcoin", []string{
		models.ColumnMonthlyOpen, models.ColumnMonthlyHigh, models.ColumnMonthlyLow,
		models.ColumnMonthlyClose, models.ColumnVolume, models.ColumnMarketCap,
	})
	price := 400.0
	day := time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		price *= 1 + (rng.Float64()-0.5)*0.05
		high := price * (1 + rng.Float64()*0.04)
		low := price * (1 - rng.Float64()*0.04)
		closing := low + (high-low)*rng.Float64()
		_ = ds.AppendRow(day.AddDate(0, 0, i), []float64{price, high, low, closing, 1e7 + rng.Float64()*1e6, closing * 1.8e7 * (1 + rng.Float64()*0.001)})
	}
	return ds
}

func TestPredictor_Predict(t *testing.T) {
	p := NewPredictor(testRegistry())

	res, err := p.Predict(context.Background(), validRequest("bitcoin"))
	require.NoError(t, err)
	assert.Equal(t, "bitcoin", res.Asset)
	assert.Equal(t, 123.46, res.Value)
	assert.Equal(t, models.FeatureVector{Open: 1, High: 2, Low: 0.5, Volume: 10, MarketCap: 20}, res.Features)

	res, err = p.Predict(context.Background(), validRequest("ethereum"))
	require.NoError(t, err)
	assert.Equal(t, -7.01, res.Value)
}

func TestPredictor_Idempotent(t *testing.T) {
	p := NewPredictor(testRegistry())
	a, err := p.Predict(context.Background(), validRequest("bitcoin"))
	require.NoError(t, err)
	b, err := p.Predict(context.Background(), validRequest("bitcoin"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestPredictor_UnknownAsset(t *testing.T) {
	p := NewPredictor(testRegistry())
	_, err := p.Predict(context.Background(), validRequest("dogecoin"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrUnknownAsset))
	assert.False(t, errors.Is(err, models.ErrValidation))
}

func TestPredictor_Validation(t *testing.T) {
	p := NewPredictor(testRegistry())

	tests := []struct {
		name  string
		mut   func(r *models.PredictionRequest)
		field string
	}{
		{name: "non-numeric volume", mut: func(r *models.PredictionRequest) { r.Volume = "not-a-number" }, field: "volume"},
		{name: "missing open", mut: func(r *models.PredictionRequest) { r.Open = nil }, field: "open"},
		{name: "boolean high", mut: func(r *models.PredictionRequest) { r.High = true }, field: "high"},
		{name: "nan low", mut: func(r *models.PredictionRequest) { r.Low = "NaN" }, field: "low"},
		{name: "infinite market cap", mut: func(r *models.PredictionRequest) { r.MarketCap = math.Inf(1) }, field: "marketCap"},
		{name: "object volume", mut: func(r *models.PredictionRequest) { r.Volume = map[string]interface{}{} }, field: "volume"},
		{name: "missing asset", mut: func(r *models.PredictionRequest) { r.Asset = "  " }, field: "asset"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest("bitcoin")
			tt.mut(&req)
			_, err := p.Predict(context.Background(), req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrValidation), "got %v", err)

			var derr *models.Error
			require.True(t, errors.As(err, &derr))
			assert.Equal(t, tt.field, derr.Field)
		})
	}
}

func TestPredictor_ValidationBeforeAssetLookup(t *testing.T) {
	p := NewPredictor(testRegistry())
	req := validRequest("dogecoin")
	req.Volume = "not-a-number"
	_, err := p.Predict(context.Background(), req)
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestPredictor_NumericForms(t *testing.T) {
	p := NewPredictor(testRegistry())
	req := models.PredictionRequest{
		Asset:     "bitcoin",
		Open:      json.Number("1.5"),
		High:      " 2 ",
		Low:       1,
		Volume:    int64(10),
		MarketCap: "2e10",
	}
	res, err := p.Predict(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.FeatureVector{Open: 1.5, High: 2, Low: 1, Volume: 10, MarketCap: 2e10}, res.Features)
}

func TestPredictor_NonFiniteOutput(t *testing.T) {
	p := NewPredictor(NewRegistry(map[string]domsvc.Model{"bitcoin": constModel(math.Inf(1))}, nil))
	_, err := p.Predict(context.Background(), validRequest("bitcoin"))
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestPredictor_Concurrent(t *testing.T) {
	p := NewPredictor(testRegistry())
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := p.Predict(context.Background(), validRequest("bitcoin"))
			assert.NoError(t, err)
			assert.Equal(t, 123.46, res.Value)
		}()
	}
	wg.Wait()
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.23, Round2(1.234))
	assert.Equal(t, 1.24, Round2(1.235000001))
	assert.Equal(t, -1.24, Round2(-1.2375))
	assert.Equal(t, 0.0, Round2(0.004))
	assert.Equal(t, 42000.5, Round2(42000.499999))
}

func TestRound2_HalvesToEven(t *testing.T) {
	assert.Equal(t, 0.12, Round2(0.125))
	assert.Equal(t, 0.38, Round2(0.375))
	assert.Equal(t, -0.12, Round2(-0.125))
}

func TestRound2_LargeValuesStayFinite(t *testing.T) {
	for _, v := range []float64{1e15, 1e307, -1.7e308, math.MaxFloat64} {
		got := Round2(v)
		assert.False(t, math.IsInf(got, 0), "Round2(%g)", v)
		assert.Equal(t, v, got)
	}
}

type hugeModel struct{}

func (hugeModel) Predict([]float64) float64 { return 1e307 }

func TestPredictor_HugeOutputIsFinite(t *testing.T) {
	reg := NewRegistry(map[string]domsvc.Model{"bitcoin": hugeModel{}}, nil)
	res, err := NewPredictor(reg).Predict(context.Background(), validRequest("bitcoin"))
	require.NoError(t, err)
	assert.Equal(t, 1e307, res.Value)
}

func TestTrainer_Errors(t *testing.T) {
	tr := NewTrainer(regression.NewForest(regression.ForestConfig{Trees: 5, Seed: 42}), 0.2, 42)
	ctx := context.Background()
	row := models.FeatureVector{Open: 1, High: 1, Low: 1, Volume: 1, MarketCap: 1}

	tests := []struct {
		name string
		X    []models.FeatureVector
		y    []float64
	}{
		{name: "length mismatch", X: []models.FeatureVector{row, row}, y: []float64{1}},
		{name: "single row", X: []models.FeatureVector{row}, y: []float64{1}},
		{name: "empty", X: nil, y: nil},
		{name: "nan feature", X: []models.FeatureVector{row, {Open: math.NaN()}}, y: []float64{1, 2}},
		{name: "infinite target", X: []models.FeatureVector{row, row}, y: []float64{1, math.Inf(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tr.Fit(ctx, "bitcoin", tt.X, tt.y)
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrTraining), "got %v", err)
		})
	}
}

func TestTrainer_ThousandRows(t *testing.T) {
	X, y, err := features.Frame(cleanDataset(1000, 7))
	require.NoError(t, err)

	tr := NewTrainer(regression.NewForest(regression.ForestConfig{Trees: 40, Seed: 42}), 0.2, 42)
	model, ev, err := tr.Fit(context.Background(), "bitcoin", X, y)
	require.NoError(t, err)

	assert.Equal(t, "bitcoin", ev.Asset)
	assert.Equal(t, regression.ForestName, ev.Model)
	assert.Equal(t, 1000, ev.Rows)
	assert.Equal(t, 800, ev.TrainRows)
	assert.Equal(t, 200, ev.TestRows)
	assert.Greater(t, ev.R2, 0.9)

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range y {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	p := NewPredictor(NewRegistry(map[string]domsvc.Model{"bitcoin": model}, nil))
	for _, i := range []int{0, 17, 500, 999} {
		req := models.PredictionRequest{
			Asset: "bitcoin", Open: X[i].Open, High: X[i].High, Low: X[i].Low, Volume: X[i].Volume, MarketCap: X[i].MarketCap,
		}
		res, err := p.Predict(context.Background(), req)
		require.NoError(t, err)
		assert.False(t, math.IsNaN(res.Value) || math.IsInf(res.Value, 0))
		assert.GreaterOrEqual(t, res.Value, Round2(lo)-0.01)
		assert.LessOrEqual(t, res.Value, Round2(hi)+0.01)
	}
}

func TestTrainer_Deterministic(t *testing.T) {
	X, y, err := features.Frame(cleanDataset(300, 3))
	require.NoError(t, err)
	probe := X[42].Values()

	fit := func() float64 {
		tr := NewTrainer(regression.NewForest(regression.ForestConfig{Trees: 20, Seed: 42}), 0.2, 42)
		m, _, err := tr.Fit(context.Background(), "bitcoin", X, y)
		require.NoError(t, err)
		return m.Predict(probe)
	}
	assert.Equal(t, fit(), fit())
}

func TestTrainer_Linear(t *testing.T) {
	X, y, err := features.Frame(cleanDataset(200, 9))
	require.NoError(t, err)

	tr := NewTrainer(regression.NewLinear(), 0.2, 42)
	tr.SetLogger(applogger.Nop())
	_, ev, err := tr.Fit(context.Background(), "bitcoin", X, y)
	require.NoError(t, err)
	assert.Equal(t, regression.LinearName, ev.Model)
	assert.Greater(t, ev.R2, 0.9)
}

func TestTrainer_LogsForestShape(t *testing.T) {
	X, y, err := features.Frame(cleanDataset(120, 5))
	require.NoError(t, err)

	var buf bytes.Buffer
	tr := NewTrainer(regression.NewForest(regression.ForestConfig{Trees: 7, MaxDepth: 4, Seed: 42}), 0.2, 42)
	tr.SetLogger(applogger.NewWithWriter(&buf, zerolog.InfoLevel))
	_, _, err = tr.Fit(context.Background(), "bitcoin", X, y)
	require.NoError(t, err)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "model trained", line["message"])
	assert.Equal(t, float64(7), line["trees"])
	depth, ok := line["max_depth"].(float64)
	require.True(t, ok)
	assert.Greater(t, depth, float64(0))
	assert.LessOrEqual(t, depth, float64(4))
}

func TestRegistry(t *testing.T) {
	r := testRegistry()
	assert.Equal(t, []string{"bitcoin", "ethereum"}, r.Assets())
	assert.Equal(t, 2, r.Len())

	m, err := r.Get("bitcoin")
	require.NoError(t, err)
	assert.Equal(t, 123.456, m.Predict(nil))

	_, err = r.Get("dogecoin")
	assert.True(t, errors.Is(err, models.ErrUnknownAsset))

	ev, ok := r.Evaluation("ethereum")
	require.True(t, ok)
	assert.Equal(t, 0.95, ev.R2)

	byAsset := r.Evaluations("asset")
	assert.Equal(t, "bitcoin", byAsset[0].Asset)
	byR2 := r.Evaluations("r2")
	assert.Equal(t, "ethereum", byR2[0].Asset)
	byRMSE := r.Evaluations("rmse")
	assert.Equal(t, "ethereum", byRMSE[0].Asset)

	// callers cannot mutate the registry through returned slices
	assets := r.Assets()
	assets[0] = "dogecoin"
	assert.Equal(t, []string{"bitcoin", "ethereum"}, r.Assets())
}

func writeSeriesFile(t *testing.T, dir, name string, rows int, seed int64) string {
	t.Helper()
	ds := cleanDataset(rows, seed)
	recs, err := ds.Records()
	require.NoError(t, err)

	var b strings.Builder
	b.WriteString("name;timestamp;open;high;low;close;volume;marketCap\n")
	for _, r := range recs {
		fmt.Fprintf(&b, "%s;%sT00:00:00.000Z;%g;%g;%g;%g;%g;%g\n", name, r.Timestamp.Format("2006-01-02"),
			r.MonthlyOpen, r.MonthlyHigh, r.MonthlyLow, r.MonthlyClose, r.Volume, r.MarketCap)
	}
	path := filepath.Join(dir, name+".csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

func TestBuildRegistry(t *testing.T) {
	dir := t.TempDir()
	assets := map[string]string{
		"ethereum": writeSeriesFile(t, dir, "ethereum", 200, 2),
		"bitcoin":  writeSeriesFile(t, dir, "bitcoin", 250, 1),
	}
	tr := NewTrainer(regression.NewForest(regression.ForestConfig{Trees: 10, Seed: 42}), 0.2, 42)

	r, err := BuildRegistry(context.Background(), assets, repository.NewCSVDatasetSource(), tr, applogger.Nop())
	require.NoError(t, err)
	assert.Equal(t, []string{"bitcoin", "ethereum"}, r.Assets())

	ev, ok := r.Evaluation("bitcoin")
	require.True(t, ok)
	assert.Equal(t, 250-repository.WarmupRows, ev.Rows)

	res, err := NewPredictor(r).Predict(context.Background(), validRequest("ethereum"))
	require.NoError(t, err)
	assert.False(t, math.IsNaN(res.Value))

	_, err = NewPredictor(r).Predict(context.Background(), validRequest("dogecoin"))
	assert.True(t, errors.Is(err, models.ErrUnknownAsset))
}

func TestBuildRegistry_FailFast(t *testing.T) {
	dir := t.TempDir()
	assets := map[string]string{
		"bitcoin":  writeSeriesFile(t, dir, "bitcoin", 200, 1),
		"ethereum": filepath.Join(dir, "missing.csv"),
	}
	tr := NewTrainer(regression.NewForest(regression.ForestConfig{Trees: 5, Seed: 42}), 0.2, 42)

	r, err := BuildRegistry(context.Background(), assets, repository.NewCSVDatasetSource(), tr, nil)
	require.Error(t, err)
	assert.Nil(t, r)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestBuildRegistry_TooFewRows(t *testing.T) {
	dir := t.TempDir()
	assets := map[string]string{"bitcoin": writeSeriesFile(t, dir, "bitcoin", repository.WarmupRows+1, 1)}
	tr := NewTrainer(regression.NewLinear(), 0.2, 42)

	_, err := BuildRegistry(context.Background(), assets, repository.NewCSVDatasetSource(), tr, nil)
	assert.True(t, errors.Is(err, models.ErrTraining))
}

func TestBuildRegistry_NoAssets(t *testing.T) {
	tr := NewTrainer(regression.NewLinear(), 0.2, 42)
	_, err := BuildRegistry(context.Background(), nil, repository.NewCSVDatasetSource(), tr, nil)
	assert.Error(t, err)
}
