package usecase

import (
	"context"
	"math"
	"time"

	"CryptoVision/internal/domain/models"
	domrepo "CryptoVision/internal/domain/repository"
	domsvc "CryptoVision/internal/domain/service"
	"CryptoVision/internal/services/features"
	"CryptoVision/internal/services/regression"
	applogger "CryptoVision/pkg/logger"
)

// Trainer splits a framed dataset, fits the regressor on the training part
// and scores the holdout.
type Trainer struct {
	reg       domsvc.Regressor
	testRatio float64
	seed      int64
	l         *applogger.Logger
	metrics   domrepo.Metrics
}

// ensemble is implemented by tree ensembles that can report their shape.
type ensemble interface {
	Size() int
	MaxDepth() int
}

func NewTrainer(reg domsvc.Regressor, testRatio float64, seed int64) *Trainer {
	return &Trainer{reg: reg, testRatio: testRatio, seed: seed}
}

// SetLogger injects a structured logger.
func (t *Trainer) SetLogger(l *applogger.Logger) { t.l = l }

// SetMetrics injects a metrics recorder.
func (t *Trainer) SetMetrics(m domrepo.Metrics) { t.metrics = m }

func (t *Trainer) Fit(ctx context.Context, asset string, X []models.FeatureVector, y []float64) (domsvc.Model, models.Evaluation, error) {
	const op = "train"
	start := time.Now()

	if len(X) != len(y) {
		return nil, models.Evaluation{}, models.Errorf(models.KindTraining, op, "%d feature rows but %d targets", len(X), len(y)).WithAsset(asset)
	}
	if len(X) < 2 {
		return nil, models.Evaluation{}, models.Errorf(models.KindTraining, op, "need at least 2 rows, got %d", len(X)).WithAsset(asset)
	}
	if err := checkFinite(X, y); err != nil {
		return nil, models.Evaluation{}, err.WithAsset(asset)
	}

	train, test, err := regression.TrainTestSplit(len(y), t.testRatio, t.seed)
	if err != nil {
		return nil, models.Evaluation{}, models.NewError(models.KindTraining, op, err).WithAsset(asset)
	}
	matrix := features.Matrix(X)
	xTrain, yTrain := regression.Rows(matrix, y, train)
	xTest, yTest := regression.Rows(matrix, y, test)

	model, err := t.reg.Fit(ctx, xTrain, yTrain)
	if err != nil {
		return nil, models.Evaluation{}, models.NewError(models.KindTraining, op, err).WithAsset(asset)
	}
	scores := regression.Evaluate(model, xTest, yTest)

	ev := models.Evaluation{
		Asset:     asset,
		Model:     t.reg.Name(),
		Rows:      len(y),
		TrainRows: len(train),
		TestRows:  len(test),
		R2:        scores.R2,
		RMSE:      scores.RMSE,
		MAE:       scores.MAE,
		Duration:  time.Since(start),
		TrainedAt: start.UTC(),
	}

	if t.metrics != nil {
		t.metrics.RecordTraining(asset, ev.Model, ev.Duration.Seconds())
		t.metrics.RecordEvaluation(ev)
	}
	if t.l != nil {
		fields := []applogger.Field{
			applogger.String("asset", asset),
			applogger.String("model", ev.Model),
			applogger.Int("train_rows", ev.TrainRows),
			applogger.Int("test_rows", ev.TestRows),
			applogger.Float64("r2", ev.R2),
			applogger.Float64("rmse", ev.RMSE),
			applogger.Float64("mae", ev.MAE),
			applogger.Duration("duration_ms", ev.Duration),
		}
		if e, ok := model.(ensemble); ok {
			fields = append(fields, applogger.Int("trees", e.Size()), applogger.Int("max_depth", e.MaxDepth()))
		}
		t.l.Info("model trained", fields...)
	}
	return model, ev, nil
}

func checkFinite(X []models.FeatureVector, y []float64) *models.Error {
	for i, v := range X {
		for j, f := range v.Values() {
			if !isFinite(f) {
				return models.Errorf(models.KindTraining, "train", "row %d: non-finite %s", i, models.FeatureColumns[j]).
					WithField(models.FeatureColumns[j])
			}
		}
		if !isFinite(y[i]) {
			return models.Errorf(models.KindTraining, "train", "row %d: non-finite %s", i, models.TargetColumn).
				WithField(models.TargetColumn)
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
