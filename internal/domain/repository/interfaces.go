package repository

import (
	"context"

	"CryptoVision/internal/domain/models"
)

// DatasetSource loads and cleans one asset's historical series.
type DatasetSource interface {
	Load(ctx context.Context, asset, path string) (*models.Dataset, error)
}

// EvaluationStore persists holdout reports of startup training runs.
type EvaluationStore interface {
	SaveEvaluations(ctx context.Context, evals []models.Evaluation) error
}

// PredictionPublisher streams served predictions to downstream consumers.
type PredictionPublisher interface {
	PublishPrediction(ctx context.Context, ev models.PredictionEvent) error
	Close() error
}

type Metrics interface {
	RecordDatasetRows(asset string, raw, cleaned int)
	RecordTraining(asset, model string, seconds float64)
	RecordEvaluation(ev models.Evaluation)
	RecordPrediction(asset string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
