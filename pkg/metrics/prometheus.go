package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"CryptoVision/internal/domain/models"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	datasetRows     *prometheus.GaugeVec
	trainingSeconds *prometheus.GaugeVec
	modelScore      *prometheus.GaugeVec
	predictions     *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	latency         *prometheus.HistogramVec
}

// New creates a Prometheus metrics recorder registered on reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		datasetRows: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cryptovision_dataset_rows",
				Help: "Rows per asset dataset, before (raw) and after (cleaned) cleaning",
			},
			[]string{"asset", "stage"},
		),
		trainingSeconds: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cryptovision_training_duration_seconds",
				Help: "Wall time of the startup training run per asset",
			},
			[]string{"asset", "model"},
		),
		modelScore: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cryptovision_model_holdout_score",
				Help: "Holdout metrics of the trained model per asset",
			},
			[]string{"asset", "metric"},
		),
		predictions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptovision_predictions_total",
				Help: "Total number of predictions served",
			},
			[]string{"asset"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptovision_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cryptovision_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordDatasetRows records the raw and cleaned row counts of an asset.
func (r *Recorder) RecordDatasetRows(asset string, raw, cleaned int) {
	r.datasetRows.WithLabelValues(asset, "raw").Set(float64(raw))
	r.datasetRows.WithLabelValues(asset, "cleaned").Set(float64(cleaned))
}

// RecordTraining records how long fitting took.
func (r *Recorder) RecordTraining(asset, model string, seconds float64) {
	r.trainingSeconds.WithLabelValues(asset, model).Set(seconds)
}

// RecordEvaluation exposes the holdout scores.
func (r *Recorder) RecordEvaluation(ev models.Evaluation) {
	r.modelScore.WithLabelValues(ev.Asset, "r2").Set(ev.R2)
	r.modelScore.WithLabelValues(ev.Asset, "rmse").Set(ev.RMSE)
	r.modelScore.WithLabelValues(ev.Asset, "mae").Set(ev.MAE)
}

// RecordPrediction counts a served prediction.
func (r *Recorder) RecordPrediction(asset string) {
	r.predictions.WithLabelValues(asset).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
