package models

import "time"

// FeatureColumns is the fixed feature order used for training and inference.
var FeatureColumns = [...]string{
	ColumnMonthlyOpen,
	ColumnMonthlyHigh,
	ColumnMonthlyLow,
	ColumnVolume,
	ColumnMarketCap,
}

// TargetColumn is the predicted column.
const TargetColumn = ColumnMonthlyClose

// FeatureVector is one model input row.
type FeatureVector struct {
	Open      float64
	High      float64
	Low       float64
	Volume    float64
	MarketCap float64
}

// Values returns the vector in FeatureColumns order.
func (v FeatureVector) Values() []float64 {
	return []float64{v.Open, v.High, v.Low, v.Volume, v.MarketCap}
}

// PredictionResult is a rounded forecast of monthly_close for one asset.
type PredictionResult struct {
	Asset    string
	Features FeatureVector
	Value    float64
}

// Evaluation is the holdout report of one asset's training run.
type Evaluation struct {
	Asset     string        `json:"asset"`
	Model     string        `json:"model"`
	Rows      int           `json:"rows"`
	TrainRows int           `json:"train_rows"`
	TestRows  int           `json:"test_rows"`
	R2        float64       `json:"r2"`
	RMSE      float64       `json:"rmse"`
	MAE       float64       `json:"mae"`
	Duration  time.Duration `json:"duration_ns"`
	TrainedAt time.Time     `json:"trained_at"`
}

// PredictionEvent is emitted for every served prediction.
type PredictionEvent struct {
	Asset     string
	Features  FeatureVector
	Predicted float64
	ServedAt  time.Time
}
