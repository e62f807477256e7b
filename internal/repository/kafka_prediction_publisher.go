package repository

import (
	"context"
	"time"

	"CryptoVision/internal/domain/models"
	domrepo "CryptoVision/internal/domain/repository"
)

// messageProducer is the subset of the Kafka producer used for publishing.
type messageProducer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaPredictionPublisher implements PredictionPublisher for Kafka. Messages
// are keyed by asset so one asset's predictions stay in one partition.
type KafkaPredictionPublisher struct {
	producer messageProducer
	topic    string
}

func NewKafkaPredictionPublisher(producer messageProducer, topic string) *KafkaPredictionPublisher {
	return &KafkaPredictionPublisher{producer: producer, topic: topic}
}

var _ domrepo.PredictionPublisher = (*KafkaPredictionPublisher)(nil)

type predictionMessage struct {
	Asset     string  `json:"asset"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Volume    float64 `json:"volume"`
	MarketCap float64 `json:"marketCap"`
	Predicted float64 `json:"predicted_closing_price"`
	ServedAt  string  `json:"served_at"`
}

func (p *KafkaPredictionPublisher) PublishPrediction(ctx context.Context, ev models.PredictionEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.Asset), predictionMessage{
		Asset:     ev.Asset,
		Open:      ev.Features.Open,
		High:      ev.Features.High,
		Low:       ev.Features.Low,
		Volume:    ev.Features.Volume,
		MarketCap: ev.Features.MarketCap,
		Predicted: ev.Predicted,
		ServedAt:  ev.ServedAt.UTC().Format(time.RFC3339Nano),
	})
}

func (p *KafkaPredictionPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NopPredictionPublisher discards events. Used when Kafka is disabled.
type NopPredictionPublisher struct{}

func (NopPredictionPublisher) PublishPrediction(context.Context, models.PredictionEvent) error {
	return nil
}

func (NopPredictionPublisher) Close() error { return nil }
