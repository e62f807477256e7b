package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"CryptoVision/internal/domain/models"
	domrepo "CryptoVision/internal/domain/repository"
	applogger "CryptoVision/pkg/logger"
)

// EvaluationColumns is the insert column list of the evaluations table.
const EvaluationColumns = "trained_at, asset, model, rows, train_rows, test_rows, r2, rmse, mae, duration_ms"

// CHEvaluationStore implements EvaluationStore backed by ClickHouse.
type CHEvaluationStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHEvaluationStore(db *sql.DB, table string) *CHEvaluationStore {
	return &CHEvaluationStore{db: db, table: table}
}

var _ domrepo.EvaluationStore = (*CHEvaluationStore)(nil)

// SetLogger injects a structured logger.
func (s *CHEvaluationStore) SetLogger(l *applogger.Logger) { s.l = l }

// SaveEvaluations writes all reports in a single multi-row insert.
func (s *CHEvaluationStore) SaveEvaluations(ctx context.Context, evals []models.Evaluation) error {
	if len(evals) == 0 {
		return nil
	}
	start := time.Now()

	values := make([]string, 0, len(evals))
	args := make([]interface{}, 0, len(evals)*10)
	for _, ev := range evals {
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			ev.TrainedAt,
			ev.Asset,
			ev.Model,
			uint32(ev.Rows),
			uint32(ev.TrainRows),
			uint32(ev.TestRows),
			ev.R2,
			ev.RMSE,
			ev.MAE,
			float64(ev.Duration)/float64(time.Millisecond),
		)
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", s.table, EvaluationColumns, strings.Join(values, ","))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		if s.l != nil {
			s.l.Error("clickhouse save_evaluations error",
				applogger.String("table", s.table),
				applogger.Int("rows", len(evals)),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("save evaluations: %w", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse save_evaluations ok",
			applogger.String("table", s.table),
			applogger.Int("rows", len(evals)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

// EvaluationSchema returns the DDL for the evaluations table.
func EvaluationSchema(database, table string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
    trained_at  DateTime64(3),
    asset       LowCardinality(String),
    model       LowCardinality(String),
    rows        UInt32,
    train_rows  UInt32,
    test_rows   UInt32,
    r2          Float64,
    rmse        Float64,
    mae         Float64,
    duration_ms Float64
) ENGINE = MergeTree
ORDER BY (asset, trained_at)`, database, table),
	}
}
