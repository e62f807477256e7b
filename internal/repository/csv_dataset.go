package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"CryptoVision/internal/domain/models"
	domrepo "CryptoVision/internal/domain/repository"
	applogger "CryptoVision/pkg/logger"
	"CryptoVision/pkg/util"
)

// WarmupRows is the number of leading rows discarded from every series; the
// exporter's earliest rows are known to be unreliable.
const WarmupRows = 81

const csvDelimiter = ';'

// numericColumns maps the file's numeric headers to dataset column names.
// Headers not listed here, other than the timestamp, are ignored.
var numericColumns = map[string]string{
	"open":                 models.ColumnMonthlyOpen,
	"high":                 models.ColumnMonthlyHigh,
	"low":                  models.ColumnMonthlyLow,
	"close":                models.ColumnMonthlyClose,
	models.ColumnVolume:    models.ColumnVolume,
	models.ColumnMarketCap: models.ColumnMarketCap,
}

// CSVDatasetSource loads semicolon-delimited coinmarketcap exports.
type CSVDatasetSource struct {
	l       *applogger.Logger
	metrics domrepo.Metrics
}

func NewCSVDatasetSource() *CSVDatasetSource {
	return &CSVDatasetSource{}
}

// SetLogger injects a structured logger.
func (s *CSVDatasetSource) SetLogger(l *applogger.Logger) { s.l = l }

// SetMetrics injects a metrics recorder.
func (s *CSVDatasetSource) SetMetrics(m domrepo.Metrics) { s.metrics = m }

type rawRow struct {
	line    int
	stamp   string
	values  []float64
	missing bool
}

// Load reads path and returns the cleaned dataset: the name column dropped,
// OHLC columns renamed, the warm-up rows trimmed, incomplete rows and rows
// with unparsable dates dropped, order preserved.
func (s *CSVDatasetSource) Load(ctx context.Context, asset, path string) (*models.Dataset, error) {
	const op = "load dataset"
	start := time.Now()

	info, err := os.Stat(path)
	if err != nil {
		return nil, models.NewError(models.KindNotFound, op, err).WithAsset(asset)
	}
	if info.IsDir() {
		return nil, models.Errorf(models.KindNotFound, op, "%s is a directory", path).WithAsset(asset)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, models.NewError(models.KindNotFound, op, err).WithAsset(asset)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = csvDelimiter

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, models.Errorf(models.KindParse, op, "%s: empty file", path).WithAsset(asset)
		}
		return nil, models.NewError(models.KindParse, op, err).WithAsset(asset)
	}
	layout, err := newColumnLayout(header)
	if err != nil {
		return nil, models.NewError(models.KindParse, op, err).WithAsset(asset)
	}

	var rows []rawRow
	for {
		if len(rows)%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, models.NewError(models.KindParse, op, err).WithAsset(asset)
		}
		line, _ := r.FieldPos(0)
		row, perr := layout.parse(rec, line)
		if perr != nil {
			return nil, perr.WithAsset(asset)
		}
		rows = append(rows, row)
	}
	raw := len(rows)

	if len(rows) > WarmupRows {
		rows = rows[WarmupRows:]
	} else {
		rows = nil
	}

	ds := models.NewDataset(asset, layout.names)
	for _, row := range rows {
		if row.missing {
			continue
		}
		// An unparsable date counts as a missing value.
		date, ok := util.ParseDay(row.stamp)
		if !ok {
			continue
		}
		if err := ds.AppendRow(date, row.values); err != nil {
			return nil, models.NewError(models.KindParse, op, err).WithAsset(asset)
		}
	}

	if s.metrics != nil {
		s.metrics.RecordDatasetRows(asset, raw, ds.Len())
		s.metrics.RecordLatency("load_dataset", time.Since(start).Seconds())
	}
	if s.l != nil {
		s.l.Info("dataset loaded",
			applogger.String("asset", asset),
			applogger.String("path", path),
			applogger.Int("raw_rows", raw),
			applogger.Int("rows", ds.Len()),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return ds, nil
}

// columnLayout maps file columns to dataset columns.
type columnLayout struct {
	width     int
	timestamp int
	// names and positions of the numeric columns, in file order
	names     []string
	positions []int
}

func newColumnLayout(header []string) (*columnLayout, error) {
	l := &columnLayout{width: len(header), timestamp: -1}
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			return nil, fmt.Errorf("header column %d is empty", i+1)
		}
		if seen[h] {
			return nil, fmt.Errorf("duplicate column %q", h)
		}
		seen[h] = true

		if h == models.ColumnTimestamp {
			l.timestamp = i
			continue
		}
		name, ok := numericColumns[h]
		if !ok {
			continue
		}
		l.names = append(l.names, name)
		l.positions = append(l.positions, i)
	}
	if l.timestamp < 0 {
		return nil, fmt.Errorf("missing %q column", models.ColumnTimestamp)
	}
	return l, nil
}

func (l *columnLayout) parse(rec []string, line int) (rawRow, *models.Error) {
	const op = "load dataset"
	if len(rec) != l.width {
		return rawRow{}, models.Errorf(models.KindParse, op, "line %d: expected %d fields, got %d", line, l.width, len(rec))
	}
	row := rawRow{line: line, stamp: rec[l.timestamp], values: make([]float64, len(l.positions))}
	if util.IsMissing(row.stamp) {
		row.missing = true
	}
	for j, pos := range l.positions {
		cell := rec[pos]
		if util.IsMissing(cell) {
			row.missing = true
			continue
		}
		v, err := util.ParseFinite(cell)
		if err != nil {
			return rawRow{}, models.Errorf(models.KindParse, op, "line %d: %v", line, err).WithField(l.names[j])
		}
		row.values[j] = v
	}
	return row, nil
}
