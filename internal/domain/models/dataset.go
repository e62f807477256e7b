package models

import (
	"fmt"
	"time"
)

// Column names of a cleaned dataset.
const (
	ColumnTimestamp    = "timestamp"
	ColumnMonthlyOpen  = "monthly_open"
	ColumnMonthlyHigh  = "monthly_high"
	ColumnMonthlyLow   = "monthly_low"
	ColumnMonthlyClose = "monthly_close"
	ColumnVolume       = "volume"
	ColumnMarketCap    = "marketCap"
)

// Dataset is a cleaned, column-oriented per-asset series. Row i of every
// column belongs to Dates[i]; rows are in file order and indexed from zero.
type Dataset struct {
	Asset   string
	Dates   []time.Time
	columns []string
	values  map[string][]float64
}

// NewDataset creates an empty dataset with the given numeric columns.
func NewDataset(asset string, columns []string) *Dataset {
	cols := make([]string, len(columns))
	copy(cols, columns)
	values := make(map[string][]float64, len(cols))
	for _, c := range cols {
		values[c] = nil
	}
	return &Dataset{Asset: asset, columns: cols, values: values}
}

// AppendRow adds a row; values are aligned with Columns().
func (d *Dataset) AppendRow(date time.Time, values []float64) error {
	if len(values) != len(d.columns) {
		return fmt.Errorf("row has %d values, dataset has %d columns", len(values), len(d.columns))
	}
	d.Dates = append(d.Dates, date)
	for i, c := range d.columns {
		d.values[c] = append(d.values[c], values[i])
	}
	return nil
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.Dates) }

// Columns returns the numeric column names in file order.
func (d *Dataset) Columns() []string {
	out := make([]string, len(d.columns))
	copy(out, d.columns)
	return out
}

// Column returns the values of a numeric column.
func (d *Dataset) Column(name string) ([]float64, bool) {
	v, ok := d.values[name]
	return v, ok
}

// CleanedRecord is one row of a cleaned dataset with the standard columns.
type CleanedRecord struct {
	Index        int
	Timestamp    time.Time
	MonthlyOpen  float64
	MonthlyHigh  float64
	MonthlyLow   float64
	MonthlyClose float64
	Volume       float64
	MarketCap    float64
}

// Records materializes typed rows. It fails with a schema error when one of
// the standard columns is absent.
func (d *Dataset) Records() ([]CleanedRecord, error) {
	cols := make(map[string][]float64, 6)
	for _, name := range []string{ColumnMonthlyOpen, ColumnMonthlyHigh, ColumnMonthlyLow, ColumnMonthlyClose, ColumnVolume, ColumnMarketCap} {
		v, ok := d.values[name]
		if !ok {
			return nil, Errorf(KindSchema, "records", "missing column %q", name).WithAsset(d.Asset).WithField(name)
		}
		cols[name] = v
	}
	out := make([]CleanedRecord, d.Len())
	for i := range out {
		out[i] = CleanedRecord{
			Index:        i,
			Timestamp:    d.Dates[i],
			MonthlyOpen:  cols[ColumnMonthlyOpen][i],
			MonthlyHigh:  cols[ColumnMonthlyHigh][i],
			MonthlyLow:   cols[ColumnMonthlyLow][i],
			MonthlyClose: cols[ColumnMonthlyClose][i],
			Volume:       cols[ColumnVolume][i],
			MarketCap:    cols[ColumnMarketCap][i],
		}
	}
	return out, nil
}
