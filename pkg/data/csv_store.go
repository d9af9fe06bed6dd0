package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/junwei-lu/ashare-backtest/pkg/types"
)

// csvHeader is the durable-tier row layout.
var csvHeader = []string{"date", "open", "high", "low", "close", "volume"}

// CSVStore is the durable cache tier: one CSV file per SeriesKey under root.
// Writes go through a temp file and rename, so a concurrent reader sees either
// the old complete file or the new complete file, never a partial one.
type CSVStore struct {
	root string
}

// NewCSVStore creates the store root if needed.
func NewCSVStore(root string) (*CSVStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", root, err)
	}
	return &CSVStore{root: root}, nil
}

func (s *CSVStore) path(key SeriesKey) string {
	return filepath.Join(s.root, key.Encode()+".csv")
}

// Load reads the cached series for key. The second return value reports
// whether an entry existed.
func (s *CSVStore) Load(key SeriesKey) ([]types.Bar, bool, error) {
	f, err := os.Open(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("open cache file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	if _, err := r.Read(); err != nil {
		return nil, false, fmt.Errorf("read cache header: %w", err)
	}

	var bars []types.Bar
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, fmt.Errorf("read cache row: %w", err)
		}
		bar, err := parseCSVRow(record)
		if err != nil {
			return nil, false, err
		}
		bars = append(bars, bar)
	}
	return bars, true, nil
}

// Store atomically replaces the cached series for key.
func (s *CSVStore) Store(key SeriesKey, bars []types.Bar) error {
	tmp, err := os.CreateTemp(s.root, key.Encode()+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	w := csv.NewWriter(tmp)
	if err := w.Write(csvHeader); err != nil {
		tmp.Close()
		return err
	}
	for _, b := range bars {
		row := []string{
			b.Date.Format(DateFormat),
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatFloat(b.Volume, 'f', -1, 64),
		}
		if err := w.Write(row); err != nil {
			tmp.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, s.path(key))
}

// Remove deletes the durable entry for key, if any.
func (s *CSVStore) Remove(key SeriesKey) error {
	err := os.Remove(s.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Size returns the number of cached series files.
func (s *CSVStore) Size() int {
	matches, err := filepath.Glob(filepath.Join(s.root, "*.csv"))
	if err != nil {
		return 0
	}
	return len(matches)
}

func parseCSVRow(record []string) (types.Bar, error) {
	if len(record) < len(csvHeader) {
		return types.Bar{}, fmt.Errorf("cache row has %d columns, want %d", len(record), len(csvHeader))
	}
	date, err := time.Parse(DateFormat, record[0])
	if err != nil {
		return types.Bar{}, fmt.Errorf("cache row date %q: %w", record[0], err)
	}
	fields := make([]float64, 5)
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(record[i+1], 64)
		if err != nil {
			return types.Bar{}, fmt.Errorf("cache row column %s: %w", csvHeader[i+1], err)
		}
		fields[i] = v
	}
	return types.Bar{
		Date:   date,
		Open:   fields[0],
		High:   fields[1],
		Low:    fields[2],
		Close:  fields[3],
		Volume: fields[4],
	}, nil
}
