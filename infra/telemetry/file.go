package telemetry

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kilianp07/busdepot/core/model"
)

// FileProvider re-reads a CSV or JSON file on every snapshot. The format is
// chosen from the file extension.
type FileProvider struct {
	path string
}

// NewFileProvider returns a provider reading path.
func NewFileProvider(path string) (*FileProvider, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".json":
	default:
		return nil, fmt.Errorf("unsupported telemetry file format: %s", path)
	}
	return &FileProvider{path: path}, nil
}

// Snapshot implements telemetry.Provider.
func (p *FileProvider) Snapshot(ctx context.Context) ([]model.Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(p.path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	if strings.ToLower(filepath.Ext(p.path)) == ".json" {
		return DecodeJSON(f)
	}
	return DecodeCSV(f)
}

// DecodeJSON reads a JSON array of readings.
func DecodeJSON(r io.Reader) ([]model.Reading, error) {
	var out []model.Reading
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode telemetry json: %w", err)
	}
	for i, reading := range out {
		if err := reading.Validate(); err != nil {
			return nil, fmt.Errorf("reading %d: %w", i, err)
		}
	}
	return out, nil
}

// DecodeCSV reads readings from CSV with a bus_id,state_of_charge,
// requires_maintenance header. Column order is taken from the header and the
// maintenance column is optional.
func DecodeCSV(r io.Reader) ([]model.Reading, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	idCol, ok := idx["bus_id"]
	if !ok {
		return nil, fmt.Errorf("csv header missing bus_id")
	}
	socCol, ok := idx["state_of_charge"]
	if !ok {
		return nil, fmt.Errorf("csv header missing state_of_charge")
	}
	maintCol, hasMaint := idx["requires_maintenance"]

	var out []model.Reading
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		soc, err := strconv.ParseFloat(strings.TrimSpace(rec[socCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: state_of_charge: %w", line, err)
		}
		reading := model.Reading{BusID: strings.TrimSpace(rec[idCol]), SoC: soc}
		if hasMaint && strings.TrimSpace(rec[maintCol]) != "" {
			m, err := strconv.ParseBool(strings.TrimSpace(rec[maintCol]))
			if err != nil {
				return nil, fmt.Errorf("line %d: requires_maintenance: %w", line, err)
			}
			reading.RequiresMaintenance = m
		}
		if err := reading.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, reading)
	}
	return out, nil
}
