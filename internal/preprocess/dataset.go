package preprocess

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Dataset is a numeric table read from the training CSV. Missing cells are NaN.
type Dataset struct {
	Columns []string
	Rows    [][]float64

	index map[string]int
}

// ReadCSV parses a headered CSV of numeric cells. Empty, NA and NaN cells are
// treated as missing.
func ReadCSV(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	ds := &Dataset{Columns: make([]string, len(header)), index: make(map[string]int, len(header))}
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, dup := ds.index[name]; dup {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		ds.Columns[i] = name
		ds.index[name] = i
	}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		row := make([]float64, len(record))
		for i, cell := range record {
			v, err := parseCell(cell)
			if err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line, ds.Columns[i], err)
			}
			row[i] = v
		}
		ds.Rows = append(ds.Rows, row)
	}

	return ds, nil
}

// ReadCSVFile opens path and reads it with ReadCSV.
func ReadCSVFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

func parseCell(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	switch strings.ToLower(cell) {
	case "", "na", "nan", "null":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(cell, 64)
}

// Has reports whether the dataset carries column name.
func (d *Dataset) Has(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Column returns a copy of one column's values.
func (d *Dataset) Column(name string) ([]float64, error) {
	i, ok := d.index[name]
	if !ok {
		return nil, fmt.Errorf("column %q not in dataset", name)
	}
	out := make([]float64, len(d.Rows))
	for r, row := range d.Rows {
		out[r] = row[i]
	}
	return out, nil
}

// Row returns row r as a named record.
func (d *Dataset) Row(r int) map[string]float64 {
	out := make(map[string]float64, len(d.Columns))
	for i, name := range d.Columns {
		out[name] = d.Rows[r][i]
	}
	return out
}
