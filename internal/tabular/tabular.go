// Package tabular reads feature matrices from CSV and writes prediction CSVs.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hupe1980/flowsig"
)

// PredictionColumn is the header of the prediction CSV.
const PredictionColumn = "y_pred"

var (
	// ErrNoHeader is returned for an empty CSV input.
	ErrNoHeader = errors.New("tabular: missing header row")

	// ErrUnknownColumn is returned when Select or Drop names a column
	// that is not in the header.
	ErrUnknownColumn = errors.New("tabular: unknown column")

	// ErrNoColumns is returned when column selection leaves nothing.
	ErrNoColumns = errors.New("tabular: no feature columns selected")
)

// CellError reports a cell that is not a number.
// Row is the 0-based data row, not counting the header.
type CellError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *CellError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("tabular: row %d column %q: empty cell", e.Row, e.Column)
	}
	return fmt.Sprintf("tabular: row %d column %q: cannot parse %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *CellError) Unwrap() error { return e.Err }

// Options configures ReadCSV.
type Options struct {
	// Select keeps only these columns, in this order. Empty keeps all.
	Select []string
	// Drop removes these columns after Select is applied.
	Drop []string
	// Comma is the field delimiter. Zero means ','.
	Comma rune
}

// ReadCSV reads a CSV with a header row into a matrix.
// It returns the names of the kept columns in matrix column order.
func ReadCSV(r io.Reader, opts Options) ([]string, flowsig.Matrix, error) {
	cr := csv.NewReader(r)
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, ErrNoHeader
	}
	if err != nil {
		return nil, nil, fmt.Errorf("tabular: read header: %w", err)
	}
	header = trimAll(header)

	cols, err := selectColumns(header, opts)
	if err != nil {
		return nil, nil, err
	}

	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = header[c]
	}

	var x flowsig.Matrix
	for row := 0; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("tabular: row %d: %w", row, err)
		}

		v := make([]float64, len(cols))
		for i, c := range cols {
			cell := strings.TrimSpace(rec[c])
			if cell == "" {
				return nil, nil, &CellError{Row: row, Column: names[i]}
			}
			f, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, nil, &CellError{Row: row, Column: names[i], Value: cell, Err: err}
			}
			v[i] = f
		}
		x = append(x, v)
	}

	return names, x, nil
}

func trimAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.TrimSpace(s)
	}
	return out
}

// selectColumns returns the header indices to keep.
func selectColumns(header []string, opts Options) ([]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}

	var cols []int
	if len(opts.Select) == 0 {
		cols = make([]int, len(header))
		for i := range header {
			cols[i] = i
		}
	} else {
		for _, name := range opts.Select {
			i, ok := index[name]
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
			}
			cols = append(cols, i)
		}
	}

	if len(opts.Drop) > 0 {
		drop := make(map[int]struct{}, len(opts.Drop))
		for _, name := range opts.Drop {
			i, ok := index[name]
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
			}
			drop[i] = struct{}{}
		}

		kept := cols[:0]
		for _, c := range cols {
			if _, ok := drop[c]; !ok {
				kept = append(kept, c)
			}
		}
		cols = kept
	}

	if len(cols) == 0 {
		return nil, ErrNoColumns
	}
	return cols, nil
}

// WritePredictions writes one y_pred row per verdict: 0 normal, 1 anomalous.
func WritePredictions(w io.Writer, verdicts []flowsig.Verdict) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{PredictionColumn}); err != nil {
		return err
	}

	rec := make([]string, 1)
	for _, v := range verdicts {
		rec[0] = strconv.Itoa(int(v))
		if err := cw.Write(rec); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadPredictions reads a file written by WritePredictions.
func ReadPredictions(r io.Reader) ([]flowsig.Verdict, error) {
	_, x, err := ReadCSV(r, Options{Select: []string{PredictionColumn}})
	if err != nil {
		return nil, err
	}

	out := make([]flowsig.Verdict, len(x))
	for i, row := range x {
		switch row[0] {
		case 0:
			out[i] = flowsig.Normal
		case 1:
			out[i] = flowsig.Anomalous
		default:
			return nil, &CellError{Row: i, Column: PredictionColumn, Value: strconv.FormatFloat(row[0], 'g', -1, 64), Err: strconv.ErrRange}
		}
	}
	return out, nil
}
