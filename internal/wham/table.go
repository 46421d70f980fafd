package wham

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// Row is one line of the solver's output table: a point of the solver's own
// grid with its free energy and probability.
type Row struct {
	X   float64
	Y   float64
	E   float64
	Pro float64
}

// LoadPMFTable parses the solver's whitespace-delimited output table. The
// single header line is skipped. Rows whose energy is infinite or NaN mark
// regions the solver never sampled and are dropped; they carry no reading.
// Row order is preserved for the remaining rows.
func LoadPMFTable(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open solver output: %w", err)
	}
	defer f.Close()

	var rows []Row
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo == 1 {
			continue // header
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return nil, fmt.Errorf("solver output line %d: expected 4 columns, got %d", lineNo, len(fields))
		}
		var vals [4]float64
		for i := 0; i < 4; i++ {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, fmt.Errorf("solver output line %d column %d: %w", lineNo, i+1, err)
			}
			vals[i] = v
		}
		if math.IsInf(vals[2], 0) || math.IsNaN(vals[2]) {
			continue // unsampled region marker
		}
		rows = append(rows, Row{X: vals[0], Y: vals[1], E: vals[2], Pro: vals[3]})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read solver output: %w", err)
	}
	return rows, nil
}
