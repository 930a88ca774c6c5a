package fitctl

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"fitd/internal/common/fsutil"
)

// dataset is the {"X": ..., "y": ...} document accepted by --data.
type dataset struct {
	X [][]float64 `json:"X"`
	Y []any       `json:"y"`
}

// readDataset loads a JSON or CSV file. For CSV, withTarget splits the last
// column off as y; a non-numeric first row is treated as a header.
func readDataset(path string, withTarget bool) (dataset, error) {
	path, err := fsutil.ExpandHome(path)
	if err != nil {
		return dataset{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return dataset{}, err
	}
	defer f.Close()
	if strings.EqualFold(filepath.Ext(path), ".json") {
		var ds dataset
		if err := json.NewDecoder(f).Decode(&ds); err != nil {
			return dataset{}, fmt.Errorf("decode %s: %w", path, err)
		}
		return ds, nil
	}
	return readCSV(f, withTarget)
}

func readCSV(r io.Reader, withTarget bool) (dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return dataset{}, err
	}
	var ds dataset
	for i, rec := range rows {
		cols := rec
		var target string
		if withTarget {
			if len(rec) < 2 {
				return dataset{}, fmt.Errorf("line %d: need at least one feature and a target", i+1)
			}
			cols, target = rec[:len(rec)-1], rec[len(rec)-1]
		}
		row := make([]float64, len(cols))
		ok := true
		for j, c := range cols {
			v, err := strconv.ParseFloat(strings.TrimSpace(c), 64)
			if err != nil {
				ok = false
				break
			}
			row[j] = v
		}
		if !ok {
			if i == 0 {
				continue
			}
			return dataset{}, fmt.Errorf("line %d: non-numeric feature", i+1)
		}
		ds.X = append(ds.X, row)
		if withTarget {
			ds.Y = append(ds.Y, parseTarget(target))
		}
	}
	return ds, nil
}

// parseTarget keeps numeric targets numeric and everything else as a label.
func parseTarget(s string) any {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	return s
}

func parseMatrix(s string) ([][]float64, error) {
	var X [][]float64
	if err := json.Unmarshal([]byte(s), &X); err != nil {
		return nil, fmt.Errorf("--x: %w", err)
	}
	return X, nil
}

func parseTargets(s string) ([]any, error) {
	var y []any
	if err := json.Unmarshal([]byte(s), &y); err != nil {
		return nil, fmt.Errorf("--y: %w", err)
	}
	return y, nil
}

func parseParams(s string) (map[string]any, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var p map[string]any
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return nil, fmt.Errorf("--params: %w", err)
	}
	return p, nil
}
