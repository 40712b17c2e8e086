package frame

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/go-sif/segments"
	"github.com/go-sif/segments/vec"
	"github.com/tidwall/gjson"
)

const maxJSONLLineSize = 16 * 1024 * 1024

// ReadJSONL builds a Frame from JSON Lines data. Each name is a gjson path
// evaluated against every line; absent and null values become missing values,
// and all other values are stored as their string form. Blank lines are skipped.
func ReadJSONL(key segments.Key, r io.Reader, names []string, chunkSize int) (*Frame, error) {
	values := make([][]string, len(names))
	na := make([][]bool, len(names))
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxJSONLLineSize)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 {
			continue
		}
		if !gjson.Valid(line) {
			return nil, fmt.Errorf("Line %d is not valid JSON", lineNum)
		}
		parsed := gjson.Parse(line)
		for i, name := range names {
			res := parsed.Get(name)
			if !res.Exists() || res.Type == gjson.Null {
				values[i] = append(values[i], "")
				na[i] = append(na[i], true)
			} else {
				values[i] = append(values[i], res.String())
				na[i] = append(na[i], false)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	cols := make([]segments.Column, len(names))
	for i := range names {
		colKey, err := segments.MakeHiddenKey()
		if err != nil {
			return nil, err
		}
		layout := segments.UniformLayout(int64(len(values[i])), chunkSize)
		col, err := vec.New(colKey, layout, values[i], na[i])
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	return New(key, names, cols)
}
