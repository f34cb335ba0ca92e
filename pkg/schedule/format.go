package schedule

import (
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	dberr "ccsim/pkg/error"
	"ccsim/pkg/operation"
	"ccsim/pkg/primitives"
)

// Separator joins rendered operations. Output carries no trailing separator.
const Separator = ";"

// Format renders s in the input grammar under the given policy.
func Format(s *Schedule, policy AbortedPolicy) string {
	return FormatOperations(s.Operations(policy))
}

// FormatOperations renders ops as "R1(A);W1(A);C1".
func FormatOperations(ops []operation.Operation) string {
	parts := make([]string, len(ops))
	for i, op := range ops {
		parts[i] = op.String()
	}
	return strings.Join(parts, Separator)
}

// Grid is the tabular view of a schedule: one column per distinct transaction
// id in ascending order, and one row per operation with the token placed in
// its transaction's column.
type Grid struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// MaxGridCells bounds rows times columns of a Grid.
const MaxGridCells = 1 << 20

var tokenPattern = regexp.MustCompile(`([A-Z]+)(\d+)(\(\w*\))?;?`)

// BuildGrid lays a rendered schedule out as a Grid. Tokens are recovered with
// a pattern scan, so text that does not look like an operation is skipped.
// A layout larger than MaxGridCells is refused.
func BuildGrid(output string) (Grid, error) {
	type cell struct {
		id    primitives.TransactionID
		value string
	}

	cells := make([]cell, 0)
	columns := make(map[primitives.TransactionID]int)
	for _, m := range tokenPattern.FindAllStringSubmatch(output, -1) {
		id, err := strconv.Atoi(m[2])
		if err != nil || id <= 0 {
			continue
		}
		tid := primitives.TransactionID(id)
		cells = append(cells, cell{id: tid, value: m[1] + m[2] + m[3]})
		columns[tid] = 0
	}

	if len(cells) > 0 && len(columns) > MaxGridCells/len(cells) {
		return Grid{}, dberr.NewGridTooLargeError(len(cells), len(columns), MaxGridCells)
	}

	ids := slices.Sorted(maps.Keys(columns))
	grid := Grid{
		Headers: make([]string, len(ids)),
		Rows:    make([][]string, len(cells)),
	}
	for i, id := range ids {
		columns[id] = i
		grid.Headers[i] = id.String()
	}
	for i, c := range cells {
		row := make([]string, len(ids))
		row[columns[c.id]] = c.value
		grid.Rows[i] = row
	}
	return grid, nil
}
