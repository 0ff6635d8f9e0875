package postgres

import (
	"fmt"
	"strings"
)

// MergePolicy says how a column resolves an upsert conflict: summed into the
// stored value or overwritten by it. Windowed stat deltas use Add; snapshot
// metadata like referred-user counts and referral heights use Replace.
type MergePolicy int

const (
	MergeAdd MergePolicy = iota + 1
	MergeReplace
)

// Column is one non-key column of an upsert with its merge policy.
type Column struct {
	Name   string
	Policy MergePolicy
}

// UpsertSpec describes a batch upsert: the table, its conflict-key columns,
// and the merge policy of every other column. Values are always bound as
// numbered placeholders; only column and table identifiers declared in code
// reach the statement text.
type UpsertSpec struct {
	Table   string
	Keys    []string
	Columns []Column
}

// SQL compiles the spec into one INSERT ... ON CONFLICT ... DO UPDATE
// statement. Argument order is keys first, then columns, matching Args.
func (s UpsertSpec) SQL() string {
	names := make([]string, 0, len(s.Keys)+len(s.Columns))
	names = append(names, s.Keys...)
	for _, c := range s.Columns {
		names = append(names, c.Name)
	}

	placeholders := make([]string, len(names))
	for i := range names {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	assignments := make([]string, 0, len(s.Columns))
	for _, c := range s.Columns {
		switch c.Policy {
		case MergeAdd:
			assignments = append(assignments,
				fmt.Sprintf("%s = %s.%s + EXCLUDED.%s", c.Name, s.Table, c.Name, c.Name))
		default:
			assignments = append(assignments,
				fmt.Sprintf("%s = EXCLUDED.%s", c.Name, c.Name))
		}
	}

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		s.Table,
		strings.Join(names, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(s.Keys, ", "),
		strings.Join(assignments, ", "),
	)
}
