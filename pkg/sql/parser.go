package sql

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"slabindex/pkg/common"
)

// ScanStmt is a parsed range query over the location index.
type ScanStmt struct {
	Table string
	Where *WhereClause
	Limit int // -1 when no LIMIT was given
}

type WhereClause struct {
	Field string
	Op    string
	Value uint64
}

var selectRe = regexp.MustCompile(`(?i)^SELECT\s+\*\s+FROM\s+([a-zA-Z_][a-zA-Z0-9_]*)(?:\s+WHERE\s+([a-zA-Z_][a-zA-Z0-9_]*)\s*(=|>=|>)\s*(\d+))?(?:\s+LIMIT\s+(\d+))?\s*;?\s*$`)

// Parse parses simple range queries:
// "SELECT * FROM locations"
// "SELECT * FROM locations WHERE key >= 100"
// "SELECT * FROM locations LIMIT 10"
// "SELECT * FROM locations WHERE key > 100 LIMIT 10"
// Only lower bounds (=, >=, >) are supported because the index scans upward.
func Parse(s string) (*ScanStmt, error) {
	orig := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), ";"))
	if orig == "" {
		return nil, errors.New("empty query")
	}

	matches := selectRe.FindStringSubmatch(orig)
	if matches == nil {
		return nil, errors.New("syntax: expected SELECT * FROM locations [WHERE key =|>=|> <uint>] [LIMIT <n>]")
	}
	table := strings.ToLower(strings.TrimSpace(matches[1]))
	if table != "locations" && table != "index" {
		return nil, errors.New("unknown table: " + table)
	}

	stmt := &ScanStmt{
		Table: table,
		Limit: -1,
	}

	if matches[2] != "" {
		field := strings.ToLower(strings.TrimSpace(matches[2]))
		if field != "key" {
			return nil, errors.New("only WHERE key is supported")
		}
		whereVal, err := strconv.ParseUint(matches[4], 10, 64)
		if err != nil {
			return nil, errors.New("invalid WHERE value")
		}
		if matches[3] == ">" && whereVal == ^uint64(0) {
			return nil, errors.New("WHERE key > max uint64 matches nothing")
		}
		stmt.Where = &WhereClause{
			Field: field,
			Op:    matches[3],
			Value: whereVal,
		}
	}

	if matches[5] != "" {
		limitVal, err := strconv.Atoi(matches[5])
		if err != nil || limitVal < 0 {
			return nil, errors.New("invalid LIMIT value")
		}
		stmt.Limit = limitVal
	}

	return stmt, nil
}

// From returns the first sort key the scan should start at.
func (stmt *ScanStmt) From() common.SortKey {
	if stmt.Where == nil {
		return 0
	}
	if stmt.Where.Op == ">" {
		return common.SortKey(stmt.Where.Value + 1)
	}
	return common.SortKey(stmt.Where.Value)
}

// Bound returns the scan bound, using def when the query had no LIMIT. An
// equality query never needs more than one entry per partition, so it is
// capped at workers.
func (stmt *ScanStmt) Bound(def, workers int) int {
	bound := stmt.Limit
	if bound < 0 {
		bound = def
	}
	if stmt.Where != nil && stmt.Where.Op == "=" && bound > workers {
		bound = workers
	}
	return bound
}

// Match reports whether a scanned key satisfies the WHERE clause. Scans are
// lower-bound only, so this matters for "=".
func (stmt *ScanStmt) Match(key common.SortKey) bool {
	if stmt.Where == nil {
		return true
	}
	v := common.SortKey(stmt.Where.Value)
	switch stmt.Where.Op {
	case "=":
		return key == v
	case ">":
		return key > v
	case ">=":
		return key >= v
	default:
		return false
	}
}
