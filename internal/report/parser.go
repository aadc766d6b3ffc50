// Package report turns the free-text delivery and restock reports sent in by
// drivers into typed records.
//
// Reports use a line-pair layout: a field name on one line, its value on the
// next. Blank lines are ignored.
package report

import (
	"database/sql"
	"math"
	"strconv"
	"strings"
)

// Fields is the raw field mapping of a report. A nil value means the report
// carried the literal null.
type Fields map[string]*string

// ParseFields splits a line-pair report into its fields. A trailing field name
// without a value is dropped.
func ParseFields(text string) Fields {
	var lines []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}

	fields := make(Fields, len(lines)/2)
	for i := 0; i+1 < len(lines); i += 2 {
		name, value := lines[i], lines[i+1]
		if strings.EqualFold(value, "null") {
			fields[name] = nil
			continue
		}
		v := value
		fields[name] = &v
	}
	return fields
}

// Require returns the value of a field, failing if it is absent or null
func (f Fields) Require(name string) (string, error) {
	v, ok := f[name]
	if !ok || v == nil {
		return "", &MissingFieldError{Field: name}
	}
	return *v, nil
}

// RequireAll checks presence of every named field, reporting the first missing one
func (f Fields) RequireAll(names ...string) error {
	for _, name := range names {
		if _, ok := f[name]; !ok {
			return &MissingFieldError{Field: name}
		}
	}
	return nil
}

// Float returns a field as a nullable float. Null, missing and non-numeric
// values all yield an invalid result so one bad reading does not reject the
// report.
func (f Fields) Float(name string) sql.NullFloat64 {
	v, ok := f[name]
	if !ok || v == nil {
		return sql.NullFloat64{}
	}
	return ParseNumber(*v)
}

// ParseNumber parses a numeric reading. NaN and infinities count as no value.
func ParseNumber(s string) sql.NullFloat64 {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: n, Valid: true}
}
