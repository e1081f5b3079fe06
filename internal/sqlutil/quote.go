// Package sqlutil provides SQL dialect helpers for corpfetch.
package sqlutil

import (
	"regexp"
	"strconv"
	"strings"
)

// Dialect selects identifier quoting and placeholder style.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectMySQL    Dialect = "mysql"
	DialectPostgres Dialect = "postgres"
)

// QuoteIdentifier quotes an identifier (table name, column name) for the dialect.
// MySQL uses backticks; SQLite and PostgreSQL use double quotes.
// Embedded quote characters are escaped by doubling them.
// Example: (mysql, "my_table") -> "`my_table`"
// Example: (sqlite, `my"table`) -> `"my""table"`
func QuoteIdentifier(d Dialect, name string) string {
	if d == DialectMySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// validIdentifierRegex restricts identifiers to alphanumeric and underscore.
var validIdentifierRegex = regexp.MustCompile("^[a-zA-Z0-9_]+$")

// IsValidIdentifier checks if a name is a usable identifier in every dialect.
// It validates that the name only contains alphanumeric characters and underscores.
func IsValidIdentifier(name string) bool {
	return validIdentifierRegex.MatchString(name)
}

// QuoteIdentifierSafe quotes an identifier after validating it.
// Returns an error if the identifier contains invalid characters.
func QuoteIdentifierSafe(d Dialect, name string) (string, error) {
	if !IsValidIdentifier(name) {
		return "", &InvalidIdentifierError{Name: name}
	}
	return QuoteIdentifier(d, name), nil
}

// QuoteList quotes each name and joins them with ", ".
func QuoteList(d Dialect, names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = QuoteIdentifier(d, n)
	}
	return strings.Join(quoted, ", ")
}

// Placeholders returns n bind parameters joined with ", ".
// PostgreSQL uses $1..$n; the others use ?.
func Placeholders(d Dialect, n int) string {
	if n <= 0 {
		return ""
	}
	parts := make([]string, n)
	for i := range parts {
		if d == DialectPostgres {
			parts[i] = "$" + strconv.Itoa(i+1)
		} else {
			parts[i] = "?"
		}
	}
	return strings.Join(parts, ", ")
}

// InvalidIdentifierError is returned when an identifier contains invalid characters.
type InvalidIdentifierError struct {
	Name string
}

func (e *InvalidIdentifierError) Error() string {
	return "invalid identifier: " + e.Name + " (must contain only alphanumeric characters and underscores)"
}
