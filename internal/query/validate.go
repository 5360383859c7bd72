// Package query validates and executes read-only SQL against a live
// backend session, enforcing row caps and deadlines.
package query

import (
	"regexp"
	"strings"

	"github.com/datascout-labs/datascout/internal/dberr"
)

// allowedPrefixes are the statement forms the read-only guard accepts.
var allowedPrefixes = []string{"SELECT", "WITH", "SHOW", "DESCRIBE", "DESC", "EXPLAIN"}

// dangerousKeywords are DML/DDL keywords rejected anywhere in the
// statement after string literals and comments are stripped. The word
// boundary pattern avoids false positives on identifiers like
// updated_at.
var dangerousKeywords = []struct {
	re   *regexp.Regexp
	word string
}{
	{regexp.MustCompile(`(?i)(?:^|[^a-zA-Z_])INSERT(?:[^a-zA-Z_]|$)`), "INSERT"},
	{regexp.MustCompile(`(?i)(?:^|[^a-zA-Z_])UPDATE(?:[^a-zA-Z_]|$)`), "UPDATE"},
	{regexp.MustCompile(`(?i)(?:^|[^a-zA-Z_])DELETE(?:[^a-zA-Z_]|$)`), "DELETE"},
	{regexp.MustCompile(`(?i)(?:^|[^a-zA-Z_])REPLACE(?:[^a-zA-Z_]|$)`), "REPLACE"},
	{regexp.MustCompile(`(?i)(?:^|[^a-zA-Z_])MERGE(?:[^a-zA-Z_]|$)`), "MERGE"},
	{regexp.MustCompile(`(?i)(?:^|[^a-zA-Z_])DROP(?:[^a-zA-Z_]|$)`), "DROP"},
	{regexp.MustCompile(`(?i)(?:^|[^a-zA-Z_])CREATE(?:[^a-zA-Z_]|$)`), "CREATE"},
	{regexp.MustCompile(`(?i)(?:^|[^a-zA-Z_])ALTER(?:[^a-zA-Z_]|$)`), "ALTER"},
	{regexp.MustCompile(`(?i)(?:^|[^a-zA-Z_])TRUNCATE(?:[^a-zA-Z_]|$)`), "TRUNCATE"},
	{regexp.MustCompile(`(?i)(?:^|[^a-zA-Z_])GRANT(?:[^a-zA-Z_]|$)`), "GRANT"},
	{regexp.MustCompile(`(?i)(?:^|[^a-zA-Z_])REVOKE(?:[^a-zA-Z_]|$)`), "REVOKE"},
	{regexp.MustCompile(`(?i)(?:^|[^a-zA-Z_])CALL(?:[^a-zA-Z_]|$)`), "CALL"},
	{regexp.MustCompile(`(?i)(?:^|[^a-zA-Z_])EXEC(?:[^a-zA-Z_]|$)`), "EXEC"},
	{regexp.MustCompile(`(?i)(?:^|[^a-zA-Z_])LOCK(?:[^a-zA-Z_]|$)`), "LOCK"},
}

// setStatement matches SET as a statement head only, so columns named
// e.g. offset_set pass.
var setStatement = regexp.MustCompile(`(?i)(?:^|;)\s*SET\b`)

// ValidateReadOnly rejects any statement that is not a safe read.
// Literals and comments are stripped before keyword scanning so values
// like 'DROP TABLE' in a WHERE clause do not trip the guard.
func ValidateReadOnly(sqlText string) error {
	trimmed := strings.TrimSpace(sqlText)
	if trimmed == "" {
		return dberr.New(dberr.UnsafeQuery, "empty query")
	}

	upper := strings.ToUpper(trimmed)
	ok := false
	for _, prefix := range allowedPrefixes {
		if strings.HasPrefix(upper, prefix+" ") || strings.HasPrefix(upper, prefix+"\n") ||
			strings.HasPrefix(upper, prefix+"\t") || strings.HasPrefix(upper, prefix+"(") || upper == prefix {
			ok = true
			break
		}
	}
	if !ok {
		return dberr.New(dberr.UnsafeQuery, "only SELECT, WITH, SHOW, DESCRIBE and EXPLAIN statements are allowed")
	}

	cleaned := stripLiteralsAndComments(trimmed)

	if idx := strings.Index(cleaned, ";"); idx >= 0 {
		if strings.TrimSpace(cleaned[idx+1:]) != "" {
			return dberr.New(dberr.UnsafeQuery, "multiple statements are not allowed")
		}
	}

	for _, dk := range dangerousKeywords {
		if dk.re.MatchString(cleaned) {
			return dberr.New(dberr.UnsafeQuery, "query contains forbidden keyword: %s", dk.word)
		}
	}

	if setStatement.MatchString(cleaned) {
		return dberr.New(dberr.UnsafeQuery, "SET statements are not allowed")
	}

	return nil
}

// stripLiteralsAndComments replaces string literals with '' and removes
// SQL comments, so keyword scanning only sees structural text. Handles
// -- and # line comments, /* */ blocks, single/double quoted literals
// with doubled-quote and backslash escapes, and backtick identifiers.
func stripLiteralsAndComments(sql string) string {
	var result strings.Builder
	i := 0
	n := len(sql)

	for i < n {
		if i+1 < n && sql[i] == '-' && sql[i+1] == '-' {
			for i < n && sql[i] != '\n' {
				i++
			}
			result.WriteByte(' ')
			continue
		}

		if sql[i] == '#' {
			for i < n && sql[i] != '\n' {
				i++
			}
			result.WriteByte(' ')
			continue
		}

		if i+1 < n && sql[i] == '/' && sql[i+1] == '*' {
			i += 2
			for i+1 < n && !(sql[i] == '*' && sql[i+1] == '/') {
				i++
			}
			i += 2
			result.WriteByte(' ')
			continue
		}

		if sql[i] == '\'' || sql[i] == '"' {
			quote := sql[i]
			i++
			for i < n {
				if sql[i] == quote {
					if i+1 < n && sql[i+1] == quote {
						i += 2
						continue
					}
					i++
					break
				}
				if sql[i] == '\\' && i+1 < n {
					i += 2
					continue
				}
				i++
			}
			result.WriteByte(quote)
			result.WriteByte(quote)
			continue
		}

		if sql[i] == '`' {
			i++
			for i < n && sql[i] != '`' {
				i++
			}
			i++
			result.WriteString("``")
			continue
		}

		result.WriteByte(sql[i])
		i++
	}

	return result.String()
}

// limitClause detects a trailing LIMIT (or FETCH FIRST) on the outermost
// statement. The bound may be a literal or a placeholder (?, :name, $1,
// @p). Detection runs on the stripped text so literals containing the
// word do not count.
var limitClause = regexp.MustCompile(`(?i)\bLIMIT\s+(?:\d+|\?|[:$@]\w+)|\bFETCH\s+FIRST\b`)

// HasLimitClause reports whether the statement already caps its own
// result set.
func HasLimitClause(sqlText string) bool {
	return limitClause.MatchString(stripLiteralsAndComments(sqlText))
}
