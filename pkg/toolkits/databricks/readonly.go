package databricks

import (
	"context"
	"strings"
)

// QueryInterceptor inspects or rewrites SQL before it is submitted.
type QueryInterceptor interface {
	Intercept(ctx context.Context, sql, tool string) (string, error)
}

// ReadOnlyInterceptor rejects statements that change data, schema,
// permissions or table storage.
type ReadOnlyInterceptor struct{}

// NewReadOnlyInterceptor creates a new read-only query interceptor.
func NewReadOnlyInterceptor() *ReadOnlyInterceptor {
	return &ReadOnlyInterceptor{}
}

// writeVerbs are the statement verbs refused in read-only mode.
var writeVerbs = map[string]bool{
	"INSERT": true, "UPDATE": true, "DELETE": true, "MERGE": true,
	"CREATE": true, "ALTER": true, "DROP": true, "TRUNCATE": true,
	"GRANT": true, "REVOKE": true, "CALL": true, "EXECUTE": true,
	"COPY": true, "OPTIMIZE": true, "VACUUM": true, "RESTORE": true,
	"REFRESH": true, "MSCK": true,
}

// queryBodyVerbs can follow the common table expressions of a WITH clause.
var queryBodyVerbs = map[string]bool{
	"SELECT": true, "VALUES": true, "TABLE": true, "FROM": true,
	"INSERT": true, "UPDATE": true, "DELETE": true, "MERGE": true,
}

// Intercept returns sql unchanged, or ErrReadOnly for a write statement.
func (*ReadOnlyInterceptor) Intercept(_ context.Context, sql, _ string) (string, error) {
	if isWriteQuery(sql) {
		return "", ErrReadOnly
	}
	return sql, nil
}

func isWriteQuery(sql string) bool {
	return writeVerbs[statementVerb(sql)]
}

// statementVerb returns the keyword that decides what sql does: its first
// top-level word, or for WITH the first query verb after the CTEs.
func statementVerb(sql string) string {
	verb := ""
	first := true
	scanTopLevelWords(sql, func(word string) bool {
		if first {
			first = false
			verb = word
			return word == "WITH"
		}
		if queryBodyVerbs[word] {
			verb = word
			return false
		}
		return true
	})
	return verb
}

// scanTopLevelWords calls fn with each upper-cased word of sql that sits
// outside comments, quotes and parentheses, until fn returns false.
func scanTopLevelWords(sql string, fn func(word string) bool) {
	depth := 0
	for i := 0; i < len(sql); {
		c := sql[i]
		switch {
		case strings.HasPrefix(sql[i:], "--"):
			i = skipPast(sql, i+2, "\n")
		case strings.HasPrefix(sql[i:], "/*"):
			i = skipPast(sql, i+2, "*/")
		case c == '\'' || c == '"' || c == '`':
			i = skipPast(sql, i+1, string(c))
		case c == '(':
			depth++
			i++
		case c == ')':
			if depth > 0 {
				depth--
			}
			i++
		case isWordByte(c):
			j := i
			for j < len(sql) && isWordByte(sql[j]) {
				j++
			}
			if depth == 0 && !fn(strings.ToUpper(sql[i:j])) {
				return
			}
			i = j
		default:
			i++
		}
	}
}

// skipPast returns the index just after the next end at or after from, or
// len(s) when there is none.
func skipPast(s string, from int, end string) int {
	if k := strings.Index(s[from:], end); k >= 0 {
		return from + k + len(end)
	}
	return len(s)
}

func isWordByte(c byte) bool {
	return c == '_' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9'
}

var _ QueryInterceptor = (*ReadOnlyInterceptor)(nil)
