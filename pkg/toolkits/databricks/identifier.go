package databricks

import (
	"fmt"
	"strings"
)

// QuoteIdentifier quotes a possibly qualified name such as catalog.schema.table
// for Databricks SQL. Each dotted part is wrapped in backticks; parts already
// wrapped in backticks are kept as written, so quoted parts may contain dots.
func QuoteIdentifier(name string) (string, error) {
	parts, err := splitIdentifier(strings.TrimSpace(name))
	if err != nil {
		return "", err
	}
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = "`" + strings.ReplaceAll(p, "`", "``") + "`"
	}
	return strings.Join(quoted, "."), nil
}

// splitIdentifier splits name on dots outside backticks and unescapes
// doubled backticks inside quoted parts.
func splitIdentifier(name string) ([]string, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: identifier is empty", ErrInvalidInput)
	}

	var (
		parts  []string
		cur    strings.Builder
		quoted bool
		closed bool
	)

	flush := func() error {
		part := cur.String()
		if !closed {
			part = strings.TrimSpace(part)
		}
		if part == "" {
			return fmt.Errorf("%w: empty part in identifier %q", ErrInvalidInput, name)
		}
		parts = append(parts, part)
		cur.Reset()
		closed = false
		return nil
	}

	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case quoted && c == '`':
			if i+1 < len(name) && name[i+1] == '`' {
				cur.WriteByte('`')
				i++
				continue
			}
			quoted = false
			closed = true
		case quoted:
			cur.WriteByte(c)
		case c == '`':
			if closed || strings.TrimSpace(cur.String()) != "" {
				return nil, fmt.Errorf("%w: misplaced backtick in identifier %q", ErrInvalidInput, name)
			}
			cur.Reset()
			quoted = true
		case c == '.':
			if err := flush(); err != nil {
				return nil, err
			}
		case closed:
			if c != ' ' {
				return nil, fmt.Errorf("%w: unexpected %q after quoted part in identifier %q", ErrInvalidInput, c, name)
			}
		default:
			if c == ';' {
				return nil, fmt.Errorf("%w: identifier %q contains ';'", ErrInvalidInput, name)
			}
			cur.WriteByte(c)
		}
	}
	if quoted {
		return nil, fmt.Errorf("%w: unterminated backtick in identifier %q", ErrInvalidInput, name)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return parts, nil
}
