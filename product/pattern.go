package product

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"
)

var ErrMissingField = errors.New("product: missing pattern field")

// patternPart is either a literal or a {field} or {field:spec} placeholder.
type patternPart struct {
	literal string

	field string
	spec  string
}

func parsePattern(pattern string) ([]patternPart, error) {
	parts := []patternPart{}

	rest := pattern
	for rest != "" {
		start := strings.IndexByte(rest, '{')
		if start < 0 {
			parts = append(parts, patternPart{literal: rest})
			break
		}

		if start > 0 {
			parts = append(parts, patternPart{literal: rest[:start]})
		}

		end := strings.IndexByte(rest[start:], '}')
		if end < 0 {
			return nil, fmt.Errorf("%w: unterminated field in %q", ErrInvalidConfig, pattern)
		}
		end += start

		field, spec, _ := strings.Cut(rest[start+1:end], ":")
		if field == "" {
			return nil, fmt.Errorf("%w: empty field name in %q", ErrInvalidConfig, pattern)
		}

		parts = append(parts, patternPart{field: field, spec: spec})
		rest = rest[end+1:]
	}

	return parts, nil
}

// compose fills the pattern with the given fields.
// Time fields use the spec as a strftime layout, other fields as a printf verb.
func compose(pattern string, fields map[string]any) (string, error) {
	parts, err := parsePattern(pattern)
	if err != nil {
		return "", err
	}

	b := strings.Builder{}
	for _, part := range parts {
		if part.field == "" {
			b.WriteString(part.literal)
			continue
		}

		value, ok := fields[part.field]
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrMissingField, part.field)
		}

		b.WriteString(formatField(value, part.spec))
	}

	return b.String(), nil
}

func formatField(value any, spec string) string {
	if t, ok := value.(time.Time); ok {
		if spec == "" {
			return t.Format("20060102T150405")
		}
		return strftime.Format(spec, t)
	}

	if spec == "" {
		return fmt.Sprint(value)
	}
	return fmt.Sprintf("%"+spec, value)
}
