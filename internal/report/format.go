package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	textTimeLayout = "2006-01-02 15:04:05"
	dateLayout     = "2006-01-02"
)

// FormatCell renders v as text according to the column format.
// Multi-value cells are joined with sep.
func FormatCell(col ColumnSpec, v any, sep string) string {
	switch col.Format {
	case FormatAccountID:
		if id, ok := AccountIDFromValue(v); ok {
			return id.String()
		}
		return textValue(v)
	case FormatDate:
		return dateValue(v)
	case FormatBool:
		if v == nil {
			return ""
		}
		if truthy(v) {
			return "True"
		}
		return "False"
	case FormatMultiValue:
		return strings.Join(MultiValues(v), sep)
	default:
		return textValue(v)
	}
}

// MultiValues returns the distinct values of a multi-value cell,
// compared case-insensitively, in first-seen order.
func MultiValues(v any) []string {
	var in []string
	switch vals := v.(type) {
	case nil:
		return nil
	case []string:
		in = vals
	case []any:
		in = make([]string, 0, len(vals))
		for _, x := range vals {
			if x != nil {
				in = append(in, textValue(x))
			}
		}
	default:
		in = []string{textValue(v)}
	}

	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

func textValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(textTimeLayout)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func dateValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case time.Time:
		return x.Format(dateLayout)
	default:
		s := textValue(v)
		if i := strings.IndexAny(s, " T"); i > 0 {
			return s[:i]
		}
		return s
	}
}

func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case int64:
		return x != 0
	case int:
		return x != 0
	case int32:
		return x != 0
	case float64:
		return x != 0
	case string:
		return isTrueString(x)
	case []byte:
		return isTrueString(string(x))
	default:
		return false
	}
}

func isTrueString(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "t", "true", "1", "y", "yes":
		return true
	default:
		return false
	}
}
