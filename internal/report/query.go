package report

import (
	"strings"

	"github.com/jonathanbglass/cloudauditor/internal/domain"
)

// Build assembles base, an optional filter and the order clause into one
// statement. The filter lands in the top-level WHERE of base: an existing
// condition is parenthesized and joined with AND, otherwise a WHERE is added
// ahead of any GROUP BY, HAVING or LIMIT tail.
func Build(base string, filter *Predicate, order OrderBy) domain.Statement {
	base = strings.TrimRight(strings.TrimSpace(base), ";")

	var sb strings.Builder
	var args []any
	if filter != nil && filter.SQL != "" {
		writeFiltered(&sb, base, filter.SQL)
		args = append(args, filter.Args...)
	} else {
		sb.WriteString(base)
	}

	if clause := order.SQL(); clause != "" {
		sb.WriteString(" ")
		sb.WriteString(clause)
	}

	return domain.Statement{SQL: sb.String(), Args: args}
}

func writeFiltered(sb *strings.Builder, base, cond string) {
	clauses := scanClauses(base)

	if clauses.where < 0 {
		head := strings.TrimSpace(base[:clauses.tail])
		sb.WriteString(head)
		sb.WriteString(" WHERE ")
		sb.WriteString(cond)
		writeTail(sb, base[clauses.tail:])
		return
	}

	kwEnd := clauses.where + len("where")
	sb.WriteString(base[:kwEnd])
	sb.WriteString(" (")
	sb.WriteString(strings.TrimSpace(base[kwEnd:clauses.tail]))
	sb.WriteString(") AND (")
	sb.WriteString(cond)
	sb.WriteString(")")
	writeTail(sb, base[clauses.tail:])
}

func writeTail(sb *strings.Builder, tail string) {
	if tail = strings.TrimSpace(tail); tail != "" {
		sb.WriteString(" ")
		sb.WriteString(tail)
	}
}

// topLevelClauses locates the parts of a SELECT that matter for filtering.
// where is the offset of the top-level WHERE keyword or -1. tail is the
// offset of the first top-level clause that must follow WHERE, or len(sql).
type topLevelClauses struct {
	where    int
	tail     int
	compound bool
}

// tailKeywords end a WHERE condition. "group" and "order" count only when
// followed by "by".
var tailKeywords = map[string]bool{
	"having": true, "window": true, "limit": true, "offset": true, "fetch": true,
	"union": true, "intersect": true, "except": true,
}

var compoundKeywords = map[string]bool{"union": true, "intersect": true, "except": true}

// scanClauses walks the top level of sql, skipping parenthesized groups,
// quoted strings and identifiers, and comments.
func scanClauses(sql string) topLevelClauses {
	c := topLevelClauses{where: -1, tail: len(sql)}
	words := topLevelWords(sql)

	for i, w := range words {
		isTail := tailKeywords[w.text] ||
			((w.text == "group" || w.text == "order") && i+1 < len(words) && words[i+1].text == "by")
		switch {
		case compoundKeywords[w.text]:
			c.compound = true
		case w.text == "where" && c.where < 0 && c.tail == len(sql):
			c.where = w.pos
			continue
		}
		if isTail && c.tail == len(sql) {
			c.tail = w.pos
		}
	}
	return c
}

type sqlWord struct {
	text string
	pos  int
}

func topLevelWords(sql string) []sqlWord {
	var words []sqlWord
	depth := 0
	for i := 0; i < len(sql); {
		ch := sql[i]
		switch {
		case ch == '\'' || ch == '"' || ch == '`':
			i = skipQuoted(sql, i, ch)
		case ch == '-' && strings.HasPrefix(sql[i:], "--"):
			if end := strings.IndexByte(sql[i:], '\n'); end >= 0 {
				i += end + 1
			} else {
				i = len(sql)
			}
		case ch == '/' && strings.HasPrefix(sql[i:], "/*"):
			if end := strings.Index(sql[i+2:], "*/"); end >= 0 {
				i += end + 4
			} else {
				i = len(sql)
			}
		case ch == '(':
			depth++
			i++
		case ch == ')':
			if depth > 0 {
				depth--
			}
			i++
		case isWordByte(ch):
			start := i
			for i < len(sql) && isWordByte(sql[i]) {
				i++
			}
			if depth == 0 {
				words = append(words, sqlWord{text: strings.ToLower(sql[start:i]), pos: start})
			}
		default:
			i++
		}
	}
	return words
}

// skipQuoted returns the offset just past the quoted run starting at i.
// A doubled quote character is an escaped quote.
func skipQuoted(sql string, i int, q byte) int {
	for j := i + 1; j < len(sql); j++ {
		if sql[j] != q {
			continue
		}
		if j+1 < len(sql) && sql[j+1] == q {
			j++
			continue
		}
		return j + 1
	}
	return len(sql)
}

func isWordByte(b byte) bool {
	return b == '_' || b == '$' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

// Statement builds the statement for one request against d.
func (d *Definition) Statement(sort SortResolution, filter FilterState) domain.Statement {
	var pred *Predicate
	if p, ok := filter.Predicate(d.Filter); ok {
		pred = &p
	}
	stmt := Build(d.Base, pred, sort.OrderBy)
	stmt.Intent = "query report " + d.Name
	return stmt
}
