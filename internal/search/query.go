package search

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"

	"github.com/justyntemme/chex/internal/fs"
)

// Query describes one search. Zero values disable the corresponding filter.
type Query struct {
	Pattern        string
	Regex          bool
	CaseSensitive  bool
	Content        bool       // also look for Pattern inside text files
	Extensions     []string   // lowercase, no dot; "" matches extensionless names
	MinSize        *int64     // inclusive
	MaxSize        *int64     // inclusive
	ModifiedAfter  *time.Time // inclusive
	ModifiedBefore *time.Time // inclusive
	MaxDepth       int        // 0 means unlimited; 1 is the root's children
}

// DefaultMaxContentBytes caps how much of a file is read for content search.
const DefaultMaxContentBytes = 10 << 20

// Matcher is a compiled Query. It is safe for concurrent use.
type Matcher struct {
	query   Query
	nameRe  *regexp.Regexp // regex mode
	glob    string         // glob mode, folded unless case sensitive
	substr  string         // substring mode, folded unless case sensitive
	content *regexp.Regexp // nil unless Content is set and Pattern is not empty
	exts    map[string]bool

	// MaxContentBytes overrides DefaultMaxContentBytes when > 0.
	MaxContentBytes int64
}

// Compile validates the query and builds its matchers once.
func (q Query) Compile() (*Matcher, error) {
	m := &Matcher{query: q}

	switch {
	case q.Pattern == "":
	case q.Regex:
		expr := q.Pattern
		if !q.CaseSensitive {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fs.NewError("compile", q.Pattern, fs.ErrInvalidPattern, err)
		}
		m.nameRe = re
	case strings.ContainsAny(q.Pattern, "*?["):
		if !doublestar.ValidatePattern(q.Pattern) {
			return nil, fs.NewError("compile", q.Pattern, fs.ErrInvalidPattern, nil)
		}
		m.glob = m.fold(q.Pattern)
	default:
		m.substr = m.fold(q.Pattern)
	}

	if q.Content && q.Pattern != "" {
		if m.nameRe != nil {
			m.content = m.nameRe
		} else {
			expr := regexp.QuoteMeta(q.Pattern)
			if !q.CaseSensitive {
				expr = "(?i)" + expr
			}
			m.content = regexp.MustCompile(expr)
		}
	}

	if len(q.Extensions) > 0 {
		m.exts = make(map[string]bool, len(q.Extensions))
		for _, ext := range q.Extensions {
			m.exts[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
		}
	}
	return m, nil
}

// Query returns the query the matcher was compiled from.
func (m *Matcher) Query() Query {
	return m.query
}

func (m *Matcher) fold(s string) string {
	if m.query.CaseSensitive {
		return s
	}
	// Casers are stateful, one per call.
	return cases.Fold().String(s)
}

// MatchName reports whether name satisfies the pattern.
func (m *Matcher) MatchName(name string) bool {
	switch {
	case m.nameRe != nil:
		return m.nameRe.MatchString(name)
	case m.glob != "":
		ok, _ := doublestar.Match(m.glob, m.fold(name))
		return ok
	case m.substr != "":
		return strings.Contains(m.fold(name), m.substr)
	}
	return true
}

// MatchExtension reports whether name passes the extension filter.
func (m *Matcher) MatchExtension(name string) bool {
	if m.exts == nil {
		return true
	}
	return m.exts[fs.Extension(name)]
}

// MatchFileMeta applies the size and modification bounds. Only regular files
// are subject to them.
func (m *Matcher) MatchFileMeta(size int64, modTime time.Time) bool {
	q := m.query
	if q.MinSize != nil && size < *q.MinSize {
		return false
	}
	if q.MaxSize != nil && size > *q.MaxSize {
		return false
	}
	if q.ModifiedAfter != nil && modTime.Before(*q.ModifiedAfter) {
		return false
	}
	if q.ModifiedBefore != nil && modTime.After(*q.ModifiedBefore) {
		return false
	}
	return true
}

func (m *Matcher) maxContent() int64 {
	if m.MaxContentBytes > 0 {
		return m.MaxContentBytes
	}
	return DefaultMaxContentBytes
}

// Parse turns a search box string into a Query.
// Examples:
//   - "report" -> name contains "report"
//   - "*.go" -> name glob
//   - "ext:pdf,txt" -> extension filter ("ext:" alone selects extensionless files)
//   - "size:>1MB" -> larger than 1 MiB
//   - "modified:>=2024-01-01" or "modified:<week"
//   - "content:hello" -> content search for "hello"
//   - "regex:^a.*z$" and "case:" toggle pattern modes
//   - "depth:2" limits recursion
func Parse(input string) (Query, error) {
	var q Query
	var words []string

	for _, part := range splitRespectingQuotes(strings.TrimSpace(input)) {
		idx := strings.Index(part, ":")
		if idx <= 0 {
			words = append(words, part)
			continue
		}
		directive := strings.ToLower(part[:idx])
		value := strings.Trim(part[idx+1:], "\"'")

		switch directive {
		case "filename", "name", "file":
			words = append(words, value)

		case "contents", "content", "text", "body":
			q.Content = true
			if value != "" {
				words = append(words, value)
			}

		case "regex", "re":
			q.Regex = true
			if value != "" {
				words = append(words, value)
			}

		case "case":
			q.CaseSensitive = value == "" || parseBool(value)

		case "ext", "extension", "type":
			for _, ext := range strings.Split(value, ",") {
				q.Extensions = append(q.Extensions, strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), ".")))
			}

		case "depth", "recursive":
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return Query{}, fs.NewError("parse", part, fs.ErrInvalidPattern, err)
			}
			q.MaxDepth = n

		case "size":
			op, num := parseOperator(value)
			n, err := parseSize(num)
			if err != nil {
				return Query{}, fs.NewError("parse", part, fs.ErrInvalidPattern, err)
			}
			applySize(&q, op, n)

		case "modified", "date", "mtime":
			op, ds := parseOperator(value)
			t, err := parseDate(ds, time.Now())
			if err != nil {
				return Query{}, fs.NewError("parse", part, fs.ErrInvalidPattern, err)
			}
			applyDate(&q, op, t)

		default:
			words = append(words, part)
		}
	}

	q.Pattern = strings.Join(words, " ")
	return q, nil
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

func splitRespectingQuotes(s string) []string {
	var parts []string
	var current strings.Builder
	inQuotes := false
	quoteChar := rune(0)

	for _, r := range s {
		switch {
		case (r == '"' || r == '\'') && !inQuotes:
			inQuotes = true
			quoteChar = r
		case r == quoteChar && inQuotes:
			inQuotes = false
			quoteChar = 0
		case r == ' ' && !inQuotes:
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

// Operator is a comparison prefix on size and date directives.
type Operator int

const (
	OpEquals Operator = iota
	OpGreater
	OpLess
	OpGreaterEq
	OpLessEq
)

func parseOperator(s string) (Operator, string) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, ">="):
		return OpGreaterEq, strings.TrimSpace(s[2:])
	case strings.HasPrefix(s, "<="):
		return OpLessEq, strings.TrimSpace(s[2:])
	case strings.HasPrefix(s, ">"):
		return OpGreater, strings.TrimSpace(s[1:])
	case strings.HasPrefix(s, "<"):
		return OpLess, strings.TrimSpace(s[1:])
	case strings.HasPrefix(s, "="):
		return OpEquals, strings.TrimSpace(s[1:])
	default:
		return OpEquals, s
	}
}

// parseSize reads KB/MB/GB as powers of 1024 and defers anything else
// ("1.5 GiB", "2TB", "300") to humanize.
func parseSize(s string) (int64, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))

	multiplier := float64(0)
	num := upper
	switch {
	case strings.HasSuffix(upper, "GB"):
		multiplier, num = 1<<30, upper[:len(upper)-2]
	case strings.HasSuffix(upper, "MB"):
		multiplier, num = 1<<20, upper[:len(upper)-2]
	case strings.HasSuffix(upper, "KB"):
		multiplier, num = 1<<10, upper[:len(upper)-2]
	}
	if multiplier > 0 {
		n, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid size %q", s)
		}
		return int64(n * multiplier), nil
	}

	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return int64(n), nil
}

func applySize(q *Query, op Operator, n int64) {
	switch op {
	case OpGreater:
		v := n + 1
		q.MinSize = &v
	case OpGreaterEq:
		q.MinSize = &n
	case OpLess:
		v := n - 1
		q.MaxSize = &v
	case OpLessEq:
		q.MaxSize = &n
	default:
		lo, hi := n, n
		q.MinSize, q.MaxSize = &lo, &hi
	}
}

// parseDate understands absolute dates and the relative words today,
// yesterday, week, month and year.
func parseDate(s string, now time.Time) (time.Time, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	switch s {
	case "today":
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), nil
	case "yesterday":
		y, m, d := now.AddDate(0, 0, -1).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), nil
	case "week":
		return now.AddDate(0, 0, -7), nil
	case "month":
		return now.AddDate(0, -1, 0), nil
	case "year":
		return now.AddDate(-1, 0, 0), nil
	}

	layouts := []string{
		time.RFC3339,
		"2006-01-02",
		"2006-01",
		"2006/01/02",
		"01/02/2006",
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func applyDate(q *Query, op Operator, t time.Time) {
	switch op {
	case OpGreater:
		v := t.Add(time.Nanosecond)
		q.ModifiedAfter = &v
	case OpGreaterEq:
		q.ModifiedAfter = &t
	case OpLess:
		v := t.Add(-time.Nanosecond)
		q.ModifiedBefore = &v
	case OpLessEq:
		q.ModifiedBefore = &t
	default:
		// Equality means the whole calendar day.
		y, m, d := t.Date()
		start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
		end := start.AddDate(0, 0, 1).Add(-time.Nanosecond)
		q.ModifiedAfter, q.ModifiedBefore = &start, &end
	}
}
