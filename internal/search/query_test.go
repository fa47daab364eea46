package search

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/justyntemme/chex/internal/fs"
)

func TestParse_Empty(t *testing.T) {
	q, err := Parse("   ")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(q, Query{}) {
		t.Errorf("expected zero query, got %+v", q)
	}
}

func TestParse_Directives(t *testing.T) {
	q, err := Parse(`report ext:pdf,.TXT size:>=1KB content: case: depth:3`)
	if err != nil {
		t.Fatal(err)
	}
	if q.Pattern != "report" {
		t.Errorf("Pattern: got %q", q.Pattern)
	}
	if !reflect.DeepEqual(q.Extensions, []string{"pdf", "txt"}) {
		t.Errorf("Extensions: got %v", q.Extensions)
	}
	if q.MinSize == nil || *q.MinSize != 1024 || q.MaxSize != nil {
		t.Errorf("size bounds: got %v %v", q.MinSize, q.MaxSize)
	}
	if !q.Content || !q.CaseSensitive || q.Regex {
		t.Errorf("flags: content=%v case=%v regex=%v", q.Content, q.CaseSensitive, q.Regex)
	}
	if q.MaxDepth != 3 {
		t.Errorf("MaxDepth: got %d", q.MaxDepth)
	}
}

func TestParse_QuotedValues(t *testing.T) {
	q, err := Parse(`"annual report" content:"total revenue"`)
	if err != nil {
		t.Fatal(err)
	}
	if q.Pattern != "annual report total revenue" || !q.Content {
		t.Errorf("got pattern=%q content=%v", q.Pattern, q.Content)
	}
}

func TestParse_RegexAndEmptyExt(t *testing.T) {
	q, err := Parse(`regex:^a.*z$ ext:`)
	if err != nil {
		t.Fatal(err)
	}
	if !q.Regex || q.Pattern != "^a.*z$" {
		t.Errorf("got regex=%v pattern=%q", q.Regex, q.Pattern)
	}
	if !reflect.DeepEqual(q.Extensions, []string{""}) {
		t.Errorf("empty ext should select extensionless names, got %v", q.Extensions)
	}
}

func TestParse_SizeOperators(t *testing.T) {
	testCases := []struct {
		input    string
		min, max int64 // -1 means unset
	}{
		{"size:>1KB", 1025, -1},
		{"size:>=1KB", 1024, -1},
		{"size:<1MB", -1, 1<<20 - 1},
		{"size:<=1MB", -1, 1 << 20},
		{"size:100", 100, 100},
		{"size:>1.5GB", 1<<30 + 1<<29 + 1, -1},
		{"size:<=2 MiB", -1, 2 << 20},
	}
	for _, tc := range testCases {
		q, err := Parse(`"` + tc.input + `"`)
		if err != nil {
			t.Errorf("Parse(%q): %v", tc.input, err)
			continue
		}
		if got := ptrOr(q.MinSize); got != tc.min {
			t.Errorf("Parse(%q) MinSize: expected %d, got %d", tc.input, tc.min, got)
		}
		if got := ptrOr(q.MaxSize); got != tc.max {
			t.Errorf("Parse(%q) MaxSize: expected %d, got %d", tc.input, tc.max, got)
		}
	}
}

func ptrOr(p *int64) int64 {
	if p == nil {
		return -1
	}
	return *p
}

func TestParse_Modified(t *testing.T) {
	q, err := Parse("modified:>=2024-01-01")
	if err != nil {
		t.Fatal(err)
	}
	if q.ModifiedAfter == nil || q.ModifiedAfter.Year() != 2024 || q.ModifiedBefore != nil {
		t.Errorf("got after=%v before=%v", q.ModifiedAfter, q.ModifiedBefore)
	}

	q, err = Parse("modified:2024-03-15")
	if err != nil {
		t.Fatal(err)
	}
	if q.ModifiedAfter == nil || q.ModifiedBefore == nil {
		t.Fatal("equality should set both bounds")
	}
	if got := q.ModifiedBefore.Sub(*q.ModifiedAfter); got != 24*time.Hour-time.Nanosecond {
		t.Errorf("equality should span one day, got %v", got)
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, input := range []string{"size:>lots", "modified:<someday", "depth:-1"} {
		if _, err := Parse(input); !errors.Is(err, fs.ErrInvalidPattern) {
			t.Errorf("Parse(%q): expected ErrInvalidPattern, got %v", input, err)
		}
	}
}

func TestParseDate_Relative(t *testing.T) {
	now := time.Date(2024, 6, 15, 13, 30, 0, 0, time.UTC)
	testCases := []struct {
		input    string
		expected time.Time
	}{
		{"today", time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)},
		{"yesterday", time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)},
		{"week", now.AddDate(0, 0, -7)},
		{"month", now.AddDate(0, -1, 0)},
		{"year", now.AddDate(-1, 0, 0)},
		{"2024-01", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range testCases {
		got, err := parseDate(tc.input, now)
		if err != nil {
			t.Errorf("parseDate(%q): %v", tc.input, err)
			continue
		}
		if !got.Equal(tc.expected) {
			t.Errorf("parseDate(%q): expected %v, got %v", tc.input, tc.expected, got)
		}
	}
}

func TestSplitRespectingQuotes(t *testing.T) {
	testCases := []struct {
		input    string
		expected []string
	}{
		{"foo bar", []string{"foo", "bar"}},
		{`"foo bar" baz`, []string{"foo bar", "baz"}},
		{`'single quoted'`, []string{"single quoted"}},
		{"  spaced   out  ", []string{"spaced", "out"}},
		{"", nil},
	}
	for _, tc := range testCases {
		if got := splitRespectingQuotes(tc.input); !reflect.DeepEqual(got, tc.expected) {
			t.Errorf("splitRespectingQuotes(%q): expected %v, got %v", tc.input, tc.expected, got)
		}
	}
}

func TestCompile_InvalidRegex(t *testing.T) {
	_, err := Query{Pattern: "(unclosed", Regex: true}.Compile()
	if !errors.Is(err, fs.ErrInvalidPattern) {
		t.Errorf("expected ErrInvalidPattern, got %v", err)
	}
	_, err = Query{Pattern: "[abc"}.Compile()
	if !errors.Is(err, fs.ErrInvalidPattern) {
		t.Errorf("bad glob: expected ErrInvalidPattern, got %v", err)
	}
}

func TestMatcher_MatchName(t *testing.T) {
	testCases := []struct {
		query    Query
		name     string
		expected bool
	}{
		{Query{}, "anything", true},
		{Query{Pattern: "Report"}, "old_report.pdf", true},
		{Query{Pattern: "Report", CaseSensitive: true}, "old_report.pdf", false},
		{Query{Pattern: "*.go"}, "main.GO", true},
		{Query{Pattern: "*.go", CaseSensitive: true}, "main.GO", false},
		{Query{Pattern: "main.?o"}, "main.go", true},
		{Query{Pattern: "^re.*\\.pdf$", Regex: true}, "REPORT.pdf", true},
		{Query{Pattern: "^re.*\\.pdf$", Regex: true, CaseSensitive: true}, "REPORT.pdf", false},
		{Query{Pattern: "école"}, "ÉCOLE.txt", true},
	}
	for _, tc := range testCases {
		m, err := tc.query.Compile()
		if err != nil {
			t.Fatalf("Compile(%+v): %v", tc.query, err)
		}
		if got := m.MatchName(tc.name); got != tc.expected {
			t.Errorf("MatchName(%q) with %+v: expected %v, got %v", tc.name, tc.query, tc.expected, got)
		}
	}
}

func TestMatcher_MatchExtension(t *testing.T) {
	m, err := Query{Extensions: []string{"pdf", ""}}.Compile()
	if err != nil {
		t.Fatal(err)
	}
	testCases := map[string]bool{
		"a.pdf":    true,
		"a.PDF":    true,
		"Makefile": true,
		".bashrc":  true,
		"a.txt":    false,
	}
	for name, expected := range testCases {
		if got := m.MatchExtension(name); got != expected {
			t.Errorf("MatchExtension(%q): expected %v, got %v", name, expected, got)
		}
	}
}

func TestMatcher_MatchFileMeta(t *testing.T) {
	lo, hi := int64(10), int64(20)
	after := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	before := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	m, err := Query{MinSize: &lo, MaxSize: &hi, ModifiedAfter: &after, ModifiedBefore: &before}.Compile()
	if err != nil {
		t.Fatal(err)
	}
	mid := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	testCases := []struct {
		size     int64
		mod      time.Time
		expected bool
	}{
		{10, mid, true},
		{20, mid, true},
		{9, mid, false},
		{21, mid, false},
		{15, after, true},
		{15, before, true},
		{15, after.Add(-time.Second), false},
		{15, before.Add(time.Second), false},
	}
	for _, tc := range testCases {
		if got := m.MatchFileMeta(tc.size, tc.mod); got != tc.expected {
			t.Errorf("MatchFileMeta(%d, %v): expected %v, got %v", tc.size, tc.mod, tc.expected, got)
		}
	}
}
