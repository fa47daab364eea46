package search

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/justyntemme/chex/internal/fs"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func matchNames(matches []Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Name
	}
	sort.Strings(out)
	return out
}

func TestSearch_PatternAndExtension(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"report.pdf":             "a",
		"report.txt":             "b",
		"archive/old_report.pdf": "c",
		"summary.pdf":            "d",
	})

	matches, err := Collect(context.Background(), root, Query{Pattern: "report", Extensions: []string{"pdf"}})
	if err != nil {
		t.Fatal(err)
	}
	got := matchNames(matches)
	want := []string{"old_report.pdf", "report.pdf"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestSearch_RootExcludedDirectoriesIncluded(t *testing.T) {
	root := filepath.Join(t.TempDir(), "reports")
	writeTree(t, root, map[string]string{
		"reports-2024/q1.txt": "x",
	})

	matches, err := Collect(context.Background(), root, Query{Pattern: "reports"})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].Name != "reports-2024" || !matches[0].IsDir {
		t.Errorf("expected only the reports-2024 directory, got %+v", matches)
	}
}

func TestSearch_SizeBoundsOnlyApplyToFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"big.log":      strings.Repeat("x", 100),
		"small.log":    "x",
		"logs.d/inner": "x",
	})

	min := int64(50)
	matches, err := Collect(context.Background(), root, Query{Pattern: "log", MinSize: &min})
	if err != nil {
		t.Fatal(err)
	}
	got := matchNames(matches)
	if strings.Join(got, ",") != "big.log,logs.d" {
		t.Errorf("expected [big.log logs.d], got %v", got)
	}
}

func TestSearch_ContentExcerpt(t *testing.T) {
	root := t.TempDir()
	prefix := strings.Repeat("a", 80)
	suffix := strings.Repeat("z", 80)
	writeTree(t, root, map[string]string{
		"notes.txt":  prefix + "NEEDLE" + suffix,
		"needle.txt": "nothing relevant",
		"data.bin":   "NEEDLE in a binary extension",
		"needle.md":  "# needle\n",
	})

	matches, err := Collect(context.Background(), root, Query{Pattern: "needle", Content: true})
	if err != nil {
		t.Fatal(err)
	}
	byName := map[string]Match{}
	for _, m := range matches {
		byName[m.Name] = m
	}

	// Content never filters: notes.txt and data.bin do not match by name.
	if _, ok := byName["notes.txt"]; ok {
		t.Error("notes.txt should not be a result")
	}
	if m, ok := byName["needle.txt"]; !ok || m.Excerpt != "" {
		t.Errorf("needle.txt: expected result without excerpt, got %+v ok=%v", m, ok)
	}
	if m := byName["needle.md"]; m.Excerpt != "# needle\n" {
		t.Errorf("needle.md: expected whole file excerpt, got %q", m.Excerpt)
	}
}

func TestSearch_ContentExcerptWindow(t *testing.T) {
	root := t.TempDir()
	body := strings.Repeat("a", 80) + "target" + strings.Repeat("z", 80) + " target again"
	writeTree(t, root, map[string]string{"target.txt": body})

	matches, err := Collect(context.Background(), root, Query{Pattern: "TARGET", Content: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	want := strings.Repeat("a", 50) + "target" + strings.Repeat("z", 50)
	if matches[0].Excerpt != want {
		t.Errorf("excerpt: expected %q, got %q", want, matches[0].Excerpt)
	}
}

func TestSearch_ContentSkipsBinary(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"needle.txt": "needle\x00\x01\x02\xff\xfe",
	})

	matches, err := Collect(context.Background(), root, Query{Pattern: "needle", Content: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].Excerpt != "" {
		t.Errorf("binary content should give no excerpt, got %+v", matches)
	}
}

func TestExcerpt_Runes(t *testing.T) {
	text := "ééé-hit-ééé"
	start := strings.Index(text, "hit")
	got := Excerpt(text, start, start+3, 2)
	if got != "é-hit-é" {
		t.Errorf("expected rune-aligned excerpt, got %q", got)
	}
	if got := Excerpt("hit", 0, 3, 50); got != "hit" {
		t.Errorf("expected clamped excerpt, got %q", got)
	}
}

func TestSearch_DoesNotFollowSymlinks(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"sub/match.txt": "x"})
	if err := os.Symlink(root, filepath.Join(root, "sub", "loop")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	matches, err := Collect(context.Background(), root, Query{Pattern: "match"})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Errorf("expected exactly one match through a symlink loop, got %d", len(matches))
	}
}

func TestSearch_RootErrors(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"file.txt": "x"})

	_, err := Collect(context.Background(), filepath.Join(root, "missing"), Query{})
	if !errors.Is(err, fs.ErrNotFound) {
		t.Errorf("missing root: expected ErrNotFound, got %v", err)
	}
	_, err = Collect(context.Background(), filepath.Join(root, "file.txt"), Query{})
	if !errors.Is(err, fs.ErrNotADirectory) {
		t.Errorf("file root: expected ErrNotADirectory, got %v", err)
	}
	_, err = Collect(context.Background(), root, Query{Pattern: "(", Regex: true})
	if !errors.Is(err, fs.ErrInvalidPattern) {
		t.Errorf("bad regex: expected ErrInvalidPattern, got %v", err)
	}
}

func TestSearch_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a/b/c.txt": "x", "d.txt": "y"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Collect(ctx, root, Query{})
	if !errors.Is(err, fs.ErrCancelled) {
		t.Errorf("expected ErrCancelled, got %v", err)
	}
}
