package stats

import (
	"bytes"
	"testing"
)

func TestTextTableAlignsColumns(t *testing.T) {
	tbl := newTextTable(column{header: "Category"}, column{header: "Score", right: true}, column{header: "Raw", right: true})
	tbl.add("Linking", "0.50", "12")
	tbl.add("Missed words", "1.00", "3")

	lines := tbl.lines()
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Category     Score Raw" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "Linking       0.50  12" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "Missed words  1.00   3" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestTextTableWideRunes(t *testing.T) {
	tbl := newTextTable(column{header: "Phrase"}, column{header: "N"})
	tbl.add("日本", "1")
	tbl.add("ab", "2")

	lines := tbl.lines()
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	// "日本" occupies four cells, so "ab" is padded to match.
	if lines[1] != "日本   1" {
		t.Fatalf("unexpected wide row: %q", lines[1])
	}
	if lines[2] != "ab     2" {
		t.Fatalf("unexpected narrow row: %q", lines[2])
	}
}

func TestTextTableWrite(t *testing.T) {
	tbl := newTextTable(column{header: "Phrase"}, column{header: "Count", right: true})
	tbl.add("want to", "2")

	var buf bytes.Buffer
	if err := tbl.write(&buf, "Most Missed"); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := "Most Missed\nPhrase  Count\nwant to     2\n\n"
	if buf.String() != want {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestTextTableEmpty(t *testing.T) {
	if lines := newTextTable().lines(); lines != nil {
		t.Fatalf("expected no lines, got %q", lines)
	}
}
