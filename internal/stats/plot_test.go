package stats

import (
	"bytes"
	"strings"
	"testing"
)

func TestPlotSeries(t *testing.T) {
	var buf bytes.Buffer
	err := PlotSeries(&buf, "Test Plot", []Series{
		{Name: "A", Values: []float64{1, 2, 3, 2, 1}},
		{Name: "B", Values: []float64{1, 1, 2, 3, 4}},
	}, 5, 4)
	if err != nil {
		t.Fatalf("PlotSeries failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Test Plot") {
		t.Fatalf("expected title in output")
	}
	if !strings.Contains(out, "Scaled per series") {
		t.Fatalf("expected scale note in output")
	}
	if !strings.Contains(out, "Legend:") {
		t.Fatalf("expected legend in output")
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	expectedMin := 1 + 1 + 2 + 4 + 1
	if len(lines) < expectedMin {
		t.Fatalf("expected at least %d lines of output, got %d", expectedMin, len(lines))
	}
}

func TestPlotSeriesForcedColor(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	var buf bytes.Buffer
	err := PlotSeriesWithColor(&buf, "", []Series{
		{Name: "Accuracy", Values: []float64{40, 60, 80}},
	}, 12, 3, true)
	if err != nil {
		t.Fatalf("PlotSeriesWithColor failed: %v", err)
	}
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("expected ANSI color codes in forced color output")
	}

	buf.Reset()
	t.Setenv("NO_COLOR", "1")
	if err := PlotSeriesWithColor(&buf, "", []Series{
		{Name: "Accuracy", Values: []float64{40, 60, 80}},
	}, 12, 3, true); err != nil {
		t.Fatalf("PlotSeriesWithColor failed: %v", err)
	}
	if strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("expected NO_COLOR to disable color output")
	}
}

func TestPlotSeriesSkipsEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := PlotSeries(&buf, "Empty", []Series{{Name: "A"}}, 10, 4); err != nil {
		t.Fatalf("PlotSeries failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output for empty series, got %q", buf.String())
	}
}

func TestPlotSeriesPercentScale(t *testing.T) {
	var buf bytes.Buffer
	err := PlotSeries(&buf, "", []Series{
		{Name: "Accuracy", Values: []float64{50, 75, 100}, Percent: true},
	}, 10, 4)
	if err != nil {
		t.Fatalf("PlotSeries failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, percentNote) {
		t.Fatalf("expected percent note, got:\n%s", out)
	}
	if strings.Contains(out, "min=") {
		t.Fatalf("percent series should not print a range:\n%s", out)
	}
}

func TestPlotSeriesMixedScalesListOnlyRelativeRanges(t *testing.T) {
	var buf bytes.Buffer
	err := PlotSeries(&buf, "", []Series{
		{Name: "Errors", Values: []float64{0, 3, 1}},
		{Name: "Share", Values: []float64{0, 60, 20}, Percent: true},
	}, 10, 4)
	if err != nil {
		t.Fatalf("PlotSeries failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Errors: min=0.00 max=3.00") {
		t.Fatalf("expected range for relative series:\n%s", out)
	}
	if strings.Contains(out, "Share: min=") {
		t.Fatalf("percent series should not print a range:\n%s", out)
	}
}

func TestResample(t *testing.T) {
	if got := resample([]float64{1, 3, 5, 7}, 2); got[0] != 2 || got[1] != 6 {
		t.Fatalf("expected bucket means [2 6], got %v", got)
	}
	got := resample([]float64{0, 10}, 3)
	if len(got) != 3 || got[0] != 0 || got[1] != 5 || got[2] != 10 {
		t.Fatalf("expected interpolation [0 5 10], got %v", got)
	}
	if got := resample([]float64{4}, 3); got[0] != 4 || got[2] != 4 {
		t.Fatalf("expected single value repeated, got %v", got)
	}
	if got := resample(nil, 3); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}

func TestDotRowClamps(t *testing.T) {
	if got := dotRow(100, 0, 100, 8); got != 0 {
		t.Fatalf("expected top row, got %d", got)
	}
	if got := dotRow(0, 0, 100, 8); got != 7 {
		t.Fatalf("expected bottom row, got %d", got)
	}
	if got := dotRow(150, 0, 100, 8); got != 0 {
		t.Fatalf("expected clamp to top, got %d", got)
	}
}
