package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// Series is a named data series for plotting. Percent series are drawn on a
// fixed 0-100 scale; the rest are scaled to their own range.
type Series struct {
	Name    string
	Values  []float64
	Percent bool
}

type lineStyle struct {
	name   string
	period int
	on     int
}

func (ls lineStyle) draws(x int) bool {
	if ls.period <= 1 {
		return true
	}
	return absInt(x)%ls.period < ls.on
}

const (
	defaultPlotHeight   = 10
	minPlotWidth        = 10
	axisLabelTop        = "100%"
	axisLabelMid        = "50%"
	axisLabelBottom     = "0%"
	axisSeparator       = " │ "
	percentNote         = "Percent scale."
	scaleNote           = "Scaled per series; see min/max below."
	terminalWidthBackup = 80
)

var lineStyles = []lineStyle{
	{name: "solid", period: 1, on: 1},
	{name: "dashed", period: 6, on: 3},
	{name: "dotted", period: 4, on: 1},
	{name: "dashdot", period: 8, on: 3},
}

var colorPalette = []color.Attribute{
	color.FgCyan,
	color.FgMagenta,
	color.FgYellow,
	color.FgGreen,
	color.FgBlue,
}

// brailleDots maps a dot position inside a 2x4 braille cell to its bit.
var brailleDots = [2][4]uint8{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

// paint colors s with the palette entry for series idx. Color is forced on
// because callers have already decided whether to use it.
func paint(s string, idx int) string {
	c := color.New(colorPalette[idx%len(colorPalette)])
	c.EnableColor()
	return c.Sprint(s)
}

// PlotSeries renders a multi-line braille plot for the provided series.
func PlotSeries(w io.Writer, title string, series []Series, width, height int) error {
	return plotSeries(w, title, series, width, height, false)
}

// PlotSeriesWithColor renders a braille plot with optional forced color output.
func PlotSeriesWithColor(w io.Writer, title string, series []Series, width, height int, forceColor bool) error {
	return plotSeries(w, title, series, width, height, forceColor)
}

func plotSeries(w io.Writer, title string, series []Series, width, height int, forceColor bool) error {
	series = nonEmpty(series)
	if len(series) == 0 {
		return nil
	}
	if height <= 0 {
		height = defaultPlotHeight
	}
	if width <= 0 {
		width = autoPlotWidth()
	}
	width = max(width, minPlotWidth)

	cv := newCanvas(width, height, len(series))
	ranges := make([][2]float64, len(series))
	for i, s := range series {
		lo, hi := scaleFor(s)
		ranges[i] = [2]float64{lo, hi}
		cv.trace(i, resample(s.Values, width), lo, hi, lineStyles[i%len(lineStyles)])
	}

	useColor := shouldUseColor(w, forceColor)
	var lines []string
	if title != "" {
		lines = append(lines, title)
	}
	if allPercent(series) {
		lines = append(lines, percentNote)
	} else {
		lines = append(lines, scaleNote)
		for i, s := range series {
			if s.Percent {
				continue
			}
			lines = append(lines, fmt.Sprintf("%s: min=%.2f max=%.2f", s.Name, ranges[i][0], ranges[i][1]))
		}
	}
	labels := axisLabels(height)
	axisWidth := runewidth.StringWidth(axisLabelTop)
	for y := 0; y < height; y++ {
		var row strings.Builder
		row.WriteString(runewidth.FillLeft(labels[y], axisWidth))
		row.WriteString(axisSeparator)
		for x := 0; x < width; x++ {
			ch, layer := cv.cell(x, y)
			if useColor && layer >= 0 {
				row.WriteString(paint(string(ch), layer))
			} else {
				row.WriteRune(ch)
			}
		}
		lines = append(lines, row.String())
	}
	lines = append(lines, legend(series, useColor), "")

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func nonEmpty(series []Series) []Series {
	out := make([]Series, 0, len(series))
	for _, s := range series {
		if len(s.Values) > 0 {
			out = append(out, s)
		}
	}
	return out
}

func allPercent(series []Series) bool {
	for _, s := range series {
		if !s.Percent {
			return false
		}
	}
	return true
}

// scaleFor returns the value range a series is drawn against. A flat series
// is widened so it sits in the middle of the plot.
func scaleFor(s Series) (lo, hi float64) {
	if s.Percent {
		return 0, 100
	}
	lo, hi = seriesMinMaxSingle(s.Values)
	if math.Abs(hi-lo) < 1e-9 {
		lo--
		hi++
	}
	return lo, hi
}

// canvas holds one braille layer per series so the first series owning a
// cell decides its color.
type canvas struct {
	width  int
	height int
	layers [][][]uint8
}

func newCanvas(width, height, layers int) *canvas {
	c := &canvas{width: width, height: height, layers: make([][][]uint8, layers)}
	for i := range c.layers {
		rows := make([][]uint8, height)
		for y := range rows {
			rows[y] = make([]uint8, width)
		}
		c.layers[i] = rows
	}
	return c
}

// trace draws values into layer, one value per cell column.
func (c *canvas) trace(layer int, values []float64, lo, hi float64, style lineStyle) {
	dotRows := c.height * 4
	prevX, prevY := -1, -1
	for x, v := range values {
		px, py := x*2, dotRow(v, lo, hi, dotRows)
		if prevX < 0 {
			if style.draws(px) {
				c.dot(layer, px, py)
			}
		} else {
			drawLine(prevX, prevY, px, py, func(dx, dy int) {
				if style.draws(dx) {
					c.dot(layer, dx, dy)
				}
			})
		}
		prevX, prevY = px, py
	}
}

func (c *canvas) dot(layer, x, y int) {
	cx, cy := x/2, y/4
	if x < 0 || y < 0 || cx >= c.width || cy >= c.height {
		return
	}
	c.layers[layer][cy][cx] |= brailleDots[x%2][y%4]
}

// cell merges every layer at (x, y) and reports the first layer present,
// or -1 for an empty cell.
func (c *canvas) cell(x, y int) (rune, int) {
	var mask uint8
	owner := -1
	for i, rows := range c.layers {
		m := rows[y][x]
		if m == 0 {
			continue
		}
		if owner < 0 {
			owner = i
		}
		mask |= m
	}
	return rune(0x2800 + int(mask)), owner
}

// dotRow maps v to a dot row, 0 at the top.
func dotRow(v, lo, hi float64, rows int) int {
	if rows <= 1 {
		return 0
	}
	pos := (v - lo) / (hi - lo)
	row := int(math.Round((1 - pos) * float64(rows-1)))
	return min(max(row, 0), rows-1)
}

func autoPlotWidth() int {
	return PlotWidthFor(terminalWidth())
}

// PlotWidthFor computes a plot width that fits within the total available width.
func PlotWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	axisWidth := runewidth.StringWidth(axisLabelTop) + runewidth.StringWidth(axisSeparator)
	return max(totalWidth-axisWidth, minPlotWidth)
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func shouldUseColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

func axisLabels(height int) []string {
	labels := make([]string, height)
	if height <= 0 {
		return labels
	}
	labels[0] = axisLabelTop
	if height > 2 {
		labels[height/2] = axisLabelMid
	}
	if height > 1 {
		labels[height-1] = axisLabelBottom
	}
	return labels
}

// resample stretches or squeezes values to exactly width points: bucket
// means when shrinking, linear interpolation when growing.
func resample(values []float64, width int) []float64 {
	switch {
	case len(values) == 0 || width <= 0:
		return nil
	case len(values) == width:
		return append([]float64(nil), values...)
	case len(values) > width:
		return bucketMeans(values, width)
	default:
		return interpolate(values, width)
	}
}

func bucketMeans(values []float64, width int) []float64 {
	out := make([]float64, width)
	n := float64(len(values))
	for i := range out {
		start := int(float64(i) * n / float64(width))
		end := min(max(int(float64(i+1)*n/float64(width)), start+1), len(values))
		var sum float64
		for _, v := range values[start:end] {
			sum += v
		}
		out[i] = sum / float64(end-start)
	}
	return out
}

func interpolate(values []float64, width int) []float64 {
	out := make([]float64, width)
	if width == 1 || len(values) == 1 {
		for i := range out {
			out[i] = values[0]
		}
		return out
	}
	last := len(values) - 1
	for i := range out {
		pos := float64(i) * float64(last) / float64(width-1)
		idx := int(math.Floor(pos))
		if idx >= last {
			out[i] = values[last]
			continue
		}
		frac := pos - float64(idx)
		out[i] = values[idx]*(1-frac) + values[idx+1]*frac
	}
	return out
}

func seriesMinMaxSingle(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func legend(series []Series, useColor bool) string {
	parts := make([]string, 0, len(series))
	for i, s := range series {
		label := fmt.Sprintf("%c %s (%s)", rune(0x2801), s.Name, lineStyles[i%len(lineStyles)].name)
		if useColor {
			label = paint(label, i)
		}
		parts = append(parts, label)
	}
	return "Legend: " + strings.Join(parts, "  ")
}

// drawLine walks the Bresenham line from (x0, y0) to (x1, y1).
func drawLine(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx, dy := absInt(x1-x0), -absInt(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
