package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/hearback/internal/align"
)

const maskRune = '·'

type styledRune struct {
	s       string
	width   int
	isSpace bool
}

func styleText(text string, style lipgloss.Style) []styledRune {
	out := make([]styledRune, 0, len(text))
	for _, r := range text {
		out = append(out, styledRune{
			s:       style.Render(string(r)),
			width:   runewidth.RuneWidth(r),
			isSpace: r == ' ',
		})
	}
	return out
}

func space() styledRune {
	return styledRune{s: " ", width: 1, isSpace: true}
}

// maskedRunes hides text while keeping the shape of its words. The word at
// index current is highlighted so the learner can follow along.
func maskedRunes(text []rune, current int) []styledRune {
	words := findWords(text)
	cur := wordAt(words, current)

	out := make([]styledRune, 0, len(text))
	for i, r := range text {
		if r == ' ' {
			out = append(out, space())
			continue
		}
		style := pendingStyle
		if cur != nil && i >= cur.start && i < cur.end {
			style = currentWordStyle
		}
		out = append(out, styledRune{
			s:     style.Render(string(maskRune)),
			width: runewidth.RuneWidth(maskRune),
		})
	}
	return out
}

// alignmentRunes renders the reference word by word, styled by how each word
// was reproduced. Substituted words are followed by what was typed, extra
// words are shown with a leading "+".
func alignmentRunes(res align.Result) []styledRune {
	ref, hyp := res.RefWords(), res.HypWords()
	out := make([]styledRune, 0, len(ref)*6)
	for _, op := range res.Operations {
		if len(out) > 0 {
			out = append(out, space())
		}
		switch op.Kind {
		case align.OpCorrect:
			out = append(out, styleText(ref[op.RefIdx], correctStyle)...)
		case align.OpSubstitution:
			out = append(out, styleText(ref[op.RefIdx], incorrectStyle)...)
			out = append(out, styleText("("+hyp[op.HypIdx]+")", pendingStyle)...)
		case align.OpDeletion:
			out = append(out, styleText(ref[op.RefIdx], missingStyle)...)
		case align.OpInsertion:
			out = append(out, styleText("+"+hyp[op.HypIdx], extraStyle)...)
		}
	}
	return out
}

type wordRange struct {
	start int
	end   int
}

func findWords(targetRunes []rune) []wordRange {
	words := []wordRange{}
	start := -1
	for i, r := range targetRunes {
		if r == ' ' {
			if start != -1 {
				words = append(words, wordRange{start: start, end: i})
				start = -1
			}
			continue
		}
		if start == -1 {
			start = i
		}
	}
	if start != -1 {
		words = append(words, wordRange{start: start, end: len(targetRunes)})
	}
	return words
}

func wordAt(words []wordRange, idx int) *wordRange {
	if idx < 0 || len(words) == 0 {
		return nil
	}
	if idx >= len(words) {
		return &words[len(words)-1]
	}
	return &words[idx]
}

func renderStyledRunes(runes []styledRune) string {
	var b strings.Builder
	for _, item := range runes {
		b.WriteString(item.s)
	}
	return b.String()
}

func wrapStyledRunes(runes []styledRune, width int) string {
	if width <= 0 {
		return renderStyledRunes(runes)
	}
	var out strings.Builder
	line := make([]styledRune, 0, len(runes))
	lineWidth := 0
	lastSpaceIdx := -1

	for i := 0; i < len(runes); {
		item := runes[i]
		if lineWidth+item.width > width && len(line) > 0 {
			if lastSpaceIdx >= 0 {
				out.WriteString(renderStyledRunes(line[:lastSpaceIdx]))
				out.WriteRune('\n')
				line = append([]styledRune{}, line[lastSpaceIdx+1:]...)
				lineWidth = lineWidthOf(line)
				lastSpaceIdx = lastSpaceIndex(line)
			} else {
				out.WriteString(renderStyledRunes(line))
				out.WriteRune('\n')
				line = line[:0]
				lineWidth = 0
				lastSpaceIdx = -1
			}
			continue
		}
		line = append(line, item)
		lineWidth += item.width
		if item.isSpace {
			lastSpaceIdx = len(line) - 1
		}
		i++
	}
	out.WriteString(renderStyledRunes(line))
	return out.String()
}

func lineWidthOf(line []styledRune) int {
	total := 0
	for _, item := range line {
		total += item.width
	}
	return total
}

func lastSpaceIndex(line []styledRune) int {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i].isSpace {
			return i
		}
	}
	return -1
}
