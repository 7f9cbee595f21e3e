package align

import (
	"fmt"
	"strings"

	"github.com/verte-zerg/hearback/internal/phrase"
)

// EventKind is the reportable kind of an event.
type EventKind string

// Event kinds.
const (
	EventMissing      EventKind = "missing"
	EventSubstitution EventKind = "substitution"
	EventExtra        EventKind = "extra"
)

// Event groups adjacent non-correct operations of the same kind into one
// reportable span. RefStart == RefEnd for extra words, marking where in the
// reference they were inserted. HasHyp is false for missing words.
type Event struct {
	ID         string
	Kind       EventKind
	RefStart   int
	RefEnd     int
	HypStart   int
	HypEnd     int
	HasHyp     bool
	Expected   string
	Observed   string
	Confidence float64
	Hint       *phrase.Span
}

// RefLen returns the number of reference tokens the event covers.
func (e Event) RefLen() int {
	return e.RefEnd - e.RefStart
}

// HypLen returns the number of hypothesis tokens the event covers.
func (e Event) HypLen() int {
	if !e.HasHyp {
		return 0
	}
	return e.HypEnd - e.HypStart
}

// PhraseSpan returns the widest reference span known for the event: the
// phrase hint when present, otherwise the event's own span.
func (e Event) PhraseSpan() (start, end int) {
	if e.Hint != nil {
		return e.Hint.Start, e.Hint.End
	}
	return e.RefStart, e.RefEnd
}

// EventID builds the deterministic identifier for an event.
func EventID(kind EventKind, refStart, refEnd, hypStart, hypEnd int) string {
	return fmt.Sprintf("%s:%d-%d:%d-%d", kind, refStart, refEnd, hypStart, hypEnd)
}

// buildEvents walks the operations and emits one event per maximal run of
// same-kind non-correct operations.
func buildEvents(ops []Operation, ref, hyp []string, table *phrase.Table) []Event {
	var events []Event
	nextRef := 0
	for i := 0; i < len(ops); {
		op := ops[i]
		if op.Kind == OpCorrect {
			nextRef = op.RefIdx + 1
			i++
			continue
		}
		j := i + 1
		for j < len(ops) && ops[j].Kind == op.Kind {
			j++
		}
		run := ops[i:j]
		ev := eventForRun(run, nextRef, ref, hyp)
		if ev.Kind != EventExtra && ev.RefLen() == 1 {
			if span := table.Expand(ev.RefStart); span.Widened() {
				ev.Hint = span
			}
		}
		events = append(events, ev)
		if ev.Kind != EventExtra {
			nextRef = ev.RefEnd
		}
		i = j
	}
	return events
}

func eventForRun(run []Operation, nextRef int, ref, hyp []string) Event {
	first, last := run[0], run[len(run)-1]
	var ev Event
	switch first.Kind {
	case OpDeletion:
		ev = Event{
			Kind:     EventMissing,
			RefStart: first.RefIdx,
			RefEnd:   last.RefIdx + 1,
		}
	case OpInsertion:
		ev = Event{
			Kind:     EventExtra,
			RefStart: nextRef,
			RefEnd:   nextRef,
			HypStart: first.HypIdx,
			HypEnd:   last.HypIdx + 1,
			HasHyp:   true,
		}
	default:
		conf := first.Confidence
		for _, op := range run[1:] {
			conf = min(conf, op.Confidence)
		}
		ev = Event{
			Kind:       EventSubstitution,
			RefStart:   first.RefIdx,
			RefEnd:     last.RefIdx + 1,
			HypStart:   first.HypIdx,
			HypEnd:     last.HypIdx + 1,
			HasHyp:     true,
			Confidence: conf,
		}
	}
	ev.Expected = strings.Join(ref[ev.RefStart:ev.RefEnd], " ")
	if ev.HasHyp {
		ev.Observed = strings.Join(hyp[ev.HypStart:ev.HypEnd], " ")
	}
	hypStart, hypEnd := -1, -1
	if ev.HasHyp {
		hypStart, hypEnd = ev.HypStart, ev.HypEnd
	}
	ev.ID = EventID(ev.Kind, ev.RefStart, ev.RefEnd, hypStart, hypEnd)
	return ev
}
