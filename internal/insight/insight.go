// Package insight caches per-event enrichment at the host boundary. The
// scoring core stays pure; anything expensive derived from an event is
// computed at most once per key through Service.
package insight

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/verte-zerg/hearback/internal/align"
	"github.com/verte-zerg/hearback/internal/feedback"
)

// DefaultLocale is the only locale the rule tables cover.
const DefaultLocale = "en"

// Key identifies one enrichment.
type Key struct {
	EventID    string `msgpack:"event_id"`
	Reference  string `msgpack:"reference"`
	Hypothesis string `msgpack:"hypothesis"`
	Locale     string `msgpack:"locale"`
}

// Digest returns the hex sha256 of the key fields. Each field is length
// prefixed so distinct keys never share an encoding.
func (k Key) Digest() string {
	h := sha256.New()
	for _, part := range []string{k.EventID, k.Reference, k.Hypothesis, k.Locale} {
		_, _ = fmt.Fprintf(h, "%d:%s;", len(part), part)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Insight is the enrichment stored for an event.
type Insight struct {
	EventID   string            `msgpack:"event_id"`
	Category  feedback.Category `msgpack:"category"`
	Label     string            `msgpack:"label"`
	Expected  string            `msgpack:"expected"`
	Observed  string            `msgpack:"observed"`
	Phrase    string            `msgpack:"phrase"`
	Narrate   bool              `msgpack:"narrate"`
	Summary   string            `msgpack:"summary"`
	CreatedAt time.Time         `msgpack:"created_at"`
}

// Request is what the enricher needs to build an Insight.
type Request struct {
	Key      Key
	Event    align.Event
	Category feedback.Category
	Narrate  bool
}

// NewRequest builds a request for ev in the default locale.
func NewRequest(reference, hypothesis string, ev align.Event, cat feedback.Category, narrate bool) Request {
	return Request{
		Key: Key{
			EventID:    ev.ID,
			Reference:  reference,
			Hypothesis: hypothesis,
			Locale:     DefaultLocale,
		},
		Event:    ev,
		Category: cat,
		Narrate:  narrate,
	}
}
