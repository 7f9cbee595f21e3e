package insight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/verte-zerg/hearback/internal/align"
	"github.com/verte-zerg/hearback/internal/feedback"
)

func sampleEvent() align.Event {
	res := align.New().Align("I want to go home", "I want go home")
	return res.Events[0]
}

func TestKeyDigest(t *testing.T) {
	a := Key{EventID: "missing:2-3:-1--1", Reference: "i want to go", Hypothesis: "i want go", Locale: "en"}
	b := a
	if a.Digest() != b.Digest() {
		t.Fatal("equal keys produced different digests")
	}
	if len(a.Digest()) != 64 {
		t.Fatalf("digest length = %d, want 64", len(a.Digest()))
	}
	c := Key{EventID: "ab", Reference: "c"}
	d := Key{EventID: "a", Reference: "bc"}
	if c.Digest() == d.Digest() {
		t.Fatal("shifted field boundaries collided")
	}
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache()
	key := Key{EventID: "e1", Reference: "r", Hypothesis: "h", Locale: "en"}
	if _, ok, err := c.Get(key); ok || err != nil {
		t.Fatalf("empty cache Get = %v, %v", ok, err)
	}
	if err := c.Put(key, Insight{EventID: "e1", Label: "Missed"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	in, ok, err := c.Get(key)
	if err != nil || !ok {
		t.Fatalf("Get after Put = %v, %v", ok, err)
	}
	if in.Label != "Missed" {
		t.Fatalf("label = %q", in.Label)
	}
	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Fatalf("stats = %d hits %d misses, want 1/1", hits, misses)
	}
	if c.Len() != 1 {
		t.Fatalf("len = %d", c.Len())
	}
}

func TestDiskCacheRoundTrip(t *testing.T) {
	c, err := OpenDiskCache(filepath.Join(t.TempDir(), "insights"))
	if err != nil {
		t.Fatalf("OpenDiskCache: %v", err)
	}
	key := Key{EventID: "e1", Reference: "i want to go", Hypothesis: "i want go", Locale: "en"}
	want := Insight{
		EventID:   "e1",
		Category:  feedback.Linking,
		Label:     feedback.Linking.Label(),
		Expected:  "to",
		Phrase:    "want to",
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	if err := c.Put(key, want); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := c.Get(key)
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v", ok, err)
	}
	if got.Category != want.Category || got.Phrase != want.Phrase || !got.CreatedAt.Equal(want.CreatedAt) {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	other := key
	other.Locale = "de"
	if _, ok, err := c.Get(other); ok || err != nil {
		t.Fatalf("different key Get = %v, %v", ok, err)
	}

	if err := c.DropAll(); err != nil {
		t.Fatalf("DropAll: %v", err)
	}
	if _, ok, _ := c.Get(key); ok {
		t.Fatal("entry survived DropAll")
	}
	if err := c.Put(key, want); err != nil {
		t.Fatalf("Put after DropAll: %v", err)
	}
}

func TestDiskCacheIgnoresOtherSchema(t *testing.T) {
	c, err := OpenDiskCache(t.TempDir())
	if err != nil {
		t.Fatalf("OpenDiskCache: %v", err)
	}
	key := Key{EventID: "e1"}
	p := c.pathFor(key.Digest())
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	raw, err := msgpack.Marshal(&diskPayload{Schema: diskSchemaVersion + 1, Key: key})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, raw, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := c.Get(key); ok || err != nil {
		t.Fatalf("stale schema Get = %v, %v", ok, err)
	}

	if err := os.WriteFile(p, []byte{0xc1}, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := c.Get(key); err == nil {
		t.Fatal("expected decode error for corrupt entry")
	}
}

func TestTemplateEnricher(t *testing.T) {
	ev := sampleEvent()
	req := NewRequest("I want to go home", "I want go home", ev, feedback.Linking, false)
	fixed := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	in, err := TemplateEnricher{Now: func() time.Time { return fixed }}.Enrich(context.Background(), req)
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if in.Phrase != "want to" {
		t.Fatalf("phrase = %q", in.Phrase)
	}
	if in.Summary != `missed "to" in "want to" (Linking)` {
		t.Fatalf("summary = %q", in.Summary)
	}
	if !in.CreatedAt.Equal(fixed) {
		t.Fatalf("created = %v", in.CreatedAt)
	}
	if req.Key.Locale != DefaultLocale || req.Key.EventID != ev.ID {
		t.Fatalf("unexpected key %+v", req.Key)
	}
}

func TestServiceEnrichesOncePerKey(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	enricher := EnricherFunc(func(ctx context.Context, req Request) (Insight, error) {
		calls.Add(1)
		<-release
		return Insight{EventID: req.Key.EventID, Summary: "ok"}, nil
	})
	cache := NewMemoryCache()
	svc := NewService(cache, enricher)
	req := NewRequest("ref", "hyp", align.Event{ID: "missing:0-1:-1--1"}, feedback.Missed, false)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			in, err := svc.Lookup(context.Background(), req)
			if err != nil {
				errs <- err
				return
			}
			if in.Summary != "ok" {
				errs <- errors.New("wrong insight")
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}

	if _, err := svc.Lookup(context.Background(), req); err != nil {
		t.Fatalf("cached Lookup: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("enricher calls = %d, want 1", got)
	}
	if cache.Len() != 1 {
		t.Fatalf("cache len = %d, want 1", cache.Len())
	}
}

func TestServicePropagatesEnrichError(t *testing.T) {
	boom := errors.New("boom")
	svc := NewService(NewMemoryCache(), EnricherFunc(func(context.Context, Request) (Insight, error) {
		return Insight{}, boom
	}))
	_, err := svc.Lookup(context.Background(), Request{Key: Key{EventID: "x"}})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}

func TestServiceHonoursCancellation(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	svc := NewService(NewMemoryCache(), EnricherFunc(func(context.Context, Request) (Insight, error) {
		<-release
		return Insight{}, nil
	}))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := svc.Lookup(ctx, Request{Key: Key{EventID: "slow"}})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestServiceWithDiskCache(t *testing.T) {
	dc, err := OpenDiskCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	svc := NewService(dc, nil)
	req := NewRequest("I want to go home", "I want go home", sampleEvent(), feedback.Linking, false)
	first, err := svc.Lookup(context.Background(), req)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	again := NewService(dc, EnricherFunc(func(context.Context, Request) (Insight, error) {
		return Insight{}, errors.New("should hit the cache")
	}))
	second, err := again.Lookup(context.Background(), req)
	if err != nil {
		t.Fatalf("second Lookup: %v", err)
	}
	if first.Summary != second.Summary {
		t.Fatalf("summaries differ: %q vs %q", first.Summary, second.Summary)
	}
}
