package crawler

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/nao1215/sitescore/internal/model"
)

// fakeFetcher serves canned results from an in-memory site.
// Fetches are queued and delivered in order by Wait.
type fakeFetcher struct {
	handler FetchHandler
	site    map[string]FetchResult
	queue   []string
	fetched []string
}

func newFakeFactory(site map[string]FetchResult, out **fakeFetcher) FetcherFactory {
	return func(handler FetchHandler) Fetcher {
		f := &fakeFetcher{handler: handler, site: site}
		*out = f
		return f
	}
}

func (f *fakeFetcher) Fetch(rawURL string) error {
	f.queue = append(f.queue, rawURL)
	return nil
}

func (f *fakeFetcher) Wait() {
	for len(f.queue) > 0 {
		next := f.queue[0]
		f.queue = f.queue[1:]
		f.fetched = append(f.fetched, next)

		result, ok := f.site[next]
		if !ok {
			result = FetchResult{Err: errors.New("not found")}
		}
		result.Requested = next
		if result.Resolved == "" {
			result.Resolved = next
		}
		f.handler(result)
	}
}

func keys(r *Registry) []string {
	out := make([]string, 0, r.Len())
	for p := range r.All() {
		out = append(out, p.Key)
	}
	return out
}

// TestSchedulerCrawl tests discovery against an in-memory site.
func TestSchedulerCrawl(t *testing.T) {
	t.Parallel()

	t.Run("fragment variant is deduplicated and capacity stops discovery", func(t *testing.T) {
		t.Parallel()

		site := map[string]FetchResult{
			"https://example.com": {Links: []string{
				"https://example.com/about",
				"https://example.com/about#team",
				"https://example.com/contact",
			}},
			"https://example.com/about": {Links: []string{"https://example.com/careers"}},
		}

		var fetcher *fakeFetcher
		r := NewRegistry(2)
		s := NewScheduler(r, newFakeFactory(site, &fetcher))

		if err := s.Crawl("https://example.com"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{"example.com", "example.com/about"}
		if got := keys(r); !slices.Equal(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
		if s.State() != StateComplete {
			t.Errorf("expected state complete, got %s", s.State())
		}
		if !slices.Equal(fetcher.fetched, []string{"https://example.com", "https://example.com/about"}) {
			t.Errorf("unexpected fetches %v", fetcher.fetched)
		}
	})

	t.Run("ineligible seed drains with zero pages", func(t *testing.T) {
		t.Parallel()

		var fetcher *fakeFetcher
		r := NewRegistry(10)
		s := NewScheduler(r, newFakeFactory(nil, &fetcher))

		if err := s.Crawl("mailto:someone@example.com"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.Len() != 0 {
			t.Errorf("expected no pages, got %d", r.Len())
		}
		if len(fetcher.fetched) != 0 {
			t.Errorf("expected no fetches, got %v", fetcher.fetched)
		}
		if s.State() != StateComplete {
			t.Errorf("expected state complete, got %s", s.State())
		}
	})

	t.Run("failed fetch stays registered and crawling continues", func(t *testing.T) {
		t.Parallel()

		site := map[string]FetchResult{
			"https://example.com": {Links: []string{
				"https://example.com/broken",
				"https://example.com/ok",
			}},
			"https://example.com/ok": {Links: []string{"https://example.com/deep"}},
		}

		var fetcher *fakeFetcher
		r := NewRegistry(10)
		s := NewScheduler(r, newFakeFactory(site, &fetcher))

		if err := s.Crawl("https://example.com"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{"example.com", "example.com/broken", "example.com/ok", "example.com/deep"}
		if got := keys(r); !slices.Equal(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("redirected address is registered without refetch", func(t *testing.T) {
		t.Parallel()

		site := map[string]FetchResult{
			"http://example.com": {Resolved: "https://www.example.com/home", Links: []string{"https://www.example.com/a"}},
		}

		var fetcher *fakeFetcher
		r := NewRegistry(10)
		s := NewScheduler(r, newFakeFactory(site, &fetcher))

		if err := s.Crawl("http://example.com"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{"example.com", "www.example.com/home", "www.example.com/a"}
		if got := keys(r); !slices.Equal(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
		if slices.Contains(fetcher.fetched, "https://www.example.com/home") {
			t.Error("expected resolved address not to be fetched again")
		}
	})

	t.Run("out of scope and ineligible links are dropped", func(t *testing.T) {
		t.Parallel()

		site := map[string]FetchResult{
			"https://example.com": {Links: []string{
				"https://other.com/",
				"mailto:someone@example.com",
				"tel:+18886946735",
				"https://example.com/kept",
			}},
		}

		var fetcher *fakeFetcher
		r := NewRegistry(10)
		s := NewScheduler(r, newFakeFactory(site, &fetcher))

		if err := s.Crawl("https://example.com"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{"example.com", "example.com/kept"}
		if got := keys(r); !slices.Equal(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("external links followed when allowed", func(t *testing.T) {
		t.Parallel()

		site := map[string]FetchResult{
			"https://example.com": {Links: []string{"https://other.com/"}},
		}

		var fetcher *fakeFetcher
		r := NewRegistry(10)
		s := NewScheduler(r, newFakeFactory(site, &fetcher), WithScope(WithExternalLinks(true)))

		if err := s.Crawl("https://example.com"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{"example.com", "other.com"}
		if got := keys(r); !slices.Equal(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})
}

// TestSchedulerTransitions tests the state machine.
func TestSchedulerTransitions(t *testing.T) {
	t.Parallel()

	t.Run("start twice", func(t *testing.T) {
		t.Parallel()

		var fetcher *fakeFetcher
		s := NewScheduler(NewRegistry(1), newFakeFactory(nil, &fetcher))

		if err := s.Start("https://example.com"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.State() != StateDiscovering {
			t.Errorf("expected discovering, got %s", s.State())
		}
		if err := s.Start("https://example.com"); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("drain before start", func(t *testing.T) {
		t.Parallel()

		var fetcher *fakeFetcher
		s := NewScheduler(NewRegistry(1), newFakeFactory(nil, &fetcher))

		if err := s.HandleDrained(); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("expected ErrInvalidTransition, got %v", err)
		}
		if s.State() != StateIdle {
			t.Errorf("expected idle, got %s", s.State())
		}
	})

	t.Run("results after completion are ignored", func(t *testing.T) {
		t.Parallel()

		var fetcher *fakeFetcher
		r := NewRegistry(10)
		s := NewScheduler(r, newFakeFactory(nil, &fetcher))

		if err := s.Crawl("mailto:x"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		s.HandleFetched(FetchResult{Requested: "https://example.com", Links: []string{"https://example.com/late"}})
		if r.Len() != 0 {
			t.Errorf("expected late result to be ignored, got %d pages", r.Len())
		}
	})
}

// stalledFetcher accepts fetches but never drains until released.
type stalledFetcher struct {
	release chan struct{}
}

func (f *stalledFetcher) Fetch(string) error { return nil }

func (f *stalledFetcher) Wait() { <-f.release }

// TestSchedulerCrawlContext tests that a crawl stops waiting when its context ends.
func TestSchedulerCrawlContext(t *testing.T) {
	t.Parallel()

	t.Run("canceled context interrupts a stalled crawl", func(t *testing.T) {
		t.Parallel()

		fetcher := &stalledFetcher{release: make(chan struct{})}
		t.Cleanup(func() { close(fetcher.release) })

		r := NewRegistry(10)
		s := NewScheduler(r, func(FetchHandler) Fetcher { return fetcher })

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := s.CrawlContext(ctx, "https://example.com")
		if !errors.Is(err, ErrCrawlInterrupted) || !errors.Is(err, context.Canceled) {
			t.Fatalf("expected ErrCrawlInterrupted wrapping context.Canceled, got %v", err)
		}
		if s.State() != StateDraining {
			t.Errorf("expected draining, got %s", s.State())
		}
		if got := keys(r); !slices.Equal(got, []string{"example.com"}) {
			t.Errorf("expected the seed to stay registered, got %v", got)
		}

		s.HandleFetched(FetchResult{Requested: "https://example.com", Links: []string{"https://example.com/late"}})
		if r.Len() != 1 {
			t.Errorf("expected results after interruption to be ignored, got %d pages", r.Len())
		}
	})

	t.Run("live context crawls to completion", func(t *testing.T) {
		t.Parallel()

		site := map[string]FetchResult{
			"https://example.com": {Links: []string{"https://example.com/about"}},
		}
		var fetcher *fakeFetcher
		r := NewRegistry(10)
		s := NewScheduler(r, newFakeFactory(site, &fetcher))

		if err := s.CrawlContext(context.Background(), "https://example.com"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.State() != StateComplete {
			t.Errorf("expected complete, got %s", s.State())
		}
		if r.Len() != 2 {
			t.Errorf("expected 2 pages, got %d", r.Len())
		}
	})
}

// TestSchedulerDiscoveryObserver tests the per-page callback.
func TestSchedulerDiscoveryObserver(t *testing.T) {
	t.Parallel()

	site := map[string]FetchResult{
		"https://example.com": {Links: []string{"https://example.com/a", "https://example.com/b"}},
	}

	var (
		mu   sync.Mutex
		seen []string
	)
	var fetcher *fakeFetcher
	s := NewScheduler(NewRegistry(10), newFakeFactory(site, &fetcher),
		WithDiscoveryObserver(func(p *model.Page) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, p.Key)
		}),
	)

	if err := s.Crawl("https://example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"example.com", "example.com/a", "example.com/b"}
	if !slices.Equal(seen, want) {
		t.Errorf("expected %v, got %v", want, seen)
	}
}

// TestStateString tests state names.
func TestStateString(t *testing.T) {
	t.Parallel()

	tests := map[State]string{
		StateIdle:        "idle",
		StateDiscovering: "discovering",
		StateDraining:    "draining",
		StateComplete:    "complete",
		State(42):        "state(42)",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(state), got, want)
		}
	}
}
