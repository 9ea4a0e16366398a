package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nao1215/sitescore/internal/model"
)

// State is a phase of the crawl.
type State int

const (
	// StateIdle is the state before Start.
	StateIdle State = iota
	// StateDiscovering is the state while fetches are in flight.
	StateDiscovering
	// StateDraining is entered when the fetcher reports that no work remains.
	StateDraining
	// StateComplete means the registry is final and may be audited.
	StateComplete
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDiscovering:
		return "discovering"
	case StateDraining:
		return "draining"
	case StateComplete:
		return "complete"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// FetchResult is what the fetcher reports for one fetched page.
type FetchResult struct {
	// Requested is the address that was dispatched.
	Requested string

	// Resolved is the final address after redirects.
	Resolved string

	// Links are the absolute anchor targets found on the page.
	Links []string

	// Err is set when the page could not be fetched.
	Err error
}

// FetchHandler receives fetch results.
// It may be called concurrently from several goroutines.
type FetchHandler func(FetchResult)

// Fetcher fetches pages with bounded concurrency.
type Fetcher interface {
	// Fetch dispatches an asynchronous fetch of the URL.
	Fetch(rawURL string) error

	// Wait blocks until no fetch is queued or in flight.
	Wait()
}

// FetcherFactory builds a fetcher that reports to the given handler.
type FetcherFactory func(FetchHandler) Fetcher

// Scheduler drives a crawl from a seed URL until the frontier is exhausted.
type Scheduler struct {
	registry   *Registry
	fetcher    Fetcher
	scopeOpts  []ScopeOption
	scope      *Scope
	logger     *slog.Logger
	onDiscover func(*model.Page)

	mu    sync.Mutex
	state State
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSchedulerLogger sets the logger.
func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithScope sets the options of the scope built from the seed URL.
func WithScope(opts ...ScopeOption) SchedulerOption {
	return func(s *Scheduler) {
		s.scopeOpts = opts
	}
}

// WithDiscoveryObserver registers a callback invoked for every newly
// registered page. It may be called concurrently.
func WithDiscoveryObserver(fn func(*model.Page)) SchedulerOption {
	return func(s *Scheduler) {
		s.onDiscover = fn
	}
}

// NewScheduler creates a scheduler that fills the registry using a
// fetcher built by newFetcher.
func NewScheduler(registry *Registry, newFetcher FetcherFactory, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		registry: registry,
		logger:   slog.Default(),
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.fetcher = newFetcher(s.HandleFetched)
	return s
}

// State returns the current state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Registry returns the registry the scheduler fills.
func (s *Scheduler) Registry() *Registry {
	return s.registry
}

// transition moves from one state to the next or fails.
func (s *Scheduler) transition(from, to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != from {
		return fmt.Errorf("%w: %s -> %s while %s", ErrInvalidTransition, from, to, s.state)
	}
	s.state = to
	s.logger.Debug("crawl state changed", "from", from.String(), "to", to.String())
	return nil
}

// Start registers the seed URL and dispatches its fetch.
// An ineligible seed is not an error; the crawl simply drains with no pages.
func (s *Scheduler) Start(seed string) error {
	if err := s.transition(StateIdle, StateDiscovering); err != nil {
		return err
	}
	s.scope = NewScope(seed, s.scopeOpts...)

	page := s.registry.Register(seed)
	if page == nil {
		s.logger.Warn("seed URL not admitted", "url", seed)
		return nil
	}
	s.discovered(page)
	s.dispatch(page)
	return nil
}

// HandleFetched processes one fetch result. The resolved address is
// registered without a new fetch, then every in-scope link is registered
// and fetched while the registry has room.
func (s *Scheduler) HandleFetched(result FetchResult) {
	if state := s.State(); state != StateDiscovering {
		s.logger.Warn("fetch result ignored", "url", result.Requested, "state", state.String())
		return
	}
	if result.Err != nil {
		// The page stays registered and is still audited; its links are lost.
		s.logger.Warn("fetch failed", "url", result.Requested, "error", result.Err)
		return
	}

	if result.Resolved != "" && result.Resolved != result.Requested {
		if page := s.registry.Register(result.Resolved); page != nil {
			s.discovered(page)
		}
	}

	for _, link := range result.Links {
		if s.registry.Full() {
			s.logger.Debug("page limit reached", "limit", s.registry.Capacity())
			return
		}
		if !s.scope.Allows(link) {
			continue
		}
		page := s.registry.Register(link)
		if page == nil {
			continue
		}
		s.discovered(page)
		s.dispatch(page)
	}
}

// HandleDrained marks discovery as finished.
func (s *Scheduler) HandleDrained() error {
	if err := s.transition(StateDiscovering, StateDraining); err != nil {
		return err
	}
	return s.transition(StateDraining, StateComplete)
}

// Crawl runs a whole crawl: Start, wait for the fetcher to drain,
// then HandleDrained. The registry is final when Crawl returns nil.
func (s *Scheduler) Crawl(seed string) error {
	return s.CrawlContext(context.Background(), seed)
}

// CrawlContext is Crawl that stops waiting when ctx ends. The scheduler
// then moves to Draining, so fetches still in flight are ignored, and
// ErrCrawlInterrupted is returned. The registry holds the pages
// registered before the interruption.
func (s *Scheduler) CrawlContext(ctx context.Context, seed string) error {
	if err := s.Start(seed); err != nil {
		return err
	}

	drained := make(chan struct{})
	go func() {
		s.fetcher.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return s.HandleDrained()
	case <-ctx.Done():
		if err := s.transition(StateDiscovering, StateDraining); err != nil {
			return err
		}
		s.logger.Warn("crawl interrupted", "pages", s.registry.Len(), "reason", ctx.Err())
		return fmt.Errorf("%w: %w", ErrCrawlInterrupted, ctx.Err())
	}
}

func (s *Scheduler) discovered(page *model.Page) {
	s.logger.Debug("page registered", "url", page.Address, "key", page.Key)
	if s.onDiscover != nil {
		s.onDiscover(page)
	}
}

func (s *Scheduler) dispatch(page *model.Page) {
	if err := s.fetcher.Fetch(page.Address); err != nil {
		s.logger.Warn("fetch not dispatched", "url", page.Address, "error", err)
	}
}
