package view

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"sync"

	"github.com/kasuboski/moviez/pkg/collection"
	"github.com/kasuboski/moviez/pkg/filter"
	"github.com/kasuboski/moviez/pkg/logger"
	"github.com/kasuboski/moviez/pkg/machine"
	"github.com/kasuboski/moviez/pkg/movie"
	"github.com/kasuboski/moviez/pkg/observer"
	"github.com/kasuboski/moviez/pkg/stats"
)

var ErrClosed = errors.New("view synchronizer is closed")

type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
)

// Source is the part of the API the synchronizer reads from
type Source interface {
	ListMovies(ctx context.Context) ([]movie.Movie, error)
	GetStats(ctx context.Context) (stats.Snapshot, error)
	FilterMovies(ctx context.Context, query url.Values) ([]movie.Movie, error)
}

type ChangeKind string

const (
	ChangeState    ChangeKind = "state"
	ChangeFiltered ChangeKind = "filtered"
	ChangeStats    ChangeKind = "stats"
)

// Change tells presentation which derived view moved
type Change struct {
	Kind  ChangeKind
	State State
}

// Synchronizer keeps the filtered view and the statistics consistent with the
// store and the active criteria.
//
// Recomputation runs synchronously inside the store or holder notification.
// With remote filtering on, active criteria first produce the local predicate
// result and then a remote request whose answer replaces it, unless a newer
// recomputation has started or the synchronizer was closed in the meantime.
type Synchronizer struct {
	store    *collection.Store
	criteria *filter.Holder
	source   Source
	remote   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu            sync.RWMutex
	machine       *machine.StateMachine[State]
	err           error
	filtered      []movie.Movie
	filterVersion uint64
	lastCriteria  filter.Criteria
	generation    uint64
	report        stats.Report
	reportVersion uint64
	remoteStats   *stats.Snapshot
	remoteVersion uint64
	degraded      bool
	closed        bool
	unsubscribe   []func()
	listeners     observer.List[Change]
}

type Option func(*Synchronizer)

// WithRemoteFilter makes active criteria consult the remote filter endpoint
func WithRemoteFilter(enabled bool) Option {
	return func(s *Synchronizer) {
		s.remote = enabled
	}
}

func New(store *collection.Store, criteria *filter.Holder, source Source, opts ...Option) *Synchronizer {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Synchronizer{
		store:    store,
		criteria: criteria,
		source:   source,
		ctx:      ctx,
		cancel:   cancel,
		machine: machine.New(StateIdle,
			machine.From(StateIdle).To(StateLoading),
			machine.From(StateLoading).To(StateReady, StateError),
			machine.From(StateError).To(StateLoading),
			machine.From(StateReady).To(StateLoading),
		),
	}
	for _, opt := range opts {
		opt(s)
	}

	records, version := store.Versioned()
	s.report = stats.Analyze(records)
	s.reportVersion = version
	s.lastCriteria = criteria.Criteria()
	s.filtered = filter.Apply(records, s.lastCriteria)
	s.filterVersion = version

	s.unsubscribe = []func(){
		store.Subscribe(s.onStore),
		criteria.Subscribe(s.onCriteria),
	}
	return s
}

// Mount starts the initial load
func (s *Synchronizer) Mount(ctx context.Context) error {
	return s.load(ctx, StateIdle)
}

// Retry reloads after a failed load
func (s *Synchronizer) Retry(ctx context.Context) error {
	return s.load(ctx, StateError)
}

// Refresh reloads a ready view
func (s *Synchronizer) Refresh(ctx context.Context) error {
	return s.load(ctx, StateReady)
}

func (s *Synchronizer) load(ctx context.Context, from State) error {
	log := logger.FromCtx(ctx)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if current := s.machine.Current(); current != from {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s to %s", machine.ErrInvalidTransition, current, StateLoading)
	}
	if err := s.machine.Transition(StateLoading); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()
	s.listeners.Publish(Change{Kind: ChangeState, State: StateLoading})

	var (
		wg       sync.WaitGroup
		records  []movie.Movie
		listErr  error
		snapshot stats.Snapshot
		statsErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		records, listErr = s.source.ListMovies(ctx)
	}()
	go func() {
		defer wg.Done()
		snapshot, statsErr = s.source.GetStats(ctx)
	}()
	wg.Wait()

	if s.isClosed() {
		log.Debug("discarding load completion after close")
		return ErrClosed
	}

	if listErr != nil {
		log.Errorw("failed to load collection", "error", listErr)
		s.mu.Lock()
		s.err = listErr
		_ = s.machine.Transition(StateError)
		s.mu.Unlock()
		s.listeners.Publish(Change{Kind: ChangeState, State: StateError})
		return listErr
	}

	s.store.Load(records)

	s.mu.Lock()
	s.err = nil
	s.setRemoteStats(snapshot, statsErr, s.store.Version())
	_ = s.machine.Transition(StateReady)
	s.mu.Unlock()

	if statsErr != nil {
		log.Warnw("statistics endpoint failed, serving local statistics", "error", statsErr)
	}

	s.listeners.Publish(Change{Kind: ChangeStats, State: StateReady})
	s.listeners.Publish(Change{Kind: ChangeState, State: StateReady})
	return nil
}

// RefreshStats fetches the remote statistics again. A failure degrades to the
// local statistics and is returned.
func (s *Synchronizer) RefreshStats(ctx context.Context) error {
	version := s.store.Version()
	snapshot, err := s.source.GetStats(ctx)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.setRemoteStats(snapshot, err, version)
	state := s.machine.Current()
	s.mu.Unlock()

	if err != nil {
		logger.FromCtx(ctx).Warnw("statistics endpoint failed, serving local statistics", "error", err)
	}
	s.listeners.Publish(Change{Kind: ChangeStats, State: state})
	return err
}

// setRemoteStats must be called with the write lock held
func (s *Synchronizer) setRemoteStats(snapshot stats.Snapshot, err error, version uint64) {
	if err != nil {
		s.degraded = true
		s.remoteStats = nil
		return
	}
	s.degraded = false
	s.remoteStats = &snapshot
	s.remoteVersion = version
}

// onStore may run concurrently for mutations made from different goroutines;
// only results computed from the newest store version are installed.
func (s *Synchronizer) onStore(collection.Event) {
	records, version := s.store.Versioned()
	state, ok := s.installReport(stats.Analyze(records), version)
	if !ok {
		return
	}
	s.listeners.Publish(Change{Kind: ChangeStats, State: state})

	s.refilter(s.criteria.Criteria())
}

// installReport replaces the report unless a newer one is installed
func (s *Synchronizer) installReport(report stats.Report, version uint64) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || version < s.reportVersion {
		return "", false
	}
	s.report = report
	s.reportVersion = version
	return s.machine.Current(), true
}

func (s *Synchronizer) onCriteria(change filter.Change) {
	s.mu.RLock()
	same := maps.Equal(s.lastCriteria, change.Criteria)
	s.mu.RUnlock()
	if same {
		return
	}

	s.refilter(change.Criteria)
}

func (s *Synchronizer) refilter(c filter.Criteria) {
	records, version := s.store.Versioned()
	local := filter.Apply(records, c)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if version < s.filterVersion {
		// computed from a store older than the installed view, redo it on the current one
		s.mu.Unlock()
		s.refilter(c)
		return
	}
	s.filterVersion = version
	s.generation++
	generation := s.generation
	s.lastCriteria = c
	s.filtered = local
	state := s.machine.Current()
	refine := s.remote && filter.IsActive(c)
	if refine {
		s.wg.Add(1)
	}
	s.mu.Unlock()

	s.listeners.Publish(Change{Kind: ChangeFiltered, State: state})

	if refine {
		go s.refine(generation, c)
	}
}

func (s *Synchronizer) refine(generation uint64, c filter.Criteria) {
	defer s.wg.Done()
	log := logger.FromCtx(s.ctx, "generation", generation)

	records, err := s.source.FilterMovies(s.ctx, filter.QueryParameters(c))
	if err != nil {
		log.Debugw("remote filter failed, keeping local result", "error", err)
		return
	}

	s.mu.Lock()
	if s.closed || s.generation != generation {
		s.mu.Unlock()
		log.Debug("discarding stale remote filter result")
		return
	}
	s.filtered = records
	state := s.machine.Current()
	s.mu.Unlock()

	s.listeners.Publish(Change{Kind: ChangeFiltered, State: state})
}

// Wait blocks until pending remote refinements finished
func (s *Synchronizer) Wait() {
	s.wg.Wait()
}

func (s *Synchronizer) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.machine.Current()
}

// Err is the failure that moved the view to StateError
func (s *Synchronizer) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Filtered returns the filtered view. With inactive criteria it is the store snapshot itself.
func (s *Synchronizer) Filtered() []movie.Movie {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filtered
}

// Stats returns the remote snapshot while it matches the store, the local one otherwise
func (s *Synchronizer) Stats() stats.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.remoteStats != nil && s.remoteVersion == s.store.Version() {
		return *s.remoteStats
	}
	return s.report.Snapshot
}

func (s *Synchronizer) LocalStats() stats.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report.Snapshot
}

func (s *Synchronizer) Insights() stats.Insights {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report.Insights
}

// StatsDegraded reports whether the last statistics fetch failed
func (s *Synchronizer) StatsDegraded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.degraded
}

func (s *Synchronizer) Subscribe(fn func(Change)) (unsubscribe func()) {
	return s.listeners.Subscribe(fn)
}

// Close detaches from the store and the criteria. Completions arriving later are discarded.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	for _, fn := range unsubscribe {
		fn()
	}
	s.cancel()
	s.wg.Wait()
}

func (s *Synchronizer) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}
