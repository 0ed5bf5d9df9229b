package manager

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kasuboski/moviez/pkg/api"
	"github.com/kasuboski/moviez/pkg/collection"
	"github.com/kasuboski/moviez/pkg/filter"
	"github.com/kasuboski/moviez/pkg/logger"
	"github.com/kasuboski/moviez/pkg/machine"
	"github.com/kasuboski/moviez/pkg/movie"
	"github.com/kasuboski/moviez/pkg/notify"
	"github.com/kasuboski/moviez/pkg/observer"
	"github.com/kasuboski/moviez/pkg/session"
	"github.com/kasuboski/moviez/pkg/stats"
	"github.com/kasuboski/moviez/pkg/view"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrForbidden  = errors.New("action not allowed for this session")
	ErrClosed     = errors.New("manager is closed")
)

// DuplicateClarification is appended to duplicate errors reported by the API
const DuplicateClarification = ". Check your collection to view this movie's details."

var imdbIDPattern = regexp.MustCompile(`^(tt)?\d{7,}$`)

// RemoteCallFailure is returned when the API call behind a command failed
type RemoteCallFailure struct {
	Op  string
	Err error
}

func (e *RemoteCallFailure) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *RemoteCallFailure) Unwrap() error {
	return e.Err
}

type SearchMode string

const (
	SearchTitle SearchMode = "title"
	SearchIMDb  SearchMode = "imdb"
)

// View names a screen of the presentation layer
type View string

const (
	ViewCollection View = "collection"
	ViewSearch     View = "search"
	ViewStatistics View = "statistics"
	ViewFilters    View = "filters"
	ViewAuth       View = "auth"
)

// ParseView returns the view named by s
func ParseView(s string) (View, error) {
	switch v := View(strings.ToLower(strings.TrimSpace(s))); v {
	case ViewCollection, ViewSearch, ViewStatistics, ViewFilters, ViewAuth:
		return v, nil
	default:
		return "", fmt.Errorf("%w: unknown view %q", ErrValidation, s)
	}
}

// Manager is the command layer. It authorizes every command through the
// session gate, issues the remote call, applies the outcome to the store and
// reports it as a notification.
type Manager struct {
	client   api.ClientInterface
	store    *collection.Store
	criteria *filter.Holder
	view     *view.Synchronizer
	session  *session.Gate
	notes    *notify.Center
	validate *validator.Validate
	now      func() time.Time

	mu        sync.RWMutex
	active    View
	closed    bool
	listeners observer.List[View]
}

type Option func(*options)

type options struct {
	notes        *notify.Center
	now          func() time.Time
	remoteFilter bool
}

// WithNotifications sets the center outcomes are reported to
func WithNotifications(c *notify.Center) Option {
	return func(o *options) {
		o.notes = c
	}
}

// WithClock replaces time.Now for the dates the toggles send
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithRemoteFilter makes active criteria consult the remote filter endpoint
func WithRemoteFilter(enabled bool) Option {
	return func(o *options) {
		o.remoteFilter = enabled
	}
}

func New(client api.ClientInterface, opts ...Option) *Manager {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.notes == nil {
		o.notes = notify.New()
	}

	store := collection.New()
	criteria := filter.NewHolder()

	return &Manager{
		client:   client,
		store:    store,
		criteria: criteria,
		view:     view.New(store, criteria, client, view.WithRemoteFilter(o.remoteFilter)),
		session:  session.New(client),
		notes:    o.notes,
		validate: newValidator(),
		now:      o.now,
		active:   ViewCollection,
	}
}

func (m *Manager) Store() *collection.Store {
	return m.store
}

func (m *Manager) Criteria() *filter.Holder {
	return m.criteria
}

func (m *Manager) View() *view.Synchronizer {
	return m.view
}

func (m *Manager) Session() *session.Gate {
	return m.session
}

func (m *Manager) Notifications() *notify.Center {
	return m.notes
}

// ActiveView is the screen presentation should show
func (m *Manager) ActiveView() View {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// SubscribeView registers fn to run when the active view changes
func (m *Manager) SubscribeView(fn func(View)) (unsubscribe func()) {
	return m.listeners.Subscribe(fn)
}

// Statistics is the statistics view with the insights derived from the store
type Statistics struct {
	Snapshot stats.Snapshot `json:"snapshot"`
	Insights stats.Insights `json:"insights"`
	Degraded bool           `json:"degraded"`
}

// Filtered returns the filtered view of the collection
func (m *Manager) Filtered() ([]movie.Movie, error) {
	if err := m.permit(session.ActionRead); err != nil {
		return nil, err
	}
	return m.view.Filtered(), nil
}

// Movies returns the whole collection in insertion order
func (m *Manager) Movies() ([]movie.Movie, error) {
	if err := m.permit(session.ActionRead); err != nil {
		return nil, err
	}
	return m.store.Snapshot(), nil
}

// Movie returns a single record of the collection
func (m *Manager) Movie(id movie.ID) (movie.Movie, error) {
	if err := m.permit(session.ActionRead); err != nil {
		return movie.Movie{}, err
	}
	return m.store.Get(id)
}

func (m *Manager) Statistics() (Statistics, error) {
	if err := m.permit(session.ActionStats); err != nil {
		return Statistics{}, err
	}
	return Statistics{
		Snapshot: m.view.Stats(),
		Insights: m.view.Insights(),
		Degraded: m.view.StatsDegraded(),
	}, nil
}

// Mount checks the session and starts the initial load. Without a session the
// active view moves to auth and nothing is loaded.
func (m *Manager) Mount(ctx context.Context) error {
	if err := m.checkOpen(); err != nil {
		return err
	}

	if err := m.session.Check(ctx); err != nil {
		logger.FromCtx(ctx).Errorw("session check failed", "error", err)
	}
	if !m.session.IsAuthenticated() {
		m.setView(ViewAuth)
		return nil
	}

	return m.load(ctx, m.view.Mount)
}

// Retry reloads the collection after a failed load
func (m *Manager) Retry(ctx context.Context) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	return m.load(ctx, m.view.Retry)
}

func (m *Manager) load(ctx context.Context, fn func(context.Context) error) error {
	if !m.session.Can(session.ActionRead) {
		return ErrForbidden
	}

	err := fn(ctx)
	if err == nil || errors.Is(err, view.ErrClosed) || errors.Is(err, machine.ErrInvalidTransition) {
		return err
	}
	return m.remoteFailure(ctx, "load collection", "Failed to load movies: "+api.Message(err, "network error"), err)
}

// Close detaches the views. Completions arriving later are discarded.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.view.Close()
	m.notes.Close()
}

// SearchAndAdd looks term up with the providers and adds the created record
func (m *Manager) SearchAndAdd(ctx context.Context, term string, sources []movie.Source, mode SearchMode) (movie.Movie, error) {
	if err := m.authorize(session.ActionAdd, "add movies"); err != nil {
		return movie.Movie{}, err
	}

	req := searchRequest{Term: strings.TrimSpace(term), Mode: mode, Sources: sources}
	if err := m.validateSearch(req); err != nil {
		return movie.Movie{}, err
	}

	var (
		created movie.Movie
		err     error
	)
	switch req.Mode {
	case SearchIMDb:
		created, err = m.client.SearchByIMDb(ctx, req.Term, req.Sources)
	default:
		created, err = m.client.SearchByTitle(ctx, req.Term, req.Sources)
	}
	if err != nil {
		msg := api.Message(err, "Failed to find movie")
		if strings.Contains(msg, "already exists") {
			msg += DuplicateClarification
		}
		return movie.Movie{}, m.remoteFailure(ctx, "search and add", msg, err)
	}

	if m.isClosed() {
		return movie.Movie{}, ErrClosed
	}

	if err := m.store.Insert(created); err != nil {
		if errors.Is(err, collection.ErrDuplicate) {
			m.notes.Error("Movie already exists" + DuplicateClarification)
		}
		return movie.Movie{}, err
	}
	m.refreshStats(ctx)

	m.notes.Success(fmt.Sprintf("%q added to your collection!", created.Title))
	return created, nil
}

// UpdateRecord sends patch and installs the record the API answers with
func (m *Manager) UpdateRecord(ctx context.Context, id movie.ID, patch movie.Patch) (movie.Movie, error) {
	if err := m.authorize(session.ActionUpdate, "update movies"); err != nil {
		return movie.Movie{}, err
	}

	if _, err := m.store.Get(id); err != nil {
		return movie.Movie{}, m.invalid(fmt.Errorf("%w: %w", ErrValidation, err))
	}
	if err := patch.Validate(); err != nil {
		return movie.Movie{}, m.invalid(fmt.Errorf("%w: %w", ErrValidation, err))
	}

	updated, err := m.client.UpdateMovie(ctx, id, patch)
	if err != nil {
		return movie.Movie{}, m.remoteFailure(ctx, "update movie", "Failed to update movie: "+api.Message(err, "unknown error"), err)
	}

	if m.isClosed() {
		return movie.Movie{}, ErrClosed
	}

	if updated.ID == "" {
		// an empty echo still means the server applied the patch
		if err := m.store.Patch(id, patch); err != nil {
			return movie.Movie{}, err
		}
		return m.store.Get(id)
	}

	updated.ID = id
	if err := m.store.Replace(updated); err != nil {
		return movie.Movie{}, err
	}
	return m.store.Get(id)
}

// DeleteRecord removes a record from the collection
func (m *Manager) DeleteRecord(ctx context.Context, id movie.ID) error {
	if err := m.authorize(session.ActionDelete, "delete movies"); err != nil {
		return err
	}

	if _, err := m.store.Get(id); err != nil {
		return m.invalid(fmt.Errorf("%w: %w", ErrValidation, err))
	}

	if err := m.client.DeleteMovie(ctx, id); err != nil {
		return m.remoteFailure(ctx, "delete movie", "Failed to delete movie: "+api.Message(err, "unknown error"), err)
	}

	if m.isClosed() {
		return ErrClosed
	}

	if err := m.store.Remove(id); err != nil {
		return err
	}
	m.refreshStats(ctx)

	m.notes.Success("Movie deleted from collection")
	return nil
}

// ToggleWatched flips the watched flag, dating it now
func (m *Manager) ToggleWatched(ctx context.Context, id movie.ID) (movie.Movie, error) {
	current, err := m.current(id)
	if err != nil {
		return movie.Movie{}, err
	}
	return m.UpdateRecord(ctx, id, movie.WatchedPatch(current, m.now()))
}

// Lend marks a record as lent to borrower. A blank borrower is recorded as unknown.
func (m *Manager) Lend(ctx context.Context, id movie.ID, borrower string) (movie.Movie, error) {
	return m.UpdateRecord(ctx, id, movie.LendPatch(borrower, m.now()))
}

// Return marks a lent record as back home
func (m *Manager) Return(ctx context.Context, id movie.ID) (movie.Movie, error) {
	return m.UpdateRecord(ctx, id, movie.ReturnPatch())
}

// Rate sets the personal rating
func (m *Manager) Rate(ctx context.Context, id movie.ID, rating int) (movie.Movie, error) {
	return m.UpdateRecord(ctx, id, movie.RatingPatch(rating))
}

// SetFilter changes a single criterion
func (m *Manager) SetFilter(key filter.Key, value string) error {
	if err := m.permit(session.ActionFilter); err != nil {
		return err
	}
	m.criteria.Set(key, value)
	return nil
}

// ApplyFilters installs c as the active criteria and returns the filtered view
// once any remote refinement has settled
func (m *Manager) ApplyFilters(c filter.Criteria) ([]movie.Movie, error) {
	if err := m.permit(session.ActionFilter); err != nil {
		return nil, err
	}
	m.criteria.Replace(c)
	m.view.Wait()
	return m.view.Filtered(), nil
}

func (m *Manager) ClearFilters() error {
	if err := m.permit(session.ActionFilter); err != nil {
		return err
	}
	m.criteria.Clear()
	return nil
}

func (m *Manager) ToggleFilters() {
	m.criteria.TogglePanel()
}

// ChangeView switches the active view. The filters view is the collection with the panel shown.
func (m *Manager) ChangeView(v View) error {
	v, err := ParseView(string(v))
	if err != nil {
		return err
	}

	if v == ViewFilters {
		m.criteria.ShowPanel()
		v = ViewCollection
	}

	m.setView(v)
	return nil
}

// Login opens a session and loads the collection
func (m *Manager) Login(ctx context.Context, credentials api.Credentials) (session.User, error) {
	user, err := m.session.Login(ctx, credentials)
	if err != nil {
		return session.User{}, m.authFailure(err, "Login failed")
	}

	m.afterLogin(ctx)
	return user, nil
}

// Register creates an account, logs into it and loads the collection
func (m *Manager) Register(ctx context.Context, profile api.Profile) (session.User, error) {
	user, err := m.session.Register(ctx, profile)
	if err != nil {
		return session.User{}, m.authFailure(err, "Registration failed")
	}

	m.afterLogin(ctx)
	return user, nil
}

// Logout ends the session. Local state is cleared even when the call fails.
func (m *Manager) Logout(ctx context.Context) error {
	err := m.session.Logout(ctx)
	m.reset()
	m.setView(ViewAuth)
	if err != nil {
		return &RemoteCallFailure{Op: "logout", Err: err}
	}
	return nil
}

func (m *Manager) afterLogin(ctx context.Context) {
	m.setView(ViewCollection)

	var err error
	switch m.view.State() {
	case view.StateIdle:
		err = m.view.Mount(ctx)
	case view.StateError:
		err = m.view.Retry(ctx)
	case view.StateReady:
		err = m.view.Refresh(ctx)
	}
	if err != nil {
		logger.FromCtx(ctx).Errorw("failed to load collection after login", "error", err)
	}
}

func (m *Manager) authFailure(err error, prefix string) error {
	if errors.Is(err, session.ErrInvalidCredentials) {
		return m.invalid(fmt.Errorf("%w: %w", ErrValidation, err))
	}

	m.notes.Error(prefix + ": " + api.Message(err, "Network error"))
	return &RemoteCallFailure{Op: strings.ToLower(prefix), Err: err}
}

// permit refuses reads the session lacks the capability for. Unlike
// authorize it raises no notification.
func (m *Manager) permit(action session.Action) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	if !m.session.Can(action) {
		return fmt.Errorf("%w: %s", ErrForbidden, action)
	}
	return nil
}

// reset drops the collection and criteria of a session that ended
func (m *Manager) reset() {
	if m.isClosed() {
		return
	}
	m.store.Load(nil)
	m.criteria.Clear()
}

// authorize refuses locally when the session lacks the capability
func (m *Manager) authorize(action session.Action, what string) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	if m.session.Can(action) {
		return nil
	}

	m.notes.Error("You don't have permission to " + what)
	return fmt.Errorf("%w: %s", ErrForbidden, action)
}

// remoteFailure reports a failed API call. An expired session moves to the
// auth view instead of raising a notification.
func (m *Manager) remoteFailure(ctx context.Context, op, message string, err error) error {
	logger.FromCtx(ctx).Errorw("remote call failed", "op", op, "error", err)

	if api.IsUnauthorized(err) {
		m.session.Clear()
		m.reset()
		m.setView(ViewAuth)
	} else if !m.isClosed() {
		m.notes.Error(message)
	}
	return &RemoteCallFailure{Op: op, Err: err}
}

func (m *Manager) invalid(err error) error {
	m.notes.Error(validationMessage(err))
	return err
}

func (m *Manager) refreshStats(ctx context.Context) {
	if err := m.view.RefreshStats(ctx); err != nil {
		logger.FromCtx(ctx).Debugw("statistics refresh failed", "error", err)
	}
}

func (m *Manager) current(id movie.ID) (movie.Movie, error) {
	if err := m.checkOpen(); err != nil {
		return movie.Movie{}, err
	}

	current, err := m.store.Get(id)
	if err != nil {
		return movie.Movie{}, m.invalid(fmt.Errorf("%w: %w", ErrValidation, err))
	}
	return current, nil
}

func (m *Manager) setView(v View) {
	m.mu.Lock()
	changed := m.active != v
	m.active = v
	m.mu.Unlock()

	if changed {
		m.listeners.Publish(v)
	}
}

func (m *Manager) checkOpen() error {
	if m.isClosed() {
		return ErrClosed
	}
	return nil
}

func (m *Manager) isClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
