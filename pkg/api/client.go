package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
	"github.com/kasuboski/moviez/pkg/logger"
	"github.com/kasuboski/moviez/pkg/movie"
	"github.com/kasuboski/moviez/pkg/stats"
)

var _ ClientInterface = (*Client)(nil)

// HttpRequestDoer performs HTTP requests.
//
// The standard http.Client implements this interface.
type HttpRequestDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RequestEditorFn is the function signature for the RequestEditor callback function
type RequestEditorFn func(ctx context.Context, req *http.Request) error

// Client talks to the collection API
type Client struct {
	// The endpoint of the server conforming to this interface, with scheme,
	// https://api.deepmap.com for example. This can contain a path relative
	// to the server, such as https://api.deepmap.com/dev-test, and all the
	// paths in the client will be relative to this path.
	Server string

	// Doer for performing requests, typically a *http.Client with any
	// customized settings, such as certificate chains.
	Client HttpRequestDoer

	// A list of callbacks for modifying requests which are generated before sending over
	// the network.
	RequestEditors []RequestEditorFn
}

// ClientOption allows setting custom parameters during construction
type ClientOption func(*Client) error

// NewClient creates a new Client, with reasonable defaults
func NewClient(server string, opts ...ClientOption) (*Client, error) {
	client := Client{
		Server: server,
	}
	for _, o := range opts {
		if err := o(&client); err != nil {
			return nil, err
		}
	}

	// ensure the server URL always has a trailing slash
	if !strings.HasSuffix(client.Server, "/") {
		client.Server += "/"
	}

	if client.Client == nil {
		client.Client = &http.Client{}
	}

	return &client, nil
}

// WithHTTPClient allows overriding the default Doer, which is
// automatically created using http.Client. This is useful for tests.
func WithHTTPClient(doer HttpRequestDoer) ClientOption {
	return func(c *Client) error {
		c.Client = doer
		return nil
	}
}

// WithRequestEditorFn allows setting up a callback function, which will be
// called right before sending the request. This can be used to mutate the request.
func WithRequestEditorFn(fn RequestEditorFn) ClientOption {
	return func(c *Client) error {
		c.RequestEditors = append(c.RequestEditors, fn)
		return nil
	}
}

// ListMovies returns the full collection in server order
func (c *Client) ListMovies(ctx context.Context) ([]movie.Movie, error) {
	var records []movie.Movie
	if err := c.call(ctx, http.MethodGet, "movies", nil, nil, &records); err != nil {
		return nil, err
	}
	return normalizeAll(records), nil
}

// GetStats returns the pre-aggregated statistics
func (c *Client) GetStats(ctx context.Context) (stats.Snapshot, error) {
	var snapshot stats.Snapshot
	if err := c.call(ctx, http.MethodGet, "movies/stats", nil, nil, &snapshot); err != nil {
		return stats.Snapshot{}, err
	}
	return snapshot, nil
}

// FilterMovies returns the records matching query, as built by filter.QueryParameters
func (c *Client) FilterMovies(ctx context.Context, query url.Values) ([]movie.Movie, error) {
	var records []movie.Movie
	if err := c.call(ctx, http.MethodGet, "movies/filter", query, nil, &records); err != nil {
		return nil, err
	}
	return normalizeAll(records), nil
}

// SearchByTitle looks a title up with the providers and adds it to the collection
func (c *Client) SearchByTitle(ctx context.Context, title string, sources []movie.Source) (movie.Movie, error) {
	query := url.Values{"title": []string{title}}
	addSources(query, sources)
	return c.created(ctx, "movies/search", query)
}

// SearchByIMDb looks an IMDb id up with the providers and adds it to the collection
func (c *Client) SearchByIMDb(ctx context.Context, imdbID string, sources []movie.Source) (movie.Movie, error) {
	query := url.Values{"imdb_id": []string{imdbID}}
	addSources(query, sources)
	return c.created(ctx, "movies/search/imdb", query)
}

func (c *Client) created(ctx context.Context, path string, query url.Values) (movie.Movie, error) {
	var m movie.Movie
	if err := c.call(ctx, http.MethodGet, path, query, nil, &m); err != nil {
		return movie.Movie{}, err
	}
	return movie.Normalize(m), nil
}

// UpdateMovie sends the specified fields of patch and returns the updated record
func (c *Client) UpdateMovie(ctx context.Context, id movie.ID, patch movie.Patch) (movie.Movie, error) {
	body, err := json.Marshal(patch)
	if err != nil {
		return movie.Movie{}, fmt.Errorf("failed to encode patch: %w", err)
	}

	var m movie.Movie
	if err := c.call(ctx, http.MethodPut, "movies/"+url.PathEscape(string(id)), nil, body, &m); err != nil {
		return movie.Movie{}, err
	}
	return movie.Normalize(m), nil
}

// DeleteMovie removes a record from the collection
func (c *Client) DeleteMovie(ctx context.Context, id movie.ID) error {
	return c.call(ctx, http.MethodDelete, "movies/"+url.PathEscape(string(id)), nil, nil, nil)
}

// CheckSession reports the session tied to the client's cookies
func (c *Client) CheckSession(ctx context.Context) (AuthStatus, error) {
	var status AuthStatus
	if err := c.call(ctx, http.MethodGet, "auth/check", nil, nil, &status); err != nil {
		return AuthStatus{}, err
	}
	if status.User == nil {
		status.Authenticated = false
	}
	return status, nil
}

// Login opens a session. The session cookie is kept by the underlying http client.
func (c *Client) Login(ctx context.Context, credentials Credentials) (User, error) {
	body, err := json.Marshal(credentials)
	if err != nil {
		return User{}, fmt.Errorf("failed to encode credentials: %w", err)
	}

	var resp struct {
		User User `json:"user"`
	}
	if err := c.call(ctx, http.MethodPost, "auth/login", nil, body, &resp); err != nil {
		return User{}, err
	}
	return resp.User, nil
}

// Register creates an account. It does not open a session.
func (c *Client) Register(ctx context.Context, profile Profile) error {
	body, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	return c.call(ctx, http.MethodPost, "auth/register", nil, body, nil)
}

// Logout closes the session
func (c *Client) Logout(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "auth/logout", nil, nil, nil)
}

// call sends a request to path relative to the server and decodes a 2xx body into out.
// Non-2xx answers become an *Error.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body []byte, out any) error {
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}

	log := logger.FromCtx(ctx)
	resp, err := c.Client.Do(req)
	if resp != nil {
		// a doer may hand back the response alongside an error
		defer resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response of %s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e errorPayload
		if len(payload) > 0 {
			// a body that isn't an error payload falls back to the status text
			_ = json.Unmarshal(payload, &e)
		}
		msg := e.Error
		if msg == "" {
			msg = e.Message
		}
		log.Debugw("api returned an error", "method", method, "path", path, "status", resp.StatusCode, "error", msg)
		return newError(resp.StatusCode, msg)
	}

	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("failed to decode response of %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body []byte) (*http.Request, error) {
	serverURL, err := url.Parse(c.Server)
	if err != nil {
		return nil, err
	}

	queryURL, err := serverURL.Parse(path)
	if err != nil {
		return nil, err
	}
	if len(query) > 0 {
		queryURL.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, queryURL.String(), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for _, r := range c.RequestEditors {
		if err := r(ctx, req); err != nil {
			return nil, err
		}
	}

	return req, nil
}

func addSources(query url.Values, sources []movie.Source) {
	for _, s := range sources {
		query.Add("sources", string(s))
	}
}

func normalizeAll(records []movie.Movie) []movie.Movie {
	if records == nil {
		return []movie.Movie{}
	}
	for i, m := range records {
		records[i] = movie.Normalize(m)
	}
	return records
}
