package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/kasuboski/moviez/pkg/movie"
	"github.com/kasuboski/moviez/pkg/stats"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	ClientInterface

	statsErr    error
	filterErr   error
	statsCalls  int
	filterCalls int
}

func (s *stubClient) GetStats(context.Context) (stats.Snapshot, error) {
	s.statsCalls++
	if s.statsErr != nil {
		return stats.Snapshot{}, s.statsErr
	}
	return stats.Snapshot{TotalMovies: 7}, nil
}

func (s *stubClient) FilterMovies(context.Context, url.Values) ([]movie.Movie, error) {
	s.filterCalls++
	if s.filterErr != nil {
		return nil, s.filterErr
	}
	return []movie.Movie{{ID: "1", Title: "Heat"}}, nil
}

func (s *stubClient) DeleteMovie(context.Context, movie.ID) error {
	return nil
}

func TestBreakerClient_PassesThrough(t *testing.T) {
	stub := &stubClient{}
	b := NewBreakerClient(stub, DefaultBreakerSettings)

	got, err := b.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, got.TotalMovies)

	records, err := b.FilterMovies(context.Background(), url.Values{"title": {"heat"}})
	require.NoError(t, err)
	assert.Len(t, records, 1)

	assert.NoError(t, b.DeleteMovie(context.Background(), "1"))
}

func TestBreakerClient_OpensAfterConsecutiveFailures(t *testing.T) {
	stub := &stubClient{statsErr: &Error{Status: http.StatusServiceUnavailable, Message: "down"}}
	b := NewBreakerClient(stub, BreakerSettings{MaxRequests: 1, Timeout: time.Minute, FailureThreshold: 2})

	for range 2 {
		_, err := b.GetStats(context.Background())
		assert.EqualError(t, err, "down")
	}
	assert.Equal(t, gobreaker.StateOpen, b.StatsState())

	_, err := b.GetStats(context.Background())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, stub.statsCalls, "an open breaker does not call the endpoint")

	assert.Equal(t, gobreaker.StateClosed, b.FilterState(), "breakers are independent")
}

func TestBreakerClient_ClientErrorsDoNotTrip(t *testing.T) {
	stub := &stubClient{filterErr: &Error{Status: http.StatusUnauthorized, Message: "Authentication required"}}
	b := NewBreakerClient(stub, BreakerSettings{FailureThreshold: 1})

	for range 3 {
		_, err := b.FilterMovies(context.Background(), nil)
		assert.True(t, IsUnauthorized(err))
	}
	assert.Equal(t, gobreaker.StateClosed, b.FilterState())
	assert.Equal(t, 3, stub.filterCalls)

	stub.filterErr = errors.New("connection reset")
	_, err := b.FilterMovies(context.Background(), nil)
	assert.Error(t, err)
	assert.Equal(t, gobreaker.StateOpen, b.FilterState())
}

func TestCastResult(t *testing.T) {
	n := 3
	got, err := castResult[int](&n, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, *got)

	_, err = castResult[int]("three", nil)
	assert.ErrorContains(t, err, "unexpected result type string")

	_, err = castResult[int](nil, errors.New("boom"))
	assert.EqualError(t, err, "boom")
}

func TestStateToString(t *testing.T) {
	assert.Equal(t, "closed", stateToString(gobreaker.StateClosed))
	assert.Equal(t, "half-open", stateToString(gobreaker.StateHalfOpen))
	assert.Equal(t, "open", stateToString(gobreaker.StateOpen))
}
