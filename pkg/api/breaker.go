package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/kasuboski/moviez/pkg/logger"
	"github.com/kasuboski/moviez/pkg/movie"
	"github.com/kasuboski/moviez/pkg/stats"
	gobreaker "github.com/sony/gobreaker/v2"
)

var _ ClientInterface = (*BreakerClient)(nil)

// BreakerSettings configures the circuit breakers of a BreakerClient
type BreakerSettings struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultBreakerSettings allows one trial request after 30s once five calls in a row failed
var DefaultBreakerSettings = BreakerSettings{
	MaxRequests:      1,
	Interval:         time.Minute,
	Timeout:          30 * time.Second,
	FailureThreshold: 5,
}

// BreakerClient wraps the filter and stats endpoints with circuit breakers.
// Both have a local fallback, so an open breaker fails fast instead of waiting
// on a degraded endpoint. Every other call goes straight to the wrapped client.
type BreakerClient struct {
	ClientInterface

	filter *gobreaker.CircuitBreaker[any]
	stats  *gobreaker.CircuitBreaker[any]
}

// NewBreakerClient wraps client
func NewBreakerClient(client ClientInterface, settings BreakerSettings) *BreakerClient {
	if settings.FailureThreshold == 0 {
		settings.FailureThreshold = DefaultBreakerSettings.FailureThreshold
	}

	return &BreakerClient{
		ClientInterface: client,
		filter:          newBreaker("movies-filter", settings),
		stats:           newBreaker("movies-stats", settings),
	}
}

func newBreaker(name string, settings BreakerSettings) *gobreaker.CircuitBreaker[any] {
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.FailureThreshold
		},
		// client errors say nothing about the endpoint's health
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			status := StatusCode(err)
			return status != 0 && status < http.StatusInternalServerError
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Get().Infow("circuit breaker state transition", "breaker", name, "from", stateToString(from), "to", stateToString(to))
		},
	})
}

// GetStats calls the stats endpoint through its breaker
func (b *BreakerClient) GetStats(ctx context.Context) (stats.Snapshot, error) {
	result, err := castResult[stats.Snapshot](execute(ctx, b.stats, func() (any, error) {
		snapshot, err := b.ClientInterface.GetStats(ctx)
		if err != nil {
			return nil, err
		}
		return &snapshot, nil
	}))
	if err != nil {
		return stats.Snapshot{}, err
	}
	return *result, nil
}

// FilterMovies calls the filter endpoint through its breaker
func (b *BreakerClient) FilterMovies(ctx context.Context, query url.Values) ([]movie.Movie, error) {
	result, err := castResult[[]movie.Movie](execute(ctx, b.filter, func() (any, error) {
		records, err := b.ClientInterface.FilterMovies(ctx, query)
		if err != nil {
			return nil, err
		}
		return &records, nil
	}))
	if err != nil {
		return nil, err
	}
	return *result, nil
}

// FilterState reports the state of the filter breaker
func (b *BreakerClient) FilterState() gobreaker.State {
	return b.filter.State()
}

// StatsState reports the state of the stats breaker
func (b *BreakerClient) StatsState() gobreaker.State {
	return b.stats.State()
}

func execute(ctx context.Context, cb *gobreaker.CircuitBreaker[any], fn func() (any, error)) (any, error) {
	result, err := cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		logger.FromCtx(ctx).Debugw("circuit breaker rejected request", "breaker", cb.Name(), "error", err)
	}
	return result, err
}

// castResult performs a type assertion on a breaker result
func castResult[T any](result any, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	typed, ok := result.(*T)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
