package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"testing"
	"time"

	"github.com/kasuboski/moviez/pkg/http/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func response(status int, header http.Header) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode: status,
		Header:     header,
		Body:       io.NopCloser(bytes.NewBufferString("")),
	}
}

func TestRateLimitedClient_Do(t *testing.T) {
	t.Run("error during request", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockClient := mocks.NewMockHTTPClient(ctrl)
		client := NewRateLimitedClient(WithHTTPClient(mockClient), WithoutJitter())

		req, err := http.NewRequest(http.MethodGet, "http://moviez.test/api/movies", nil)
		require.NoError(t, err)

		mockClient.EXPECT().Do(req).Return(nil, errors.New("connection refused")).Times(1)

		resp, err := client.Do(req)
		assert.Nil(t, resp)
		assert.EqualError(t, err, "connection refused")
	})

	t.Run("non 429 response", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockClient := mocks.NewMockHTTPClient(ctrl)
		client := NewRateLimitedClient(WithHTTPClient(mockClient))

		req, err := http.NewRequest(http.MethodGet, "http://moviez.test/api/movies", nil)
		require.NoError(t, err)

		mockClient.EXPECT().Do(req).Return(response(http.StatusOK, nil), nil).Times(1)

		resp, err := client.Do(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("429 response - max retries", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockClient := mocks.NewMockHTTPClient(ctrl)
		client := NewRateLimitedClient(
			WithHTTPClient(mockClient),
			WithMaxRetries(2),
			WithBaseBackoff(time.Millisecond),
			WithoutJitter(),
		)

		req, err := http.NewRequest(http.MethodGet, "http://moviez.test/api/movies", nil)
		require.NoError(t, err)

		mockClient.EXPECT().Do(req).DoAndReturn(func(*http.Request) (*http.Response, error) {
			return response(http.StatusTooManyRequests, nil), nil
		}).Times(2)

		resp, err := client.Do(req)
		assert.EqualError(t, err, "rate limit exceeded after 2 retries")
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	})

	t.Run("429 response - succeeds after retry", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockClient := mocks.NewMockHTTPClient(ctrl)
		client := NewRateLimitedClient(
			WithHTTPClient(mockClient),
			WithBaseBackoff(time.Millisecond),
			WithoutJitter(),
		)

		req, err := http.NewRequest(http.MethodGet, "http://moviez.test/api/movies", nil)
		require.NoError(t, err)

		gomock.InOrder(
			mockClient.EXPECT().Do(req).Return(response(http.StatusTooManyRequests, nil), nil),
			mockClient.EXPECT().Do(req).Return(response(http.StatusOK, nil), nil),
		)

		resp, err := client.Do(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("429 response - body is resent", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockClient := mocks.NewMockHTTPClient(ctrl)
		client := NewRateLimitedClient(
			WithHTTPClient(mockClient),
			WithBaseBackoff(time.Millisecond),
			WithoutJitter(),
		)

		req, err := http.NewRequest(http.MethodPut, "http://moviez.test/api/movies/1", bytes.NewBufferString(`{"watched":true}`))
		require.NoError(t, err)

		var bodies []string
		mockClient.EXPECT().Do(req).DoAndReturn(func(r *http.Request) (*http.Response, error) {
			b, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			bodies = append(bodies, string(b))
			if len(bodies) == 1 {
				return response(http.StatusTooManyRequests, nil), nil
			}
			return response(http.StatusOK, nil), nil
		}).Times(2)

		resp, err := client.Do(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, []string{`{"watched":true}`, `{"watched":true}`}, bodies)
	})

	t.Run("429 response - context canceled while waiting", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockClient := mocks.NewMockHTTPClient(ctrl)
		client := NewRateLimitedClient(WithHTTPClient(mockClient))

		ctx, cancel := context.WithCancel(context.Background())
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://moviez.test/api/movies", nil)
		require.NoError(t, err)

		mockClient.EXPECT().Do(req).DoAndReturn(func(*http.Request) (*http.Response, error) {
			cancel()
			return response(http.StatusTooManyRequests, http.Header{"Retry-After": []string{"30"}}), nil
		}).Times(1)

		resp, err := client.Do(req)
		assert.Nil(t, resp)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRateLimitedClient_getRetryAfter(t *testing.T) {
	tests := []struct {
		name        string
		baseBackoff time.Duration
		response    *http.Response
		attempt     int
		want        time.Duration
	}{
		{
			name:        "retry after header",
			baseBackoff: time.Second,
			response:    response(http.StatusTooManyRequests, http.Header{"Retry-After": []string{"10"}}),
			attempt:     0,
			want:        time.Second * 10,
		},
		{
			name:        "invalid retry after header",
			baseBackoff: time.Second,
			response:    response(http.StatusTooManyRequests, http.Header{"Retry-After": []string{"soon"}}),
			attempt:     1,
			want:        time.Second * 2,
		},
		{
			name:        "exponential backoff",
			baseBackoff: time.Second,
			response:    response(http.StatusTooManyRequests, nil),
			attempt:     3,
			want:        time.Second * 8,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewRateLimitedClient(WithBaseBackoff(tt.baseBackoff), WithoutJitter())
			if got := c.getRetryAfter(tt.response, tt.attempt); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("RateLimitedClient.getRetryAfter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRandomJitter(t *testing.T) {
	assert.Zero(t, randomJitter(0))
	for range 100 {
		j := randomJitter(time.Second)
		assert.GreaterOrEqual(t, j, time.Duration(0))
		assert.Less(t, j, time.Second)
	}
}

func TestNewSessionClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc123", Path: "/"})
		case "/me":
			c, err := r.Cookie("session")
			if err != nil || c.Value != "abc123" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := NewSessionClient(0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, client.Timeout)

	resp, err := client.Get(srv.URL + "/me")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = client.Get(srv.URL + "/login")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = client.Get(srv.URL + "/me")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	assert.Len(t, client.Jar.Cookies(u), 1)
}
