package session

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/kasuboski/moviez/pkg/api"
	"github.com/kasuboski/moviez/pkg/api/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestAllowed(t *testing.T) {
	tests := []struct {
		role    Role
		action  Action
		allowed bool
	}{
		{RoleUser, ActionRead, true},
		{RoleUser, ActionFilter, true},
		{RoleUser, ActionStats, true},
		{RoleUser, ActionAdd, false},
		{RoleUser, ActionUpdate, false},
		{RoleUser, ActionDelete, false},
		{RoleAdmin, ActionRead, true},
		{RoleAdmin, ActionAdd, true},
		{RoleAdmin, ActionUpdate, true},
		{RoleAdmin, ActionDelete, true},
		{Role("guest"), ActionRead, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.action), func(t *testing.T) {
			assert.Equal(t, tt.allowed, Allowed(tt.role, tt.action))
		})
	}
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Admin ")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, r)

	_, err = ParseRole("root")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestGate_NoSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	g := New(mocks.NewMockClientInterface(ctrl))

	assert.False(t, g.IsAuthenticated())
	for _, a := range []Action{ActionRead, ActionFilter, ActionStats, ActionAdd, ActionUpdate, ActionDelete} {
		assert.False(t, g.Can(a), a)
	}
}

func TestGate_Check(t *testing.T) {
	ctx := context.Background()

	t.Run("authenticated", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		client := mocks.NewMockClientInterface(ctrl)
		client.EXPECT().CheckSession(ctx).Return(api.AuthStatus{Authenticated: true, User: &api.User{Username: "ana", Role: "admin"}}, nil)

		g := New(client)
		require.NoError(t, g.Check(ctx))

		user, ok := g.User()
		require.True(t, ok)
		assert.Equal(t, User{Username: "ana", Role: RoleAdmin}, user)
		assert.True(t, g.Can(ActionDelete))
	})

	t.Run("not authenticated", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		client := mocks.NewMockClientInterface(ctrl)
		client.EXPECT().CheckSession(ctx).Return(api.AuthStatus{Authenticated: false}, nil)

		g := New(client)
		require.NoError(t, g.Check(ctx))
		assert.False(t, g.IsAuthenticated())
	})

	t.Run("failure clears the session", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		client := mocks.NewMockClientInterface(ctrl)
		gomock.InOrder(
			client.EXPECT().CheckSession(ctx).Return(api.AuthStatus{Authenticated: true, User: &api.User{Username: "ana", Role: "user"}}, nil),
			client.EXPECT().CheckSession(ctx).Return(api.AuthStatus{}, errors.New("connection refused")),
		)

		g := New(client)
		require.NoError(t, g.Check(ctx))
		assert.True(t, g.IsAuthenticated())

		assert.Error(t, g.Check(ctx))
		assert.False(t, g.IsAuthenticated())
	})

	t.Run("unknown role", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		client := mocks.NewMockClientInterface(ctrl)
		client.EXPECT().CheckSession(ctx).Return(api.AuthStatus{Authenticated: true, User: &api.User{Username: "ana", Role: "owner"}}, nil)

		g := New(client)
		assert.ErrorIs(t, g.Check(ctx), ErrUnknownRole)
		assert.False(t, g.IsAuthenticated())
	})
}

func TestGate_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("validates before calling", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		client := mocks.NewMockClientInterface(ctrl)
		client.EXPECT().Login(gomock.Any(), gomock.Any()).Times(0)

		g := New(client)
		_, err := g.Login(ctx, api.Credentials{Username: "  ", Password: "secret"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		_, err = g.Login(ctx, api.Credentials{Username: "ana"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		client := mocks.NewMockClientInterface(ctrl)
		client.EXPECT().Login(ctx, api.Credentials{Username: "ana", Password: "secret"}).Return(api.User{Username: "ana", Role: "user"}, nil)

		g := New(client)
		var seen []*User
		g.Subscribe(func(u *User) { seen = append(seen, u) })

		user, err := g.Login(ctx, api.Credentials{Username: " ana ", Password: "secret"})
		require.NoError(t, err)
		assert.Equal(t, RoleUser, user.Role)
		assert.True(t, g.Can(ActionRead))
		assert.False(t, g.Can(ActionAdd))
		require.Len(t, seen, 1)
		assert.Equal(t, "ana", seen[0].Username)
	})

	t.Run("rejected", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		client := mocks.NewMockClientInterface(ctrl)
		client.EXPECT().Login(ctx, gomock.Any()).Return(api.User{}, &api.Error{Status: http.StatusUnauthorized, Message: "Invalid username or password"})

		g := New(client)
		_, err := g.Login(ctx, api.Credentials{Username: "ana", Password: "nope"})
		assert.EqualError(t, err, "Invalid username or password")
		assert.False(t, g.IsAuthenticated())
	})
}

func TestGate_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("logs in after registering", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		client := mocks.NewMockClientInterface(ctrl)
		gomock.InOrder(
			client.EXPECT().Register(ctx, api.Profile{Username: "ana", Email: "ana@example.com", Password: "secret", Role: "user"}).Return(nil),
			client.EXPECT().Login(ctx, api.Credentials{Username: "ana", Password: "secret"}).Return(api.User{Username: "ana", Email: "ana@example.com", Role: "user"}, nil),
		)

		g := New(client)
		user, err := g.Register(ctx, api.Profile{Username: "ana", Email: "ana@example.com", Password: "secret"})
		require.NoError(t, err)
		assert.Equal(t, User{Username: "ana", Email: "ana@example.com", Role: RoleUser}, user)
		assert.True(t, g.IsAuthenticated())
	})

	t.Run("invalid profile", func(t *testing.T) {
		tests := []struct {
			name    string
			profile api.Profile
		}{
			{name: "bad email", profile: api.Profile{Username: "ana", Email: "nope", Password: "secret"}},
			{name: "short password", profile: api.Profile{Username: "ana", Email: "ana@example.com", Password: "abc"}},
			{name: "short username", profile: api.Profile{Username: "an", Email: "ana@example.com", Password: "secret"}},
			{name: "unknown role", profile: api.Profile{Username: "ana", Email: "ana@example.com", Password: "secret", Role: "owner"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				ctrl := gomock.NewController(t)
				client := mocks.NewMockClientInterface(ctrl)

				g := New(client)
				_, err := g.Register(ctx, tt.profile)
				assert.ErrorIs(t, err, ErrInvalidCredentials)
			})
		}
	})

	t.Run("remote failure does not log in", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		client := mocks.NewMockClientInterface(ctrl)
		client.EXPECT().Register(ctx, gomock.Any()).Return(&api.Error{Status: http.StatusConflict, Message: "Username already exists"})

		g := New(client)
		_, err := g.Register(ctx, api.Profile{Username: "ana", Email: "ana@example.com", Password: "secret"})
		assert.EqualError(t, err, "Username already exists")
		assert.False(t, g.IsAuthenticated())
	})
}

func TestGate_Logout(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		remoteErr error
	}{
		{name: "success"},
		{name: "remote failure still clears", remoteErr: errors.New("connection refused")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			client := mocks.NewMockClientInterface(ctrl)
			client.EXPECT().Login(ctx, gomock.Any()).Return(api.User{Username: "ana", Role: "admin"}, nil)
			client.EXPECT().Logout(ctx).Return(tt.remoteErr)

			g := New(client)
			_, err := g.Login(ctx, api.Credentials{Username: "ana", Password: "secret"})
			require.NoError(t, err)

			err = g.Logout(ctx)
			assert.Equal(t, tt.remoteErr, err)
			assert.False(t, g.IsAuthenticated())
			assert.False(t, g.Can(ActionRead))
		})
	}
}

func TestGate_Clear(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClientInterface(ctrl)
	client.EXPECT().Login(ctx, gomock.Any()).Return(api.User{Username: "ana", Role: "admin"}, nil)

	g := New(client)
	_, err := g.Login(ctx, api.Credentials{Username: "ana", Password: "secret"})
	require.NoError(t, err)

	g.Clear()
	assert.False(t, g.IsAuthenticated())
}
