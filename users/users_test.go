package users_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/light-auth/users"
	"github.com/stretchr/testify/require"
)

func sampleUser() *users.User {
	return &users.User{
		ID:                   "session-user-1",
		ProviderUserID:       "google-1",
		Email:                "jane@example.com",
		Name:                 "Jane",
		ProviderName:         "google",
		Picture:              "https://img.example.com/jane.png",
		AccessToken:          "access-1",
		AccessTokenExpiresAt: time.Date(2025, 1, 1, 13, 0, 0, 0, time.UTC),
		RefreshToken:         "refresh-1",
		Claims:               map[string]any{"locale": "en"},
	}
}

func TestMerge(t *testing.T) {
	prev := sampleUser()

	t.Run("empty tokens keep stored values", func(t *testing.T) {
		next := sampleUser()
		next.AccessToken = ""
		next.AccessTokenExpiresAt = time.Time{}
		next.RefreshToken = ""
		next.Name = "Jane Doe"

		merged := users.Merge(prev, next)
		require.Equal(t, "access-1", merged.AccessToken)
		require.Equal(t, prev.AccessTokenExpiresAt, merged.AccessTokenExpiresAt)
		require.Equal(t, "refresh-1", merged.RefreshToken)
		require.Equal(t, "Jane Doe", merged.Name)
	})

	t.Run("new tokens replace stored values", func(t *testing.T) {
		next := sampleUser()
		next.AccessToken = "access-2"
		next.RefreshToken = ""
		merged := users.Merge(prev, next)
		require.Equal(t, "access-2", merged.AccessToken)
		require.Equal(t, "refresh-1", merged.RefreshToken)
	})

	t.Run("no previous user", func(t *testing.T) {
		next := sampleUser()
		merged := users.Merge(nil, next)
		require.Equal(t, next, merged)
		require.NotSame(t, next, merged)
	})

	require.Nil(t, users.Merge(prev, nil))
}

func TestPublicStripsTokens(t *testing.T) {
	u := sampleUser()
	pub := u.Public()
	require.Empty(t, pub.AccessToken)
	require.Empty(t, pub.RefreshToken)
	require.Equal(t, "access-1", u.AccessToken, "original untouched")
	require.Nil(t, (*users.User)(nil).Public())
}

func TestMemoryAdapter(t *testing.T) {
	ctx := context.Background()
	adapter := users.NewMemoryAdapter()

	got, err := adapter.GetUser(ctx, "missing")
	require.NoError(t, err)
	require.Nil(t, got)

	u := sampleUser()
	require.NoError(t, adapter.SetUser(ctx, u))

	got, err = adapter.GetUser(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u, got)

	got.Claims["locale"] = "fr"
	again, err := adapter.GetUser(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "en", again.Claims["locale"], "stored copy is isolated")

	require.NoError(t, adapter.DeleteUser(ctx, u.ID))
	got, err = adapter.GetUser(ctx, u.ID)
	require.NoError(t, err)
	require.Nil(t, got)

	require.Error(t, adapter.SetUser(ctx, &users.User{}))
}

func TestIDForIsStable(t *testing.T) {
	a := users.IDFor("google", "123")
	require.Equal(t, a, users.IDFor("google", "123"))
	require.NotEqual(t, a, users.IDFor("github", "123"))
	require.NotEqual(t, users.IDFor("goo", "gle123"), users.IDFor("google", "123"))
}
