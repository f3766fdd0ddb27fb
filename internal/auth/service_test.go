package auth_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"masterannonce/internal/auth"
	"masterannonce/internal/auth/authtest"
	"masterannonce/internal/models"
	"masterannonce/internal/session"
)

type loginCounter map[string]int

func (c loginCounter) ObserveLogin(outcome string) { c[outcome]++ }

func newService(t *testing.T) (*auth.Service, *authtest.Users, *authtest.Credentials) {
	t.Helper()
	users := authtest.NewUsers()
	creds := authtest.NewCredentials()
	svc := auth.NewService(users, auth.NewTokens(testSecret, time.Hour, 24*time.Hour, creds))
	return svc, users, creds
}

func TestRegister(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "alice", "alice@example.com", "Password1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, u.Role)

	_, err = svc.Register(ctx, "alice", "other@example.com", "Password1")
	assert.ErrorIs(t, err, auth.ErrUsernameTaken)

	_, err = svc.Register(ctx, "bob", "ALICE@example.com", "Password1")
	assert.ErrorIs(t, err, auth.ErrEmailTaken)
}

func TestLogin(t *testing.T) {
	svc, _, _ := newService(t)
	counter := loginCounter{}
	svc.SetObserver(counter)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "alice@example.com", "Password1")
	require.NoError(t, err)

	pair, err := svc.Login(ctx, "alice", "Password1")
	require.NoError(t, err)
	assert.Equal(t, "alice", pair.Username)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	_, err = svc.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody", "Password1")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	assert.Equal(t, loginCounter{"success": 1, "rejected": 2}, counter)
}

func TestRefreshRotates(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "alice", "alice@example.com", "Password1")
	require.NoError(t, err)
	first, err := svc.Login(ctx, "alice", "Password1")
	require.NoError(t, err)

	second, err := svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// The presented refresh token is single use.
	_, err = svc.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = svc.Tokens().Verify(ctx, second.AccessToken, session.KindAccess)
	assert.NoError(t, err)

	// An access token cannot be used to refresh.
	_, err = svc.Refresh(ctx, second.AccessToken)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

// barrierCredentials holds every credential lookup until n callers have
// arrived, so concurrent redemptions of one token overlap.
type barrierCredentials struct {
	*authtest.Credentials
	arrived sync.WaitGroup
}

func (b *barrierCredentials) Get(ctx context.Context, id string) (*session.Data, error) {
	b.arrived.Done()
	b.arrived.Wait()
	return b.Credentials.Get(ctx, id)
}

func (b *barrierCredentials) Consume(ctx context.Context, id string) (*session.Data, error) {
	b.arrived.Done()
	b.arrived.Wait()
	return b.Credentials.Consume(ctx, id)
}

func TestConcurrentRefreshIsSingleUse(t *testing.T) {
	const callers = 2
	users := authtest.NewUsers()
	_, err := users.Create(context.Background(), "alice", "alice@example.com", "Password1", models.RoleUser)
	require.NoError(t, err)

	creds := &barrierCredentials{Credentials: authtest.NewCredentials()}
	svc := auth.NewService(users, auth.NewTokens(testSecret, time.Hour, 24*time.Hour, creds))

	// Issuing does not look credentials up, so the barrier is armed only
	// for the refreshes below.
	pair, err := svc.Login(context.Background(), "alice", "Password1")
	require.NoError(t, err)
	creds.arrived.Add(callers)

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		rejected  atomic.Int32
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Refresh(context.Background(), pair.RefreshToken)
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, auth.ErrInvalidToken):
				rejected.Add(1)
			default:
				t.Errorf("refresh: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(1), rejected.Load())
}

func TestRefreshRejectsDeletedAccount(t *testing.T) {
	svc, users, _ := newService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "alice", "alice@example.com", "Password1")
	require.NoError(t, err)
	pair, err := svc.Login(ctx, "alice", "Password1")
	require.NoError(t, err)

	users.Remove("alice")
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestLogoutRevokesBothTokens(t *testing.T) {
	svc, _, creds := newService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "alice", "alice@example.com", "Password1")
	require.NoError(t, err)
	pair, err := svc.Login(ctx, "alice", "Password1")
	require.NoError(t, err)

	p, err := svc.Tokens().Verify(ctx, pair.AccessToken, session.KindAccess)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, p, pair.RefreshToken))
	assert.Equal(t, 0, creds.Len())

	_, err = svc.Tokens().Verify(ctx, pair.AccessToken, session.KindAccess)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestLogoutIgnoresForeignRefreshToken(t *testing.T) {
	svc, _, creds := newService(t)
	ctx := context.Background()
	for _, name := range []string{"alice", "bob"} {
		_, err := svc.Register(ctx, name, name+"@example.com", "Password1")
		require.NoError(t, err)
	}
	alice, err := svc.Login(ctx, "alice", "Password1")
	require.NoError(t, err)
	bob, err := svc.Login(ctx, "bob", "Password1")
	require.NoError(t, err)

	p, err := svc.Tokens().Verify(ctx, alice.AccessToken, session.KindAccess)
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, p, bob.RefreshToken))

	// Alice's access credential is gone; bob's pair and alice's refresh remain.
	assert.Equal(t, 3, creds.Len())
	_, err = svc.Refresh(ctx, bob.RefreshToken)
	assert.NoError(t, err)
}
