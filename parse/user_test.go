package parse

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raywall/parse-toolkit/parseerr"
)

func signup(t *testing.T, c *Client, username, password string) *User {
	t.Helper()
	u := NewUser()
	require.NoError(t, u.SetUsername(username))
	require.NoError(t, u.SetPassword(password))
	require.NoError(t, u.SetEmail(username+"@example.com"))
	require.NoError(t, c.Signup(context.Background(), u))
	return u
}

func TestUser_SignupCommitsSession(t *testing.T) {
	var snaps []SessionSnapshot
	c, _, _ := emulated(t, nil, WithSessionListener(func(s SessionSnapshot) { snaps = append(snaps, s) }))

	u := signup(t, c, "ana", "pw")
	assert.NotEmpty(t, u.ObjectID)
	assert.NotEmpty(t, u.SessionToken)
	_, hasPassword := u.Get("password")
	assert.False(t, hasPassword)

	snap := c.Session()
	assert.Equal(t, u.SessionToken, snap.Token)
	require.NotNil(t, snap.User)
	assert.Equal(t, "ana", snap.User.Username())

	require.Len(t, snaps, 1)
	assert.Equal(t, u.SessionToken, snaps[0].Token)
}

func TestUser_SignupPreconditions(t *testing.T) {
	c, _, doer := emulated(t, nil)
	u := NewUser()
	require.NoError(t, u.SetUsername("ana"))
	err := c.Signup(context.Background(), u)
	assert.ErrorIs(t, err, ErrMissingCredentials)
	assert.Zero(t, doer.calls.Load())
}

func TestUser_SignupDuplicate(t *testing.T) {
	c, _, _ := emulated(t, nil)
	signup(t, c, "ana", "pw")
	before := c.SessionToken()

	u := NewUser()
	require.NoError(t, u.SetUsername("ana"))
	require.NoError(t, u.SetPassword("x"))
	err := c.Signup(context.Background(), u)
	assert.True(t, parseerr.IsCode(err, parseerr.UsernameTaken))
	assert.Equal(t, before, c.SessionToken())
}

func TestUser_LoginLogout(t *testing.T) {
	c, _, _ := emulated(t, nil)
	ctx := context.Background()
	signup(t, c, "ana", "pw")
	c.ClearSession()
	assert.Empty(t, c.SessionToken())

	_, err := c.Login(ctx, "ana", "wrong")
	assert.True(t, parseerr.IsCode(err, parseerr.ObjectNotFound))
	assert.Empty(t, c.SessionToken())

	u, err := c.Login(ctx, "ana", "pw")
	require.NoError(t, err)
	assert.Equal(t, "ana", u.Username())
	assert.Equal(t, u.SessionToken, c.SessionToken())

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, u.ObjectID, me.ObjectID)

	require.NoError(t, c.Logout(ctx))
	assert.Empty(t, c.SessionToken())
	assert.Nil(t, c.CurrentUser())

	err = c.Logout(ctx)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	_, err = c.Me(ctx)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestUser_LoginPreconditions(t *testing.T) {
	c, _, doer := emulated(t, nil)
	_, err := c.Login(context.Background(), "", "pw")
	assert.ErrorIs(t, err, ErrMissingCredentials)
	_, err = c.Login(context.Background(), "ana", "")
	assert.ErrorIs(t, err, ErrMissingCredentials)
	assert.Zero(t, doer.calls.Load())
}

func TestUser_FailedLogoutKeepsSession(t *testing.T) {
	c, _, _ := emulated(t, nil)
	ctx := context.Background()
	signup(t, c, "ana", "pw")

	// revoga o token no servidor por fora do client
	sessions, err := c.Sessions(ctx, UseMasterKey())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.NoError(t, c.DeleteSession(ctx, sessions[0], UseMasterKey()))

	token := c.SessionToken()
	err = c.Logout(ctx)
	assert.True(t, parseerr.IsCode(err, parseerr.InvalidSessionToken))
	assert.Equal(t, token, c.SessionToken())
}

func TestUser_Become(t *testing.T) {
	c, _, _ := emulated(t, nil)
	ctx := context.Background()
	u := signup(t, c, "ana", "pw")
	token := u.SessionToken

	other, _, _ := emulated(t, nil)
	_, err := other.Become(ctx, "")
	assert.ErrorIs(t, err, ErrEmptySessionToken)

	got, err := c.Become(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, u.ObjectID, got.ObjectID)
	assert.Equal(t, token, got.SessionToken)

	_, err = c.Become(ctx, "r:bogus")
	assert.True(t, parseerr.IsCode(err, parseerr.InvalidSessionToken))
	assert.Equal(t, token, c.SessionToken(), "failed become keeps the previous session")
}

func TestUser_EmailRequests(t *testing.T) {
	c, _, _ := emulated(t, nil)
	ctx := context.Background()
	signup(t, c, "ana", "pw")

	assert.NoError(t, c.RequestPasswordReset(ctx, "ana@example.com"))
	assert.NoError(t, c.RequestVerificationEmail(ctx, "ana@example.com"))
	assert.True(t, parseerr.IsCode(c.RequestPasswordReset(ctx, "nobody@example.com"), parseerr.EmailNotFound))
	assert.ErrorIs(t, c.RequestPasswordReset(ctx, ""), ErrMissingEmail)
}

func TestUser_QueryUsers(t *testing.T) {
	c, _, _ := emulated(t, nil)
	ctx := context.Background()
	signup(t, c, "ana", "pw")
	signup(t, c, "bia", "pw")

	users, err := c.Users().OrderBy("username").Find(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "ana", users[0].Username())

	got, err := c.GetUser(ctx, users[1].ObjectID)
	require.NoError(t, err)
	assert.Equal(t, "bia", got.Username())
}

// Leitores concorrentes nunca observam token e usuário de logins diferentes.
func TestSession_SnapshotIsConsistent(t *testing.T) {
	c, _, _ := emulated(t, nil)
	ctx := context.Background()
	signup(t, c, "ana", "pw")
	signup(t, c, "bia", "pw")

	var stop atomic.Bool
	var torn atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !stop.Load() {
				snap := c.Session()
				if snap.Token == "" {
					continue
				}
				if snap.User == nil || snap.User.SessionToken != snap.Token {
					torn.Add(1)
				}
			}
		}()
	}

	for i := 0; i < 10; i++ {
		name := "ana"
		if i%2 == 1 {
			name = "bia"
		}
		_, err := c.Login(ctx, name, "pw")
		require.NoError(t, err)
	}
	stop.Store(true)
	wg.Wait()
	assert.Zero(t, torn.Load())
}

func TestSession_ReturnedUserIsACopy(t *testing.T) {
	c, _, _ := emulated(t, nil)
	signup(t, c, "ana", "pw")

	u := c.CurrentUser()
	require.NoError(t, u.SetUsername("changed"))
	assert.Equal(t, "ana", c.CurrentUser().Username())
}
