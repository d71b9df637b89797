package auth

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func TestUserIDFromClaim(t *testing.T) {
	p := NewProvider(testLogger())
	p.SetTokens(signedToken(t, jwt.MapClaims{"user_id": 42, "exp": time.Now().Add(time.Hour).Unix()}), "")

	id, err := p.UserID()

	require.NoError(t, err)
	assert.Equal(t, 42, id)
}

func TestUserIDWithoutToken(t *testing.T) {
	p := NewProvider(testLogger())

	_, err := p.UserID()

	assert.ErrorIs(t, err, ErrNoToken)
}

func TestUserIDWithoutClaim(t *testing.T) {
	p := NewProvider(testLogger())
	p.SetTokens(signedToken(t, jwt.MapClaims{"sub": "someone"}), "")

	_, err := p.UserID()

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestUserIDGarbageToken(t *testing.T) {
	p := NewProvider(testLogger())
	p.SetTokens("not.a.jwt", "")

	_, err := p.UserID()

	assert.Error(t, err)
}

func TestSetTokensTrimsWhitespace(t *testing.T) {
	p := NewProvider(testLogger())

	p.SetTokens("  access \n", " refresh ")

	assert.Equal(t, "access", p.Token())
	assert.Equal(t, "refresh", p.RefreshToken())
	assert.True(t, p.Authenticated())
}

func TestLogoutDropsBothTokens(t *testing.T) {
	p := NewProvider(testLogger())
	p.SetTokens("access", "refresh")

	p.Logout()

	assert.Empty(t, p.Token())
	assert.Empty(t, p.RefreshToken())
	assert.False(t, p.Authenticated())
}

func TestChangedSignalsEveryTransition(t *testing.T) {
	p := NewProvider(testLogger())
	ch := p.Changed()

	p.SetTokens("access", "")
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no signal after SetTokens")
	}

	p.Logout()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no signal after Logout")
	}
}

func TestChangedCoalescesWhenReceiverLags(t *testing.T) {
	p := NewProvider(testLogger())
	ch := p.Changed()

	p.SetTokens("a", "")
	p.SetTokens("b", "")
	p.SetTokens("c", "")

	<-ch
	select {
	case <-ch:
		t.Fatal("burst of changes must coalesce into one pending signal")
	default:
	}
	assert.Equal(t, "c", p.Token())
}
