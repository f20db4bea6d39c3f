// ABOUTME: Unit tests for broker token issuance
// ABOUTME: Tests audience/subject claims, invalid tokens, and expiry

package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("realtime-test-secret-32-bytes-ok")

func TestTokenIssuer_IssueAndVerify(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)

	token, err := issuer.Issue("https://broker.example/api/v1/hubs/askai/groups/s-1/:send", "")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	aud, sub, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "https://broker.example/api/v1/hubs/askai/groups/s-1/:send", aud)
	assert.Empty(t, sub)
}

func TestTokenIssuer_SubjectBinding(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)

	token, err := issuer.Issue("https://broker.example/client/?hub=askai", "author-42")
	require.NoError(t, err)

	aud, sub, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "https://broker.example/client/?hub=askai", aud)
	assert.Equal(t, "author-42", sub)
}

func TestTokenIssuer_DefaultTTL(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, 0)
	assert.Equal(t, DefaultTokenTTL, issuer.ttl)
}

func TestTokenIssuer_Expired(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, -time.Minute)

	token, err := issuer.Issue("aud", "")
	require.NoError(t, err)

	_, _, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenIssuer_InvalidTokens(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt"},
		{"wrong secret", func() string {
			other := NewTokenIssuer([]byte("a-completely-different-secret!!!"), time.Hour)
			token, _ := other.Issue("aud", "")
			return token
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := issuer.Verify(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
