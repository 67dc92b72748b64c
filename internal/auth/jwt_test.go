// AngelaMos | 2026
// jwt_test.go

package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/oneclick-server/internal/config"
	"github.com/carterperez-dev/oneclick-server/internal/core"
)

func testJWTConfig(t *testing.T) config.JWTConfig {
	t.Helper()
	dir := t.TempDir()
	priv := filepath.Join(dir, "private.pem")
	pub := filepath.Join(dir, "public.pem")
	require.NoError(t, GenerateKeyPair(priv, pub))

	return config.JWTConfig{
		PrivateKeyPath:    priv,
		PublicKeyPath:     pub,
		AccessTokenExpire: time.Hour,
		Issuer:            "oneclick-server",
		Audience:          "oneclick-admin",
	}
}

func TestJWTManager_SignAndVerify(t *testing.T) {
	m, err := NewJWTManager(testJWTConfig(t))
	require.NoError(t, err)
	require.True(t, m.CanSign())

	token, err := m.CreateAccessToken("ops@example.com", RoleAdmin, 0)
	require.NoError(t, err)

	claims, err := m.VerifyAccessToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", claims.Subject)
	assert.Equal(t, RoleAdmin, claims.Role)
	assert.NotEmpty(t, claims.TokenID)
}

func TestJWTManager_PublicKeyOnlyVerifies(t *testing.T) {
	cfg := testJWTConfig(t)
	signer, err := NewJWTManager(cfg)
	require.NoError(t, err)

	verifierCfg := cfg
	verifierCfg.PrivateKeyPath = ""
	verifier, err := NewJWTManager(verifierCfg)
	require.NoError(t, err)

	assert.False(t, verifier.CanSign())
	assert.Equal(t, signer.GetKeyID(), verifier.GetKeyID())

	token, err := signer.CreateAccessToken("ops", RoleAdmin, time.Minute)
	require.NoError(t, err)

	_, err = verifier.VerifyAccessToken(context.Background(), token)
	require.NoError(t, err)

	_, err = verifier.CreateAccessToken("ops", RoleAdmin, time.Minute)
	assert.ErrorIs(t, err, ErrSigningDisabled)
}

func TestJWTManager_RejectsForeignTokens(t *testing.T) {
	m, err := NewJWTManager(testJWTConfig(t))
	require.NoError(t, err)

	other, err := NewJWTManager(testJWTConfig(t))
	require.NoError(t, err)
	foreign, err := other.CreateAccessToken("ops", RoleAdmin, time.Minute)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":   "not-a-jwt",
		"other key": foreign,
		"empty":     "",
		"truncated": foreign[:len(foreign)-10],
	} {
		_, err := m.VerifyAccessToken(context.Background(), token)
		assert.ErrorIs(t, err, core.ErrTokenInvalid, name)
	}
}

func TestJWTManager_RejectsWrongAudience(t *testing.T) {
	cfg := testJWTConfig(t)
	m, err := NewJWTManager(cfg)
	require.NoError(t, err)

	elsewhere := cfg
	elsewhere.Audience = "another-service"
	signer, err := NewJWTManager(elsewhere)
	require.NoError(t, err)

	token, err := signer.CreateAccessToken("ops", RoleAdmin, time.Minute)
	require.NoError(t, err)

	_, err = m.VerifyAccessToken(context.Background(), token)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestJWTManager_ExpiredToken(t *testing.T) {
	m, err := NewJWTManager(testJWTConfig(t))
	require.NoError(t, err)

	past := time.Now().Add(-2 * time.Hour)
	tok, err := jwt.NewBuilder().
		Issuer("oneclick-server").
		Audience([]string{"oneclick-admin"}).
		Subject("ops").
		IssuedAt(past).
		Expiration(past.Add(time.Minute)).
		Claim("role", RoleAdmin).
		Claim("type", tokenTypeAdmin).
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.ES256(), m.privateKey))
	require.NoError(t, err)

	_, err = m.VerifyAccessToken(context.Background(), string(signed))
	assert.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestJWTManager_RequiresAdminTokenType(t *testing.T) {
	m, err := NewJWTManager(testJWTConfig(t))
	require.NoError(t, err)

	now := time.Now()
	tok, err := jwt.NewBuilder().
		Issuer("oneclick-server").
		Audience([]string{"oneclick-admin"}).
		Subject("ops").
		IssuedAt(now).
		Expiration(now.Add(time.Hour)).
		Claim("role", RoleAdmin).
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.ES256(), m.privateKey))
	require.NoError(t, err)

	_, err = m.VerifyAccessToken(context.Background(), string(signed))
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestJWTManager_JWKSHandler(t *testing.T) {
	m, err := NewJWTManager(testJWTConfig(t))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	m.GetJWKSHandler()(w, httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var set struct {
		Keys []map[string]any `json:"keys"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&set))
	require.Len(t, set.Keys, 1)
	assert.Equal(t, "EC", set.Keys[0]["kty"])
	assert.Equal(t, m.GetKeyID(), set.Keys[0]["kid"])
	assert.NotContains(t, set.Keys[0], "d", "private component must not be published")
}

func TestNewJWTManager_RequiresKey(t *testing.T) {
	_, err := NewJWTManager(config.JWTConfig{})
	assert.Error(t, err)
}
