package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "bazaar-identity", ExpirationMinutes: 30}

func TestMintAndParseVendorToken(t *testing.T) {
	now := time.Now().UTC()
	userID := uuid.New()
	storeID := uuid.New()

	token, err := MintAccessToken(testJWT, now, ActorPayload{UserID: userID, Kind: enums.ActorVendor, StoreID: &storeID})
	require.NoError(t, err)

	claims, err := NewVerifier(testJWT).Verify(token)
	require.NoError(t, err)
	actor := claims.Actor()
	assert.Equal(t, userID, actor.UserID)
	assert.Equal(t, enums.ActorVendor, actor.Kind)
	require.NotNil(t, actor.StoreID)
	assert.Equal(t, storeID, *actor.StoreID)
	assert.Equal(t, testJWT.Issuer, claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestParseRejectsBadTokens(t *testing.T) {
	now := time.Now().UTC()
	token, err := MintAccessToken(testJWT, now, ActorPayload{UserID: uuid.New(), Kind: enums.ActorCustomer})
	require.NoError(t, err)

	other := testJWT
	other.Secret = "rotated"
	_, err = NewVerifier(other).Verify(token)
	assert.Error(t, err, "wrong secret")

	other = testJWT
	other.Issuer = "someone-else"
	_, err = NewVerifier(other).Verify(token)
	assert.Error(t, err, "wrong issuer")

	expired, err := MintAccessToken(testJWT, now.Add(-time.Hour), ActorPayload{UserID: uuid.New(), Kind: enums.ActorCustomer})
	require.NoError(t, err)
	_, err = NewVerifier(testJWT).Verify(expired)
	assert.Error(t, err, "expired")

	_, err = NewVerifier(config.JWTConfig{Issuer: testJWT.Issuer}).Verify(token)
	assert.ErrorIs(t, err, ErrSecretMissing)
}

func TestVerifyAllowsConfiguredLeeway(t *testing.T) {
	// ExpirationMinutes 30 minted 30m10s ago: expired by ten seconds.
	token, err := MintAccessToken(testJWT, time.Now().Add(-30*time.Minute-10*time.Second), ActorPayload{UserID: uuid.New(), Kind: enums.ActorCustomer})
	require.NoError(t, err)

	_, err = NewVerifier(testJWT).Verify(token)
	assert.Error(t, err, "no leeway")

	lenient := testJWT
	lenient.Leeway = time.Minute
	_, err = NewVerifier(lenient).Verify(token)
	assert.NoError(t, err)
}

func TestVerifyRejectsForgedActorFields(t *testing.T) {
	storeID := uuid.New()
	claims := ActorClaims{
		UserID:  uuid.New(),
		Kind:    enums.ActorVendor,
		StoreID: &storeID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testJWT.Issuer,
			Subject:   uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWT.Secret))
	require.NoError(t, err)

	_, err = NewVerifier(testJWT).Verify(signed)
	assert.ErrorContains(t, err, "subject does not match")
}

func TestMintValidatesActor(t *testing.T) {
	now := time.Now()
	_, err := MintAccessToken(testJWT, now, ActorPayload{UserID: uuid.New(), Kind: enums.ActorVendor})
	assert.Error(t, err, "vendor without store")

	_, err = MintAccessToken(testJWT, now, ActorPayload{UserID: uuid.New(), Kind: enums.ActorSystem})
	assert.Error(t, err, "system actors never hold tokens")

	_, err = MintAccessToken(testJWT, now, ActorPayload{Kind: enums.ActorAdmin})
	assert.Error(t, err, "missing user")
}
