package auth

import (
	"testing"

	"github.com/qbdsync/backend/internal/domain/realm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var _ realm.PasswordHasher = (*PasswordHasher)(nil)

// small parameters keep the suite fast
var testArgon2Params = Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func TestPasswordHasher_Bcrypt(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	encoded, err := h.Hash("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", encoded)

	matched, outdated, err := h.Verify(encoded, "s3cret")
	require.NoError(t, err)
	assert.True(t, matched)
	assert.False(t, outdated)

	matched, outdated, err = h.Verify(encoded, "wrong")
	require.NoError(t, err)
	assert.False(t, matched)
	assert.False(t, outdated)
}

func TestPasswordHasher_WeakerBcryptCostIsOutdated(t *testing.T) {
	weak, err := NewPasswordHasher(bcrypt.MinCost).Hash("s3cret")
	require.NoError(t, err)

	matched, outdated, err := NewPasswordHasher(bcrypt.MinCost+1).Verify(weak, "s3cret")
	require.NoError(t, err)
	assert.True(t, matched)
	assert.True(t, outdated)
}

func TestPasswordHasher_Argon2idIsAcceptedAndOutdated(t *testing.T) {
	encoded, err := HashArgon2id("s3cret", testArgon2Params)
	require.NoError(t, err)
	assert.Contains(t, encoded, "$argon2id$v=19$m=1024,t=1,p=1$")

	h := NewPasswordHasher(bcrypt.MinCost)

	matched, outdated, err := h.Verify(encoded, "s3cret")
	require.NoError(t, err)
	assert.True(t, matched)
	assert.True(t, outdated)

	matched, outdated, err = h.Verify(encoded, "wrong")
	require.NoError(t, err)
	assert.False(t, matched)
	assert.False(t, outdated, "a failed match never asks for a rehash")
}

func TestPasswordHasher_RealmRehash(t *testing.T) {
	encoded, err := HashArgon2id("s3cret", testArgon2Params)
	require.NoError(t, err)

	r := &realm.Realm{PasswordHash: encoded}
	h := NewPasswordHasher(bcrypt.MinCost)

	v, err := r.VerifyCredential(h, "s3cret")
	require.NoError(t, err)
	require.True(t, v.NeedsRehash())
	assert.True(t, r.ApplyRehash(v))
	assert.Equal(t, "$2a$", r.PasswordHash[:4])

	v, err = r.VerifyCredential(h, "s3cret")
	require.NoError(t, err)
	assert.True(t, v.Matched)
	assert.False(t, v.NeedsRehash())
}

func TestPasswordHasher_Malformed(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	_, _, err := h.Verify("plaintext", "plaintext")
	assert.ErrorIs(t, err, ErrUnknownHashScheme)

	_, _, err = h.Verify("$argon2id$v=19$m=1024", "x")
	assert.ErrorIs(t, err, ErrUnknownHashScheme)

	_, _, err = h.Verify("$argon2id$v=19$m=1024,t=1,p=1$!!!$AAAA", "x")
	assert.Error(t, err)
}
