package password

import (
	"errors"
	"strings"
	"testing"

	"github.com/go-api-careauth/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newBcrypt(t *testing.T) *Hasher {
	t.Helper()
	h, err := New(AlgoBcrypt, bcrypt.MinCost)
	require.NoError(t, err)
	return h
}

func newArgon(t *testing.T) *Hasher {
	t.Helper()
	h, err := New(AlgoArgon2id, 0)
	require.NoError(t, err)
	h.argon = Argon2Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	return h
}

func TestHashVerify_RoundTrip(t *testing.T) {
	for name, h := range map[string]*Hasher{"bcrypt": newBcrypt(t), "argon2id": newArgon(t)} {
		t.Run(name, func(t *testing.T) {
			for _, pw := range []string{"pw1", "correct horse battery staple", "ünïcødé", strings.Repeat("x", MaxLength)} {
				digest, err := h.Hash(pw)
				require.NoError(t, err)
				assert.NotEqual(t, pw, digest)
				assert.True(t, h.Verify(pw, digest))
				assert.False(t, h.Verify(pw+"x", digest))
			}
		})
	}
}

func TestHash_IsSalted(t *testing.T) {
	h := newArgon(t)
	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHash_RejectsEmptyAndTooLong(t *testing.T) {
	h := newBcrypt(t)
	_, err := h.Hash("")
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	_, err = h.Hash(strings.Repeat("x", MaxLength+1))
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestVerify_CrossAlgorithm(t *testing.T) {
	b, a := newBcrypt(t), newArgon(t)
	bd, err := b.Hash("pw")
	require.NoError(t, err)
	ad, err := a.Hash("pw")
	require.NoError(t, err)
	assert.True(t, a.Verify("pw", bd))
	assert.True(t, b.Verify("pw", ad))
}

func TestVerify_MalformedDigest(t *testing.T) {
	h := newBcrypt(t)
	for _, d := range []string{"", "plaintext", "$argon2id$v=19$m=x$salt$hash", "$argon2id$v=19$m=1,t=1,p=1$!!$!!"} {
		assert.False(t, h.Verify("pw", d), d)
	}
}

func TestNew_RejectsBadConfig(t *testing.T) {
	_, err := New("md5", 10)
	assert.Error(t, err)
	_, err = New(AlgoBcrypt, 1)
	assert.Error(t, err)
}
