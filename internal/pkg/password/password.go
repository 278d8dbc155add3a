// Package password hashes and verifies user passwords. Digests are
// self-describing, so a Hasher configured for one algorithm still verifies
// digests produced by the other.
package password

import (
	"fmt"
	"strings"

	"github.com/go-api-careauth/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

const (
	AlgoBcrypt   = "bcrypt"
	AlgoArgon2id = "argon2id"
)

// MaxLength is the longest password accepted. bcrypt ignores input past 72 bytes.
const MaxLength = 72

// Hasher produces and checks one-way password digests.
type Hasher struct {
	algo       string
	bcryptCost int
	argon      Argon2Params
}

// New returns a Hasher for algo ("bcrypt" or "argon2id").
func New(algo string, bcryptCost int) (*Hasher, error) {
	switch algo {
	case AlgoBcrypt:
		if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
			return nil, fmt.Errorf("bcrypt cost %d out of range", bcryptCost)
		}
	case AlgoArgon2id:
	default:
		return nil, fmt.Errorf("unsupported password algorithm %q", algo)
	}
	return &Hasher{algo: algo, bcryptCost: bcryptCost, argon: DefaultArgon2Params}, nil
}

// Hash returns the digest of plain. The plaintext is never retained.
func (h *Hasher) Hash(plain string) (string, error) {
	if plain == "" {
		return "", fmt.Errorf("password required: %w", domain.ErrBadRequest)
	}
	if len(plain) > MaxLength {
		return "", fmt.Errorf("password longer than %d bytes: %w", MaxLength, domain.ErrBadRequest)
	}
	if h.algo == AlgoArgon2id {
		return hashArgon2id(plain, h.argon)
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(b), nil
}

// Verify reports whether plain matches digest. Malformed digests never match.
func (h *Hasher) Verify(plain, digest string) bool {
	if strings.HasPrefix(digest, "$"+AlgoArgon2id+"$") {
		ok, err := verifyArgon2id(plain, digest)
		return err == nil && ok
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}
