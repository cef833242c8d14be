package realm

import (
	"regexp"
	"strings"

	"github.com/qbdsync/backend/internal/domain/shared"
)

var schemaNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{1,62}$`)

// Realm is one isolated organization syncing with its own QuickBooks company file.
type Realm struct {
	shared.BaseEntity
	SchemaName   string
	Name         string
	IsActive     bool
	PasswordHash string
}

// NewRealm creates an active realm without credentials
func NewRealm(schemaName, name string) (*Realm, error) {
	schemaName = strings.ToLower(strings.TrimSpace(schemaName))
	if !schemaNamePattern.MatchString(schemaName) {
		return nil, shared.NewDomainError("INVALID_SCHEMA_NAME", "Schema name must be 2-63 lowercase letters, digits or underscores")
	}
	if len(name) > 255 {
		return nil, shared.NewDomainError("INVALID_NAME", "Name cannot exceed 255 characters")
	}

	return &Realm{
		BaseEntity: shared.NewBaseEntity(),
		SchemaName: schemaName,
		Name:       name,
		IsActive:   true,
	}, nil
}

// Activate enables the realm for polling
func (r *Realm) Activate() {
	r.IsActive = true
	r.Touch()
}

// Deactivate blocks the realm from authenticating
func (r *Realm) Deactivate() {
	r.IsActive = false
	r.Touch()
}

// HasCredential reports whether a password has ever been set
func (r *Realm) HasCredential() bool {
	return r.PasswordHash != ""
}

// SetCredential stores a fresh hash of raw using the preferred scheme
func (r *Realm) SetCredential(hasher PasswordHasher, raw string) error {
	if raw == "" {
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot be empty")
	}
	encoded, err := hasher.Hash(raw)
	if err != nil {
		return err
	}
	r.PasswordHash = encoded
	r.Touch()
	return nil
}

// VerifyCredential checks raw against the stored hash. It never mutates the
// realm; when the stored hash is outdated the returned Verification carries
// the replacement hash for the caller to persist through ApplyRehash.
func (r *Realm) VerifyCredential(hasher PasswordHasher, raw string) (Verification, error) {
	if !r.HasCredential() || raw == "" {
		return Verification{}, nil
	}
	matched, outdated, err := hasher.Verify(r.PasswordHash, raw)
	if err != nil || !matched {
		return Verification{}, err
	}
	v := Verification{Matched: true}
	if outdated {
		encoded, err := hasher.Hash(raw)
		if err != nil {
			return Verification{}, err
		}
		v.Rehash = encoded
	}
	return v, nil
}

// ApplyRehash swaps in the upgraded hash from a successful verification
func (r *Realm) ApplyRehash(v Verification) bool {
	if !v.NeedsRehash() {
		return false
	}
	r.PasswordHash = v.Rehash
	r.Touch()
	return true
}
