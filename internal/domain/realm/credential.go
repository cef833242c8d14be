package realm

// PasswordHasher hashes and verifies realm credentials.
// Verify compares in constant time and reports whether encoded was produced
// with a scheme or cost weaker than the one Hash currently uses.
type PasswordHasher interface {
	Hash(raw string) (string, error)
	Verify(encoded, raw string) (matched bool, outdated bool, err error)
}

// Verification is the outcome of checking a realm credential.
type Verification struct {
	Matched bool
	// Rehash is the upgraded encoded hash to persist; empty when the stored
	// hash is current or the password did not match.
	Rehash string
}

// NeedsRehash reports whether the caller must persist Rehash
func (v Verification) NeedsRehash() bool {
	return v.Matched && v.Rehash != ""
}
