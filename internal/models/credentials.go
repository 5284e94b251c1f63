package models

import "golang.org/x/crypto/bcrypt"

// CredentialVerifier abstracts how stored credentials are produced and
// checked, so the comparison scheme can change without touching the user
// store or the handlers.
type CredentialVerifier interface {
	Hash(password string) (string, error)
	Verify(stored, password string) bool
}

// PlaintextVerifier stores and compares passwords verbatim. This is what
// the deployed device installations use; their user records were written
// unhashed and must keep authenticating.
type PlaintextVerifier struct{}

func (PlaintextVerifier) Hash(password string) (string, error) {
	return password, nil
}

func (PlaintextVerifier) Verify(stored, password string) bool {
	return stored == password
}

// BcryptVerifier hashes with bcrypt. Selectable for installs whose users
// can re-enroll.
type BcryptVerifier struct{}

func (BcryptVerifier) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (BcryptVerifier) Verify(stored, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
}
