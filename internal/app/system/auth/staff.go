package auth

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Staff is the single console account configured at startup.
type Staff struct {
	Email        string
	Name         string
	PasswordHash string // bcrypt
}

// Verify checks an email/password pair against the configured account. The
// email comparison ignores case and surrounding space.
func (s Staff) Verify(email, password string) bool {
	if s.Email == "" || s.PasswordHash == "" {
		return false
	}
	if !strings.EqualFold(strings.TrimSpace(email), strings.TrimSpace(s.Email)) {
		// Still pay the hash cost so timing does not reveal the address.
		_ = bcrypt.CompareHashAndPassword([]byte(s.PasswordHash), []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(s.PasswordHash), []byte(password)) == nil
}

// HashPassword returns a bcrypt hash suitable for the staff_password_hash
// setting.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), err
}
