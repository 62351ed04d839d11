package auth

import "golang.org/x/crypto/bcrypt"

// SessionData represents the authenticated session of a backend request
type SessionData struct {
	SubjectID string `json:"subject_id"`
	Role      string `json:"role"`
}

// HashPassword hashes an admin password
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

// VerifyPassword checks password against a hash from HashPassword
func VerifyPassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
