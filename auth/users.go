package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Roles known to the service.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is one entry of the static user table.
type User struct {
	Username     string
	PasswordHash string
	Role         string
}

// Users is an in-memory username -> User table.
type Users map[string]User

// DefaultUsers returns the demo user table. Replace the passwords before
// exposing the service anywhere real.
func DefaultUsers() Users {
	return Users{
		"admin": {Username: "admin", PasswordHash: HashPassword("admin123"), Role: RoleAdmin},
		"user":  {Username: "user", PasswordHash: HashPassword("user123"), Role: RoleUser},
	}
}

// HashPassword hashes a password with SHA-256, matching the stored format.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Authenticate checks a username/password pair against the table.
// Returns the user and whether the credentials are valid.
func (u Users) Authenticate(username, password string) (User, bool) {
	user, ok := u[username]
	if !ok {
		return User{}, false
	}
	hash := HashPassword(password)
	if subtle.ConstantTimeCompare([]byte(hash), []byte(user.PasswordHash)) != 1 {
		return User{}, false
	}
	return user, true
}

// Lookup returns the user for a username.
func (u Users) Lookup(username string) (User, bool) {
	user, ok := u[username]
	return user, ok
}
