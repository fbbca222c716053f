package security

import "golang.org/x/crypto/bcrypt"

// HashPassword and CheckPasswordHash fill the gap left by the auth
// collaborator interface (hashPassword/verifyPassword); the
// auth service calls these but they are not part of the core.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
