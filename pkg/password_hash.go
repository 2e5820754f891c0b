package pkg

import "golang.org/x/crypto/bcrypt"

// HashPassword produces the bcrypt hash stored for the admin account
// (cost 14, the same cost used to pre-generate PEAKFORM_ADMIN_PASSWORD_HASH).
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	return BytesToString(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
