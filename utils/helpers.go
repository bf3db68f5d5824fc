package utils

import (
	"crypto/rand"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// CheckPassword compares a password with its hash
func CheckPassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

const studentCodeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// GenerateStudentCode produces a short random code used for QR and manual
// lookup. Ambiguous characters (0/O, 1/I) are excluded. Uniqueness is
// enforced by the database index; callers retry on conflict.
func GenerateStudentCode(length int) (string, error) {
	if length <= 0 {
		length = 8
	}
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, length)
	for i, b := range buf {
		out[i] = studentCodeAlphabet[int(b)%len(studentCodeAlphabet)]
	}
	return "ST-" + string(out), nil
}

// IsValidRole checks if a role is valid
func IsValidRole(role string) bool {
	validRoles := []string{"owner", "admin", "assistant"}
	for _, validRole := range validRoles {
		if role == validRole {
			return true
		}
	}
	return false
}

// IsValidSeverity checks if an alert severity is valid
func IsValidSeverity(severity string) bool {
	validSeverities := []string{"info", "warning", "critical"}
	for _, s := range validSeverities {
		if severity == s {
			return true
		}
	}
	return false
}

// NormalizePhone converts a local phone number into an E.164-ish digits-only
// form usable in wa.me links. countryCode is the dialing prefix without '+'.
func NormalizePhone(phone, countryCode string) (string, error) {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		} else if r != ' ' && r != '-' && r != '(' && r != ')' && r != '+' {
			return "", fmt.Errorf("phone contains invalid character %q", r)
		}
	}
	d := digits.String()
	if len(d) < 7 {
		return "", fmt.Errorf("phone too short: %q", phone)
	}
	if strings.HasPrefix(phone, "+") {
		return d, nil
	}
	if strings.HasPrefix(d, countryCode) && len(d) > len(countryCode)+7 {
		return d, nil
	}
	// Drop the trunk zero before prepending the country code
	d = strings.TrimPrefix(d, "0")
	return countryCode + d, nil
}

// SanitizeString removes dangerous characters from string
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	return strings.TrimSpace(input)
}
