package security

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

const (
	// MinPasswordLength and MaxPasswordLength bound every stored password, generated or chosen.
	MinPasswordLength = 8
	MaxPasswordLength = 32

	// DefaultGeneratedPasswordLength is used for the throwaway credential set on invitation.
	DefaultGeneratedPasswordLength = 16

	lowerLetters    = "abcdefghijklmnopqrstuvwxyz"
	upperLetters    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits          = "0123456789"
	PasswordSymbols = `[]()-+!.="<>@~`
)

// ErrWeakPassword matches every *PasswordPolicyError via errors.Is.
var ErrWeakPassword = errors.New("password does not satisfy policy")

// PasswordPolicyError names the first policy rule a password violates.
type PasswordPolicyError struct {
	Reason string
}

func (e *PasswordPolicyError) Error() string { return e.Reason }

// Is lets callers test for ErrWeakPassword without knowing the specific rule.
func (e *PasswordPolicyError) Is(target error) bool { return target == ErrWeakPassword }

// ValidatePassword enforces the password policy: 8 to 32 characters drawn from ASCII letters,
// digits and PasswordSymbols, with at least one lowercase letter, uppercase letter, digit and symbol.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return &PasswordPolicyError{Reason: "password must be at least 8 characters"}
	}
	if len(password) > MaxPasswordLength {
		return &PasswordPolicyError{Reason: "password must be at most 32 characters"}
	}
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(PasswordSymbols, r):
			hasSymbol = true
		default:
			return &PasswordPolicyError{Reason: "password may only contain ASCII letters, digits and the symbols " + PasswordSymbols}
		}
	}
	if !hasDigit {
		return &PasswordPolicyError{Reason: "password must contain at least one digit"}
	}
	if !hasUpper {
		return &PasswordPolicyError{Reason: "password must contain at least one uppercase letter"}
	}
	if !hasLower {
		return &PasswordPolicyError{Reason: "password must contain at least one lowercase letter"}
	}
	if !hasSymbol {
		return &PasswordPolicyError{Reason: "password must contain at least one symbol from " + PasswordSymbols}
	}
	return nil
}

// GenerateStrongPassword returns a random password of the given length (clamped to the policy
// bounds) that satisfies ValidatePassword by construction: a shuffled sample of the full alphabet
// followed by one symbol, one lowercase letter, one uppercase letter and one digit, shuffled again.
func GenerateStrongPassword(length int) (string, error) {
	if length < MinPasswordLength {
		length = MinPasswordLength
	}
	if length > MaxPasswordLength {
		length = MaxPasswordLength
	}
	alphabet := []byte(lowerLetters + upperLetters + digits + PasswordSymbols)
	if err := shuffle(alphabet); err != nil {
		return "", err
	}
	out := make([]byte, 0, length)
	out = append(out, alphabet[:length-4]...)
	for _, class := range []string{PasswordSymbols, lowerLetters, upperLetters, digits} {
		i, err := randIndex(len(class))
		if err != nil {
			return "", err
		}
		out = append(out, class[i])
	}
	if err := shuffle(out); err != nil {
		return "", err
	}
	return string(out), nil
}

func shuffle(b []byte) error {
	for i := len(b) - 1; i > 0; i-- {
		j, err := randIndex(i + 1)
		if err != nil {
			return err
		}
		b[i], b[j] = b[j], b[i]
	}
	return nil
}

func randIndex(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}
