package vaultedge

import (
	"crypto/rand"
	"math/big"
)

const (
	lowercaseChars = "abcdefghijklmnopqrstuvwxyz"
	uppercaseChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars     = "0123456789"
	specialChars   = "!@#$%^&*()"
)

// PasswordOptions controls GeneratePassword. Counts are interpreted per
// sign:
//   - all zero: Length is split evenly across the four classes, with the
//     remainder going to special characters
//   - any negative: every count is exact; the password length is the sum
//     of the absolute values and Length is ignored
//   - otherwise: counts are minimums and the deficit up to Length is
//     distributed round-robin across the classes with a nonzero count
type PasswordOptions struct {
	Length    int
	Lowercase int
	Uppercase int
	Digits    int
	Special   int

	// SpecialCharacterSet overrides the default special characters, for
	// targets that reject some punctuation.
	SpecialCharacterSet string
}

// GeneratePassword draws a password from crypto/rand honoring the class
// counts, then shuffles so the class runs do not leak ordering.
func GeneratePassword(opts PasswordOptions) (string, error) {
	length := opts.Length
	if length <= 0 {
		length = DefaultPasswordLength
	}

	special := opts.SpecialCharacterSet
	if special == "" {
		special = specialChars
	}

	counts := []int{opts.Lowercase, opts.Uppercase, opts.Digits, opts.Special}
	classes := []string{lowercaseChars, uppercaseChars, digitChars, special}

	exact := false
	allZero := true
	for _, c := range counts {
		if c < 0 {
			exact = true
		}
		if c != 0 {
			allZero = false
		}
	}

	switch {
	case exact:
		for i, c := range counts {
			if c < 0 {
				counts[i] = -c
			}
		}
	case allZero:
		per := length / len(counts)
		counts = []int{per, per, per, length - 3*per}
	default:
		total := 0
		for _, c := range counts {
			total += c
		}
		for i := 0; total < length; i = (i + 1) % len(counts) {
			if counts[i] > 0 {
				counts[i]++
				total++
			}
		}
	}

	var password []byte
	for i, count := range counts {
		for j := 0; j < count; j++ {
			ch, err := randomChar(classes[i])
			if err != nil {
				return "", err
			}
			password = append(password, ch)
		}
	}

	// Fisher-Yates with crypto/rand.
	for i := len(password) - 1; i > 0; i-- {
		j, err := randomInt(i + 1)
		if err != nil {
			return "", err
		}
		password[i], password[j] = password[j], password[i]
	}
	return string(password), nil
}

func randomChar(class string) (byte, error) {
	i, err := randomInt(len(class))
	if err != nil {
		return 0, err
	}
	return class[i], nil
}

func randomInt(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, NewCryptoError("encrypt", "failed to draw randomness", err)
	}
	return int(v.Int64()), nil
}
