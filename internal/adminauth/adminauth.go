// Package adminauth checks the numeric code that unlocks the admin screen.
// The code is either configured in plain text or stored as an argon2id hash
// in a code file written by the hash-code command.
package adminauth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/argon2"
)

// DefaultCode is the kiosk's factory admin code.
const DefaultCode = "8007"

// Argon2id parameters (OWASP recommended)
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4
	argon2KeyLen  = 32
	saltLen       = 16
)

var ErrBadHash = errors.New("invalid argon2id hash")

// HashCode creates an argon2id hash of code in the PHC string format:
// $argon2id$v=19$m=65536,t=1,p=4$salt$hash
func HashCode(code string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(code), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argon2Memory, argon2Time, argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash)), nil
}

// VerifyHash reports whether code matches an argon2id hash made by HashCode.
func VerifyHash(code, hash string) (bool, error) {
	parts := strings.Split(strings.TrimSpace(hash), "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, ErrBadHash
	}

	var memory, iterations uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return false, fmt.Errorf("%w: parameters: %v", ErrBadHash, err)
	}
	// argon2.IDKey panics on zero time or threads.
	if memory == 0 || iterations == 0 || threads == 0 {
		return false, fmt.Errorf("%w: zero cost parameter", ErrBadHash)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("%w: salt: %v", ErrBadHash, err)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("%w: hash: %v", ErrBadHash, err)
	}

	got := argon2.IDKey([]byte(code), salt, iterations, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(want, got) == 1, nil
}

// Verifier checks admin codes against either a plain code or a hash.
type Verifier struct {
	plain string
	hash  string
}

// NewVerifier prefers the hash in hashFile when it is set; otherwise it
// compares against plain, falling back to DefaultCode.
func NewVerifier(plain, hashFile string) (*Verifier, error) {
	if hashFile != "" {
		data, err := os.ReadFile(hashFile)
		if err != nil {
			return nil, fmt.Errorf("read admin code file: %w", err)
		}
		hash := strings.TrimSpace(string(data))
		if _, err := VerifyHash("", hash); err != nil {
			return nil, fmt.Errorf("admin code file %s: %w", hashFile, err)
		}
		return &Verifier{hash: hash}, nil
	}

	if plain == "" {
		plain = DefaultCode
	}
	return &Verifier{plain: plain}, nil
}

func (v *Verifier) Verify(code string) bool {
	if v.hash != "" {
		ok, err := VerifyHash(code, v.hash)
		return err == nil && ok
	}
	return subtle.ConstantTimeCompare([]byte(code), []byte(v.plain)) == 1
}

// WriteCodeFile hashes code and writes it to path as a read-only file.
// An existing file is replaced only when overwrite is set.
func WriteCodeFile(path, code string, overwrite bool) error {
	if !ValidCode(code) {
		return errors.New("admin code must be 4 to 8 digits")
	}

	if _, err := os.Stat(path); err == nil {
		if !overwrite {
			return fmt.Errorf("admin code file already exists: %s", path)
		}
		// 0400 files cannot be truncated in place.
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("remove existing admin code file: %w", err)
		}
	}

	hash, err := HashCode(code)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(hash+"\n"), 0o400); err != nil {
		return fmt.Errorf("write admin code file: %w", err)
	}
	return nil
}

// ValidCode reports whether code is 4 to 8 ASCII digits, what the admin
// keypad can enter.
func ValidCode(code string) bool {
	if len(code) < 4 || len(code) > 8 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
