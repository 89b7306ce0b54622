// Package crypto produces the password hashes stored in the mail user table.
//
// Three encodings are supported:
//
//	bcrypt-sha256  $bcrypt-sha256$2a,12$<salt>$<digest>  (passlib compatible)
//	blf-crypt      {BLF-CRYPT}$2a$12$...                 (Dovecot scheme prefix)
//	sha512-crypt   {SHA512-CRYPT}$6$...                  (Dovecot scheme prefix)
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/GehirnInc/crypt/sha512_crypt"
	"golang.org/x/crypto/bcrypt"
)

const (
	SchemeBcryptSHA256 = "bcrypt-sha256"
	SchemeBlfCrypt     = "blf-crypt"
	SchemeSHA512Crypt  = "sha512-crypt"

	bcryptSHA256Prefix = "$bcrypt-sha256$"
	blfCryptPrefix     = "{BLF-CRYPT}"
	sha512CryptPrefix  = "{SHA512-CRYPT}"
)

var (
	// ErrMismatch is returned by Verify when the password does not match.
	ErrMismatch = errors.New("password mismatch")
	// ErrPasswordTooLong is returned by schemes with an input length limit.
	ErrPasswordTooLong = errors.New("password too long")
	// ErrUnknownScheme is returned for unrecognised scheme names or hash prefixes.
	ErrUnknownScheme = errors.New("unknown password scheme")
)

// Hasher turns a plaintext password into its stored representation.
type Hasher interface {
	Scheme() string
	Hash(password string) (string, error)
}

// NewHasher returns the Hasher for scheme. cost applies to the bcrypt based
// schemes and is clamped to bcrypt's accepted range.
func NewHasher(scheme string, cost int) (Hasher, error) {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	switch strings.ToLower(scheme) {
	case SchemeBcryptSHA256, "":
		return bcryptSHA256{cost: cost}, nil
	case SchemeBlfCrypt:
		return blfCrypt{cost: cost}, nil
	case SchemeSHA512Crypt:
		return sha512Crypt{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
	}
}

type bcryptSHA256 struct {
	cost int
}

func (bcryptSHA256) Scheme() string { return SchemeBcryptSHA256 }

// Hash emits the version 1 layout: the bcrypt input is base64(sha256(pw)),
// which lifts bcrypt's 72 byte limit.
func (h bcryptSHA256) Hash(password string) (string, error) {
	sum := sha256.Sum256([]byte(password))
	key := base64.StdEncoding.EncodeToString(sum[:])

	raw, err := bcrypt.GenerateFromPassword([]byte(key), h.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	ident, cost, salt, digest, err := splitBcrypt(string(raw))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%s,%d$%s$%s", bcryptSHA256Prefix, ident, cost, salt, digest), nil
}

type blfCrypt struct {
	cost int
}

func (blfCrypt) Scheme() string { return SchemeBlfCrypt }

func (h blfCrypt) Hash(password string) (string, error) {
	raw, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return blfCryptPrefix + string(raw), nil
}

type sha512Crypt struct{}

func (sha512Crypt) Scheme() string { return SchemeSHA512Crypt }

func (sha512Crypt) Hash(password string) (string, error) {
	raw, err := sha512_crypt.New().Generate([]byte(password), nil)
	if err != nil {
		return "", fmt.Errorf("sha512-crypt: %w", err)
	}
	return sha512CryptPrefix + raw, nil
}

// Verify checks password against any hash produced by this package, and
// against passlib's version 2 bcrypt-sha256 layout.
func Verify(encoded, password string) error {
	switch {
	case strings.HasPrefix(encoded, bcryptSHA256Prefix):
		return verifyBcryptSHA256(encoded, password)
	case strings.HasPrefix(encoded, blfCryptPrefix):
		return compareBcrypt(strings.TrimPrefix(encoded, blfCryptPrefix), []byte(password))
	case strings.HasPrefix(encoded, sha512CryptPrefix):
		err := sha512_crypt.New().Verify(strings.TrimPrefix(encoded, sha512CryptPrefix), []byte(password))
		if err != nil {
			return ErrMismatch
		}
		return nil
	default:
		return ErrUnknownScheme
	}
}

// verifyBcryptSHA256 accepts
//
//	v1: $bcrypt-sha256$2a,12$<salt>$<digest>
//	v2: $bcrypt-sha256$v=2,t=2b,r=12$<salt>$<digest>
func verifyBcryptSHA256(encoded, password string) error {
	parts := strings.Split(strings.TrimPrefix(encoded, bcryptSHA256Prefix), "$")
	if len(parts) != 3 {
		return fmt.Errorf("%w: malformed bcrypt-sha256 hash", ErrUnknownScheme)
	}
	params, salt, digest := parts[0], parts[1], parts[2]

	var (
		ident, rounds string
		version       = 1
	)
	if strings.HasPrefix(params, "v=") {
		for _, kv := range strings.Split(params, ",") {
			k, v, _ := strings.Cut(kv, "=")
			switch k {
			case "v":
				n, err := strconv.Atoi(v)
				if err != nil {
					return fmt.Errorf("%w: bad version %q", ErrUnknownScheme, v)
				}
				version = n
			case "t":
				ident = v
			case "r":
				rounds = v
			}
		}
	} else {
		ident, rounds, _ = strings.Cut(params, ",")
	}
	if ident == "" || rounds == "" || version > 2 {
		return fmt.Errorf("%w: malformed bcrypt-sha256 parameters", ErrUnknownScheme)
	}
	if len(rounds) == 1 {
		rounds = "0" + rounds
	}

	var sum []byte
	if version == 2 {
		mac := hmac.New(sha256.New, []byte(salt))
		mac.Write([]byte(password))
		sum = mac.Sum(nil)
	} else {
		s := sha256.Sum256([]byte(password))
		sum = s[:]
	}
	key := base64.StdEncoding.EncodeToString(sum)

	return compareBcrypt(fmt.Sprintf("$%s$%s$%s%s", ident, rounds, salt, digest), []byte(key))
}

func compareBcrypt(hash string, password []byte) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), password); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatch
		}
		return fmt.Errorf("bcrypt: %w", err)
	}
	return nil
}

// splitBcrypt breaks "$2a$12$<22 salt><31 digest>" into its fields.
func splitBcrypt(h string) (ident string, cost int, salt, digest string, err error) {
	parts := strings.Split(h, "$")
	if len(parts) != 4 || len(parts[3]) != 53 {
		return "", 0, "", "", fmt.Errorf("unexpected bcrypt output %q", h)
	}
	cost, err = strconv.Atoi(parts[2])
	if err != nil {
		return "", 0, "", "", fmt.Errorf("unexpected bcrypt cost %q", parts[2])
	}
	return parts[1], cost, parts[3][:22], parts[3][22:], nil
}
