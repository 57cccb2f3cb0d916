package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// FingerprintSize is the width of a canonical fingerprint in bytes.
const FingerprintSize = sha256.Size

// DefaultMaxTokenBytes caps the size of a raw token accepted by the codec.
const DefaultMaxTokenBytes = 512 * 1024

var (
	// ErrInvalidToken is the parent of all token validation failures.
	ErrInvalidToken = errors.New("invalid token")
	// ErrEmptyToken indicates the submitted token carried no content.
	ErrEmptyToken = fmt.Errorf("%w: token is empty", ErrInvalidToken)
	// ErrTokenTooLarge indicates the submitted token exceeds the configured maximum.
	ErrTokenTooLarge = fmt.Errorf("%w: token exceeds maximum size", ErrInvalidToken)
)

// Fingerprint is the fixed-width canonical key derived from submitted content.
// Two tokens with equal fingerprints are treated as the same submission.
type Fingerprint [FingerprintSize]byte

// Canonicalize derives the fingerprint for a raw content token. The maximum
// accepted token size is supplied by the caller; values <= 0 fall back to
// DefaultMaxTokenBytes. Validation failures wrap ErrInvalidToken and never
// touch the store.
func Canonicalize(raw []byte, maxBytes int) (Fingerprint, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxTokenBytes
	}

	if len(raw) == 0 {
		return Fingerprint{}, ErrEmptyToken
	}
	if len(raw) > maxBytes {
		return Fingerprint{}, fmt.Errorf("%w: %d bytes (limit %d)", ErrTokenTooLarge, len(raw), maxBytes)
	}

	return Fingerprint(sha256.Sum256(raw)), nil
}

// ParseFingerprint decodes the hex form produced by String.
func ParseFingerprint(s string) (Fingerprint, error) {
	var fp Fingerprint

	raw, err := hex.DecodeString(s)
	if err != nil {
		return fp, fmt.Errorf("%w: fingerprint is not valid hex", ErrInvalidToken)
	}
	if len(raw) != FingerprintSize {
		return fp, fmt.Errorf("%w: fingerprint must be %d bytes, got %d", ErrInvalidToken, FingerprintSize, len(raw))
	}

	copy(fp[:], raw)
	return fp, nil
}

// String renders the fingerprint as lowercase hex, the form used for store
// keys and API paths.
func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// Short returns a truncated prefix suitable for log fields.
func (f Fingerprint) Short() string {
	return hex.EncodeToString(f[:6])
}

// MarshalText implements encoding.TextMarshaler.
func (f Fingerprint) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Fingerprint) UnmarshalText(text []byte) error {
	parsed, err := ParseFingerprint(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
