// internal/form/csrf.go
//
// Stateless CSRF tokens for the contact API.
//
// Context
// -------
// A browser receives a token when it opens a contact session and echoes it
// in the X-CSRF-Token header on every mutating request.  The token carries
// no server-side state:
//
//	base64url( nonce | unixMicro | HMAC_SHA256(secret, nonce+unixMicro) )
//
//   - nonce      16 random bytes.
//   - unixMicro  issue time, 8 bytes, big-endian.
//   - HMAC       keyed with the configured secret.
//
// Verification checks the signature in constant time and rejects tokens
// older than MaxAge or issued more than a minute in the future.
//
// Notes
// -----
//   - The secret is injected by the caller (config `csrf.secret`).  An empty
//     secret yields an ephemeral random key and a warning, which is fine for
//     local development and wrong for multi-instance deployments.
package form

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"time"

	"go.uber.org/zap"
)

const (
	nonceBytes = 16
	tsBytes    = 8
	tokenBytes = nonceBytes + tsBytes + sha256.Size

	// DefaultTokenMaxAge bounds how long a rendered form stays submittable.
	DefaultTokenMaxAge = 2 * time.Hour
)

// randRead is swapped in tests.
var randRead = rand.Read

// CSRF issues and verifies tokens.  Safe for concurrent use.
type CSRF struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewCSRF builds a token issuer.  maxAge <= 0 selects DefaultTokenMaxAge.
func NewCSRF(secret []byte, maxAge time.Duration) *CSRF {
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := randRead(secret); err != nil {
			zap.S().Errorw("csrf ephemeral key", "err", err)
			panic("form: csrf: cannot generate ephemeral key: " + err.Error())
		}
		zap.S().Warnw("csrf secret not configured, using ephemeral key")
	}
	if maxAge <= 0 {
		maxAge = DefaultTokenMaxAge
	}
	return &CSRF{secret: secret, maxAge: maxAge, now: time.Now}
}

// Generate creates a new token.
func (c *CSRF) Generate() (string, error) {
	nonce := make([]byte, nonceBytes)
	if _, err := randRead(nonce); err != nil {
		return "", err
	}

	ts := make([]byte, tsBytes)
	binary.BigEndian.PutUint64(ts, uint64(c.now().UnixMicro()))

	buf := make([]byte, 0, tokenBytes)
	buf = append(buf, nonce...)
	buf = append(buf, ts...)
	buf = append(buf, c.sign(nonce, ts)...)

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Verify reports whether tok passes the signature and age checks.
func (c *CSRF) Verify(tok string) bool {
	if tok == "" {
		return false
	}
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil || len(raw) != tokenBytes {
		return false
	}

	nonce := raw[:nonceBytes]
	ts := raw[nonceBytes : nonceBytes+tsBytes]
	sig := raw[nonceBytes+tsBytes:]

	issued := time.UnixMicro(int64(binary.BigEndian.Uint64(ts)))
	now := c.now()
	if now.Sub(issued) > c.maxAge || issued.Sub(now) > time.Minute {
		return false
	}

	return hmac.Equal(sig, c.sign(nonce, ts))
}

func (c *CSRF) sign(nonce, ts []byte) []byte {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write(nonce)
	mac.Write(ts)
	return mac.Sum(nil)
}
