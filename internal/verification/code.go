// Package verification owns the QR/OTP code lifecycle: issuance with
// soft-expiry rotation, current-code lookup, and value generation.
package verification

import (
	"crypto/rand"
	"encoding/base64"
	mathrand "math/rand"
	"time"
)

// Kind distinguishes the two code flavours. Both share the same row shape.
type Kind string

const (
	KindQR  Kind = "qr"
	KindOTP Kind = "otp"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool { return k == KindQR || k == KindOTP }

// TTL bounds in minutes per kind. Values outside are a validation failure,
// never silently clamped.
const (
	MinTTLMinutes    = 1
	MaxQRTTLMinutes  = 120
	MaxOTPTTLMinutes = 60

	otpLength = 6
)

// MaxTTLMinutes returns the upper TTL bound for the kind.
func (k Kind) MaxTTLMinutes() int {
	if k == KindOTP {
		return MaxOTPTTLMinutes
	}
	return MaxQRTTLMinutes
}

// Code is one issued verification code. Rows are never deleted by this
// package; superseded codes are expired in place so history stays auditable.
type Code struct {
	ID          int64     `json:"id"`
	TimetableID int64     `json:"timetable_id"`
	Kind        Kind      `json:"kind"`
	Value       string    `json:"code"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	UsedCount   int       `json:"used_count"`
}

// Expired reports whether the code is past its expiry at the given instant.
func (c Code) Expired(now time.Time) bool { return c.ExpiresAt.Before(now) }

// newQRValue returns a high-entropy URL-safe token (32 random bytes).
func newQRValue() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // crypto/rand failure means the host is broken
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}

// newOTPValue returns a fixed-length numeric string. Low entropy by design:
// the value is human-transcribed and scoped to one session with a short TTL.
func newOTPValue() string {
	digits := make([]byte, otpLength)
	for i := range digits {
		digits[i] = byte('0' + mathrand.Intn(10))
	}
	return string(digits)
}
