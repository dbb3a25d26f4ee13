package events

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/blake2b"
)

// SignatureHeader carries the keyed hash of a bridged envelope.
const SignatureHeader = "X-Fedshell-Signature"

// ErrBadSignature is returned when an envelope signature does not verify.
var ErrBadSignature = errors.New("event signature mismatch")

// Sign returns the hex keyed BLAKE2b-256 of body. Secrets longer than 64 bytes are rejected.
func Sign(secret, body []byte) (string, error) {
	h, err := blake2b.New256(secret)
	if err != nil {
		return "", err
	}
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify checks signature against body.
func Verify(secret, body []byte, signature string) error {
	want, err := Sign(secret, body)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(want), []byte(signature)) != 1 {
		return ErrBadSignature
	}
	return nil
}
