// Package deeplink encodes a Snapshot into a URL-safe token for prefill
// links and back. The token is unpadded base64url over the snapshot's
// JSON wire form; anything smarter (compression, versioning) plugs in
// here without touching the rest of the system.
package deeplink

import (
	"encoding/base64"
	"errors"

	"github.com/goccy/go-json"

	"github.com/lasoteam/laso-sync/model"
)

var (
	// ErrEmpty rejects sharing a form with no identifying data.
	ErrEmpty = errors.New("form is empty, nothing to share")
	// ErrDecode marks a token that does not decode to a snapshot.
	ErrDecode = errors.New("link data cannot be decoded")
)

// Encode renders snap as a shareable token.
func Encode(snap model.Snapshot) (string, error) {
	if snap.Empty() {
		return "", ErrEmpty
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Decode parses a token produced by Encode.
func Decode(token string) (model.Snapshot, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return model.Snapshot{}, ErrDecode
	}
	var snap model.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return model.Snapshot{}, ErrDecode
	}
	return snap, nil
}
