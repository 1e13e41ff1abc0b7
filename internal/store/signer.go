// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package store

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strconv"
	"time"
)

var (
	ErrExpired      = errors.New("signed url expired")
	ErrBadSignature = errors.New("bad url signature")
)

// Signer issues and checks expiring object links signed with HMAC-SHA256.
type Signer struct {
	key []byte
	now func() time.Time
}

func NewSigner(key []byte) *Signer {
	return &Signer{key: key, now: time.Now}
}

func (s *Signer) mac(objectKey string, expires int64) []byte {
	m := hmac.New(sha256.New, s.key)
	m.Write([]byte(objectKey))
	m.Write([]byte{'\n'})
	m.Write([]byte(strconv.FormatInt(expires, 10)))
	return m.Sum(nil)
}

// Sign returns the expiry (unix seconds) and signature for objectKey.
func (s *Signer) Sign(objectKey string, ttl time.Duration) (int64, string) {
	expires := s.now().Add(ttl).Unix()
	return expires, hex.EncodeToString(s.mac(objectKey, expires))
}

// URL builds the signed link "<base>/objects/<key>?expires=..&signature=..".
func (s *Signer) URL(base, objectKey string, ttl time.Duration) string {
	expires, sig := s.Sign(objectKey, ttl)
	u := url.URL{Path: "/objects/" + objectKey}
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("signature", sig)
	return base + u.EscapedPath() + "?" + q.Encode()
}

// Verify checks a signature produced by Sign.
func (s *Signer) Verify(objectKey string, expires int64, signature string) error {
	got, err := hex.DecodeString(signature)
	if err != nil || !hmac.Equal(got, s.mac(objectKey, expires)) {
		return ErrBadSignature
	}
	if s.now().Unix() > expires {
		return ErrExpired
	}
	return nil
}
