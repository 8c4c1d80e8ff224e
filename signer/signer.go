/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package signer provides issuer.Signer implementations for the common JWS algorithms.
package signer

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/go-jose/go-jose/v3"

	"github.com/hyperledger/aries-framework-go/component/sdjwt/jwt"
)

const p256CoordinateSize = 32

type options struct {
	keyID string
}

// Opt is a signer option.
type Opt func(opts *options)

// WithKeyID sets the "kid" header contributed by the signer.
func WithKeyID(kid string) Opt {
	return func(opts *options) {
		opts.keyID = kid
	}
}

// JWSSigner signs SD-JWTs with a raw signing function. It contributes the "alg" (and optional "kid")
// protected headers and refuses to sign when the headers name another algorithm.
type JWSSigner struct {
	alg  string
	kid  string
	sign func(data []byte) ([]byte, error)
}

// Headers returns the signer's headers map.
func (s *JWSSigner) Headers() jwt.Headers {
	headers := jwt.Headers{jwt.HeaderAlgorithm: s.alg}

	if s.kid != "" {
		headers[jwt.HeaderKeyID] = s.kid
	}

	return headers
}

// Algorithm returns the JWS algorithm of the signer.
func (s *JWSSigner) Algorithm() string {
	return s.alg
}

// Sign signs jwt.SigningInput(headers, claims) and returns the base64url encoded signature.
func (s *JWSSigner) Sign(ctx context.Context, headers jwt.Headers, claims map[string]interface{}) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	alg, ok := headers.Algorithm()
	if !ok {
		return "", errors.New("alg header is not defined")
	}

	if alg != s.alg {
		return "", fmt.Errorf("alg header '%s' does not match signer algorithm '%s'", alg, s.alg)
	}

	signingInput, err := jwt.SigningInput(headers, claims)
	if err != nil {
		return "", err
	}

	signature, err := s.sign([]byte(signingInput))
	if err != nil {
		return "", fmt.Errorf("sign JWS: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(signature), nil
}

func newJWSSigner(alg string, sign func([]byte) ([]byte, error), opts []Opt) *JWSSigner {
	o := &options{}

	for _, opt := range opts {
		opt(o)
	}

	return &JWSSigner{alg: alg, kid: o.keyID, sign: sign}
}

// NewEd25519Signer returns an EdDSA signer.
func NewEd25519Signer(privKey ed25519.PrivateKey, opts ...Opt) (*JWSSigner, error) {
	if l := len(privKey); l != ed25519.PrivateKeySize {
		return nil, errors.New("bad ed25519 private key length")
	}

	return newJWSSigner(jwt.AlgorithmEdDSA, func(data []byte) ([]byte, error) {
		return ed25519.Sign(privKey, data), nil
	}, opts), nil
}

// NewES256Signer returns an ES256 signer producing fixed size r||s signatures.
func NewES256Signer(privKey *ecdsa.PrivateKey, opts ...Opt) (*JWSSigner, error) {
	if privKey == nil || privKey.Curve != elliptic.P256() {
		return nil, errors.New("ES256 requires a P-256 private key")
	}

	return newJWSSigner(jwt.AlgorithmES256, func(data []byte) ([]byte, error) {
		digest := sha256.Sum256(data)

		r, s, err := ecdsa.Sign(rand.Reader, privKey, digest[:])
		if err != nil {
			return nil, err
		}

		signature := make([]byte, 2*p256CoordinateSize)
		r.FillBytes(signature[:p256CoordinateSize])
		s.FillBytes(signature[p256CoordinateSize:])

		return signature, nil
	}, opts), nil
}

// NewRS256Signer returns an RS256 signer.
func NewRS256Signer(privKey *rsa.PrivateKey, opts ...Opt) (*JWSSigner, error) {
	if privKey == nil {
		return nil, errors.New("RS256 requires an RSA private key")
	}

	return newJWSSigner(jwt.AlgorithmRS256, func(data []byte) ([]byte, error) {
		digest := sha256.Sum256(data)

		return rsa.SignPKCS1v15(rand.Reader, privKey, crypto.SHA256, digest[:])
	}, opts), nil
}

// NewJWKSigner returns a signer for the private key held by jwk. The JWK "kid" becomes the "kid" header.
func NewJWKSigner(jwk *jose.JSONWebKey, opts ...Opt) (*JWSSigner, error) {
	if jwk == nil || jwk.IsPublic() {
		return nil, errors.New("JWK must hold a private key")
	}

	if jwk.KeyID != "" {
		opts = append([]Opt{WithKeyID(jwk.KeyID)}, opts...)
	}

	switch key := jwk.Key.(type) {
	case ed25519.PrivateKey:
		return NewEd25519Signer(key, opts...)
	case *ecdsa.PrivateKey:
		return NewES256Signer(key, opts...)
	case *rsa.PrivateKey:
		return NewRS256Signer(key, opts...)
	default:
		return nil, fmt.Errorf("unsupported JWK key type %T", jwk.Key)
	}
}
