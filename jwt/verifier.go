/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jwt

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"

	"github.com/go-jose/go-jose/v3"
)

// Signature algorithms supported by the built-in verifiers and signers.
const (
	AlgorithmEdDSA = "EdDSA"
	AlgorithmES256 = "ES256"
	AlgorithmRS256 = "RS256"

	p256CoordinateSize = 32
)

// NewEd25519Verifier returns a verifier of EdDSA signatures.
func NewEd25519Verifier(pubKey ed25519.PublicKey) (SignatureVerifier, error) {
	if l := len(pubKey); l != ed25519.PublicKeySize {
		return nil, errors.New("bad ed25519 public key length")
	}

	return SignatureVerifierFunc(func(headers Headers, signingInput, signature []byte) error {
		if err := checkAlgorithm(headers, AlgorithmEdDSA); err != nil {
			return err
		}

		if !ed25519.Verify(pubKey, signingInput, signature) {
			return errors.New("signature doesn't match")
		}

		return nil
	}), nil
}

// NewES256Verifier returns a verifier of ES256 signatures (fixed size r||s encoding).
func NewES256Verifier(pubKey *ecdsa.PublicKey) (SignatureVerifier, error) {
	if pubKey == nil || pubKey.Curve != elliptic.P256() {
		return nil, errors.New("ES256 requires a P-256 public key")
	}

	return SignatureVerifierFunc(func(headers Headers, signingInput, signature []byte) error {
		if err := checkAlgorithm(headers, AlgorithmES256); err != nil {
			return err
		}

		if len(signature) != 2*p256CoordinateSize {
			return fmt.Errorf("invalid ES256 signature length %d", len(signature))
		}

		r := new(big.Int).SetBytes(signature[:p256CoordinateSize])
		s := new(big.Int).SetBytes(signature[p256CoordinateSize:])

		digest := sha256.Sum256(signingInput)

		if !ecdsa.Verify(pubKey, digest[:], r, s) {
			return errors.New("signature doesn't match")
		}

		return nil
	}), nil
}

// NewRS256Verifier returns a verifier of RS256 signatures.
func NewRS256Verifier(pubKey *rsa.PublicKey) (SignatureVerifier, error) {
	if pubKey == nil {
		return nil, errors.New("RS256 requires an RSA public key")
	}

	return SignatureVerifierFunc(func(headers Headers, signingInput, signature []byte) error {
		if err := checkAlgorithm(headers, AlgorithmRS256); err != nil {
			return err
		}

		digest := sha256.Sum256(signingInput)

		return rsa.VerifyPKCS1v15(pubKey, crypto.SHA256, digest[:], signature)
	}), nil
}

// NewJWKVerifier returns a verifier for the public part of jwk.
func NewJWKVerifier(jwk *jose.JSONWebKey) (SignatureVerifier, error) {
	if jwk == nil {
		return nil, errors.New("JWK is not defined")
	}

	switch key := jwk.Public().Key.(type) {
	case ed25519.PublicKey:
		return NewEd25519Verifier(key)
	case *ecdsa.PublicKey:
		return NewES256Verifier(key)
	case *rsa.PublicKey:
		return NewRS256Verifier(key)
	default:
		return nil, fmt.Errorf("unsupported JWK key type %T", jwk.Key)
	}
}

func checkAlgorithm(headers Headers, expected string) error {
	alg, ok := headers.Algorithm()
	if !ok {
		return errors.New("alg is not defined")
	}

	if alg != expected {
		return fmt.Errorf("alg is not %s", expected)
	}

	return nil
}
