/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package common

import (
	"crypto"
	_ "crypto/sha256" // register SHA-256
	_ "crypto/sha512" // register SHA-384 and SHA-512
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// Hasher computes the digest of an encoded disclosure.
// Algorithm returns the identifier published in the "_sd_alg" claim.
type Hasher interface {
	Hash(disclosure string) (string, error)
	Algorithm() string
}

type hasherFunc struct {
	alg string
	fn  func(string) (string, error)
}

func (h *hasherFunc) Hash(disclosure string) (string, error) {
	return h.fn(disclosure)
}

func (h *hasherFunc) Algorithm() string {
	return h.alg
}

// NewHasherFunc wraps a digest callback together with its declared algorithm identifier.
func NewHasherFunc(alg string, fn func(disclosure string) (string, error)) Hasher {
	if fn == nil {
		return nil
	}

	return &hasherFunc{alg: alg, fn: fn}
}

// CryptoHasher is a Hasher backed by a crypto.Hash; digests are base64url encoded without padding.
type CryptoHasher struct {
	hash crypto.Hash
}

// NewHasher returns a Hasher for one of the SHA-2 functions allowed for SD-JWT.
func NewHasher(hash crypto.Hash) (*CryptoHasher, error) {
	if _, err := GetCryptoHash(AlgorithmName(hash)); err != nil {
		return nil, err
	}

	return &CryptoHasher{hash: hash}, nil
}

// HasherForAlgorithm returns a Hasher for an "_sd_alg" identifier (e.g. "sha-256").
func HasherForAlgorithm(sdAlg string) (*CryptoHasher, error) {
	hash, err := GetCryptoHash(sdAlg)
	if err != nil {
		return nil, err
	}

	return &CryptoHasher{hash: hash}, nil
}

// Hash returns base64url(hash(disclosure)).
func (h *CryptoHasher) Hash(disclosure string) (string, error) {
	return GetHash(h.hash, disclosure)
}

// Algorithm returns the hash name as used in "_sd_alg".
func (h *CryptoHasher) Algorithm() string {
	return AlgorithmName(h.hash)
}

// AlgorithmName returns "_sd_alg" representation of hash, e.g. "sha-256".
func AlgorithmName(hash crypto.Hash) string {
	return strings.ToLower(hash.String())
}

// GetHash calculates hash of data using hash function identified by hash.
func GetHash(hash crypto.Hash, value string) (string, error) {
	if !hash.Available() {
		return "", fmt.Errorf("hash function not available for: %d", hash)
	}

	h := hash.New()

	if _, hashErr := h.Write([]byte(value)); hashErr != nil {
		return "", hashErr
	}

	result := h.Sum(nil)

	return base64.RawURLEncoding.EncodeToString(result), nil
}

// GetCryptoHash returns crypto hash from SD algorithm.
func GetCryptoHash(sdAlg string) (crypto.Hash, error) {
	// MD5 and SHA-1 revealed fundamental weaknesses and are not accepted.
	switch strings.ToUpper(sdAlg) {
	case crypto.SHA256.String():
		return crypto.SHA256, nil
	case crypto.SHA384.String():
		return crypto.SHA384, nil
	case crypto.SHA512.String():
		return crypto.SHA512, nil
	case "":
		return 0, errors.New("empty " + SDAlgorithmKey)
	default:
		return 0, fmt.Errorf("%s '%s' not supported", SDAlgorithmKey, sdAlg)
	}
}

// GetHasherFromClaims resolves a Hasher from the "_sd_alg" claim.
func GetHasherFromClaims(claims map[string]interface{}) (Hasher, error) {
	sdAlg, err := GetSDAlg(claims)
	if err != nil {
		return nil, err
	}

	hasher, err := HasherForAlgorithm(sdAlg)
	if err != nil {
		return nil, err
	}

	return hasher, nil
}

// GetHasherFromClaimsOrDefault is GetHasherFromClaims falling back to SHA-256 when "_sd_alg" is absent.
func GetHasherFromClaimsOrDefault(claims map[string]interface{}) (Hasher, error) {
	if _, ok := claims[SDAlgorithmKey]; !ok {
		return &CryptoHasher{hash: crypto.SHA256}, nil
	}

	return GetHasherFromClaims(claims)
}
