/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package common

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/gowebpki/jcs"
)

const (
	objectDisclosureParts = 3
	arrayDisclosureParts  = 2
)

// ErrInexactNumber is returned when a number would change its value under canonicalization (e.g. an integer
// above 2^53 or a decimal with more digits than a float64 holds).
var ErrInexactNumber = errors.New("number cannot be represented exactly in canonical JSON")

// Disclosure is a single selectively disclosable claim: (salt, [key,] value).
// Encoded is the base64url string transmitted alongside the SD-JWT and Digest is the hash over Encoded.
type Disclosure struct {
	Salt           string
	Key            string
	IsArrayElement bool
	Value          interface{}

	Encoded string
	Digest  string
}

// MarshalCanonical produces the RFC 8785 (JCS) form of v.
// JCS serializes numbers as IEEE 754 doubles; a number that would not keep its value fails with ErrInexactNumber.
func MarshalCanonical(v interface{}) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}

	raw := bytes.TrimRight(buf.Bytes(), "\n")

	if err := checkNumbers(raw); err != nil {
		return nil, err
	}

	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize JSON: %w", err)
	}

	return canonical, nil
}

func checkNumbers(raw []byte) error {
	d := json.NewDecoder(bytes.NewReader(raw))
	d.UseNumber()

	var v interface{}

	if err := d.Decode(&v); err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}

	return walkNumbers(v)
}

func walkNumbers(v interface{}) error {
	switch val := v.(type) {
	case map[string]interface{}:
		for _, child := range val {
			if err := walkNumbers(child); err != nil {
				return err
			}
		}
	case []interface{}:
		for _, child := range val {
			if err := walkNumbers(child); err != nil {
				return err
			}
		}
	case json.Number:
		if !isExactDouble(val.String()) {
			return fmt.Errorf("%w: %s", ErrInexactNumber, val)
		}
	}

	return nil
}

// isExactDouble reports whether the shortest float64 form of the JSON number literal n denotes the same value.
func isExactDouble(n string) bool {
	f, err := strconv.ParseFloat(n, 64)
	if err != nil {
		return false
	}

	if f == 0 {
		mantissa := n
		if i := strings.IndexAny(n, "eE"); i >= 0 {
			mantissa = n[:i]
		}

		return !strings.ContainsAny(mantissa, "123456789")
	}

	literal, ok := new(big.Rat).SetString(n)
	if !ok {
		return false
	}

	double, ok := new(big.Rat).SetString(strconv.FormatFloat(f, 'g', -1, 64))
	if !ok {
		return false
	}

	return literal.Cmp(double) == 0
}

// EncodeDisclosure builds the disclosure array ([salt, key, value] or [salt, value] for array elements),
// canonicalizes it and returns the base64url encoding without padding.
func EncodeDisclosure(salt, key string, isArrayElement bool, value interface{}) (string, error) {
	disclosure := []interface{}{salt}
	if !isArrayElement {
		disclosure = append(disclosure, key)
	}

	disclosure = append(disclosure, value)

	disclosureBytes, err := MarshalCanonical(disclosure)
	if err != nil {
		return "", fmt.Errorf("marshal disclosure: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(disclosureBytes), nil
}

// DecodeDisclosure decodes an encoded disclosure. Digest is left empty.
func DecodeDisclosure(encoded string) (*Disclosure, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode disclosure: %w", err)
	}

	var disclosureArr []interface{}

	d := json.NewDecoder(bytes.NewReader(decoded))
	d.UseNumber()

	if err = d.Decode(&disclosureArr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal disclosure array: %w", err)
	}

	if len(disclosureArr) != objectDisclosureParts && len(disclosureArr) != arrayDisclosureParts {
		return nil, fmt.Errorf("disclosure array size[%d] must be %d or %d", len(disclosureArr),
			arrayDisclosureParts, objectDisclosureParts)
	}

	salt, ok := disclosureArr[0].(string)
	if !ok {
		return nil, fmt.Errorf("disclosure salt type[%T] must be string", disclosureArr[0])
	}

	disclosure := &Disclosure{Salt: salt, Encoded: encoded}

	if len(disclosureArr) == arrayDisclosureParts {
		disclosure.IsArrayElement = true
		disclosure.Value = disclosureArr[1]

		return disclosure, nil
	}

	name, ok := disclosureArr[1].(string)
	if !ok {
		return nil, fmt.Errorf("disclosure name type[%T] must be string", disclosureArr[1])
	}

	if name == SDKey || name == ArrayElementDigestKey {
		return nil, fmt.Errorf("disclosure name '%s' is reserved", name)
	}

	disclosure.Key = name
	disclosure.Value = disclosureArr[2]

	return disclosure, nil
}

// GetDisclosureClaims de-codes disclosures and computes their digests.
func GetDisclosureClaims(disclosures []string, hasher Hasher) ([]*Disclosure, error) {
	claims := make([]*Disclosure, 0, len(disclosures))

	for _, encoded := range disclosures {
		claim, err := DecodeDisclosure(encoded)
		if err != nil {
			return nil, err
		}

		claim.Digest, err = hasher.Hash(encoded)
		if err != nil {
			return nil, fmt.Errorf("hash disclosure: %w", err)
		}

		claims = append(claims, claim)
	}

	return claims, nil
}
