/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuer

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/hyperledger/aries-framework-go/component/sdjwt/common"
)

const (
	rootPath = "$"

	// 128 bits of salt.
	saltSize = 16
)

// SaltSource provides salts for disclosures. Salts must be unpredictable.
type SaltSource interface {
	Salt() (string, error)
}

// SaltFunc adapts a function to SaltSource.
type SaltFunc func() (string, error)

// Salt calls f.
func (f SaltFunc) Salt() (string, error) {
	return f()
}

// RandomSalt returns 128 random bits, base64url encoded. It is the default SaltSource.
func RandomSalt() (string, error) {
	b := make([]byte, saltSize)

	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Packed is the result of packing: the redacted claims and the disclosures they reference.
// Disclosures of nested claims precede the disclosure of their enclosing claim.
type Packed struct {
	Claims      map[string]interface{}
	Disclosures []*common.Disclosure
}

// EncodedDisclosures returns the encoded form of the disclosures, in order.
func (p *Packed) EncodedDisclosures() []string {
	encoded := make([]string, 0, len(p.Disclosures))

	for _, d := range p.Disclosures {
		encoded = append(encoded, d.Encoded)
	}

	return encoded
}

type packer struct {
	hasher common.Hasher
	salts  SaltSource

	usedSalts   map[string]bool
	disclosures []*common.Disclosure
}

// Pack replaces the claims selected by frame with digests and returns the redacted claims together with
// the disclosures. The input claims are not modified.
//
// Keys of a mapping are visited in lexicographic order and the "_sd" digests of each mapping are sorted,
// so packing is deterministic for a given salt sequence.
func Pack(claims map[string]interface{}, frame *Frame, hasher common.Hasher, salts SaltSource) (*Packed, error) {
	if isNil(hasher) {
		return nil, &ConfigurationError{Err: errors.New("hasher is required")}
	}

	if isNil(salts) {
		return nil, &ConfigurationError{Err: errors.New("salt source is required")}
	}

	for _, key := range []string{common.SDKey, common.ArrayElementDigestKey} {
		if common.KeyExistsInMap(key, claims) {
			return nil, packingError(rootPath, "claims already contain reserved key '%s'", key)
		}
	}

	p := &packer{
		hasher:    hasher,
		salts:     salts,
		usedSalts: make(map[string]bool),
	}

	redacted, err := p.packObject(claims, frame, rootPath)
	if err != nil {
		return nil, err
	}

	return &Packed{Claims: redacted, Disclosures: p.disclosures}, nil
}

func (p *packer) packValue(value interface{}, frame *Frame, path string) (interface{}, error) {
	switch v := value.(type) {
	case map[string]interface{}:
		return p.packObject(v, frame, path)
	case []interface{}:
		return p.packArray(v, frame, path)
	default:
		if !frame.IsEmpty() {
			return nil, packingError(path, "frame selects claims inside a value of type %T", value)
		}

		return v, nil
	}
}

func (p *packer) packObject(obj map[string]interface{}, frame *Frame, path string) (map[string]interface{}, error) {
	if frame != nil {
		if len(frame.SDIndices) > 0 {
			return nil, packingError(path, "frame selects array indices on an object")
		}

		for _, key := range frame.SD {
			if _, ok := obj[key]; !ok {
				return nil, &PackingError{Path: path + "." + key, Err: ErrMissingClaim}
			}
		}

		for key := range frame.Nested {
			if _, ok := obj[key]; !ok {
				return nil, &PackingError{Path: path + "." + key, Err: ErrMissingClaim}
			}
		}
	}

	selected := make(map[string]bool)
	if frame != nil {
		selected = common.SliceToMap(frame.SD)
	}

	result := make(map[string]interface{}, len(obj))

	var digests []string

	for _, key := range sortedKeys(obj) {
		childPath := path + "." + key

		packed, err := p.packValue(obj[key], frame.child(key), childPath)
		if err != nil {
			return nil, err
		}

		if !selected[key] {
			result[key] = packed

			continue
		}

		digest, err := p.disclose(key, false, packed, childPath)
		if err != nil {
			return nil, err
		}

		digests = append(digests, digest)
	}

	decoys, err := p.decoys(frame, path)
	if err != nil {
		return nil, err
	}

	digests = append(digests, decoys...)

	if len(digests) > 0 {
		sort.Strings(digests)
		result[common.SDKey] = digests
	}

	return result, nil
}

func (p *packer) packArray(arr []interface{}, frame *Frame, path string) ([]interface{}, error) {
	selected := make(map[int]bool)

	if frame != nil {
		if len(frame.SD) > 0 {
			return nil, packingError(path, "frame selects object keys on an array")
		}

		for _, idx := range frame.SDIndices {
			if idx < 0 || idx >= len(arr) {
				return nil, &PackingError{Path: fmt.Sprintf("%s[%d]", path, idx), Err: ErrMissingClaim}
			}

			selected[idx] = true
		}

		for key := range frame.Nested {
			idx, err := strconv.Atoi(key)
			if err != nil {
				return nil, packingError(path, "frame key '%s' is not an array index", key)
			}

			if idx < 0 || idx >= len(arr) {
				return nil, &PackingError{Path: fmt.Sprintf("%s[%d]", path, idx), Err: ErrMissingClaim}
			}
		}
	}

	result := make([]interface{}, 0, len(arr))

	for i, element := range arr {
		elementPath := fmt.Sprintf("%s[%d]", path, i)

		packed, err := p.packValue(element, frame.child(strconv.Itoa(i)), elementPath)
		if err != nil {
			return nil, err
		}

		if !selected[i] {
			result = append(result, packed)

			continue
		}

		digest, err := p.disclose("", true, packed, elementPath)
		if err != nil {
			return nil, err
		}

		result = append(result, map[string]interface{}{common.ArrayElementDigestKey: digest})
	}

	decoys, err := p.decoys(frame, path)
	if err != nil {
		return nil, err
	}

	for _, decoy := range decoys {
		result = append(result, map[string]interface{}{common.ArrayElementDigestKey: decoy})
	}

	return result, nil
}

// disclose creates the disclosure for value and returns its digest.
func (p *packer) disclose(key string, isArrayElement bool, value interface{}, path string) (string, error) {
	salt, err := p.salt(path)
	if err != nil {
		return "", err
	}

	encoded, err := common.EncodeDisclosure(salt, key, isArrayElement, value)
	if err != nil {
		return "", &PackingError{Path: path, Err: err}
	}

	digest, err := p.hasher.Hash(encoded)
	if err != nil {
		return "", &PackingError{Path: path, Err: fmt.Errorf("hash disclosure: %w", err)}
	}

	p.disclosures = append(p.disclosures, &common.Disclosure{
		Salt:           salt,
		Key:            key,
		IsArrayElement: isArrayElement,
		Value:          value,
		Encoded:        encoded,
		Digest:         digest,
	})

	return digest, nil
}

func (p *packer) decoys(frame *Frame, path string) ([]string, error) {
	if frame == nil || frame.Decoys <= 0 {
		return nil, nil
	}

	decoys := make([]string, 0, frame.Decoys)

	for i := 0; i < frame.Decoys; i++ {
		salt, err := p.salt(path)
		if err != nil {
			return nil, err
		}

		digest, err := p.hasher.Hash(salt)
		if err != nil {
			return nil, &PackingError{Path: path, Err: fmt.Errorf("hash decoy: %w", err)}
		}

		decoys = append(decoys, digest)
	}

	return decoys, nil
}

func (p *packer) salt(path string) (string, error) {
	salt, err := p.salts.Salt()
	if err != nil {
		return "", &PackingError{Path: path, Err: fmt.Errorf("generate salt: %w", err)}
	}

	if p.usedSalts[salt] {
		return "", &PackingError{Path: path, Err: fmt.Errorf("%w: '%s'", ErrSaltCollision, salt)}
	}

	p.usedSalts[salt] = true

	return salt, nil
}
