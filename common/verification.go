/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package common

import (
	"fmt"
)

// DisclosedClaims holds the result of resolving disclosures against SD-JWT claims.
type DisclosedClaims struct {
	// Claims with every referenced disclosure substituted and all digests removed.
	Claims map[string]interface{}
	// Disclosures in the order they were presented, with digests computed.
	Disclosures []*Disclosure
}

type resolver struct {
	byDigest map[string]*Disclosure
	included map[string]bool
}

// ResolveDisclosures recomputes the digest of every disclosure, finds it in the claims (or inside the value of
// another disclosure) and returns the claims with disclosed values substituted.
//
// Every disclosure must be referenced exactly once. Undisclosed "_sd" digests and undisclosed array
// elements are dropped from the result, as is the "_sd_alg" claim.
func ResolveDisclosures(claims map[string]interface{}, disclosures []string, hasher Hasher) (*DisclosedClaims, error) {
	decoded, err := GetDisclosureClaims(disclosures, hasher)
	if err != nil {
		return nil, err
	}

	r := &resolver{
		byDigest: make(map[string]*Disclosure, len(decoded)),
		included: make(map[string]bool, len(decoded)),
	}

	for _, d := range decoded {
		if _, ok := r.byDigest[d.Digest]; ok {
			return nil, fmt.Errorf("duplicate disclosure digest '%s'", d.Digest)
		}

		r.byDigest[d.Digest] = d
	}

	resolved, err := r.resolveObject(claims)
	if err != nil {
		return nil, err
	}

	for _, d := range decoded {
		if !r.included[d.Digest] {
			return nil, fmt.Errorf("disclosure digest '%s' not found in SD-JWT disclosure digests", d.Digest)
		}
	}

	delete(resolved, SDAlgorithmKey)

	return &DisclosedClaims{Claims: resolved, Disclosures: decoded}, nil
}

func (r *resolver) resolveValue(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case map[string]interface{}:
		return r.resolveObject(v)
	case []interface{}:
		return r.resolveArray(v)
	default:
		return v, nil
	}
}

func (r *resolver) resolveObject(obj map[string]interface{}) (map[string]interface{}, error) {
	result := make(map[string]interface{}, len(obj))

	for k, v := range obj {
		if k == SDKey {
			continue
		}

		resolved, err := r.resolveValue(v)
		if err != nil {
			return nil, err
		}

		result[k] = resolved
	}

	digests, err := stringArray(obj[SDKey])
	if err != nil {
		return nil, fmt.Errorf("get disclosure digests: %w", err)
	}

	for _, digest := range digests {
		d, ok := r.byDigest[digest]
		if !ok {
			// undisclosed claim or decoy
			continue
		}

		if d.IsArrayElement {
			return nil, fmt.Errorf("array element disclosure '%s' referenced from '%s'", digest, SDKey)
		}

		if err := r.include(digest); err != nil {
			return nil, err
		}

		if _, exists := result[d.Key]; exists {
			// If the claim name already exists at the same level, the Verifier MUST reject the Presentation.
			return nil, fmt.Errorf("claim name '%s' already exists at the same level", d.Key)
		}

		resolved, err := r.resolveValue(d.Value)
		if err != nil {
			return nil, err
		}

		result[d.Key] = resolved
	}

	return result, nil
}

func (r *resolver) resolveArray(arr []interface{}) ([]interface{}, error) {
	result := make([]interface{}, 0, len(arr))

	for _, element := range arr {
		digest, isDigest := arrayElementDigest(element)
		if !isDigest {
			resolved, err := r.resolveValue(element)
			if err != nil {
				return nil, err
			}

			result = append(result, resolved)

			continue
		}

		d, ok := r.byDigest[digest]
		if !ok {
			continue
		}

		if !d.IsArrayElement {
			return nil, fmt.Errorf("object property disclosure '%s' referenced as array element", digest)
		}

		if err := r.include(digest); err != nil {
			return nil, err
		}

		resolved, err := r.resolveValue(d.Value)
		if err != nil {
			return nil, err
		}

		result = append(result, resolved)
	}

	return result, nil
}

func (r *resolver) include(digest string) error {
	if r.included[digest] {
		// If there is more than one place where the digest is included,
		// the Verifier MUST reject the Presentation.
		return fmt.Errorf("digest '%s' has been included in more than one place", digest)
	}

	r.included[digest] = true

	return nil
}

func arrayElementDigest(element interface{}) (string, bool) {
	obj, ok := element.(map[string]interface{})
	if !ok || len(obj) != 1 {
		return "", false
	}

	digest, ok := obj[ArrayElementDigestKey].(string)

	return digest, ok
}
