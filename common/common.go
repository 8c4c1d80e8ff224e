/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package common

import (
	"fmt"
	"reflect"
	"strings"
)

// CombinedFormatSeparator is disclosure separator.
const (
	CombinedFormatSeparator = "~"

	SDAlgorithmKey        = "_sd_alg"
	SDKey                 = "_sd"
	CNFKey                = "cnf"
	ArrayElementDigestKey = "..."

	// SDJWTType is the default value of the "typ" header of an issued SD-JWT.
	SDJWTType = "sd-jwt"
)

// CombinedFormatForIssuance holds SD-JWT and disclosures.
type CombinedFormatForIssuance struct {
	SDJWT       string
	Disclosures []string
}

// Serialize will assemble combined format for issuance.
// The result always ends with the separator: issuance reserves an empty slot for the holder binding JWT.
func (cf *CombinedFormatForIssuance) Serialize() string {
	return cf.SerializeWithSeparator(CombinedFormatSeparator)
}

// SerializeWithSeparator assembles combined format for issuance using a custom separator.
func (cf *CombinedFormatForIssuance) SerializeWithSeparator(separator string) string {
	var sb strings.Builder

	sb.WriteString(cf.SDJWT)

	for _, disclosure := range cf.Disclosures {
		sb.WriteString(separator)
		sb.WriteString(disclosure)
	}

	sb.WriteString(separator)

	return sb.String()
}

// CombinedFormatForPresentation holds SD-JWT, disclosures and optional holder binding info.
type CombinedFormatForPresentation struct {
	SDJWT         string
	Disclosures   []string
	HolderBinding string
}

// Serialize will assemble combined format for presentation.
func (cf *CombinedFormatForPresentation) Serialize() string {
	var sb strings.Builder

	sb.WriteString(cf.SDJWT)

	for _, disclosure := range cf.Disclosures {
		sb.WriteString(CombinedFormatSeparator)
		sb.WriteString(disclosure)
	}

	sb.WriteString(CombinedFormatSeparator)
	sb.WriteString(cf.HolderBinding)

	return sb.String()
}

// ParseCombinedFormatForIssuance parses combined format for issuance into CombinedFormatForIssuance parts.
// A trailing (empty) holder binding slot is accepted and dropped.
func ParseCombinedFormatForIssuance(combinedFormatForIssuance string) *CombinedFormatForIssuance {
	parts := strings.Split(combinedFormatForIssuance, CombinedFormatSeparator)

	if len(parts) > 1 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}

	var disclosures []string
	if len(parts) > 1 {
		disclosures = parts[1:]
	}

	return &CombinedFormatForIssuance{SDJWT: parts[0], Disclosures: disclosures}
}

// ParseCombinedFormatForPresentation parses combined format for presentation into CombinedFormatForPresentation parts.
func ParseCombinedFormatForPresentation(combinedFormatForPresentation string) *CombinedFormatForPresentation {
	parts := strings.Split(combinedFormatForPresentation, CombinedFormatSeparator)

	var disclosures []string
	if len(parts) > 2 {
		disclosures = parts[1 : len(parts)-1]
	}

	var holderBinding string
	if len(parts) > 1 {
		holderBinding = parts[len(parts)-1]
	}

	return &CombinedFormatForPresentation{SDJWT: parts[0], Disclosures: disclosures, HolderBinding: holderBinding}
}

// GetSDAlg returns SD algorithm from claims.
func GetSDAlg(claims map[string]interface{}) (string, error) {
	obj, ok := claims[SDAlgorithmKey]
	if !ok {
		return "", fmt.Errorf("%s must be present in SD-JWT", SDAlgorithmKey)
	}

	str, ok := obj.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", SDAlgorithmKey)
	}

	return str, nil
}

// KeyExistsInMap checks if key exists in map, nested maps or maps inside arrays.
func KeyExistsInMap(key string, m map[string]interface{}) bool {
	for k, v := range m {
		if k == key {
			return true
		}

		if keyExistsInValue(key, v) {
			return true
		}
	}

	return false
}

func keyExistsInValue(key string, v interface{}) bool {
	switch value := v.(type) {
	case map[string]interface{}:
		return KeyExistsInMap(key, value)
	case []interface{}:
		for _, e := range value {
			if keyExistsInValue(key, e) {
				return true
			}
		}
	}

	return false
}

// SliceToMap converts slice to map.
func SliceToMap(ids []string) map[string]bool {
	// convert slice to map
	values := make(map[string]bool)
	for _, id := range ids {
		values[id] = true
	}

	return values
}

func stringArray(entry interface{}) ([]string, error) {
	if entry == nil {
		return nil, nil
	}

	sliceValue := reflect.ValueOf(entry)
	if sliceValue.Kind() != reflect.Slice {
		return nil, fmt.Errorf("entry type[%T] is not an array", entry)
	}

	stringSlice := make([]string, sliceValue.Len())

	for i := 0; i < sliceValue.Len(); i++ {
		sliceVal := sliceValue.Index(i).Interface()

		val, ok := sliceVal.(string)
		if !ok {
			return nil, fmt.Errorf("entry item type[%T] is not a string", sliceVal)
		}

		stringSlice[i] = val
	}

	return stringSlice, nil
}
