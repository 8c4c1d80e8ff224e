/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuer

import (
	"errors"
	"fmt"
)

var (
	// ErrSaltCollision is returned (wrapped in PackingError) when the salt source repeats a salt within one call.
	ErrSaltCollision = errors.New("salt collision")

	// ErrMissingClaim is returned (wrapped in PackingError) when a frame addresses a claim that does not exist.
	ErrMissingClaim = errors.New("claim not found")
)

// ConfigurationError is returned when the issuer is missing a collaborator or has an invalid setting.
// It is raised before any packing work starts.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("sd-jwt issuer configuration: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// PackingError is returned when claims cannot be packed with the given frame.
type PackingError struct {
	// Path of the claim tree node being packed, e.g. "$.address.city".
	Path string
	Err  error
}

func (e *PackingError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("pack sd-jwt claims: %v", e.Err)
	}

	return fmt.Sprintf("pack sd-jwt claims at '%s': %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *PackingError) Unwrap() error {
	return e.Err
}

// SigningError wraps a failure of the signer.
type SigningError struct {
	Err error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("sign sd-jwt: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *SigningError) Unwrap() error {
	return e.Err
}

func packingError(path string, format string, args ...interface{}) error {
	return &PackingError{Path: path, Err: fmt.Errorf(format, args...)}
}
