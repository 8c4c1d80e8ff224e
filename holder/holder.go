/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package holder enables the Holder: an entity that receives SD-JWTs from the Issuer and has control over them.
package holder

import (
	"errors"
	"fmt"

	"github.com/hyperledger/aries-framework-go/component/sdjwt/common"
	"github.com/hyperledger/aries-framework-go/component/sdjwt/jwt"
)

// Claim defines claim.
type Claim struct {
	Disclosure     string
	Name           string
	Value          interface{}
	IsArrayElement bool
}

type parseOpts struct {
	sigVerifier jwt.SignatureVerifier
}

// ParseOpt is the SD-JWT Parser option.
type ParseOpt func(opts *parseOpts)

// WithSignatureVerifier option is for definition of JWT signature verifier.
func WithSignatureVerifier(signatureVerifier jwt.SignatureVerifier) ParseOpt {
	return func(opts *parseOpts) {
		opts.sigVerifier = signatureVerifier
	}
}

// Parse parses issuer SD-JWT and returns claims that can be selected.
// The Holder MUST perform the following (or equivalent) steps when receiving a Combined Format for Issuance:
//
//   - Separate the SD-JWT and the Disclosures in the Combined Format for Issuance.
//
//   - Hash all the Disclosures separately.
//
//   - Find the places in the SD-JWT where the digests of the Disclosures are included.
//
//   - If any of the digests cannot be found in the SD-JWT, the Holder MUST reject the SD-JWT.
//
//   - Decode Disclosures and obtain plaintext of the claim values.
func Parse(combinedFormatForIssuance string, opts ...ParseOpt) ([]*Claim, error) {
	pOpts := &parseOpts{
		sigVerifier: jwt.NoopSignatureVerifier(),
	}

	for _, opt := range opts {
		opt(pOpts)
	}

	cfi := common.ParseCombinedFormatForIssuance(combinedFormatForIssuance)

	signedJWT, err := jwt.Parse(cfi.SDJWT, jwt.WithSignatureVerifier(pOpts.sigVerifier))
	if err != nil {
		return nil, err
	}

	hasher, err := common.GetHasherFromClaimsOrDefault(signedJWT.Payload)
	if err != nil {
		return nil, err
	}

	disclosed, err := common.ResolveDisclosures(signedJWT.Payload, cfi.Disclosures, hasher)
	if err != nil {
		return nil, fmt.Errorf("failed to verify disclosures: %w", err)
	}

	claims := make([]*Claim, 0, len(disclosed.Disclosures))

	for _, d := range disclosed.Disclosures {
		claims = append(claims, &Claim{
			Disclosure:     d.Encoded,
			Name:           d.Key,
			Value:          d.Value,
			IsArrayElement: d.IsArrayElement,
		})
	}

	return claims, nil
}

type options struct {
	holderBinding string
}

// Option is a holder option.
type Option func(opts *options)

// WithHolderBinding sets a pre-built holder binding JWT placed in the last segment of the presentation.
func WithHolderBinding(holderBinding string) Option {
	return func(opts *options) {
		opts.holderBinding = holderBinding
	}
}

// CreatePresentation is a convenience method to assemble combined format for presentation
// using selected disclosures (claimsToDisclose) and optional holder binding.
// This call assumes that combinedFormatForIssuance has already been parsed and verified using Parse() function.
//
// For presentation to a Verifier, the Holder MUST perform the following (or equivalent) steps:
//   - Decide which Disclosures to release to the Verifier, obtaining proper End-User consent if necessary.
//   - Create the Combined Format for Presentation from selected Disclosures and Holder Binding JWT(if applicable).
//   - Send the Presentation to the Verifier.
func CreatePresentation(combinedFormatForIssuance string, claimsToDisclose []string, opts ...Option) (string, error) {
	hOpts := &options{}

	for _, opt := range opts {
		opt(hOpts)
	}

	cfi := common.ParseCombinedFormatForIssuance(combinedFormatForIssuance)

	if len(cfi.Disclosures) == 0 && len(claimsToDisclose) > 0 {
		return "", errors.New("no disclosures found in SD-JWT")
	}

	issued := common.SliceToMap(cfi.Disclosures)

	for _, ctd := range claimsToDisclose {
		if !issued[ctd] {
			return "", fmt.Errorf("disclosure '%s' not found in SD-JWT", ctd)
		}
	}

	cf := common.CombinedFormatForPresentation{
		SDJWT:         cfi.SDJWT,
		Disclosures:   claimsToDisclose,
		HolderBinding: hOpts.holderBinding,
	}

	return cf.Serialize(), nil
}

// SelectDisclosures returns the disclosures of claims whose name is one of names.
// Array element disclosures are never selected by name.
func SelectDisclosures(claims []*Claim, names ...string) []string {
	wanted := common.SliceToMap(names)

	var selected []string

	for _, c := range claims {
		if !c.IsArrayElement && wanted[c.Name] {
			selected = append(selected, c.Disclosure)
		}
	}

	return selected
}
