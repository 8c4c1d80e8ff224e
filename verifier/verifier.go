/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

/*
Package verifier enables the Verifier: An entity that requests, checks and
extracts the claims from an SD-JWT and respective Disclosures.
*/
package verifier

import (
	"errors"
	"fmt"
	"time"

	josejwt "github.com/go-jose/go-jose/v3/jwt"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-framework-go/component/sdjwt/common"
	"github.com/hyperledger/aries-framework-go/component/sdjwt/jwt"
)

var logger = log.New("aries-framework/sdjwt/verifier")

// parseOpts holds options for the SD-JWT parsing.
type parseOpts struct {
	sigVerifier          jwt.SignatureVerifier
	issuerSigningAlgs    []string
	hasher               common.Hasher
	expectedTyp          string
	leewayForClaimsCheck time.Duration
}

// ParseOpt is the SD-JWT Parser option.
type ParseOpt func(opts *parseOpts)

// WithSignatureVerifier option is for definition of JWT signature verifier. Required.
func WithSignatureVerifier(signatureVerifier jwt.SignatureVerifier) ParseOpt {
	return func(opts *parseOpts) {
		opts.sigVerifier = signatureVerifier
	}
}

// WithSigningAlgorithms option is for defining secure signing algorithms. "none" is never accepted.
func WithSigningAlgorithms(algorithms []string) ParseOpt {
	return func(opts *parseOpts) {
		opts.issuerSigningAlgs = algorithms
	}
}

// WithHasher forces the disclosure hasher. By default it is resolved from the "_sd_alg" claim.
func WithHasher(hasher common.Hasher) ParseOpt {
	return func(opts *parseOpts) {
		opts.hasher = hasher
	}
}

// WithExpectedType is an option for JWT typ header validation.
func WithExpectedType(typ string) ParseOpt {
	return func(opts *parseOpts) {
		opts.expectedTyp = typ
	}
}

// WithLeewayForClaimsValidation is an option for claims time(s) validation.
func WithLeewayForClaimsValidation(duration time.Duration) ParseOpt {
	return func(opts *parseOpts) {
		opts.leewayForClaimsCheck = duration
	}
}

// Result is a verified presentation.
type Result struct {
	// Claims with the presented disclosures applied.
	Claims map[string]interface{}
	// HolderBinding is the last segment of the presentation, returned as is.
	HolderBinding string
}

// Parse parses combined format for presentation and returns verified claims.
// The Verifier has to verify an SD-JWT as follows:
//   - Separate the SD-JWT, the Disclosures and the Holder Binding JWT.
//   - Validate the SD-JWT: signature, allowed algorithm, time claims.
//   - Check that the _sd_alg claim is present and its value is understood and the hash algorithm is deemed secure.
//   - For each Disclosure provided: calculate the digest, find it in the SD-JWT (or in another disclosure) and
//     insert the disclosed claim.
//   - Remove all digests, undisclosed array elements and the _sd_alg claim.
//
// Holder binding is not verified.
func Parse(combinedFormatForPresentation string, opts ...ParseOpt) (map[string]interface{}, error) {
	result, err := ParseWithBinding(combinedFormatForPresentation, opts...)
	if err != nil {
		return nil, err
	}

	return result.Claims, nil
}

// ParseWithBinding is Parse that also returns the holder binding segment.
func ParseWithBinding(combinedFormatForPresentation string, opts ...ParseOpt) (*Result, error) {
	pOpts := &parseOpts{
		issuerSigningAlgs: []string{jwt.AlgorithmEdDSA, jwt.AlgorithmES256, jwt.AlgorithmRS256},
	}

	for _, opt := range opts {
		opt(pOpts)
	}

	if pOpts.sigVerifier == nil {
		return nil, errors.New("signature verifier is required")
	}

	cfp := common.ParseCombinedFormatForPresentation(combinedFormatForPresentation)

	signedJWT, err := jwt.Parse(cfp.SDJWT, jwt.WithSignatureVerifier(&algorithmVerifier{
		allowed:  common.SliceToMap(pOpts.issuerSigningAlgs),
		verifier: pOpts.sigVerifier,
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to verify issuer signing algorithm and signature: %w", err)
	}

	if err = verifyType(signedJWT.Headers, pOpts.expectedTyp); err != nil {
		return nil, err
	}

	if err = verifyTimeClaims(signedJWT, pOpts.leewayForClaimsCheck); err != nil {
		return nil, err
	}

	if err = checkForDuplicates(cfp.Disclosures); err != nil {
		return nil, fmt.Errorf("check disclosures: %w", err)
	}

	hasher, err := resolveHasher(signedJWT.Payload, pOpts.hasher)
	if err != nil {
		return nil, err
	}

	disclosed, err := common.ResolveDisclosures(signedJWT.Payload, cfp.Disclosures, hasher)
	if err != nil {
		return nil, fmt.Errorf("failed to verify disclosures: %w", err)
	}

	logger.Debugf("verified SD-JWT with %d disclosures", len(disclosed.Disclosures))

	return &Result{Claims: disclosed.Claims, HolderBinding: cfp.HolderBinding}, nil
}

type algorithmVerifier struct {
	allowed  map[string]bool
	verifier jwt.SignatureVerifier
}

func (v *algorithmVerifier) Verify(headers jwt.Headers, signingInput, signature []byte) error {
	alg, ok := headers.Algorithm()
	if !ok {
		return errors.New("missing alg")
	}

	if alg == jwt.AlgorithmNone {
		return errors.New("alg value cannot be 'none'")
	}

	if !v.allowed[alg] {
		return fmt.Errorf("alg '%s' is not in the allowed list", alg)
	}

	return v.verifier.Verify(headers, signingInput, signature)
}

func verifyType(headers jwt.Headers, expected string) error {
	if expected == "" {
		return nil
	}

	typ, _ := headers.Type()
	if typ != expected {
		return fmt.Errorf("unexpected typ \"%s\"", typ)
	}

	return nil
}

func verifyTimeClaims(signedJWT *jwt.JSONWebToken, leeway time.Duration) error {
	var claims josejwt.Claims

	if err := signedJWT.DecodeClaims(&claims); err != nil {
		return fmt.Errorf("decode time claims: %w", err)
	}

	if err := claims.ValidateWithLeeway(josejwt.Expected{Time: time.Now()}, leeway); err != nil {
		return fmt.Errorf("failed to check time claims: %w", err)
	}

	return nil
}

func checkForDuplicates(values []string) error {
	seen := make(map[string]bool, len(values))

	for _, v := range values {
		if seen[v] {
			return fmt.Errorf("duplicate value found '%s'", v)
		}

		seen[v] = true
	}

	return nil
}

func resolveHasher(claims map[string]interface{}, forced common.Hasher) (common.Hasher, error) {
	if forced == nil {
		return common.GetHasherFromClaimsOrDefault(claims)
	}

	if sdAlg, ok := claims[common.SDAlgorithmKey].(string); ok && sdAlg != forced.Algorithm() {
		return nil, fmt.Errorf("%s '%s' does not match hasher '%s'", common.SDAlgorithmKey, sdAlg, forced.Algorithm())
	}

	return forced, nil
}
