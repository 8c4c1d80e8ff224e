/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

/*
Package issuer enables the Issuer: An entity that creates SD-JWTs.

An SD-JWT is a digitally signed document containing digests over the claims
(per claim: a random salt, the claim name and the claim value).
It MAY further contain clear-text claims that are always disclosed to the Verifier.

	SD-JWT-DOC = (METADATA, SD-CLAIMS, NON-SD-CLAIMS)
	SD-JWT = SD-JWT-DOC | SIG(SD-JWT-DOC, ISSUER-PRIV-KEY)

Which claims become disclosable is decided by a Frame. Pack computes the redacted claims and
the Disclosures; Issue additionally signs the redacted claims and serializes the combined format:

	COMBINED-ISSUANCE = SD-JWT ~ DISCLOSURE-1 ~ ... ~ DISCLOSURE-N ~
*/
package issuer

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"reflect"

	"github.com/go-jose/go-jose/v3"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-framework-go/component/sdjwt/common"
	"github.com/hyperledger/aries-framework-go/component/sdjwt/jwt"
)

const (
	defaultHash = crypto.SHA256

	jwkKey = "jwk"
)

var logger = log.New("aries-framework/sdjwt/issuer")

// Signer signs the SD-JWT. It returns the third segment of the compact serialization (base64url signature).
// The signature must be computed over jwt.SigningInput(headers, claims).
// A Signer that is not a HeaderProvider relies on the caller header for "alg".
type Signer interface {
	Sign(ctx context.Context, headers jwt.Headers, claims map[string]interface{}) (string, error)
}

// SignerFunc adapts a function to Signer.
type SignerFunc func(ctx context.Context, headers jwt.Headers, claims map[string]interface{}) (string, error)

// Sign calls f.
func (f SignerFunc) Sign(ctx context.Context, headers jwt.Headers, claims map[string]interface{}) (string, error) {
	return f(ctx, headers, claims)
}

// HeaderProvider is implemented by signers that contribute protected headers (e.g. "alg" and "kid").
// Signer headers are applied before the caller headers.
type HeaderProvider interface {
	Headers() jwt.Headers
}

// options holds options for issuing SD-JWT.
type options struct {
	signer     Signer
	hasher     common.Hasher
	hashErr    error
	salts      SaltSource
	cnf        map[string]interface{}
	separator  string
	omitSDAlg  bool
	holderJWK  *jose.JSONWebKey
	holderOpts bool
}

// Opt is the SD-JWT issuer option.
type Opt func(opts *options)

// WithSigner sets the signer of the SD-JWT. Required.
func WithSigner(signer Signer) Opt {
	return func(opts *options) {
		opts.signer = signer
	}
}

// WithHasher sets the disclosure hasher. Its Algorithm is published in the "_sd_alg" claim.
func WithHasher(hasher common.Hasher) Opt {
	return func(opts *options) {
		opts.hasher = hasher
		opts.hashErr = nil
	}
}

// WithHashAlgorithm is an option for hashing disclosures with one of the SHA-2 functions. Defaults to SHA-256.
func WithHashAlgorithm(alg crypto.Hash) Opt {
	return func(opts *options) {
		hasher, err := common.NewHasher(alg)
		if err != nil {
			opts.hasher = nil
			opts.hashErr = err

			return
		}

		opts.hasher = hasher
		opts.hashErr = nil
	}
}

// WithSaltSource sets the salt source. Defaults to RandomSalt.
func WithSaltSource(salts SaltSource) Opt {
	return func(opts *options) {
		opts.salts = salts
	}
}

// WithSaltFnc is an option for generating salt. Mostly used for testing.
// A new salt MUST be chosen for each claim independently of other salts.
// The RECOMMENDED minimum length of the randomly-generated portion of the salt is 128 bits.
func WithSaltFnc(fnc func() (string, error)) Opt {
	return func(opts *options) {
		if fnc == nil {
			opts.salts = nil

			return
		}

		opts.salts = SaltFunc(fnc)
	}
}

// WithCNF sets the "cnf" (confirmation) claim binding the SD-JWT to a holder key. The claim is never disclosable.
func WithCNF(cnf map[string]interface{}) Opt {
	return func(opts *options) {
		opts.cnf = cnf
		opts.holderJWK = nil
		opts.holderOpts = false
	}
}

// WithHolderPublicKey is an option for SD-JWT payload.
// The Holder can prove legitimate possession of an SD-JWT by proving control over the same private key during
// the issuance and presentation. The "cnf" claim value MUST represent only a single proof-of-possession key.
// This implementation is using CNF "jwk".
func WithHolderPublicKey(jwk *jose.JSONWebKey) Opt {
	return func(opts *options) {
		opts.holderJWK = jwk
		opts.holderOpts = true
		opts.cnf = nil
	}
}

// WithSeparator overrides the combined format separator ("~").
func WithSeparator(separator string) Opt {
	return func(opts *options) {
		opts.separator = separator
	}
}

// WithoutSDAlg omits the "_sd_alg" claim. Verifiers then assume "sha-256".
func WithoutSDAlg() Opt {
	return func(opts *options) {
		opts.omitSDAlg = true
	}
}

// SelectiveDisclosureJWT is an issued SD-JWT with its disclosures.
type SelectiveDisclosureJWT struct {
	Header      jwt.Headers
	Claims      map[string]interface{}
	Signature   string
	Disclosures []*common.Disclosure

	signingInput string
	separator    string
}

// JWT returns the compact JWS: b64(header).b64(claims).signature.
func (j *SelectiveDisclosureJWT) JWT() string {
	return j.signingInput + "." + j.Signature
}

// Serialize returns the combined format for issuance. The result always ends with the separator.
func (j *SelectiveDisclosureJWT) Serialize() string {
	cf := common.CombinedFormatForIssuance{
		SDJWT:       j.JWT(),
		Disclosures: (&Packed{Disclosures: j.Disclosures}).EncodedDisclosures(),
	}

	return cf.SerializeWithSeparator(j.separator)
}

// Issuer issues SD-JWTs with a fixed configuration.
type Issuer struct {
	opts *options
}

// New creates an Issuer. The configuration is validated on every issuance.
func New(opts ...Opt) *Issuer {
	return &Issuer{opts: newOptions(opts)}
}

// Issue creates an SD-JWT and returns it in the combined format for issuance.
func Issue(ctx context.Context, header map[string]interface{}, payload interface{}, frame *Frame,
	opts ...Opt) (string, error) {
	return New(opts...).Issue(ctx, header, payload, frame)
}

// Issue creates an SD-JWT and returns it in the combined format for issuance.
func (i *Issuer) Issue(ctx context.Context, header map[string]interface{}, payload interface{},
	frame *Frame) (string, error) {
	sdJWT, err := i.IssueSDJWT(ctx, header, payload, frame)
	if err != nil {
		return "", err
	}

	return sdJWT.Serialize(), nil
}

// IssueSDJWT creates an SD-JWT.
//
// The protected header is {"typ": "sd-jwt"} merged with the signer headers and then header.
// A "typ" in header replaces the default. The merged header must carry "alg".
func (i *Issuer) IssueSDJWT(ctx context.Context, header map[string]interface{}, payload interface{},
	frame *Frame) (*SelectiveDisclosureJWT, error) {
	cnf, err := i.opts.validate()
	if err != nil {
		return nil, err
	}

	headers := i.protectedHeaders(header)

	if alg, ok := headers.Algorithm(); !ok || alg == "" {
		return nil, &ConfigurationError{Err: fmt.Errorf("%s header is not defined", jwt.HeaderAlgorithm)}
	}

	claims, err := jwt.PayloadToMap(payload)
	if err != nil {
		return nil, &PackingError{Path: rootPath, Err: fmt.Errorf("convert payload: %w", err)}
	}

	if err = i.checkReservedClaims(claims, cnf); err != nil {
		return nil, err
	}

	packed, err := Pack(claims, frame, i.opts.hasher, i.opts.salts)
	if err != nil {
		return nil, err
	}

	logger.Debugf("packed %d disclosures", len(packed.Disclosures))

	if !i.opts.omitSDAlg && i.opts.hasher.Algorithm() != "" {
		packed.Claims[common.SDAlgorithmKey] = i.opts.hasher.Algorithm()
	}

	if cnf != nil {
		packed.Claims[common.CNFKey] = cnf
	}

	signature, err := i.opts.signer.Sign(ctx, headers, packed.Claims)
	if err != nil {
		return nil, &SigningError{Err: err}
	}

	if signature == "" {
		return nil, &SigningError{Err: errors.New("signer returned an empty signature")}
	}

	signingInput, err := jwt.SigningInput(headers, packed.Claims)
	if err != nil {
		return nil, &SigningError{Err: err}
	}

	return &SelectiveDisclosureJWT{
		Header:       headers,
		Claims:       packed.Claims,
		Signature:    signature,
		Disclosures:  packed.Disclosures,
		signingInput: signingInput,
		separator:    i.opts.separator,
	}, nil
}

func (i *Issuer) checkReservedClaims(claims map[string]interface{}, cnf map[string]interface{}) error {
	if _, ok := claims[common.SDAlgorithmKey]; ok && !i.opts.omitSDAlg {
		return packingError(rootPath, "payload must not contain reserved claim '%s'", common.SDAlgorithmKey)
	}

	if _, ok := claims[common.CNFKey]; ok && cnf != nil {
		return packingError(rootPath, "payload must not contain reserved claim '%s'", common.CNFKey)
	}

	return nil
}

func (i *Issuer) protectedHeaders(header map[string]interface{}) jwt.Headers {
	headers := jwt.Headers{jwt.HeaderType: common.SDJWTType}

	if hp, ok := i.opts.signer.(HeaderProvider); ok {
		for k, v := range hp.Headers() {
			headers[k] = v
		}
	}

	for k, v := range header {
		headers[k] = v
	}

	if typ, ok := header[jwt.HeaderType]; ok && typ != common.SDJWTType {
		logger.Debugf("caller header overrides %s '%s' with '%v'", jwt.HeaderType, common.SDJWTType, typ)
	}

	return headers
}

func newOptions(opts []Opt) *options {
	o := &options{
		salts:     SaltFunc(RandomSalt),
		separator: common.CombinedFormatSeparator,
	}

	WithHashAlgorithm(defaultHash)(o)

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// validate checks the configuration and returns the "cnf" claim value, if any.
func (o *options) validate() (map[string]interface{}, error) {
	if isNil(o.signer) {
		return nil, &ConfigurationError{Err: errors.New("signer is required")}
	}

	if o.hashErr != nil {
		return nil, &ConfigurationError{Err: o.hashErr}
	}

	if isNil(o.hasher) {
		return nil, &ConfigurationError{Err: errors.New("hasher is required")}
	}

	if isNil(o.salts) {
		return nil, &ConfigurationError{Err: errors.New("salt source is required")}
	}

	if o.separator == "" {
		return nil, &ConfigurationError{Err: errors.New("separator must not be empty")}
	}

	if !o.holderOpts {
		return o.cnf, nil
	}

	if o.holderJWK == nil || !o.holderJWK.Valid() {
		return nil, &ConfigurationError{Err: errors.New("holder public key is not a valid JWK")}
	}

	jwkMap, err := jwt.PayloadToMap(o.holderJWK.Public())
	if err != nil {
		return nil, &ConfigurationError{Err: fmt.Errorf("convert holder public key: %w", err)}
	}

	return map[string]interface{}{jwkKey: jwkMap}, nil
}

// isNil reports whether v is nil or holds a nil func, pointer, map, channel or slice.
func isNil(v interface{}) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() { //nolint:exhaustive
	case reflect.Func, reflect.Ptr, reflect.Map, reflect.Chan, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
