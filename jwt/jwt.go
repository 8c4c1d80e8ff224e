/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jwt

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// IANA registered JOSE headers (https://tools.ietf.org/html/rfc7515#section-4.1)
const (
	// HeaderAlgorithm identifies the cryptographic algorithm used to secure the JWS.
	HeaderAlgorithm = "alg"

	// HeaderKeyID is a hint indicating which key was used to secure the JWS.
	HeaderKeyID = "kid"

	// HeaderType is used by JWS applications to declare the media type of this complete JWS.
	HeaderType = "typ"

	// HeaderContentType is used by JWS applications to declare the media type of the secured content (the payload).
	HeaderContentType = "cty"
)

const (
	// AlgorithmNone used to indicate unsecured JWT.
	AlgorithmNone = "none"

	jwsPartsCount    = 3
	jwsHeaderPart    = 0
	jwsPayloadPart   = 1
	jwsSignaturePart = 2
)

// Headers represents JOSE protected headers.
type Headers map[string]interface{}

// Algorithm gets Algorithm from JOSE headers.
func (h Headers) Algorithm() (string, bool) {
	return h.stringValue(HeaderAlgorithm)
}

// KeyID gets Key ID from JOSE headers.
func (h Headers) KeyID() (string, bool) {
	return h.stringValue(HeaderKeyID)
}

// Type gets JWS type from JOSE headers.
func (h Headers) Type() (string, bool) {
	return h.stringValue(HeaderType)
}

func (h Headers) stringValue(key string) (string, bool) {
	raw, ok := h[key]
	if !ok {
		return "", false
	}

	str, ok := raw.(string)

	return str, ok
}

// SignatureVerifier makes verification of JSON Web Signature.
type SignatureVerifier interface {
	// Verify verifies the raw signature over the JWS signing input.
	Verify(headers Headers, signingInput, signature []byte) error
}

// SignatureVerifierFunc is a function wrapper for SignatureVerifier.
type SignatureVerifierFunc func(headers Headers, signingInput, signature []byte) error

// Verify calls f.
func (f SignatureVerifierFunc) Verify(headers Headers, signingInput, signature []byte) error {
	return f(headers, signingInput, signature)
}

// NoopSignatureVerifier accepts any signature. To be used when the token was produced by a trusted party
// (e.g. the holder parsing its own credential).
func NoopSignatureVerifier() SignatureVerifier {
	return SignatureVerifierFunc(func(Headers, []byte, []byte) error {
		return nil
	})
}

// EncodeSegment marshals v to JSON and returns its base64url encoding without padding.
func EncodeSegment(v interface{}) (string, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(v); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// SigningInput returns "b64(header).b64(claims)", the exact bytes a JWS signature is computed over.
func SigningInput(headers Headers, claims map[string]interface{}) (string, error) {
	encodedHeaders, err := EncodeSegment(headers)
	if err != nil {
		return "", fmt.Errorf("marshal JWT headers: %w", err)
	}

	encodedClaims, err := EncodeSegment(claims)
	if err != nil {
		return "", fmt.Errorf("marshal JWT claims: %w", err)
	}

	return encodedHeaders + "." + encodedClaims, nil
}

// JSONWebToken defines JSON Web Token (https://tools.ietf.org/html/rfc7519)
type JSONWebToken struct {
	Headers Headers

	Payload map[string]interface{}

	Signature []byte

	signingInput string
}

type parseOpts struct {
	sigVerifier SignatureVerifier
}

// ParseOpt is the JWT Parser option.
type ParseOpt func(opts *parseOpts)

// WithSignatureVerifier option is for definition of JWT signature verifier.
func WithSignatureVerifier(signatureVerifier SignatureVerifier) ParseOpt {
	return func(opts *parseOpts) {
		opts.sigVerifier = signatureVerifier
	}
}

// Parse parses input JWT in compact JWS form into JSON Web Token.
// Without WithSignatureVerifier the signature is decoded but not checked.
func Parse(jwtSerialized string, opts ...ParseOpt) (*JSONWebToken, error) {
	pOpts := &parseOpts{sigVerifier: NoopSignatureVerifier()}

	for _, opt := range opts {
		opt(pOpts)
	}

	parts := strings.Split(jwtSerialized, ".")
	if len(parts) != jwsPartsCount {
		return nil, errors.New("JWT of compacted JWS form is supported only")
	}

	headers, err := decodeSegment(parts[jwsHeaderPart])
	if err != nil {
		return nil, fmt.Errorf("unmarshal JWT headers: %w", err)
	}

	if _, ok := Headers(headers).Algorithm(); !ok {
		return nil, errors.New("alg header is not defined")
	}

	payload, err := decodeSegment(parts[jwsPayloadPart])
	if err != nil {
		return nil, fmt.Errorf("read JWT claims from JWS payload: %w", err)
	}

	signature, err := base64.RawURLEncoding.DecodeString(parts[jwsSignaturePart])
	if err != nil {
		return nil, fmt.Errorf("decode JWS signature: %w", err)
	}

	token := &JSONWebToken{
		Headers:      headers,
		Payload:      payload,
		Signature:    signature,
		signingInput: parts[jwsHeaderPart] + "." + parts[jwsPayloadPart],
	}

	if err := pOpts.sigVerifier.Verify(token.Headers, []byte(token.signingInput), signature); err != nil {
		return nil, fmt.Errorf("verify JWT signature: %w", err)
	}

	return token, nil
}

// SigningInput returns the header and payload segments exactly as they were received.
func (j *JSONWebToken) SigningInput() string {
	return j.signingInput
}

// DecodeClaims fills input c with claims of a token.
func (j *JSONWebToken) DecodeClaims(c interface{}) error {
	pBytes, err := json.Marshal(j.Payload)
	if err != nil {
		return err
	}

	return json.Unmarshal(pBytes, c)
}

// LookupStringHeader makes look up of particular header with string value.
func (j *JSONWebToken) LookupStringHeader(name string) string {
	if headerValue, ok := j.Headers[name]; ok {
		if headerStrValue, ok := headerValue.(string); ok {
			return headerStrValue
		}
	}

	return ""
}

func decodeSegment(segment string) (map[string]interface{}, error) {
	b, err := base64.RawURLEncoding.DecodeString(segment)
	if err != nil {
		return nil, err
	}

	return PayloadToMap(b)
}

// PayloadToMap transforms interface to map. Numbers are kept as json.Number.
func PayloadToMap(i interface{}) (map[string]interface{}, error) {
	var (
		b   []byte
		err error
	)

	switch cv := i.(type) {
	case map[string]interface{}:
		return cv, nil
	case Headers:
		return cv, nil
	case []byte:
		b = cv
	case string:
		b = []byte(cv)
	default:
		b, err = json.Marshal(i)
		if err != nil {
			return nil, fmt.Errorf("marshal interface[%T]: %w", i, err)
		}
	}

	var m map[string]interface{}

	d := json.NewDecoder(bytes.NewReader(b))
	d.UseNumber()

	if err := d.Decode(&m); err != nil {
		return nil, fmt.Errorf("convert to map: %w", err)
	}

	if m == nil {
		return nil, errors.New("convert to map: not a JSON object")
	}

	return m, nil
}
