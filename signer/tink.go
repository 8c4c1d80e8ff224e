/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package signer

import (
	"errors"
	"fmt"

	"github.com/google/tink/go/keyset"
	tinkpb "github.com/google/tink/go/proto/tink_go_proto"
	"github.com/google/tink/go/signature"

	"github.com/hyperledger/aries-framework-go/component/sdjwt/jwt"
)

const (
	ed25519PrivateKeyTypeURL = "type.googleapis.com/google.crypto.tink.Ed25519PrivateKey"
	ed25519PublicKeyTypeURL  = "type.googleapis.com/google.crypto.tink.Ed25519PublicKey"
)

// NewTinkSigner returns an EdDSA signer backed by a Tink keyset handle. The primary key must be an
// Ed25519 key with RAW output prefix so that signatures are plain JWS signatures.
func NewTinkSigner(kh *keyset.Handle, opts ...Opt) (*JWSSigner, error) {
	if err := checkPrimaryKey(kh, ed25519PrivateKeyTypeURL); err != nil {
		return nil, err
	}

	s, err := signature.NewSigner(kh)
	if err != nil {
		return nil, fmt.Errorf("create tink signer: %w", err)
	}

	return newJWSSigner(jwt.AlgorithmEdDSA, s.Sign, opts), nil
}

// NewTinkVerifier returns an EdDSA verifier backed by the public Tink keyset handle.
func NewTinkVerifier(kh *keyset.Handle) (jwt.SignatureVerifier, error) {
	if err := checkPrimaryKey(kh, ed25519PublicKeyTypeURL); err != nil {
		return nil, err
	}

	v, err := signature.NewVerifier(kh)
	if err != nil {
		return nil, fmt.Errorf("create tink verifier: %w", err)
	}

	return jwt.SignatureVerifierFunc(func(headers jwt.Headers, signingInput, sig []byte) error {
		if alg, _ := headers.Algorithm(); alg != jwt.AlgorithmEdDSA {
			return fmt.Errorf("alg is not %s", jwt.AlgorithmEdDSA)
		}

		return v.Verify(sig, signingInput)
	}), nil
}

func checkPrimaryKey(kh *keyset.Handle, typeURL string) error {
	if kh == nil {
		return errors.New("keyset handle is required")
	}

	info := kh.KeysetInfo()

	for _, ki := range info.KeyInfo {
		if ki.KeyId != info.PrimaryKeyId {
			continue
		}

		if ki.TypeUrl != typeURL {
			return fmt.Errorf("unsupported tink key type '%s'", ki.TypeUrl)
		}

		if ki.OutputPrefixType != tinkpb.OutputPrefixType_RAW {
			return fmt.Errorf("tink key must use RAW output prefix, got %s", ki.OutputPrefixType)
		}

		return nil
	}

	return errors.New("keyset has no primary key")
}
