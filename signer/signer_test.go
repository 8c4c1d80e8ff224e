/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package signer_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-jose/go-jose/v3"
	"github.com/golang/mock/gomock"
	"github.com/google/tink/go/keyset"
	"github.com/google/tink/go/signature"
	"github.com/stretchr/testify/require"

	mockissuer "github.com/hyperledger/aries-framework-go/component/sdjwt/internal/gomocks/issuer"
	"github.com/hyperledger/aries-framework-go/component/sdjwt/issuer"
	"github.com/hyperledger/aries-framework-go/component/sdjwt/jwt"
	"github.com/hyperledger/aries-framework-go/component/sdjwt/signer"
	"github.com/hyperledger/aries-framework-go/component/sdjwt/verifier"
)

func issueWith(t *testing.T, s issuer.Signer) (string, string) {
	t.Helper()

	combined, err := issuer.Issue(context.Background(), nil,
		map[string]interface{}{"name": "Alice", "address": map[string]interface{}{"city": "Wonderland"}},
		&issuer.Frame{SD: []string{"name"}}, issuer.WithSigner(s))
	require.NoError(t, err)

	return combined, strings.Split(combined, "~")[0]
}

func TestSigners(t *testing.T) {
	r := require.New(t)

	edPub, edPriv, err := ed25519.GenerateKey(rand.Reader)
	r.NoError(err)

	ecPriv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	r.NoError(err)

	rsaPriv, err := rsa.GenerateKey(rand.Reader, 2048)
	r.NoError(err)

	edSigner, err := signer.NewEd25519Signer(edPriv, signer.WithKeyID("ed-key"))
	r.NoError(err)

	ecSigner, err := signer.NewES256Signer(ecPriv)
	r.NoError(err)

	rsaSigner, err := signer.NewRS256Signer(rsaPriv)
	r.NoError(err)

	edVerifier, err := jwt.NewEd25519Verifier(edPub)
	r.NoError(err)

	ecVerifier, err := jwt.NewES256Verifier(&ecPriv.PublicKey)
	r.NoError(err)

	rsaVerifier, err := jwt.NewRS256Verifier(&rsaPriv.PublicKey)
	r.NoError(err)

	for _, tc := range []struct {
		name     string
		signer   *signer.JWSSigner
		pubKey   interface{}
		verifier jwt.SignatureVerifier
		alg      string
	}{
		{name: "EdDSA", signer: edSigner, pubKey: edPub, verifier: edVerifier, alg: jwt.AlgorithmEdDSA},
		{name: "ES256", signer: ecSigner, pubKey: &ecPriv.PublicKey, verifier: ecVerifier, alg: jwt.AlgorithmES256},
		{name: "RS256", signer: rsaSigner, pubKey: &rsaPriv.PublicKey, verifier: rsaVerifier, alg: jwt.AlgorithmRS256},
	} {
		t.Run(tc.name, func(t *testing.T) {
			combined, compact := issueWith(t, tc.signer)

			jws, err := jose.ParseSigned(compact)
			require.NoError(t, err)

			_, err = jws.Verify(tc.pubKey)
			require.NoError(t, err)

			token, err := jwt.Parse(compact, jwt.WithSignatureVerifier(tc.verifier))
			require.NoError(t, err)
			require.Equal(t, tc.alg, token.LookupStringHeader(jwt.HeaderAlgorithm))
			require.Equal(t, tc.alg, tc.signer.Algorithm())

			claims, err := verifier.Parse(combined, verifier.WithSignatureVerifier(tc.verifier))
			require.NoError(t, err)
			require.Equal(t, "Alice", claims["name"])
		})
	}

	t.Run("kid header", func(t *testing.T) {
		_, compact := issueWith(t, edSigner)

		token, err := jwt.Parse(compact)
		require.NoError(t, err)
		require.Equal(t, "ed-key", token.LookupStringHeader(jwt.HeaderKeyID))
	})

	t.Run("tampered signature", func(t *testing.T) {
		_, compact := issueWith(t, ecSigner)

		_, err := jwt.Parse(compact, jwt.WithSignatureVerifier(edVerifier))
		require.Error(t, err)
		require.Contains(t, err.Error(), "alg is not EdDSA")

		otherPriv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		require.NoError(t, err)

		otherVerifier, err := jwt.NewES256Verifier(&otherPriv.PublicKey)
		require.NoError(t, err)

		_, err = jwt.Parse(compact, jwt.WithSignatureVerifier(otherVerifier))
		require.Error(t, err)
		require.Contains(t, err.Error(), "signature doesn't match")
	})

	t.Run("alg header mismatch", func(t *testing.T) {
		_, err := issuer.Issue(context.Background(), map[string]interface{}{jwt.HeaderAlgorithm: "RS256"},
			map[string]interface{}{"name": "Alice"}, nil, issuer.WithSigner(edSigner))
		require.Error(t, err)
		require.Contains(t, err.Error(), "does not match signer algorithm 'EdDSA'")

		var signingErr *issuer.SigningError
		require.True(t, errors.As(err, &signingErr))
	})

	t.Run("missing alg header", func(t *testing.T) {
		_, err := edSigner.Sign(context.Background(), jwt.Headers{}, map[string]interface{}{})
		require.EqualError(t, err, "alg header is not defined")
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := edSigner.Sign(ctx, edSigner.Headers(), map[string]interface{}{})
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("invalid keys", func(t *testing.T) {
		_, err := signer.NewEd25519Signer(edPriv[:10])
		require.Error(t, err)

		p384, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
		require.NoError(t, err)

		_, err = signer.NewES256Signer(p384)
		require.Error(t, err)

		_, err = signer.NewRS256Signer(nil)
		require.Error(t, err)
	})
}

func TestJWKSigner(t *testing.T) {
	r := require.New(t)

	pubKey, privKey, err := ed25519.GenerateKey(rand.Reader)
	r.NoError(err)

	s, err := signer.NewJWKSigner(&jose.JSONWebKey{Key: privKey, KeyID: "did:example:issuer#key-1"})
	r.NoError(err)
	r.Equal(jwt.Headers{jwt.HeaderAlgorithm: jwt.AlgorithmEdDSA, jwt.HeaderKeyID: "did:example:issuer#key-1"},
		s.Headers())

	_, compact := issueWith(t, s)

	v, err := jwt.NewJWKVerifier(&jose.JSONWebKey{Key: pubKey})
	r.NoError(err)

	_, err = jwt.Parse(compact, jwt.WithSignatureVerifier(v))
	r.NoError(err)

	_, err = signer.NewJWKSigner(&jose.JSONWebKey{Key: pubKey})
	r.Error(err)

	_, err = signer.NewJWKSigner(nil)
	r.Error(err)
}

func TestTinkSigner(t *testing.T) {
	r := require.New(t)

	kh, err := keyset.NewHandle(signature.ED25519KeyWithoutPrefixTemplate())
	r.NoError(err)

	s, err := signer.NewTinkSigner(kh, signer.WithKeyID("tink-key"))
	r.NoError(err)

	combined, compact := issueWith(t, s)

	pubKH, err := kh.Public()
	r.NoError(err)

	v, err := signer.NewTinkVerifier(pubKH)
	r.NoError(err)

	_, err = jwt.Parse(compact, jwt.WithSignatureVerifier(v))
	r.NoError(err)

	claims, err := verifier.Parse(combined, verifier.WithSignatureVerifier(v))
	r.NoError(err)
	r.Equal("Alice", claims["name"])

	t.Run("unsupported keys", func(t *testing.T) {
		_, err = signer.NewTinkSigner(nil)
		require.Error(t, err)

		ecKH, err := keyset.NewHandle(signature.ECDSAP256KeyTemplate())
		require.NoError(t, err)

		_, err = signer.NewTinkSigner(ecKH)
		require.Error(t, err)
		require.Contains(t, err.Error(), "unsupported tink key type")

		prefixedKH, err := keyset.NewHandle(signature.ED25519KeyTemplate())
		require.NoError(t, err)

		_, err = signer.NewTinkSigner(prefixedKH)
		require.Error(t, err)
		require.Contains(t, err.Error(), "RAW output prefix")

		_, err = signer.NewTinkVerifier(kh)
		require.Error(t, err)
	})
}

func TestWithRetry(t *testing.T) {
	r := require.New(t)

	edDSAHeader := map[string]interface{}{jwt.HeaderAlgorithm: jwt.AlgorithmEdDSA}

	newBackOff := func() backoff.BackOff {
		return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 3)
	}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		flaky := mockissuer.NewMockSigner(ctrl)
		gomock.InOrder(
			flaky.EXPECT().Sign(gomock.Any(), gomock.Any(), gomock.Any()).Return("", errors.New("busy")).Times(2),
			flaky.EXPECT().Sign(gomock.Any(), gomock.Any(), gomock.Any()).Return("c2ln", nil),
		)

		combined, err := issuer.Issue(context.Background(), edDSAHeader, map[string]interface{}{"name": "Alice"}, nil,
			issuer.WithSigner(signer.WithRetry(flaky, newBackOff)))
		r.NoError(err)
		r.True(strings.HasSuffix(combined, ".c2ln~"))
	})

	t.Run("gives up", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		failing := mockissuer.NewMockSigner(ctrl)
		failing.EXPECT().Sign(gomock.Any(), gomock.Any(), gomock.Any()).Return("", errors.New("down")).Times(4)

		_, err := issuer.Issue(context.Background(), edDSAHeader, map[string]interface{}{"name": "Alice"}, nil,
			issuer.WithSigner(signer.WithRetry(failing, newBackOff)))
		r.Error(err)
		r.Contains(err.Error(), "down")
	})

	t.Run("does not retry cancellation", func(t *testing.T) {
		_, privKey, err := ed25519.GenerateKey(rand.Reader)
		r.NoError(err)

		s, err := signer.NewEd25519Signer(privKey)
		r.NoError(err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		retrying := signer.WithRetry(s, newBackOff)

		hp, ok := retrying.(issuer.HeaderProvider)
		r.True(ok)
		r.Equal(s.Headers(), hp.Headers())

		_, err = retrying.Sign(ctx, s.Headers(), map[string]interface{}{})
		r.ErrorIs(err, context.Canceled)
	})
}
