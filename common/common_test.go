/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package common

import (
	"crypto"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testSDJWT = "eyJhbGciOiJFZERTQSJ9.eyJfc2QiOltdfQ.c2ln"

	cityDisclosure = "WyJzYWx0MSIsImNpdHkiLCJXb25kZXJsYW5kIl0"
	cityDigest     = "LoMoPNjkLzB0Z34tGrnGws5_nC-yFNAnZEeAaAXJVFI"
	nameDisclosure = "WyJzYWx0MiIsIm5hbWUiLCJBbGljZSJd"
	nameDigest     = "ygUz173mvnk5j_Z5nK2Km35Qy7C7190BeJ1WGQLk2Gw"
)

func TestCombinedFormatForIssuance(t *testing.T) {
	t.Run("success - disclosures", func(t *testing.T) {
		cfi := &CombinedFormatForIssuance{SDJWT: testSDJWT, Disclosures: []string{cityDisclosure, nameDisclosure}}

		combined := cfi.Serialize()
		require.Equal(t, testSDJWT+"~"+cityDisclosure+"~"+nameDisclosure+"~", combined)

		parsed := ParseCombinedFormatForIssuance(combined)
		require.Equal(t, cfi, parsed)
	})

	t.Run("success - SD-JWT only", func(t *testing.T) {
		cfi := &CombinedFormatForIssuance{SDJWT: testSDJWT}
		require.Equal(t, testSDJWT+"~", cfi.Serialize())

		parsed := ParseCombinedFormatForIssuance(testSDJWT + "~")
		require.Equal(t, testSDJWT, parsed.SDJWT)
		require.Empty(t, parsed.Disclosures)

		parsed = ParseCombinedFormatForIssuance(testSDJWT)
		require.Equal(t, testSDJWT, parsed.SDJWT)
		require.Empty(t, parsed.Disclosures)
	})

	t.Run("success - custom separator", func(t *testing.T) {
		cfi := &CombinedFormatForIssuance{SDJWT: testSDJWT, Disclosures: []string{cityDisclosure}}
		require.Equal(t, testSDJWT+"|"+cityDisclosure+"|", cfi.SerializeWithSeparator("|"))
	})
}

func TestCombinedFormatForPresentation(t *testing.T) {
	const testHolderBinding = "holder.binding.jwt"

	t.Run("success - disclosures without holder binding", func(t *testing.T) {
		combined := testSDJWT + "~" + cityDisclosure + "~"

		cfp := ParseCombinedFormatForPresentation(combined)
		require.Equal(t, testSDJWT, cfp.SDJWT)
		require.Equal(t, []string{cityDisclosure}, cfp.Disclosures)
		require.Empty(t, cfp.HolderBinding)

		require.Equal(t, combined, cfp.Serialize())
	})

	t.Run("success - holder binding", func(t *testing.T) {
		combined := testSDJWT + "~" + cityDisclosure + "~" + nameDisclosure + "~" + testHolderBinding

		cfp := ParseCombinedFormatForPresentation(combined)
		require.Equal(t, []string{cityDisclosure, nameDisclosure}, cfp.Disclosures)
		require.Equal(t, testHolderBinding, cfp.HolderBinding)

		require.Equal(t, combined, cfp.Serialize())
	})

	t.Run("success - SD-JWT only", func(t *testing.T) {
		cfp := ParseCombinedFormatForPresentation(testSDJWT)
		require.Equal(t, testSDJWT, cfp.SDJWT)
		require.Empty(t, cfp.Disclosures)
		require.Empty(t, cfp.HolderBinding)

		require.Equal(t, testSDJWT+"~", cfp.Serialize())
	})
}

func TestGetSDAlg(t *testing.T) {
	alg, err := GetSDAlg(map[string]interface{}{SDAlgorithmKey: "sha-256"})
	require.NoError(t, err)
	require.Equal(t, "sha-256", alg)

	_, err = GetSDAlg(map[string]interface{}{})
	require.EqualError(t, err, "_sd_alg must be present in SD-JWT")

	_, err = GetSDAlg(map[string]interface{}{SDAlgorithmKey: 256})
	require.EqualError(t, err, "_sd_alg must be a string")
}

func TestKeyExistsInMap(t *testing.T) {
	claims := map[string]interface{}{
		"address": map[string]interface{}{"city": "Wonderland"},
		"degrees": []interface{}{map[string]interface{}{"type": "BachelorDegree"}},
	}

	require.True(t, KeyExistsInMap("address", claims))
	require.True(t, KeyExistsInMap("city", claims))
	require.True(t, KeyExistsInMap("type", claims))
	require.False(t, KeyExistsInMap("name", claims))
}

func TestGetHash(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		digest, err := GetHash(crypto.SHA256, "WyI2cU1RdlJMNWhhaiIsICJmYW1pbHlfbmFtZSIsICJNw7ZiaXVzIl0")
		require.NoError(t, err)
		require.Equal(t, "uutlBuYeMDyjLLTpf6Jxi7yNkEF35jdyWMn9U7b_RYY", digest)

		digest, err = GetHash(crypto.SHA256, cityDisclosure)
		require.NoError(t, err)
		require.Equal(t, cityDigest, digest)
	})

	t.Run("error - hash not available", func(t *testing.T) {
		digest, err := GetHash(0, "test")
		require.Error(t, err)
		require.Empty(t, digest)
		require.Contains(t, err.Error(), "hash function not available for: 0")
	})
}

func TestGetCryptoHash(t *testing.T) {
	for alg, expected := range map[string]crypto.Hash{
		"sha-256": crypto.SHA256,
		"SHA-384": crypto.SHA384,
		"sha-512": crypto.SHA512,
	} {
		hash, err := GetCryptoHash(alg)
		require.NoError(t, err)
		require.Equal(t, expected, hash)
	}

	_, err := GetCryptoHash("")
	require.EqualError(t, err, "empty _sd_alg")

	_, err = GetCryptoHash("sha-1")
	require.EqualError(t, err, "_sd_alg 'sha-1' not supported")
}

func TestHashers(t *testing.T) {
	t.Run("crypto hasher", func(t *testing.T) {
		hasher, err := NewHasher(crypto.SHA512)
		require.NoError(t, err)
		require.Equal(t, "sha-512", hasher.Algorithm())

		digest, err := hasher.Hash(cityDisclosure)
		require.NoError(t, err)
		require.Len(t, digest, 86)

		_, err = NewHasher(crypto.SHA1)
		require.Error(t, err)
	})

	t.Run("hasher for algorithm", func(t *testing.T) {
		hasher, err := HasherForAlgorithm("sha-256")
		require.NoError(t, err)

		digest, err := hasher.Hash(nameDisclosure)
		require.NoError(t, err)
		require.Equal(t, nameDigest, digest)

		_, err = HasherForAlgorithm("md5")
		require.Error(t, err)
	})

	t.Run("hasher func", func(t *testing.T) {
		hasher := NewHasherFunc("custom", func(disclosure string) (string, error) {
			return "digest-of-" + disclosure, nil
		})
		require.Equal(t, "custom", hasher.Algorithm())

		digest, err := hasher.Hash("d")
		require.NoError(t, err)
		require.Equal(t, "digest-of-d", digest)

		require.Nil(t, NewHasherFunc("custom", nil))
	})

	t.Run("hasher from claims", func(t *testing.T) {
		hasher, err := GetHasherFromClaims(map[string]interface{}{SDAlgorithmKey: "sha-384"})
		require.NoError(t, err)
		require.Equal(t, "sha-384", hasher.Algorithm())

		_, err = GetHasherFromClaims(map[string]interface{}{})
		require.Error(t, err)

		_, err = GetHasherFromClaims(map[string]interface{}{SDAlgorithmKey: "sha3-256"})
		require.Error(t, err)

		hasher, err = GetHasherFromClaimsOrDefault(map[string]interface{}{})
		require.NoError(t, err)
		require.Equal(t, "sha-256", hasher.Algorithm())

		_, err = GetHasherFromClaimsOrDefault(map[string]interface{}{SDAlgorithmKey: "sha3-256"})
		require.Error(t, err)
	})
}
