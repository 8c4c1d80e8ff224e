/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package sdjwt implements Selective Disclosure for JWTs (SD-JWT).
//
// An SD-JWT is a signed JWT in which selected claims are replaced by salted digests. The plaintext of each
// such claim travels next to the JWT as a Disclosure, and the holder decides which Disclosures to reveal.
//
// # Packages
//
// issuer: packs claims according to a disclosure frame and signs the result.
//
// holder: parses an issued SD-JWT and assembles presentations from the selected Disclosures.
//
// verifier: checks the signature and the Disclosures of a presentation and returns the disclosed claims.
//
// signer: JWS signers (EdDSA, ES256, RS256, Tink keysets) and a retrying signer wrapper.
//
// common and jwt: the wire format shared by all roles.
//
// Basic workflow
//
//  1. The issuer calls issuer.Issue with the claims, a Frame and a Signer.
//  2. The holder calls holder.Parse and keeps the combined format for issuance.
//  3. The holder calls holder.CreatePresentation with the Disclosures it wants to reveal.
//  4. The verifier calls verifier.Parse on the presentation.
package sdjwt
