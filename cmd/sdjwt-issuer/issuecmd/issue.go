/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package issuecmd implements the "issue" command of the SD-JWT issuer CLI.
package issuecmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-jose/go-jose/v3"
	josejwt "github.com/go-jose/go-jose/v3/jwt"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-framework-go/component/sdjwt/common"
	"github.com/hyperledger/aries-framework-go/component/sdjwt/issuer"
	"github.com/hyperledger/aries-framework-go/component/sdjwt/jwt"
	"github.com/hyperledger/aries-framework-go/component/sdjwt/signer"
)

const (
	claimsFileFlagName  = "claims"
	claimsFileEnvKey    = "SDJWT_CLAIMS_FILE"
	claimsFileFlagUsage = "Path to the JSON file with the claims to issue." +
		" Alternatively, this can be set with the following environment variable: " + claimsFileEnvKey

	frameFileFlagName  = "frame"
	frameFileEnvKey    = "SDJWT_FRAME_FILE"
	frameFileFlagUsage = "Path to the JSON disclosure frame, e.g. {\"_sd\": [\"name\"], \"address\": {\"_sd\": [\"city\"]}}." +
		" Alternatively, this can be set with the following environment variable: " + frameFileEnvKey

	discloseFlagName  = "disclose"
	discloseEnvKey    = "SDJWT_DISCLOSE"
	discloseFlagUsage = "Claim paths to make selectively disclosable, e.g. name,address.city,nationalities[1]." +
		" This flag can be repeated. Cannot be combined with --" + frameFileFlagName + "." +
		" Alternatively, this can be set with the following environment variable (in CSV format): " + discloseEnvKey

	headerFileFlagName  = "header"
	headerFileEnvKey    = "SDJWT_HEADER_FILE"
	headerFileFlagUsage = "Path to a JSON file with additional protected headers (optional)." +
		" Alternatively, this can be set with the following environment variable: " + headerFileEnvKey

	keyFileFlagName  = "key"
	keyFileEnvKey    = "SDJWT_KEY_FILE"
	keyFileFlagUsage = "Path to the issuer private key in JWK format (Ed25519, P-256 or RSA)." +
		" Alternatively, this can be set with the following environment variable: " + keyFileEnvKey

	holderKeyFileFlagName  = "holder-key"
	holderKeyFileEnvKey    = "SDJWT_HOLDER_KEY_FILE"
	holderKeyFileFlagUsage = "Path to the holder public key in JWK format, placed in the cnf claim (optional)." +
		" Alternatively, this can be set with the following environment variable: " + holderKeyFileEnvKey

	hashAlgFlagName  = "hash-alg"
	hashAlgEnvKey    = "SDJWT_HASH_ALG"
	hashAlgDefault   = "sha-256"
	hashAlgFlagUsage = "Disclosure digest algorithm. Possible values [sha-256] [sha-384] [sha-512]." +
		" Defaults to " + hashAlgDefault + " if not set." +
		" Alternatively, this can be set with the following environment variable: " + hashAlgEnvKey

	issuerFlagName  = "iss"
	issuerEnvKey    = "SDJWT_ISSUER"
	issuerFlagUsage = "Value of the iss claim (optional)." +
		" Alternatively, this can be set with the following environment variable: " + issuerEnvKey

	jtiFlagName  = "jti"
	jtiEnvKey    = "SDJWT_JTI"
	jtiFlagUsage = "Value of the jti claim (optional)." +
		" Alternatively, this can be set with the following environment variable: " + jtiEnvKey

	generateJTIFlagName  = "generate-jti"
	generateJTIFlagUsage = "Set the jti claim to a random UUID when neither --" + jtiFlagName + " nor the claims provide one."

	expiryFlagName  = "expiry"
	expiryFlagUsage = "Lifetime of the SD-JWT, e.g. 24h. Sets the exp claim when greater than zero."

	retriesFlagName  = "retries"
	retriesEnvKey    = "SDJWT_RETRIES"
	retriesFlagUsage = "Number of times a failed signing attempt is retried with exponential back-off. Defaults to 0." +
		" Alternatively, this can be set with the following environment variable: " + retriesEnvKey

	logLevelFlagName  = "log-level"
	logLevelEnvKey    = "SDJWT_LOG_LEVEL"
	logLevelFlagUsage = "Log level." +
		" Possible values [INFO] [DEBUG] [ERROR] [WARNING] [CRITICAL] . Defaults to INFO if not set." +
		" Alternatively, this can be set with the following environment variable: " + logLevelEnvKey

	issuerClaim   = "iss"
	jtiClaim      = "jti"
	issuedAtClaim = "iat"
	expiryClaim   = "exp"
)

var logger = log.New("aries-framework/sdjwt-issuer")

type issueParameters struct {
	claims      map[string]interface{}
	frame       *issuer.Frame
	header      map[string]interface{}
	signer      issuer.Signer
	holderKey   *jose.JSONWebKey
	hashAlg     string
	iss         string
	jti         string
	generateJTI bool
	expiry      time.Duration
}

// Cmd returns the issue command.
func Cmd() (*cobra.Command, error) {
	issueCmd := createIssueCMD()

	createFlags(issueCmd)

	return issueCmd, nil
}

func createIssueCMD() *cobra.Command {
	return &cobra.Command{
		Use:   "issue",
		Short: "Issue an SD-JWT",
		Long:  `Issue a selective disclosure JWT from a JSON claims file and print it in combined format`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logLevel, err := getUserSetVar(cmd, logLevelFlagName, logLevelEnvKey, true)
			if err != nil {
				return err
			}

			if err = setLogLevel(logLevel); err != nil {
				return err
			}

			parameters, err := getIssueParameters(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			combined, err := issue(ctx, parameters)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), combined)

			return nil
		},
	}
}

func createFlags(issueCmd *cobra.Command) {
	issueCmd.Flags().StringP(claimsFileFlagName, "c", "", claimsFileFlagUsage)
	issueCmd.Flags().StringP(frameFileFlagName, "f", "", frameFileFlagUsage)
	issueCmd.Flags().StringSliceP(discloseFlagName, "d", []string{}, discloseFlagUsage)
	issueCmd.Flags().StringP(headerFileFlagName, "", "", headerFileFlagUsage)
	issueCmd.Flags().StringP(keyFileFlagName, "k", "", keyFileFlagUsage)
	issueCmd.Flags().StringP(holderKeyFileFlagName, "", "", holderKeyFileFlagUsage)
	issueCmd.Flags().StringP(hashAlgFlagName, "", "", hashAlgFlagUsage)
	issueCmd.Flags().StringP(issuerFlagName, "", "", issuerFlagUsage)
	issueCmd.Flags().StringP(jtiFlagName, "", "", jtiFlagUsage)
	issueCmd.Flags().Bool(generateJTIFlagName, false, generateJTIFlagUsage)
	issueCmd.Flags().Duration(expiryFlagName, 0, expiryFlagUsage)
	issueCmd.Flags().StringP(retriesFlagName, "", "", retriesFlagUsage)
	issueCmd.Flags().StringP(logLevelFlagName, "", "", logLevelFlagUsage)
}

func getIssueParameters(cmd *cobra.Command) (*issueParameters, error) { //nolint:funlen,gocyclo
	claimsFile, err := getUserSetVar(cmd, claimsFileFlagName, claimsFileEnvKey, false)
	if err != nil {
		return nil, err
	}

	claimsBytes, err := os.ReadFile(claimsFile) //nolint:gosec
	if err != nil {
		return nil, errors.Wrapf(err, "read file %s", claimsFile)
	}

	// numbers are kept as json.Number; a disclosed number must fit a float64 exactly or packing fails
	claims, err := jwt.PayloadToMap(claimsBytes)
	if err != nil {
		return nil, errors.Wrapf(err, "parse JSON file %s", claimsFile)
	}

	frame, err := getFrame(cmd)
	if err != nil {
		return nil, err
	}

	header := map[string]interface{}{}

	headerFile, err := getUserSetVar(cmd, headerFileFlagName, headerFileEnvKey, true)
	if err != nil {
		return nil, err
	}

	if headerFile != "" {
		if err = readJSONFile(headerFile, &header); err != nil {
			return nil, err
		}
	}

	keyFile, err := getUserSetVar(cmd, keyFileFlagName, keyFileEnvKey, false)
	if err != nil {
		return nil, err
	}

	s, err := getSigner(cmd, keyFile)
	if err != nil {
		return nil, err
	}

	holderKey, err := getHolderKey(cmd)
	if err != nil {
		return nil, err
	}

	hashAlg, err := getUserSetVar(cmd, hashAlgFlagName, hashAlgEnvKey, true)
	if err != nil {
		return nil, err
	}

	if hashAlg == "" {
		hashAlg = hashAlgDefault
	}

	iss, err := getUserSetVar(cmd, issuerFlagName, issuerEnvKey, true)
	if err != nil {
		return nil, err
	}

	jti, err := getUserSetVar(cmd, jtiFlagName, jtiEnvKey, true)
	if err != nil {
		return nil, err
	}

	generateJTI, err := cmd.Flags().GetBool(generateJTIFlagName)
	if err != nil {
		return nil, errors.Wrapf(err, "%s flag not found", generateJTIFlagName)
	}

	expiry, err := cmd.Flags().GetDuration(expiryFlagName)
	if err != nil {
		return nil, errors.Wrapf(err, "%s flag not found", expiryFlagName)
	}

	return &issueParameters{
		claims:      claims,
		frame:       frame,
		header:      header,
		signer:      s,
		holderKey:   holderKey,
		hashAlg:     hashAlg,
		iss:         iss,
		jti:         jti,
		generateJTI: generateJTI,
		expiry:      expiry,
	}, nil
}

func getFrame(cmd *cobra.Command) (*issuer.Frame, error) {
	frameFile, err := getUserSetVar(cmd, frameFileFlagName, frameFileEnvKey, true)
	if err != nil {
		return nil, err
	}

	paths, err := getUserSetVars(cmd, discloseFlagName, discloseEnvKey, true)
	if err != nil {
		return nil, err
	}

	if frameFile != "" && len(paths) > 0 {
		return nil, fmt.Errorf("only one of %s and %s can be set", frameFileFlagName, discloseFlagName)
	}

	if frameFile != "" {
		frame := &issuer.Frame{}
		if err = readJSONFile(frameFile, frame); err != nil {
			return nil, err
		}

		return frame, nil
	}

	frame, err := issuer.NewFrameFromPaths(paths)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid %s value", discloseFlagName)
	}

	return frame, nil
}

func getSigner(cmd *cobra.Command, keyFile string) (issuer.Signer, error) {
	key := &jose.JSONWebKey{}
	if err := readJSONFile(keyFile, key); err != nil {
		return nil, err
	}

	jwkSigner, err := signer.NewJWKSigner(key)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid issuer key %s", keyFile)
	}

	retriesValue, err := getUserSetVar(cmd, retriesFlagName, retriesEnvKey, true)
	if err != nil {
		return nil, err
	}

	if retriesValue == "" {
		return jwkSigner, nil
	}

	retries, err := strconv.ParseUint(retriesValue, 10, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid %s value '%s'", retriesFlagName, retriesValue)
	}

	if retries == 0 {
		return jwkSigner, nil
	}

	return signer.WithRetry(jwkSigner, func() backoff.BackOff {
		return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), retries)
	}), nil
}

func getHolderKey(cmd *cobra.Command) (*jose.JSONWebKey, error) {
	holderKeyFile, err := getUserSetVar(cmd, holderKeyFileFlagName, holderKeyFileEnvKey, true)
	if err != nil {
		return nil, err
	}

	if holderKeyFile == "" {
		return nil, nil
	}

	key := &jose.JSONWebKey{}
	if err = readJSONFile(holderKeyFile, key); err != nil {
		return nil, err
	}

	public := key.Public()

	return &public, nil
}

func issue(ctx context.Context, parameters *issueParameters) (string, error) {
	hash, err := common.GetCryptoHash(parameters.hashAlg)
	if err != nil {
		return "", errors.Wrapf(err, "invalid %s value", hashAlgFlagName)
	}

	claims := parameters.claims
	now := time.Now()

	setClaim(claims, issuerClaim, parameters.iss)
	setClaim(claims, jtiClaim, parameters.jti)

	if _, ok := claims[jtiClaim]; !ok && parameters.generateJTI {
		claims[jtiClaim] = uuid.New().String()
	}

	if _, ok := claims[issuedAtClaim]; !ok {
		claims[issuedAtClaim] = josejwt.NewNumericDate(now)
	}

	if parameters.expiry > 0 {
		claims[expiryClaim] = josejwt.NewNumericDate(now.Add(parameters.expiry))
	}

	opts := []issuer.Opt{
		issuer.WithSigner(parameters.signer),
		issuer.WithHashAlgorithm(hash),
	}

	if parameters.holderKey != nil {
		opts = append(opts, issuer.WithHolderPublicKey(parameters.holderKey))
	}

	combined, err := issuer.Issue(ctx, parameters.header, claims, parameters.frame, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to issue SD-JWT: %w", err)
	}

	logger.Infof("issued SD-JWT with %d disclosures", strings.Count(combined, common.CombinedFormatSeparator)-1)

	return combined, nil
}

func setClaim(claims map[string]interface{}, name, value string) {
	if value != "" {
		claims[name] = value
	}
}

func readJSONFile(path string, v interface{}) error {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return errors.Wrapf(err, "read file %s", path)
	}

	if err = json.Unmarshal(data, v); err != nil {
		return errors.Wrapf(err, "parse JSON file %s", path)
	}

	return nil
}

func setLogLevel(logLevel string) error {
	if logLevel != "" {
		level, err := log.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("failed to parse log level '%s' : %w", logLevel, err)
		}

		log.SetLevel("", level)

		logger.Infof("logger level set to %s", logLevel)
	}

	return nil
}

func getUserSetVar(cmd *cobra.Command, flagName, envKey string, isOptional bool) (string, error) {
	if cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetString(flagName)
		if err != nil {
			return "", fmt.Errorf(flagName+" flag not found: %s", err)
		}

		return value, nil
	}

	value, isSet := os.LookupEnv(envKey)

	if isOptional || isSet {
		return value, nil
	}

	return "", errors.New("Neither " + flagName + " (command line flag) nor " + envKey +
		" (environment variable) have been set.")
}

func getUserSetVars(cmd *cobra.Command, flagName, envKey string, isOptional bool) ([]string, error) {
	if cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetStringSlice(flagName)
		if err != nil {
			return nil, fmt.Errorf(flagName+" flag not found: %s", err)
		}

		return value, nil
	}

	value, isSet := os.LookupEnv(envKey)

	var values []string

	if isSet {
		values = strings.Split(value, ",")
	}

	if isOptional || isSet {
		return values, nil
	}

	return nil, fmt.Errorf(" %s not set. "+
		"It must be set via either command line or environment variable", flagName)
}
