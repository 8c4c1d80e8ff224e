/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package signer

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-framework-go/component/sdjwt/issuer"
	"github.com/hyperledger/aries-framework-go/component/sdjwt/jwt"
)

var logger = log.New("aries-framework/sdjwt/signer")

type retrySigner struct {
	signer     issuer.Signer
	newBackOff func() backoff.BackOff
}

// WithRetry wraps s so that failed signing attempts are retried according to the back-off policy returned
// by newBackOff (called once per Sign). Context cancellation stops retrying.
// Headers of s are preserved when s is an issuer.HeaderProvider.
func WithRetry(s issuer.Signer, newBackOff func() backoff.BackOff) issuer.Signer {
	rs := &retrySigner{signer: s, newBackOff: newBackOff}

	if hp, ok := s.(issuer.HeaderProvider); ok {
		return &retryHeaderSigner{retrySigner: rs, headers: hp}
	}

	return rs
}

func (s *retrySigner) Sign(ctx context.Context, headers jwt.Headers, claims map[string]interface{}) (string, error) {
	var signature string

	err := backoff.RetryNotify(
		func() error {
			var signErr error

			signature, signErr = s.signer.Sign(ctx, headers, claims)
			if signErr != nil && (errors.Is(signErr, context.Canceled) || errors.Is(signErr, context.DeadlineExceeded)) {
				return backoff.Permanent(signErr)
			}

			return signErr
		},
		backoff.WithContext(s.newBackOff(), ctx),
		func(retryErr error, t time.Duration) {
			logger.Warnf("failed to sign SD-JWT, will sleep for %s before trying again : %s", t, retryErr)
		},
	)
	if err != nil {
		return "", err
	}

	return signature, nil
}

type retryHeaderSigner struct {
	*retrySigner
	headers issuer.HeaderProvider
}

func (s *retryHeaderSigner) Headers() jwt.Headers {
	return s.headers.Headers()
}
