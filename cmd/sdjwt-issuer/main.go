/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package sdjwt-issuer is a command line SD-JWT issuer.
package main

import (
	"github.com/spf13/cobra"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-framework-go/component/sdjwt/cmd/sdjwt-issuer/issuecmd"
)

// This is an application which issues SD-JWTs from JSON claims files.
func main() {
	rootCmd := &cobra.Command{
		Use: "sdjwt-issuer",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	logger := log.New("aries-framework/sdjwt-issuer")

	issueCmd, err := issuecmd.Cmd()
	if err != nil {
		logger.Fatalf(err.Error())
	}

	rootCmd.AddCommand(issueCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Fatalf("Failed to run sdjwt-issuer: %s", err)
	}
}
