package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tinywideclouds/go-webpush/internal/vapid"
)

func newKeygenCommand() *cobra.Command {
	var pemFlag bool

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a VAPID key pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := vapid.GenerateKey()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if pemFlag {
				data, err := key.PEM()
				if err != nil {
					return err
				}
				fmt.Fprint(out, data)
				return nil
			}
			fmt.Fprintf(out, "public_key: %s\n", key.PublicKeyBase64())
			fmt.Fprintf(out, "private_key: %s\n", key.PrivateKeyBase64())
			return nil
		},
	}
	cmd.Flags().BoolVar(&pemFlag, "pem", false, "Print the private key as PEM instead of raw base64 keys")
	return cmd
}
