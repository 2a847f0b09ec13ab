package main

import (
	"bufio"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/yabood/yabood/internal/auth"
)

func loadPrivateKey(filename string) (ed25519.PrivateKey, error) {
	privKeyBytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(privKeyBytes)
	if block == nil {
		return nil, errors.New("failed to decode PEM block")
	}
	privKey, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	edPriv, ok := privKey.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("not an Ed25519 private key")
	}
	return edPriv, nil
}

// signChallenge signs a base64 challenge as served by /api/auth/challenge.
func signChallenge(key ed25519.PrivateKey, challengeB64 string) (string, error) {
	challenge, err := base64.StdEncoding.DecodeString(challengeB64)
	if err != nil {
		return "", errors.New("invalid base64")
	}
	return base64.StdEncoding.EncodeToString(ed25519.Sign(key, challenge)), nil
}

func newKeygenCmd() *cobra.Command {
	var privPath, pubPath string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an operator Ed25519 key pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, priv, err := ed25519.GenerateKey(rand.Reader)
			if err != nil {
				return err
			}
			privDER, err := x509.MarshalPKCS8PrivateKey(priv)
			if err != nil {
				return err
			}
			pubDER, err := x509.MarshalPKIXPublicKey(pub)
			if err != nil {
				return err
			}

			privPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})
			pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
			if err := os.WriteFile(privPath, privPEM, 0o600); err != nil {
				return err
			}
			if err := os.WriteFile(pubPath, pubPEM, 0o644); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), labelStyle.Render("Private key:"), valueStyle.Render(privPath))
			fmt.Fprintln(cmd.OutOrStdout(), labelStyle.Render("Public key:"), valueStyle.Render(pubPath))
			fmt.Fprintln(cmd.OutOrStdout(), "Set auth.operator_public_key (or OPERATOR_PUBLIC_KEY) to the public key PEM.")
			return nil
		},
	}
	cmd.Flags().StringVar(&privPath, "private", "privkey.pem", "private key output path")
	cmd.Flags().StringVar(&pubPath, "public", "pubkey.pem", "public key output path")
	return cmd
}

func newSignCmd() *cobra.Command {
	var keyPath string

	cmd := &cobra.Command{
		Use:   "sign [challenge...]",
		Short: "Sign operator challenges",
		Long: "Sign base64 challenges from " + auth.OperatorSignatureHeader + " logins. " +
			"With no arguments, challenges are read from stdin one per line until 'quit'.",
		RunE: func(cmd *cobra.Command, args []string) error {
			privKey, err := loadPrivateKey(keyPath)
			if err != nil {
				return fmt.Errorf("failed to load private key: %w", err)
			}
			out := cmd.OutOrStdout()

			if len(args) > 0 {
				for _, challenge := range args {
					sig, err := signChallenge(privKey, challenge)
					if err != nil {
						return err
					}
					fmt.Fprintln(out, sig)
				}
				return nil
			}

			fmt.Fprintln(out, "Enter challenges one by one. Type 'quit' to exit.")
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, labelStyle.Render("Enter challenge (base64): "))
				if !scanner.Scan() {
					break
				}

				challengeB64 := strings.TrimSpace(scanner.Text())
				if challengeB64 == "" {
					continue
				}
				if challengeB64 == "quit" {
					break
				}

				sig, err := signChallenge(privKey, challengeB64)
				if err != nil {
					fmt.Fprintln(out, errorStyle.Render("Error: "+err.Error()))
					continue
				}
				fmt.Fprintln(out, valueStyle.Render("Signature: "+sig))
			}
			return scanner.Err()
		},
	}
	cmd.Flags().StringVarP(&keyPath, "key", "k", "privkey.pem", "PEM encoded PKCS#8 Ed25519 private key")
	return cmd
}
