// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/blinklabs-io/taleledger/internal/config"
	"github.com/blinklabs-io/taleledger/internal/node"
	"github.com/blinklabs-io/taleledger/keystore"
	"github.com/blinklabs-io/taleledger/ledger"
	"github.com/spf13/cobra"
)

// openNode opens the local database for a one-shot command. Metrics are
// not collected.
func openNode(cfg *config.Config) (*node.Node, error) {
	return node.Open(cfg, commonRun(), nil)
}

func loadKey(cfg *config.Config, path string) (*keystore.SigningKey, error) {
	if path == "" {
		path = cfg.KeyFile
	}
	if path == "" {
		return nil, errors.New("a signing key is required (--key or keyFile config)")
	}
	return keystore.LoadSigningKey(path)
}

func parseAddressFlag(name, value string) (ledger.Address, error) {
	if value == "" {
		return ledger.ZeroAddress, fmt.Errorf("--%s is required", name)
	}
	addr, err := ledger.ParseAddress(value)
	if err != nil {
		return ledger.ZeroAddress, fmt.Errorf("--%s: %w", name, err)
	}
	return addr, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func keygenCommand() *cobra.Command {
	var out, description string
	var encrypt bool
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an ed25519 signing key file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return errors.New("--out is required")
			}
			key, err := keystore.GenerateSigningKey(description)
			if err != nil {
				return err
			}
			if err := keystore.WriteSigningKey(out, key, encrypt); err != nil {
				return err
			}
			fmt.Println(key.Address().String())
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "path of the signing key file to write")
	cmd.Flags().StringVar(&description, "description", "", "description stored in the key file")
	cmd.Flags().BoolVar(&encrypt, "encrypt", false, "encrypt the key file with sops")
	return cmd
}

func fundCommand() *cobra.Command {
	var address string
	var amount uint64
	cmd := &cobra.Command{
		Use:   "fund",
		Short: "Credit a deposit balance on the local ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := parseAddressFlag("address", address)
			if err != nil {
				return err
			}
			n, err := openNode(mustConfig(cmd))
			if err != nil {
				return err
			}
			defer n.Close()
			if err := n.Runtime().Fund(cmd.Context(), owner, amount); err != nil {
				return err
			}
			balance, err := n.Runtime().BalanceOf(cmd.Context(), owner)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{
				"address": owner,
				"balance": balance,
			})
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "account to credit")
	cmd.Flags().Uint64Var(&amount, "amount", 0, "amount to credit")
	return cmd
}

func reindexCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the metadata index from stored records",
		Long: "Rebuild the metadata index from stored records. " +
			"Run it while no server is using the database.",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := openNode(mustConfig(cmd))
			if err != nil {
				return err
			}
			defer n.Close()
			result, err := n.Reindex(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}

func mintCommand() *cobra.Command {
	var keyFile, to string
	var amount uint64
	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint tokens of the signing key's mint to an owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := mustConfig(cmd)
			owner, err := parseAddressFlag("to", to)
			if err != nil {
				return err
			}
			key, err := loadKey(cfg, keyFile)
			if err != nil {
				return err
			}
			n, err := openNode(cfg)
			if err != nil {
				return err
			}
			defer n.Close()
			addr, err := n.Tokens().MintTo(
				cmd.Context(),
				key.Signers(),
				key.Address(),
				owner,
				amount,
			)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{
				"token_account": addr,
				"mint":          key.Address(),
			})
		},
	}
	cmd.Flags().StringVar(&keyFile, "key", "", "signing key of the mint")
	cmd.Flags().StringVar(&to, "to", "", "owner of the token account")
	cmd.Flags().Uint64Var(&amount, "amount", 1, "amount to mint")
	return cmd
}
