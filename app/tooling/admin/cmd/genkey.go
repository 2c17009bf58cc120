package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

const keyExtension = ".ecdsa"

func genKeyCmd() *cobra.Command {
	var folder string

	cmd := &cobra.Command{
		Use:   "genkey <name>",
		Short: "Generate a key file so the name service and miner can use the account.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(folder, args[0]+keyExtension)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("key file %s already exists", path)
			}

			if err := os.MkdirAll(folder, 0755); err != nil {
				return err
			}

			privateKey, err := crypto.GenerateKey()
			if err != nil {
				return err
			}

			if err := crypto.SaveECDSA(path, privateKey); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Account: %s  Key: %s\n", database.PublicKeyToAccountID(privateKey.PublicKey), path)

			return nil
		},
	}

	cmd.Flags().StringVarP(&folder, "folder", "f", "zblock/accounts/", "Folder to write the key file to.")

	return cmd
}
