package cmd

import (
	"fmt"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/utxo"
	"github.com/spf13/cobra"
)

func balanceCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "balance [account]",
		Short: "Print the balances replayed from the stored chain.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			blocks, err := opts.loadChain(cmd.Context())
			if err != nil {
				return err
			}

			set, err := utxo.Replay(blocks)
			if err != nil {
				return err
			}

			accounts := set.Addresses()
			if len(args) == 1 {
				accountID, err := database.ToAccountID(args[0])
				if err != nil {
					return database.NewValidationError("account", err)
				}
				accounts = []database.AccountID{accountID}
			}

			if len(blocks) > 0 {
				fmt.Fprintf(out, "LatestBlockHash: %s\n\n", blocks[len(blocks)-1].Hash)
			}

			for _, accountID := range accounts {
				fmt.Fprintf(out, "Account: %s  Balance: %d  Unspent: %d\n", accountID, set.TotalValueByAddress(accountID), len(set.FindUnspentByAddress(accountID)))
			}

			return nil
		},
	}
}
