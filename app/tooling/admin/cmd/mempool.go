package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func mempoolCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "mempool",
		Short: "Print the transactions saved for the mempool.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			store, err := opts.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			trans, err := store.LoadMempool(ctx, opts.mempoolID)
			if err != nil {
				return fmt.Errorf("loading mempool %q: %w", opts.mempoolID, err)
			}

			fmt.Fprintf(out, "Mempool: %s  Trans: %d\n\n", opts.mempoolID, len(trans))
			for _, tx := range trans {
				fmt.Fprintf(out, "ID: %s  From: %s  To: %s  Amount: %d\n", tx.ID, tx.From, tx.To, tx.Amount)
			}

			return nil
		},
	}
}
