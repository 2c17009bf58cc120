package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func blocksCmd(opts *options) *cobra.Command {
	var from, to uint64
	var showTrans bool

	cmd := &cobra.Command{
		Use:   "blocks",
		Short: "Print the stored blocks in a range.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if from > to {
				return fmt.Errorf("from %d is greater than to %d", from, to)
			}

			blocks, err := opts.loadChain(cmd.Context())
			if err != nil {
				return err
			}

			for _, block := range blocks {
				if block.Index < from || block.Index > to {
					continue
				}

				fmt.Fprintf(out, "Block: %d  Hash: %s  Prev: %s  Nonce: %d  Difficulty: %d  Trans: %d\n",
					block.Index, block.Hash, block.PrevHash, block.Nonce, block.Difficulty, len(block.Transactions))

				if showTrans {
					for _, tx := range block.Transactions {
						fmt.Fprintf(out, "    %s\n", tx)
					}
				}
			}

			return nil
		},
	}

	cmd.Flags().Uint64Var(&from, "from", 0, "First block index to print.")
	cmd.Flags().Uint64Var(&to, "to", ^uint64(0), "Last block index to print.")
	cmd.Flags().BoolVarP(&showTrans, "trans", "t", false, "Print the transactions of every block.")

	return cmd
}
