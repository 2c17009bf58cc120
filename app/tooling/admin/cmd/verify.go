package cmd

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/powledger/foundation/blockchain/state"
	"github.com/ardanlabs/powledger/foundation/blockchain/utxo"
	"github.com/spf13/cobra"
)

func verifyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Validate the stored chain and compare the stored utxo set to a replay.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			genesisBlock, err := opts.genesisBlock()
			if err != nil {
				return fmt.Errorf("loading genesis: %w", err)
			}

			store, err := opts.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			blocks, err := store.LoadChain(ctx)
			if err != nil {
				return fmt.Errorf("loading chain: %w", err)
			}

			if err := state.ValidateChain(blocks, &genesisBlock, nil, nil); err != nil {
				return err
			}
			fmt.Fprintf(out, "Chain:    OK  blocks[%d] latest[%s]\n", len(blocks), blocks[len(blocks)-1].Hash)

			replayed, err := utxo.Replay(blocks)
			if err != nil {
				return err
			}

			stored, err := store.LoadUTXOs(ctx)
			if err != nil {
				return fmt.Errorf("loading utxos: %w", err)
			}

			saved, err := utxo.Load(stored)
			if err != nil {
				return fmt.Errorf("stored utxo set: %w", err)
			}

			if saved.StateHash() != replayed.StateHash() {
				fmt.Fprintf(out, "UTXOs:    MISMATCH  stored[%d] replayed[%d]\n", saved.Count(), replayed.Count())
				return errors.New("stored utxo set doesn't match a replay of the chain")
			}
			fmt.Fprintf(out, "UTXOs:    OK  outputs[%d] hash[%s]\n", replayed.Count(), replayed.StateHash())

			return nil
		},
	}
}
