// Package storagetest provides the checks every ledger store must pass.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
)

// Success and failure markers.
const (
	Success = "\u2713"
	Failed  = "\u2717"
)

const (
	pavel   = database.AccountID("0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4")
	kennedy = database.AccountID("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")
)

// Blocks constructs a small linked chain for storing. The blocks are not
// mined since stores don't validate proof of work.
func Blocks(n int) []database.Block {
	date := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

	blocks := []database.Block{database.NewGenesisBlock(date, map[database.AccountID]uint64{pavel: 1000}, nil)}
	for i := 1; i < n; i++ {
		parent := blocks[i-1]
		trans := []database.Transaction{
			database.NewCoinbaseTx(parent.Index+1, kennedy, 10, parent.TimeStamp),
		}

		block := database.NewCandidate(parent, trans, date, 1, kennedy)
		block.Hash = database.HashBlock(block)
		blocks = append(blocks, block)
	}

	return blocks
}

// Run checks the store implements the database.LedgerStore behavior. The
// store must be empty.
func Run(t *testing.T, store database.LedgerStore) {
	ctx := context.Background()

	t.Log("Given the need to persist the ledger.")
	{
		blocks := Blocks(3)

		t.Logf("\tTest 0:\tWhen the store is empty.")
		{
			chain, err := store.LoadChain(ctx)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to load the chain: %v", Failed, err)
			}
			if len(chain) != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould get no blocks, got %d.", Failed, len(chain))
			}
			t.Logf("\t%s\tTest 0:\tShould get no blocks.", Success)

			trans, err := store.LoadMempool(ctx, "unknown")
			if err != nil || len(trans) != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould get an empty mempool for an unknown id: %v", Failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould get an empty mempool for an unknown id.", Success)
		}

		t.Logf("\tTest 1:\tWhen appending blocks.")
		{
			for _, block := range blocks {
				if err := store.AppendBlock(ctx, block); err != nil {
					t.Fatalf("\t%s\tTest 1:\tShould be able to append block %d: %v", Failed, block.Index, err)
				}
			}
			t.Logf("\t%s\tTest 1:\tShould be able to append the blocks.", Success)

			chain, err := store.LoadChain(ctx)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to load the chain: %v", Failed, err)
			}

			if len(chain) != len(blocks) {
				t.Fatalf("\t%s\tTest 1:\tShould get %d blocks, got %d.", Failed, len(blocks), len(chain))
			}

			for i := range chain {
				if chain[i].Index != uint64(i) || chain[i].Hash != blocks[i].Hash {
					t.Fatalf("\t%s\tTest 1:\tShould get the blocks back in order.", Failed)
				}
				if len(chain[i].Transactions) != len(blocks[i].Transactions) {
					t.Fatalf("\t%s\tTest 1:\tShould get the transactions back.", Failed)
				}
			}
			t.Logf("\t%s\tTest 1:\tShould get the blocks back in order.", Success)
		}

		t.Logf("\tTest 2:\tWhen appending a block out of order.")
		{
			skip := Blocks(5)[4]
			if err := store.AppendBlock(ctx, skip); !errors.Is(err, database.ErrBlockOrder) {
				t.Fatalf("\t%s\tTest 2:\tShould get ErrBlockOrder, got %v.", Failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould get ErrBlockOrder.", Success)

			if err := store.AppendBlock(ctx, blocks[2]); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould accept writing the latest block again: %v", Failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould accept writing the latest block again.", Success)

			chain, _ := store.LoadChain(ctx)
			if len(chain) != len(blocks) {
				t.Fatalf("\t%s\tTest 2:\tShould not change the chain, got %d blocks.", Failed, len(chain))
			}
			t.Logf("\t%s\tTest 2:\tShould not change the chain.", Success)
		}

		t.Logf("\tTest 3:\tWhen saving a mempool.")
		{
			trans := []database.Transaction{
				{ID: "a", From: pavel, To: kennedy, Amount: 1},
				{ID: "b", From: pavel, To: kennedy, Amount: 2},
			}

			if err := store.SaveMempool(ctx, "node-1", trans); err != nil {
				t.Fatalf("\t%s\tTest 3:\tShould be able to save the mempool: %v", Failed, err)
			}

			got, err := store.LoadMempool(ctx, "node-1")
			if err != nil {
				t.Fatalf("\t%s\tTest 3:\tShould be able to load the mempool: %v", Failed, err)
			}
			if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
				t.Fatalf("\t%s\tTest 3:\tShould get the transactions back in order: %+v", Failed, got)
			}
			t.Logf("\t%s\tTest 3:\tShould get the transactions back in order.", Success)

			if err := store.SaveMempool(ctx, "node-1", nil); err != nil {
				t.Fatalf("\t%s\tTest 3:\tShould be able to save an empty mempool: %v", Failed, err)
			}
			got, _ = store.LoadMempool(ctx, "node-1")
			if len(got) != 0 {
				t.Fatalf("\t%s\tTest 3:\tShould replace the mempool, got %d.", Failed, len(got))
			}
			t.Logf("\t%s\tTest 3:\tShould replace the mempool.", Success)
		}

		t.Logf("\tTest 4:\tWhen saving the utxo set.")
		{
			utxos := []database.UTXO{
				{ID: "genesis:0:0", AccountID: pavel, Amount: 1000, Spent: true, SourceTxID: "genesis:0", SourceBlockHash: blocks[0].Hash},
				{ID: "t1:0", AccountID: kennedy, Amount: 400, SourceTxID: "t1", SourceBlockHash: blocks[1].Hash},
				{ID: "t1:1", AccountID: pavel, Amount: 600, SourceTxID: "t1", SourceBlockHash: blocks[1].Hash},
			}

			if err := store.SaveUTXOs(ctx, utxos); err != nil {
				t.Fatalf("\t%s\tTest 4:\tShould be able to save the utxos: %v", Failed, err)
			}

			got, err := store.LoadUTXOs(ctx)
			if err != nil {
				t.Fatalf("\t%s\tTest 4:\tShould be able to load the utxos: %v", Failed, err)
			}

			if len(got) != len(utxos) {
				t.Fatalf("\t%s\tTest 4:\tShould get %d utxos, got %d.", Failed, len(utxos), len(got))
			}
			for i := range got {
				if got[i] != utxos[i] {
					t.Logf("\t%s\tTest 4:\tgot: %+v", Failed, got[i])
					t.Logf("\t%s\tTest 4:\texp: %+v", Failed, utxos[i])
					t.Fatalf("\t%s\tTest 4:\tShould get the utxos back in order.", Failed)
				}
			}
			t.Logf("\t%s\tTest 4:\tShould get the utxos back in order.", Success)
		}
	}
}
