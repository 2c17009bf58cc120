package disk_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/storage/disk"
	"github.com/ardanlabs/powledger/foundation/blockchain/storage/storagetest"
)

func TestLedgerStore(t *testing.T) {
	store, err := disk.New(t.TempDir())
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the store: %v", storagetest.Failed, err)
	}
	defer store.Close()

	storagetest.Run(t, store)
}

func TestReopen(t *testing.T) {
	ctx := context.Background()

	t.Log("Given the need to pick up the chain already on disk.")
	{
		path := t.TempDir()
		blocks := storagetest.Blocks(3)

		first, err := disk.New(path)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct the store: %v", storagetest.Failed, err)
		}
		for _, block := range blocks[:2] {
			if err := first.AppendBlock(ctx, block); err != nil {
				t.Fatalf("\t%s\tShould be able to append block %d: %v", storagetest.Failed, block.Index, err)
			}
		}

		t.Logf("\tTest 0:\tWhen the store is constructed again.")
		{
			second, err := disk.New(path)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to construct the store: %v", storagetest.Failed, err)
			}

			if err := second.AppendBlock(ctx, blocks[0]); !errors.Is(err, database.ErrBlockOrder) {
				t.Fatalf("\t%s\tTest 0:\tShould reject an old block, got %v.", storagetest.Failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould reject an old block.", storagetest.Success)

			if err := second.AppendBlock(ctx, blocks[2]); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould continue the chain: %v", storagetest.Failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould continue the chain.", storagetest.Success)
		}

		t.Logf("\tTest 1:\tWhen the mempool id could escape the folder.")
		{
			if err := first.SaveMempool(ctx, "../evil", nil); !database.IsValidationError(err) {
				t.Fatalf("\t%s\tTest 1:\tShould get a validation error, got %v.", storagetest.Failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould get a validation error.", storagetest.Success)
		}
	}
}
