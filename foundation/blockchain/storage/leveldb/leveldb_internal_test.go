package leveldb

import (
	"context"
	"testing"

	"github.com/ardanlabs/powledger/foundation/blockchain/storage/storagetest"
)

func TestSyncedWrites(t *testing.T) {
	t.Log("Given the need for an appended block to be durable.")
	{
		t.Logf("\tTest 0:\tWhen appending a block.")
		{
			store, err := New(t.TempDir())
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to open the database: %v", storagetest.Failed, err)
			}
			defer store.Close()

			if store.wo == nil || !store.wo.Sync {
				t.Fatalf("\t%s\tTest 0:\tShould sync every write.", storagetest.Failed)
			}
			t.Logf("\t%s\tTest 0:\tShould sync every write.", storagetest.Success)

			block := storagetest.Blocks(1)[0]
			if err := store.AppendBlock(context.Background(), block); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to append the block: %v", storagetest.Failed, err)
			}

			data, err := store.db.Get([]byte(blockHeightKey), nil)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould have written the height: %v", storagetest.Failed, err)
			}
			if height := string(data); height != "0" {
				t.Fatalf("\t%s\tTest 0:\tShould have height 0, got %q.", storagetest.Failed, height)
			}
			t.Logf("\t%s\tTest 0:\tShould write the block, hash and height in one batch.", storagetest.Success)
		}
	}
}
