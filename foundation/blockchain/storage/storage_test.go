package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/storage"
	"github.com/ardanlabs/powledger/foundation/blockchain/storage/storagetest"
)

func TestOpen(t *testing.T) {
	type table struct {
		name string
		cfg  storage.Config
		ok   bool
	}

	dir := t.TempDir()

	tt := []table{
		{name: "memory", cfg: storage.Config{Type: storage.TypeMemory}, ok: true},
		{name: "disk", cfg: storage.Config{Type: storage.TypeDisk, DBPath: filepath.Join(dir, "disk")}, ok: true},
		{name: "leveldb", cfg: storage.Config{Type: storage.TypeLevelDB, DBPath: filepath.Join(dir, "leveldb")}, ok: true},
		{name: "nopath", cfg: storage.Config{Type: storage.TypeDisk}},
		{name: "nourl", cfg: storage.Config{Type: storage.TypePostgres}},
		{name: "unknown", cfg: storage.Config{Type: "tape"}},
	}

	t.Log("Given the need to open the configured store.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen opening a %s store.", testID, tst.name)
				{
					store, err := storage.Open(context.Background(), tst.cfg)

					if !tst.ok {
						if !database.IsValidationError(err) {
							t.Fatalf("\t%s\tTest %d:\tShould get a validation error, got %v.", storagetest.Failed, testID, err)
						}
						t.Logf("\t%s\tTest %d:\tShould get a validation error.", storagetest.Success, testID)
						return
					}

					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to open the store: %v", storagetest.Failed, testID, err)
					}
					defer store.Close()

					blocks, err := store.LoadChain(context.Background())
					if err != nil || len(blocks) != 0 {
						t.Fatalf("\t%s\tTest %d:\tShould start with an empty chain: %v", storagetest.Failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould start with an empty chain.", storagetest.Success, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}
}
