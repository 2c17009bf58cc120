package memory_test

import (
	"testing"

	"github.com/ardanlabs/powledger/foundation/blockchain/storage/memory"
	"github.com/ardanlabs/powledger/foundation/blockchain/storage/storagetest"
)

func TestLedgerStore(t *testing.T) {
	store, err := memory.New()
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the store: %v", storagetest.Failed, err)
	}
	defer store.Close()

	storagetest.Run(t, store)
}
