// Package database defines the ledger data model: transactions, blocks and
// unspent transaction outputs. It knows how blocks are hashed and linked and
// declares the storage interface the ledger is persisted through.
package database

import "context"

// LedgerStore interface represents the behavior required to be implemented by
// any package providing support for persisting the ledger. Implementations
// may perform I/O and fail. The ledger never assumes a write is durable until
// the call returns without error.
type LedgerStore interface {

	// LoadChain returns every block on record in index order starting with
	// the genesis block. An empty store returns an empty slice.
	LoadChain(ctx context.Context) ([]Block, error)

	// AppendBlock records the next block in the chain. Implementations must
	// reject a block whose index is not the next index on record with
	// ErrBlockOrder. Writing a block already on record with the same hash
	// succeeds so a retried write is harmless.
	AppendBlock(ctx context.Context, block Block) error

	// LoadMempool returns the pending transactions saved under the id. An
	// unknown id returns an empty slice.
	LoadMempool(ctx context.Context, id string) ([]Transaction, error)

	// SaveMempool replaces the pending transactions saved under the id.
	SaveMempool(ctx context.Context, id string, txs []Transaction) error

	// LoadUTXOs returns the last saved output records in the order they
	// were saved.
	LoadUTXOs(ctx context.Context) ([]UTXO, error)

	// SaveUTXOs replaces the saved unspent output records.
	SaveUTXOs(ctx context.Context, utxos []UTXO) error

	// Close releases any resources held by the store.
	Close() error
}
