package database

import "fmt"

// UTXO is one spendable output credited to an account by a confirmed
// transaction. Outputs are never deleted, only marked as spent.
type UTXO struct {
	ID              string    `json:"id"`
	AccountID       AccountID `json:"account"`
	Amount          uint64    `json:"amount"`
	Spent           bool      `json:"spent"`
	SourceTxID      string    `json:"source_tx_id"`
	SourceBlockHash string    `json:"source_block_hash,omitempty"`
}

// UTXOID forms the id of the output at the specified position of a
// transaction. The recipient output is 0 and the change output is 1.
func UTXOID(txID string, output int) string {
	return fmt.Sprintf("%s:%d", txID, output)
}
