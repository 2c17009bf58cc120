package state

import (
	"fmt"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/mempool"
)

// Set of statuses a transaction can be found in.
const (
	TxStatusPending   = "pending"
	TxStatusConfirmed = "confirmed"
)

// TxInfo represents where a transaction was found.
type TxInfo struct {
	Transaction database.Transaction `json:"transaction"`
	Status      string               `json:"status"`
	BlockIndex  *uint64              `json:"block_index,omitempty"`
	BlockHash   string               `json:"block_hash,omitempty"`
}

// =============================================================================

// QueryBlockByIndex returns the block at the specified position.
func (s *State) QueryBlockByIndex(index uint64) (database.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index >= uint64(len(s.chain)) {
		return database.Block{}, fmt.Errorf("block[%d]: %w", index, database.ErrNotFound)
	}

	return s.chain[index], nil
}

// QueryBlockByHash returns the block with the specified hash.
func (s *State) QueryBlockByHash(hash string) (database.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, block := range s.chain {
		if block.Hash == hash {
			return block, nil
		}
	}

	return database.Block{}, fmt.Errorf("block[%s]: %w", hash, database.ErrNotFound)
}

// QueryBlocksByRange returns the blocks from start to end inclusive. The
// range is clamped to the blocks that exist.
func (s *State) QueryBlocksByRange(start uint64, end uint64) []database.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	height := uint64(len(s.chain) - 1)
	if end > height {
		end = height
	}

	if start > end {
		return []database.Block{}
	}

	out := make([]database.Block, end-start+1)
	copy(out, s.chain[start:end+1])

	return out
}

// QueryBlockHeight returns the index of the latest block.
func (s *State) QueryBlockHeight() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.chain[len(s.chain)-1].Index
}

// QueryBalance returns the sum of the unspent outputs for the account.
func (s *State) QueryBalance(accountID database.AccountID) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.utxos.TotalValueByAddress(accountID)
}

// QueryUTXOs returns every output issued to the account.
func (s *State) QueryUTXOs(accountID database.AccountID) []database.UTXO {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.utxos.FindByAddress(accountID)
}

// QueryUnspent returns the outputs the account can still spend.
func (s *State) QueryUnspent(accountID database.AccountID) []database.UTXO {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.utxos.FindUnspentByAddress(accountID)
}

// QueryTransaction looks for the transaction in the mempool and then on
// the chain.
func (s *State) QueryTransaction(id string) (TxInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if tx, exists := s.mempool.Get(id); exists {
		return TxInfo{Transaction: tx, Status: TxStatusPending}, nil
	}

	index, exists := s.txIndex[id]
	if !exists {
		return TxInfo{}, fmt.Errorf("tx[%s]: %w", id, database.ErrNotFound)
	}

	block := s.chain[index]
	for _, tx := range block.Transactions {
		if tx.ID == id {
			info := TxInfo{
				Transaction: tx,
				Status:      TxStatusConfirmed,
				BlockIndex:  &index,
				BlockHash:   block.Hash,
			}
			return info, nil
		}
	}

	return TxInfo{}, fmt.Errorf("tx[%s]: %w", id, database.ErrNotFound)
}

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}

// QueryMempoolStats returns a summary of the mempool.
func (s *State) QueryMempoolStats() mempool.Stats {
	return s.mempool.Stats()
}
