// Package utxo maintains the set of transaction outputs used to compute
// account balances.
package utxo

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
)

// ErrInsufficientFunds is returned when a sender's unspent outputs can't
// cover the amount of a transaction.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Set manages every output issued on the chain in the order they were
// created. Outputs are never removed, only marked spent.
type Set struct {
	utxos []database.UTXO
	index map[string]int
	mu    sync.RWMutex
}

// New constructs an empty set.
func New() *Set {
	return &Set{
		index: make(map[string]int),
	}
}

// Load constructs a set from outputs previously saved in creation order.
func Load(utxos []database.UTXO) (*Set, error) {
	set := New()
	for _, u := range utxos {
		if _, exists := set.index[u.ID]; exists {
			return nil, fmt.Errorf("utxo %s is listed twice", u.ID)
		}
		set.index[u.ID] = len(set.utxos)
		set.utxos = append(set.utxos, u)
	}

	return set, nil
}

// Replay rebuilds the set by applying every block starting from genesis.
func Replay(blocks []database.Block) (*Set, error) {
	set := New()
	for _, block := range blocks {
		if err := set.ApplyBlock(block); err != nil {
			return nil, database.NewCorruptionError(block.Index, err)
		}
	}

	return set, nil
}

// Clone makes a copy of the current set.
func (s *Set) Clone() *Set {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := Set{
		utxos: make([]database.UTXO, len(s.utxos)),
		index: make(map[string]int, len(s.index)),
	}
	copy(set.utxos, s.utxos)
	for id, i := range s.index {
		set.index[id] = i
	}

	return &set
}

// Replace updates the set based on the specified set.
func (s *Set) Replace(set *Set) {
	cpy := set.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.utxos = cpy.utxos
	s.index = cpy.index
}

// Count returns the number of outputs ever issued.
func (s *Set) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.utxos)
}

// =============================================================================

// FindByAddress returns every output, spent and unspent, issued to the account.
func (s *Set) FindByAddress(accountID database.AccountID) []database.UTXO {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var utxos []database.UTXO
	for _, u := range s.utxos {
		if u.AccountID == accountID {
			utxos = append(utxos, u)
		}
	}

	return utxos
}

// FindUnspentByAddress returns the outputs for the account that haven't
// been spent, oldest first.
func (s *Set) FindUnspentByAddress(accountID database.AccountID) []database.UTXO {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.unspent(accountID)
}

// TotalValueByAddress returns the balance of the account.
func (s *Set) TotalValueByAddress(accountID database.AccountID) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total uint64
	for _, u := range s.unspent(accountID) {
		total += u.Amount
	}

	return total
}

// Spendable returns the balance of the account less the amount already
// pending in the mempool. It never goes below zero.
func (s *Set) Spendable(accountID database.AccountID, pending uint64) uint64 {
	balance := s.TotalValueByAddress(accountID)
	if pending >= balance {
		return 0
	}
	return balance - pending
}

// Addresses returns every account that has ever received an output, sorted.
func (s *Set) Addresses() []database.AccountID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m := make(map[database.AccountID]struct{})
	for _, u := range s.utxos {
		m[u.AccountID] = struct{}{}
	}

	accounts := make([]database.AccountID, 0, len(m))
	for accountID := range m {
		accounts = append(accounts, accountID)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i] < accounts[j] })

	return accounts
}

// Snapshot returns a copy of every output in creation order.
func (s *Set) Snapshot() []database.UTXO {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cpy := make([]database.UTXO, len(s.utxos))
	copy(cpy, s.utxos)

	return cpy
}

// StateHash returns a digest of the full set. Two sets with the same
// outputs in the same order produce the same hash.
func (s *Set) StateHash() string {
	return database.Hash(s.Snapshot())
}

// =============================================================================

// ApplyBlock spends and creates the outputs for every transaction in the
// block. Either every transaction is applied or the set is left unchanged.
func (s *Set) ApplyBlock(block database.Block) error {
	scratch := s.Clone()

	for _, tx := range block.Transactions {
		if err := scratch.applyTx(tx, block.Hash); err != nil {
			return fmt.Errorf("blk[%d]: tx[%s]: %w", block.Index, tx.ID, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.utxos = scratch.utxos
	s.index = scratch.index

	return nil
}

// ApplyTransaction spends and creates the outputs for a single transaction.
// The set is left unchanged when an error is returned.
func (s *Set) ApplyTransaction(tx database.Transaction, blockHash string) error {
	scratch := s.Clone()

	if err := scratch.applyTx(tx, blockHash); err != nil {
		return fmt.Errorf("tx[%s]: %w", tx.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.utxos = scratch.utxos
	s.index = scratch.index

	return nil
}

// applyTx performs the business logic for a transaction. It must only be
// called on a scratch copy since it can fail part way through.
func (s *Set) applyTx(tx database.Transaction, blockHash string) error {
	var inputs uint64

	// Minted transactions have no inputs to resolve.
	if !tx.IsCoinbase() {
		if tx.Amount > 0 {
			for _, u := range s.unspent(tx.From) {
				s.utxos[s.index[u.ID]].Spent = true
				inputs += u.Amount
				if inputs >= tx.Amount {
					break
				}
			}
		}

		if inputs < tx.Amount {
			return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientFunds, tx.From, inputs, tx.Amount)
		}
	}

	if err := s.create(database.UTXO{
		ID:              database.UTXOID(tx.ID, 0),
		AccountID:       tx.To,
		Amount:          tx.Amount,
		SourceTxID:      tx.ID,
		SourceBlockHash: blockHash,
	}); err != nil {
		return err
	}

	if inputs > tx.Amount {
		return s.create(database.UTXO{
			ID:              database.UTXOID(tx.ID, 1),
			AccountID:       tx.From,
			Amount:          inputs - tx.Amount,
			SourceTxID:      tx.ID,
			SourceBlockHash: blockHash,
		})
	}

	return nil
}

func (s *Set) create(u database.UTXO) error {
	if _, exists := s.index[u.ID]; exists {
		return fmt.Errorf("utxo %s already exists", u.ID)
	}

	s.index[u.ID] = len(s.utxos)
	s.utxos = append(s.utxos, u)

	return nil
}

func (s *Set) unspent(accountID database.AccountID) []database.UTXO {
	var utxos []database.UTXO
	for _, u := range s.utxos {
		if u.AccountID == accountID && !u.Spent {
			utxos = append(utxos, u)
		}
	}

	return utxos
}
