package database

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/pow"
)

// ErrChainLink is returned when a block doesn't link to its parent.
var ErrChainLink = errors.New("block does not link to parent")

// =============================================================================

// Block represents a group of transactions batched together. A block is
// immutable once it has been mined.
type Block struct {
	Index        uint64        `json:"index"`       // Position in the chain, genesis is 0.
	PrevHash     string        `json:"prev_hash"`   // Hash of the previous block in the chain.
	Hash         string        `json:"hash"`        // Hash of this block.
	Transactions []Transaction `json:"trans"`       // Coinbase first, then mempool transactions.
	Nonce        uint64        `json:"nonce"`       // Value identified to solve the hash solution.
	TimeStamp    int64         `json:"timestamp"`   // Unix milliseconds the mining attempt started.
	Difficulty   uint          `json:"difficulty"`  // Number of 0's the hash needed at mining time.
	Beneficiary  AccountID     `json:"beneficiary"` // The account who received the mining reward.
	MiningTime   time.Duration `json:"mining_time"` // How long the block took to mine, drives the next difficulty.
}

// Hasher computes the hash for a block. It exists so tests can replace the
// hash function with something predictable.
type Hasher func(block Block) string

// hashData represents the fields of the block that are hashed. The stored
// hash, difficulty, beneficiary and mining time are not part of it.
type hashData struct {
	Index        uint64        `json:"index"`
	PrevHash     string        `json:"prev_hash"`
	Transactions []Transaction `json:"trans"`
	Nonce        uint64        `json:"nonce"`
	TimeStamp    int64         `json:"timestamp"`
}

// HashBlock is the default Hasher. It returns the sha256 hash of the index,
// previous hash, transactions, nonce and timestamp.
func HashBlock(block Block) string {
	return Hash(hashData{
		Index:        block.Index,
		PrevHash:     block.PrevHash,
		Transactions: block.Transactions,
		Nonce:        block.Nonce,
		TimeStamp:    block.TimeStamp,
	})
}

// NewCandidate constructs the next block to be mined on top of the
// specified parent. The nonce starts at zero and the hash is left empty
// until the proof of work is solved.
func NewCandidate(parent Block, trans []Transaction, timeStamp time.Time, difficulty uint, beneficiary AccountID) Block {
	txs := make([]Transaction, len(trans))
	copy(txs, trans)

	return Block{
		Index:        parent.Index + 1,
		PrevHash:     parent.Hash,
		Transactions: txs,
		Nonce:        0,
		TimeStamp:    timeStamp.UTC().UnixMilli(),
		Difficulty:   difficulty,
		Beneficiary:  beneficiary,
	}
}

// NewGenesisBlock constructs the fixed first block of the chain. The block
// carries one allocation transaction per funded account, sorted by account
// so the same genesis information always produces the same block.
func NewGenesisBlock(date time.Time, balances map[AccountID]uint64, hasher Hasher) Block {
	if hasher == nil {
		hasher = HashBlock
	}

	accounts := make([]AccountID, 0, len(balances))
	for accountID := range balances {
		accounts = append(accounts, accountID)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i] < accounts[j] })

	ts := date.UTC().UnixMilli()

	trans := make([]Transaction, 0, len(accounts))
	for i, accountID := range accounts {
		trans = append(trans, Transaction{
			ID:        fmt.Sprintf("genesis:%d", i),
			From:      CoinbaseAccountID,
			To:        accountID,
			Amount:    balances[accountID],
			TimeStamp: ts,
		})
	}

	block := Block{
		Index:        0,
		PrevHash:     ZeroHash,
		Transactions: trans,
		TimeStamp:    ts,
	}
	block.Hash = hasher(block)

	return block
}

// ValidateGenesis checks the block is a well formed genesis block. When an
// expected genesis block is provided, the hashes must match.
func (b Block) ValidateGenesis(expected *Block, hasher Hasher) error {
	if hasher == nil {
		hasher = HashBlock
	}

	if b.Index != 0 {
		return fmt.Errorf("genesis block has index %d", b.Index)
	}

	if b.PrevHash != ZeroHash {
		return fmt.Errorf("genesis block previous hash is %s, exp %s", b.PrevHash, ZeroHash)
	}

	if hash := hasher(b); hash != b.Hash {
		return fmt.Errorf("genesis block hash doesn't match its content, got %s, exp %s", b.Hash, hash)
	}

	if expected != nil && expected.Hash != b.Hash {
		return fmt.Errorf("genesis block doesn't match the genesis information, got %s, exp %s", b.Hash, expected.Hash)
	}

	return nil
}

// ValidateBlock takes a block and validates it to be the next block after
// the specified parent.
func (b Block) ValidateBlock(parent Block, hasher Hasher, evHandler func(v string, args ...any)) error {
	if hasher == nil {
		hasher = HashBlock
	}
	if evHandler == nil {
		evHandler = func(string, ...any) {}
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block number is the next number", b.Index)

	if b.Index != parent.Index+1 {
		return fmt.Errorf("%w: this block is not the next number, got %d, exp %d", ErrChainLink, b.Index, parent.Index+1)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: parent hash does match parent block", b.Index)

	if b.PrevHash != parent.Hash {
		return fmt.Errorf("%w: parent block hash doesn't match our known parent, got %s, exp %s", ErrChainLink, b.PrevHash, parent.Hash)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block hash matches the block content", b.Index)

	hash := hasher(b)
	if hash != b.Hash {
		return fmt.Errorf("block hash doesn't match its content, got %s, exp %s", b.Hash, hash)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block hash has been solved", b.Index)

	if !pow.IsSolved(hash, b.Difficulty) {
		return fmt.Errorf("%s invalid block hash for difficulty %d", hash, b.Difficulty)
	}

	if parent.Index > 0 {
		evHandler("database: ValidateBlock: validate: blk[%d]: check: block's timestamp is not before parent block's timestamp", b.Index)

		if b.TimeStamp < parent.TimeStamp {
			parentTime := time.UnixMilli(parent.TimeStamp).UTC()
			blockTime := time.UnixMilli(b.TimeStamp).UTC()
			return fmt.Errorf("block timestamp is before parent block, parent %s, block %s", parentTime, blockTime)
		}
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block transactions", b.Index)

	if err := b.validateTransactions(); err != nil {
		return err
	}

	return nil
}

// validateTransactions checks the block has its reward transaction in the
// first position and no other minted transactions or repeated ids.
func (b Block) validateTransactions() error {
	if len(b.Transactions) == 0 {
		return errors.New("block has no transactions")
	}

	if cb := b.Transactions[0]; !cb.IsCoinbase() || cb.To != b.Beneficiary {
		return fmt.Errorf("block's first transaction %s is not the reward for %s", cb.ID, b.Beneficiary)
	}

	ids := make(map[string]struct{}, len(b.Transactions))
	for i, tx := range b.Transactions {
		if _, exists := ids[tx.ID]; exists {
			return fmt.Errorf("transaction %s is included twice", tx.ID)
		}
		ids[tx.ID] = struct{}{}

		if i > 0 && tx.IsCoinbase() {
			return fmt.Errorf("transaction %s mints value outside the reward position", tx.ID)
		}
	}

	return nil
}

// UserTrans returns the transactions that came from the mempool, which is every
// transaction except the reward.
func (b Block) UserTrans() []Transaction {
	if b.Index == 0 || len(b.Transactions) == 0 {
		return nil
	}
	return b.Transactions[1:]
}
