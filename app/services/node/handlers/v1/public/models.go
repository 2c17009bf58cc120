package public

import (
	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/nameservice"
)

type tx struct {
	ID          string             `json:"id"`
	FromAccount database.AccountID `json:"from"`
	FromName    string             `json:"from_name"`
	To          database.AccountID `json:"to"`
	ToName      string             `json:"to_name"`
	Amount      uint64             `json:"amount"`
	TimeStamp   int64              `json:"timestamp"`
}

type block struct {
	Index           uint64             `json:"index"`
	PrevHash        string             `json:"prev_hash"`
	Hash            string             `json:"hash"`
	Nonce           uint64             `json:"nonce"`
	TimeStamp       int64              `json:"timestamp"`
	Difficulty      uint               `json:"difficulty"`
	Beneficiary     database.AccountID `json:"beneficiary"`
	BeneficiaryName string             `json:"beneficiary_name"`
	MiningTimeMs    int64              `json:"mining_time_ms"`
	Transactions    []tx               `json:"trans"`
}

type balance struct {
	Account      database.AccountID `json:"account"`
	Name         string             `json:"name"`
	Balance      uint64             `json:"balance"`
	Pending      uint64             `json:"pending_outflow"`
	LatestBlock  string             `json:"latest_block"`
	BlockHeight  uint64             `json:"block_height"`
	UnspentCount int                `json:"unspent_count"`
}

type height struct {
	Height      uint64 `json:"height"`
	LatestBlock string `json:"latest_block"`
	Difficulty  uint   `json:"difficulty"`
}

type submitTx struct {
	ID     string `json:"id"`
	From   string `json:"from" validate:"required"`
	To     string `json:"to" validate:"required"`
	Amount int64  `json:"amount"`
}

type txInfo struct {
	Transaction tx      `json:"transaction"`
	Status      string  `json:"status"`
	BlockIndex  *uint64 `json:"block_index,omitempty"`
	BlockHash   string  `json:"block_hash,omitempty"`
}

// =============================================================================

func toTx(ns *nameservice.NameService, tran database.Transaction) tx {
	return tx{
		ID:          tran.ID,
		FromAccount: tran.From,
		FromName:    ns.Lookup(tran.From),
		To:          tran.To,
		ToName:      ns.Lookup(tran.To),
		Amount:      tran.Amount,
		TimeStamp:   tran.TimeStamp,
	}
}

func toTxs(ns *nameservice.NameService, trans []database.Transaction) []tx {
	txs := make([]tx, len(trans))
	for i, tran := range trans {
		txs[i] = toTx(ns, tran)
	}
	return txs
}

func toBlock(ns *nameservice.NameService, blk database.Block) block {
	return block{
		Index:           blk.Index,
		PrevHash:        blk.PrevHash,
		Hash:            blk.Hash,
		Nonce:           blk.Nonce,
		TimeStamp:       blk.TimeStamp,
		Difficulty:      blk.Difficulty,
		Beneficiary:     blk.Beneficiary,
		BeneficiaryName: ns.Lookup(blk.Beneficiary),
		MiningTimeMs:    blk.MiningTime.Milliseconds(),
		Transactions:    toTxs(ns, blk.Transactions),
	}
}

func toBlocks(ns *nameservice.NameService, blks []database.Block) []block {
	blocks := make([]block, len(blks))
	for i, blk := range blks {
		blocks[i] = toBlock(ns, blk)
	}
	return blocks
}
