// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/pow"
)

// ConsensusPOW is the only consensus type the ledger runs.
const ConsensusPOW = "POW"

// Genesis represents the genesis file.
type Genesis struct {
	Date              time.Time         `json:"date"`
	TransPerBlock     uint16            `json:"trans_per_block"`      // The maximum number of transactions that can be in a block.
	Difficulty        uint              `json:"difficulty"`           // How difficult it needs to be to solve the work problem.
	MinDifficulty     uint              `json:"min_difficulty"`       // Lowest difficulty the adjustment can reach.
	MaxDifficulty     uint              `json:"max_difficulty"`       // Highest difficulty the adjustment can reach.
	BlockTimeTargetMs int64             `json:"block_time_target_ms"` // Expected time to mine a block.
	MiningReward      uint64            `json:"mining_reward"`        // Reward for mining a block.
	MempoolMaxSize    int               `json:"mempool_max_size"`     // Capacity of the mempool.
	ConsensusType     string            `json:"consensus_type"`
	Balances          map[string]uint64 `json:"balances"`
}

// Default returns the genesis information used when no file is provided.
func Default() Genesis {
	return Genesis{
		Date:              time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		TransPerBlock:     10,
		Difficulty:        2,
		MinDifficulty:     pow.DefaultMinDifficulty,
		MaxDifficulty:     pow.DefaultMaxDifficulty,
		BlockTimeTargetMs: pow.DefaultBlockTimeTarget.Milliseconds(),
		MiningReward:      700,
		MempoolMaxSize:    100,
		ConsensusType:     ConsensusPOW,
		Balances:          map[string]uint64{},
	}
}

// =============================================================================

// Load opens and consumes the genesis file. Zero values in the file are
// filled in from the defaults.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("unable to decode genesis file %q: %w", path, err)
	}

	genesis.fillDefaults()

	if err := genesis.Validate(); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}

// Validate checks the genesis information can run a ledger.
func (g Genesis) Validate() error {
	if g.Difficulty < 1 {
		return database.NewValidationError("difficulty", fmt.Errorf("difficulty must be at least 1, got %d", g.Difficulty))
	}

	if g.TransPerBlock < 1 {
		return database.NewValidationError("trans_per_block", fmt.Errorf("trans per block must be at least 1, got %d", g.TransPerBlock))
	}

	if g.MempoolMaxSize < 1 {
		return database.NewValidationError("mempool_max_size", fmt.Errorf("mempool max size must be at least 1, got %d", g.MempoolMaxSize))
	}

	if g.ConsensusType != ConsensusPOW {
		return database.NewValidationError("consensus_type", fmt.Errorf("consensus type %q is not supported", g.ConsensusType))
	}

	if _, err := pow.New(g.PowConfig()); err != nil {
		return database.NewValidationError("difficulty", err)
	}

	if _, err := g.Accounts(); err != nil {
		return err
	}

	return nil
}

// PowConfig returns the proof of work settings held by the genesis.
func (g Genesis) PowConfig() pow.Config {
	return pow.Config{
		Difficulty:      g.Difficulty,
		MinDifficulty:   g.MinDifficulty,
		MaxDifficulty:   g.MaxDifficulty,
		BlockTimeTarget: time.Duration(g.BlockTimeTargetMs) * time.Millisecond,
	}
}

// Accounts returns the genesis balances keyed by canonical account id.
func (g Genesis) Accounts() (map[database.AccountID]uint64, error) {
	accounts := make(map[database.AccountID]uint64, len(g.Balances))
	for hex, amount := range g.Balances {
		accountID, err := database.ToAccountID(hex)
		if err != nil {
			return nil, database.NewValidationError("balances", err)
		}
		accounts[accountID] += amount
	}

	return accounts, nil
}

// Block constructs the genesis block described by this information.
func (g Genesis) Block(hasher database.Hasher) (database.Block, error) {
	accounts, err := g.Accounts()
	if err != nil {
		return database.Block{}, err
	}

	return database.NewGenesisBlock(g.Date, accounts, hasher), nil
}

func (g *Genesis) fillDefaults() {
	def := Default()

	if g.Date.IsZero() {
		g.Date = def.Date
	}
	if g.TransPerBlock == 0 {
		g.TransPerBlock = def.TransPerBlock
	}
	if g.MaxDifficulty == 0 {
		g.MaxDifficulty = def.MaxDifficulty
	}
	if g.MinDifficulty == 0 {
		g.MinDifficulty = def.MinDifficulty
	}
	if g.BlockTimeTargetMs == 0 {
		g.BlockTimeTargetMs = def.BlockTimeTargetMs
	}
	if g.MempoolMaxSize == 0 {
		g.MempoolMaxSize = def.MempoolMaxSize
	}
	if g.ConsensusType == "" {
		g.ConsensusType = def.ConsensusType
	}
	if g.Balances == nil {
		g.Balances = map[string]uint64{}
	}
}
