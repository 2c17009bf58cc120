// Package pow implements the proof of work rules for the blockchain. A block
// hash is solved when its hex representation starts with a difficulty number
// of zero characters. Difficulty is adjusted after every block based on how
// long the block took to mine.
package pow

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Default bounds for the difficulty controller.
const (
	DefaultMinDifficulty   uint = 1
	DefaultMaxDifficulty   uint = 12
	DefaultBlockTimeTarget      = 10 * time.Second
)

// maxHashDifficulty is the length of a hex encoded sha256 hash. Asking for
// more zeros than this can never be solved.
const maxHashDifficulty uint = 64

// ErrInvalidConfig is returned when the difficulty settings can't work.
var ErrInvalidConfig = errors.New("invalid proof of work config")

// =============================================================================

// Config represents the settings for the proof of work.
type Config struct {
	Difficulty      uint
	MinDifficulty   uint
	MaxDifficulty   uint
	BlockTimeTarget time.Duration
}

// ProofOfWork validates block hashes against the current difficulty and
// maintains the difficulty as blocks are mined.
type ProofOfWork struct {
	mu         sync.RWMutex
	difficulty uint
	min        uint
	max        uint
	target     time.Duration
}

// New constructs a proof of work value for use. Bad settings return an error
// wrapping ErrInvalidConfig. This package sits below the database package so
// it can't construct a database.ValidationError; genesis.Validate and
// state.New wrap the error in one under the "difficulty" field.
func New(cfg Config) (*ProofOfWork, error) {
	switch {
	case cfg.MinDifficulty > cfg.MaxDifficulty:
		return nil, fmt.Errorf("%w: min difficulty %d is greater than max difficulty %d", ErrInvalidConfig, cfg.MinDifficulty, cfg.MaxDifficulty)

	case cfg.MaxDifficulty > maxHashDifficulty:
		return nil, fmt.Errorf("%w: max difficulty %d is greater than the hash length %d", ErrInvalidConfig, cfg.MaxDifficulty, maxHashDifficulty)

	case cfg.Difficulty < cfg.MinDifficulty || cfg.Difficulty > cfg.MaxDifficulty:
		return nil, fmt.Errorf("%w: difficulty %d is outside of [%d, %d]", ErrInvalidConfig, cfg.Difficulty, cfg.MinDifficulty, cfg.MaxDifficulty)

	case cfg.BlockTimeTarget <= 0:
		return nil, fmt.Errorf("%w: block time target %v must be positive", ErrInvalidConfig, cfg.BlockTimeTarget)
	}

	pow := ProofOfWork{
		difficulty: cfg.Difficulty,
		min:        cfg.MinDifficulty,
		max:        cfg.MaxDifficulty,
		target:     cfg.BlockTimeTarget,
	}

	return &pow, nil
}

// Validate checks the hash against the current difficulty.
func (p *ProofOfWork) Validate(hash string) bool {
	return IsSolved(hash, p.Difficulty())
}

// AdjustDifficulty moves the difficulty up by one when the block was mined
// faster than the target block time and down by one otherwise. The new
// difficulty is returned.
func (p *ProofOfWork) AdjustDifficulty(timeTaken time.Duration) uint {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case timeTaken < p.target:
		if p.difficulty < p.max {
			p.difficulty++
		}
	default:
		if p.difficulty > p.min {
			p.difficulty--
		}
	}

	return p.difficulty
}

// Difficulty returns the current difficulty.
func (p *ProofOfWork) Difficulty() uint {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.difficulty
}

// Reset sets the difficulty, clamped to the configured bounds. This is used
// when the difficulty is restored from a loaded chain.
func (p *ProofOfWork) Reset(difficulty uint) uint {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.difficulty = min(max(difficulty, p.min), p.max)

	return p.difficulty
}

// Bounds returns the min and max difficulty and the block time target.
func (p *ProofOfWork) Bounds() (minDifficulty uint, maxDifficulty uint, target time.Duration) {
	return p.min, p.max, p.target
}

// =============================================================================

// IsSolved checks the hash to make sure it complies with the POW rules. We
// need to match a difficulty number of 0's at the front of the hash.
func IsSolved(hash string, difficulty uint) bool {
	if uint(len(hash)) < difficulty {
		return false
	}

	return strings.Count(hash[:difficulty], "0") == int(difficulty)
}
