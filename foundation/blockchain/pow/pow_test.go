package pow_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/pow"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func newPOW(t *testing.T, difficulty uint, minD uint, maxD uint) *pow.ProofOfWork {
	p, err := pow.New(pow.Config{
		Difficulty:      difficulty,
		MinDifficulty:   minD,
		MaxDifficulty:   maxD,
		BlockTimeTarget: time.Second,
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the proof of work: %v", failed, err)
	}

	return p
}

func TestValidate(t *testing.T) {
	type table struct {
		name       string
		difficulty uint
		hash       string
		valid      bool
	}

	tt := []table{
		{name: "two-zeros", difficulty: 2, hash: "00ab34", valid: true},
		{name: "one-zero", difficulty: 2, hash: "0ab345", valid: false},
		{name: "more-zeros", difficulty: 2, hash: "0000ff", valid: true},
		{name: "no-zeros", difficulty: 1, hash: "abcdef", valid: false},
		{name: "short", difficulty: 3, hash: "00", valid: false},
		{name: "zero-difficulty", difficulty: 0, hash: "ffffff", valid: true},
		{name: "full-hash", difficulty: 3, hash: "000" + strings.Repeat("a", 61), valid: true},
	}

	t.Log("Given the need to validate hashes against a difficulty.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen checking hash %q at difficulty %d.", testID, tst.hash, tst.difficulty)
				{
					if got := pow.IsSolved(tst.hash, tst.difficulty); got != tst.valid {
						t.Fatalf("\t%s\tTest %d:\tShould get %t, got %t.", failed, testID, tst.valid, got)
					}
					t.Logf("\t%s\tTest %d:\tShould get %t.", success, testID, tst.valid)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func TestValidateUsesCurrentDifficulty(t *testing.T) {
	t.Log("Given the need to validate with the current difficulty.")
	{
		t.Logf("\tTest 0:\tWhen the difficulty is 2.")
		{
			p := newPOW(t, 2, 1, 4)

			if !p.Validate("00ab") {
				t.Fatalf("\t%s\tTest 0:\tShould accept \"00ab\".", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould accept \"00ab\".", success)

			if p.Validate("0ab0") {
				t.Fatalf("\t%s\tTest 0:\tShould reject \"0ab0\".", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould reject \"0ab0\".", success)
		}
	}
}

func TestAdjustDifficulty(t *testing.T) {
	t.Log("Given the need to adjust the difficulty after each block.")
	{
		t.Logf("\tTest 0:\tWhen blocks are mined faster than the target.")
		{
			p := newPOW(t, 2, 1, 5)

			for i := 0; i < 20; i++ {
				p.AdjustDifficulty(time.Millisecond)
			}

			if d := p.Difficulty(); d != 5 {
				t.Fatalf("\t%s\tTest 0:\tShould be clamped at the max difficulty 5, got %d.", failed, d)
			}
			t.Logf("\t%s\tTest 0:\tShould be clamped at the max difficulty.", success)
		}

		t.Logf("\tTest 1:\tWhen blocks are mined slower than the target.")
		{
			p := newPOW(t, 4, 1, 5)

			prev := p.Difficulty()
			for i := 0; i < 20; i++ {
				d := p.AdjustDifficulty(2 * time.Second)
				if d > prev {
					t.Fatalf("\t%s\tTest 1:\tShould never increase the difficulty on slow blocks.", failed)
				}
				prev = d
			}

			if d := p.Difficulty(); d != 1 {
				t.Fatalf("\t%s\tTest 1:\tShould be clamped at the min difficulty 1, got %d.", failed, d)
			}
			t.Logf("\t%s\tTest 1:\tShould be clamped at the min difficulty.", success)
		}

		t.Logf("\tTest 2:\tWhen a block takes exactly the target time.")
		{
			p := newPOW(t, 3, 1, 5)

			if d := p.AdjustDifficulty(time.Second); d != 2 {
				t.Fatalf("\t%s\tTest 2:\tShould decrease the difficulty to 2, got %d.", failed, d)
			}
			t.Logf("\t%s\tTest 2:\tShould decrease the difficulty.", success)
		}
	}
}

func TestReset(t *testing.T) {
	t.Log("Given the need to restore the difficulty from a loaded chain.")
	{
		t.Logf("\tTest 0:\tWhen the value is outside of the bounds.")
		{
			p := newPOW(t, 2, 1, 5)

			if d := p.Reset(9); d != 5 {
				t.Fatalf("\t%s\tTest 0:\tShould clamp to 5, got %d.", failed, d)
			}
			if d := p.Reset(0); d != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould clamp to 1, got %d.", failed, d)
			}
			t.Logf("\t%s\tTest 0:\tShould clamp the restored difficulty.", success)
		}
	}
}

func TestNewInvalidConfig(t *testing.T) {
	type table struct {
		name string
		cfg  pow.Config
	}

	tt := []table{
		{name: "min-over-max", cfg: pow.Config{Difficulty: 2, MinDifficulty: 5, MaxDifficulty: 3, BlockTimeTarget: time.Second}},
		{name: "below-min", cfg: pow.Config{Difficulty: 0, MinDifficulty: 1, MaxDifficulty: 3, BlockTimeTarget: time.Second}},
		{name: "above-max", cfg: pow.Config{Difficulty: 4, MinDifficulty: 1, MaxDifficulty: 3, BlockTimeTarget: time.Second}},
		{name: "over-hash", cfg: pow.Config{Difficulty: 2, MinDifficulty: 1, MaxDifficulty: 65, BlockTimeTarget: time.Second}},
		{name: "no-target", cfg: pow.Config{Difficulty: 2, MinDifficulty: 1, MaxDifficulty: 3}},
	}

	t.Log("Given the need to reject bad difficulty settings.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen using config %+v.", testID, tst.cfg)
				{
					_, err := pow.New(tst.cfg)
					if !errors.Is(err, pow.ErrInvalidConfig) {
						t.Fatalf("\t%s\tTest %d:\tShould get ErrInvalidConfig, got %v.", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould get ErrInvalidConfig.", success, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}
}
