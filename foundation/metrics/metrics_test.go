package metrics_test

import (
	"testing"
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/state"
	"github.com/ardanlabs/powledger/foundation/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

type fixedStats state.MiningStats

func (fs fixedStats) RetrieveMiningStats() state.MiningStats {
	return state.MiningStats(fs)
}

func TestLedgerCollector(t *testing.T) {
	t.Log("Given the need to expose the mining counters to prometheus.")
	{
		t.Logf("\tTest 0:\tWhen gathering from a registry.")
		{
			stats := fixedStats{
				Attempts:     1500,
				BlocksMined:  3,
				LastDuration: 2 * time.Second,
				Difficulty:   4,
				Height:       3,
				MempoolCount: 2,
				Halted:       true,
			}

			reg := prometheus.NewRegistry()
			if err := metrics.Register(reg, stats); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to register the collector: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to register the collector.", success)

			families, err := reg.Gather()
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to gather: %v", failed, err)
			}

			exp := map[string]float64{
				"powledger_chain_height":                 3,
				"powledger_chain_difficulty":             4,
				"powledger_mempool_transactions":         2,
				"powledger_mining_attempts_total":        1500,
				"powledger_mining_blocks_total":          3,
				"powledger_mining_last_duration_seconds": 2,
				"powledger_mining_halted":                1,
			}

			got := make(map[string]float64)
			for _, mf := range families {
				m := mf.GetMetric()[0]
				switch {
				case m.GetGauge() != nil:
					got[mf.GetName()] = m.GetGauge().GetValue()
				case m.GetCounter() != nil:
					got[mf.GetName()] = m.GetCounter().GetValue()
				}
			}

			for name, value := range exp {
				if got[name] != value {
					t.Fatalf("\t%s\tTest 0:\tShould have %s = %v, got %v.", failed, name, value, got[name])
				}
			}
			t.Logf("\t%s\tTest 0:\tShould report every counter.", success)

			if len(families) != 9 {
				t.Fatalf("\t%s\tTest 0:\tShould have 9 metrics, got %d.", failed, len(families))
			}
			t.Logf("\t%s\tTest 0:\tShould have 9 metrics.", success)

			if err := metrics.Register(reg, stats); err == nil {
				t.Fatalf("\t%s\tTest 0:\tShould not register the collector twice.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould not register the collector twice.", success)
		}
	}
}
