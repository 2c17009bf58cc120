// Package metrics provides prometheus collectors for the ledger.
package metrics

import (
	"github.com/ardanlabs/powledger/foundation/blockchain/state"
	"github.com/prometheus/client_golang/prometheus"
)

// namespace is the prefix for every metric name.
const namespace = "powledger"

// StatsRetriever is the behavior required to read the mining counters.
type StatsRetriever interface {
	RetrieveMiningStats() state.MiningStats
}

// LedgerCollector is a prometheus collector that reads the mining counters
// from the state on every scrape.
type LedgerCollector struct {
	retriever StatsRetriever

	height       *prometheus.Desc
	difficulty   *prometheus.Desc
	mempoolCount *prometheus.Desc
	attempts     *prometheus.Desc
	blocksMined  *prometheus.Desc
	failures     *prometheus.Desc
	exhausted    *prometheus.Desc
	lastDuration *prometheus.Desc
	halted       *prometheus.Desc
}

// NewLedgerCollector constructs a collector for the specified state.
func NewLedgerCollector(retriever StatsRetriever) *LedgerCollector {
	desc := func(subsystem string, name string, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystem, name), help, nil, nil)
	}

	return &LedgerCollector{
		retriever:    retriever,
		height:       desc("chain", "height", "Index of the latest block"),
		difficulty:   desc("chain", "difficulty", "Difficulty the next block will be mined at"),
		mempoolCount: desc("mempool", "transactions", "Number of transactions waiting in the mempool"),
		attempts:     desc("mining", "attempts_total", "Number of hashes computed while mining"),
		blocksMined:  desc("mining", "blocks_total", "Number of blocks mined"),
		failures:     desc("mining", "persist_failures_total", "Number of mined blocks discarded because storage failed"),
		exhausted:    desc("mining", "budget_exhausted_total", "Number of mining attempts that ran out of budget"),
		lastDuration: desc("mining", "last_duration_seconds", "Time taken to mine the latest block"),
		halted:       desc("mining", "halted", "Set to 1 when mining is halted because of corruption"),
	}
}

// Describe implements the prometheus.Collector interface.
func (c *LedgerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.height
	ch <- c.difficulty
	ch <- c.mempoolCount
	ch <- c.attempts
	ch <- c.blocksMined
	ch <- c.failures
	ch <- c.exhausted
	ch <- c.lastDuration
	ch <- c.halted
}

// Collect implements the prometheus.Collector interface.
func (c *LedgerCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.retriever.RetrieveMiningStats()

	var halted float64
	if stats.Halted {
		halted = 1
	}

	ch <- prometheus.MustNewConstMetric(c.height, prometheus.GaugeValue, float64(stats.Height))
	ch <- prometheus.MustNewConstMetric(c.difficulty, prometheus.GaugeValue, float64(stats.Difficulty))
	ch <- prometheus.MustNewConstMetric(c.mempoolCount, prometheus.GaugeValue, float64(stats.MempoolCount))
	ch <- prometheus.MustNewConstMetric(c.attempts, prometheus.CounterValue, float64(stats.Attempts))
	ch <- prometheus.MustNewConstMetric(c.blocksMined, prometheus.CounterValue, float64(stats.BlocksMined))
	ch <- prometheus.MustNewConstMetric(c.failures, prometheus.CounterValue, float64(stats.Failures))
	ch <- prometheus.MustNewConstMetric(c.exhausted, prometheus.CounterValue, float64(stats.Exhausted))
	ch <- prometheus.MustNewConstMetric(c.lastDuration, prometheus.GaugeValue, stats.LastDuration.Seconds())
	ch <- prometheus.MustNewConstMetric(c.halted, prometheus.GaugeValue, halted)
}

// =============================================================================

// Register adds the ledger collector to the registerer.
func Register(reg prometheus.Registerer, retriever StatsRetriever) error {
	return reg.Register(NewLedgerCollector(retriever))
}
