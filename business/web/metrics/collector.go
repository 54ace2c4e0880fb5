package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Stater represents the node state behaviour the collector needs. Chain
// gauges are read on scrape so they never go stale and cost nothing
// between scrapes.
type Stater interface {
	RetrieveHeight() uint64
	RetrieveDifficulty() int
	QueryMempoolLength() int
	ActivePeerCount() int
}

// NodeCollector reads chain level gauges straight from the node state
// every time prometheus scrapes the endpoint.
type NodeCollector struct {
	state Stater

	height     *prometheus.Desc
	difficulty *prometheus.Desc
	mempool    *prometheus.Desc
	peers      *prometheus.Desc
}

// RegisterNodeCollector registers the chain gauges with the default
// registry. Call once at startup.
func RegisterNodeCollector(state Stater) {
	prometheus.MustRegister(NewNodeCollector(state))
}

// NewNodeCollector constructs a collector bound to the specified state.
func NewNodeCollector(state Stater) *NodeCollector {
	return &NodeCollector{
		state: state,
		height: prometheus.NewDesc(
			prometheus.BuildFQName("ziacoin", "node", "chain_height"),
			"Index of the latest block on the canonical chain.",
			nil, nil,
		),
		difficulty: prometheus.NewDesc(
			prometheus.BuildFQName("ziacoin", "node", "difficulty"),
			"Current proof of work difficulty.",
			nil, nil,
		),
		mempool: prometheus.NewDesc(
			prometheus.BuildFQName("ziacoin", "node", "mempool_size"),
			"Number of transactions waiting in the pool.",
			nil, nil,
		),
		peers: prometheus.NewDesc(
			prometheus.BuildFQName("ziacoin", "node", "active_peers"),
			"Number of active peers in the routing table.",
			nil, nil,
		),
	}
}

// Describe implements the prometheus.Collector interface.
func (nc *NodeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- nc.height
	ch <- nc.difficulty
	ch <- nc.mempool
	ch <- nc.peers
}

// Collect implements the prometheus.Collector interface.
func (nc *NodeCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(nc.height, prometheus.GaugeValue, float64(nc.state.RetrieveHeight()))
	ch <- prometheus.MustNewConstMetric(nc.difficulty, prometheus.GaugeValue, float64(nc.state.RetrieveDifficulty()))
	ch <- prometheus.MustNewConstMetric(nc.mempool, prometheus.GaugeValue, float64(nc.state.QueryMempoolLength()))
	ch <- prometheus.MustNewConstMetric(nc.peers, prometheus.GaugeValue, float64(nc.state.ActivePeerCount()))
}
