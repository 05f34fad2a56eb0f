package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "armctl"

// Collector exports a Metrics value to Prometheus. Each scrape takes one
// Snapshot so exported counters are mutually consistent.
type Collector struct {
	m *Metrics

	counters []counterDesc
	rate     *prometheus.Desc
}

type counterDesc struct {
	desc  *prometheus.Desc
	value func(Snapshot) uint64
}

var _ prometheus.Collector = (*Collector)(nil)

func NewCollector(m *Metrics, constLabels prometheus.Labels) *Collector {
	newDesc := func(subsystem, name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystem, name), help, nil, constLabels)
	}
	return &Collector{
		m: m,
		counters: []counterDesc{
			{newDesc("rx", "frames_total", "Frames received from the transport."), func(s Snapshot) uint64 { return s.RxTotal }},
			{newDesc("rx", "valid_total", "Received frames routed into state."), func(s Snapshot) uint64 { return s.RxValid }},
			{newDesc("rx", "filtered_total", "Received frames dropped as local echoes."), func(s Snapshot) uint64 { return s.RxFiltered }},
			{newDesc("rx", "invalid_total", "Received frames dropped as malformed."), func(s Snapshot) uint64 { return s.RxInvalid }},
			{newDesc("tx", "accepted_total", "Commands accepted for transmission."), func(s Snapshot) uint64 { return s.TxTotal }},
			{newDesc("tx", "sent_total", "Frames written to the transport."), func(s Snapshot) uint64 { return s.TxSent }},
			{newDesc("tx", "overwrites_total", "Realtime commands superseded before send."), func(s Snapshot) uint64 { return s.TxOverwrites }},
			{newDesc("tx", "reliable_rejects_total", "Reliable commands refused because the queue was full."), func(s Snapshot) uint64 { return s.TxReliableDrops }},
			{newDesc("tx", "abandoned_total", "Accepted reliable commands not written before shutdown."), func(s Snapshot) uint64 { return s.TxAbandoned }},
			{newDesc("link", "device_errors_total", "Fatal transport errors."), func(s Snapshot) uint64 { return s.DeviceErrors }},
			{newDesc("link", "timeouts_total", "Transport waits that ended without traffic."), func(s Snapshot) uint64 { return s.Timeouts }},
			{newDesc("state", "group_discards_total", "Frame groups discarded incomplete."), func(s Snapshot) uint64 { return s.GroupDiscards }},
		},
		rate: newDesc("tx", "overwrite_rate_percent", "Mailbox overwrite rate derived from one snapshot."),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, cd := range c.counters {
		ch <- cd.desc
	}
	ch <- c.rate
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.m.Snapshot()
	for _, cd := range c.counters {
		ch <- prometheus.MustNewConstMetric(cd.desc, prometheus.CounterValue, float64(cd.value(snap)))
	}
	ch <- prometheus.MustNewConstMetric(c.rate, prometheus.GaugeValue, snap.OverwriteRate())
}
