package metrics

import (
	"sync/atomic"
	"time"
)

// OverwriteWarnPercent is the mailbox overwrite rate above which the
// transport is reported as a bottleneck.
const OverwriteWarnPercent = 50.0

// Metrics holds the pipeline counters. Every counter is independently
// atomic and only ever increases.
type Metrics struct {
	rxTotal         atomic.Uint64
	rxValid         atomic.Uint64
	rxFiltered      atomic.Uint64
	rxInvalid       atomic.Uint64
	txTotal         atomic.Uint64
	txSent          atomic.Uint64
	txOverwrites    atomic.Uint64
	txReliableDrops atomic.Uint64
	txAbandoned     atomic.Uint64
	deviceErrors    atomic.Uint64
	timeouts        atomic.Uint64
	groupDiscards   atomic.Uint64
}

func New() *Metrics {
	return &Metrics{}
}

func (m *Metrics) RxReceived()     { m.rxTotal.Add(1) }
func (m *Metrics) RxValid()        { m.rxValid.Add(1) }
func (m *Metrics) RxFiltered()     { m.rxFiltered.Add(1) }
func (m *Metrics) RxInvalid()      { m.rxInvalid.Add(1) }
func (m *Metrics) TxAccepted()     { m.txTotal.Add(1) }
func (m *Metrics) TxSent()         { m.txSent.Add(1) }
func (m *Metrics) TxOverwrite()    { m.txOverwrites.Add(1) }
func (m *Metrics) ReliableReject() { m.txReliableDrops.Add(1) }

// ReliableAbandoned counts accepted reliable frames that were never written
// because the pipeline stopped first.
func (m *Metrics) ReliableAbandoned() { m.txAbandoned.Add(1) }
func (m *Metrics) DeviceError()    { m.deviceErrors.Add(1) }
func (m *Metrics) Timeout()        { m.timeouts.Add(1) }

// GroupDiscarded counts frame groups dropped by the assembler timeout.
func (m *Metrics) GroupDiscarded() { m.groupDiscards.Add(1) }

// Snapshot copies every counter once. Ratios are derived from the copy.
// Each part counter is loaded before the total it divides, and writers bump
// totals first, so a derived ratio never exceeds 100%.
func (m *Metrics) Snapshot() Snapshot {
	var s Snapshot
	s.RxValid = m.rxValid.Load()
	s.RxFiltered = m.rxFiltered.Load()
	s.RxInvalid = m.rxInvalid.Load()
	s.RxTotal = m.rxTotal.Load()
	s.TxSent = m.txSent.Load()
	s.TxOverwrites = m.txOverwrites.Load()
	s.TxReliableDrops = m.txReliableDrops.Load()
	s.TxAbandoned = m.txAbandoned.Load()
	s.TxTotal = m.txTotal.Load()
	s.DeviceErrors = m.deviceErrors.Load()
	s.Timeouts = m.timeouts.Load()
	s.GroupDiscards = m.groupDiscards.Load()
	s.TakenAt = time.Now()
	return s
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	RxTotal         uint64    `json:"rx_total"`
	RxValid         uint64    `json:"rx_valid"`
	RxFiltered      uint64    `json:"rx_filtered"`
	RxInvalid       uint64    `json:"rx_invalid"`
	TxTotal         uint64    `json:"tx_total"`
	TxSent          uint64    `json:"tx_sent"`
	TxOverwrites    uint64    `json:"tx_overwrites"`
	TxReliableDrops uint64    `json:"tx_reliable_drops"`
	TxAbandoned     uint64    `json:"tx_abandoned"`
	DeviceErrors    uint64    `json:"device_errors"`
	Timeouts        uint64    `json:"timeouts"`
	GroupDiscards   uint64    `json:"group_discards"`
	TakenAt         time.Time `json:"taken_at"`
}

// OverwriteRate is the percentage of accepted commands that were superseded
// in the mailbox before being sent.
func (s Snapshot) OverwriteRate() float64 {
	return percent(s.TxOverwrites, s.TxTotal)
}

// OverwriteAbnormal reports a transport that cannot keep up with the
// realtime producer. It is a warning, not a failure.
func (s Snapshot) OverwriteAbnormal() bool {
	return s.OverwriteRate() > OverwriteWarnPercent
}

// RxFilterRate is the percentage of received frames dropped as echoes.
func (s Snapshot) RxFilterRate() float64 {
	return percent(s.RxFiltered, s.RxTotal)
}

// Delta returns the counter growth from prev to s.
func (s Snapshot) Delta(prev Snapshot) Snapshot {
	return Snapshot{
		RxTotal:         s.RxTotal - prev.RxTotal,
		RxValid:         s.RxValid - prev.RxValid,
		RxFiltered:      s.RxFiltered - prev.RxFiltered,
		RxInvalid:       s.RxInvalid - prev.RxInvalid,
		TxTotal:         s.TxTotal - prev.TxTotal,
		TxSent:          s.TxSent - prev.TxSent,
		TxOverwrites:    s.TxOverwrites - prev.TxOverwrites,
		TxReliableDrops: s.TxReliableDrops - prev.TxReliableDrops,
		TxAbandoned:     s.TxAbandoned - prev.TxAbandoned,
		DeviceErrors:    s.DeviceErrors - prev.DeviceErrors,
		Timeouts:        s.Timeouts - prev.Timeouts,
		GroupDiscards:   s.GroupDiscards - prev.GroupDiscards,
		TakenAt:         s.TakenAt,
	}
}

func percent(num, den uint64) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den) * 100
}
