package runtime

import "sync/atomic"

// Properties holds the runtime toggles operators can flip without a restart.
// All fields are atomics; toggles apply to every in-flight request on the
// next read, no coordination with other replicas is attempted.
type Properties struct {
	ledgerEnabled  atomic.Bool
	archiveEnabled atomic.Bool
	eventsEnabled  atomic.Bool

	processing atomic.Int64
	received   atomic.Int64
}

// NewProperties returns properties with every toggle enabled.
func NewProperties() *Properties {
	p := &Properties{}
	p.ledgerEnabled.Store(true)
	p.archiveEnabled.Store(true)
	p.eventsEnabled.Store(true)
	return p
}

// LedgerEnabled reports whether submissions are being accepted.
func (p *Properties) LedgerEnabled() bool {
	return p.ledgerEnabled.Load()
}

// SetLedgerEnabled flips submission acceptance.
func (p *Properties) SetLedgerEnabled(enabled bool) {
	p.ledgerEnabled.Store(enabled)
}

// ArchiveEnabled reports whether decisions are archived to the database.
func (p *Properties) ArchiveEnabled() bool {
	return p.archiveEnabled.Load()
}

// SetArchiveEnabled flips decision archiving.
func (p *Properties) SetArchiveEnabled(enabled bool) {
	p.archiveEnabled.Store(enabled)
}

// EventsEnabled reports whether decision events are published.
func (p *Properties) EventsEnabled() bool {
	return p.eventsEnabled.Load()
}

// SetEventsEnabled flips decision event publishing.
func (p *Properties) SetEventsEnabled(enabled bool) {
	p.eventsEnabled.Store(enabled)
}

// BeginProcessing marks one submission in flight and counts it as received.
func (p *Properties) BeginProcessing() {
	p.received.Add(1)
	p.processing.Add(1)
}

// EndProcessing marks one submission finished.
func (p *Properties) EndProcessing() {
	p.processing.Add(-1)
}

// Processing returns the number of submissions currently in flight.
func (p *Properties) Processing() int64 {
	return p.processing.Load()
}

// Received returns the number of submissions accepted since start.
func (p *Properties) Received() int64 {
	return p.received.Load()
}
