package flow

import (
	"time"
)

// State tracks the lifecycle of a flow record: first observation creates it
// in StateNew, later observations move it to StateActive, the expiry sweep
// moves it to StateExpired. Expired is terminal; a new observation with the
// same key creates a brand-new record.
type State uint8

const (
	StateNew State = iota
	StateActive
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateActive:
		return "active"
	case StateExpired:
		return "expired"
	}
	return "unknown"
}

// Record is the mutable aggregate for one flow. Counters only grow and
// EndTime only advances for the life of an active record; StartTime is set
// once on the first update and never changes.
type Record struct {
	Key Key `json:"key"`

	PacketCount uint64    `json:"packet-count"`
	ByteCount   uint64    `json:"byte-count"`
	StartTime   time.Time `json:"start-time"`
	EndTime     time.Time `json:"end-time"`

	IngressInterface string `json:"ingress-interface,omitempty"`
	EgressInterface  string `json:"egress-interface,omitempty"`
	DSCP             uint8  `json:"dscp"`
	ServiceClass     string `json:"service-class,omitempty"`
	SrcAS            uint32 `json:"src-as,omitempty"`
	DstAS            uint32 `json:"dst-as,omitempty"`

	ExporterID        string `json:"exporter-id,omitempty"`
	ObservationDomain uint32 `json:"observation-domain"`
	Direction         string `json:"direction,omitempty"`

	State State `json:"state"`
}

// NewRecord creates an empty record for a key. Counters and timestamps are
// populated by Update.
func NewRecord(key Key) *Record {
	return &Record{
		Key:          key,
		ServiceClass: "standard",
		Direction:    "egress",
		State:        StateNew,
	}
}

// Update folds one observation into the record at time now.
func (r *Record) Update(bytes, packets uint64, now time.Time) {
	if r.StartTime.IsZero() {
		r.StartTime = now
	}
	if now.After(r.EndTime) {
		r.EndTime = now
	}
	r.ByteCount += bytes
	r.PacketCount += packets
	if r.State == StateNew && r.PacketCount > packets {
		r.State = StateActive
	}
}

// Duration is EndTime-StartTime, zero for a record never updated.
func (r *Record) Duration() time.Duration {
	if r.StartTime.IsZero() || r.EndTime.Before(r.StartTime) {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}

// Throughput returns bytes per second over the flow duration, zero when the
// duration is zero.
func (r *Record) Throughput() float64 {
	d := r.Duration().Seconds()
	if d <= 0 {
		return 0
	}
	return float64(r.ByteCount) / d
}

// Clone returns an independent copy, safe to hand to concurrent readers.
func (r *Record) Clone() *Record {
	c := *r
	return &c
}
