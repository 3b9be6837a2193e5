package flow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordUpdate(t *testing.T) {
	key := NewKey("10.0.0.1", "10.0.0.2", 179, 49152, ProtoTCP)
	r := NewRecord(key)

	t0 := time.Unix(1700000000, 0)
	r.Update(1500, 1, t0)
	require.Equal(t, t0, r.StartTime)
	require.Equal(t, t0, r.EndTime)
	require.Equal(t, uint64(1500), r.ByteCount)
	require.Equal(t, uint64(1), r.PacketCount)

	t1 := t0.Add(10 * time.Second)
	r.Update(1500, 1, t1)
	assert.Equal(t, t0, r.StartTime, "start time must not move")
	assert.Equal(t, t1, r.EndTime)
	assert.Equal(t, uint64(3000), r.ByteCount)
	assert.Equal(t, uint64(2), r.PacketCount)
	assert.Equal(t, StateActive, r.State)
}

func TestRecordUpdateOutOfOrder(t *testing.T) {
	r := NewRecord(NewKey("10.0.0.1", "10.0.0.2", 1, 2, ProtoUDP))
	t0 := time.Unix(1700000000, 0)
	r.Update(100, 1, t0)
	r.Update(100, 1, t0.Add(-time.Second))
	assert.Equal(t, t0, r.EndTime, "end time never goes backwards")
}

func TestRecordDerived(t *testing.T) {
	r := NewRecord(NewKey("10.0.0.1", "10.0.0.2", 1, 2, ProtoUDP))
	assert.Zero(t, r.Duration())
	assert.Zero(t, r.Throughput(), "no divide by zero on empty record")

	t0 := time.Unix(1700000000, 0)
	r.Update(1000, 1, t0)
	assert.Zero(t, r.Throughput(), "single observation has zero duration")

	r.Update(1000, 1, t0.Add(2*time.Second))
	assert.Equal(t, 2*time.Second, r.Duration())
	assert.InDelta(t, 1000.0, r.Throughput(), 0.01)
}

func TestKeyAsymmetry(t *testing.T) {
	ab := NewKey("10.0.0.1", "10.0.0.2", 179, 49152, ProtoTCP)
	ba := NewKey("10.0.0.2", "10.0.0.1", 49152, 179, ProtoTCP)
	assert.NotEqual(t, ab, ba, "flows are unidirectional")
	assert.NotEqual(t, ab.Hash(), ba.Hash())
	assert.Equal(t, ab, NewKey("10.0.0.1", "10.0.0.2", 179, 49152, ProtoTCP))
}

func TestProtocolName(t *testing.T) {
	assert.Equal(t, "TCP", ProtocolName(6))
	assert.Equal(t, "OSPF", ProtocolName(89))
	assert.Equal(t, "IP-200", ProtocolName(200))
}

func TestLookupControlProtocol(t *testing.T) {
	bgp := LookupControlProtocol("bgp")
	assert.Equal(t, ProtoTCP, bgp.Protocol)
	assert.Equal(t, uint16(179), bgp.Port)

	bfd := LookupControlProtocol("bfd")
	assert.Equal(t, ProtoUDP, bfd.Protocol)
	assert.Equal(t, uint16(3784), bfd.Port)

	assert.Zero(t, LookupControlProtocol("carrier-pigeon"))
}

func TestTopRecords(t *testing.T) {
	mk := func(bytes, packets uint64) *Record {
		r := NewRecord(NewKey("10.0.0.1", "10.0.0.2", 1, 2, ProtoUDP))
		t0 := time.Unix(1700000000, 0)
		r.Update(bytes, packets, t0)
		r.Update(0, 0, t0.Add(time.Second))
		return r
	}
	records := []*Record{mk(100, 50), mk(300, 10), mk(200, 20)}

	top := TopRecords(records, 2, SortByBytes)
	require.Len(t, top, 2)
	assert.Equal(t, uint64(300), top[0].ByteCount)

	top = TopRecords(records, 0, SortByPackets)
	assert.Equal(t, uint64(50), top[0].PacketCount)
}
