package collector

import (
	"fmt"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/flowmesh/decoders/ipfix"
	"github.com/flowmesh/flowmesh/flow"
)

func encodedFlow(t *testing.T, tmpl ipfix.TemplateRecord) []byte {
	t.Helper()
	r := flow.NewRecord(flow.NewKey("10.0.0.1", "10.0.0.2", 179, 49152, flow.ProtoTCP))
	r.Update(1500, 1, time.Unix(1700000000, 0).UTC())
	r.DSCP = 48
	return ipfix.EncodeFlowRecord(tmpl, r, nil)
}

func TestParseMessageTemplateThenData(t *testing.T) {
	c := NewFlowCollector(Config{})
	tmpl := ipfix.FlowTemplate(256)
	data := encodedFlow(t, tmpl)

	msg := ipfix.EncodeMessage(42, 0, 1700000000, &tmpl, 256, [][]byte{data})
	records := c.ParseMessage(msg, "192.0.2.1")
	require.Len(t, records, 1)
	assert.Equal(t, uint64(1500), records[0].ByteCount)
	assert.Equal(t, uint32(42), records[0].ObservationDomain)

	stats := c.GetStatistics()
	assert.Equal(t, 1, stats.Sources)
	assert.Equal(t, 1, stats.StoredFlows)
	assert.Equal(t, 1, stats.Templates)
}

func TestParseMessageUnknownTemplate(t *testing.T) {
	c := NewFlowCollector(Config{})
	tmpl := ipfix.FlowTemplate(256)
	data := encodedFlow(t, tmpl)

	// data set only: no template was ever announced
	msg := ipfix.EncodeMessage(42, 0, 1700000000, nil, 256, [][]byte{data})
	records := c.ParseMessage(msg, "192.0.2.1")
	assert.Empty(t, records)
	assert.Empty(t, c.GetFlowsBySource("192.0.2.1"))
}

func TestParseMessageTemplatePerDomain(t *testing.T) {
	c := NewFlowCollector(Config{})
	tmpl := ipfix.FlowTemplate(256)
	data := encodedFlow(t, tmpl)

	// template learned for domain 42 does not apply to domain 43
	c.ParseMessage(ipfix.EncodeMessage(42, 0, 1700000000, &tmpl, 256, nil), "192.0.2.1")
	records := c.ParseMessage(ipfix.EncodeMessage(43, 0, 1700000000, nil, 256, [][]byte{data}), "192.0.2.1")
	assert.Empty(t, records)

	records = c.ParseMessage(ipfix.EncodeMessage(42, 0, 1700000000, nil, 256, [][]byte{data}), "192.0.2.1")
	assert.Len(t, records, 1)
}

func TestParseMessageDrops(t *testing.T) {
	c := NewFlowCollector(Config{})

	assert.Empty(t, c.ParseMessage([]byte{0x00, 0x0a, 0x00}, "192.0.2.1"), "undersized")

	bad := make([]byte, 16)
	bad[1] = 9 // NetFlow v9, not IPFIX
	assert.Empty(t, c.ParseMessage(bad, "192.0.2.1"), "unsupported version")

	stats := c.GetStatistics()
	assert.Zero(t, stats.StoredFlows)
}

func TestStoreTrimsPerSource(t *testing.T) {
	c := NewFlowCollector(Config{})
	records := make([]*flow.Record, 0, 600)
	for i := 0; i < 600; i++ {
		r := flow.NewRecord(flow.NewKey("10.0.0.1", "10.0.0.2", uint16(i), 80, flow.ProtoTCP))
		records = append(records, r)
	}
	for i := 0; i < 17; i++ {
		c.store("192.0.2.1", records)
	}
	stored := c.GetFlowsBySource("192.0.2.1")
	assert.LessOrEqual(t, len(stored), MaxFlowsPerSource)
	// 17*600 = 10200 crosses the bound exactly once: trimmed to 5000
	assert.Equal(t, TrimTo, len(stored))
}

func TestSnapshotsAreCopies(t *testing.T) {
	c := NewFlowCollector(Config{})
	tmpl := ipfix.FlowTemplate(256)
	data := encodedFlow(t, tmpl)
	c.ParseMessage(ipfix.EncodeMessage(42, 0, 1700000000, &tmpl, 256, [][]byte{data}), "192.0.2.1")

	snap := c.GetFlows()
	require.Len(t, snap, 1)
	snap[0].ByteCount = 0

	again := c.GetFlows()
	assert.Equal(t, uint64(1500), again[0].ByteCount)
}

func TestCollectorReceive(t *testing.T) {
	c := NewFlowCollector(Config{Addr: "127.0.0.1", Port: freePort(t), Workers: 1})
	require.NoError(t, c.Start())
	defer c.Stop()

	tmpl := ipfix.FlowTemplate(256)
	data := encodedFlow(t, tmpl)
	msg := ipfix.EncodeMessage(42, 0, 1700000000, &tmpl, 256, [][]byte{data})

	conn, err := net.Dial("udp", fmt.Sprintf("127.0.0.1:%d", c.cfg.Port))
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write(msg)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return c.GetStatistics().StoredFlows == 1
	}, 2*time.Second, 10*time.Millisecond)

	src := c.GetSources()
	require.Len(t, src, 1)
	flows := c.GetFlowsBySource(src[0])
	require.Len(t, flows, 1)
	assert.Equal(t, netip.MustParseAddr("10.0.0.1"), flows[0].Key.SrcIP)
}

func TestCollectorBindFailure(t *testing.T) {
	port := freePort(t)
	c1 := NewFlowCollector(Config{Addr: "127.0.0.1", Port: port})
	require.NoError(t, c1.Start())
	defer c1.Stop()

	// second bind without reuseport semantics on the same socket pair may
	// succeed thanks to SO_REUSEPORT; an invalid address must not
	c2 := NewFlowCollector(Config{Addr: "256.0.0.1", Port: port})
	assert.Error(t, c2.Start())
}

func freePort(t *testing.T) int {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	port := conn.LocalAddr().(*net.UDPAddr).Port
	conn.Close()
	return port
}
