package pcapreplay

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/flowmesh/exporter"
	"github.com/flowmesh/flowmesh/flow"
)

func writeCapture(t *testing.T, packets [][]gopacket.SerializableLayer) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.pcap")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))

	for _, stack := range packets {
		buf := gopacket.NewSerializeBuffer()
		opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
		require.NoError(t, gopacket.SerializeLayers(buf, opts, stack...))
		data := buf.Bytes()
		require.NoError(t, w.WritePacket(gopacket.CaptureInfo{
			Timestamp:     time.Now(),
			CaptureLength: len(data),
			Length:        len(data),
		}, data))
	}
	return path
}

func tcpPacket(src, dst string, srcPort, dstPort layers.TCPPort, payload int) []gopacket.SerializableLayer {
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		DstMAC:       net.HardwareAddr{0x00, 0x66, 0x77, 0x88, 0x99, 0xaa},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		SrcIP:    net.ParseIP(src),
		DstIP:    net.ParseIP(dst),
		Protocol: layers.IPProtocolTCP,
	}
	tcp := &layers.TCP{SrcPort: srcPort, DstPort: dstPort}
	tcp.SetNetworkLayerForChecksum(ip)
	return []gopacket.SerializableLayer{eth, ip, tcp, gopacket.Payload(make([]byte, payload))}
}

func arpPacket() []gopacket.SerializableLayer {
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		DstMAC:       net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		EthernetType: layers.EthernetTypeARP,
	}
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		SourceProtAddress: []byte{10, 0, 0, 1},
		DstHwAddress:      []byte{0, 0, 0, 0, 0, 0},
		DstProtAddress:    []byte{10, 0, 0, 2},
	}
	return []gopacket.SerializableLayer{eth, arp}
}

func TestReplayAggregatesByTuple(t *testing.T) {
	path := writeCapture(t, [][]gopacket.SerializableLayer{
		tcpPacket("10.0.0.1", "10.0.0.2", 49152, 443, 100),
		tcpPacket("10.0.0.1", "10.0.0.2", 49152, 443, 200),
		tcpPacket("10.0.0.2", "10.0.0.1", 443, 49152, 50),
		arpPacket(),
	})

	exp := exporter.NewFlowExporter("replay", exporter.Config{})
	sum, err := Replay(path, exp, "ge-0/0/0")
	require.NoError(t, err)

	assert.Equal(t, 4, sum.Packets)
	assert.Equal(t, 3, sum.Recorded)
	assert.Equal(t, 1, sum.Skipped)

	flows := exp.GetActiveFlows()
	require.Len(t, flows, 2)

	byKey := make(map[flow.Key]*flow.Record)
	for _, f := range flows {
		byKey[f.Key] = f
	}
	fwd := byKey[flow.NewKey("10.0.0.1", "10.0.0.2", 49152, 443, flow.ProtoTCP)]
	require.NotNil(t, fwd)
	assert.Equal(t, uint64(2), fwd.PacketCount)
	assert.Equal(t, "ge-0/0/0", fwd.IngressInterface)
	assert.Equal(t, "ingress", fwd.Direction)

	rev := byKey[flow.NewKey("10.0.0.2", "10.0.0.1", 443, 49152, flow.ProtoTCP)]
	require.NotNil(t, rev)
	assert.Equal(t, uint64(1), rev.PacketCount)
}

func TestReplayMissingFile(t *testing.T) {
	exp := exporter.NewFlowExporter("replay", exporter.Config{})
	_, err := Replay(filepath.Join(t.TempDir(), "nope.pcap"), exp, "eth0")
	assert.Error(t, err)
}
