// Package pcapreplay feeds packets from a pcap capture into a flow exporter,
// turning each IPv4 TCP or UDP packet into a flow observation.
package pcapreplay

import (
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	log "github.com/sirupsen/logrus"

	"github.com/flowmesh/flowmesh/exporter"
)

var errNotFlow = errors.New("not an IPv4 TCP/UDP packet")

// Summary reports what a replay run did.
type Summary struct {
	Packets  int
	Recorded int
	Skipped  int
}

// Replay reads path to the end and records every parseable packet on exp.
// Packets that are not IPv4 TCP/UDP are counted as skipped, not errors.
func Replay(path string, exp *exporter.FlowExporter, iface string) (Summary, error) {
	var sum Summary

	f, err := os.Open(path)
	if err != nil {
		return sum, fmt.Errorf("failed to open capture: %w", err)
	}
	defer f.Close()

	r, err := pcapgo.NewReader(f)
	if err != nil {
		return sum, fmt.Errorf("failed to read pcap header: %w", err)
	}

	for {
		data, ci, err := r.ReadPacketData()
		if err == io.EOF {
			break
		}
		if err != nil {
			return sum, fmt.Errorf("failed to read packet: %w", err)
		}
		sum.Packets++

		sample, err := parsePacket(data, r.LinkType())
		if err != nil {
			sum.Skipped++
			continue
		}
		sample.Bytes = uint64(ci.Length)
		sample.IngressInterface = iface
		sample.Direction = "ingress"
		exp.RecordFlow(sample)
		sum.Recorded++
	}

	log.WithFields(log.Fields{
		"capture":  path,
		"packets":  sum.Packets,
		"recorded": sum.Recorded,
		"skipped":  sum.Skipped,
	}).Info("pcap replay finished")
	return sum, nil
}

// parsePacket extracts the 5-tuple of an IPv4 TCP/UDP packet.
func parsePacket(data []byte, linkType layers.LinkType) (exporter.FlowSample, error) {
	var sample exporter.FlowSample

	packet := gopacket.NewPacket(data, linkType, gopacket.Default)

	l := packet.Layer(layers.LayerTypeIPv4)
	if l == nil {
		return sample, errNotFlow
	}
	ip := l.(*layers.IPv4)

	src, ok := netip.AddrFromSlice(ip.SrcIP.To4())
	if !ok {
		return sample, errNotFlow
	}
	dst, ok := netip.AddrFromSlice(ip.DstIP.To4())
	if !ok {
		return sample, errNotFlow
	}
	sample.SrcIP = src
	sample.DstIP = dst
	sample.Protocol = uint8(ip.Protocol)
	sample.DSCP = ip.TOS >> 2

	if l := packet.Layer(layers.LayerTypeTCP); l != nil {
		tcp := l.(*layers.TCP)
		sample.SrcPort = uint16(tcp.SrcPort)
		sample.DstPort = uint16(tcp.DstPort)
	} else if l := packet.Layer(layers.LayerTypeUDP); l != nil {
		udp := l.(*layers.UDP)
		sample.SrcPort = uint16(udp.SrcPort)
		sample.DstPort = uint16(udp.DstPort)
	} else {
		return sample, errNotFlow
	}

	return sample, nil
}
