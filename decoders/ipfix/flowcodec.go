package ipfix

import (
	"bytes"
	"fmt"
	"net/netip"
	"time"

	"github.com/flowmesh/flowmesh/decoders/utils"
	"github.com/flowmesh/flowmesh/flow"
)

// Flow direction values for IE 61.
const (
	DirectionIngress uint8 = 0
	DirectionEgress  uint8 = 1
)

// EncodeFlowRecord serializes one flow record following the template's field
// order and declared lengths. Interface names are carried as numeric indices
// resolved through ifIndex; a nil ifIndex encodes zero.
func EncodeFlowRecord(template TemplateRecord, r *flow.Record, ifIndex func(string) uint32) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, template.DataLength()))
	for _, field := range template.Fields {
		switch field.Type {
		case IESourceIPv4Address:
			writeAddr(buf, r.Key.SrcIP)
		case IEDestinationIPv4Address:
			writeAddr(buf, r.Key.DstIP)
		case IESourceTransportPort:
			utils.WriteU16(buf, r.Key.SrcPort)
		case IEDestinationTransportPort:
			utils.WriteU16(buf, r.Key.DstPort)
		case IEProtocolIdentifier:
			utils.WriteU8(buf, r.Key.Protocol)
		case IEOctetDeltaCount:
			writeCounter(buf, field.Length, r.ByteCount)
		case IEPacketDeltaCount:
			writeCounter(buf, field.Length, r.PacketCount)
		case IEFlowStartSeconds:
			utils.WriteU32(buf, unixSeconds(r.StartTime))
		case IEFlowEndSeconds:
			utils.WriteU32(buf, unixSeconds(r.EndTime))
		case IEIPDiffServCodePoint:
			utils.WriteU8(buf, r.DSCP)
		case IEIngressInterface:
			utils.WriteU32(buf, resolveIf(ifIndex, r.IngressInterface))
		case IEEgressInterface:
			utils.WriteU32(buf, resolveIf(ifIndex, r.EgressInterface))
		case IEBgpSourceAsNumber:
			utils.WriteU32(buf, r.SrcAS)
		case IEBgpDestinationAsNumber:
			utils.WriteU32(buf, r.DstAS)
		case IEFlowDirection:
			if r.Direction == "ingress" {
				utils.WriteU8(buf, DirectionIngress)
			} else {
				utils.WriteU8(buf, DirectionEgress)
			}
		default:
			// Unknown element in a foreign template: zero fill.
			buf.Write(make([]byte, int(field.Length)))
		}
	}
	return buf.Bytes()
}

// DecodeFlowRecord rebuilds a flow record from one decoded data record.
// Field selection is type-aware by information element id and declared
// length, mirroring EncodeFlowRecord.
func DecodeFlowRecord(record DataRecord, obsDomainID uint32) *flow.Record {
	r := flow.NewRecord(flow.Key{})
	r.ObservationDomain = obsDomainID
	for _, v := range record.Values {
		switch v.Type {
		case IESourceIPv4Address:
			r.Key.SrcIP = readAddr(v.Value)
		case IEDestinationIPv4Address:
			r.Key.DstIP = readAddr(v.Value)
		case IESourceTransportPort:
			r.Key.SrcPort = uint16(utils.DecodeUNumber(v.Value))
		case IEDestinationTransportPort:
			r.Key.DstPort = uint16(utils.DecodeUNumber(v.Value))
		case IEProtocolIdentifier:
			r.Key.Protocol = uint8(utils.DecodeUNumber(v.Value))
		case IEOctetDeltaCount:
			r.ByteCount = utils.DecodeUNumber(v.Value)
		case IEPacketDeltaCount:
			r.PacketCount = utils.DecodeUNumber(v.Value)
		case IEFlowStartSeconds:
			r.StartTime = time.Unix(int64(utils.DecodeUNumber(v.Value)), 0).UTC()
		case IEFlowEndSeconds:
			r.EndTime = time.Unix(int64(utils.DecodeUNumber(v.Value)), 0).UTC()
		case IEIPDiffServCodePoint:
			r.DSCP = uint8(utils.DecodeUNumber(v.Value))
		case IEIngressInterface:
			r.IngressInterface = ifName(uint32(utils.DecodeUNumber(v.Value)))
		case IEEgressInterface:
			r.EgressInterface = ifName(uint32(utils.DecodeUNumber(v.Value)))
		case IEBgpSourceAsNumber:
			r.SrcAS = uint32(utils.DecodeUNumber(v.Value))
		case IEBgpDestinationAsNumber:
			r.DstAS = uint32(utils.DecodeUNumber(v.Value))
		case IEFlowDirection:
			if uint8(utils.DecodeUNumber(v.Value)) == DirectionIngress {
				r.Direction = "ingress"
			} else {
				r.Direction = "egress"
			}
		}
	}
	r.State = flow.StateActive
	return r
}

func writeAddr(buf *bytes.Buffer, addr netip.Addr) {
	if addr.Is4() {
		b := addr.As4()
		buf.Write(b[:])
		return
	}
	buf.Write(make([]byte, 4))
}

func readAddr(b []byte) netip.Addr {
	if len(b) != 4 {
		return netip.Addr{}
	}
	return netip.AddrFrom4([4]byte(b))
}

func writeCounter(buf *bytes.Buffer, length uint16, v uint64) {
	if length == 4 {
		utils.WriteU32(buf, uint32(v))
		return
	}
	utils.WriteU64(buf, v)
}

func resolveIf(ifIndex func(string) uint32, name string) uint32 {
	if ifIndex == nil || name == "" {
		return 0
	}
	return ifIndex(name)
}

func ifName(index uint32) string {
	if index == 0 {
		return ""
	}
	return fmt.Sprintf("if%d", index)
}

func unixSeconds(t time.Time) uint32 {
	if t.IsZero() {
		return 0
	}
	return uint32(t.Unix())
}
