package flow

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"net/netip"
)

// Key identifies a unidirectional flow by its 5-tuple. Direction matters:
// (A,B) and (B,A) are distinct flows and are never normalized or merged.
type Key struct {
	SrcIP    netip.Addr
	DstIP    netip.Addr
	SrcPort  uint16
	DstPort  uint16
	Protocol uint8
}

// NewKey builds a Key from textual addresses. Invalid addresses yield the
// zero netip.Addr, which still forms a usable (if degenerate) key.
func NewKey(srcIP, dstIP string, srcPort, dstPort uint16, proto uint8) Key {
	src, _ := netip.ParseAddr(srcIP)
	dst, _ := netip.ParseAddr(dstIP)
	return Key{
		SrcIP:    src,
		DstIP:    dst,
		SrcPort:  srcPort,
		DstPort:  dstPort,
		Protocol: proto,
	}
}

// Hash returns a structural hash over the five fields, usable for sharding
// and stable within a process run.
func (k Key) Hash() uint64 {
	h := fnv.New64a()
	src := k.SrcIP.As16()
	dst := k.DstIP.As16()
	h.Write(src[:])
	h.Write(dst[:])
	var b [5]byte
	binary.BigEndian.PutUint16(b[0:2], k.SrcPort)
	binary.BigEndian.PutUint16(b[2:4], k.DstPort)
	b[4] = k.Protocol
	h.Write(b[:])
	return h.Sum64()
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%d>%s:%d/%s", k.SrcIP, k.SrcPort, k.DstIP, k.DstPort, ProtocolName(k.Protocol))
}
