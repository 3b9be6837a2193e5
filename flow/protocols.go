package flow

import "fmt"

// IP protocol numbers used by the simulated routing plane.
const (
	ProtoICMP uint8 = 1
	ProtoTCP  uint8 = 6
	ProtoUDP  uint8 = 17
	ProtoGRE  uint8 = 47
	ProtoESP  uint8 = 50
	ProtoAH   uint8 = 51
	ProtoOSPF uint8 = 89
	ProtoSCTP uint8 = 132
)

var protocolNames = map[uint8]string{
	ProtoICMP: "ICMP",
	ProtoTCP:  "TCP",
	ProtoUDP:  "UDP",
	ProtoGRE:  "GRE",
	ProtoESP:  "ESP",
	ProtoAH:   "AH",
	ProtoOSPF: "OSPF",
	ProtoSCTP: "SCTP",
}

// ProtocolName returns the display name of an IP protocol number,
// "IP-{n}" for anything unlisted. Display only, never identity.
func ProtocolName(proto uint8) string {
	if name, ok := protocolNames[proto]; ok {
		return name
	}
	return fmt.Sprintf("IP-%d", proto)
}

// ControlProtocol maps a routing-protocol name to the IP protocol and
// well-known port its sessions run over.
type ControlProtocol struct {
	Protocol uint8
	Port     uint16
}

var controlProtocols = map[string]ControlProtocol{
	"bgp":  {ProtoTCP, 179},
	"ldp":  {ProtoTCP, 646},
	"bfd":  {ProtoUDP, 3784},
	"ospf": {ProtoOSPF, 0},
	"rsvp": {46, 0},
	"pim":  {103, 0},
	"vrrp": {112, 0},
}

// LookupControlProtocol resolves a routing-protocol name. Unknown names fall
// back to raw IP (protocol 0, port 0) rather than failing, matching the
// permissive producer interface.
func LookupControlProtocol(name string) ControlProtocol {
	if cp, ok := controlProtocols[name]; ok {
		return cp
	}
	return ControlProtocol{}
}
