package ipfix

import "fmt"

// IANA information element ids used by the flow template. Only the elements
// the platform exports are listed; anything else decodes as an opaque number.
const (
	IEOctetDeltaCount          uint16 = 1
	IEPacketDeltaCount         uint16 = 2
	IEProtocolIdentifier       uint16 = 4
	IESourceTransportPort      uint16 = 7
	IESourceIPv4Address        uint16 = 8
	IEIngressInterface         uint16 = 10
	IEDestinationTransportPort uint16 = 11
	IEDestinationIPv4Address   uint16 = 12
	IEEgressInterface          uint16 = 14
	IEBgpSourceAsNumber        uint16 = 16
	IEBgpDestinationAsNumber   uint16 = 17
	IEFlowDirection            uint16 = 61
	IEFlowStartSeconds         uint16 = 150
	IEFlowEndSeconds           uint16 = 151
	IEIPDiffServCodePoint      uint16 = 195
)

var fieldNames = map[uint16]string{
	IEOctetDeltaCount:          "octetDeltaCount",
	IEPacketDeltaCount:         "packetDeltaCount",
	IEProtocolIdentifier:       "protocolIdentifier",
	IESourceTransportPort:      "sourceTransportPort",
	IESourceIPv4Address:        "sourceIPv4Address",
	IEIngressInterface:         "ingressInterface",
	IEDestinationTransportPort: "destinationTransportPort",
	IEDestinationIPv4Address:   "destinationIPv4Address",
	IEEgressInterface:          "egressInterface",
	IEBgpSourceAsNumber:        "bgpSourceAsNumber",
	IEBgpDestinationAsNumber:   "bgpDestinationAsNumber",
	IEFlowDirection:            "flowDirection",
	IEFlowStartSeconds:         "flowStartSeconds",
	IEFlowEndSeconds:           "flowEndSeconds",
	IEIPDiffServCodePoint:      "ipDiffServCodePoint",
}

// FieldName returns the IANA name of an information element id, or a numeric
// placeholder for unlisted ids.
func FieldName(ie uint16) string {
	if name, ok := fieldNames[ie]; ok {
		return name
	}
	return fmt.Sprintf("ie%d", ie)
}

// FlowTemplate builds the single flow-record schema every exporter announces.
// Field order here is the wire order of every data record.
func FlowTemplate(templateID uint16) TemplateRecord {
	fields := []Field{
		{Type: IESourceIPv4Address, Length: 4},
		{Type: IEDestinationIPv4Address, Length: 4},
		{Type: IESourceTransportPort, Length: 2},
		{Type: IEDestinationTransportPort, Length: 2},
		{Type: IEProtocolIdentifier, Length: 1},
		{Type: IEOctetDeltaCount, Length: 8},
		{Type: IEPacketDeltaCount, Length: 8},
		{Type: IEFlowStartSeconds, Length: 4},
		{Type: IEFlowEndSeconds, Length: 4},
		{Type: IEIPDiffServCodePoint, Length: 1},
		{Type: IEIngressInterface, Length: 4},
		{Type: IEEgressInterface, Length: 4},
		{Type: IEBgpSourceAsNumber, Length: 4},
		{Type: IEBgpDestinationAsNumber, Length: 4},
		{Type: IEFlowDirection, Length: 1},
	}
	return TemplateRecord{
		TemplateID: templateID,
		FieldCount: uint16(len(fields)),
		Fields:     fields,
	}
}
