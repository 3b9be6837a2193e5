package ipfix

import (
	"fmt"
)

// Version is the protocol version in every message header (RFC 7011).
const Version uint16 = 10

// HeaderLength is the fixed size of the message header in bytes.
const HeaderLength = 16

// SetHeader precedes every set inside a message. Length includes the header's
// own four bytes.
type SetHeader struct {
	// Set ID: 2 for a Template Set, 3 for an Options Template Set,
	// 256-65535 for a Data Set (the value is the bound template id).
	ID     uint16 `json:"id"`
	Length uint16 `json:"length"`
}

// Set IDs below 256 are reserved; the ones this codec understands.
const (
	TemplateSetID        uint16 = 2
	OptionsTemplateSetID uint16 = 3
	MinDataSetID         uint16 = 256
)

// Message is a decoded IPFIX message: the fixed header and the sets carried
// in the payload, in wire order. Sets holds TemplateSet, DataSet or RawSet
// values.
type Message struct {
	Version             uint16 `json:"version"`
	Length              uint16 `json:"length"`
	ExportTime          uint32 `json:"export-time"`
	SequenceNumber      uint32 `json:"sequence-number"`
	ObservationDomainID uint32 `json:"observation-domain-id"`

	Sets []interface{} `json:"sets"`
}

// TemplateSet carries one or more template records.
type TemplateSet struct {
	SetHeader

	Records []TemplateRecord `json:"records"`
}

// DataSet carries data records decoded with the template bound to the set id.
type DataSet struct {
	SetHeader

	Records []DataRecord `json:"records"`
}

// RawSet is a set that could not be decoded, kept as bytes. Data sets whose
// template has not been learned yet end up here.
type RawSet struct {
	SetHeader

	Records []byte `json:"records"`
}

// TemplateRecord declares the schema of a data record: an ordered list of
// fixed-width fields. Template ids are unique per observation domain and
// numbered from 256.
type TemplateRecord struct {
	TemplateID uint16  `json:"template-id"`
	FieldCount uint16  `json:"field-count"`
	Fields     []Field `json:"fields"`
}

// Field describes the type and declared length of one value slot in a data
// record. When the enterprise bit was set on the wire, PenProvided is true
// and Pen holds the enterprise number.
type Field struct {
	Type        uint16 `json:"type"`
	Length      uint16 `json:"length"`
	PenProvided bool   `json:"pen-provided,omitempty"`
	Pen         uint32 `json:"pen,omitempty"`
}

// DataRecord is one fixed-width record sliced out of a data set.
type DataRecord struct {
	Values []DataField `json:"values"`
}

// DataField pairs an information element id with its raw value bytes.
type DataField struct {
	Type  uint16 `json:"type"`
	Value []byte `json:"value"`
}

// DataLength returns the wire size of one data record described by the
// template, the sum of all declared field lengths.
func (t TemplateRecord) DataLength() int {
	sum := 0
	for _, f := range t.Fields {
		sum += int(f.Length)
	}
	return sum
}

func (t TemplateRecord) String() string {
	str := fmt.Sprintf("TemplateRecord id=%d fields=%d:\n", t.TemplateID, t.FieldCount)
	for i, f := range t.Fields {
		str += fmt.Sprintf("  - %d. %s (%d) len=%d\n", i, FieldName(f.Type), f.Type, f.Length)
	}
	return str
}

func (m Message) String() string {
	str := fmt.Sprintf("Message v%d len=%d seq=%d domain=%d sets=%d\n",
		m.Version, m.Length, m.SequenceNumber, m.ObservationDomainID, len(m.Sets))
	for _, s := range m.Sets {
		switch sc := s.(type) {
		case TemplateSet:
			str += fmt.Sprintf(" TemplateSet records=%d\n", len(sc.Records))
		case DataSet:
			str += fmt.Sprintf(" DataSet id=%d records=%d\n", sc.ID, len(sc.Records))
		case RawSet:
			str += fmt.Sprintf(" RawSet id=%d bytes=%d\n", sc.ID, len(sc.Records))
		}
	}
	return str
}
