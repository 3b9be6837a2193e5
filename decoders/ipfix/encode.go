package ipfix

import (
	"bytes"

	"github.com/flowmesh/flowmesh/decoders/utils"
)

// EncodeTemplateRecord writes one template record. Enterprise numbers are
// never emitted; the platform only exports IANA elements.
func EncodeTemplateRecord(buf *bytes.Buffer, t TemplateRecord) {
	utils.WriteU16(buf, t.TemplateID)
	utils.WriteU16(buf, uint16(len(t.Fields)))
	for _, f := range t.Fields {
		utils.WriteU16(buf, f.Type)
		utils.WriteU16(buf, f.Length)
	}
}

// EncodeMessage builds one complete IPFIX message: header, an optional
// template set and a data set holding the pre-encoded records. Both sets are
// omitted when empty, but the header is always present and its length covers
// everything written. No MTU-aware splitting is performed; one call is one
// datagram.
func EncodeMessage(obsDomainID, sequenceNumber, exportTime uint32, template *TemplateRecord, dataSetID uint16, records [][]byte) []byte {
	templateSetLen := 0
	if template != nil {
		templateSetLen = 4 + 4 + 4*len(template.Fields)
	}
	dataLen := 0
	for _, r := range records {
		dataLen += len(r)
	}
	dataSetLen := 0
	if len(records) > 0 {
		dataSetLen = 4 + dataLen
	}

	total := HeaderLength + templateSetLen + dataSetLen
	buf := bytes.NewBuffer(make([]byte, 0, total))

	utils.WriteU16(buf, Version)
	utils.WriteU16(buf, uint16(total))
	utils.WriteU32(buf, exportTime)
	utils.WriteU32(buf, sequenceNumber)
	utils.WriteU32(buf, obsDomainID)

	if template != nil {
		utils.WriteU16(buf, TemplateSetID)
		utils.WriteU16(buf, uint16(templateSetLen))
		EncodeTemplateRecord(buf, *template)
	}

	if len(records) > 0 {
		utils.WriteU16(buf, dataSetID)
		utils.WriteU16(buf, uint16(dataSetLen))
		for _, r := range records {
			buf.Write(r)
		}
	}

	return buf.Bytes()
}
