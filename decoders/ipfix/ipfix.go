// Package ipfix implements the IPFIX (RFC 7011) message codec used between
// the platform's flow exporters and collectors: fixed header, template sets
// and schema-driven data sets, all big-endian over UDP.
package ipfix

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/flowmesh/flowmesh/decoders/utils"
)

// DecoderError wraps a failure with the decoding stage it happened in.
type DecoderError struct {
	Decoder string
	Err     error
}

func (e *DecoderError) Error() string {
	return fmt.Sprintf("%s %s", e.Decoder, e.Err.Error())
}

func (e *DecoderError) Unwrap() error {
	return e.Err
}

// SetError wraps a failure with the set it happened in.
type SetError struct {
	ObsDomainID uint32
	SetID       uint16
	Err         error
}

func (e *SetError) Error() string {
	return fmt.Sprintf("[obsDomainId:%d setId:%d] %s", e.ObsDomainID, e.SetID, e.Err.Error())
}

func (e *SetError) Unwrap() error {
	return e.Err
}

// DecodeMessage decodes one IPFIX message. Template sets are stored into the
// template system as they are seen; data sets decode against it. A data set
// whose template is unknown is kept as a RawSet and reported through the
// joined error while the rest of the message continues to decode.
func DecodeMessage(payload *bytes.Buffer, templates TemplateSystem) (*Message, error) {
	var version uint16
	if err := utils.BinaryDecoder(payload, &version); err != nil {
		return nil, &DecoderError{"header", err}
	}
	if version != Version {
		return nil, &DecoderError{"header", fmt.Errorf("unsupported version %d", version)}
	}

	msg := &Message{Version: version}
	if err := utils.BinaryDecoder(payload,
		&msg.Length,
		&msg.ExportTime,
		&msg.SequenceNumber,
		&msg.ObservationDomainID,
	); err != nil {
		return nil, &DecoderError{"header", err}
	}
	if msg.Length < HeaderLength {
		return nil, &DecoderError{"header", fmt.Errorf("length %d below header size", msg.Length)}
	}

	var err error
	read := 0
	size := int(msg.Length) - HeaderLength
	start := payload.Len()
	for read < size && payload.Len() > 0 {
		set, serr := decodeSet(payload, templates, msg.ObservationDomainID)
		if serr != nil && !errors.Is(serr, ErrTemplateNotFound) {
			return msg, serr
		}
		msg.Sets = append(msg.Sets, set)
		if serr != nil {
			err = errors.Join(err, serr)
		}
		read = start - payload.Len()
	}
	return msg, err
}

func decodeSet(payload *bytes.Buffer, templates TemplateSystem, obsDomainID uint32) (interface{}, error) {
	var header SetHeader
	if err := utils.BinaryDecoder(payload, &header.ID, &header.Length); err != nil {
		return nil, &DecoderError{"set header", err}
	}

	bodyLen := int(header.Length) - 4
	if bodyLen < 0 {
		return nil, &SetError{obsDomainID, header.ID, fmt.Errorf("negative length")}
	}

	switch {
	case header.ID == TemplateSetID:
		body := bytes.NewBuffer(payload.Next(bodyLen))
		records, err := DecodeTemplateSet(body)
		if err != nil {
			return TemplateSet{SetHeader: header, Records: records}, &SetError{obsDomainID, header.ID, err}
		}
		set := TemplateSet{SetHeader: header, Records: records}
		if templates != nil {
			for _, record := range records {
				key := TemplateKey{obsDomainID, record.TemplateID}
				if err := templates.AddTemplate(key, record); err != nil {
					return set, &SetError{obsDomainID, header.ID, err}
				}
			}
		}
		return set, nil

	case header.ID >= MinDataSetID:
		raw := RawSet{SetHeader: header, Records: payload.Next(bodyLen)}
		if templates == nil {
			return raw, &SetError{obsDomainID, header.ID, ErrTemplateNotFound}
		}
		template, err := templates.GetTemplate(TemplateKey{obsDomainID, header.ID})
		if err != nil {
			return raw, &SetError{obsDomainID, header.ID, err}
		}
		records, err := DecodeDataSet(bytes.NewBuffer(raw.Records), template)
		if err != nil {
			return raw, &SetError{obsDomainID, header.ID, err}
		}
		return DataSet{SetHeader: header, Records: records}, nil

	default:
		// Options template sets and other reserved ids are consumed but
		// not interpreted.
		return RawSet{SetHeader: header, Records: payload.Next(bodyLen)}, nil
	}
}

// DecodeTemplateSet decodes the template records of one template set body.
// An enterprise-bit field (0x8000) carries a trailing 4-byte enterprise
// number that is consumed for forward compatibility even though this
// platform never emits enterprise elements.
func DecodeTemplateSet(payload *bytes.Buffer) ([]TemplateRecord, error) {
	var records []TemplateRecord
	for payload.Len() >= 4 {
		var record TemplateRecord
		if err := utils.BinaryDecoder(payload,
			&record.TemplateID,
			&record.FieldCount,
		); err != nil {
			return records, fmt.Errorf("TemplateSet: reading header [%w]", err)
		}

		fields := make([]Field, int(record.FieldCount))
		for i := 0; i < int(record.FieldCount); i++ {
			var field Field
			if err := utils.BinaryDecoder(payload,
				&field.Type,
				&field.Length,
			); err != nil {
				return records, fmt.Errorf("TemplateSet: reading field [%w]", err)
			}
			if field.Type&0x8000 != 0 {
				field.PenProvided = true
				field.Type = field.Type ^ 0x8000
				if err := utils.BinaryDecoder(payload,
					&field.Pen,
				); err != nil {
					return records, fmt.Errorf("TemplateSet: reading enterprise field [%w]", err)
				}
			}
			fields[i] = field
		}
		record.Fields = fields
		records = append(records, record)
	}
	return records, nil
}

// DecodeDataSet slices the fixed-width records out of a data set body using
// the template. Trailing bytes shorter than one record (padding or a
// truncated record) are dropped without error.
func DecodeDataSet(payload *bytes.Buffer, template TemplateRecord) ([]DataRecord, error) {
	var records []DataRecord
	recordLen := template.DataLength()
	if recordLen == 0 {
		return nil, fmt.Errorf("DataSet: zero-length template %d", template.TemplateID)
	}
	for payload.Len() >= recordLen {
		values := make([]DataField, len(template.Fields))
		for i, field := range template.Fields {
			values[i] = DataField{
				Type:  field.Type,
				Value: payload.Next(int(field.Length)),
			}
		}
		records = append(records, DataRecord{Values: values})
	}
	return records, nil
}
