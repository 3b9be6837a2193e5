// Package text renders flow records as single human-readable lines.
package text

import (
	"fmt"

	"github.com/flowmesh/flowmesh/flow"
	"github.com/flowmesh/flowmesh/format"
)

type TextDriver struct {
}

func (d *TextDriver) Prepare() error {
	return nil
}

func (d *TextDriver) Init() error {
	return nil
}

func (d *TextDriver) Format(data interface{}) ([]byte, []byte, error) {
	r, ok := data.(*flow.Record)
	if !ok {
		return nil, []byte(fmt.Sprintf("%v", data)), nil
	}
	line := fmt.Sprintf("%s bytes=%d packets=%d dscp=%d class=%s domain=%d",
		r.Key, r.ByteCount, r.PacketCount, r.DSCP, r.ServiceClass, r.ObservationDomain)
	return []byte(r.Key.String()), []byte(line), nil
}

func init() {
	d := &TextDriver{}
	format.RegisterFormatDriver("text", d)
}
