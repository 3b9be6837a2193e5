// Package json serializes flow records as JSON objects.
package json

import (
	"encoding/json"

	"github.com/flowmesh/flowmesh/flow"
	"github.com/flowmesh/flowmesh/format"
)

type JsonDriver struct {
}

func (d *JsonDriver) Prepare() error {
	return nil
}

func (d *JsonDriver) Init() error {
	return nil
}

func (d *JsonDriver) Format(data interface{}) ([]byte, []byte, error) {
	var key []byte
	if r, ok := data.(*flow.Record); ok {
		key = []byte(r.Key.String())
	}
	output, err := json.Marshal(data)
	return key, output, err
}

func init() {
	d := &JsonDriver{}
	format.RegisterFormatDriver("json", d)
}
