// Package nats publishes serialized flow records to a NATS subject.
package nats

import (
	"flag"

	natsio "github.com/nats-io/nats.go"

	"github.com/flowmesh/flowmesh/transport"
)

type NatsDriver struct {
	natsURL     string
	natsSubject string

	nc *natsio.Conn
}

func (d *NatsDriver) Prepare() error {
	flag.StringVar(&d.natsURL, "transport.nats.url", natsio.DefaultURL, "NATS server URL")
	flag.StringVar(&d.natsSubject, "transport.nats.subject", "flowmesh.records", "NATS subject to publish to")
	return nil
}

func (d *NatsDriver) Init() error {
	nc, err := natsio.Connect(d.natsURL)
	if err != nil {
		return err
	}
	d.nc = nc
	return nil
}

func (d *NatsDriver) Send(key, data []byte) error {
	return d.nc.Publish(d.natsSubject, data)
}

func (d *NatsDriver) Close() error {
	if d.nc != nil {
		if err := d.nc.Flush(); err != nil {
			return err
		}
		d.nc.Close()
	}
	return nil
}

func init() {
	d := &NatsDriver{}
	transport.RegisterTransportDriver("nats", d)
}
