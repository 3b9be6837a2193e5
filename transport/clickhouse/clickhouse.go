// Package clickhouse inserts flow records into a ClickHouse table in
// batches.
package clickhouse

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"sync"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	log "github.com/sirupsen/logrus"

	"github.com/flowmesh/flowmesh/flow"
	"github.com/flowmesh/flowmesh/transport"
)

const createTableStatement = `
CREATE TABLE IF NOT EXISTS flow_records (
    SrcIP             String,
    DstIP             String,
    SrcPort           UInt16,
    DstPort           UInt16,
    Protocol          UInt8,
    StartTime         DateTime,
    EndTime           DateTime,
    ByteCount         UInt64,
    PacketCount       UInt64,
    Dscp              UInt8,
    ServiceClass      String,
    IngressInterface  String,
    EgressInterface   String,
    SrcAS             UInt32,
    DstAS             UInt32,
    ExporterID        String,
    ObservationDomain UInt32
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(EndTime)
ORDER BY (ExporterID, EndTime);
`

type ClickHouseDriver struct {
	chAddr     string
	chDatabase string
	chUsername string
	chPassword string
	chBatch    int
	chInterval time.Duration

	conn driver.Conn

	mu      sync.Mutex
	pending []*flow.Record

	q  chan bool
	wg sync.WaitGroup
}

func (d *ClickHouseDriver) Prepare() error {
	flag.StringVar(&d.chAddr, "transport.clickhouse.addr", "127.0.0.1:9000", "ClickHouse address")
	flag.StringVar(&d.chDatabase, "transport.clickhouse.database", "default", "ClickHouse database")
	flag.StringVar(&d.chUsername, "transport.clickhouse.username", "default", "ClickHouse username")
	flag.StringVar(&d.chPassword, "transport.clickhouse.password", "", "ClickHouse password")
	flag.IntVar(&d.chBatch, "transport.clickhouse.batch", 1000, "ClickHouse max records per batch")
	flag.DurationVar(&d.chInterval, "transport.clickhouse.flushfreq", time.Second*5, "ClickHouse flush frequency")
	return nil
}

func (d *ClickHouseDriver) Init() error {
	conn, err := ch.Open(&ch.Options{
		Addr: []string{d.chAddr},
		Auth: ch.Auth{
			Database: d.chDatabase,
			Username: d.chUsername,
			Password: d.chPassword,
		},
		Compression: &ch.Compression{
			Method: ch.CompressionLZ4,
		},
	})
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := conn.Ping(ctx); err != nil {
		return fmt.Errorf("clickhouse ping: %w", err)
	}
	if err := conn.Exec(ctx, createTableStatement); err != nil {
		return fmt.Errorf("clickhouse create table: %w", err)
	}
	d.conn = conn

	d.q = make(chan bool)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(d.chInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := d.flush(); err != nil {
					log.WithError(err).Error("clickhouse flush failed")
				}
			case <-d.q:
				return
			}
		}
	}()

	return nil
}

func (d *ClickHouseDriver) Send(key, data []byte) error {
	var r flow.Record
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}

	d.mu.Lock()
	d.pending = append(d.pending, &r)
	full := len(d.pending) >= d.chBatch
	d.mu.Unlock()

	if full {
		return d.flush()
	}
	return nil
}

func (d *ClickHouseDriver) flush() error {
	d.mu.Lock()
	records := d.pending
	d.pending = nil
	d.mu.Unlock()

	if len(records) == 0 {
		return nil
	}

	batch, err := d.conn.PrepareBatch(context.Background(), "INSERT INTO flow_records")
	if err != nil {
		return fmt.Errorf("clickhouse prepare batch: %w", err)
	}

	for _, r := range records {
		err = batch.Append(
			r.Key.SrcIP.String(),
			r.Key.DstIP.String(),
			r.Key.SrcPort,
			r.Key.DstPort,
			r.Key.Protocol,
			r.StartTime,
			r.EndTime,
			r.ByteCount,
			r.PacketCount,
			r.DSCP,
			r.ServiceClass,
			r.IngressInterface,
			r.EgressInterface,
			r.SrcAS,
			r.DstAS,
			r.ExporterID,
			r.ObservationDomain,
		)
		if err != nil {
			return fmt.Errorf("clickhouse append: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("clickhouse send batch: %w", err)
	}
	return nil
}

func (d *ClickHouseDriver) Close() error {
	close(d.q)
	d.wg.Wait()
	if err := d.flush(); err != nil {
		return err
	}
	return d.conn.Close()
}

func init() {
	d := &ClickHouseDriver{}
	transport.RegisterTransportDriver("clickhouse", d)
}
