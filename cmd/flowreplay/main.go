package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/flowmesh/flowmesh/exporter"
	"github.com/flowmesh/flowmesh/pcapreplay"
)

var (
	CapturePath = flag.String("pcap", "", "Capture file to replay")
	AgentID     = flag.String("agent", "replay", "Agent identifier for the exporter")
	Iface       = flag.String("iface", "eth0", "Ingress interface name recorded on flows")
	Collector   = flag.String("collector", "", "Collector address (host:port), optional")
	Wait        = flag.Duration("wait", 2*time.Second, "Time to wait after export before exiting")

	LogLevel = flag.String("loglevel", "info", "Log level")
)

func main() {
	flag.Parse()

	lvl, err := log.ParseLevel(*LogLevel)
	if err != nil {
		log.Fatalf("error parsing log level: %v", err)
	}
	log.SetLevel(lvl)

	if *CapturePath == "" {
		log.Fatal("missing -pcap argument")
	}

	exp := exporter.NewFlowExporter(*AgentID, exporter.Config{})
	if *Collector != "" {
		host, portStr, err := net.SplitHostPort(*Collector)
		if err != nil {
			log.Fatalf("invalid collector address: %v", err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			log.Fatalf("invalid collector port: %v", err)
		}
		if err := exp.AddCollector(host, port); err != nil {
			log.Fatalf("error adding collector: %v", err)
		}
	}

	sum, err := pcapreplay.Replay(*CapturePath, exp, *Iface)
	if err != nil {
		log.Fatalf("replay failed: %v", err)
	}

	if *Collector != "" {
		if err := exp.Export(); err != nil {
			log.Errorf("export failed: %v", err)
		}
		time.Sleep(*Wait)
	}
	exp.Stop()

	fmt.Printf("replayed %d packets (%d flows recorded, %d skipped)\n",
		sum.Packets, sum.Recorded, sum.Skipped)
	os.Exit(0)
}
