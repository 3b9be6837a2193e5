package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	// formatters
	"github.com/flowmesh/flowmesh/format"
	_ "github.com/flowmesh/flowmesh/format/json"
	_ "github.com/flowmesh/flowmesh/format/text"

	// transports
	"github.com/flowmesh/flowmesh/transport"
	_ "github.com/flowmesh/flowmesh/transport/clickhouse"
	_ "github.com/flowmesh/flowmesh/transport/file"
	_ "github.com/flowmesh/flowmesh/transport/kafka"
	_ "github.com/flowmesh/flowmesh/transport/nats"

	// core
	"github.com/flowmesh/flowmesh/api"
	"github.com/flowmesh/flowmesh/collector"
	"github.com/flowmesh/flowmesh/config"
	"github.com/flowmesh/flowmesh/exporter"
	"github.com/flowmesh/flowmesh/simulator"
)

var (
	version    = ""
	buildinfos = ""
	AppVersion = "flowmesh " + version + " " + buildinfos

	ConfigPath = flag.String("config", "flowmesh.yml", "Configuration file")

	LogLevel = flag.String("loglevel", "info", "Log level")
	LogFmt   = flag.String("logfmt", "normal", "Log formatter")

	Format    = flag.String("format", "json", fmt.Sprintf("Choose the format (available: %s)", strings.Join(format.GetFormats(), ", ")))
	Transport = flag.String("transport", "file", fmt.Sprintf("Choose the transport (available: %s)", strings.Join(transport.GetTransports(), ", ")))

	Version = flag.Bool("v", false, "Print version")
)

func main() {
	flag.Parse()

	if *Version {
		fmt.Println(AppVersion)
		os.Exit(0)
	}

	lvl, err := log.ParseLevel(*LogLevel)
	if err != nil {
		log.Fatalf("error parsing log level: %v", err)
	}
	log.SetLevel(lvl)
	if *LogFmt == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	}

	cfg, err := config.LoadConfig(*ConfigPath)
	if err != nil {
		log.Fatalf("error loading configuration: %v", err)
	}

	formatName := cfg.Collector.Format
	if formatName == "" {
		formatName = *Format
	}
	transportName := cfg.Collector.Transport
	if transportName == "" {
		transportName = *Transport
	}

	formatter, err := format.FindFormat(formatName)
	if err != nil {
		log.Fatalf("error formatter: %v", err)
	}
	transporter, err := transport.FindTransport(transportName)
	if err != nil {
		log.Fatalf("error transporter: %v", err)
	}
	defer transporter.Close()

	col := collector.NewFlowCollector(collector.Config{
		Addr:      cfg.Collector.Addr,
		Port:      cfg.Collector.Port,
		Workers:   cfg.Collector.Workers,
		QueueSize: cfg.Collector.QueueSize,
	})
	col.Format = formatter
	col.Transport = transporter
	if err := col.Start(); err != nil {
		log.Fatalf("error starting collector: %v", err)
	}

	expCfg := exporter.Config{
		FlowTimeout:     config.Duration(cfg.Exporter.FlowTimeout, exporter.DefaultFlowTimeout),
		ExportInterval:  config.Duration(cfg.Exporter.ExportInterval, exporter.DefaultExportInterval),
		TemplateRefresh: config.Duration(cfg.Exporter.TemplateRefresh, exporter.DefaultTemplateRefresh),
		HistorySize:     cfg.Exporter.HistorySize,
	}

	registry := simulator.NewRegistry(simulator.Config{
		TickInterval: config.Duration(cfg.Simulator.TickInterval, simulator.DefaultTickInterval),
		DataFlows:    cfg.Simulator.DataFlows,
	})

	var exporters []*exporter.FlowExporter
	for _, a := range cfg.Agents {
		exp := exporter.NewFlowExporter(a.Name, expCfg)
		for _, addr := range a.Collectors {
			host, portStr, err := net.SplitHostPort(addr)
			if err != nil {
				log.Fatalf("invalid collector address %q: %v", addr, err)
			}
			port, err := strconv.Atoi(portStr)
			if err != nil {
				log.Fatalf("invalid collector port %q: %v", addr, err)
			}
			if err := exp.AddCollector(host, port); err != nil {
				log.Fatalf("error adding collector %q: %v", addr, err)
			}
		}
		if _, err := registry.AddAgent(a.Name, a.Interfaces, exp); err != nil {
			log.Fatalf("error registering agent %s: %v", a.Name, err)
		}
		exporters = append(exporters, exp)
	}

	// peer sessions, once all agents exist
	for _, a := range cfg.Agents {
		agent, _ := registry.Agent(a.Name)
		for _, peer := range a.Peers {
			if err := agent.Peer(peer); err != nil {
				log.Fatalf("error peering %s with %s: %v", a.Name, peer, err)
			}
		}
	}

	for _, exp := range exporters {
		exp.Start()
	}
	registry.Start()

	apiServer := api.NewServer(cfg.API.Addr, registry, col)
	if cfg.API.Addr != "" {
		if err := apiServer.Start(); err != nil {
			log.Fatalf("error starting api server: %v", err)
		}
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	<-c

	log.Info("shutting down")
	registry.Stop()
	for _, exp := range exporters {
		exp.Stop()
	}
	col.Stop()
	if cfg.API.Addr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		apiServer.Shutdown(ctx)
		cancel()
	}
}
