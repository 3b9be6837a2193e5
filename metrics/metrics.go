// Package metrics defines the prometheus instrumentation for the flow
// telemetry pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const NAMESPACE = "flowmesh"

var (
	ExporterFlowsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "exporter_flows_created_count",
			Help:      "Flow records created in the active table.",
			Namespace: NAMESPACE},
		[]string{"agent"},
	)
	ExporterFlowsExpired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "exporter_flows_expired_count",
			Help:      "Flow records aged out of the active table.",
			Namespace: NAMESPACE},
		[]string{"agent"},
	)
	ExporterMessagesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "exporter_messages_sent_count",
			Help:      "IPFIX messages sent to collectors.",
			Namespace: NAMESPACE},
		[]string{"agent"},
	)
	ExporterRecordsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "exporter_records_sent_sum",
			Help:      "Flow records carried in sent messages.",
			Namespace: NAMESPACE},
		[]string{"agent"},
	)
	ExporterSendErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "exporter_send_errors_count",
			Help:      "Failed sends to collectors.",
			Namespace: NAMESPACE},
		[]string{"agent"},
	)

	CollectorTrafficBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "collector_traffic_bytes",
			Help:      "Bytes received by the collector.",
			Namespace: NAMESPACE},
		[]string{"remote_ip"},
	)
	CollectorTrafficPackets = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "collector_traffic_packets",
			Help:      "Datagrams received by the collector.",
			Namespace: NAMESPACE},
		[]string{"remote_ip"},
	)
	CollectorDecoderErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "collector_decoder_error_count",
			Help:      "Messages dropped or partially decoded.",
			Namespace: NAMESPACE},
		[]string{"remote_ip", "error"},
	)
	CollectorFlowsDecoded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "collector_flows_decoded_sum",
			Help:      "Flow records reconstructed from data sets.",
			Namespace: NAMESPACE},
		[]string{"remote_ip"},
	)
	CollectorTemplatesLearned = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "collector_templates_count",
			Help:      "Template records learned.",
			Namespace: NAMESPACE},
		[]string{"remote_ip", "obs_domain_id", "template_id"},
	)
	CollectorDecodeTime = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:      "collector_decoding_time_us",
			Help:      "Message decoding time summary.",
			Namespace: NAMESPACE, Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"name"},
	)
)

func init() {
	prometheus.MustRegister(ExporterFlowsCreated)
	prometheus.MustRegister(ExporterFlowsExpired)
	prometheus.MustRegister(ExporterMessagesSent)
	prometheus.MustRegister(ExporterRecordsSent)
	prometheus.MustRegister(ExporterSendErrors)

	prometheus.MustRegister(CollectorTrafficBytes)
	prometheus.MustRegister(CollectorTrafficPackets)
	prometheus.MustRegister(CollectorDecoderErrors)
	prometheus.MustRegister(CollectorFlowsDecoded)
	prometheus.MustRegister(CollectorTemplatesLearned)
	prometheus.MustRegister(CollectorDecodeTime)
}
