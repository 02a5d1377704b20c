// Package metrics exports a simulation run's per-node counters as
// Prometheus metrics, for callers that want to scrape or snapshot a
// run's shape alongside the in-process Stats.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jabolina/go-dess"
)

// Recorder holds the Prometheus collectors a run's stats are rendered
// into. It is not wired into the engine's hot path: Collect pulls from
// a Network's Snapshot on demand rather than incrementing per-event,
// keeping the simulation loop free of metrics-client overhead.
type Recorder struct {
	bytesSent     *prometheus.GaugeVec
	bytesReceived *prometheus.GaugeVec
	msgSent       *prometheus.GaugeVec
	msgReceived   *prometheus.GaugeVec
	done          *prometheus.GaugeVec
}

// NewRecorder creates a Recorder and registers its collectors with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		bytesSent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dess",
			Name:      "node_bytes_sent",
			Help:      "Cumulative bytes sent by a node.",
		}, []string{"node"}),
		bytesReceived: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dess",
			Name:      "node_bytes_received",
			Help:      "Cumulative bytes received by a node.",
		}, []string{"node"}),
		msgSent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dess",
			Name:      "node_messages_sent",
			Help:      "Cumulative messages sent by a node.",
		}, []string{"node"}),
		msgReceived: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dess",
			Name:      "node_messages_received",
			Help:      "Cumulative messages received by a node.",
		}, []string{"node"}),
		done: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dess",
			Name:      "node_done",
			Help:      "1 if the node has reached its protocol-defined completion, 0 otherwise.",
		}, []string{"node"}),
	}

	collectors := []prometheus.Collector{r.bytesSent, r.bytesReceived, r.msgSent, r.msgReceived, r.done}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Collect overwrites every gauge with the given stats snapshot, usually
// taken via Network.Snapshot after a run finishes or at a checkpoint.
func (r *Recorder) Collect(stats []dess.Stats) {
	for _, s := range stats {
		label := prometheus.Labels{"node": nodeLabel(s.NodeID)}
		r.bytesSent.With(label).Set(float64(s.BytesSent))
		r.bytesReceived.With(label).Set(float64(s.BytesReceived))
		r.msgSent.With(label).Set(float64(s.MsgSent))
		r.msgReceived.With(label).Set(float64(s.MsgReceived))
		done := 0.0
		if s.DoneAt != nil {
			done = 1.0
		}
		r.done.With(label).Set(done)
	}
}

func nodeLabel(id dess.NodeID) string {
	return strconv.Itoa(int(id))
}
