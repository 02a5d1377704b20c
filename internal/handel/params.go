package handel

import "fmt"

// defaultPeriodTime is the interval at which startNewAggregation fires
// a fresh AggregationProcess when Params.PeriodTime is zero or negative.
const defaultPeriodTime int64 = 1000

// Params is Handel's flat, serializable parameter record.
type Params struct {
	NodeCount          int
	PairingTime        int64 // ms
	PeriodTime         int64 // ms; defaults to defaultPeriodTime when zero
	ConnectionCount    int
	NodeBuilderName    string
	NetworkLatencyName string
	Seed               int64
}

// DefaultParams returns a reasonable starting point; NodeCount is
// scenario-specific and left for the caller to set.
func DefaultParams() Params {
	return Params{
		PairingTime:        50,
		PeriodTime:         defaultPeriodTime,
		ConnectionCount:    8,
		NodeBuilderName:    "UniformRandom",
		NetworkLatencyName: "NetworkLatencyByDistance",
		Seed:               1,
	}
}

func (p Params) periodTime() int64 {
	if p.PeriodTime <= 0 {
		return defaultPeriodTime
	}
	return p.PeriodTime
}

// Flatten renders Params as a flat string-keyed map, for logging and
// run-configuration export.
func (p Params) Flatten() map[string]string {
	return map[string]string{
		"nodeCount":          fmt.Sprint(p.NodeCount),
		"pairingTime":        fmt.Sprint(p.PairingTime),
		"periodTime":         fmt.Sprint(p.periodTime()),
		"connectionCount":    fmt.Sprint(p.ConnectionCount),
		"nodeBuilderName":    p.NodeBuilderName,
		"networkLatencyName": p.NetworkLatencyName,
		"seed":               fmt.Sprint(p.Seed),
	}
}
