// Package p2psig implements a gossip-based BLS signature aggregation
// protocol with optional San Fermin sub-tree acceleration: nodes trade
// partial signer bitsets with their peers until each reaches threshold,
// independent of any fixed aggregation tree.
package p2psig

import "fmt"

// SendSigsStrategy selects what a periodic sendSigs task puts on the
// wire.
type SendSigsStrategy string

const (
	// StrategyAll sends the full verified set every time.
	StrategyAll SendSigsStrategy = "all"
	// StrategyDiff sends only the bits the target peer doesn't have yet.
	StrategyDiff SendSigsStrategy = "dif"
	// StrategyCompressedAll sends the full set, billed at its
	// compressed wire size.
	StrategyCompressedAll SendSigsStrategy = "cmp_all"
	// StrategyCompressedDiff sends whichever of (full, diff) compresses
	// smaller.
	StrategyCompressedDiff SendSigsStrategy = "cmp_diff"
)

// Params is the protocol's flat, serializable parameter record.
type Params struct {
	SigningNodeCount        int
	RelayingNodeCount       int
	Threshold               int
	ConnectionCount         int
	PairingTime             int64 // ms
	SigsSendPeriod          int64 // ms
	DoubleAggregateStrategy int   // checkSigs strategy: 1 or 2
	SanFermin               bool
	SendSigsStrategy        SendSigsStrategy
	SigRange                int
	NodeBuilderName         string
	NetworkLatencyName      string
	Seed                    int64
}

// DefaultParams returns a reasonable starting point; the signer and
// threshold counts are scenario-specific and left for the caller to set.
func DefaultParams() Params {
	return Params{
		ConnectionCount:         8,
		PairingTime:             100,
		SigsSendPeriod:          50,
		DoubleAggregateStrategy: 1,
		SanFermin:               false,
		SendSigsStrategy:        StrategyDiff,
		SigRange:                4,
		NodeBuilderName:         "UniformRandom",
		NetworkLatencyName:      "NetworkLatencyByDistance",
		Seed:                    1,
	}
}

// Flatten renders Params as a flat string-keyed map, for logging and
// run-configuration export.
func (p Params) Flatten() map[string]string {
	return map[string]string{
		"signingNodeCount":        fmt.Sprint(p.SigningNodeCount),
		"relayingNodeCount":       fmt.Sprint(p.RelayingNodeCount),
		"threshold":               fmt.Sprint(p.Threshold),
		"connectionCount":         fmt.Sprint(p.ConnectionCount),
		"pairingTime":             fmt.Sprint(p.PairingTime),
		"sigsSendPeriod":          fmt.Sprint(p.SigsSendPeriod),
		"doubleAggregateStrategy": fmt.Sprint(p.DoubleAggregateStrategy),
		"sanFermin":               fmt.Sprint(p.SanFermin),
		"sendSigsStrategy":        string(p.SendSigsStrategy),
		"sigRange":                fmt.Sprint(p.SigRange),
		"nodeBuilderName":         p.NodeBuilderName,
		"networkLatencyName":      p.NetworkLatencyName,
		"seed":                    fmt.Sprint(p.Seed),
	}
}

func (p Params) totalNodes() int {
	return p.SigningNodeCount + p.RelayingNodeCount
}
