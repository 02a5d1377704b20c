package handel

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/jabolina/go-dess"
)

// Attestation is a signed claim at one consensus height: a hash
// identifying the signed content and the bitset of signer ids that
// have contributed to it so far.
type Attestation struct {
	Hash string
	Who  *bitset.BitSet
}

func ownAttestation(height int, id dess.NodeID, n int) *Attestation {
	who := bitset.New(uint(n))
	who.Set(uint(id))
	return &Attestation{Hash: fmt.Sprintf("h%d", height), Who: who}
}

// merge unions two attestations sharing a hash into a new one,
// panicking if the hashes disagree: two different signed contents
// never combine into one attestation.
func (a *Attestation) merge(b *Attestation) *Attestation {
	if a == nil {
		return b.clone()
	}
	if b == nil {
		return a.clone()
	}
	if a.Hash != b.Hash {
		panic("handel: cannot merge attestations for different hashes")
	}
	return &Attestation{Hash: a.Hash, Who: a.Who.Union(b.Who)}
}

func (a *Attestation) clone() *Attestation {
	if a == nil {
		return nil
	}
	return &Attestation{Hash: a.Hash, Who: a.Who.Clone()}
}

func (a *Attestation) cardinality() int {
	if a == nil {
		return 0
	}
	return int(a.Who.Count())
}
