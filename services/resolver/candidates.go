package resolver

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/flashbots/streamscan/chain"
)

// ResolveCandidates returns the distinct `to` addresses of the AddBuilder events in order of
// first appearance. Addresses are compared as 20-byte values, so checksum and case differences
// in the source never produce two candidates.
func ResolveCandidates(events []*chain.AddBuilderEvent) []common.Address {
	candidates := make([]common.Address, 0, len(events))
	seen := make(map[common.Address]bool, len(events))
	for _, e := range events {
		if e == nil || seen[e.To] {
			continue
		}
		seen[e.To] = true
		candidates = append(candidates, e.To)
	}
	return candidates
}

// Fingerprint identifies an AddBuilder event set. Count and the last position catch appended
// events, Hash also catches events replaced in place by a reorg.
type Fingerprint struct {
	Count        int         `json:"count"`
	LastBlock    uint64      `json:"last_block"`
	LastLogIndex uint        `json:"last_log_index"`
	Hash         common.Hash `json:"hash"`
}

// FingerprintOf expects events ordered by (block, log index), as the event log returns them
func FingerprintOf(events []*chain.AddBuilderEvent) Fingerprint {
	fp := Fingerprint{Count: len(events)}
	if len(events) == 0 {
		return fp
	}

	hasher := crypto.NewKeccakState()
	var pos [16]byte
	for _, e := range events {
		if e == nil {
			continue
		}
		binary.BigEndian.PutUint64(pos[:8], e.BlockNumber)
		binary.BigEndian.PutUint64(pos[8:], uint64(e.LogIndex))
		hasher.Write(pos[:])
		hasher.Write(e.TxHash.Bytes())
		hasher.Write(e.To.Bytes())
	}
	hasher.Read(fp.Hash[:]) //nolint:errcheck

	if last := events[len(events)-1]; last != nil {
		fp.LastBlock = last.BlockNumber
		fp.LastLogIndex = last.LogIndex
	}
	return fp
}
