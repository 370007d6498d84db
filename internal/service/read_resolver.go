package service

import (
	"fmt"
	"strings"

	"github.com/fluxchat/consistency-sim/internal/model"
)

// ReadResolution selects which collected response a quorum read returns
type ReadResolution string

const (
	// ResolveFirstPresent returns the first present record in arrival order
	ResolveFirstPresent ReadResolution = "first_present"
	// ResolveLatestTimestamp returns the present record with the greatest (timestamp, id)
	ResolveLatestTimestamp ReadResolution = "latest_timestamp"
)

// ParseReadResolution parses a resolver name; empty means ResolveFirstPresent
func ParseReadResolution(s string) (ReadResolution, error) {
	switch r := ReadResolution(strings.ToLower(strings.TrimSpace(s))); r {
	case "":
		return ResolveFirstPresent, nil
	case ResolveFirstPresent, ResolveLatestTimestamp:
		return r, nil
	default:
		return "", fmt.Errorf("unknown read resolution %q (must be one of: %s, %s)",
			s, ResolveFirstPresent, ResolveLatestTimestamp)
	}
}

// resolve picks the winning response. ok is false when no response holds the record.
func (r ReadResolution) resolve(responses []model.ReplicaReadResult) (chosen model.ReplicaReadResult, ok bool) {
	for _, resp := range responses {
		if resp.Record == nil {
			continue
		}
		if !ok {
			chosen, ok = resp, true
			if r != ResolveLatestTimestamp {
				return chosen, true
			}
			continue
		}
		if resp.Record.NewerThan(*chosen.Record) {
			chosen = resp
		}
	}
	return chosen, ok
}

// disagrees reports whether resp holds a different version than rec (or none at all)
func disagrees(rec model.Record, resp model.ReplicaReadResult) bool {
	return resp.Record == nil || !rec.SameVersion(*resp.Record)
}
