// Package signal turns validated webhook events into trading signals and
// risk indicators through a configurable rule pipeline.
package signal

import (
	"fmt"

	"github.com/solgate-dev/solgate"
)

// PumpFunProgram is the mainnet pump.fun bonding-curve program. New token
// launches almost always touch it.
const PumpFunProgram = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"

// Rule inspects one event and appends whatever it finds.
type Rule func(ev solgate.WebhookEvent, out *Findings)

// Findings accumulates rule output for one event.
type Findings struct {
	Signals []solgate.Signal
	Risks   []solgate.RiskIndicator
}

// Extractor runs an ordered rule list over events. Rules are independent;
// one rule's output never feeds another.
type Extractor struct {
	rules []Rule
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithRule appends a custom rule after the built-ins.
func WithRule(r Rule) Option {
	return func(e *Extractor) { e.rules = append(e.rules, r) }
}

// NewExtractor builds an extractor with the built-in rules installed.
func NewExtractor(cfg solgate.ExtractConfig, opts ...Option) *Extractor {
	if cfg.LargeVolumeUSD == 0 {
		cfg.LargeVolumeUSD = 1000
	}
	if cfg.VolumeCeilingUSD == 0 {
		cfg.VolumeCeilingUSD = 100000
	}
	listing := cfg.ListingPrograms
	if len(listing) == 0 {
		listing = []string{PumpFunProgram}
	}

	e := &Extractor{
		rules: []Rule{
			LargeVolume(cfg.LargeVolumeUSD, cfg.VolumeCeilingUSD),
			NewTokenLaunch(listing),
			WashTrading(),
			MissingMetadata(),
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract runs every rule over the event.
func (e *Extractor) Extract(ev solgate.WebhookEvent) Findings {
	var out Findings
	for _, rule := range e.rules {
		rule(ev, &out)
	}
	return out
}

// LargeVolume emits one signal per transfer at or above threshold.
// Strength scales linearly against ceiling and clamps at 1. Self
// transfers are skipped; they are flagged by the wash-trading rule
// instead of being counted as genuine volume.
func LargeVolume(threshold, ceiling float64) Rule {
	return func(ev solgate.WebhookEvent, out *Findings) {
		for _, t := range ev.Transfers {
			if t.AmountUSD < threshold || t.From == t.To {
				continue
			}
			strength := t.AmountUSD / ceiling
			if strength > 1 {
				strength = 1
			}
			out.Signals = append(out.Signals, solgate.Signal{
				Type:       "large_volume",
				Strength:   strength,
				Confidence: 0.8,
				Metadata: map[string]any{
					"mint":       t.Mint,
					"amount_usd": t.AmountUSD,
					"from":       t.From,
					"to":         t.To,
				},
				EventID: ev.ID,
			})
		}
	}
}

// NewTokenLaunch fires when any instruction targets a known listing
// program.
func NewTokenLaunch(programs []string) Rule {
	known := make(map[string]bool, len(programs))
	for _, p := range programs {
		known[p] = true
	}
	return func(ev solgate.WebhookEvent, out *Findings) {
		for _, in := range ev.Instrs {
			if !known[in.ProgramID] {
				continue
			}
			out.Signals = append(out.Signals, solgate.Signal{
				Type:       "new_token_launch",
				Strength:   0.9,
				Confidence: 0.9,
				Metadata: map[string]any{
					"program_id": in.ProgramID,
				},
				EventID: ev.ID,
			})
			return
		}
	}
}

// WashTrading flags transfers where sender and receiver are the same
// account.
func WashTrading() Rule {
	return func(ev solgate.WebhookEvent, out *Findings) {
		for _, t := range ev.Transfers {
			if t.From == "" || t.From != t.To {
				continue
			}
			out.Risks = append(out.Risks, solgate.RiskIndicator{
				Type:        "wash_trading",
				Severity:    0.7,
				Description: fmt.Sprintf("self transfer of %.2f USD on %s", t.AmountUSD, t.Mint),
				EventID:     ev.ID,
			})
		}
	}
}

// MissingMetadata flags transfers of tokens with no symbol or name.
func MissingMetadata() Rule {
	return func(ev solgate.WebhookEvent, out *Findings) {
		for _, t := range ev.Transfers {
			if t.Symbol != "" || t.Name != "" {
				continue
			}
			out.Risks = append(out.Risks, solgate.RiskIndicator{
				Type:        "missing_metadata",
				Severity:    0.3,
				Description: fmt.Sprintf("token %s has no symbol or name", t.Mint),
				EventID:     ev.ID,
			})
		}
	}
}
