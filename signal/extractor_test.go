package signal_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solgate-dev/solgate"
	"github.com/solgate-dev/solgate/signal"
)

func event(transfers ...solgate.TokenTransfer) solgate.WebhookEvent {
	return solgate.WebhookEvent{
		ID:        "ev-1",
		Source:    "helius",
		Signature: "sig-1",
		Timestamp: time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC),
		Transfers: transfers,
	}
}

// A $5,000 transfer between distinct accounts yields exactly one
// large-volume signal and no risks.
func TestLargeVolumeTransfer(t *testing.T) {
	ex := signal.NewExtractor(solgate.ExtractConfig{})

	out := ex.Extract(event(solgate.TokenTransfer{
		From: "acctA", To: "acctB", Mint: "So111",
		AmountUSD: 5000, Symbol: "SOL", Name: "Solana",
	}))

	require.Len(t, out.Signals, 1)
	assert.Empty(t, out.Risks)

	sig := out.Signals[0]
	assert.Equal(t, "large_volume", sig.Type)
	assert.Greater(t, sig.Strength, 0.0)
	assert.GreaterOrEqual(t, sig.Confidence, 0.7)
	assert.Equal(t, "ev-1", sig.EventID)
	assert.InDelta(t, 0.05, sig.Strength, 1e-9)
}

func TestLargeVolumeStrengthClampsAtOne(t *testing.T) {
	ex := signal.NewExtractor(solgate.ExtractConfig{})

	out := ex.Extract(event(solgate.TokenTransfer{
		From: "a", To: "b", Mint: "M", AmountUSD: 2_000_000, Symbol: "X",
	}))

	require.Len(t, out.Signals, 1)
	assert.Equal(t, 1.0, out.Signals[0].Strength)
}

func TestBelowThresholdProducesNoSignal(t *testing.T) {
	ex := signal.NewExtractor(solgate.ExtractConfig{})

	out := ex.Extract(event(solgate.TokenTransfer{
		From: "a", To: "b", Mint: "M", AmountUSD: 999, Symbol: "X",
	}))

	assert.Empty(t, out.Signals)
}

// A self-transfer is wash trading, not volume, no matter the amount.
func TestSelfTransferIsWashTradingNotVolume(t *testing.T) {
	ex := signal.NewExtractor(solgate.ExtractConfig{})

	out := ex.Extract(event(solgate.TokenTransfer{
		From: "whale", To: "whale", Mint: "M",
		AmountUSD: 50_000, Symbol: "X",
	}))

	assert.Empty(t, out.Signals)
	require.Len(t, out.Risks, 1)
	assert.Equal(t, "wash_trading", out.Risks[0].Type)
	assert.GreaterOrEqual(t, out.Risks[0].Severity, 0.5)
}

func TestNewTokenLaunchDetection(t *testing.T) {
	ex := signal.NewExtractor(solgate.ExtractConfig{})

	ev := event()
	ev.Instrs = []solgate.Instruction{
		{ProgramID: "SomeOtherProgram"},
		{ProgramID: signal.PumpFunProgram},
	}

	out := ex.Extract(ev)
	require.Len(t, out.Signals, 1)
	assert.Equal(t, "new_token_launch", out.Signals[0].Type)
	assert.Equal(t, 0.9, out.Signals[0].Confidence)
}

func TestCustomListingPrograms(t *testing.T) {
	ex := signal.NewExtractor(solgate.ExtractConfig{
		ListingPrograms: []string{"CustomLaunchpad111"},
	})

	ev := event()
	ev.Instrs = []solgate.Instruction{{ProgramID: signal.PumpFunProgram}}
	assert.Empty(t, ex.Extract(ev).Signals)

	ev.Instrs = []solgate.Instruction{{ProgramID: "CustomLaunchpad111"}}
	require.Len(t, ex.Extract(ev).Signals, 1)
}

func TestMissingMetadataIsLowSeverityRisk(t *testing.T) {
	ex := signal.NewExtractor(solgate.ExtractConfig{})

	out := ex.Extract(event(solgate.TokenTransfer{
		From: "a", To: "b", Mint: "Anon111", AmountUSD: 10,
	}))

	assert.Empty(t, out.Signals)
	require.Len(t, out.Risks, 1)
	assert.Equal(t, "missing_metadata", out.Risks[0].Type)
	assert.LessOrEqual(t, out.Risks[0].Severity, 0.5)
}

func TestAppendedCustomRule(t *testing.T) {
	custom := func(ev solgate.WebhookEvent, out *signal.Findings) {
		if ev.Slot > 0 {
			out.Signals = append(out.Signals, solgate.Signal{
				Type: "slot_seen", Strength: 1, Confidence: 1, EventID: ev.ID,
			})
		}
	}
	ex := signal.NewExtractor(solgate.ExtractConfig{}, signal.WithRule(custom))

	ev := event()
	ev.Slot = 12345

	out := ex.Extract(ev)
	require.Len(t, out.Signals, 1)
	assert.Equal(t, "slot_seen", out.Signals[0].Type)
}
