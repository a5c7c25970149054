package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shieldxfer/internal/logging"
	"shieldxfer/internal/transfer"
)

const unit = 1_000_000

func setup(t *testing.T) *scenario {
	t.Helper()
	log, err := logging.New("error", "", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })
	s, err := newScenario(t.TempDir(), log)
	require.NoError(t, err)
	return s
}

func (s *scenario) shielded(t *testing.T, alias string) uint64 {
	t.Helper()
	ref, err := transfer.Resolve(s.wallet, alias, transfer.KindSpendingKey)
	require.NoError(t, err)
	return sumNotes(s.ledger.UnspentNotes(ref.(transfer.SpendingKey).Key.PaymentAddress(), s.nam))
}

func (s *scenario) transparent(t *testing.T, alias string) uint64 {
	t.Helper()
	ref, err := transfer.Resolve(s.wallet, alias, transfer.KindTransparent)
	require.NoError(t, err)
	return s.ledger.Balance(s.nam, ref.(transfer.Transparent).Address)
}

// =============================================================================
// END-TO-END SCENARIOS
// =============================================================================

func TestDonorToCharity(t *testing.T) {
	s := setup(t)
	out, err := s.pipeline.Run(context.Background(), transfer.Request{
		Source: "donor", Target: "charity", Amount: 100, Memo: []byte("for the shelter"),
	})
	require.NoError(t, err)
	assert.True(t, out.Accepted)
	require.NotNil(t, out.TxID)
	assert.Equal(t, "sent: true\ntx: "+*out.TxID, out.String())

	assert.Equal(t, uint64(100*unit), s.shielded(t, "charity"))
	assert.Equal(t, uint64(50*unit-10), s.shielded(t, "donor"))
	assert.Equal(t, uint64(1), s.ledger.Height())
}

func TestExplicitFeePayer(t *testing.T) {
	s := setup(t)
	_, err := s.pipeline.Run(context.Background(), transfer.Request{
		Source: "treasury", SourceKind: transfer.KindTransparent,
		Target: "charity", TargetKind: transfer.KindShielded,
		Amount: 20, FeePayer: "treasury",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(30*unit-10), s.transparent(t, "treasury"))
	assert.Equal(t, uint64(20*unit), s.shielded(t, "charity"))
}

func TestFourCombinations(t *testing.T) {
	cases := []struct {
		name                   string
		source, target         string
		sourceKind, targetKind transfer.Kind
	}{
		{"shielded to shielded", "donor", "charity", transfer.KindSpendingKey, transfer.KindShielded},
		{"shielded to transparent", "donor", "treasury", transfer.KindSpendingKey, transfer.KindTransparent},
		{"transparent to shielded", "treasury", "charity", transfer.KindTransparent, transfer.KindShielded},
		{"transparent to transparent", "treasury", "treasury", transfer.KindTransparent, transfer.KindTransparent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := setup(t)
			out, err := s.pipeline.Run(context.Background(), transfer.Request{
				Source: tc.source, SourceKind: tc.sourceKind,
				Target: tc.target, TargetKind: tc.targetKind,
				Amount: 5,
			})
			require.NoError(t, err)
			assert.True(t, out.Accepted)
		})
	}
}

func TestUnshieldThenReport(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	require.NoError(t, s.send(ctx, "donate", transfer.Request{Source: "donor", Target: "charity", Amount: 100}))
	require.NoError(t, s.send(ctx, "unshield", transfer.Request{
		Source: "charity", Target: "treasury", TargetKind: transfer.KindTransparent, Amount: 15,
	}))

	assert.Equal(t, uint64(85*unit-10), s.shielded(t, "charity"))
	assert.Equal(t, uint64(65*unit), s.transparent(t, "treasury"))
	s.report()
}

func TestRejectedTransferIsReported(t *testing.T) {
	s := setup(t)
	// Overdraws the treasury: the ledger rejects it after submission.
	out, err := s.pipeline.Run(context.Background(), transfer.Request{
		Source: "treasury", SourceKind: transfer.KindTransparent,
		Target: "charity", TargetKind: transfer.KindShielded,
		Amount: 500, FeePayer: "treasury",
	})
	require.Error(t, err)
	assert.True(t, transfer.IsKind(err, transfer.SubmissionRejected))
	assert.False(t, out.Accepted)
	assert.Equal(t, uint64(50*unit), s.transparent(t, "treasury"))

	// send reports it without failing.
	assert.NoError(t, s.send(context.Background(), "overdraw", transfer.Request{
		Source: "treasury", SourceKind: transfer.KindTransparent, Target: "charity", Amount: 500,
	}))
}

func TestUnknownAliasFailsLocally(t *testing.T) {
	s := setup(t)
	_, err := s.pipeline.Run(context.Background(), transfer.Request{Source: "ghost", Target: "charity", Amount: 1})
	assert.True(t, transfer.IsKind(err, transfer.UnknownAlias))
	assert.Error(t, s.send(context.Background(), "ghost", transfer.Request{Source: "ghost", Target: "charity", Amount: 1}))
	assert.Zero(t, s.ledger.Height())
}

func TestNAMFormatting(t *testing.T) {
	assert.Equal(t, "100.000000", nam(100*unit))
	assert.Equal(t, "0.000010", nam(10))
}
