package transfer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"shieldxfer/internal/chain"
)

func TestClassify(t *testing.T) {
	h := chain.Hash{0xab, 0xcd}
	str := func(s string) *string { return &s }

	cases := []struct {
		name string
		resp chain.ProcessResponse
		err  error
		want SubmissionOutcome
	}{
		{"applied ok", &chain.Applied{Code: chain.CodeOK, Hash: "abc"}, nil, SubmissionOutcome{true, str("abc")}},
		{"applied rejected", &chain.Applied{Code: chain.CodeInvalidSig, Hash: "abc"}, nil, SubmissionOutcome{false, str("abc")}},
		{"broadcast ok", &chain.Broadcast{Code: chain.CodeOK, Hash: h}, nil, SubmissionOutcome{true, str(h.String())}},
		{"broadcast rejected", &chain.Broadcast{Code: chain.CodeMempoolFull, Hash: h}, nil, SubmissionOutcome{false, str(h.String())}},
		{"dry run", &chain.DryRun{Code: chain.CodeOK}, nil, SubmissionOutcome{}},
		{"transport error", nil, errors.New("connection reset"), SubmissionOutcome{}},
		{"error wins over response", &chain.Applied{Code: chain.CodeOK, Hash: "abc"}, errors.New("late"), SubmissionOutcome{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.resp, tc.err)
			assert.Equal(t, tc.want, got)
			// pure: same input, same output
			assert.Equal(t, got, Classify(tc.resp, tc.err))
		})
	}
}

func TestOutcomeString(t *testing.T) {
	id := "deadbeef"
	assert.Equal(t, "sent: true\ntx: deadbeef", SubmissionOutcome{Accepted: true, TxID: &id}.String())
	assert.Equal(t, "sent: false\ntx: none", SubmissionOutcome{}.String())
}
