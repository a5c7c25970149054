package transfer

import "shieldxfer/internal/chain"

// Classify interprets a submission result. A response that arrived is only
// accepted if its result code is OK; the Applied and Broadcast shapes carry the
// hash differently. Any other response, or a transport error, is not accepted
// and has no id.
func Classify(resp chain.ProcessResponse, err error) SubmissionOutcome {
	if err != nil {
		return SubmissionOutcome{}
	}
	switch r := resp.(type) {
	case *chain.Applied:
		id := r.Hash
		return SubmissionOutcome{Accepted: r.Code.OK(), TxID: &id}
	case *chain.Broadcast:
		id := r.Hash.String()
		return SubmissionOutcome{Accepted: r.Code.OK(), TxID: &id}
	}
	return SubmissionOutcome{}
}

// resultCode extracts the code from any response shape.
func resultCode(resp chain.ProcessResponse) (chain.ResultCode, bool) {
	switch r := resp.(type) {
	case *chain.Applied:
		return r.Code, true
	case *chain.Broadcast:
		return r.Code, true
	case *chain.DryRun:
		return r.Code, true
	}
	return 0, false
}
