// main.go - In-process donor to charity scenario.
//
// This walks the transfer pipeline end to end against a devnet ledger running
// in the same process:
//   - a donor holding shielded notes sends 100 NAM to a charity's payment address,
//     paying the fee through a disposable key funded from the donor's notes
//   - a treasury account tops the charity up from transparent funds and pays the
//     fee itself
//   - the charity unshields part of its donation back to the treasury
//
// Usage:
//
//	go run .
package main

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"shieldxfer/internal/address"
	"shieldxfer/internal/ledger"
	"shieldxfer/internal/logging"
	"shieldxfer/internal/masp"
	"shieldxfer/internal/rpc"
	"shieldxfer/internal/transfer"
	"shieldxfer/internal/txbuilder"
	"shieldxfer/internal/wallet"
)

const chainID = "shieldxfer-demo"

// scenario is the devnet, the wallet and the pipeline shared by every step.
type scenario struct {
	ledger   *ledger.Ledger
	wallet   *wallet.Wallet
	pipeline *transfer.Pipeline
	nam      address.Address
}

// newScenario funds a donor with two notes and a treasury with a transparent
// balance, and stores every key under an alias.
func newScenario(walletDir string, log *logging.Logger) (*scenario, error) {
	donor, err := address.GenerateSpendingKey()
	if err != nil {
		return nil, err
	}
	charity, err := address.GenerateSpendingKey()
	if err != nil {
		return nil, err
	}
	treasury, err := address.GenerateSecretKey()
	if err != nil {
		return nil, err
	}

	g := ledger.DefaultGenesis(chainID)
	g.Notes = []ledger.GenesisNote{
		{Token: "NAM", Owner: donor.PaymentAddress(), Value: 120_000_000},
		{Token: "NAM", Owner: donor.PaymentAddress(), Value: 30_000_000},
	}
	g.Balances = []ledger.GenesisBalance{{Token: "NAM", Owner: treasury.Public().Address(), Amount: 50_000_000}}
	l, err := ledger.New(g)
	if err != nil {
		return nil, fmt.Errorf("genesis: %w", err)
	}

	w, err := wallet.Open(walletDir, chainID, "")
	if err != nil {
		return nil, err
	}
	if err := w.InsertSpendingKey("donor", donor, false); err != nil {
		return nil, err
	}
	if err := w.InsertSpendingKey("charity", charity, false); err != nil {
		return nil, err
	}
	if err := w.InsertKeypair("treasury", treasury, false); err != nil {
		return nil, err
	}

	node := rpc.NewLocal(l, rpc.ModeApplied)
	p := transfer.NewPipeline(transfer.Deps{
		Wallet:  w,
		Network: node,
		Builder: txbuilder.New(node, txbuilder.WithChainID(w.ChainID()), txbuilder.WithLogger(log.Logger)),
		Signer:  txbuilder.Signer{},
		Logger:  log.Logger,
		Audit:   log,
	})
	return &scenario{ledger: l, wallet: w, pipeline: p, nam: ledger.TokenAddress("NAM")}, nil
}

func (s *scenario) send(ctx context.Context, title string, req transfer.Request) error {
	log.Printf("--- %s ---", title)
	out, err := s.pipeline.Run(ctx, req)
	if err != nil && !transfer.IsSubmissionError(err) {
		return fmt.Errorf("%s: %w", title, err)
	}
	fmt.Println(out)
	if err != nil {
		log.Printf("[WARN] %s: %v", title, err)
	}
	return nil
}

func (s *scenario) report() {
	log.Println("=== Balances ===")
	for _, alias := range []string{"donor", "charity"} {
		ref, err := transfer.Resolve(s.wallet, alias, transfer.KindSpendingKey)
		if err != nil {
			log.Printf("[ERROR] %s: %v", alias, err)
			continue
		}
		notes := s.ledger.UnspentNotes(ref.(transfer.SpendingKey).Key.PaymentAddress(), s.nam)
		fmt.Printf("%-9s shielded     %s NAM in %d notes\n", alias, nam(sumNotes(notes)), len(notes))
	}
	ref, err := transfer.Resolve(s.wallet, "treasury", transfer.KindTransparent)
	if err != nil {
		log.Printf("[ERROR] treasury: %v", err)
		return
	}
	bal := s.ledger.Balance(s.nam, ref.(transfer.Transparent).Address)
	fmt.Printf("%-9s transparent  %s NAM\n", "treasury", nam(bal))
}

func sumNotes(notes []masp.Note) uint64 {
	var total uint64
	for _, n := range notes {
		total += n.Value
	}
	return total
}

func nam(base uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(base), -6).StringFixed(6)
}

func main() {
	log.Println("=== Shielded transfer demo ===")

	logger, err := logging.New("warn", "", "")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Close()

	dir, err := os.MkdirTemp("", "shieldxfer-demo-")
	if err != nil {
		log.Fatalf("wallet dir: %v", err)
	}
	defer os.RemoveAll(dir)

	s, err := newScenario(dir, logger)
	if err != nil {
		log.Fatalf("setup: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	steps := []struct {
		title string
		req   transfer.Request
	}{
		{"donor -> charity, shielded, self-funded fee", transfer.Request{
			Source: "donor", Target: "charity", Amount: 100, Memo: []byte("for the shelter"),
		}},
		{"treasury -> charity, shielding, treasury pays the fee", transfer.Request{
			Source: "treasury", SourceKind: transfer.KindTransparent,
			Target: "charity", TargetKind: transfer.KindShielded,
			Amount: 20, FeePayer: "treasury",
		}},
		{"charity -> treasury, unshielding", transfer.Request{
			Source: "charity", Target: "treasury", TargetKind: transfer.KindTransparent, Amount: 15,
		}},
	}
	for _, step := range steps {
		if err := s.send(ctx, step.title, step.req); err != nil {
			log.Fatalf("[ERROR] %v", err)
		}
	}

	s.report()
	log.Printf("Ledger height: %d", s.ledger.Height())
}
