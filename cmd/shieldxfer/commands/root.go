// Package commands is the shieldxfer command line.
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"shieldxfer/internal/config"
	"shieldxfer/internal/logging"
	"shieldxfer/internal/rpc"
	"shieldxfer/internal/wallet"
)

// state is what every subcommand shares once PersistentPreRunE has run.
type state struct {
	cfg    *config.ClientConfig
	log    *logging.Logger
	wallet *wallet.Wallet
}

// Execute runs the CLI with os.Args.
func Execute() error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	root, err := NewRootCmd()
	if err != nil {
		return err
	}
	return root.Execute()
}

// NewRootCmd builds the command tree. Flags default to the environment.
func NewRootCmd() (*cobra.Command, error) {
	cfg, err := config.ClientFromEnv()
	if err != nil {
		return nil, err
	}
	st := &state{cfg: cfg}

	root := &cobra.Command{
		Use:          "shieldxfer",
		Short:        "Transfer tokens between transparent and shielded accounts",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := st.cfg.Validate(); err != nil {
				return err
			}
			log, err := logging.New(st.cfg.LogLevel, st.cfg.LogFile, st.cfg.AuditFile)
			if err != nil {
				return err
			}
			st.log = log
			w, err := wallet.Open(st.cfg.WalletDir, st.cfg.ChainID, st.cfg.WalletPassphrase)
			if err != nil {
				return fmt.Errorf("open wallet: %w", err)
			}
			st.wallet = w
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if st.log != nil {
				return st.log.Close()
			}
			return nil
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&cfg.ChainID, "chain-id", cfg.ChainID, "chain identifier [CHAIN_ID]")
	f.StringVar(&cfg.RPC, "rpc", cfg.RPC, "node gRPC address [RPC]")
	f.StringVar(&cfg.WalletDir, "wallet-dir", cfg.WalletDir, "wallet directory [WALLET_DIR]")
	f.StringVar(&cfg.WalletPassphrase, "passphrase", cfg.WalletPassphrase, "passphrase sealing wallet secrets [WALLET_PASSPHRASE]")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error [LOG_LEVEL]")
	f.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "also write JSON logs here [LOG_FILE]")
	f.StringVar(&cfg.AuditFile, "audit-file", cfg.AuditFile, "write audit events here [AUDIT_FILE]")
	f.StringVar(&cfg.SubmitMode, "mode", cfg.SubmitMode, "applied, broadcast or dry-run [SUBMIT_MODE]")
	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "deadline for network calls [TIMEOUT]")

	root.AddCommand(transferCmd(st), keysCmd(st), balanceCmd(st), notesCmd(st))
	return root, nil
}

func (st *state) connect() (*rpc.Client, error) {
	mode, err := rpc.ParseMode(st.cfg.SubmitMode)
	if err != nil {
		return nil, err
	}
	return rpc.Dial(st.cfg.RPC, mode, grpc.WithTransportCredentials(insecure.NewCredentials()))
}

func (st *state) context(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, st.cfg.Timeout)
}
