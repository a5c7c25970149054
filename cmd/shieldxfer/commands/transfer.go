package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"shieldxfer/internal/address"
	"shieldxfer/internal/transfer"
	"shieldxfer/internal/txbuilder"
)

func transferCmd(st *state) *cobra.Command {
	var sourceKind, targetKind string
	var fee uint64

	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Send tokens from one wallet alias to another",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := st.cfg
			if err := cfg.ValidateTransfer(); err != nil {
				return err
			}
			req := transfer.Request{
				Source:   cfg.Source,
				Target:   cfg.Target,
				Token:    cfg.Token,
				Amount:   cfg.Amount,
				FeePayer: cfg.FeePayer,
			}
			if cfg.Memo != "" {
				req.Memo = []byte(cfg.Memo)
			}
			var err error
			if req.SourceKind, err = transfer.ParseKind(sourceKind); err != nil {
				return err
			}
			if req.TargetKind, err = transfer.ParseKind(targetKind); err != nil {
				return err
			}
			if cfg.PrivateKey != "" {
				sk, err := address.ParseSecretKey(cfg.PrivateKey)
				if err != nil {
					return fmt.Errorf("private key: %w", err)
				}
				req.ImportKey = &sk
				defer sk.Wipe()
			}

			client, err := st.connect()
			if err != nil {
				return err
			}
			defer client.Close()

			log := st.log.Logger
			p := transfer.NewPipeline(transfer.Deps{
				Wallet:  st.wallet,
				Network: client,
				Builder: txbuilder.New(client,
					txbuilder.WithChainID(st.cfg.ChainID),
					txbuilder.WithFee(fee),
					txbuilder.WithLogger(log)),
				Signer:  txbuilder.Signer{},
				Logger:  log,
				Audit:   st.log,
			})

			ctx, cancel := st.context(cmd.Context())
			defer cancel()
			out, err := p.Run(ctx, req)
			if err != nil && !transfer.IsSubmissionError(err) {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.String())
			if err != nil {
				log.Error().Err(err).Msg("transfer not accepted")
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&st.cfg.Source, "source", st.cfg.Source, "source alias [SOURCE]")
	f.StringVar(&sourceKind, "source-kind", "", "spending-key, transparent or public-key (default: try in that order)")
	f.StringVar(&st.cfg.Target, "target", st.cfg.Target, "target alias [TARGET]")
	f.StringVar(&targetKind, "target-kind", "", "shielded, transparent or public-key (default: try in that order)")
	f.StringVar(&st.cfg.Token, "token", st.cfg.Token, "token alias or address, native token when empty [TOKEN]")
	f.Uint64Var(&st.cfg.Amount, "amount", st.cfg.Amount, "amount in whole tokens, not base units; 100 NAM is 100 [AMOUNT]")
	f.StringVar(&st.cfg.FeePayer, "fee-payer", st.cfg.FeePayer, "public-key alias paying the fee [FEE_PAYER]")
	f.StringVar(&st.cfg.Memo, "memo", st.cfg.Memo, "memo attached to the transaction [MEMO]")
	f.StringVar(&st.cfg.PrivateKey, "private-key", st.cfg.PrivateKey, "tsknam1 key stored under the source alias first [PRIVATE_KEY]")
	f.Uint64Var(&fee, "fee", 0, "fee in base units, raised to the chain minimum")
	return cmd
}
