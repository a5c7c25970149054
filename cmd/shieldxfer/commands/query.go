package commands

import (
	"context"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"shieldxfer/internal/address"
	"shieldxfer/internal/masp"
	"shieldxfer/internal/rpc"
	"shieldxfer/internal/transfer"
)

var accountKinds = []transfer.Kind{
	transfer.KindSpendingKey,
	transfer.KindShielded,
	transfer.KindTransparent,
	transfer.KindPublicKey,
}

func balanceCmd(st *state) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "balance <alias>",
		Short: "Show the balance of an account in one token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := transfer.ResolveFirst(st.wallet, args[0], accountKinds...)
			if err != nil {
				return err
			}
			client, err := st.connect()
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := st.context(cmd.Context())
			defer cancel()
			tok, err := transfer.ResolveToken(ctx, client, st.wallet, token)
			if err != nil {
				return err
			}
			decimals, err := client.QueryDenomination(ctx, tok)
			if err != nil {
				return err
			}
			amount, err := balanceOf(ctx, client, ref, tok)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", tok, formatBaseUnits(amount, decimals))
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "token alias or address, native token when empty")
	return cmd
}

func notesCmd(st *state) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "notes <alias>",
		Short: "List the unspent notes of a shielded account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := transfer.ResolveFirst(st.wallet, args[0], transfer.KindSpendingKey, transfer.KindShielded)
			if err != nil {
				return err
			}
			client, err := st.connect()
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := st.context(cmd.Context())
			defer cancel()
			tok, err := transfer.ResolveToken(ctx, client, st.wallet, token)
			if err != nil {
				return err
			}
			notes, err := client.UnspentNotes(ctx, paymentAddress(ref), tok)
			if err != nil {
				return err
			}
			for _, n := range notes {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "token alias or address, native token when empty")
	return cmd
}

func balanceOf(ctx context.Context, client *rpc.Client, ref transfer.AccountRef, token address.Address) (uint64, error) {
	switch r := ref.(type) {
	case transfer.Transparent:
		return client.Balance(ctx, token, r.Address)
	case transfer.PublicKey:
		return client.Balance(ctx, token, r.Key.Address())
	case transfer.SpendingKey, transfer.Shielded:
		notes, err := client.UnspentNotes(ctx, paymentAddress(ref), token)
		if err != nil {
			return 0, err
		}
		return sumNotes(notes), nil
	}
	return 0, fmt.Errorf("unsupported account %T", ref)
}

func paymentAddress(ref transfer.AccountRef) address.PaymentAddress {
	switch r := ref.(type) {
	case transfer.SpendingKey:
		return r.Key.PaymentAddress()
	case transfer.Shielded:
		return r.PaymentAddress
	}
	return address.PaymentAddress{}
}

func sumNotes(notes []masp.Note) uint64 {
	var total uint64
	for _, n := range notes {
		total += n.Value
	}
	return total
}

func formatBaseUnits(amount uint64, decimals uint8) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(decimals)).StringFixed(int32(decimals))
}
