package commands

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"shieldxfer/internal/address"
)

func keysCmd(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage wallet keys and addresses",
	}
	cmd.AddCommand(keysGenCmd(st), keysAddCmd(st), keysListCmd(st))
	return cmd
}

func keysGenCmd(st *state) *cobra.Command {
	var shielded, force bool
	cmd := &cobra.Command{
		Use:   "gen <alias>",
		Short: "Generate a keypair, or a spending key with --shielded",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			alias := args[0]
			if shielded {
				esk, err := address.GenerateSpendingKey()
				if err != nil {
					return err
				}
				defer esk.Wipe()
				if err := st.wallet.InsertSpendingKey(alias, esk, force); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), esk.PaymentAddress())
			} else {
				sk, err := address.GenerateSecretKey()
				if err != nil {
					return err
				}
				defer sk.Wipe()
				if err := st.wallet.InsertKeypair(alias, sk, force); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), sk.Public().Address())
			}
			st.log.Audit("key_generated", map[string]any{"alias": alias, "shielded": shielded})
			return nil
		},
	}
	cmd.Flags().BoolVar(&shielded, "shielded", false, "generate a spending key")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing alias")
	return cmd
}

func keysAddCmd(st *state) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "add <alias> <tsknam1|zsknam1|tnam1|znam1...>",
		Short: "Store a key or address under an alias",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			alias, value := args[0], args[1]
			if err := insertEncoded(st, alias, value, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", alias)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing alias")
	return cmd
}

func insertEncoded(st *state, alias, value string, force bool) error {
	if sk, err := address.ParseSecretKey(value); err == nil {
		defer sk.Wipe()
		st.log.Audit("keypair_inserted", map[string]any{"alias": alias})
		return st.wallet.InsertKeypair(alias, sk, force)
	}
	if esk, err := address.ParseSpendingKey(value); err == nil {
		defer esk.Wipe()
		st.log.Audit("spending_key_inserted", map[string]any{"alias": alias})
		return st.wallet.InsertSpendingKey(alias, esk, force)
	}
	if a, err := address.ParseAddress(value); err == nil {
		return st.wallet.InsertAddress(alias, a, force)
	}
	if pa, err := address.ParsePaymentAddress(value); err == nil {
		return st.wallet.InsertPaymentAddr(alias, pa, force)
	}
	return errors.New("value is not a secret key, spending key, address or payment address")
}

func keysListCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List aliases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, e := range st.wallet.Aliases() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Alias, e.Kind, e.Value)
			}
			return tw.Flush()
		},
	}
}
