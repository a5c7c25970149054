// Command ledgerd runs a single-node devnet ledger.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"shieldxfer/internal/config"
	"shieldxfer/internal/logging"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:          "ledgerd",
		Short:        "Run a devnet ledger node",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(); err != nil {
				return err
			}
			cfg, err := config.LoadNodeConfig(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			log, err := logging.New(cfg.LogLevel, cfg.LogFile, cfg.AuditFile)
			if err != nil {
				return err
			}
			defer log.Close()

			node, err := NewNode(cfg, log)
			if err != nil {
				return err
			}
			log.Info().
				Str("chain_id", cfg.Genesis.ChainID).
				Uint64("height", node.ledger.Height()).
				Msg("ledger ready")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return node.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "ledgerd.json", "node config file, created with defaults if missing")
	cmd.AddCommand(initCmd())
	return cmd
}

func initCmd() *cobra.Command {
	var chainID string
	cmd := &cobra.Command{
		Use:   "init <config-path>",
		Short: "Write a default node config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultNodeConfig()
			if chainID != "" {
				cfg.Genesis.ChainID = chainID
			}
			if err := config.SaveNodeConfig(cfg, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&chainID, "chain-id", "", "chain identifier")
	return cmd
}

