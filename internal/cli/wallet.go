package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/forPelevin/clipcut/internal/config"
	"github.com/forPelevin/clipcut/internal/ports/adapters/ledger"
)

func walletCmd() *cobra.Command {
	wallet := &cobra.Command{
		Use:   "wallet",
		Short: "Inspect and top up billing wallets",
	}

	balance := &cobra.Command{
		Use:   "balance <user>",
		Short: "Show a user's coin balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openLedger(cmd)
			if err != nil {
				return err
			}
			defer store.Close()
			bal, err := store.Balance(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d\n", bal)
			return nil
		},
	}

	topup := &cobra.Command{
		Use:   "topup <user> <amount>",
		Short: "Credit coins to a user's balance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || amount <= 0 {
				return fmt.Errorf("invalid amount %q", args[1])
			}
			store, err := openLedger(cmd)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Credit(context.Background(), args[0], amount, "manual topup"); err != nil {
				return err
			}
			bal, err := store.Balance(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d\n", bal)
			return nil
		},
	}

	wallet.AddCommand(balance, topup)
	return wallet
}

func openLedger(cmd *cobra.Command) (*ledger.Store, error) {
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	if cfgPath == "" {
		cfgPath = "clipcut.toml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	return ledger.Open(cfg.Billing.LedgerPath, cfg.Billing.StartingBalance)
}
