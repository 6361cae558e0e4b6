package commands

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/Shivam-Patel-G/qatar-sale/core/token"
)

func historyCmd() *cobra.Command {
	var (
		limit    int
		backfill bool
		from     uint64
	)
	cmd := &cobra.Command{
		Use:   "history [address]",
		Short: "Show recorded purchases for an address",
		Long: "Show recorded purchases for an address, the configured wallet by default.\n" +
			"With --backfill the chain is scanned for the address first.",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{annotationStores: storesRequired},
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := parseAccount(args)
			if err != nil {
				return err
			}
			if account == (common.Address{}) {
				if account, err = appCtx.Service.Account(); err != nil {
					return err
				}
			}

			if backfill {
				l, err := appCtx.Listener()
				if err != nil {
					return err
				}
				n, err := l.Backfill(cmd.Context(), account, from)
				if err != nil {
					return err
				}
				labelColor.Printf("  scanned chain, %d new events\n", n)
			}
			return runHistory(cmd.Context(), account, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "rows to show, 0 for all")
	cmd.Flags().BoolVar(&backfill, "backfill", false, "scan the chain for this address before listing")
	cmd.Flags().Uint64Var(&from, "from", 0, "first block for --backfill")
	return cmd
}

func runHistory(ctx context.Context, account common.Address, limit int) error {
	h, err := appCtx.Service.History(ctx, account, limit)
	if err != nil {
		return err
	}

	header("🧾 Purchases " + token.ShortAddress(h.Summary.Account))
	if len(h.Purchases) == 0 {
		fmt.Println("  No purchases recorded.")
		return nil
	}
	fmt.Printf("  %-20s %-12s %-18s %-14s %s\n", "Time", "Block", "Tokens", "BNB", "Price")
	for _, p := range h.Purchases {
		when := "-"
		if !p.Timestamp.IsZero() {
			when = p.Timestamp.Local().Format("2006-01-02 15:04:05")
		}
		fmt.Printf("  %-20s %-12d %-18s %-14s %s\n", when, p.BlockNumber, amount(p.Tokens), amount(p.BNB), price(p.UnitPrice))
	}
	s := h.Summary
	fmt.Println()
	field("Purchases", s.Count)
	field("Total Tokens", amount(s.TotalTokens))
	field("Total BNB", amount(s.TotalBNB))
	field("Average Price", price(s.AveragePrice)+" BNB")
	return nil
}
