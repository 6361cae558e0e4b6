package commands

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

// parseAccount returns the zero address for no argument, which the
// service resolves to the connected wallet.
func parseAccount(args []string) (common.Address, error) {
	if len(args) == 0 || args[0] == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(args[0]) {
		return common.Address{}, fmt.Errorf("invalid address %q", args[0])
	}
	return common.HexToAddress(args[0]), nil
}

func holdingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "holdings [address]",
		Short: "Show a token balance valued in BNB and USD",
		Long:  "Show a token balance valued in BNB and USD. Without an address the configured wallet is used.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := parseAccount(args)
			if err != nil {
				return err
			}
			return runHoldings(cmd.Context(), account)
		},
	}
}

func runHoldings(ctx context.Context, account common.Address) error {
	h, err := appCtx.Service.Holdings(ctx, account)
	if err != nil {
		return err
	}
	symbol := appCtx.Service.Symbol()
	header("💼 Holdings " + h.ShortAddress)
	field("Address", h.Address)
	field("Balance", amount(h.Balance)+" "+symbol)
	field("Price", price(h.Price)+" BNB")
	field("Value", amount(h.ValueBNB)+" BNB")
	field("Value (USD)", "$"+h.ValueUSD.StringFixed(2))
	field("BNB/USD", fmt.Sprintf("%s (%s)", h.USDRate.StringFixed(2), h.RateSource))
	return nil
}
