package commands

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/Shivam-Patel-G/qatar-sale/core/sale"
	"github.com/Shivam-Patel-G/qatar-sale/core/token"
)

const msgInvalidAmount = "Please enter a valid amount"

func parseAmount(s string) (*big.Int, error) {
	v, err := token.ParseEther(s)
	if err != nil {
		return nil, &sale.StatusError{Status: msgInvalidAmount, Err: err}
	}
	return v, nil
}

func quoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Estimate a mint or sell without sending anything",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "mint <bnb>",
			Short: "Tokens received for a BNB amount",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runQuoteMint(cmd.Context(), args[0])
			},
		},
		&cobra.Command{
			Use:   "sell <tokens>",
			Short: "BNB received for a token amount",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runQuoteSell(cmd.Context(), args[0])
			},
		},
	)
	return cmd
}

func mintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mint <bnb>",
		Short: "Buy tokens with BNB from the configured wallet (0.03 to 1 BNB)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMint(cmd.Context(), args[0])
		},
	}
}

func sellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sell <tokens|max>",
		Short: "Sell tokens back to the contract for BNB",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSell(cmd.Context(), args[0])
		},
	}
}

func runQuoteMint(ctx context.Context, input string) error {
	v, err := parseAmount(input)
	if err != nil {
		return err
	}
	q, err := appCtx.Service.QuoteMint(ctx, v)
	if err != nil {
		return err
	}
	header("🧮 Mint Estimate")
	field("You Pay", token.FormatEther(q.Amount)+" BNB")
	field("Price", price(q.Price)+" BNB")
	field("You Receive", amount(q.Tokens)+" "+appCtx.Service.Symbol())
	return nil
}

func runQuoteSell(ctx context.Context, input string) error {
	v, err := sellAmount(ctx, input)
	if err != nil {
		return err
	}
	q, err := appCtx.Service.QuoteSell(ctx, v)
	if err != nil {
		return err
	}
	header("🧮 Sell Estimate")
	field("You Sell", amount(q.Amount)+" "+appCtx.Service.Symbol())
	field("Price", price(q.Price)+" BNB")
	field("You Receive", amount(q.BNB)+" BNB")
	return nil
}

func runMint(ctx context.Context, input string) error {
	v, err := parseAmount(input)
	if err != nil {
		return err
	}
	header("🪙 Mint " + token.FormatEther(v) + " BNB")
	res, err := appCtx.Service.Mint(ctx, v, printStatus)
	if err != nil {
		return err
	}
	printResult(res)
	return nil
}

func runSell(ctx context.Context, input string) error {
	v, err := sellAmount(ctx, input)
	if err != nil {
		return err
	}
	header("💱 Sell " + amount(v) + " " + appCtx.Service.Symbol())
	res, err := appCtx.Service.Sell(ctx, v, printStatus)
	if err != nil {
		return err
	}
	printResult(res)
	return nil
}

// sellAmount accepts a token amount or "max" for the whole wallet balance.
func sellAmount(ctx context.Context, input string) (*big.Int, error) {
	if strings.EqualFold(strings.TrimSpace(input), "max") {
		return appCtx.Service.MaxSell(ctx, common.Address{})
	}
	return parseAmount(input)
}

func printResult(res *sale.Result) {
	if res.Expected != nil {
		unit := appCtx.Service.Symbol()
		if res.Operation == "sell" {
			unit = "BNB"
		}
		field("Expected", amount(res.Expected)+" "+unit)
	}
	field("Transaction", res.TxHash)
	if res.BlockNumber > 0 {
		field("Block", res.BlockNumber)
		field("Gas Used", res.GasUsed)
	}
}
