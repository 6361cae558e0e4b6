package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Shivam-Patel-G/qatar-sale/core/pricing"
	"github.com/Shivam-Patel-G/qatar-sale/core/token"
)

func investCmd() *cobra.Command {
	var milestones uint64
	cmd := &cobra.Command{
		Use:   "invest <bnb>",
		Short: "Project the value of a purchase after future price increases",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInvest(cmd.Context(), args[0], milestones)
		},
	}
	cmd.Flags().Uint64VarP(&milestones, "milestones", "m", 10, fmt.Sprintf("milestones reached before selling (max %d)", pricing.MaxMilestones))
	return cmd
}

func runInvest(ctx context.Context, input string, milestones uint64) error {
	v, err := parseAmount(input)
	if err != nil {
		return err
	}
	p, err := appCtx.Service.Invest(ctx, v, milestones)
	if err != nil {
		return err
	}
	header("🔮 Investment Projection")
	field("Investment", token.FormatEther(p.Investment)+" BNB")
	field("Tokens", amount(p.Tokens)+" "+appCtx.Service.Symbol())
	field("Milestones", p.Milestones)
	field("Future Price", price(p.FuturePrice)+" BNB")
	field("Future Value", amount(p.FutureValue)+" BNB")
	ret := fmt.Sprintf("%s BNB (%s)", amount(p.Return), token.Percent(p.ReturnPercent))
	if p.Return.Sign() >= 0 {
		successColor.Printf("  %-22s%s\n", "Return:", ret)
	} else {
		errorColor.Printf("  %-22s%s\n", "Return:", ret)
	}
	return nil
}
