package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Shivam-Patel-G/qatar-sale/core/sale"
	"github.com/Shivam-Patel-G/qatar-sale/core/token"
)

func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show token price and supply",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOverview(cmd.Context(), printInfo)
		},
	}
}

func economicsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "economics",
		Short: "Show milestone progress and price growth",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOverview(cmd.Context(), printEconomics)
		},
	}
}

func runOverview(ctx context.Context, show func(*sale.Overview)) error {
	ov, err := appCtx.Service.Overview(ctx)
	if err != nil {
		return err
	}
	show(ov)
	return nil
}

func printInfo(ov *sale.Overview) {
	header("📊 " + ov.Symbol + " Token Info")
	field("Contract", ov.Contract)
	field("Current Price", price(ov.CurrentPrice)+" BNB")
	field("Total Minted", amount(ov.TotalMinted)+" "+ov.Symbol)
	field("Tokens Burned", amount(ov.BurnedTokens)+" "+ov.Symbol)
	field("Remaining Supply", amount(ov.RemainingSupply)+" "+ov.Symbol)
	field("BNB Received", amount(ov.TotalBNBReceived)+" BNB")
	if ov.Holders > 0 {
		field("Holders", ov.Holders)
	}
	if ov.Cached {
		labelColor.Println("  (cached)")
	}
}

func printEconomics(ov *sale.Overview) {
	header("📈 " + ov.Symbol + " Economics")
	field("Initial Price", price(ov.InitialPrice)+" BNB")
	field("Current Price", price(ov.CurrentPrice)+" BNB")
	field("Next Price", price(ov.NextPrice)+" BNB")
	field("Price Growth", ov.Growth.StringFixed(2)+"x")
	field("Milestones Reached", ov.Milestones)
	field("Milestone Size", token.FormatEther(ov.Milestone)+" BNB")
	field("Milestone Progress", fmt.Sprintf("%d%% %s", ov.ProgressPercent, progressBar(ov.ProgressPercent, 20)))
	field("BNB to Next Increase", amount(ov.BNBNeeded)+" BNB")
	field("Burned", ov.BurnedPercent.String()+"%")
	field("Available to Mint", amount(ov.AvailableToMint)+" "+ov.Symbol)
}

func progressBar(pct int64, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int(pct) * width / 100
	bar := make([]rune, width)
	for i := range bar {
		if i < filled {
			bar[i] = '█'
		} else {
			bar[i] = '░'
		}
	}
	return "[" + string(bar) + "]"
}
