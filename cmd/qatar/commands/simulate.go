package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Shivam-Patel-G/qatar-sale/core/pricing"
)

func simulateCmd() *cobra.Command {
	var (
		step        string
		every       string
		showChanges bool
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay minting the whole supply and report the price path",
		Long: "Replay minting the whole supply step tokens at a time and report every\n" +
			"price increase. Runs on built-in constants when no contract is configured.",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationOffline: "optional"},
		RunE: func(cmd *cobra.Command, args []string) error {
			stepWei, err := parseAmount(step)
			if err != nil {
				return err
			}
			everyWei, err := parseAmount(every)
			if err != nil {
				return err
			}
			sc := pricing.SimulationConfig{Step: stepWei, CheckpointEvery: everyWei}

			start := time.Now()
			var report *pricing.SimulationReport
			if appCtx != nil {
				report, err = appCtx.Service.Simulate(cmd.Context(), sc)
			} else {
				warnColor.Println("  No contract configured, using built-in constants")
				report, err = pricing.DefaultCurve().Simulate(cmd.Context(), sc)
			}
			if err != nil {
				return err
			}

			header("🧪 Sale Simulation")
			field("Step", step+" tokens")
			field("Initial Price", price(report.InitialPrice)+" BNB")
			field("Final Price", price(report.FinalPrice)+" BNB")
			field("Price Increases", report.Increases)
			field("Growth", report.Multiple.StringFixed(2)+"x")
			field("Total Minted", amount(report.TotalMinted))
			field("Total BNB", amount(report.TotalBNB)+" BNB")
			field("Elapsed", time.Since(start).Round(time.Millisecond))

			if len(report.Checkpoints) > 0 {
				fmt.Println()
				fmt.Printf("  %-18s %-18s %s\n", "Minted", "BNB", "Price")
				for _, c := range report.Checkpoints {
					fmt.Printf("  %-18s %-18s %s\n", amount(c.TotalMinted), amount(c.TotalBNB), price(c.Price))
				}
			}
			if showChanges {
				fmt.Println()
				fmt.Printf("  %-10s %-18s %-18s %s\n", "Milestone", "Minted", "BNB", "New Price")
				for _, c := range report.Changes {
					fmt.Printf("  %-10d %-18s %-18s %s\n", c.Milestone, amount(c.TotalMinted), amount(c.TotalBNB), price(c.NewPrice))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&step, "step", "1", "tokens bought per simulated mint")
	cmd.Flags().StringVar(&every, "checkpoint", "100000", "print a checkpoint every N tokens minted")
	cmd.Flags().BoolVar(&showChanges, "changes", false, "list every price increase")
	return cmd
}
