package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/Shivam-Patel-G/qatar-sale/core/sale"
)

// Console is the interactive menu over the same actions as the commands.
type Console struct {
	reader *bufio.Reader
}

func NewConsole(in io.Reader) *Console {
	return &Console{reader: bufio.NewReader(in)}
}

func consoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "console",
		Short:       "Interactive menu",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationStores: storesOptional},
		RunE: func(cmd *cobra.Command, args []string) error {
			NewConsole(os.Stdin).Start(cmd.Context())
			return nil
		},
	}
}

func (c *Console) Start(ctx context.Context) {
	headerColor.Printf("🇶🇦 %s Token Console\n", appCtx.Service.Symbol())
	fmt.Println(strings.Repeat("=", 40))
	if account, err := appCtx.Service.Account(); err == nil {
		field("Wallet", account.Hex())
	} else {
		warnColor.Println("  No wallet configured: minting and selling are disabled")
	}
	fmt.Println()

	for {
		if ctx.Err() != nil {
			return
		}
		c.showMenu()
		choice, ok := c.readInput("Enter your choice: ")
		if !ok {
			return
		}

		var err error
		switch choice {
		case "1":
			err = runOverview(ctx, printInfo)
		case "2":
			err = runOverview(ctx, printEconomics)
		case "3":
			err = c.holdings(ctx)
		case "4":
			err = c.withAmount("BNB to spend (0.03 - 1): ", func(s string) error { return runQuoteMint(ctx, s) })
		case "5":
			err = c.withAmount("BNB to spend (0.03 - 1): ", func(s string) error {
				if !c.confirm("Mint " + s + " BNB?") {
					return nil
				}
				return runMint(ctx, s)
			})
		case "6":
			err = c.withAmount("Tokens to sell (or max): ", func(s string) error { return runQuoteSell(ctx, s) })
		case "7":
			err = c.withAmount("Tokens to sell (or max): ", func(s string) error {
				if !c.confirm("Sell " + s + " tokens?") {
					return nil
				}
				return runSell(ctx, s)
			})
		case "8":
			err = c.invest(ctx)
		case "9":
			err = c.history(ctx)
		case "0", "q", "exit":
			fmt.Println("👋 Goodbye!")
			return
		default:
			errorColor.Println("❌ Invalid choice. Please try again.")
		}
		if err != nil {
			printError(err)
		}
		fmt.Println()
	}
}

func (c *Console) showMenu() {
	fmt.Println("📋 Main Menu:")
	fmt.Println("  1. Token Info")
	fmt.Println("  2. Economics")
	fmt.Println("  3. Holdings")
	fmt.Println("  4. Estimate Mint")
	fmt.Println("  5. Mint")
	fmt.Println("  6. Estimate Sell")
	fmt.Println("  7. Sell")
	fmt.Println("  8. Investment Calculator")
	fmt.Println("  9. Purchase History")
	fmt.Println("  0. Exit")
	fmt.Println()
}

// readInput returns false once input is exhausted.
func (c *Console) readInput(prompt string) (string, bool) {
	fmt.Print(prompt)
	line, err := c.reader.ReadString('\n')
	if err != nil && line == "" {
		return "", false
	}
	return strings.TrimSpace(line), true
}

func (c *Console) withAmount(prompt string, run func(string) error) error {
	s, ok := c.readInput(prompt)
	if !ok || s == "" {
		return &sale.StatusError{Status: msgInvalidAmount}
	}
	return run(s)
}

func (c *Console) confirm(question string) bool {
	answer, ok := c.readInput(question + " (y/N): ")
	return ok && (strings.EqualFold(answer, "y") || strings.EqualFold(answer, "yes"))
}

func (c *Console) address(prompt string) (common.Address, error) {
	s, _ := c.readInput(prompt)
	if s == "" {
		return common.Address{}, nil
	}
	return parseAccount([]string{s})
}

func (c *Console) holdings(ctx context.Context) error {
	account, err := c.address("Address (blank for wallet): ")
	if err != nil {
		return err
	}
	return runHoldings(ctx, account)
}

func (c *Console) invest(ctx context.Context) error {
	s, _ := c.readInput("BNB to invest (0.03 - 1): ")
	raw, _ := c.readInput("Milestones (1 - 101) [10]: ")
	milestones := uint64(10)
	if raw != "" {
		m, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || m == 0 {
			return fmt.Errorf("invalid milestone count %q", raw)
		}
		milestones = m
	}
	return runInvest(ctx, s, milestones)
}

func (c *Console) history(ctx context.Context) error {
	account, err := c.address("Address (blank for wallet): ")
	if err != nil {
		return err
	}
	if account == (common.Address{}) {
		if account, err = appCtx.Service.Account(); err != nil {
			return err
		}
	}
	return runHistory(ctx, account, 20)
}
