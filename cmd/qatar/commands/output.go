package commands

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/Shivam-Patel-G/qatar-sale/core/sale"
	"github.com/Shivam-Patel-G/qatar-sale/core/token"
)

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	labelColor   = color.New(color.FgHiBlack)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
)

func compact() bool {
	return cfg != nil && cfg.Compact
}

// amount renders wei either abbreviated or with six decimals.
func amount(wei *big.Int) string {
	if compact() {
		return token.FormatCompact(wei)
	}
	return token.FormatFixed(wei, 6)
}

// price keeps full precision; prices are tiny BNB fractions.
func price(wei *big.Int) string {
	return token.FormatEther(wei)
}

func header(title string) {
	headerColor.Println(title)
	fmt.Println(strings.Repeat("-", len([]rune(title))+4))
}

func field(label string, value interface{}) {
	labelColor.Printf("  %-22s", label+":")
	fmt.Println(value)
}

func printError(err error) {
	var se *sale.StatusError
	if errors.As(err, &se) {
		errorColor.Fprintln(os.Stderr, "❌ "+se.Status)
		return
	}
	errorColor.Fprintf(os.Stderr, "❌ %v\n", err)
}

// printStatus is the ProgressFunc used by mint and sell.
func printStatus(st sale.Status) {
	switch st.Stage {
	case sale.StageFailed:
		errorColor.Println("  " + st.Message)
	case sale.StageSent, sale.StageConfirmed:
		successColor.Println("  " + st.Message)
		if st.Stage == sale.StageSent && st.TxHash != "" && cfg != nil {
			labelColor.Println("  " + cfg.NetworkInfo().TxURL(st.TxHash))
		}
	default:
		warnColor.Println("  " + st.Message)
	}
}
