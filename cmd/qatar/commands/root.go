package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Shivam-Patel-G/qatar-sale/config"
)

// annotationOffline marks commands that never need the chain ("true") or
// use it only when a contract is configured ("optional").
const annotationOffline = "offline"

// annotationStores marks commands that open the history database and the
// holder registry, with storesRequired or storesOptional.
const annotationStores = "stores"

var (
	configPath string
	overrides  config.Overrides

	cfg    *config.Config
	appCtx *App
)

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := &cobra.Command{
		Use:           "qatar",
		Short:         "Qatar token sale client for BNB Smart Chain",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			overrides.Compact, _ = cmd.Flags().GetBool("compact")
			cfg, err = config.Load(configPath, overrides)
			if err != nil {
				return err
			}
			logger := cfg.NewLogger()
			switch cmd.Annotations[annotationOffline] {
			case "true":
				return nil
			case "optional":
				if _, err := cfg.ContractAddress(); err != nil {
					return nil
				}
			}
			appCtx, err = newApp(cmd.Context(), cfg, logger, cmd.Annotations[annotationStores])
			return err
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "config file (default ./"+config.DefaultFile+" if present)")
	pf.StringVar(&overrides.Network, "network", "", "network preset: bsc or bsc-testnet")
	pf.StringVar(&overrides.RPCURL, "rpc", "", "JSON-RPC endpoint, overrides the network preset")
	pf.StringVar(&overrides.Contract, "contract", "", "sale contract address")
	pf.StringVar(&overrides.LogLevel, "log-level", "", "debug, info, warn or error")
	pf.Bool("compact", false, "abbreviate large amounts (1.23M, 12.35K)")

	root.AddCommand(
		infoCmd(),
		economicsCmd(),
		holdingsCmd(),
		quoteCmd(),
		mintCmd(),
		sellCmd(),
		investCmd(),
		historyCmd(),
		simulateCmd(),
		serveCmd(),
		consoleCmd(),
		networksCmd(),
	)

	err := root.ExecuteContext(ctx)
	if appCtx != nil {
		appCtx.Close()
	}
	if err != nil {
		printError(err)
	}
	return err
}
