package commands

import (
	"github.com/spf13/cobra"

	"github.com/Shivam-Patel-G/qatar-sale/core/history"
	"github.com/Shivam-Patel-G/qatar-sale/core/monitoring"
)

func serveCmd() *cobra.Command {
	var (
		addr   string
		listen bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard API and websocket feed",
		Long: "Run the dashboard API and websocket feed. With --listen the sale\n" +
			"events are followed as well, keeping purchase history and holders current.",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationStores: storesRequired},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sc := cfg.Server
			if addr != "" {
				sc.Addr = addr
			}
			if cmd.Flags().Changed("listen") {
				sc.Listen = listen
			}

			var listener *history.Listener
			if sc.Listen {
				l, err := appCtx.Listener()
				if err != nil {
					return err
				}
				if err := l.Start(ctx); err != nil {
					return err
				}
				listener = l
			}

			dash := monitoring.NewDashboard(appCtx.Service, appCtx.Holders, monitoring.Config{
				Addr:               sc.Addr,
				RefreshInterval:    sc.RefreshInterval,
				SupplyAlertPercent: sc.SupplyAlertPercent,
				ReadTimeout:        cfg.RPCTimeout,
			}, appCtx.Logger)
			if err := dash.Start(ctx); err != nil {
				return err
			}
			successColor.Printf("✅ Dashboard listening on %s (network %s)\n", sc.Addr, cfg.Network)

			<-ctx.Done()
			appCtx.Logger.Info("Shutting down...")
			if listener != nil {
				listener.Stop()
			}
			return dash.Stop()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&listen, "listen", false, "follow sale events into history and the holder registry")
	return cmd
}
