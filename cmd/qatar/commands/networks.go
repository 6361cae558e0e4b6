package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Shivam-Patel-G/qatar-sale/config"
)

func networksCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "networks",
		Short:       "List network presets",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationOffline: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			header("🌐 Networks")
			for _, name := range config.Networks() {
				n, err := config.GetNetwork(name)
				if err != nil {
					return err
				}
				marker := " "
				if cfg != nil && cfg.Network == n.Name {
					marker = "*"
				}
				fmt.Printf(" %s %-12s chain %-4d %s\n", marker, n.Name, n.ChainID, n.RPCURL)
			}
			return nil
		},
	}
}
