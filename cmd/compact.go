package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func compactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Compact the wallet database to reclaim unused space",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWallet()
			if err != nil {
				return err
			}
			defer w.Close()

			path := w.Path()
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			sizeBefore := info.Size()

			if err := w.Compact(); err != nil {
				return err
			}

			info, err = os.Stat(path)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Compacted: %s -> %s\n", formatSize(sizeBefore), formatSize(info.Size()))
			return nil
		},
	}
}
