package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Aliases: []string{"ls"},
		Short:   "List stored wallets without unlocking them",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWallet()
			if err != nil {
				return err
			}
			defer w.Close()

			infos, err := w.List()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(infos) == 0 {
				fmt.Fprintln(out, "No wallets stored")
				fmt.Fprintln(out, "Run 'seedlock store' to add one")
			} else {
				fmt.Fprintln(out, "Wallets:")
				for _, info := range infos {
					binding := "portable"
					if info.DeviceBound {
						binding = "device-bound"
					}
					fmt.Fprintf(out, "  %-20s v%d %-12s %9d iterations (%s)\n",
						info.Name, info.Version, binding, info.Iterations, formatSize(int64(info.Size)))
				}
			}

			if rec, ok := w.CachedCalibration(); ok {
				measured := time.UnixMilli(rec.MeasuredAt)
				fmt.Fprintf(out, "\ncalibration: %d iterations (measured %s)\n", rec.Iterations, measured.Format(time.RFC3339))
			} else {
				fmt.Fprintln(out, "\ncalibration: not cached")
			}

			path := w.Path()
			if st, err := os.Stat(path); err == nil {
				fmt.Fprintf(out, "database: %s (%s)\n", path, formatSize(st.Size()))
			}
			created, err := w.Created()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "created: %s\n", created.Format(time.RFC3339))
			return nil
		},
	}
}
