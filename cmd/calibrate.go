package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func calibrateCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Show or refresh the key derivation calibration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWallet()
			if err != nil {
				return err
			}
			defer w.Close()

			resolve := w.Iterations
			if force {
				resolve = w.Recalibrate
			}

			start := time.Now()
			iterations, err := resolve(cmd.Context())
			if err != nil {
				return err
			}
			log.Debug().Dur("elapsed", time.Since(start)).Msg("calibration resolved")

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "iterations: %d\n", iterations)
			fmt.Fprintf(out, "target: %s\n", cfg.Calibration.Target)
			if rec, ok := w.CachedCalibration(); ok {
				fmt.Fprintf(out, "measured: %s\n", time.UnixMilli(rec.MeasuredAt).Format(time.RFC3339))
			} else {
				fmt.Fprintln(out, "measured: not cached (probe failed, using minimum)")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "re-run the benchmark even if a fresh result is cached")
	return cmd
}
