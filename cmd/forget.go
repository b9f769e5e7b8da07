package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/seedlock/internal/core"
)

func forgetCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:     "forget [name]",
		Aliases: []string{"rm"},
		Short:   "Delete a stored wallet",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := walletName(args)

			w, err := openWallet()
			if err != nil {
				return err
			}
			defer w.Close()

			exists, err := w.Exists(name)
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("%w: %s", core.ErrNotFound, name)
			}

			if !force {
				ok, err := confirm(core.NewLineReader(cmd.InOrStdin()), fmt.Sprintf("Forget wallet %q? This cannot be undone [y/N]: ", name))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "aborted")
					return nil
				}
			}

			if err := w.Delete(name); err != nil {
				return err
			}
			if err := w.Compact(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: compaction failed: %s\n", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wallet %q forgotten\n", name)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "do not ask for confirmation")
	return cmd
}
