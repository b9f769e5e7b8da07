package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/seedlock/internal/core"
	"github.com/illarion/seedlock/internal/crypto"
)

func passwdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "passwd [name]",
		Short: "Change a wallet's password",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := walletName(args)

			w, err := openWallet()
			if err != nil {
				return err
			}
			defer w.Close()

			if _, err := w.Info(name); err != nil {
				return err
			}

			currentPassword, err := GetPassword("Enter current password: ")
			if err != nil {
				return err
			}
			defer crypto.ClearBytes(currentPassword)

			newPassword, err := core.ReadPasswordConfirm("Enter new password: ")
			if err != nil {
				return err
			}
			defer crypto.ClearBytes(newPassword)

			if err := w.ChangePassword(cmd.Context(), name, currentPassword, newPassword, openOptions()); err != nil {
				return err
			}

			// Drop free pages still holding the old envelope
			if err := w.Compact(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: compaction failed: %s\n", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "password changed successfully")
			return nil
		},
	}
}
