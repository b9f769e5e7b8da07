package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/seedlock/internal/crypto"
	"github.com/illarion/seedlock/internal/seed"
)

func unlockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlock [name]",
		Short: "Decrypt a wallet and print its seed",
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

			password, err := GetPassword("Enter password: ")
			if err != nil {
				return err
			}
			defer crypto.ClearBytes(password)

			var secret seed.Secret
			if err := w.Load(cmd.Context(), name, password, openOptions(), &secret); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), secret.Seed)
			return nil
		},
	}
}
