package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/seedlock/internal/core"
	"github.com/illarion/seedlock/internal/crypto"
	"github.com/illarion/seedlock/internal/envelope"
)

func exportCmd() *cobra.Command {
	var encoding string

	cmd := &cobra.Command{
		Use:   "export [name]",
		Short: "Print a portable copy of a wallet protected by a separate password",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := walletName(args)

			enc, err := envelope.ParseEncoding(encoding)
			if err != nil {
				return err
			}

			w, err := openWallet()
			if err != nil {
				return err
			}
			defer w.Close()

			if _, err := w.Info(name); err != nil {
				return err
			}

			password, err := GetPassword("Enter wallet password: ")
			if err != nil {
				return err
			}
			defer crypto.ClearBytes(password)

			exportPassword, err := core.ReadPasswordConfirm("Enter export password: ")
			if err != nil {
				return err
			}
			defer crypto.ClearBytes(exportPassword)

			blob, err := w.Export(cmd.Context(), name, password, exportPassword, openOptions(), enc)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), blob)
			return nil
		},
	}

	cmd.Flags().StringVar(&encoding, "encoding", envelope.Base64.String(), "transport encoding: base64 or base58")
	return cmd
}
