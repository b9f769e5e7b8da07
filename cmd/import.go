package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/seedlock/internal/core"
	"github.com/illarion/seedlock/internal/crypto"
	"github.com/illarion/seedlock/internal/envelope"
	"github.com/illarion/seedlock/internal/seed"
)

func importCmd() *cobra.Command {
	var (
		encoding string
		portable bool
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "import [name]",
		Short: "Store an exported wallet read from stdin",
		Long: "Reads an exported wallet from stdin, verifies it with its export password\n" +
			"and stores it under the same password, bound to this device unless\n" +
			"--portable is given.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := walletName(args)

			enc, err := envelope.ParseEncoding(encoding)
			if err != nil {
				return err
			}

			blob, err := core.NewLineReader(cmd.InOrStdin()).ReadLine("Paste exported wallet: ")
			if err != nil {
				return err
			}
			if blob == "" {
				return errors.New("no exported wallet on stdin")
			}

			w, err := openWallet()
			if err != nil {
				return err
			}
			defer w.Close()

			// The device id is resolved only after the blob has been verified
			opts := openOptions()
			opts.Overwrite = force
			if !portable {
				opts.DeviceBound = true
				opts.ResolveDeviceID = deviceProvider().DeviceID
			}

			password, err := GetPassword("Enter export password: ")
			if err != nil {
				return err
			}
			defer crypto.ClearBytes(password)

			var secret seed.Secret
			if err := w.Import(cmd.Context(), name, blob, password, opts, enc, &secret); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wallet %q imported\n", name)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&encoding, "encoding", envelope.Base64.String(), "transport encoding: base64 or base58")
	f.BoolVar(&portable, "portable", false, "do not bind the imported wallet to this device")
	f.BoolVar(&force, "force", false, "replace an existing wallet")
	return cmd
}
