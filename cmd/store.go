package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/seedlock/internal/core"
	"github.com/illarion/seedlock/internal/crypto"
	"github.com/illarion/seedlock/internal/seed"
)

func storeCmd() *cobra.Command {
	var (
		portable bool
		generate bool
		words    int
		mnemonic bool
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "store [name]",
		Short: "Encrypt and store a seed",
		Long: "Reads a seed from stdin (or generates a BIP-39 mnemonic with --generate),\n" +
			"encrypts it with a password and stores it. Wallets are bound to this\n" +
			"device unless --portable is given.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := walletName(args)

			w, err := openWallet()
			if err != nil {
				return err
			}
			defer w.Close()

			if !force {
				exists, err := w.Exists(name)
				if err != nil {
					return err
				}
				if exists {
					return fmt.Errorf("%w: %s", core.ErrAlreadyExists, name)
				}
			}

			secret, err := readSecret(cmd, generate, words, mnemonic)
			if err != nil {
				return err
			}

			opts, err := sealOptions(portable)
			if err != nil {
				return err
			}
			opts.Overwrite = force

			password, err := GetNewPassword("Enter password: ")
			if err != nil {
				return err
			}
			defer crypto.ClearBytes(password)

			if err := w.Save(cmd.Context(), name, secret, password, opts); err != nil {
				return err
			}

			if generate {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n", secret.Seed)
				fmt.Fprintf(cmd.ErrOrStderr(), "Write down the %d words above; they are the only backup.\n", secret.Words())
			}
			binding := "device-bound"
			if portable {
				binding = "portable"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wallet %q stored (%s)\n", name, binding)
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVar(&portable, "portable", false, "do not bind the wallet to this device")
	f.BoolVar(&generate, "generate", false, "generate a new BIP-39 mnemonic")
	f.IntVar(&words, "words", 24, "mnemonic length for --generate (12, 15, 18, 21 or 24)")
	f.BoolVar(&mnemonic, "mnemonic", false, "validate the input as a BIP-39 mnemonic")
	f.BoolVar(&force, "force", false, "replace an existing wallet")
	cmd.MarkFlagsMutuallyExclusive("generate", "mnemonic")
	return cmd
}

func readSecret(cmd *cobra.Command, generate bool, words int, mnemonic bool) (*seed.Secret, error) {
	if generate {
		return seed.Generate(words)
	}

	var (
		text string
		err  error
	)
	in := core.NewLineReader(cmd.InOrStdin())
	if in.Interactive() {
		var raw []byte
		raw, err = core.ReadPassword("Enter seed: ")
		text = string(raw)
		crypto.ClearBytes(raw)
	} else {
		text, err = in.ReadLine("")
	}
	if err != nil {
		return nil, err
	}

	if mnemonic {
		return seed.NewMnemonic(text)
	}
	return seed.NewRaw(text)
}
