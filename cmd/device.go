package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/seedlock/internal/core"
	"github.com/illarion/seedlock/internal/keyring"
)

func deviceCmd() *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "device",
		Short: "Show this installation's device id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Device.ID != "" {
				if reset {
					return errors.New("device id is set by configuration; unset SEEDLOCK_DEVICE_ID to use the keyring")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (from configuration)\n", cfg.Device.ID)
				return nil
			}

			identity := keyring.NewDeviceIdentity(cfg.Device.KeyringService)
			if reset {
				return resetDevice(cmd, identity)
			}

			id, err := identity.DeviceID()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "delete the device id; device-bound wallets become unreadable")
	return cmd
}

func resetDevice(cmd *cobra.Command, identity *keyring.DeviceIdentity) error {
	ok, err := confirm(core.NewLineReader(cmd.InOrStdin()), "Device-bound wallets will no longer unlock. Reset device id? [y/N]: ")
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "aborted")
		return nil
	}

	if err := identity.Reset(); err != nil {
		if errors.Is(err, keyring.ErrNoDeviceID) {
			fmt.Fprintln(cmd.OutOrStdout(), "no device id stored")
			return nil
		}
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "device id removed")
	return nil
}

// sealOptions returns the binding for newly written wallets.
// Device-bound wallets create the device id on first use.
func sealOptions(portable bool) (core.Options, error) {
	if portable {
		return core.Options{}, nil
	}

	id, err := deviceProvider().DeviceID()
	if err != nil {
		return core.Options{}, fmt.Errorf("failed to get device id: %w", err)
	}
	return core.Options{DeviceBound: true, DeviceID: id}, nil
}

// deviceProvider returns the configured override or the keyring identity
func deviceProvider() keyring.Provider {
	if cfg.Device.ID != "" {
		return keyring.Static(cfg.Device.ID)
	}
	return keyring.NewDeviceIdentity(cfg.Device.KeyringService)
}

// openOptions returns the device id for reading wallets. A missing or
// unreadable identity is treated as "", so device-bound wallets fail to
// authenticate rather than a new id being created.
func openOptions() core.Options {
	if cfg.Device.ID != "" {
		return core.Options{DeviceID: cfg.Device.ID}
	}

	id, err := keyring.NewDeviceIdentity(cfg.Device.KeyringService).Lookup()
	if err != nil {
		if !errors.Is(err, keyring.ErrNoDeviceID) {
			log.Warn().Err(err).Msg("device id unavailable")
		}
		return core.Options{}
	}
	return core.Options{DeviceID: id}
}
