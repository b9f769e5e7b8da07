package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/illarion/seedlock/internal/calibrate"
	"github.com/illarion/seedlock/internal/config"
	"github.com/illarion/seedlock/internal/core"
	"github.com/illarion/seedlock/internal/logger"
	"github.com/illarion/seedlock/internal/security"
)

var (
	flagCfg config.Config
	cfg     *config.Config
	log     = logger.Nop()
)

// Execute runs the seedlock command line
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "seedlock",
		Short:         "Password-protected local storage for wallet seeds",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(&flagCfg)
			if err != nil {
				return err
			}
			cfg = loaded
			log = logger.NewCLI(cfg.Log.Level)
			log.Debug().Str("db", cfg.Storage.Path).Dur("target", cfg.Calibration.Target).Msg("configuration loaded")
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flagCfg.File, "config", "", "YAML config file")
	pf.StringVar(&flagCfg.Storage.Path, "db", "", "wallet database (default ~/.seedlock/wallet.db)")
	pf.StringVar(&flagCfg.Log.Level, "log-level", "", "log level: debug, info, warn, error")
	pf.DurationVar(&flagCfg.Calibration.Target, "target", 0, "key derivation time budget (default 250ms)")

	root.AddCommand(
		storeCmd(),
		unlockCmd(),
		passwdCmd(),
		forgetCmd(),
		statusCmd(),
		calibrateCmd(),
		exportCmd(),
		importCmd(),
		deviceCmd(),
		compactCmd(),
	)
	return root
}

// openWallet opens the configured database
func openWallet() (*core.Wallet, error) {
	if err := security.CheckPermissions(cfg.Storage.Path); err != nil {
		log.Warn().Err(err).Msg("wallet database permissions are too open")
	}

	return core.Open(cfg.Storage.Path,
		core.WithLogger(log.Component("wallet")),
		core.WithCalibration(calibrate.WithTarget(cfg.Calibration.Target)),
	)
}

func walletName(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return core.DefaultWallet
}
