package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/terraconstructs/taskgate/cmd/taskgate/cmd/users"
	"github.com/terraconstructs/taskgate/internal/config"
	"github.com/terraconstructs/taskgate/internal/logging"
)

var (
	cfg     *config.Config
	logger  *zap.Logger
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "taskgate",
	Short: "Token-authenticated API gateway and task services",
	Long: `taskgate runs an edge gateway that verifies bearer tokens and forwards
a minimal identity (X-User-Id, X-User-Authorities) to the internal user,
task and submission services.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.ReadFile(cfgFile); err != nil {
			return err
		}
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		logger, err = logging.New(cfg.Debug)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ./taskgate.yaml or /etc/taskgate/taskgate.yaml)")
	rootCmd.PersistentFlags().String("db-url", "", "Database connection URL (env: TASKGATE_DATABASE_URL)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging (env: TASKGATE_DEBUG)")
	_ = viper.BindPFlag("database_url", rootCmd.PersistentFlags().Lookup("db-url"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	rootCmd.AddCommand(users.Bind(func() (*config.Config, *zap.Logger) {
		return cfg, logger
	}))
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
