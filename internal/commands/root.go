// Package commands wires the cobra command tree: flag parsing, config and
// logger setup, and one subcommand per way of consuming an ingested export.
package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"bereal_explorer/internal/config"
	"bereal_explorer/internal/logging"
	"bereal_explorer/internal/utils"
)

// configKeyAnnotation maps a flag onto its viper key.
const configKeyAnnotation = "bereal_config_key"

// Keys of command-local settings; they never appear in the config file.
const (
	keyFile   = "input.file"
	keyLog    = "input.log"
	keyOutput = "output"
)

type app struct {
	v          *viper.Viper
	configFile string
	cfg        *config.Config
	logger     *zap.Logger
}

func newApp() *app {
	return &app{v: config.New(), logger: zap.NewNop()}
}

// Execute runs the command tree against args until it finishes or the
// process is interrupted.
func Execute(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp()
	defer a.sync()

	rootCmd := a.rootCommand()
	rootCmd.SetArgs(utils.NormalizeGZShorthand(args))
	return rootCmd.ExecuteContext(ctx)
}

func (a *app) rootCommand() *cobra.Command {
	baseName := filepath.Base(os.Args[0])
	rootCmd := &cobra.Command{
		Use:           baseName,
		Short:         "Explore a BeReal data export: summarize it, extract it, export captures or browse it locally",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "", "Optional config file (yaml, json or toml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().Bool("log-dev", false, "Human-readable console logs instead of JSON")
	bindKey(rootCmd.PersistentFlags(), "log-level", config.KeyLogLevel)
	bindKey(rootCmd.PersistentFlags(), "log-dev", config.KeyLogDevelopment)

	rootCmd.AddCommand(
		a.summaryCommand(),
		a.extractCommand(),
		a.exportCommand(),
		a.serveCommand(),
	)
	return rootCmd
}

// setup binds the running command's flags, then loads config and builds the
// logger. Binding happens here because sibling commands share flag names.
func (a *app) setup(cmd *cobra.Command) error {
	var bindErr error
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		keys := flag.Annotations[configKeyAnnotation]
		if len(keys) == 0 || bindErr != nil {
			return
		}
		bindErr = a.v.BindPFlag(keys[0], flag)
	})
	if bindErr != nil {
		return bindErr
	}

	if dotEnvErr := config.LoadDotEnv(); dotEnvErr != nil {
		return dotEnvErr
	}
	cfg, loadErr := config.Load(a.v, a.configFile)
	if loadErr != nil {
		return loadErr
	}
	logger, loggerErr := logging.New(cfg.Log.Level, cfg.Log.Development)
	if loggerErr != nil {
		return loggerErr
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) sync() {
	_ = a.logger.Sync()
}

func bindKey(flags *pflag.FlagSet, name, key string) {
	_ = flags.SetAnnotation(name, configKeyAnnotation, []string{key})
}

// addInputFlags registers the two export inputs every subcommand reads.
func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("file", "f", "", "Path to the BeReal export ZIP (required)")
	cmd.Flags().String("log", "", "Path to the gzipped event log, also -gz (required)")
	bindKey(cmd.Flags(), "file", keyFile)
	bindKey(cmd.Flags(), "log", keyLog)
}

func (a *app) requireInputs() error {
	if a.v.GetString(keyFile) == "" {
		return errors.New("missing required flag: -f, --file")
	}
	if a.v.GetString(keyLog) == "" {
		return errors.New("missing required flag: -gz, --log")
	}
	return nil
}
