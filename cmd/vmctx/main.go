package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "vmctx",
	Short:         "Run scripts and report their exceptions",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		processGlobalFlags()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.vmctx.yaml)")
	pf.Bool("no-color", false, "Disable colored output")
	pf.String("log-level", "warn", "Log level (debug, info, warn, error)")
	pf.StringP("output", "o", "text", "Output format (text, json)")
	pf.Int("max-depth", 0, "Maximum call stack depth (0 uses the engine default)")
	pf.Duration("timeout", 0, "Abort the script after this duration")
	pf.Bool("trace", false, "Log script calls and returns at debug level")
	for _, name := range []string{"no-color", "log-level", "output", "max-depth", "timeout", "trace"} {
		viper.BindPFlag(name, pf.Lookup(name))
	}
	viper.BindEnv("no-color", "NO_COLOR")

	rootCmd.AddCommand(buildCmd, runCmd, execCmd, disCmd, docCmd, versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fatal(err)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".vmctx")
		viper.SetConfigType("yaml")
	}
	viper.SetEnvPrefix("vmctx")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fatal(fmt.Errorf("config: %w", err))
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errScriptFailed) {
			os.Exit(1)
		}
		fatal(err)
	}
}
