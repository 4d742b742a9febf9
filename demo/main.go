// Command navtool builds, saves, queries, benchmarks and dumps tile cached navmeshes.
package main

import (
	"fmt"
	"os"

	"github.com/gorustyt/tilenav/common/log"
	"github.com/gorustyt/tilenav/config"
	"github.com/spf13/cobra"
)

type app struct {
	configPath string
	cfg        *config.Config
}

func (a *app) loadConfig(cmd *cobra.Command, args []string) error {
	if a.configPath == "" {
		a.cfg = config.Default()
	} else {
		cfg, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}
	_, err := log.Init(a.cfg.Log)
	return err
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:               "navtool",
		Short:             "Tile cached navigation mesh tool",
		SilenceUsage:      true,
		PersistentPreRunE: a.loadConfig,
	}
	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML configuration file")

	rootCmd.AddCommand(newBuildCmd(a), newPathCmd(a), newObjCmd(a), newBenchCmd(a))
	return rootCmd
}

func main() {
	rootCmd := newRootCmd()
	err := rootCmd.Execute()
	_ = log.L().Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
