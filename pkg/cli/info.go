package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/withgalaxy/stash/pkg/scenario"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Display environment information",
	Long:  `Display useful information about your current stash setup`,
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Stash                    v%s\n", Version)
	fmt.Fprintf(out, "Go                       %s\n", runtime.Version())
	fmt.Fprintf(out, "System                   %s (%s)\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(out, "Working Directory        %s\n", e.root)

	if _, err := os.Stat(e.configPath); err == nil {
		fmt.Fprintf(out, "Config                   %s\n", e.configPath)
	}

	scenarioDir := e.resolve(e.cfg.ScenarioDir)
	if info, err := os.Stat(scenarioDir); err == nil && info.IsDir() {
		paths, err := scenario.Discover(scenarioDir)
		if err == nil {
			fmt.Fprintf(out, "Scenarios                %s (%d)\n", scenarioDir, len(paths))
		}
	}

	fmt.Fprintf(out, "Devtools                 %s\n", e.cfg.DevtoolsAddr())
	fmt.Fprintf(out, "Ops                      %s\n", strings.Join(scenario.Ops(), ", "))

	return nil
}
