package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/withgalaxy/stash/pkg/config"
)

var initYes bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file and an example scenario",
	Long:  `Scaffold stash.config.toml and a first scenario in the project root`,
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&initYes, "yes", "y", false, "accept defaults without prompting")
}

const exampleScenario = `name: counter
description: Counts up, then writes a value that is already there.
initial:
  count: 0
steps:
  - set:
      count: 1
  - op: increment
    key: count
  - set:
      count: 2
    expect_notify: false
expect:
  count: 2
notifications: 2
`

type initAnswers struct {
	ScenarioDir string
	LogFormat   string
	Port        string
	Example     bool
}

func runInit(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	if rootDir != "" {
		cwd = rootDir
	}

	configPath := filepath.Join(cwd, config.FileName)
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("%s already exists", configPath)
	}

	cfg := config.DefaultConfig()
	answers := initAnswers{
		ScenarioDir: cfg.ScenarioDir,
		LogFormat:   string(cfg.Log.Format),
		Port:        strconv.Itoa(cfg.Devtools.Port),
		Example:     true,
	}

	if !initYes {
		questions := []*survey.Question{
			{
				Name:   "ScenarioDir",
				Prompt: &survey.Input{Message: "Scenario directory:", Default: answers.ScenarioDir},
			},
			{
				Name: "LogFormat",
				Prompt: &survey.Select{
					Message: "Log format:",
					Options: []string{string(config.LogFormatConsole), string(config.LogFormatJSON)},
					Default: answers.LogFormat,
				},
			},
			{
				Name:     "Port",
				Prompt:   &survey.Input{Message: "Devtools port:", Default: answers.Port},
				Validate: validatePort,
			},
			{
				Name:   "Example",
				Prompt: &survey.Confirm{Message: "Create an example scenario?", Default: true},
			},
		}
		if err := survey.Ask(questions, &answers); err != nil {
			return err
		}
	}

	port, err := strconv.Atoi(answers.Port)
	if err != nil {
		return fmt.Errorf("invalid port: %w", err)
	}

	cfg.ScenarioDir = answers.ScenarioDir
	cfg.Log.Format = config.LogFormat(answers.LogFormat)
	cfg.Devtools.Port = port
	if err := cfg.Validate(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if err := config.Save(configPath, cfg); err != nil {
		return err
	}
	fmt.Fprintf(out, "  ✓ Created %s\n", config.FileName)

	if answers.Example {
		dir := cfg.ScenarioDir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(cwd, dir)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create scenario dir: %w", err)
		}
		examplePath := filepath.Join(dir, "counter.yaml")
		if err := os.WriteFile(examplePath, []byte(exampleScenario), 0644); err != nil {
			return fmt.Errorf("write example scenario: %w", err)
		}
		fmt.Fprintf(out, "  ✓ Created %s\n", examplePath)
	}

	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  stash run")
	fmt.Fprintln(out, "  stash inspect <scenario>")
	return nil
}

func validatePort(ans interface{}) error {
	s, _ := ans.(string)
	port, err := strconv.Atoi(s)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("port must be a number between 1 and 65535")
	}
	return nil
}
