package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/withgalaxy/stash/pkg/scenario"
	"github.com/withgalaxy/stash/pkg/shallow"
)

var errNotEqual = errors.New("values are not shallowly equal")

var equalCmd = &cobra.Command{
	Use:   "equal <a> <b>",
	Short: "Compare two values with shallow equality",
	Long: `Compare two YAML values the way a stash compares states before
committing a write. Prefix an argument with @ to read it from a file.
Exits non-zero when the values differ.`,
	Example: `  stash equal '{a: 1, b: [1, 2]}' '{b: [1, 2], a: 1}'
  stash equal @before.yaml @after.yaml`,
	Args: cobra.ExactArgs(2),
	RunE: runEqual,
}

func init() {
	rootCmd.AddCommand(equalCmd)
}

func runEqual(cmd *cobra.Command, args []string) error {
	a, err := decodeValue(args[0])
	if err != nil {
		return err
	}
	b, err := decodeValue(args[1])
	if err != nil {
		return err
	}

	if !shallow.Equal(a, b) {
		fmt.Fprintln(cmd.OutOrStdout(), "not equal")
		return errNotEqual
	}
	fmt.Fprintln(cmd.OutOrStdout(), "equal")
	return nil
}

func decodeValue(arg string) (any, error) {
	data := []byte(arg)
	if path, ok := strings.CutPrefix(arg, "@"); ok {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse %q: %w", arg, err)
	}
	return scenario.Normalize(v), nil
}
