package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/nihei9/rulegen/engine"
	"github.com/nihei9/rulegen/rule"
	"github.com/nihei9/rulegen/synth"
	"github.com/nihei9/rulegen/tester"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:     "test <rule file path> <test file path>|<test directory path>",
		Short:   "Test the syntax trees of a rule file",
		Example: `  rulegen test expr.toml test`,
		Args:    cobra.ExactArgs(2),
		RunE:    runTest,
	}
	rootCmd.AddCommand(cmd)
}

func runTest(cmd *cobra.Command, args []string) error {
	def, err := readDefinition(args[0])
	if err != nil {
		return fmt.Errorf("Cannot read a rule file: %w", err)
	}
	rs, err := rule.Extract(def)
	if err != nil {
		return err
	}
	s, err := synth.Synthesize(rs)
	if err != nil {
		return err
	}
	e, err := engine.Build(s)
	if err != nil {
		return fmt.Errorf("Cannot build a parse engine: %w", err)
	}

	var cs []*tester.TestCaseWithMetadata
	{
		cs = tester.ListTestCases(args[1])
		errOccurred := false
		for _, c := range cs {
			if c.Error != nil {
				fmt.Fprintf(os.Stderr, "Failed to read a test case or a directory: %v\n%v\n", c.FilePath, c.Error)
				errOccurred = true
			}
		}
		if errOccurred {
			return errors.New("Cannot run test")
		}
	}

	t := &tester.Tester{
		Engine:   e,
		Handlers: rs.Handlers,
		Discards: rs.Discards,
		Cases:    cs,
	}
	results := t.Run()
	testFailed := false
	for _, r := range results {
		fmt.Fprintln(os.Stdout, r)
		if r.Error != nil {
			testFailed = true
		}
	}
	if testFailed {
		return errors.New("Test failed")
	}
	return nil
}
