package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/nihei9/rulegen/driver"
	"github.com/nihei9/rulegen/rule"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rulegen",
	Short: "Build parsers from rule files",
	Long: `rulegen provides four features:
- Compiles a rule file into a parsing table, keeping the intermediate specifications.
- Parses a text stream according to a rule file and prints its syntax tree.
  This feature is primarily aimed at debugging the rules.
- Prints a report of the automaton in a readable format.
- Tests the syntax trees of a rule file against expected trees.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

var (
	errorLabel   = color.New(color.FgRed, color.Bold)
	warningLabel = color.New(color.FgYellow, color.Bold)
)

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v %v\n", errorLabel.Sprint("error:"), err)
		return err
	}
	return nil
}

// readDefinition reads a rule file and binds every handler to the tree
// builder. Named discard actions do nothing.
func readDefinition(path string) (*rule.Definition, error) {
	def, err := rule.ReadFile(path)
	if err != nil {
		return nil, err
	}
	def.BindAll(driver.TreeHandler)
	def.BindDiscards(func(string) {})
	return def, nil
}
