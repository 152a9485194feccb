package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/configurable"
)

var pathsCmd = &cobra.Command{
	Use:   "paths [configurable-id] [query]",
	Short: "List option paths inside a configurable",
	Long: `Lists the option paths inside one configurable whose text matches
every word of the query. Paths are printed in sorted order.`,
	Args: cobra.ExactArgs(2),
	RunE: runPaths,
}

func init() {
	rootCmd.AddCommand(pathsCmd)
}

type pathsOutput struct {
	ConfigurableID string   `json:"configurable_id"`
	Query          string   `json:"query"`
	Paths          []string `json:"paths"`
}

func runPaths(cmd *cobra.Command, args []string) error {
	svc, err := loadServices()
	if err != nil {
		return err
	}
	id, query := args[0], args[1]
	if configurable.Find(svc.Roots, id) == nil {
		return fmt.Errorf("unknown configurable %q", id)
	}

	paths, err := svc.Executor.GetInnerPaths(commandContext(cmd), id, query)
	if err != nil {
		return fmt.Errorf("paths failed: %w", err)
	}

	if jsonOutput {
		return writeJSON(cmd, pathsOutput{ConfigurableID: id, Query: query, Paths: paths})
	}
	out := cmd.OutOrStdout()
	if len(paths) == 0 {
		fmt.Fprintln(out, "No paths found.")
		return nil
	}
	for _, p := range paths {
		fmt.Fprintln(out, p)
	}
	return nil
}
