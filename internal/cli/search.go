package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/configurable"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/searcher/executor"
)

var (
	searchPrevious    []string
	searchIncremental bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Find configurables matching a query",
	Long: `Searches the catalog for configurables whose names or options match
the query. A query of the form "Settings | Editor | Font" is resolved as a
path through the configurable tree. An empty query returns every configurable.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringSliceVar(&searchPrevious, "previous", nil, "configurable ids hit by the previous query")
	searchCmd.Flags().BoolVar(&searchIncremental, "incremental", false, "refine the previous hits instead of searching everything")
	rootCmd.AddCommand(searchCmd)
}

type searchOutput struct {
	Query           string                       `json:"query"`
	NameHits        []*configurable.Configurable `json:"name_hits"`
	NameFullHits    []*configurable.Configurable `json:"name_full_hits"`
	ContentHits     []*configurable.Configurable `json:"content_hits"`
	SpotlightFilter string                       `json:"spotlight_filter"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	svc, err := loadServices()
	if err != nil {
		return err
	}
	query := ""
	if len(args) > 0 {
		query = args[0]
	}

	var previous []*configurable.Configurable
	for _, id := range searchPrevious {
		if c := configurable.Find(svc.Roots, id); c != nil {
			previous = append(previous, c)
		}
	}

	hit, err := svc.Executor.GetConfigurables(commandContext(cmd), executor.Request{
		Groups:      svc.Roots,
		Query:       query,
		Previous:    previous,
		Incremental: searchIncremental,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if jsonOutput {
		return writeJSON(cmd, searchOutput{
			Query:           query,
			NameHits:        flat(hit.NameHits),
			NameFullHits:    flat(hit.NameFullHits),
			ContentHits:     flat(hit.ContentHits),
			SpotlightFilter: hit.SpotlightFilter,
		})
	}
	return outputSearchTable(cmd, hit)
}

func outputSearchTable(cmd *cobra.Command, hit *executor.Hit) error {
	out := cmd.OutOrStdout()
	if len(hit.ContentHits) == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}

	full := make(map[string]struct{}, len(hit.NameFullHits))
	for _, c := range hit.NameFullHits {
		full[c.ID] = struct{}{}
	}

	fmt.Fprintln(out, "Results:")
	for i, c := range hit.ContentHits {
		marker := ""
		if _, ok := full[c.ID]; ok {
			marker = " *"
		}
		fmt.Fprintf(out, "  [%d] %s (%s)%s\n", i+1, c.DisplayName, c.ID, marker)
	}
	if strings.TrimSpace(hit.SpotlightFilter) != "" {
		fmt.Fprintf(out, "Spotlight: %s\n", hit.SpotlightFilter)
	}
	return nil
}

// flat drops children so JSON output lists each hit once.
func flat(list []*configurable.Configurable) []*configurable.Configurable {
	out := make([]*configurable.Configurable, 0, len(list))
	for _, c := range list {
		out = append(out, &configurable.Configurable{ID: c.ID, DisplayName: c.DisplayName})
	}
	return out
}
