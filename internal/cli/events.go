package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ppiankov/rulelens/internal/model"
)

var attributesEvent string

// eventsCmd represents the events command
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List the primary event options",
	Long: `List the values of the pivot column, sorted, preceded by All.

Example:
  rulelens events
  rulelens events --source rules.tsv --pivot Out1`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := openPipeline(cmd.Context(), nil)
		if err != nil {
			return err
		}

		options, err := p.PrimaryOptions()
		if err != nil {
			return err
		}
		return printList(cmd.OutOrStdout(), options)
	},
}

// attributesCmd represents the attributes command
var attributesCmd = &cobra.Command{
	Use:   "attributes",
	Short: "List the secondary attribute candidates for an event",
	Long: `List every distinct non-blank output value among the rows of the selected
event, excluding the event value itself. These are the values accepted by
"show --attr".

Example:
  rulelens attributes --event Click`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := openPipeline(cmd.Context(), nil)
		if err != nil {
			return err
		}

		candidates, err := p.Candidates(model.ParsePrimary(attributesEvent))
		if err != nil {
			return err
		}
		return printList(cmd.OutOrStdout(), candidates)
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(attributesCmd)

	attributesCmd.Flags().StringVarP(&attributesEvent, "event", "e", model.AllSelector, `primary event value, All, or "" for blank events`)
}

func printList(w io.Writer, values []string) error {
	for _, v := range values {
		if _, err := fmt.Fprintln(w, model.PrimaryLabel(v)); err != nil {
			return err
		}
	}
	return nil
}
