package cli

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ppiankov/rulelens/internal/log"
	"github.com/ppiankov/rulelens/internal/source"
	"github.com/ppiankov/rulelens/internal/tui"
	"github.com/ppiankov/rulelens/internal/watch"
)

var browseWatch bool

// errWatchRemote is returned for --watch on a URL source
var errWatchRemote = errors.New("--watch requires a local source file")

// browseCmd represents the browse command
var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse the rules interactively",
	Long: `Browse opens an interactive view: pick an event on the left, toggle
secondary attributes, and read the consolidated rules on the right.

With --watch the table is reloaded whenever the source file changes.

Keys:
  tab / shift+tab   switch pane
  up/k, down/j      move
  enter / space     select event or toggle attribute
  c                 clear attributes
  r                 reload
  q                 quit`,
	Args: cobra.NoArgs,
	RunE: runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)

	browseCmd.Flags().BoolVarP(&browseWatch, "watch", "w", false, "reload when the source file changes")
}

func runBrowse(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := log.WithContext(ctx)

	p, err := openPipeline(ctx, nil)
	if err != nil {
		return err
	}

	opts := tui.Options{Title: fmt.Sprintf("rulelens · %s", p.Table().Source)}

	if browseWatch {
		path := p.Config().Source.Path
		if source.IsRemote(path) {
			return errWatchRemote
		}

		w, err := watch.New(path, watch.DefaultDebounce)
		if err != nil {
			return err
		}
		defer func() { _ = w.Close() }()

		go w.Run(ctx)
		opts.Changes = w.Changes()
		logger.Info("watching source", "path", w.Path())
	}

	program := tea.NewProgram(
		tui.New(ctx, p, p.Renderer(), opts),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithOutput(cmd.OutOrStdout()),
	)

	final, err := program.Run()
	if err != nil {
		return fmt.Errorf("browser: %w", err)
	}
	if m, ok := final.(tui.Model); ok && m.Err() != nil {
		return m.Err()
	}
	return nil
}
