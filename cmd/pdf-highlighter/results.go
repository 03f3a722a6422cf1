package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pdf-highlighter/internal/document"
	apperrors "pdf-highlighter/internal/errors"
	"pdf-highlighter/internal/export"
	"pdf-highlighter/internal/highlight"
	"pdf-highlighter/internal/results"
	"pdf-highlighter/internal/types"
)

var (
	exportWords     string
	exportSentences string
	clearErrors     bool
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Manage translations stored per document",
}

var resultsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents with stored translations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := results.NewResultManager(resultsDir)
		if err != nil {
			return err
		}
		docs, err := store.ListDocuments()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tFILE\tPAGES\tWORDS\tSENTENCES\tSTATUS\tUPDATED")
		for _, d := range docs {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
				d.ID, d.FileName, d.Pages, d.Words, d.Sentences, d.Status, d.UpdatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var resultsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete the stored translations of a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := results.NewResultManager(resultsDir)
		if err != nil {
			return err
		}
		if !store.DocumentExists(args[0]) {
			return types.NewAppErrorWithDetails(types.ErrInvalidInput, "no stored results", args[0], nil)
		}
		return store.DeleteDocument(args[0])
	},
}

var resultsExportCmd = &cobra.Command{
	Use:   "export <pdf>",
	Short: "Export the stored translations of a document as CSV",
	Args:  cobra.ExactArgs(1),
	RunE:  runResultsExport,
}

var resultsErrorsCmd = &cobra.Command{
	Use:   "errors",
	Short: "List failed or partly anchored submissions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := results.NewResultManager(resultsDir)
		if err != nil {
			return err
		}
		em, err := apperrors.NewErrorManager(failureLogDir(store))
		if err != nil {
			return err
		}
		if clearErrors {
			return em.ClearAll()
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tFILE\tPAGE\tSTAGE\tRETRIES\tMESSAGE")
		for _, r := range em.ListErrors() {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%d\t%s\n",
				r.ID, r.FileName, r.Page+1, apperrors.GetStageDisplayName(r.Stage), r.RetryCount, r.ErrorMsg)
			for _, item := range r.Unanchored {
				fmt.Fprintf(w, "\t\t\t\t\t- %s\n", item)
			}
		}
		return w.Flush()
	},
}

func init() {
	resultsErrorsCmd.Flags().BoolVar(&clearErrors, "clear", false, "remove every entry")
	resultsExportCmd.Flags().StringVar(&exportWords, "words", "", "word CSV output file")
	resultsExportCmd.Flags().StringVar(&exportSentences, "sentences", "", "sentence CSV output file")
	resultsCmd.AddCommand(resultsListCmd, resultsDeleteCmd, resultsExportCmd, resultsErrorsCmd)
}

func runResultsExport(cmd *cobra.Command, args []string) error {
	if exportWords == "" && exportSentences == "" {
		return types.NewAppError(types.ErrInvalidInput, "nothing to export, pass --words or --sentences", nil)
	}

	store, id, err := openStore(args[0])
	if err != nil {
		return err
	}
	snap, err := store.LoadSnapshot(id)
	if err != nil {
		return err
	}
	if snap == nil {
		return types.NewAppErrorWithDetails(types.ErrInvalidInput, "no stored results", args[0], nil)
	}

	// Entries are restored without geometry; exports only need the records.
	m := highlight.NewManager(noAnchors{})
	for i := range snap.Words {
		snap.Words[i].Active = false
	}
	for i := range snap.Sentences {
		snap.Sentences[i].Active = false
	}
	export.Restore(m, snap)

	out := cmd.OutOrStdout()
	if exportWords != "" {
		if err := exportCSV(out, exportWords, "words", func(w io.Writer) (int, error) {
			return export.WordsCSV(w, m, export.AllPages)
		}); err != nil {
			return err
		}
	}
	if exportSentences != "" {
		if err := exportCSV(out, exportSentences, "sentences", func(w io.Writer) (int, error) {
			return export.SentencesCSV(w, m, export.AllPages)
		}); err != nil {
			return err
		}
	}
	return nil
}

func exportCSV(out io.Writer, path, what string, write func(io.Writer) (int, error)) error {
	var n int
	err := export.ToFile(path, func(w io.Writer) error {
		var err error
		n, err = write(w)
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "exported %d %s to %s\n", n, what, path)
	return nil
}

// noAnchors anchors nothing.
type noAnchors struct{}

func (noAnchors) Word(int, string) []document.Rect     { return nil }
func (noAnchors) Sentence(int, string) []document.Rect { return nil }
