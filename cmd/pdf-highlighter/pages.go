package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pdf-highlighter/internal/document"
	"pdf-highlighter/internal/normalize"
)

var pagesText int

var pagesCmd = &cobra.Command{
	Use:   "pages <pdf>",
	Short: "List the pages of a PDF with their size and word count",
	Args:  cobra.ExactArgs(1),
	RunE:  runPages,
}

func init() {
	pagesCmd.Flags().IntVar(&pagesText, "text", 0, "print the extracted text of this page (1-based)")
}

func runPages(cmd *cobra.Command, args []string) error {
	doc, err := document.OpenPDF(args[0])
	if err != nil {
		return err
	}

	if pagesText > 0 {
		page := pagesText - 1
		box, ok := doc.PageRect(page)
		if !ok {
			return fmt.Errorf("page %d out of range (1-%d)", pagesText, doc.PageCount())
		}
		fmt.Fprintln(cmd.OutOrStdout(), normalize.Block(doc.TextInRect(page, box)))
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PAGE\tWIDTH\tHEIGHT\tWORDS")
	for i := 0; i < doc.PageCount(); i++ {
		box, _ := doc.PageRect(i)
		fmt.Fprintf(w, "%d\t%.1f\t%.1f\t%d\n", i+1, box.Width(), box.Height(), len(doc.Tokens(i)))
	}
	return w.Flush()
}
