package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"pdf-highlighter/internal/document"
	apperrors "pdf-highlighter/internal/errors"
	"pdf-highlighter/internal/export"
	"pdf-highlighter/internal/llm"
	"pdf-highlighter/internal/logger"
	"pdf-highlighter/internal/results"
	"pdf-highlighter/internal/session"
	"pdf-highlighter/internal/translate"
	"pdf-highlighter/internal/types"
)

var (
	translatePage   int
	translateRect   string
	translateMode   string
	translateExport string
	translateJSON   string
	translateNoSave bool
)

var translateCmd = &cobra.Command{
	Use:   "translate <pdf>",
	Short: "Translate a region of a page and anchor the results",
	Long: `Translate a region of a page and anchor the results on the page.

In sentence mode the region is widened to its surroundings and translated
sentence by sentence. In word mode notable words of the region are extracted
and translated. Results are stored per document and restored on the next run.`,
	Args: cobra.ExactArgs(1),
	RunE: runTranslate,
}

func init() {
	f := translateCmd.Flags()
	f.IntVarP(&translatePage, "page", "p", 1, "page number (1-based)")
	f.StringVarP(&translateRect, "rect", "r", "", "selection x0,y0,x1,y1 in page units, whole page when empty")
	f.StringVarP(&translateMode, "mode", "m", "sentences", "words or sentences")
	f.StringVar(&translateExport, "export", "", "write the translations of the mode to this CSV file")
	f.StringVar(&translateJSON, "json", "", "write a JSON snapshot of every translation to this file")
	f.BoolVar(&translateNoSave, "no-save", false, "do not store the results for this document")
}

// parseRect parses "x0,y0,x1,y1".
func parseRect(s string) (document.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return document.Rect{}, types.NewAppErrorWithDetails(types.ErrInvalidInput, "rect needs four comma separated numbers", s, nil)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return document.Rect{}, types.NewAppErrorWithDetails(types.ErrInvalidInput, "invalid rect coordinate", p, err)
		}
		v[i] = f
	}
	r := document.NewRect(v[0], v[1], v[2], v[3])
	if r.IsEmpty() {
		return document.Rect{}, types.NewAppErrorWithDetails(types.ErrInvalidInput, "rect has no area", s, nil)
	}
	return r, nil
}

func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "pdf-highlighter", "translations.json")
}

func runTranslate(cmd *cobra.Command, args []string) error {
	kind, ok := translate.ParseKind(translateMode)
	if !ok {
		return types.NewAppErrorWithDetails(types.ErrInvalidInput, "unknown mode", translateMode, nil)
	}

	cfg := cfgManager.GetConfig()
	if err := cfgManager.Validate(); err != nil {
		return err
	}

	path := args[0]
	doc, err := document.OpenPDF(path)
	if err != nil {
		return err
	}
	page := translatePage - 1
	box, ok := doc.PageRect(page)
	if !ok {
		return types.NewAppErrorWithDetails(types.ErrInvalidInput, "page out of range",
			fmt.Sprintf("%d of %d", translatePage, doc.PageCount()), nil)
	}
	rect := box
	if translateRect != "" {
		if rect, err = parseRect(translateRect); err != nil {
			return err
		}
	}

	svc, err := llm.New(cfg)
	if err != nil {
		return err
	}

	cachePath := cfg.CachePath
	if cachePath == "" {
		cachePath = defaultCachePath()
	}
	cache := translate.NewCache(cachePath)
	if err := cache.Load(); err != nil {
		logger.Warn("translation cache unusable, starting empty", logger.Err(err))
		cache.Clear()
	}

	opts := translate.OptionsFromConfig(cfg)
	opts.Cache = cache
	coord := translate.NewCoordinator(svc, opts)
	sess := session.New(doc, coord, session.OptionsFromConfig(cfg))

	store, docID, err := openStore(path)
	if err != nil {
		return err
	}
	if snap, err := store.LoadSnapshot(docID); err != nil {
		logger.Warn("stored results unreadable", logger.String("id", docID), logger.Err(err))
	} else if snap != nil {
		failed := export.Restore(sess.Manager(), snap)
		logger.Info("stored results restored",
			logger.String("id", docID),
			logger.Int("words", len(snap.Words)),
			logger.Int("sentences", len(snap.Sentences)),
			logger.Int("failed", failed))
	}

	sel, err := sess.Select(page, rect)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	var report *session.Report
	if kind == translate.Words {
		report, err = sess.ExtractWords(ctx, sel)
	} else {
		report, err = sess.TranslateSentences(ctx, sel)
	}
	if saveErr := cache.Save(); saveErr != nil {
		logger.Warn("failed to save translation cache", logger.Err(saveErr))
	}
	failures := openFailureLog(store)
	if err != nil {
		if !translateNoSave {
			recordFailure(store, docID, path, doc.PageCount(), err)
		}
		if failures != nil {
			if logErr := failures.RecordError(docID, filepath.Base(path), page, apperrors.StageFor(err), err.Error()); logErr != nil {
				logger.Warn("failed to update failure log", logger.Err(logErr))
			}
		}
		return err
	}
	if failures != nil {
		var logErr error
		if len(report.Failed) > 0 {
			logErr = failures.RecordUnanchored(docID, filepath.Base(path), page, report.Failed)
		} else {
			logErr = failures.RemoveError(docID)
		}
		if logErr != nil {
			logger.Warn("failed to update failure log", logger.Err(logErr))
		}
	}
	logger.Info("selection translated",
		logger.String("mode", kind.String()),
		logger.Duration("elapsed", time.Since(start)),
		logger.Int("cached", report.Result.Cached))

	printReport(cmd.OutOrStdout(), sess, report)

	if !translateNoSave {
		if err := saveResults(store, docID, path, doc.PageCount(), sess); err != nil {
			logger.Warn("failed to store results", logger.Err(err))
		}
	}

	if translateExport != "" {
		err := export.ToFile(translateExport, func(w io.Writer) error {
			var err error
			if kind == translate.Words {
				_, err = export.WordsCSV(w, sess.Manager(), export.AllPages)
			} else {
				_, err = export.SentencesCSV(w, sess.Manager(), export.AllPages)
			}
			return err
		})
		if err != nil {
			return err
		}
	}
	if translateJSON != "" {
		err := export.ToFile(translateJSON, func(w io.Writer) error {
			return export.JSONSnapshot(w, sess.Manager())
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func openStore(path string) (*results.ResultManager, string, error) {
	store, err := results.NewResultManager(resultsDir)
	if err != nil {
		return nil, "", types.NewAppError(types.ErrInternal, "failed to open results directory", err)
	}
	sum, err := results.CalculateFileMD5(path)
	if err != nil {
		return nil, "", types.NewAppError(types.ErrDocument, "failed to hash document", err)
	}
	return store, results.DocumentID(sum), nil
}

// openFailureLog opens the failure log kept next to the stored results. It
// returns nil when the log cannot be opened.
func openFailureLog(store *results.ResultManager) *apperrors.ErrorManager {
	em, err := apperrors.NewErrorManager(failureLogDir(store))
	if err != nil {
		logger.Warn("failure log unavailable", logger.Err(err))
		return nil
	}
	return em
}

func failureLogDir(store *results.ResultManager) string {
	return filepath.Join(store.GetBaseDir(), "_errors")
}

func documentInfo(store *results.ResultManager, id, path string, pages int) *results.DocumentInfo {
	info, err := store.LoadDocumentInfo(id)
	if err != nil {
		sum, _ := results.CalculateFileMD5(path)
		info = &results.DocumentInfo{ID: id, SourceMD5: sum}
	}
	info.FileName = filepath.Base(path)
	info.Pages = pages
	info.UpdatedAt = time.Now()
	return info
}

func saveResults(store *results.ResultManager, id, path string, pages int, sess *session.Session) error {
	snap := export.Capture(sess.Manager(), export.AllPages)
	if err := store.SaveSnapshot(id, snap); err != nil {
		return err
	}
	info := documentInfo(store, id, path, pages)
	info.Words = len(snap.Words)
	info.Sentences = len(snap.Sentences)
	info.Status = results.StatusTranslated
	info.ErrorMessage = ""
	return store.SaveDocumentInfo(info)
}

func recordFailure(store *results.ResultManager, id, path string, pages int, cause error) {
	info := documentInfo(store, id, path, pages)
	info.Status = results.StatusError
	info.ErrorMessage = cause.Error()
	if err := store.SaveDocumentInfo(info); err != nil {
		logger.Warn("failed to record translation failure", logger.Err(err))
	}
}

func printReport(out io.Writer, sess *session.Session, report *session.Report) {
	m := sess.Manager()
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	defer w.Flush()

	if report.Kind == translate.Words {
		for _, word := range report.Anchored {
			tr, _ := m.Translation(report.Page, word)
			fmt.Fprintf(w, "%s\t%s\n", word, tr)
		}
		for _, word := range report.Failed {
			tr, _ := m.Translation(report.Page, word)
			fmt.Fprintf(w, "%s\t%s\t(not found on page)\n", word, tr)
		}
	} else {
		records, _ := m.SentencesOnPage(report.Page)
		for _, rec := range records {
			if rec.GroupID != report.Group {
				continue
			}
			status := ""
			if !m.IsSentenceHighlighted(rec.ID) {
				status = " (not found on page)"
			}
			fmt.Fprintf(w, "%s%s\n  %s\n", rec.Original, status, rec.Translation)
		}
	}
	fmt.Fprintf(w, "\n%d anchored, %d not found, %d of %d chunks cached\n",
		len(report.Anchored), len(report.Failed), report.Result.Cached, report.Result.Chunks)
}
