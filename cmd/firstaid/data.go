package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pavelanni/firstaid/internal/analytics"
	"github.com/pavelanni/firstaid/internal/audit"
	appI18n "github.com/pavelanni/firstaid/internal/i18n"
	"github.com/pavelanni/firstaid/internal/model"
	"github.com/pavelanni/firstaid/internal/report"
	"github.com/pavelanni/firstaid/internal/store"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import students and the question bank from JSON files",
		RunE:  runImport,
	}
	f := cmd.Flags()
	f.String("students", "", "Students JSON file (list or object keyed by user id)")
	f.String("questions", "", "Question bank JSON file")
	addCommonFlags(cmd)
	return cmd
}

func heatmapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "heatmap",
		Short: "Print the question error heatmap as JSON",
		RunE:  runHeatmap,
	}
	f := cmd.Flags()
	f.String("category", "", "Only include questions of this category")
	f.Bool("by-rate", true, "Sort by descending error rate instead of question order")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addCommonFlags(cmd)
	return cmd
}

func auditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the audit log",
	}
	export := &cobra.Command{
		Use:   "export",
		Short: "Export a user's recent audit events as CSV",
		RunE:  runAuditExport,
	}
	f := export.Flags()
	f.String("user", "", "User id to export (required)")
	f.String("scope", "firstaid", "Scope audit events are stored under")
	f.Int("limit", audit.DefaultMaxEvents, "Maximum number of events")
	f.StringP("lang", "l", "en", "Language for event texts (en, nl)")
	f.String("timezone", "", "IANA zone for timestamps (default UTC)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addCommonFlags(export)
	_ = export.MarkFlagRequired("user")

	cmd.AddCommand(export)
	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write the question error heatmap as a PDF report",
		RunE:  runReport,
	}
	f := cmd.Flags()
	f.String("title", "Final exam error report", "Report title")
	f.String("category", "", "Only include questions of this category")
	f.StringP("output", "o", "heatmap.pdf", "Output PDF path")
	addCommonFlags(cmd)
	return cmd
}

func runImport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	students, questions := v.GetString("students"), v.GetString("questions")
	if students == "" && questions == "" {
		return fmt.Errorf("nothing to import: set --students and/or --questions")
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	return importData(db, students, questions)
}

// importData loads the given files, skipping any whose content was already imported.
func importData(db *store.Store, studentsPath, questionsPath string) error {
	if questionsPath != "" {
		err := importFile(db, questionsPath, func(data []byte) (int, error) {
			var bank []model.QuestionBankEntry
			if err := json.Unmarshal(data, &bank); err != nil {
				return 0, err
			}
			if count, _ := db.QuestionCount(); count > 0 {
				slog.Warn("replacing question bank; stored answers refer to questions by position",
					"path", questionsPath, "previous", count, "new", len(bank))
			}
			return len(bank), db.ReplaceQuestionBank(bank)
		})
		if err != nil {
			return err
		}
	}
	if studentsPath != "" {
		err := importFile(db, studentsPath, func(data []byte) (int, error) {
			var students model.StudentImport
			if err := json.Unmarshal(data, &students); err != nil {
				return 0, err
			}
			return len(students), db.ImportDataset(store.Dataset{Students: students})
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func importFile(db *store.Store, path string, load func([]byte) (int, error)) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	hash := sha256sum(data)
	storedHash, err := db.GetImportedFileHash(path)
	if err != nil {
		return fmt.Errorf("check import status for %s: %w", path, err)
	}
	if storedHash == hash {
		slog.Info("file unchanged, skipping", "path", path)
		return nil
	}

	count, err := load(data)
	if err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	if err := db.SetImportedFileHash(path, hash); err != nil {
		return fmt.Errorf("record import for %s: %w", path, err)
	}
	slog.Info("imported file", "path", path, "count", count)
	return nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// loadHeatmap aggregates the stored dataset, optionally filtered to one category.
func loadHeatmap(db *store.Store, category string) (store.Dataset, []model.QuestionErrorStat, error) {
	ds, err := db.LoadDataset()
	if err != nil {
		return ds, nil, err
	}
	stats := analytics.FilterByCategory(analytics.GenerateErrorHeatmap(ds.Students, ds.Bank), category)
	return ds, stats, nil
}

func runHeatmap(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ds, stats, err := loadHeatmap(db, v.GetString("category"))
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	if v.GetBool("by-rate") {
		analytics.SortByErrorRate(stats)
	}

	export := model.HeatmapExport{
		GeneratedAt: time.Now().UTC(),
		Students:    len(ds.Students),
		Questions:   len(ds.Bank),
		Stats:       stats,
	}
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	w, closeOut, err := openOutput(v.GetString("output"))
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		closeOut()
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)
	return closeOut()
}

func runAuditExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	ctx := appI18n.WithLocalizer(context.Background(), appI18n.NewLocalizer(lang))

	var f audit.Formatter
	if tz := v.GetString("timezone"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("load timezone: %w", err)
		}
		f.Location = loc
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	logger := audit.NewLogger(db, v.GetString("scope"), slog.Default())
	events := logger.FetchRecent(ctx, v.GetString("user"), v.GetInt("limit"))

	w, closeOut, err := openOutput(v.GetString("output"))
	if err != nil {
		return err
	}
	if err := audit.WriteCSV(ctx, w, f, events); err != nil {
		closeOut()
		return fmt.Errorf("write csv: %w", err)
	}
	if err := closeOut(); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, appI18n.Tp(ctx, "EventsExported", len(events)))
	return nil
}

func runReport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	_, stats, err := loadHeatmap(db, v.GetString("category"))
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	analytics.SortByErrorRate(stats)

	out := v.GetString("output")
	w, closeOut, err := openOutput(out)
	if err != nil {
		return err
	}
	if err := report.WriteHeatmapPDF(w, v.GetString("title"), time.Now(), stats); err != nil {
		closeOut()
		return err
	}
	if err := closeOut(); err != nil {
		return err
	}
	slog.Info("wrote report", "path", out, "questions", len(stats))
	return nil
}

// openOutput returns stdout for "" or "-", otherwise a newly created file.
func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}
	return f, f.Close, nil
}
