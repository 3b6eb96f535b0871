package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	appI18n "github.com/pavelanni/examhelper/internal/i18n"
	"github.com/pavelanni/examhelper/internal/model"
	"github.com/pavelanni/examhelper/internal/render"
	"github.com/pavelanni/examhelper/internal/service"
	"github.com/pavelanni/examhelper/internal/transfer"
)

// withApp opens the database around a command body.
func withApp(fn func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := appI18n.WithLanguage(cmd.Context(), a.v.GetString("lang"))
		return fn(ctx, cmd, a, args)
	}
}

// writeOutput sends fn's output to path. "-" is stdout; an empty path falls
// back to fallback, which may itself be "-".
func writeOutput(cmd *cobra.Command, path, fallback string, fn func(io.Writer) error) error {
	if path == "" {
		path = fallback
	}
	if path == "-" {
		return fn(cmd.OutOrStdout())
	}
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "wrote", path)
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func date(ms int64) string {
	return time.UnixMilli(ms).Format("2006-01-02 15:04")
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate SEED_ID",
		Short: "Generate a new exam from a seed",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			name := a.v.GetString("name")
			if name == "" {
				seed, err := a.seeds.Get(ctx, args[0])
				if err != nil {
					return err
				}
				name = seed.Name
			}
			res, err := a.seededExams().GenerateFromSeed(ctx, args[0], name)
			if err != nil {
				return err
			}
			for _, u := range res.Warnings {
				fmt.Fprintln(cmd.ErrOrStderr(), appI18n.Td(ctx, "Underfill", map[string]any{
					"Block":     u.BlockIndex + 1,
					"Requested": u.Requested,
					"Picked":    u.Picked,
				}))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", res.Exam.ID, res.Exam.Name,
				appI18n.Tp(ctx, "DocQuestionCount", len(res.Exam.QuestionIDs)))
			return nil
		}),
	}
	f := cmd.Flags()
	f.StringP("name", "n", "", "Exam name (default: the seed name)")
	f.Uint64("random-seed", 0, "Seed the question shuffle for a reproducible exam")
	return cmd
}

func examCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "exam", Short: "Manage exams"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List exams, newest first",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			exams, err := a.exams.ListExams(ctx)
			if err != nil {
				return err
			}
			tw := table(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tNAME\tQUESTIONS\tCREATED")
			for _, e := range exams {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", e.ID, e.Name, len(e.QuestionIDs), date(e.CreatedAt))
			}
			return tw.Flush()
		}),
	}

	show := &cobra.Command{
		Use:   "show EXAM_ID",
		Short: "Show an exam with its questions in order",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			d, err := a.exams.GetExamDetailsWithQuestions(ctx, args[0])
			if err != nil {
				return err
			}
			if a.v.GetBool("json") {
				return printJSON(cmd.OutOrStdout(), d)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", d.Exam.Name, render.ExamCode(d.Exam.ID))
			if missing := len(d.Exam.QuestionIDs) - len(d.Questions); missing > 0 {
				fmt.Fprintf(out, "%d question ids no longer resolve\n", missing)
			}
			tw := table(out)
			fmt.Fprintln(tw, "#\tID\tTYPE\tTITLE\tBANK")
			for i, q := range d.Questions {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i+1, q.ID, q.Type(), q.Title, d.BanksMap[q.BankID])
			}
			return tw.Flush()
		}),
	}
	show.Flags().Bool("json", false, "Print the resolved exam as JSON")

	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Create an empty exam for manual curation",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			e, err := a.exams.CreateManualExam(ctx, args[0], a.v.GetStringSlice("bank"))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), e.ID)
			return nil
		}),
	}
	create.Flags().StringSliceP("bank", "b", nil, "Bank to draw questions from (repeatable)")

	add := &cobra.Command{
		Use:   "add EXAM_ID QUESTION_ID...",
		Short: "Append questions to an exam",
		Args:  cobra.MinimumNArgs(2),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			e, err := a.exams.AddQuestions(ctx, args[0], args[1:])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), appI18n.Tp(ctx, "DocQuestionCount", len(e.QuestionIDs)))
			return nil
		}),
	}

	remove := &cobra.Command{
		Use:   "remove EXAM_ID QUESTION_ID...",
		Short: "Remove questions from an exam",
		Args:  cobra.MinimumNArgs(2),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			e, err := a.exams.RemoveQuestions(ctx, args[0], args[1:])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), appI18n.Tp(ctx, "DocQuestionCount", len(e.QuestionIDs)))
			return nil
		}),
	}

	set := &cobra.Command{
		Use:   "set EXAM_ID [QUESTION_ID...]",
		Short: "Replace an exam's question list",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(func(ctx context.Context, _ *cobra.Command, a *app, args []string) error {
			return a.exams.UpdateExamQuestions(ctx, args[0], args[1:])
		}),
	}

	rename := &cobra.Command{
		Use:   "rename EXAM_ID NAME",
		Short: "Rename an exam",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(ctx context.Context, _ *cobra.Command, a *app, args []string) error {
			return a.exams.RenameExam(ctx, args[0], args[1])
		}),
	}

	del := &cobra.Command{
		Use:   "delete EXAM_ID",
		Short: "Delete an exam; its questions stay in their banks",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, _ *cobra.Command, a *app, args []string) error {
			return a.exams.DeleteExam(ctx, args[0])
		}),
	}

	available := &cobra.Command{
		Use:   "available EXAM_ID",
		Short: "List bank questions not yet on the exam",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			var qs []model.Question
			var err error
			if a.v.GetBool("all") {
				qs, err = a.exams.GetAvailableQuestionsForExam(ctx, args[0])
			} else {
				qs, err = a.exams.SearchAvailableQuestions(ctx, args[0], service.AvailableQuestionsFilter{
					Search: a.v.GetString("search"),
					Tag:    a.v.GetString("tag"),
				})
			}
			if err != nil {
				return err
			}
			return printQuestions(cmd.OutOrStdout(), qs)
		}),
	}
	available.Flags().String("search", "", "Match title or content, ignoring case")
	available.Flags().String("tag", "", "Only questions carrying this tag")
	available.Flags().Bool("all", false, "List every question of the exam's banks, including those already on it")

	export := &cobra.Command{
		Use:   "export EXAM_ID",
		Short: "Write an exam and its questions as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			e, err := a.exams.ExportExam(ctx, args[0])
			if err != nil {
				return err
			}
			return writeOutput(cmd, a.v.GetString("output"), "-", func(w io.Writer) error {
				return transfer.WriteExam(w, e)
			})
		}),
	}
	export.Flags().StringP("output", "o", "-", "Output file path (- for stdout)")

	imp := &cobra.Command{
		Use:   "import FILE",
		Short: "Import an exam JSON file as a new exam",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			payload, err := transfer.ReadExam(f)
			if err != nil {
				return err
			}
			e, err := a.exams.ImportExam(ctx, payload)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", e.ID, e.Name)
			return nil
		}),
	}

	cmd.AddCommand(list, show, create, add, remove, set, rename, del, available, export, imp, renderCmd())
	return cmd
}

func renderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render EXAM_ID",
		Short: "Print an exam as HTML, PDF or DOCX",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			format, err := render.ParseFormat(a.v.GetString("format"))
			if err != nil {
				return err
			}
			d, err := a.exams.GetExamDetailsWithQuestions(ctx, args[0])
			if err != nil {
				return err
			}
			doc := render.FromDetails(d, a.v.GetBool("answers"))
			return writeOutput(cmd, a.v.GetString("output"), transfer.FileName(d.Exam.Name, string(format)),
				func(w io.Writer) error {
					return a.renderer().Render(ctx, w, format, doc)
				})
		}),
	}
	f := cmd.Flags()
	f.StringP("format", "f", "html", "Document format (html, pdf, docx)")
	f.Bool("answers", false, "Append the answer key")
	f.StringP("output", "o", "", "Output file path (- for stdout; default: <exam name>_export.<format>)")
	f.String("chrome", "", "Chrome or Chromium binary for PDF output (default: auto-detect)")
	f.Duration("pdf-timeout", 30*time.Second, "Time limit for printing the PDF")
	return cmd
}

func printQuestions(w io.Writer, qs []model.Question) error {
	tw := table(w)
	fmt.Fprintln(tw, "ID\tTYPE\tTITLE\tTAGS")
	for _, q := range qs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", q.ID, q.Type(), q.Title, strings.Join(q.Tags, ", "))
	}
	return tw.Flush()
}

func bankCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "bank", Short: "Manage question banks"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List banks, newest first",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			banks, err := a.banks.List(ctx)
			if err != nil {
				return err
			}
			tw := table(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tNAME\tCREATED")
			for _, b := range banks {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", b.ID, b.Name, date(b.CreatedAt))
			}
			return tw.Flush()
		}),
	}

	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Create an empty bank",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			b, err := a.banks.Create(ctx, args[0], a.v.GetString("description"))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), b.ID)
			return nil
		}),
	}
	create.Flags().StringP("description", "d", "", "Bank description")

	update := &cobra.Command{
		Use:   "update BANK_ID NAME",
		Short: "Rename a bank and set its description",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(ctx context.Context, _ *cobra.Command, a *app, args []string) error {
			return a.banks.Update(ctx, args[0], args[1], a.v.GetString("description"))
		}),
	}
	update.Flags().StringP("description", "d", "", "Bank description")

	del := &cobra.Command{
		Use:   "delete BANK_ID",
		Short: "Delete a bank and all of its questions",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, _ *cobra.Command, a *app, args []string) error {
			return a.banks.Delete(ctx, args[0])
		}),
	}

	questions := &cobra.Command{
		Use:   "questions BANK_ID",
		Short: "List the questions of a bank",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			qs, err := a.questions.ListByBank(ctx, args[0])
			if err != nil {
				return err
			}
			return printQuestions(cmd.OutOrStdout(), qs)
		}),
	}

	tags := &cobra.Command{
		Use:   "tags [BANK_ID]",
		Short: "List distinct tags of a bank, or of every bank",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			var bankID string
			if len(args) == 1 {
				bankID = args[0]
			}
			ts, err := a.questions.Tags(ctx, bankID)
			if err != nil {
				return err
			}
			for _, t := range ts {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
			return nil
		}),
	}

	export := &cobra.Command{
		Use:   "export BANK_ID",
		Short: "Write a bank as JSON or as an XLSX workbook",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			b, err := a.banks.Export(ctx, args[0])
			if err != nil {
				return err
			}
			switch format := strings.ToLower(a.v.GetString("format")); format {
			case "json":
				return writeOutput(cmd, a.v.GetString("output"), "-", func(w io.Writer) error {
					return transfer.WriteBank(w, b)
				})
			case "xlsx":
				return writeOutput(cmd, a.v.GetString("output"), transfer.FileName(b.Bank.Name, "xlsx"),
					func(w io.Writer) error {
						return transfer.WriteBankXLSX(w, b)
					})
			default:
				return fmt.Errorf("unknown bank format %q (want json or xlsx)", format)
			}
		}),
	}
	export.Flags().StringP("format", "f", "json", "File format (json, xlsx)")
	export.Flags().StringP("output", "o", "", "Output file path (- for stdout)")

	imp := &cobra.Command{
		Use:   "import FILE",
		Short: "Import a bank JSON or XLSX file as a new bank",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			payload, skipped, err := readBankFile(args[0], f)
			if err != nil {
				return err
			}
			b, err := a.banks.Import(ctx, payload)
			if err != nil {
				return err
			}
			if skipped > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "skipped %d rows of unknown type\n", skipped)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d\n", b.ID, b.Name, len(payload.Questions))
			return nil
		}),
	}

	cmd.AddCommand(list, create, update, del, questions, tags, export, imp)
	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "seed", Short: "Manage exam seeds"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List seeds, newest first",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			seeds, err := a.seeds.List(ctx)
			if err != nil {
				return err
			}
			tw := table(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tNAME\tBANKS\tBLOCKS\tCREATED")
			for _, s := range seeds {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", s.ID, s.Name, len(s.BankIDs), len(s.QuestionBlocks), date(s.CreatedAt))
			}
			return tw.Flush()
		}),
	}

	show := &cobra.Command{
		Use:   "show SEED_ID",
		Short: "Print a seed as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			s, err := a.seeds.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), s)
		}),
	}

	create := &cobra.Command{
		Use:   "create FILE",
		Short: "Create a seed from a JSON file (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			var seed model.ExamSeed
			if err := json.NewDecoder(r).Decode(&seed); err != nil {
				return fmt.Errorf("parse seed: %w", err)
			}
			seed.ID = ""
			created, err := a.seeds.Create(ctx, seed)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), created.ID)
			return nil
		}),
	}

	del := &cobra.Command{
		Use:   "delete SEED_ID",
		Short: "Delete a seed; exams generated from it are kept",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, _ *cobra.Command, a *app, args []string) error {
			return a.seeds.Delete(ctx, args[0])
		}),
	}

	cmd.AddCommand(list, show, create, del)
	return cmd
}

func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write every bank, question, seed and exam to a backup file",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			b, err := a.data.Backup(ctx)
			if err != nil {
				return err
			}
			fallback := fmt.Sprintf("examhelper_backup_%s.json", time.Now().Format("2006-01-02"))
			return writeOutput(cmd, a.v.GetString("output"), fallback, func(w io.Writer) error {
				return transfer.WriteBackup(w, b)
			})
		}),
	}
	cmd.Flags().StringP("output", "o", "", "Output file path (- for stdout)")
	return cmd
}

func restoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore FILE",
		Short: "Upsert every record of a backup file",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			b, err := transfer.ReadBackup(f)
			if err != nil {
				return err
			}
			if err := a.data.Restore(ctx, b); err != nil {
				return err
			}
			return printStats(ctx, cmd.OutOrStdout(), a)
		}),
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count banks, questions, seeds and exams",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			return printStats(ctx, cmd.OutOrStdout(), a)
		}),
	}
}

func printStats(ctx context.Context, w io.Writer, a *app) error {
	s, err := a.data.Stats(ctx)
	if err != nil {
		return err
	}
	last, err := a.data.LastBackupAt(ctx)
	if err != nil {
		return err
	}
	if last == "" {
		last = "never"
	}
	tw := table(w)
	fmt.Fprintf(tw, "banks\t%d\n", s.Banks)
	fmt.Fprintf(tw, "questions\t%d\n", s.Questions)
	fmt.Fprintf(tw, "seeds\t%d\n", s.Seeds)
	fmt.Fprintf(tw, "exams\t%d\n", s.Exams)
	fmt.Fprintf(tw, "last backup\t%s\n", last)
	return tw.Flush()
}
