package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pavelanni/examhelper/internal/generator"
	"github.com/pavelanni/examhelper/internal/handler"
	appI18n "github.com/pavelanni/examhelper/internal/i18n"
	"github.com/pavelanni/examhelper/internal/render"
	"github.com/pavelanni/examhelper/internal/service"
	"github.com/pavelanni/examhelper/internal/store"
)

//go:generate templ generate -path ../../internal/render/views

func main() {
	// Environment from .env is optional.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "load .env:", err)
	}
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "examhelper",
		Short:        "Question banks, exam seeds and printable exams",
		SilenceUsage: true,
	}
	pf := root.PersistentFlags()
	pf.String("db", "examhelper.db", "SQLite database path")
	pf.StringP("lang", "l", "en", "Document language (en, vi)")
	pf.String("log-level", "info", "Log level (debug, info, warn, error)")
	pf.String("log-format", "text", "Log format (text, json)")

	serve := serveCmd()
	root.AddCommand(
		serve,
		generateCmd(),
		examCmd(),
		bankCmd(),
		seedCmd(),
		backupCmd(),
		restoreCmd(),
		statsCmd(),
	)

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the local HTTP API",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", "127.0.0.1:8080", "HTTP listen address")
	f.StringSlice("banks", nil, "Bank files (JSON or XLSX) to import on startup (repeatable)")
	f.String("chrome", "", "Chrome or Chromium binary for PDF output (default: auto-detect)")
	f.Duration("pdf-timeout", 30*time.Second, "Time limit for printing one PDF")
	return cmd
}

func setupLogging(v *viper.Viper) {
	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())
	_ = v.BindPFlags(cmd.InheritedFlags())

	v.SetEnvPrefix("EXAMHELPER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("examhelper")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/examhelper")
	v.AddConfigPath("/etc/examhelper")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// app is the opened database with every service wired to it.
type app struct {
	v         *viper.Viper
	store     *store.Store
	banks     *service.BankService
	questions *service.QuestionService
	seeds     *service.SeedService
	exams     *service.ExamService
	data      *service.DataService
}

// openApp configures logging, i18n and the database for a command.
func openApp(cmd *cobra.Command) (*app, error) {
	v := viperForCmd(cmd)
	setupLogging(v)

	if err := appI18n.Init(v.GetString("lang")); err != nil {
		return nil, fmt.Errorf("init i18n: %w", err)
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	logger := slog.Default()
	return &app{
		v:         v,
		store:     db,
		banks:     service.NewBankService(db, logger),
		questions: service.NewQuestionService(db, db, logger),
		seeds:     service.NewSeedService(db, logger),
		exams:     service.NewExamService(db, logger),
		data:      service.NewDataService(db, logger),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func (a *app) renderer() render.Renderer {
	return render.Renderer{PDF: render.PDFRenderer{
		ChromePath: a.v.GetString("chrome"),
		Timeout:    a.v.GetDuration("pdf-timeout"),
	}}
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := preloadBanks(cmd.Context(), a.store, a.banks, a.v.GetStringSlice("banks")); err != nil {
		return fmt.Errorf("load banks: %w", err)
	}

	h := handler.New(handler.Services{
		Banks:     a.banks,
		Questions: a.questions,
		Seeds:     a.seeds,
		Exams:     a.exams,
		Data:      a.data,
	}, a.renderer())

	lang := a.v.GetString("lang")
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := a.v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"db", a.v.GetString("db"),
		"lang", lang,
	)
	return http.ListenAndServe(addr, r)
}

// seededExams returns an ExamService drawing from --random-seed when it is set.
func (a *app) seededExams() *service.ExamService {
	if !a.v.IsSet("random-seed") {
		return a.exams
	}
	shuffle := generator.SeededShuffler(a.v.GetUint64("random-seed"))
	return service.NewExamService(a.store, slog.Default(), service.WithShuffler(shuffle))
}
