package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	"learnpath/interview-api/internal/config"
	"learnpath/interview-api/internal/logger"
	"learnpath/interview-api/internal/models"
	"learnpath/interview-api/internal/repositories"
	"learnpath/interview-api/internal/services"
	"learnpath/interview-api/internal/store"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		all   bool
		pdfs  []string
		reset bool
	)

	cmd := &cobra.Command{
		Use:   "ingest-courses [courseId...]",
		Short: "Index course lessons and reference PDFs into the vector store",
		Long: `Index course lessons and reference PDFs into the vector store.

Examples:
  ingest-courses go-concurrency
  ingest-courses --all
  ingest-courses go-concurrency --pdf ./reference_docs/channels.pdf --reset`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return errors.New("pass at least one course id or --all")
			}
			if len(pdfs) > 0 && len(args) != 1 {
				return errors.New("--pdf needs exactly one course id")
			}
			return run(cmd.Context(), args, all, pdfs, reset)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "index every course in the catalog")
	cmd.Flags().StringSliceVar(&pdfs, "pdf", nil, "reference PDF to index for the course (repeatable)")
	cmd.Flags().BoolVar(&reset, "reset", false, "remove the course's existing points first")
	return cmd
}

func run(ctx context.Context, courseIDs []string, all bool, pdfs []string, reset bool) error {
	cfg := config.Load()
	log, err := logger.New(cfg.Log, cfg.Server.Env)
	if err != nil {
		return err
	}
	defer log.Sync()

	db, err := config.InitDatabase(cfg, logger.NewGormLogger(log, gormlogger.Warn))
	if err != nil {
		return err
	}
	courses := repositories.NewCourseRepository(store.NewGormStore(db))

	gemini, err := services.NewGeminiService(ctx, cfg.Gemini, log)
	if err != nil {
		return err
	}
	qdrant, err := services.NewQdrantService(cfg.Qdrant, log)
	if err != nil {
		return err
	}
	defer qdrant.Close()

	if err := qdrant.InitCollection(ctx); err != nil {
		return err
	}

	indexer := services.NewCourseIndexer(gemini, qdrant, services.NewPDFParserService(), services.NewTextChunker(), log)

	targets, err := resolveCourses(ctx, courses, courseIDs, all)
	if err != nil {
		return err
	}

	failed := 0
	for i := range targets {
		course := &targets[i]
		clog := log.With(zap.String("course_id", course.ID))

		if reset {
			if err := qdrant.DeleteCourse(ctx, course.ID); err != nil {
				clog.Error("failed to reset course points", zap.Error(err))
				failed++
				continue
			}
		}

		n, err := indexer.IndexCourse(ctx, course)
		if err != nil {
			clog.Error("failed to index lessons", zap.Error(err))
			failed++
			continue
		}
		clog.Info("lessons indexed", zap.Int("chunks", n))

		for _, path := range pdfs {
			if _, err := os.Stat(path); err != nil {
				clog.Warn("reference file not found, skipping", zap.String("file", path))
				failed++
				continue
			}
			n, err := indexer.IndexPDF(ctx, course.ID, filepath.Base(path), path)
			if err != nil {
				clog.Error("failed to index reference file", zap.String("file", path), zap.Error(err))
				failed++
				continue
			}
			clog.Info("reference file indexed", zap.String("file", path), zap.Int("chunks", n))
		}
	}

	log.Info("ingestion finished", zap.Int("courses", len(targets)), zap.Int("failures", failed))
	if failed > 0 {
		return fmt.Errorf("%d ingestion steps failed", failed)
	}
	return nil
}

func resolveCourses(ctx context.Context, courses repositories.CourseRepository, ids []string, all bool) ([]models.Course, error) {
	if all {
		return courses.List(ctx)
	}

	out := make([]models.Course, 0, len(ids))
	for _, id := range ids {
		course, err := courses.FindByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("course %s: %w", id, err)
		}
		out = append(out, *course)
	}
	return out, nil
}
