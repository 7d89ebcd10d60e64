package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/KunalGupta25/EduConnect/internal/capture"
	"github.com/KunalGupta25/EduConnect/internal/config"
	"github.com/KunalGupta25/EduConnect/internal/engine"
	"github.com/KunalGupta25/EduConnect/internal/enrollment"
	"github.com/KunalGupta25/EduConnect/internal/notify"
	"github.com/KunalGupta25/EduConnect/internal/store/postgres"
	"github.com/KunalGupta25/EduConnect/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the attendance API server",
	Long: `Start the EduConnect attendance server.
The server exposes the verification, sync, ledger and alert endpoints
used by the student and teacher front ends.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// buildEnrollmentIndex loads every enrolled template into the in-memory
// nearest-neighbor index used by camera-mode identification.
func buildEnrollmentIndex(ctx context.Context, students *postgres.StudentRepository) (*enrollment.Index, error) {
	enrolled, err := students.ListEnrolled(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading enrolled students: %w", err)
	}

	index := enrollment.NewIndex()
	if err := index.Build(enrolled); err != nil {
		return nil, fmt.Errorf("building enrollment index: %w", err)
	}
	fmt.Printf("Enrollment index built with %d templates\n", index.Count())
	return index, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	fmt.Printf("Connecting to PostgreSQL database...\n")
	if err := postgres.Initialize(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	pool := postgres.GetGlobalPool()
	defer pool.Close()

	students := postgres.NewStudentRepository(pool)
	anchors := postgres.NewAnchorRepository(pool)
	ledger := postgres.NewLedgerRepository(pool)
	requests := postgres.NewRequestRepository(pool)

	index, err := buildEnrollmentIndex(context.Background(), students)
	if err != nil {
		return err
	}

	extractor := capture.NewExtractorClient(cfg.Extractor.URL, cfg.Extractor.MaxImageSize)
	hub := notify.NewHub()

	eng := engine.New(students, anchors, ledger, extractor, hub, index, cfg.Identify)

	server := web.NewServer(cfg, eng, web.Stores{
		Students: students,
		Anchors:  anchors,
		Ledger:   ledger,
		Requests: requests,
	}, hub)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Warning: shutdown failed: %v\n", err)
		}
	}()

	return server.Start()
}
