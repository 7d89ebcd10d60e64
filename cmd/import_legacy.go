package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/KunalGupta25/EduConnect/internal/config"
	"github.com/KunalGupta25/EduConnect/internal/store"
	"github.com/KunalGupta25/EduConnect/internal/store/mysql"
	"github.com/KunalGupta25/EduConnect/internal/store/postgres"
)

var importLegacyCmd = &cobra.Command{
	Use:   "import-legacy",
	Short: "Import roster and attendance history from the old MySQL database",
	Long: `Copy students and their attendance history from the legacy MySQL
deployment into PostgreSQL. Legacy face encodings are Python pickle blobs
and cannot be migrated; imported students have to enroll again.

Students already present (matched by enrollment code) are skipped, so the
command is safe to re-run.`,
	RunE: runImportLegacy,
}

func init() {
	rootCmd.AddCommand(importLegacyCmd)
}

func importLegacyStudents(ctx context.Context, legacy *mysql.Pool, students *postgres.StudentRepository) (map[int64]int64, error) {
	roster, err := legacy.ListStudents(ctx)
	if err != nil {
		return nil, err
	}

	// Maps legacy student ids to the ids assigned by PostgreSQL.
	idMap := make(map[int64]int64, len(roster))
	bar := progressbar.Default(int64(len(roster)), "importing students")
	imported, skipped := 0, 0

	for _, ls := range roster {
		_ = bar.Add(1)

		existing, err := students.GetByEnrollmentNo(ctx, ls.EnrollmentNo)
		if err != nil {
			return nil, fmt.Errorf("checking enrollment %s: %w", ls.EnrollmentNo, err)
		}
		if existing != nil {
			idMap[ls.ID] = existing.ID
			skipped++
			continue
		}

		s := store.Student{
			EnrollmentNo: ls.EnrollmentNo,
			FirstName:    strings.TrimSpace(ls.FirstName),
			LastName:     strings.TrimSpace(ls.LastName),
			Email:        ls.Email,
		}
		if err := students.Create(ctx, &s); err != nil {
			return nil, fmt.Errorf("importing student %s: %w", ls.EnrollmentNo, err)
		}
		idMap[ls.ID] = s.ID
		imported++
	}

	fmt.Printf("Students: %d imported, %d already present\n", imported, skipped)
	return idMap, nil
}

func importLegacyAttendance(ctx context.Context, legacy *mysql.Pool, ledger *postgres.LedgerRepository, idMap map[int64]int64) error {
	history, err := legacy.ListAttendance(ctx)
	if err != nil {
		return err
	}

	bar := progressbar.Default(int64(len(history)), "importing attendance")
	imported, skipped := 0, 0

	for _, rec := range history {
		_ = bar.Add(1)

		// Absent rows are derived from the roster in the new schema; only
		// Present marks carry information worth copying.
		if !strings.EqualFold(rec.Status, "present") {
			skipped++
			continue
		}
		newID, ok := idMap[rec.StudentID]
		if !ok {
			skipped++
			continue
		}

		err := ledger.InsertPresent(ctx, store.AttendanceRecord{
			StudentID:    newID,
			EnrollmentNo: rec.EnrollmentNo,
			Name:         rec.Name,
			MarkedAt:     rec.MarkedAt,
		})
		if errors.Is(err, store.ErrDuplicateRecord) {
			skipped++
			continue
		}
		if err != nil {
			return fmt.Errorf("importing attendance for student %d: %w", rec.StudentID, err)
		}
		imported++
	}

	fmt.Printf("Attendance: %d rows imported, %d skipped\n", imported, skipped)
	return nil
}

func runImportLegacy(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}
	if cfg.Legacy.DSN == "" {
		return errors.New("LEGACY_MYSQL_DSN environment variable is required")
	}

	if err := postgres.Initialize(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	pool := postgres.GetGlobalPool()
	defer pool.Close()

	legacy, err := mysql.NewPool(cfg.Legacy.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to legacy MySQL: %w", err)
	}
	defer legacy.Close()

	ctx := context.Background()
	students := postgres.NewStudentRepository(pool)
	ledger := postgres.NewLedgerRepository(pool)

	idMap, err := importLegacyStudents(ctx, legacy, students)
	if err != nil {
		return err
	}
	if err := importLegacyAttendance(ctx, legacy, ledger, idMap); err != nil {
		return err
	}

	fmt.Println("Legacy import complete. Imported students must re-enroll their faces.")
	return nil
}
