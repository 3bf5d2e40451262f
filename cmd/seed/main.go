package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/campuskit/timetable-portal/internal/config"
	"github.com/campuskit/timetable-portal/internal/database"
	"github.com/campuskit/timetable-portal/internal/models"
	"github.com/campuskit/timetable-portal/internal/repositories"
	"github.com/campuskit/timetable-portal/internal/services"
	pkgauth "github.com/campuskit/timetable-portal/pkg/auth"
)

// rosterEntry is one student in the provisioning file
type rosterEntry struct {
	RollNumber string            `json:"roll_number"`
	Name       string            `json:"name"`
	Email      string            `json:"email"`
	Department string            `json:"department"`
	Program    string            `json:"program"`
	Batch      int               `json:"batch"`
	School     string            `json:"school"`
	Courses    models.CourseList `json:"courses"`
}

func main() {
	rosterPath := flag.String("roster", "", "path to the roster JSON file")
	defaultPassword := flag.String("password", "", "default password for provisioned accounts")
	sendWelcome := flag.Bool("welcome", false, "send welcome emails to created accounts")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if *rosterPath == "" || *defaultPassword == "" {
		fmt.Fprintln(os.Stderr, "usage: seed -roster students.json -password <default> [-welcome]")
		os.Exit(2)
	}

	if err := run(*rosterPath, *defaultPassword, *sendWelcome, logger); err != nil {
		logger.Error("seeding failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(rosterPath, defaultPassword string, sendWelcome bool, logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(rosterPath)
	if err != nil {
		return fmt.Errorf("failed to read roster file: %w", err)
	}

	var roster []rosterEntry
	if err := json.Unmarshal(data, &roster); err != nil {
		return fmt.Errorf("failed to parse roster file: %w", err)
	}

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	studentRepo := repositories.NewStudentRepository(db)

	var emailService services.EmailService
	if sendWelcome {
		if cfg.Email.Provider == "ses" {
			emailService, err = services.NewSESEmailService(context.Background(), cfg.Email, logger)
			if err != nil {
				return err
			}
		} else {
			emailService = services.NewSMTPEmailService(cfg.Email, logger)
		}
	}

	// One hash shared by every provisioned account; each student replaces it
	// on first login
	passwordHash, err := pkgauth.HashPassword(defaultPassword)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	created, skipped := 0, 0
	for _, entry := range roster {
		student := &models.Student{
			RollNumber:   entry.RollNumber,
			Name:         entry.Name,
			Email:        entry.Email,
			PasswordHash: passwordHash,
			Department:   entry.Department,
			Program:      entry.Program,
			Batch:        entry.Batch,
			School:       entry.School,
			IsFirstLogin: true,
			Courses:      entry.Courses,
		}

		result, err := studentRepo.Create(ctx, student)
		if err != nil {
			if errors.Is(err, models.ErrConflict) {
				logger.Warn("student already exists, skipping", slog.String("roll_number", entry.RollNumber))
				skipped++
				continue
			}
			return fmt.Errorf("failed to create student %s: %w", entry.RollNumber, err)
		}
		created++

		if sendWelcome {
			if err := emailService.SendWelcome(ctx, result.Email, result.Name, result.RollNumber, defaultPassword); err != nil {
				logger.Error("failed to send welcome email",
					slog.String("roll_number", result.RollNumber), slog.Any("error", err))
			}
		}
	}

	logger.Info("seeding complete", slog.Int("created", created), slog.Int("skipped", skipped))
	return nil
}
