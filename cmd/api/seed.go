package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository/postgres"
	appointmentService "github.com/jwalitptl/hospital-api/internal/service/appointment"
	directoryService "github.com/jwalitptl/hospital-api/internal/service/directory"
	"github.com/jwalitptl/hospital-api/pkg/auth"
)

type seedOptions struct {
	doctors      int
	patients     int
	appointments int
	password     string
}

var (
	specializations = []string{
		"Cardiology",
		"Dermatology",
		"Endocrinology",
		"General Practice",
		"Neurology",
		"Orthopedics",
		"Pediatrics",
	}
	reasons = []string{
		"Annual checkup",
		"Follow-up visit",
		"Persistent headache",
		"Blood test review",
		"Skin rash",
		"Back pain",
		"Vaccination",
	}
)

func seedCmd() *cobra.Command {
	opts := seedOptions{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the database with fake staff, doctors, patients and appointments",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(opts.password) < 8 {
				return fmt.Errorf("--password must be at least 8 characters")
			}
			return runSeed(cmd.Context(), opts)
		},
	}

	cmd.Flags().IntVar(&opts.doctors, "doctors", 5, "number of doctors")
	cmd.Flags().IntVar(&opts.patients, "patients", 20, "number of patients")
	cmd.Flags().IntVar(&opts.appointments, "appointments", 40, "number of appointments")
	cmd.Flags().StringVar(&opts.password, "password", "changeme123", "password for every seeded account")
	return cmd
}

func runSeed(ctx context.Context, opts seedOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	base := postgres.NewBaseRepository(db)
	users := postgres.NewUserRepository(base)
	doctors := postgres.NewDoctorRepository(base)
	patients := postgres.NewPatientRepository(base)

	hash, err := auth.NewBcryptHasher(cfg.Security.BcryptCost).Hash(opts.password)
	if err != nil {
		return err
	}

	for _, staff := range []struct {
		name  string
		email string
		role  model.Role
	}{
		{"Site Admin", "admin@hospital.local", model.RoleAdmin},
		{"Front Desk", "desk@hospital.local", model.RoleReceptionist},
	} {
		if err := users.Create(ctx, &model.User{Name: staff.name, Email: staff.email, PasswordHash: hash, Role: staff.role}); err != nil {
			return fmt.Errorf("failed to seed %s: %w", staff.email, err)
		}
	}

	doctorIDs := make([]int64, 0, opts.doctors)
	for i := 0; i < opts.doctors; i++ {
		first, last := gofakeit.FirstName(), gofakeit.LastName()
		email := seedEmail("dr", first, last, i)

		user := &model.User{Name: "Dr. " + first + " " + last, Email: email, PasswordHash: hash, Role: model.RoleDoctor}
		if err := users.Create(ctx, user); err != nil {
			return fmt.Errorf("failed to seed doctor account: %w", err)
		}
		doctor := &model.Doctor{
			UserID:         &user.ID,
			FirstName:      first,
			LastName:       last,
			Specialization: gofakeit.RandomString(specializations),
			LicenseNumber:  fmt.Sprintf("LIC-%06d", gofakeit.Number(0, 999999)),
			Phone:          gofakeit.Phone(),
			Email:          email,
		}
		if err := doctors.Create(ctx, doctor); err != nil {
			return fmt.Errorf("failed to seed doctor: %w", err)
		}
		doctorIDs = append(doctorIDs, doctor.ID)
	}
	log.Info().Int("count", len(doctorIDs)).Msg("doctors seeded")

	patientIDs := make([]int64, 0, opts.patients)
	for i := 0; i < opts.patients; i++ {
		first, last := gofakeit.FirstName(), gofakeit.LastName()
		email := seedEmail("pt", first, last, i)
		dob := gofakeit.DateRange(time.Now().AddDate(-90, 0, 0), time.Now().AddDate(-1, 0, 0)).Truncate(24 * time.Hour)

		user := &model.User{Name: first + " " + last, Email: email, PasswordHash: hash, Role: model.RolePatient}
		patient := &model.Patient{
			FirstName:        first,
			LastName:         last,
			DateOfBirth:      &dob,
			Gender:           gofakeit.Gender(),
			Address:          gofakeit.Address().Address,
			Phone:            gofakeit.Phone(),
			Email:            email,
			EmergencyContact: gofakeit.Name() + " " + gofakeit.Phone(),
		}
		if err := users.CreatePatientAccount(ctx, user, patient); err != nil {
			return fmt.Errorf("failed to seed patient: %w", err)
		}
		patientIDs = append(patientIDs, patient.ID)
	}
	log.Info().Int("count", len(patientIDs)).Msg("patients seeded")

	if len(doctorIDs) == 0 || len(patientIDs) == 0 {
		log.Info().Msg("seed complete")
		return nil
	}

	// Appointments go through the store so they obey the same rules as the API.
	directory := directoryService.NewService(doctors, patients, directoryService.Config{
		LookupTimeout: cfg.Directory.LookupTimeout,
	}, nil)
	store := appointmentService.NewStore(postgres.NewAppointmentRepository(base), directory)

	now := time.Now().UTC()
	for i := 0; i < opts.appointments; i++ {
		when := gofakeit.DateRange(now.Add(24*time.Hour), now.AddDate(0, 2, 0)).UTC().Truncate(15 * time.Minute)
		apt, err := store.Create(ctx, model.CreateAppointmentRequest{
			PatientID:       patientIDs[gofakeit.Number(0, len(patientIDs)-1)],
			DoctorID:        doctorIDs[gofakeit.Number(0, len(doctorIDs)-1)],
			AppointmentDate: when.Format(time.RFC3339),
			Reason:          gofakeit.RandomString(reasons),
		})
		if err != nil {
			return fmt.Errorf("failed to seed appointment: %w", err)
		}
		if gofakeit.Number(0, 9) == 0 {
			if _, err := store.Cancel(ctx, apt.ID, nil); err != nil {
				return fmt.Errorf("failed to cancel seeded appointment: %w", err)
			}
		}
	}
	log.Info().Int("count", opts.appointments).Msg("appointments seeded")

	log.Info().
		Strs("staff", []string{"admin@hospital.local", "desk@hospital.local"}).
		Msg("seed complete")
	return nil
}

// seedEmail builds an address that stays unique across the run.
func seedEmail(prefix, first, last string, i int) string {
	local := strings.ToLower(fmt.Sprintf("%s.%s.%s.%d", prefix, first, last, i))
	local = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, local)
	return local + "@hospital.local"
}
