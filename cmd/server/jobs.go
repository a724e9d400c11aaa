package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/Elizabethomito/igaratrack/internal/attendance"
	"github.com/Elizabethomito/igaratrack/internal/models"
	"github.com/Elizabethomito/igaratrack/internal/store"
)

var generateLogsCmd = &cobra.Command{
	Use:   "generate-logs",
	Short: "Mark past unattended lessons missed and create absent rows for a day",
	Long: `Runs the nightly attendance job once.

Rows dated before --date that still have no clock-in are marked missed, then
an absent row is created for every active teacher's lesson on --date.
Existing rows are left untouched, so the command is safe to repeat.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		date, _ := cmd.Flags().GetString("date")
		return generateLogs(cmd.Context(), cmd, date)
	},
}

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an administrator account",
	Example: `  server create-admin --username headteacher --password 's3cret-pass'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var req models.CreateAdminRequest
		req.Username, _ = cmd.Flags().GetString("username")
		req.Password, _ = cmd.Flags().GetString("password")
		req.Email, _ = cmd.Flags().GetString("email")
		return createAdmin(cmd.Context(), cmd, req)
	},
}

func init() {
	generateLogsCmd.Flags().String("date", "", "day to generate, YYYY-MM-DD (default today in TIMEZONE)")

	createAdminCmd.Flags().String("username", "", "admin username")
	createAdminCmd.Flags().String("password", "", "admin password (at least 8 characters)")
	createAdminCmd.Flags().String("email", "", "admin email")
	_ = createAdminCmd.MarkFlagRequired("username")
	_ = createAdminCmd.MarkFlagRequired("password")
}

func generateLogs(ctx context.Context, cmd *cobra.Command, date string) error {
	cfg, log, database, err := bootstrap()
	if err != nil {
		return err
	}
	defer database.Close()

	loc := cfg.Location()
	day := time.Now().In(loc)
	if date != "" {
		day, err = time.ParseInLocation(attendance.DateLayout, date, loc)
		if err != nil {
			return fmt.Errorf("--date: %w", err)
		}
	}

	st := store.New(database)
	pre := attendance.NewPregenerator(st.Holidays, st.Timetable, st.Logs, log)
	res, err := pre.Nightly(ctx, day)
	if err != nil {
		return err
	}
	if res.Holiday {
		cmd.Printf("%s is a public holiday, no logs generated\n", res.Date)
		return nil
	}
	cmd.Printf("%s: %d created, %d already present\n", res.Date, res.Created, res.Skipped)
	return nil
}

func createAdmin(ctx context.Context, cmd *cobra.Command, req models.CreateAdminRequest) error {
	if err := validator.New().Struct(req); err != nil {
		return err
	}
	_, _, database, err := bootstrap()
	if err != nil {
		return err
	}
	defer database.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	admin := &models.Admin{Username: req.Username, PasswordHash: string(hash), Email: req.Email}
	if err := store.New(database).Admins.Create(ctx, admin); err != nil {
		return fmt.Errorf("create admin %q: %w", req.Username, err)
	}
	cmd.Printf("admin %q created (id %d)\n", admin.Username, admin.ID)
	return nil
}
