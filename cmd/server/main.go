// Command server runs the teacher attendance API and its maintenance jobs.
//
// main is the composition root: the only place config, storage, the
// ceremony verifier and the attendance engine are wired together.
package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Elizabethomito/igaratrack/internal/config"
	"github.com/Elizabethomito/igaratrack/internal/db"
	"github.com/Elizabethomito/igaratrack/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Teacher attendance server",
	Long: `Teacher attendance server.

Teachers clock in and out of their timetabled lessons with a platform
fingerprint authenticator. Administrators manage teachers, timetables and
public holidays over a JSON API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(generateLogsCmd)
	rootCmd.AddCommand(createAdminCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// bootstrap loads configuration and opens the database every command needs.
func bootstrap() (*config.Config, *slog.Logger, *sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	log := logging.New(cfg.LogLevel, os.Stderr)
	slog.SetDefault(log)

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open database: %w", err)
	}
	return cfg, log, database, nil
}
