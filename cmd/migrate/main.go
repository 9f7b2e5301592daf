// migrate aplica las migraciones SQL embebidas del almacén relacional.
//
// Uso: go run ./cmd/migrate [up|down|status|redo|reset|version|to VERSION]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/jhoicas/comercio-api/internal/infrastructure/postgres"
	"github.com/jhoicas/comercio-api/pkg/config"
	"github.com/jhoicas/comercio-api/pkg/logger"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "migrate",
		Short:        "Migraciones de PostgreSQL de comercio-api",
		SilenceUsage: true,
	}

	for _, c := range []struct{ name, short string }{
		{"up", "Aplica todas las migraciones pendientes"},
		{"down", "Revierte la última migración"},
		{"status", "Muestra el estado de cada migración"},
		{"redo", "Revierte y vuelve a aplicar la última migración"},
		{"reset", "Revierte todas las migraciones"},
		{"version", "Imprime la versión actual del esquema"},
	} {
		rootCmd.AddCommand(gooseCmd(c.name, c.short))
	}
	rootCmd.AddCommand(toCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func gooseCmd(command, short string) *cobra.Command {
	return &cobra.Command{
		Use:   command,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPool(cmd.Context(), func(pool *pgxpool.Pool) error {
				return postgres.Migrate(cmd.Context(), pool, command)
			})
		},
	}
}

func toCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "to VERSION",
		Short:   "Sube o baja el esquema hasta la versión indicada",
		Example: "  migrate to 20260101000001",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd.Context(), func(pool *pgxpool.Pool) error {
				return postgres.MigrateTo(cmd.Context(), pool, args[0])
			})
		},
	}
}

func withPool(ctx context.Context, fn func(*pgxpool.Pool) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("cargar configuración: %w", err)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "migrate"})

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	defer pool.Close()

	if err := fn(pool); err != nil {
		return err
	}
	log.Info().Str("db", cfg.DB.DBName).Msg("migración completada")
	return nil
}
