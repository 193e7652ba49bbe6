// Package cli holds the operator commands: migrations, admin accounts, the
// live exam registry, and exam bank seeding.
package cli

import (
	"context"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stemsi/exstem-portal/internal/config"
	"github.com/stemsi/exstem-portal/internal/database"
	"github.com/stemsi/exstem-portal/internal/live"
	"github.com/stemsi/exstem-portal/internal/logger"
	"github.com/stemsi/exstem-portal/internal/repository"
	"github.com/stemsi/exstem-portal/internal/service"
)

// Execute runs portalctl.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the portalctl command tree.
func NewRootCmd() *cobra.Command {
	env := newEnv()

	cmd := &cobra.Command{
		Use:           "portalctl",
		Short:         "Operate the ExStem exam portal",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVar(&env.logLevel, "log-level", "warn", "log level for diagnostics on stderr")

	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(newCreateAdminCmd(env))
	cmd.AddCommand(newLiveCmd(env))
	cmd.AddCommand(newSeedCmd(env))
	return cmd
}

// env lazily opens the backing stores a command needs.
type env struct {
	cfg      *config.Config
	logLevel string
	log      zerolog.Logger

	pool *pgxpool.Pool
	rdb  *redis.Client
}

func newEnv() *env {
	return &env{cfg: config.Load(), log: zerolog.Nop()}
}

func (e *env) logger() zerolog.Logger {
	if e.logLevel != "" {
		e.log = logger.New(os.Stderr, e.logLevel, "pretty")
		e.logLevel = ""
	}
	return e.log
}

func (e *env) postgres(ctx context.Context) (*pgxpool.Pool, error) {
	if e.pool != nil {
		return e.pool, nil
	}
	pool, err := database.NewPostgresPool(ctx, e.cfg, e.logger())
	if err != nil {
		return nil, err
	}
	e.pool = pool
	return pool, nil
}

func (e *env) redis(ctx context.Context) (*redis.Client, error) {
	if e.rdb != nil {
		return e.rdb, nil
	}
	rdb, err := database.NewRedisClient(ctx, e.cfg, e.logger())
	if err != nil {
		return nil, err
	}
	e.rdb = rdb
	return rdb, nil
}

// liveService wires a LiveService against the shared Redis registry.
// withExams also opens Postgres, which only go-live needs.
func (e *env) liveService(ctx context.Context, withExams bool) (*service.LiveService, error) {
	rdb, err := e.redis(ctx)
	if err != nil {
		return nil, err
	}
	var exams service.ExamStore
	if withExams {
		pool, err := e.postgres(ctx)
		if err != nil {
			return nil, err
		}
		exams = service.NewExamService(repository.NewExamRepository(pool), e.logger())
	}
	registry := live.NewRedisRegistry(rdb, e.logger())
	return service.NewLiveService(registry, exams, false, e.logger()), nil
}

func (e *env) close() {
	if e.pool != nil {
		e.pool.Close()
	}
	if e.rdb != nil {
		_ = e.rdb.Close()
	}
}
