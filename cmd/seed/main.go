package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sysu-ecnc-dev/event-roster/backend/internal/config"
	"github.com/sysu-ecnc-dev/event-roster/backend/internal/repository"
	"github.com/sysu-ecnc-dev/event-roster/backend/internal/seed"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// app 保存所有子命令共用的配置和数据库连接，由根命令的 PersistentPreRunE 初始化
type app struct {
	cfg    *config.Config
	dbpool *sql.DB
	repo   *repository.Repository
}

func (a *app) open(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("无法读取配置文件: %w", err)
	}
	a.cfg = cfg

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("无法创建数据库连接池: %w", err)
	}

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(ctx); err != nil {
		dbpool.Close()
		return fmt.Errorf("无法连接到数据库: %w", err)
	}

	a.dbpool = dbpool
	a.repo = repository.NewRepository(cfg, dbpool)
	return nil
}

func (a *app) close(_ *cobra.Command, _ []string) error {
	if a.dbpool != nil {
		return a.dbpool.Close()
	}
	return nil
}

func (a *app) options() seed.Options {
	return seed.Options{
		Password:    a.cfg.Seed.User.Password,
		EmailDomain: a.cfg.Email.UserDomain,
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:                "seed",
		Short:              "向数据库中写入测试数据",
		SilenceUsage:       true,
		PersistentPreRunE:  a.open,
		PersistentPostRunE: a.close,
	}
	cmd.AddCommand(newMigrateCmd(a))
	cmd.AddCommand(newUsersCmd(a))
	cmd.AddCommand(newEventsCmd(a))
	cmd.AddCommand(newFixtureCmd(a))
	cmd.AddCommand(newAttendantsCmd(a))
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
