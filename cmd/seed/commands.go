package main

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"

	"github.com/spf13/cobra"

	"github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/event-roster/backend/internal/repository"
	"github.com/sysu-ecnc-dev/event-roster/backend/internal/seed"
	"github.com/sysu-ecnc-dev/event-roster/backend/internal/utils"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "执行数据库迁移",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := repository.Migrate(a.dbpool); err != nil {
				return err
			}
			version, err := repository.MigrationVersion(a.dbpool)
			if err != nil {
				return err
			}
			slog.Info("数据库迁移完成", slog.Int64("version", version))
			return nil
		},
	}
}

func newUsersCmd(a *app) *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "users",
		Short: "插入随机用户",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if n <= 0 {
				return errors.New("请输入合法的用户数量")
			}

			cnt := 0
			for i := 0; i < n; i++ {
				user, err := utils.GenerateRandomUser(a.cfg.Seed.User.Password, a.cfg.Email.UserDomain)
				if err != nil {
					slog.Error("无法生成随机用户", slog.String("error", err.Error()))
					continue
				}

				if err := a.repo.CreateUser(cmd.Context(), user); err != nil {
					slog.Error("无法插入用户", slog.String("error", err.Error()))
					continue
				}

				cnt++
			}

			slog.Info("插入用户成功", slog.Int("count", cnt))
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "number", "n", 5, "要插入的用户数量")
	return cmd
}

func newEventsCmd(a *app) *cobra.Command {
	var (
		n          int
		positions  int
		attendants int
		creator    string
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "插入随机活动，包括岗位、班次和人员名单",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if n <= 0 || positions < 0 || attendants < 0 {
				return errors.New("请输入合法的数量")
			}
			if creator == "" {
				creator = a.cfg.InitialAdmin.Username
			}

			owner, err := a.repo.GetUserByUsername(cmd.Context(), creator)
			if err != nil {
				return fmt.Errorf("无法获取活动创建者 %s: %w", creator, err)
			}

			users, err := a.repo.GetAllUsers(cmd.Context())
			if err != nil {
				return fmt.Errorf("无法获取用户列表: %w", err)
			}
			candidates := make([]*domain.User, 0, len(users))
			for _, u := range users {
				if u.IsActive && u.ID != owner.ID {
					candidates = append(candidates, u)
				}
			}

			for i := 0; i < n; i++ {
				rand.Shuffle(len(candidates), func(i, j int) {
					candidates[i], candidates[j] = candidates[j], candidates[i]
				})
				picked := candidates[:min(attendants, len(candidates))]

				if _, err := seed.RandomEvent(cmd.Context(), a.repo, owner.ID, positions, picked); err != nil {
					slog.Error("无法插入随机活动", slog.String("error", err.Error()))
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "number", "n", 1, "要插入的活动数量")
	cmd.Flags().IntVar(&positions, "positions", 10, "每个活动的岗位数量")
	cmd.Flags().IntVar(&attendants, "attendants", 20, "每个活动的人员数量")
	cmd.Flags().StringVar(&creator, "creator", "", "活动创建者的用户名，默认为初始管理员")
	return cmd
}

func newFixtureCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fixture <file.yaml>",
		Short: "从 YAML 文件导入一个完整的活动",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := seed.LoadFixtureFile(args[0])
			if err != nil {
				return err
			}
			_, err = seed.Apply(cmd.Context(), a.repo, f, a.options())
			return err
		},
	}
}

func newAttendantsCmd(a *app) *cobra.Command {
	var eventID int64
	cmd := &cobra.Command{
		Use:   "attendants <file.csv>",
		Short: "从 CSV 文件导入活动的人员名单",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if eventID <= 0 {
				return errors.New("请输入合法的活动 ID")
			}

			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			_, err = seed.ImportAttendants(cmd.Context(), a.repo, eventID, file, a.options())
			return err
		},
	}
	cmd.Flags().Int64Var(&eventID, "event", 0, "活动 ID")
	return cmd
}
