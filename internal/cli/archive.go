package cli

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"go-weiboapi/internal/aggregate"
	"go-weiboapi/internal/export"
	"go-weiboapi/internal/logx"
	"go-weiboapi/internal/store"
)

func archiveCmd(a *app) *cobra.Command {
	var exportPath string
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Archives accounts listed in ARCHIVE.uids into SQLite (or data.json in SIMPLE_MODE).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := a.cfg

			// 极简模式不打开数据库；正常模式打开并按需重置
			var st *store.SQLite
			if !cfg.SimpleMode {
				var err error
				st, err = store.OpenSQLite(cfg.Database.DSN)
				if err != nil {
					return fmt.Errorf("open db: %w", err)
				}
				defer st.Close()
				if cfg.ResetOnStart {
					if err := st.Reset(ctx); err != nil {
						logx.Warnf("启动清理数据库失败：%v", err)
					} else {
						logx.Infof("已清理数据库表（accounts/posts/comments）")
					}
				}
			}
			if cfg.ResetOnStart && exportPath != "" {
				if err := os.Remove(exportPath); err == nil {
					logx.Infof("已删除导出文件：%s", exportPath)
				}
			}

			// 登录一次，各 worker 共用同一个已登录的 HTTP 客户端
			if err := a.authenticate(ctx); err != nil {
				return err
			}
			run := aggregate.New(cfg, st, a.client)
			logx.Infof("开始归档：极简模式=%v", cfg.SimpleMode)
			sums, err := run.Run(ctx)
			if err != nil {
				return fmt.Errorf("archive: %w", err)
			}
			if cfg.SimpleMode {
				accounts, posts, comments := run.BufferData()
				if err := export.ToJSONData(ctx, accounts, posts, comments, exportPath); err != nil {
					return fmt.Errorf("export json: %w", err)
				}
				logx.Infof("已导出 %s", exportPath)
			}
			return a.emit(sums, func(t table.Writer) {
				t.AppendHeader(table.Row{"UID", "Account", "Posts", "Comments"})
				for _, s := range sums {
					t.AppendRow(table.Row{s.UID, s.Account, s.Posts, s.Comments})
				}
			})
		},
	}
	cmd.Flags().StringVar(&exportPath, "export", "data.json", "export json path when SIMPLE_MODE=true")
	return cmd
}

func exportCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Exports the archive database to a JSON file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := store.OpenSQLite(a.cfg.Database.DSN)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer st.Close()
			if err := export.ToJSON(cmd.Context(), st, out); err != nil {
				return err
			}
			fmt.Fprintln(a.out, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "data.json", "output path")
	return cmd
}
