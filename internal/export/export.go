// 包 export 负责导出：将库中或内存中的归档数据写为 data.json。
package export

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bytedance/sonic"

	"go-weiboapi/internal/model"
	"go-weiboapi/internal/store"
)

// ToJSON 查询统计/账号/微博/评论并写入 JSON 文件。
func ToJSON(ctx context.Context, s *store.SQLite, path string) error {
	accounts, err := s.ListAccounts(ctx)
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}
	posts, err := s.ListPosts(ctx, "")
	if err != nil {
		return fmt.Errorf("list posts: %w", err)
	}
	comments, err := s.ListComments(ctx, "")
	if err != nil {
		return fmt.Errorf("list comments: %w", err)
	}
	stats, err := s.Stats(ctx)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	return write(path, model.Export{Stats: stats, Accounts: accounts, Posts: posts, Comments: comments})
}

// ToJSONData 直接将内存中的数据写成 data.json（极简模式）。
func ToJSONData(_ context.Context, accounts []model.Account, posts []model.Post, comments []model.Comment, path string) error {
	st := model.Stats{
		AccountsTotal: len(accounts),
		PostsTotal:    len(posts),
		CommentsTotal: len(comments),
		UpdatedAt:     time.Now(),
	}
	return write(path, model.Export{Stats: st, Accounts: accounts, Posts: posts, Comments: comments})
}

func write(path string, out model.Export) error {
	// 空列表导出为 []
	if out.Accounts == nil {
		out.Accounts = []model.Account{}
	}
	if out.Posts == nil {
		out.Posts = []model.Post{}
	}
	if out.Comments == nil {
		out.Comments = []model.Comment{}
	}
	b, err := sonic.ConfigStd.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json to %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
