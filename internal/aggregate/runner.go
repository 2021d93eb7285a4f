// 包 aggregate 负责批量归档编排：
// - 按配置的 uid 列表并发抓取名片、若干页微博与评论
// - 写入 SQLite，或在极简模式下收集到内存缓冲
// - 落库后清理过期微博
package aggregate

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"go-weiboapi/internal/config"
	"go-weiboapi/internal/logx"
	"go-weiboapi/internal/model"
	"go-weiboapi/internal/store"
)

// Scraper 为归档所需的抓取能力，由 *weibo.Client 实现。
type Scraper interface {
	FetchAccount(ctx context.Context, uid string) (model.Account, bool)
	ResolveDomain(ctx context.Context, uid string) (string, bool)
	FetchPosts(ctx context.Context, uid, domain string, page int) []model.Post
	FetchComments(ctx context.Context, mid string, page int) ([]model.Comment, bool)
}

// Sink 为抓取结果的写入目标，*store.SQLite 与 *SimpleBuffer 均实现。
type Sink interface {
	UpsertAccount(ctx context.Context, a model.Account) error
	UpsertPost(ctx context.Context, p model.Post) error
	UpsertComments(ctx context.Context, list []model.Comment) error
}

// Runner 归档执行器，持有配置/存储/抓取客户端。
type Runner struct {
	cfg   *config.Config
	src   Scraper
	store *store.SQLite
	sink  Sink
	// 极简模式：仅收集内存数据，不落库
	buf *SimpleBuffer
}

// Summary 为单个账号的归档结果。
type Summary struct {
	UID      string `json:"uid"`
	Account  bool   `json:"account"`
	Posts    int    `json:"posts"`
	Comments int    `json:"comments"`
}

// New 创建 Runner；极简模式下 s 可以为 nil。
func New(cfg *config.Config, s *store.SQLite, src Scraper) *Runner {
	r := &Runner{cfg: cfg, store: s, src: src}
	if s != nil {
		r.sink = s
	}
	if cfg != nil && cfg.SimpleMode {
		r.buf = NewSimpleBuffer()
		r.sink = r.buf
	}
	return r
}

// Run 执行一轮归档：每个 uid 一个任务，并发度为 ARCHIVE.concurrency。
// 单个账号的失败只记录日志，不影响其它账号；返回值仅反映取消与配置错误。
func (r *Runner) Run(ctx context.Context) ([]Summary, error) {
	uids := dedup(r.cfg.Archive.UIDs)
	if len(uids) == 0 {
		return nil, errors.New("ARCHIVE.uids is empty")
	}
	if r.sink == nil {
		return nil, errors.New("no store configured")
	}
	logx.Infof("开始归档：账号=%d 页数=%d 并发=%d 评论=%v", len(uids), r.cfg.Archive.Pages, r.cfg.Archive.Concurrency, r.cfg.Archive.Comments)

	out := make([]Summary, len(uids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, r.cfg.Archive.Concurrency))
	for i, uid := range uids {
		i, uid := i, uid
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = r.processAccount(gctx, uid)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}

	// 正常模式才清理数据库中过期微博；极简模式不使用数据库
	if r.buf == nil && r.store != nil {
		if err := r.store.CleanOldPosts(ctx, r.cfg.Archive.CleanDays); err != nil {
			logx.Warnf("清理过期微博失败：%v", err)
		}
	}
	return out, nil
}

// processAccount 处理单个账号：名片 → 逐页微博 → 评论。
func (r *Runner) processAccount(ctx context.Context, uid string) Summary {
	sum := Summary{UID: uid}
	if a, ok := r.src.FetchAccount(ctx, uid); ok {
		if err := r.sink.UpsertAccount(ctx, a); err != nil {
			logx.Warnf("[%s] 写入账号失败：%v", uid, err)
		} else {
			sum.Account = true
		}
	}
	domain, ok := r.src.ResolveDomain(ctx, uid)
	if !ok {
		logx.Warnf("[%s] 无法解析 domain，跳过微博", uid)
		return sum
	}
	for page := 1; page <= r.cfg.Archive.Pages; page++ {
		posts := r.src.FetchPosts(ctx, uid, domain, page)
		if len(posts) == 0 {
			logx.Debugf("[%s] 第 %d 页无微博，停止翻页", uid, page)
			break
		}
		for _, p := range posts {
			if err := r.sink.UpsertPost(ctx, p); err != nil {
				logx.Warnf("[%s] 写入微博失败：%v", uid, err)
				continue
			}
			sum.Posts++
			if r.cfg.Archive.Comments {
				sum.Comments += r.archiveComments(ctx, uid, p.MID)
			}
		}
	}
	logx.Infof("[%s] 归档完成：名片=%v 微博=%d 评论=%d", uid, sum.Account, sum.Posts, sum.Comments)
	return sum
}

func (r *Runner) archiveComments(ctx context.Context, uid, mid string) int {
	list, ok := r.src.FetchComments(ctx, mid, 1)
	if !ok || len(list) == 0 {
		return 0
	}
	if err := r.sink.UpsertComments(ctx, list); err != nil {
		logx.Warnf("[%s] 写入评论失败：mid=%s %v", uid, mid, err)
		return 0
	}
	return len(list)
}

// dedup 去除空串与重复 uid，保持顺序。
func dedup(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// BufferData 返回极简模式下收集的内存数据。
func (r *Runner) BufferData() ([]model.Account, []model.Post, []model.Comment) {
	if r == nil || r.buf == nil {
		return nil, nil, nil
	}
	return r.buf.Snapshot()
}
