// 包 store 提供归档存储实现（SQLite），包含表迁移/写入/查询/清理等操作。
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	_ "modernc.org/sqlite"

	"go-weiboapi/internal/model"
)

// SQLite 封装 *sql.DB，基于 modernc.org/sqlite（纯 Go 实现）。
type SQLite struct {
	db *sql.DB
}

// OpenSQLite 打开 SQLite 数据库并执行自动迁移。
func OpenSQLite(path string) (*SQLite, error) {
	// modernc sqlite 的 DSN 可直接使用文件路径，或以 'file:...' 前缀表示
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// Reset 清空业务数据表（不删除数据库文件）。
func (s *SQLite) Reset(ctx context.Context) error {
	for _, table := range []string{"comments", "posts", "accounts"} {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	return nil
}

// migrate 执行建表语句，保持幂等。
func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
            uid TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            bio TEXT,
            followees INTEGER,
            followers INTEGER,
            posts INTEGER,
            verified INTEGER,
            updated_at TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS posts (
            mid TEXT PRIMARY KEY,
            uid TEXT NOT NULL,
            text TEXT,
            created TIMESTAMP,
            media TEXT,
            repost_of TEXT,
            fetched_at TIMESTAMP
        );`,
		`CREATE INDEX IF NOT EXISTS idx_posts_uid ON posts(uid);`,
		`CREATE TABLE IF NOT EXISTS comments (
            id TEXT PRIMARY KEY,
            mid TEXT NOT NULL,
            uid TEXT,
            author TEXT,
            text TEXT,
            created TEXT,
            seq INTEGER,
            fetched_at TIMESTAMP
        );`,
		`CREATE INDEX IF NOT EXISTS idx_comments_mid ON comments(mid);`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("exec migrate: %w", err)
		}
	}
	return nil
}

// UpsertAccount 插入或更新账号（uid 唯一）；可选字段为 nil 时写入 NULL。
func (s *SQLite) UpsertAccount(ctx context.Context, a model.Account) error {
	if a.UID == "" {
		return errors.New("account.uid required")
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO accounts(uid, name, bio, followees, followers, posts, verified, updated_at)
        VALUES(?,?,?,?,?,?,?,?)
        ON CONFLICT(uid) DO UPDATE SET name=excluded.name, bio=excluded.bio, followees=excluded.followees,
            followers=excluded.followers, posts=excluded.posts, verified=excluded.verified, updated_at=excluded.updated_at`,
		a.UID, a.Name, a.Bio, a.Followees, a.Followers, a.Posts, a.Verified, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert account %s: %w", a.UID, err)
	}
	return nil
}

// UpsertPost 插入或更新微博（mid 唯一）。
func (s *SQLite) UpsertPost(ctx context.Context, p model.Post) error {
	if p.MID == "" {
		return errors.New("post.mid required")
	}
	media, err := sonic.MarshalString(p.Media)
	if err != nil {
		return fmt.Errorf("encode media %s: %w", p.MID, err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO posts(mid, uid, text, created, media, repost_of, fetched_at)
        VALUES(?,?,?,?,?,?,?)
        ON CONFLICT(mid) DO UPDATE SET uid=excluded.uid, text=excluded.text, created=excluded.created,
            media=excluded.media, repost_of=excluded.repost_of, fetched_at=excluded.fetched_at`,
		p.MID, p.UID, p.Text, p.Created.UTC(), media, p.RepostOf, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert post %s: %w", p.MID, err)
	}
	return nil
}

// UpsertComments 按页面顺序写入一页评论（id 唯一），单事务提交。
func (s *SQLite) UpsertComments(ctx context.Context, list []model.Comment) error {
	if len(list) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	now := time.Now().UTC()
	for i, c := range list {
		if c.ID == "" {
			return errors.New("comment.id required")
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO comments(id, mid, uid, author, text, created, seq, fetched_at)
            VALUES(?,?,?,?,?,?,?,?)
            ON CONFLICT(id) DO UPDATE SET mid=excluded.mid, uid=excluded.uid, author=excluded.author,
                text=excluded.text, created=excluded.created, seq=excluded.seq, fetched_at=excluded.fetched_at`,
			c.ID, c.MID, c.UID, c.Author, c.Text, c.Created, i, now)
		if err != nil {
			return fmt.Errorf("upsert comment %s: %w", c.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit comments: %w", err)
	}
	return nil
}

// ListAccounts 返回全部账号，按 uid 排序。
func (s *SQLite) ListAccounts(ctx context.Context) ([]model.Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT uid, name, bio, followees, followers, posts, verified FROM accounts ORDER BY uid`)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()
	var out []model.Account
	for rows.Next() {
		var a model.Account
		var bio sql.NullString
		var followees, followers, posts sql.NullInt64
		var verified sql.NullBool
		if err := rows.Scan(&a.UID, &a.Name, &bio, &followees, &followers, &posts, &verified); err != nil {
			return nil, fmt.Errorf("scan accounts: %w", err)
		}
		if bio.Valid {
			a.Bio = &bio.String
		}
		a.Followees = intPtr(followees)
		a.Followers = intPtr(followers)
		a.Posts = intPtr(posts)
		if verified.Valid {
			a.Verified = &verified.Bool
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return out, nil
}

// ListPosts 返回微博，按 created 倒序；uid 非空时只返回该账号的微博。
func (s *SQLite) ListPosts(ctx context.Context, uid string) ([]model.Post, error) {
	q := `SELECT mid, uid, text, created, media, COALESCE(repost_of,'') FROM posts`
	var args []any
	if uid != "" {
		q += ` WHERE uid = ?`
		args = append(args, uid)
	}
	rows, err := s.db.QueryContext(ctx, q+` ORDER BY created DESC, mid DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()
	var out []model.Post
	for rows.Next() {
		var p model.Post
		var created sql.NullTime
		var media sql.NullString
		if err := rows.Scan(&p.MID, &p.UID, &p.Text, &created, &media, &p.RepostOf); err != nil {
			return nil, fmt.Errorf("scan posts: %w", err)
		}
		if created.Valid {
			p.Created = created.Time
		}
		if media.Valid && media.String != "" && media.String != "null" {
			if err := sonic.UnmarshalString(media.String, &p.Media); err != nil {
				return nil, fmt.Errorf("decode media %s: %w", p.MID, err)
			}
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return out, nil
}

// ListComments 返回评论，同一微博内保持页面顺序；mid 为空时返回全部。
func (s *SQLite) ListComments(ctx context.Context, mid string) ([]model.Comment, error) {
	q := `SELECT id, mid, COALESCE(uid,''), COALESCE(author,''), COALESCE(text,''), COALESCE(created,'') FROM comments`
	var args []any
	if mid != "" {
		q += ` WHERE mid = ?`
		args = append(args, mid)
	}
	rows, err := s.db.QueryContext(ctx, q+` ORDER BY mid, seq`, args...)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()
	var out []model.Comment
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.MID, &c.UID, &c.Author, &c.Text, &c.Created); err != nil {
			return nil, fmt.Errorf("scan comments: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return out, nil
}

// Stats 统计账号/微博/评论总数。
func (s *SQLite) Stats(ctx context.Context) (model.Stats, error) {
	var st model.Stats
	counts := []struct {
		table string
		dst   *int
	}{
		{"accounts", &st.AccountsTotal},
		{"posts", &st.PostsTotal},
		{"comments", &st.CommentsTotal},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM `+c.table).Scan(c.dst); err != nil {
			return st, fmt.Errorf("count %s: %w", c.table, err)
		}
	}
	st.UpdatedAt = time.Now()
	return st, nil
}

// CleanOldPosts 按天数阈值清理过期微博及其评论（基于 created 字段）。
func (s *SQLite) CleanOldPosts(ctx context.Context, days int) error {
	if days <= 0 {
		return nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	if _, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE mid IN (SELECT mid FROM posts WHERE created < ?)`, cutoff); err != nil {
		return fmt.Errorf("clean old comments: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE created < ?`, cutoff); err != nil {
		return fmt.Errorf("clean old posts: %w", err)
	}
	return nil
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
