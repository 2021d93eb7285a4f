package aggregate

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-weiboapi/internal/config"
	"go-weiboapi/internal/model"
	"go-weiboapi/internal/store"
)

// fakeScraper 为每个 uid 提供 pages 页、每页 2 条微博，每条 1 条评论。
type fakeScraper struct {
	pages    int
	noDomain map[string]bool
	active   int32
	peak     int32
	mu       sync.Mutex
	fetched  map[string][]int
}

func (f *fakeScraper) enter() func() {
	n := atomic.AddInt32(&f.active, 1)
	for {
		p := atomic.LoadInt32(&f.peak)
		if n <= p || atomic.CompareAndSwapInt32(&f.peak, p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return func() { atomic.AddInt32(&f.active, -1) }
}

func (f *fakeScraper) FetchAccount(_ context.Context, uid string) (model.Account, bool) {
	defer f.enter()()
	return model.Account{UID: uid, Name: "name-" + uid}, true
}

func (f *fakeScraper) ResolveDomain(_ context.Context, uid string) (string, bool) {
	return "100505", !f.noDomain[uid]
}

func (f *fakeScraper) FetchPosts(_ context.Context, uid, domain string, page int) []model.Post {
	f.mu.Lock()
	f.fetched[uid] = append(f.fetched[uid], page)
	f.mu.Unlock()
	if page > f.pages {
		return nil
	}
	base := time.Unix(1454070000, 0).Add(time.Duration(page) * time.Hour)
	return []model.Post{
		{MID: fmt.Sprintf("%s-%d-a", uid, page), UID: uid, Created: base},
		{MID: fmt.Sprintf("%s-%d-b", uid, page), UID: uid, Created: base.Add(-time.Minute)},
	}
}

func (f *fakeScraper) FetchComments(_ context.Context, mid string, page int) ([]model.Comment, bool) {
	return []model.Comment{{ID: "c-" + mid, MID: mid, UID: "7", Text: "hi"}}, true
}

func newFake(pages int) *fakeScraper {
	return &fakeScraper{pages: pages, noDomain: map[string]bool{}, fetched: map[string][]int{}}
}

func TestRun_SimpleModeBuffersEverything(t *testing.T) {
	cfg := &config.Config{SimpleMode: true, Archive: config.Archive{
		UIDs: []string{"1", "2", "1", ""}, Pages: 3, Comments: true, Concurrency: 2,
	}}
	src := newFake(2)
	sums, err := New(cfg, nil, src).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []Summary{
		{UID: "1", Account: true, Posts: 4, Comments: 4},
		{UID: "2", Account: true, Posts: 4, Comments: 4},
	}, sums)
	// 第 3 页为空即停止
	require.Equal(t, []int{1, 2, 3}, src.fetched["1"])

	accounts, posts, comments := New(cfg, nil, src).BufferData()
	require.Empty(t, accounts)
	require.Empty(t, posts)
	require.Empty(t, comments)
}

func TestRun_BufferSnapshot(t *testing.T) {
	cfg := &config.Config{SimpleMode: true, Archive: config.Archive{UIDs: []string{"9"}, Pages: 1, Concurrency: 1}}
	r := New(cfg, nil, newFake(1))
	_, err := r.Run(context.Background())
	require.NoError(t, err)
	accounts, posts, comments := r.BufferData()
	require.Equal(t, []model.Account{{UID: "9", Name: "name-9"}}, accounts)
	require.Len(t, posts, 2)
	require.Equal(t, "9-1-a", posts[0].MID)
	require.Empty(t, comments)
}

func TestRun_ConcurrencyLimit(t *testing.T) {
	uids := make([]string, 12)
	for i := range uids {
		uids[i] = fmt.Sprint(i)
	}
	cfg := &config.Config{SimpleMode: true, Archive: config.Archive{UIDs: uids, Pages: 1, Concurrency: 3}}
	src := newFake(1)
	_, err := New(cfg, nil, src).Run(context.Background())
	require.NoError(t, err)
	require.LessOrEqual(t, atomic.LoadInt32(&src.peak), int32(3))
}

func TestRun_SkipsPostsWithoutDomain(t *testing.T) {
	cfg := &config.Config{SimpleMode: true, Archive: config.Archive{UIDs: []string{"1"}, Pages: 2, Concurrency: 1}}
	src := newFake(2)
	src.noDomain["1"] = true
	sums, err := New(cfg, nil, src).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []Summary{{UID: "1", Account: true}}, sums)
	require.Empty(t, src.fetched["1"])
}

func TestRun_ConfigErrors(t *testing.T) {
	_, err := New(&config.Config{SimpleMode: true}, nil, newFake(1)).Run(context.Background())
	require.ErrorContains(t, err, "ARCHIVE.uids")

	cfg := &config.Config{Archive: config.Archive{UIDs: []string{"1"}}}
	_, err = New(cfg, nil, newFake(1)).Run(context.Background())
	require.ErrorContains(t, err, "no store")
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := &config.Config{SimpleMode: true, Archive: config.Archive{UIDs: []string{"1", "2"}, Pages: 1, Concurrency: 1}}
	_, err := New(cfg, nil, newFake(1)).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRun_SQLiteModeWritesAndCleans(t *testing.T) {
	st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "a.db"))
	require.NoError(t, err)
	defer st.Close()

	cfg := &config.Config{Archive: config.Archive{
		UIDs: []string{"1"}, Pages: 2, Comments: true, Concurrency: 2, CleanDays: 0,
	}}
	_, err = New(cfg, st, newFake(2)).Run(context.Background())
	require.NoError(t, err)

	stats, err := st.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.AccountsTotal)
	require.Equal(t, 4, stats.PostsTotal)
	require.Equal(t, 4, stats.CommentsTotal)

	// 微博时间在 2016 年，按 30 天阈值会被全部清理
	cfg.Archive.CleanDays = 30
	cfg.Archive.Comments = false
	_, err = New(cfg, st, newFake(0)).Run(context.Background())
	require.NoError(t, err)
	stats, err = st.Stats(context.Background())
	require.NoError(t, err)
	require.Zero(t, stats.PostsTotal)
	require.Zero(t, stats.CommentsTotal)
}
