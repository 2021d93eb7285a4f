package aggregate

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go-weiboapi/internal/model"
)

// SimpleBuffer 在极简模式下收集归档数据，避免落库。
type SimpleBuffer struct {
	mu       sync.Mutex
	accounts map[string]model.Account   // key: uid
	posts    map[string]model.Post      // key: mid
	comments map[string][]model.Comment // key: mid，保持页面顺序
}

func NewSimpleBuffer() *SimpleBuffer {
	return &SimpleBuffer{
		accounts: make(map[string]model.Account),
		posts:    make(map[string]model.Post),
		comments: make(map[string][]model.Comment),
	}
}

func (b *SimpleBuffer) UpsertAccount(_ context.Context, a model.Account) error {
	if a.UID == "" {
		return errors.New("account.uid required")
	}
	b.mu.Lock()
	b.accounts[a.UID] = a
	b.mu.Unlock()
	return nil
}

func (b *SimpleBuffer) UpsertPost(_ context.Context, p model.Post) error {
	if p.MID == "" {
		return errors.New("post.mid required")
	}
	b.mu.Lock()
	b.posts[p.MID] = p
	b.mu.Unlock()
	return nil
}

// UpsertComments 以一页评论整体替换同一微博下已收集的评论。
func (b *SimpleBuffer) UpsertComments(_ context.Context, list []model.Comment) error {
	byMID := map[string][]model.Comment{}
	for _, c := range list {
		if c.ID == "" {
			return errors.New("comment.id required")
		}
		byMID[c.MID] = append(byMID[c.MID], c)
	}
	b.mu.Lock()
	for mid, cs := range byMID {
		b.comments[mid] = cs
	}
	b.mu.Unlock()
	return nil
}

// Snapshot 返回副本：
// - accounts 按 uid 排序
// - posts 按创建时间倒序
// - comments 按 mid 分组，组内保持页面顺序
func (b *SimpleBuffer) Snapshot() ([]model.Account, []model.Post, []model.Comment) {
	b.mu.Lock()
	defer b.mu.Unlock()
	as := make([]model.Account, 0, len(b.accounts))
	for _, v := range b.accounts {
		as = append(as, v)
	}
	sort.Slice(as, func(i, j int) bool { return as[i].UID < as[j].UID })
	ps := make([]model.Post, 0, len(b.posts))
	for _, v := range b.posts {
		ps = append(ps, v)
	}
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].Created.Equal(ps[j].Created) {
			return ps[i].MID > ps[j].MID
		}
		return ps[i].Created.After(ps[j].Created)
	})
	mids := make([]string, 0, len(b.comments))
	for mid := range b.comments {
		mids = append(mids, mid)
	}
	sort.Strings(mids)
	var cs []model.Comment
	for _, mid := range mids {
		cs = append(cs, b.comments[mid]...)
	}
	return as, ps, cs
}
