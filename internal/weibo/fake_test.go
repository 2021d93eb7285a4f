package weibo

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/require"

	"go-weiboapi/internal/config"
	"go-weiboapi/internal/errs"
	"go-weiboapi/internal/fetch"
	"go-weiboapi/internal/rules"
)

// handler 返回某个地址前缀对应的响应。
type handler func(req fetch.Request) (string, error)

// fakeExec 按最长前缀匹配请求地址，并记录全部请求。
type fakeExec struct {
	mu     sync.Mutex
	routes map[string]handler
	calls  []fetch.Request
}

func newFake() *fakeExec { return &fakeExec{routes: map[string]handler{}} }

func (f *fakeExec) on(prefix, body string) *fakeExec {
	return f.handle(prefix, func(fetch.Request) (string, error) { return body, nil })
}

func (f *fakeExec) fail(prefix string) *fakeExec {
	return f.handle(prefix, func(req fetch.Request) (string, error) {
		return "", fmt.Errorf("%w: GET %s: http status 500", errs.ErrTransport, req.URL)
	})
}

func (f *fakeExec) handle(prefix string, h handler) *fakeExec {
	f.routes[prefix] = h
	return f
}

func (f *fakeExec) Execute(_ context.Context, req fetch.Request) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	best := ""
	for p := range f.routes {
		if strings.HasPrefix(req.URL, p) && len(p) > len(best) {
			best = p
		}
	}
	h := f.routes[best]
	f.mu.Unlock()
	if h == nil {
		return nil, fmt.Errorf("%w: no route for %s", errs.ErrTransport, req.URL)
	}
	body, err := h(req)
	if err != nil {
		return nil, err
	}
	return []byte(body), nil
}

func (f *fakeExec) requests() []fetch.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fetch.Request(nil), f.calls...)
}

func testEndpoints() config.Endpoints {
	return config.Endpoints{
		Prelogin:   "http://sso.test/prelogin?su={username}&_={rnd}",
		Login:      "http://sso.test/login",
		Session:    "http://beacon.test/e.gif",
		Post:       "http://w.test/aj/add?__rnd={rnd}",
		Comment:    "http://w.test/aj/comment/add?__rnd={rnd}",
		Posts:      "http://w.test/u/{uid}/home?page={page}",
		Query:      "http://w.test/aj/mbloglist",
		Namecard:   "http://w.test/aj/newcard?id={uid}&call_back={callback}",
		Comments:   "http://w.test/aj/comment/big?id={mid}&page={page}&__rnd={rnd}",
		Followee:   "http://w.test/{uid}/follow?page={page}",
		Follower:   "http://w.test/{uid}/fans?page={page}",
		UserInfo:   "http://w.test/p/{domain}{uid}/info",
		SearchUser: "http://s.test/user/{word}&page={page}",
		SearchPost: "http://s.test/weibo/{word}{region}&page={page}",
		Home:       "http://w.test/home/{uid}",
		Image:      "http://img.test/{pic}",
	}
}

func newClient(f *fakeExec) *Client {
	c := New(f, testEndpoints(), config.DefaultForms(), rules.Default())
	c.stamp = func() string { return "1700000000000" }
	return c
}

// view 生成含 FM.view({...}) script 的页面。
func view(t *testing.T, domid, html string) string {
	t.Helper()
	b, err := sonic.MarshalString(map[string]string{"domid": domid, "html": html})
	require.NoError(t, err)
	return `<html><body><script>FM.view(` + b + `)</script></body></html>`
}

// dataJSON 生成 {"code":"100000","data":...} 响应。
func dataJSON(t *testing.T, data any) string {
	t.Helper()
	b, err := sonic.MarshalString(map[string]any{"code": "100000", "data": data})
	require.NoError(t, err)
	return b
}

func feedItem(mid string) string {
	return `<div action-type="feed_list_item" mid="` + mid + `" tbinfo="ouid=123"><div class="WB_detail">` +
		`<div class="WB_text">post ` + mid + `</div><div class="WB_from"><a date="1454070000000">x</a></div></div></div>`
}
