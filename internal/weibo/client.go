// 包 weibo 串联登录握手与各项平台能力（发微博、评论、抓取、搜索）。
//
// 对外方法只返回"有/无"：bool、空切片或零值；内部各步骤返回带 errs 分类的错误，
// 在方法边界记录日志后折叠。Client 构造后只读，登录完成后可被多个 goroutine 并发用于读取类操作；
// 登录态保存在执行器的 Cookie 会话与调用方持有的 *Session 中。
package weibo

import (
	"context"
	"net/http"

	"go-weiboapi/internal/codec"
	"go-weiboapi/internal/config"
	"go-weiboapi/internal/extract"
	"go-weiboapi/internal/fetch"
	"go-weiboapi/internal/rules"
)

// Executor 执行一次 HTTP 请求并返回响应体；传输失败与非 2xx 状态返回 errs.ErrTransport。
type Executor interface {
	Execute(ctx context.Context, req fetch.Request) ([]byte, error)
}

// Client 为平台客户端。
type Client struct {
	exec      Executor
	endpoints config.Endpoints
	forms     config.Forms
	extract   *extract.Extractor
	stamp     func() string
}

// New 创建客户端；endpoints/forms 通常来自已校验的配置，preset 来自 rules。
func New(exec Executor, endpoints config.Endpoints, forms config.Forms, preset rules.Preset) *Client {
	return &Client{
		exec:      exec,
		endpoints: endpoints,
		forms:     forms,
		extract:   extract.New(preset, endpoints.Image),
		stamp:     codec.Timestamp,
	}
}

// get 渲染模板并发起 GET 请求，返回响应文本。
func (c *Client) get(ctx context.Context, tpl string, vars map[string]string) (string, error) {
	return c.do(ctx, fetch.Request{Method: http.MethodGet, URL: config.Render(tpl, vars)})
}

func (c *Client) do(ctx context.Context, req fetch.Request) (string, error) {
	b, err := c.exec.Execute(ctx, req)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
