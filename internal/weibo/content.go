package weibo

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go-weiboapi/internal/config"
	"go-weiboapi/internal/errs"
	"go-weiboapi/internal/fetch"
	"go-weiboapi/internal/logx"
	"go-weiboapi/internal/parse"
)

var errNotLoggedIn = fmt.Errorf("%w: session is not authenticated", errs.ErrAuthentication)

// Post 发布一条微博，响应 code 为 100000 时返回 true。
func (c *Client) Post(ctx context.Context, s *Session, content string) bool {
	err := c.submitForm(ctx, s, c.endpoints.Post, config.Fill(c.forms.Post, map[string]string{
		"text": content,
	}))
	if err != nil {
		logx.Warnf("发微博失败：%v", err)
		return false
	}
	return true
}

// Comment 在 mid 对应的微博下发表评论。
func (c *Client) Comment(ctx context.Context, s *Session, mid, content string) bool {
	uid := ""
	if s != nil {
		uid = s.UID
	}
	err := c.submitForm(ctx, s, c.endpoints.Comment, config.Fill(c.forms.Comment, map[string]string{
		"mid":     mid,
		"uid":     uid,
		"content": content,
	}))
	if err != nil {
		logx.Warnf("评论失败：mid=%s %v", mid, err)
		return false
	}
	return true
}

func (c *Client) submitForm(ctx context.Context, s *Session, tpl string, form map[string]string) error {
	if !s.Authenticated() {
		return errNotLoggedIn
	}
	body, err := c.do(ctx, fetch.Request{
		Method:  http.MethodPost,
		URL:     config.Render(tpl, map[string]string{"rnd": c.stamp()}),
		Form:    form,
		Headers: map[string]string{"Referer": config.Render(c.endpoints.Home, map[string]string{"uid": s.UID})},
	})
	if err != nil {
		return err
	}
	if !parse.CodeOK(body) {
		code, _ := parse.Field(body, "code")
		return fmt.Errorf("%w: response code %q", errs.ErrExtraction, code)
	}
	return nil
}

// report 在方法边界按错误分类记录日志。
func report(op string, err error) {
	switch {
	case errors.Is(err, errs.ErrExtraction):
		logx.Warnf("%s：页面结构异常：%v", op, err)
	case errors.Is(err, errs.ErrTransport):
		logx.Warnf("%s：请求失败：%v", op, err)
	default:
		logx.Warnf("%s：%v", op, err)
	}
}
