// 包 fetch 是请求执行器：基于 resty 封装代理/超时/重试/Cookie 会话，
// 统一返回解码后的响应体（GBK/GB18030 页面转为 UTF-8）。
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/text/encoding/simplifiedchinese"

	"go-weiboapi/internal/errs"
)

const defaultUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// Request 描述一次请求；URL 中的模板占位符需已替换。
// Form 非空且未指定 Method 时按 POST 表单提交。
type Request struct {
	Method  string
	URL     string
	Query   map[string]string
	Form    map[string]string
	Headers map[string]string
}

// Client 为带 Cookie 会话与重试的 HTTP 客户端，同一实例内的请求共享登录态。
type Client struct {
	http *resty.Client
}

// Options 为客户端构造参数。
type Options struct {
	ProxyHTTP  string
	ProxyHTTPS string
	Timeout    time.Duration
	Retry      int // 仅对 GET 生效，提交类请求不重试
	UserAgent  string
	Headers    map[string]string
}

// New 创建客户端，支持 http/https 代理、超时与浏览器请求头。
func New(opts Options) (*Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	transport := &http.Transport{
		Proxy: func(req *http.Request) (*url.URL, error) {
			if req.URL.Scheme == "https" && opts.ProxyHTTPS != "" {
				return url.Parse(opts.ProxyHTTPS)
			}
			if req.URL.Scheme == "http" && opts.ProxyHTTP != "" {
				return url.Parse(opts.ProxyHTTP)
			}
			return http.ProxyFromEnvironment(req)
		},
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	// 环境变量 WEIBO_UA 优先于配置
	ua := os.Getenv("WEIBO_UA")
	if ua == "" {
		ua = opts.UserAgent
	}
	if ua == "" {
		ua = defaultUA
	}
	rc := resty.New().
		SetTransport(transport).
		SetCookieJar(jar).
		SetTimeout(opts.Timeout).
		SetRetryCount(max(0, opts.Retry)).
		SetRetryWaitTime(300 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("User-Agent", ua)
	for k, v := range opts.Headers {
		rc.SetHeader(k, v)
	}
	rc.AddRetryCondition(func(r *resty.Response, err error) bool {
		if r == nil || r.Request == nil || r.Request.Method != http.MethodGet {
			return false
		}
		return err != nil || r.StatusCode() >= http.StatusInternalServerError
	})
	return &Client{http: rc}, nil
}

// Execute 发送请求并返回响应体；传输错误与非 2xx 状态均包装为 errs.ErrTransport。
func (c *Client) Execute(ctx context.Context, req Request) ([]byte, error) {
	r := c.http.R().SetContext(ctx)
	if len(req.Query) > 0 {
		r.SetQueryParams(req.Query)
	}
	if len(req.Headers) > 0 {
		r.SetHeaders(req.Headers)
	}
	method := strings.ToUpper(req.Method)
	if req.Form != nil {
		r.SetFormData(req.Form)
		if method == "" {
			method = http.MethodPost
		}
	}
	if method == "" {
		method = http.MethodGet
	}
	res, err := r.Execute(method, req.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", errs.ErrTransport, method, req.URL, err)
	}
	if res.IsError() || res.StatusCode() < 200 || res.StatusCode() >= 300 {
		return nil, fmt.Errorf("%w: %s %s: http status %s", errs.ErrTransport, method, req.URL, res.Status())
	}
	return decode(res.Body(), res.Header().Get("Content-Type")), nil
}

// Get 是 Execute 的 GET 简写。
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	return c.Execute(ctx, Request{Method: http.MethodGet, URL: rawURL})
}

// Cookies 返回会话中发往 rawURL 的 Cookie（调试登录态用）。
func (c *Client) Cookies(rawURL string) []*http.Cookie {
	u, err := url.Parse(rawURL)
	if err != nil || c.http.GetClient().Jar == nil {
		return nil
	}
	return c.http.GetClient().Jar.Cookies(u)
}

// decode 将 GBK/GB2312/GB18030 响应转为 UTF-8；先看 Content-Type，再看页面头部的 meta charset。
func decode(body []byte, contentType string) []byte {
	if !isGBK(contentType) {
		head := body
		if len(head) > 1024 {
			head = head[:1024]
		}
		if !isGBK(string(bytes.ToLower(head))) {
			return body
		}
	}
	out, err := simplifiedchinese.GB18030.NewDecoder().Bytes(body)
	if err != nil {
		return body
	}
	return out
}

func isGBK(s string) bool {
	s = strings.ToLower(s)
	for _, cs := range []string{"charset=gbk", "charset=gb2312", "charset=gb18030", `charset="gbk"`, `charset="gb2312"`} {
		if strings.Contains(s, cs) {
			return true
		}
	}
	return false
}
