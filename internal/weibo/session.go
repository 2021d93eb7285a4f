package weibo

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"

	"go-weiboapi/internal/codec"
	"go-weiboapi/internal/config"
	"go-weiboapi/internal/errs"
	"go-weiboapi/internal/fetch"
	"go-weiboapi/internal/logx"
	"go-weiboapi/internal/parse"
)

// State 为登录状态机的状态。
type State int

const (
	Idle State = iota
	PreloginFetched
	SessionTouched
	LoginSubmitted
	RedirectFollowed
	Authenticated
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case PreloginFetched:
		return "prelogin_fetched"
	case SessionTouched:
		return "session_touched"
	case LoginSubmitted:
		return "login_submitted"
	case RedirectFollowed:
		return "redirect_followed"
	case Authenticated:
		return "authenticated"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Session 为一次登录的会话参数。预登录写入前四项，登录成功后写入 UID。
// 每次登录使用独立的 Session，互不影响。
type Session struct {
	ServerTime string
	Nonce      string
	PublicKey  string // 十六进制模数
	RSAKV      string
	UID        string
	State      State
}

// Authenticated 判断会话是否已登录。
func (s *Session) Authenticated() bool {
	return s != nil && s.State == Authenticated && s.UID != ""
}

// Login 完成整个登录握手：预登录 → 信标 → 提交加密表单 → 跟随跳转。
// 任一步失败都记录当时所处状态并返回 (nil, false)。
func (c *Client) Login(ctx context.Context, username, password string) (*Session, bool) {
	s := &Session{}
	if err := c.login(ctx, s, username, password); err != nil {
		logx.Warnf("登录失败：用户=%s 状态=%s 错误=%v", username, s.State, err)
		s.State = Failed
		return nil, false
	}
	logx.Infof("登录成功：uid=%s", s.UID)
	return s, true
}

func (c *Client) login(ctx context.Context, s *Session, username, password string) error {
	if err := c.prelogin(ctx, s, username); err != nil {
		return err
	}
	s.State = PreloginFetched
	if err := c.touch(ctx); err != nil {
		return err
	}
	s.State = SessionTouched
	target, err := c.submit(ctx, s, username, password)
	if err != nil {
		return err
	}
	s.State = LoginSubmitted
	uid, err := c.follow(ctx, target)
	if err != nil {
		return err
	}
	s.State = RedirectFollowed
	s.UID = uid
	s.State = Authenticated
	return nil
}

// prelogin 获取 servertime/nonce/pubkey/rsakv；四项齐全时才写入会话。
func (c *Client) prelogin(ctx context.Context, s *Session, username string) error {
	body, err := c.get(ctx, c.endpoints.Prelogin, map[string]string{
		"username": codec.QuoteBase64(username),
		"rnd":      c.stamp(),
	})
	if err != nil {
		return fmt.Errorf("prelogin: %w", err)
	}
	raw, err := parse.LenientJSON(body, parse.Paren)
	if err != nil {
		return fmt.Errorf("prelogin: %w", err)
	}
	keys := []string{"servertime", "nonce", "pubkey", "rsakv"}
	vals := gjson.GetMany(raw, keys...)
	for i, v := range vals {
		if !v.Exists() || v.String() == "" {
			return fmt.Errorf("prelogin: %w: missing %s", errs.ErrExtraction, keys[i])
		}
	}
	s.ServerTime = vals[0].String()
	s.Nonce = vals[1].String()
	s.PublicKey = vals[2].String()
	s.RSAKV = vals[3].String()
	return nil
}

// touch 请求统计信标，只关心是否成功。
func (c *Client) touch(ctx context.Context) error {
	if _, err := c.get(ctx, c.endpoints.Session, nil); err != nil {
		return fmt.Errorf("session beacon: %w", err)
	}
	return nil
}

// submit 加密密码并提交登录表单，返回响应中 location.replace 的跳转地址。
func (c *Client) submit(ctx context.Context, s *Session, username, password string) (string, error) {
	sp, err := codec.EncryptPassword(password, s.ServerTime, s.Nonce, codec.PublicKey{Modulus: s.PublicKey, Version: s.RSAKV})
	if err != nil {
		return "", fmt.Errorf("login form: %w", err)
	}
	form := config.Fill(c.forms.Login, map[string]string{
		"su":         codec.Base64Quoted(username),
		"servertime": s.ServerTime,
		"nonce":      s.Nonce,
		"rsakv":      s.RSAKV,
		"sp":         sp,
	})
	body, err := c.do(ctx, fetch.Request{Method: http.MethodPost, URL: c.endpoints.Login, Form: form})
	if err != nil {
		return "", fmt.Errorf("login form: %w", err)
	}
	target, err := parse.RedirectURL(body)
	if err != nil {
		return "", fmt.Errorf("login form: %w", err)
	}
	return target, nil
}

// follow 请求跳转地址，result 为真时返回 userinfo.uniqueid。
func (c *Client) follow(ctx context.Context, target string) (string, error) {
	body, err := c.do(ctx, fetch.Request{Method: http.MethodGet, URL: target})
	if err != nil {
		return "", fmt.Errorf("login redirect: %w", err)
	}
	raw, err := parse.LenientJSON(body, parse.Paren)
	if err != nil {
		return "", fmt.Errorf("login redirect: %w", err)
	}
	if !gjson.Get(raw, "result").Bool() {
		reason := gjson.Get(raw, "reason").String()
		return "", fmt.Errorf("%w: login rejected %s", errs.ErrAuthentication, reason)
	}
	uid := gjson.Get(raw, "userinfo.uniqueid").String()
	if uid == "" {
		return "", fmt.Errorf("%w: login result has no uniqueid", errs.ErrAuthentication)
	}
	return uid, nil
}
