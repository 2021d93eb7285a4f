// 包 cli 提供命令行入口：每个平台能力一个子命令，另有 archive/export 批量归档。
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"go-weiboapi/internal/config"
	"go-weiboapi/internal/fetch"
	"go-weiboapi/internal/logx"
	"go-weiboapi/internal/rules"
	"go-weiboapi/internal/weibo"
)

// errNoData 表示操作未取得结果（平台返回空或请求/解析失败，详见日志）。
var errNoData = errors.New("no data")

// app 为子命令共享的运行环境，在 PersistentPreRunE 中构建。
type app struct {
	cfg     *config.Config
	http    *fetch.Client
	client  *weibo.Client
	session *weibo.Session
	out     io.Writer
	json    bool
}

type rootOptions struct {
	configPath string
	rulesPath  string
	preset     string
	json       bool
}

// NewRootCmd 构建完整命令树。
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	a := &app{}
	root := &cobra.Command{
		Use:           "weiboapi",
		Short:         "weiboapi logs in to Sina Weibo and scrapes posts, comments, profiles and search results.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd, opts)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "path to settings.yaml (default: ./settings.yaml or $XDG_CONFIG_HOME/weiboapi/settings.yaml)")
	pf.StringVar(&opts.rulesPath, "rules", "rules.yaml", "path to rules.yaml (optional)")
	pf.StringVar(&opts.preset, "preset", "", "rules preset name")
	pf.BoolVar(&opts.json, "json", false, "print results as JSON instead of tables")

	root.AddCommand(
		loginCmd(a), postCmd(a), commentCmd(a),
		postsCmd(a), showCmd(a), commentsCmd(a), accountCmd(a), domainCmd(a),
		relationsCmd(a), infoCmd(a), verifiedCmd(a),
		searchUsersCmd(a), searchPostsCmd(a),
		archiveCmd(a), exportCmd(a),
	)
	return root
}

// Execute 运行命令行并返回执行错误，由调用方决定退出码。
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func (a *app) setup(cmd *cobra.Command, opts *rootOptions) error {
	cfg := config.Default()
	if path := config.Resolve(opts.configPath); path != "" {
		c, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = c
	}
	logx.Init(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat, cfg.LogLocale, cfg.LogColor)

	var rl *rules.Rules
	if opts.rulesPath != "" {
		if _, err := os.Stat(opts.rulesPath); err == nil {
			r, err := rules.Load(opts.rulesPath)
			if err != nil {
				logx.Warnf("加载规则失败，使用内置规则：%v", err)
			} else {
				rl = r
			}
		}
	}

	cl, err := fetch.New(fetch.Options{
		ProxyHTTP:  cfg.HTTP.Proxy.HTTP,
		ProxyHTTPS: cfg.HTTP.Proxy.HTTPS,
		Timeout:    cfg.HTTP.TimeoutDuration(),
		Retry:      cfg.HTTP.Retry,
		UserAgent:  cfg.HTTP.UserAgent,
		Headers:    cfg.HTTP.Headers,
	})
	if err != nil {
		return fmt.Errorf("http client: %w", err)
	}
	a.cfg = cfg
	a.http = cl
	a.client = weibo.New(cl, cfg.Endpoints, cfg.Forms, rl.GetPreset(opts.preset))
	a.out = cmd.OutOrStdout()
	a.json = opts.json
	return nil
}

// login 使用配置中的账号登录，Cookie 保存在同一个 HTTP 客户端中；一次运行只登录一次。
func (a *app) login(ctx context.Context) (*weibo.Session, error) {
	if a.session.Authenticated() {
		return a.session, nil
	}
	if !a.hasAccount() {
		return nil, errors.New("ACCOUNT.username/password (or WEIBO_USERNAME/WEIBO_PASSWORD) required")
	}
	s, ok := a.client.Login(ctx, a.cfg.Account.Username, a.cfg.Account.Password)
	if !ok {
		return nil, errors.New("login failed")
	}
	a.session = s
	return s, nil
}

// authenticate 在读取类命令前调用：配置了账号时先登录，否则以未登录身份继续。
func (a *app) authenticate(ctx context.Context) error {
	if !a.hasAccount() {
		logx.Debugf("未配置账号，以未登录状态请求")
		return nil
	}
	_, err := a.login(ctx)
	return err
}

func (a *app) hasAccount() bool {
	return a.cfg.Account.Username != "" && a.cfg.Account.Password != ""
}
