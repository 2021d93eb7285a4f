// 包 config 负责加载与校验应用配置（settings.yaml），
// 对外提供结构体 Config、接口地址/表单模板的默认值与模板渲染。
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// FileName 为默认配置文件名；XDG 目录下位于 weiboapi/settings.yaml。
const FileName = "settings.yaml"

type Config struct {
	Account      Account   `yaml:"ACCOUNT"`
	HTTP         HTTP      `yaml:"HTTP"`
	Endpoints    Endpoints `yaml:"ENDPOINTS"`
	Forms        Forms     `yaml:"FORMS"`
	Database     Database  `yaml:"DATABASE"`
	Archive      Archive   `yaml:"ARCHIVE"`
	SimpleMode   bool      `yaml:"SIMPLE_MODE"`
	ResetOnStart bool      `yaml:"RESET_ON_START"`
	LogLevel     string    `yaml:"LOG_LEVEL"`
	LogFormat    string    `yaml:"LOG_FORMAT"` // text|json|pretty
	LogLocale    string    `yaml:"LOG_LOCALE"` // zh-CN|en
	LogColor     string    `yaml:"LOG_COLOR"`  // auto|always|never
}

// Account 为登录账号；环境变量 WEIBO_USERNAME / WEIBO_PASSWORD 优先。
type Account struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type HTTP struct {
	Timeout   int               `yaml:"timeout"` // 秒
	Retry     int               `yaml:"retry"`   // 仅 GET
	UserAgent string            `yaml:"user_agent"`
	Headers   map[string]string `yaml:"headers"`
	Proxy     Proxy             `yaml:"proxy"`
}

type Proxy struct {
	HTTP  string `yaml:"http"`
	HTTPS string `yaml:"https"`
}

// Endpoints 为接口地址模板，占位符形如 {uid}，由 Render 替换。
type Endpoints struct {
	Prelogin   string `yaml:"prelogin"`    // {username} {rnd}
	Login      string `yaml:"login"`       //
	Session    string `yaml:"session"`     // 登录前的统计信标
	Post       string `yaml:"post"`        // {rnd}
	Comment    string `yaml:"comment"`     // {rnd}
	Posts      string `yaml:"posts"`       // {uid} {page}，首屏
	Query      string `yaml:"query"`       // 翻页懒加载接口
	Namecard   string `yaml:"namecard"`    // {uid} {callback}
	Comments   string `yaml:"comments"`    // {mid} {page} {rnd}
	Followee   string `yaml:"followee"`    // {uid} {page}
	Follower   string `yaml:"follower"`    // {uid} {page}
	UserInfo   string `yaml:"user_info"`   // {domain} {uid}
	SearchUser string `yaml:"search_user"` // {word} {page}
	SearchPost string `yaml:"search_post"` // {word} {region} {page}
	Home       string `yaml:"home"`        // {uid}
	Image      string `yaml:"image"`       // {pic}
}

// Forms 为各提交表单的默认字段，调用时按需覆盖。
type Forms struct {
	Login   map[string]string `yaml:"login"`
	Post    map[string]string `yaml:"post"`
	Comment map[string]string `yaml:"comment"`
	Query   map[string]string `yaml:"query"`
}

type Database struct {
	Type string `yaml:"type"` // sqlite (default)
	DSN  string `yaml:"dsn"`  // ./weibo.db
}

// Archive 为批量归档任务参数。
type Archive struct {
	UIDs        []string `yaml:"uids"`
	Pages       int      `yaml:"pages"`
	Comments    bool     `yaml:"comments"` // 是否抓取每条微博第一页评论
	Concurrency int      `yaml:"concurrency"`
	CleanDays   int      `yaml:"outdate_clean"` // 清理早于该天数的微博，0 表示不清理
}

// DefaultEndpoints 返回内置接口地址模板。
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Prelogin: "http://login.sina.com.cn/sso/prelogin.php?entry=weibo" +
			"&callback=sinaSSOController.preloginCallBack&su={username}&rsakt=mod" +
			"&client=ssologin.js(v1.4.11)&_={rnd}",
		Login: "http://login.sina.com.cn/sso/login.php?client=ssologin.js(v1.4.4.11)",
		Session: "http://beacon.sina.com.cn/e.gif?UATrack||300805596634.7456.1392949880014" +
			"||7143980532418.937.1396334858970||||tblog_weibologin3||click_sign||" +
			"http%3A//www.hao123.com/||javascript%3Avoid%280%29||||WEIBO-V5:&gUid_1396343431857",
		Post:       "http://weibo.com/aj/mblog/add?ajwvr=6&__rnd={rnd}",
		Comment:    "http://weibo.com/aj/v6/comment/add?ajwvr=6&__rnd={rnd}",
		Posts:      "http://weibo.com/u/{uid}/home?wvr=6&page={page}&is_all=1",
		Query:      "http://weibo.com/p/aj/v6/mblog/mbloglist",
		Namecard:   "http://weibo.com/aj/v6/user/newcard?ajwvr=6&id={uid}&type=1&call_back={callback}",
		Comments:   "http://weibo.com/aj/v6/comment/big?ajwvr=6&id={mid}&max_id=&page={page}&__rnd={rnd}",
		Followee:   "http://weibo.com/{uid}/follow?rightmod=1&wvr=6&page={page}",
		Follower:   "http://weibo.com/{uid}/fans?rightmod=1&wvr=6&page={page}",
		UserInfo:   "http://weibo.com/p/{domain}{uid}/info",
		SearchUser: "http://s.weibo.com/user/{word}&page={page}",
		SearchPost: "http://s.weibo.com/weibo/{word}{region}&page={page}",
		Home:       "http://weibo.com/u/{uid}/home",
		Image:      "http://ww3.sinaimg.cn/bmiddle/{pic}",
	}
}

// DefaultForms 返回内置表单字段。
func DefaultForms() Forms {
	return Forms{
		Login: map[string]string{
			"entry":      "weibo",
			"gateway":    "1",
			"from":       "",
			"savestate":  "7",
			"useticket":  "1",
			"pagerefer":  "http://login.sina.com.cn/sso/logout.php?entry=miniblog&r=http%3A%2F%2Fweibo.com%2Flogout.php%3Fbackurl%3D%252F",
			"vsnf":       "1",
			"su":         "",
			"service":    "miniblog",
			"servertime": "",
			"nonce":      "",
			"pwencode":   "rsa2",
			"rsakv":      "",
			"sp":         "",
			"encoding":   "UTF-8",
			"prelt":      "273",
			"url":        "http://weibo.com/ajaxlogin.php?framelogin=1&callback=parent.sinaSSOController.feedBackUrlCallBack",
			"returntype": "META",
		},
		Post: map[string]string{
			"location":   "v6_content_home",
			"appkey":     "",
			"style_type": "1",
			"pic_id":     "",
			"text":       "",
			"pdetail":    "",
			"rank":       "0",
			"rankid":     "",
			"module":     "stissue",
			"pub_source": "main_",
			"pub_type":   "dialog",
			"_t":         "0",
		},
		Comment: map[string]string{
			"act":          "post",
			"mid":          "",
			"uid":          "",
			"rid":          "",
			"forward":      "0",
			"isroot":       "0",
			"content":      "",
			"location":     "v6_content_home",
			"module":       "scommlist",
			"group_source": "group_all",
			"pdetail":      "",
			"_t":           "0",
		},
		Query: map[string]string{
			"domain":          "",
			"is_all":          "1",
			"ajwvr":           "6",
			"wvr":             "6",
			"pre_page":        "",
			"page":            "",
			"max_id":          "",
			"end_id":          "",
			"pagebar":         "",
			"max_msign":       "",
			"filtered_min_id": "",
			"pl_name":         "",
			"id":              "",
			"script_uri":      "",
			"feed_type":       "0",
			"is_search":       "0",
			"from":            "",
			"mod":             "data",
			"domain_op":       "",
			"__rnd":           "",
		},
	}
}

// Default 返回仅含默认值的配置（未找到配置文件时使用）。
func Default() *Config {
	c := &Config{}
	_ = c.Validate()
	return c
}

// Resolve 确定配置文件路径：显式路径优先，其次当前目录，再次 XDG 配置目录；
// 都不存在时返回空串，调用方使用 Default。
func Resolve(path string) string {
	if path != "" {
		return path
	}
	if _, err := os.Stat(FileName); err == nil {
		return FileName
	}
	if p, err := xdg.SearchConfigFile("weiboapi/" + FileName); err == nil {
		return p
	}
	return ""
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("unmarshal config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// Validate 负责合法性检查与默认值设置，避免在业务层分散判空逻辑。
// 用户配置的模板与表单字段优先，缺失部分由内置默认值补齐。
func (c *Config) Validate() error {
	if err := mergo.Merge(&c.Endpoints, DefaultEndpoints()); err != nil {
		return fmt.Errorf("merge endpoints: %w", err)
	}
	if err := mergo.Merge(&c.Forms, DefaultForms()); err != nil {
		return fmt.Errorf("merge forms: %w", err)
	}
	if err := mergo.Merge(&c.HTTP.Headers, map[string]string{
		"Accept-Language": "zh-CN,zh;q=0.8",
		"Referer":         "http://weibo.com",
	}); err != nil {
		return fmt.Errorf("merge headers: %w", err)
	}
	if u := os.Getenv("WEIBO_USERNAME"); u != "" {
		c.Account.Username = u
	}
	if p := os.Getenv("WEIBO_PASSWORD"); p != "" {
		c.Account.Password = p
	}
	if c.HTTP.Timeout < 0 {
		return errors.New("HTTP.timeout must be >= 0")
	}
	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = 20
	}
	if c.HTTP.Retry < 0 {
		return errors.New("HTTP.retry must be >= 0")
	}
	if c.Archive.Pages < 0 {
		return errors.New("ARCHIVE.pages must be >= 0")
	}
	if c.Archive.Pages == 0 {
		c.Archive.Pages = 1
	}
	if c.Archive.CleanDays < 0 {
		return errors.New("ARCHIVE.outdate_clean must be >= 0")
	}
	if c.Archive.Concurrency <= 0 {
		c.Archive.Concurrency = 4
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.Type != "sqlite" {
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}
	if c.Database.DSN == "" {
		c.Database.DSN = "./weibo.db"
	}
	if c.LogFormat == "" {
		c.LogFormat = "pretty"
	}
	if c.LogLocale == "" {
		c.LogLocale = "zh-CN"
	}
	if c.LogColor == "" {
		c.LogColor = "auto"
	}
	return nil
}

// TimeoutDuration 返回请求超时。
func (h HTTP) TimeoutDuration() time.Duration { return time.Duration(h.Timeout) * time.Second }

// Render 用 vars 替换模板中的 {key} 占位符；未提供的占位符原样保留。
func Render(tpl string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tpl)
}

// Fill 复制表单模板并覆盖指定字段，不修改模板本身。
func Fill(form map[string]string, overrides map[string]string) map[string]string {
	out := make(map[string]string, len(form)+len(overrides))
	for k, v := range form {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}
