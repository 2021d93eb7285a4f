package weibo

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"go-weiboapi/internal/config"
	"go-weiboapi/internal/errs"
	"go-weiboapi/internal/fetch"
	"go-weiboapi/internal/logx"
	"go-weiboapi/internal/model"
	"go-weiboapi/internal/parse"
)

// DefaultInfoDomain 为个人资料页默认 domain。
const DefaultInfoDomain = "100505"

// Stage 为一页微博的懒加载分段：第 1 段为首屏 HTML，第 2、3 段为翻页接口返回的 JSON。
type Stage int

const (
	Stage1 Stage = iota + 1
	Stage2
	Stage3
)

// Stages 为一页内的抓取顺序。
var Stages = []Stage{Stage1, Stage2, Stage3}

func (st Stage) isHTML() bool { return st == Stage1 }

// pagebar 为懒加载接口的分段参数：第 2 段为 0，第 3 段为 1。
func (st Stage) pagebar() string { return strconv.Itoa(int(st) - 2) }

// FetchPosts 抓取 uid 第 page 页的微博，依次请求三个分段；
// 某段为空或失败即停止，返回已取得的部分。domain 为空时先从主页解析。
func (c *Client) FetchPosts(ctx context.Context, uid, domain string, page int) []model.Post {
	if page < 1 {
		page = 1
	}
	if domain == "" {
		d, ok := c.ResolveDomain(ctx, uid)
		if !ok {
			return nil
		}
		domain = d
	}
	var out []model.Post
	for _, st := range Stages {
		posts, err := c.fetchStage(ctx, uid, domain, page, st)
		if err != nil {
			report(fmt.Sprintf("抓取微博 uid=%s 页=%d 段=%d", uid, page, st), err)
			return out
		}
		if len(posts) == 0 {
			logx.Debugf("微博分段为空，停止：uid=%s 页=%d 段=%d", uid, page, st)
			return out
		}
		out = append(out, posts...)
	}
	return out
}

func (c *Client) fetchStage(ctx context.Context, uid, domain string, page int, st Stage) ([]model.Post, error) {
	p := strconv.Itoa(page)
	if st.isHTML() {
		body, err := c.get(ctx, c.endpoints.Posts, map[string]string{"uid": uid, "page": p})
		if err != nil {
			return nil, err
		}
		return c.extract.Posts(body, true, false)
	}
	query := config.Fill(c.forms.Query, map[string]string{
		"domain":     domain,
		"page":       p,
		"pre_page":   p,
		"pagebar":    st.pagebar(),
		"id":         domain + uid,
		"script_uri": "/u/" + uid,
		"__rnd":      c.stamp(),
	})
	body, err := c.do(ctx, fetch.Request{URL: c.endpoints.Query, Query: query})
	if err != nil {
		return nil, err
	}
	data, err := parse.Field(body, "data")
	if err != nil {
		return nil, err
	}
	return c.extract.Posts(data, false, false)
}

// FetchPost 抓取单条微博详情页，恰好取得一条时返回。
func (c *Client) FetchPost(ctx context.Context, url string) (model.Post, bool) {
	body, err := c.do(ctx, fetch.Request{URL: url})
	if err != nil {
		report("抓取单条微博 "+url, err)
		return model.Post{}, false
	}
	posts, err := c.extract.Posts(body, true, true)
	if err != nil {
		report("抓取单条微博 "+url, err)
		return model.Post{}, false
	}
	if len(posts) != 1 {
		logx.Debugf("单条微博数量为 %d：%s", len(posts), url)
		return model.Post{}, false
	}
	return posts[0], true
}

// FetchComments 抓取 mid 的第 page 页评论。
func (c *Client) FetchComments(ctx context.Context, mid string, page int) ([]model.Comment, bool) {
	comments, err := c.fetchComments(ctx, mid, page)
	if err != nil {
		report("抓取评论 mid="+mid, err)
		return nil, false
	}
	return comments, true
}

func (c *Client) fetchComments(ctx context.Context, mid string, page int) ([]model.Comment, error) {
	if page < 1 {
		page = 1
	}
	body, err := c.get(ctx, c.endpoints.Comments, map[string]string{
		"mid":  mid,
		"page": strconv.Itoa(page),
		"rnd":  c.stamp(),
	})
	if err != nil {
		return nil, err
	}
	html, err := parse.Field(body, "data.html")
	if err != nil {
		return nil, err
	}
	return c.extract.Comments(html, mid)
}

// FetchAccount 通过名片接口获取账号信息；页面不可靠地携带 uid，结果中的 UID 总是取参数值。
func (c *Client) FetchAccount(ctx context.Context, uid string) (model.Account, bool) {
	a, err := c.fetchAccount(ctx, uid)
	if err != nil {
		report("获取名片 uid="+uid, err)
		return model.Account{}, false
	}
	return a, true
}

func (c *Client) fetchAccount(ctx context.Context, uid string) (model.Account, error) {
	body, err := c.get(ctx, c.endpoints.Namecard, map[string]string{
		"uid":      uid,
		"callback": "STK_" + c.stamp(),
	})
	if err != nil {
		return model.Account{}, err
	}
	raw, err := parse.BoundedJSON(body, parse.Call)
	if err != nil {
		return model.Account{}, err
	}
	data := gjson.Get(raw, "data")
	if !data.Exists() {
		return model.Account{}, fmt.Errorf("%w: namecard has no data", errs.ErrExtraction)
	}
	a, err := c.extract.Account(data.Raw)
	if err != nil {
		return model.Account{}, err
	}
	a.UID = uid
	return a, nil
}

// ResolveDomain 从主页配置中解析账号的 domain。
func (c *Client) ResolveDomain(ctx context.Context, uid string) (string, bool) {
	body, err := c.get(ctx, c.endpoints.Home, map[string]string{"uid": uid})
	if err == nil {
		var d string
		if d, err = c.extract.Domain(body); err == nil {
			return d, true
		}
	}
	report("解析 domain uid="+uid, err)
	return "", false
}

// FetchRelations 抓取关注（followee）或粉丝（follower）列表的第 page 页，同时返回总页数（页面无分页时为 0）。
func (c *Client) FetchRelations(ctx context.Context, uid string, page int, kind model.RelationKind) ([]model.Relation, int, bool) {
	if !kind.Valid() {
		logx.Warnf("未知关系类型：%q", kind)
		return nil, 0, false
	}
	if page < 1 {
		page = 1
	}
	tpl := c.endpoints.Followee
	if kind == model.Follower {
		tpl = c.endpoints.Follower
	}
	body, err := c.get(ctx, tpl, map[string]string{"uid": uid, "page": strconv.Itoa(page)})
	if err != nil {
		report("抓取关系 uid="+uid, err)
		return nil, 0, false
	}
	list, pages, err := c.extract.Relations(body)
	if err != nil {
		report("抓取关系 uid="+uid, err)
		return nil, 0, false
	}
	logx.Debugf("关系列表：uid=%s 类型=%s 页=%d/%d 条数=%d", uid, kind, page, pages, len(list))
	return list, pages, true
}

// FetchUserInfo 抓取个人资料页；domain 为空时使用 DefaultInfoDomain。
func (c *Client) FetchUserInfo(ctx context.Context, uid, domain string) (model.UserInfo, bool) {
	if domain == "" {
		domain = DefaultInfoDomain
	}
	body, err := c.get(ctx, c.endpoints.UserInfo, map[string]string{"uid": uid, "domain": domain})
	if err != nil {
		report("抓取资料 uid="+uid, err)
		return model.UserInfo{}, false
	}
	fields, err := c.extract.UserInfo(body)
	if err != nil {
		report("抓取资料 uid="+uid, err)
		return model.UserInfo{}, false
	}
	if len(fields) == 0 {
		logx.Debugf("资料页为空：uid=%s domain=%s", uid, domain)
		return model.UserInfo{}, false
	}
	return model.UserInfo{UID: uid, Domain: domain, Fields: fields}, true
}

// verifyMarker 为主页上认证信息区块的标记。
const verifyMarker = "verify_area"

// IsVerified 判断账号是否认证；主页请求失败时 ok 为 false。
func (c *Client) IsVerified(ctx context.Context, uid string) (verified, ok bool) {
	body, err := c.get(ctx, c.endpoints.Home, map[string]string{"uid": uid})
	if err != nil {
		report("检查认证 uid="+uid, err)
		return false, false
	}
	return strings.Contains(body, verifyMarker), true
}
