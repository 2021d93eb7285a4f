// 包 extract 把页面片段转换为类型化记录（微博/评论/账号/关系/资料/搜索结果）。
//
// 约定：
// - 找不到承载数据的 script 或容器：返回空结果与 nil 错误（"空"）
// - 包裹格式错误或某条记录缺少必填字段：返回 errs.ErrExtraction（"坏"），不返回残缺记录
// 调用方据此区分"账号确实没有内容"与"页面结构已变化"，两者都会终止翻页。
package extract

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"

	"go-weiboapi/internal/errs"
	"go-weiboapi/internal/model"
	"go-weiboapi/internal/parse"
	"go-weiboapi/internal/rules"
)

// Extractor 持有解析规则与大图地址模板（含 {pic} 占位符）。
type Extractor struct {
	rules    rules.Preset
	imageURL string
}

// New 创建 Extractor。
func New(p rules.Preset, imageURL string) *Extractor {
	return &Extractor{rules: p, imageURL: imageURL}
}

// Posts 抽取微博列表。
// isHTML 为真时输入为首屏完整 HTML，需要先按 flag 找到 script 再取内嵌 html；
// 否则输入为翻页接口返回的 html 片段。single 用于单条微博详情页。
func (e *Extractor) Posts(doc string, isHTML, single bool) ([]model.Post, error) {
	html := doc
	if isHTML {
		flag := e.rules.Feed.Flag
		if single {
			flag = e.rules.Feed.SingleFlag
		}
		var ok bool
		var err error
		html, ok, err = scriptHTML(doc, flag)
		if err != nil || !ok {
			return nil, err
		}
	}
	return e.feed(html, e.rules.Feed)
}

func (e *Extractor) feed(html string, f rules.Feed) ([]model.Post, error) {
	if strings.TrimSpace(html) == "" {
		return nil, nil
	}
	d, err := parse.Document(html)
	if err != nil {
		return nil, err
	}
	var out []model.Post
	var bad error
	d.Find(f.Item).EachWithBreak(func(i int, s *goquery.Selection) bool {
		p, err := e.post(s, f)
		if err != nil {
			bad = fmt.Errorf("post #%d: %w", i, err)
			return false
		}
		out = append(out, p)
		return true
	})
	if bad != nil {
		return nil, bad
	}
	return out, nil
}

func (e *Extractor) post(s *goquery.Selection, f rules.Feed) (model.Post, error) {
	p := model.Post{
		MID:      value(s, f.MID),
		UID:      value(s, f.UID),
		Text:     parse.CleanText(value(s, f.Text)),
		RepostOf: value(s, f.Repost),
	}
	if p.MID == "" || p.UID == "" {
		return model.Post{}, fmt.Errorf("%w: missing mid or uid", errs.ErrExtraction)
	}
	created, err := parseMillis(value(s, f.Date))
	if err != nil {
		return model.Post{}, fmt.Errorf("%w: mid %s: %v", errs.ErrExtraction, p.MID, err)
	}
	p.Created = created
	for _, src := range values(s, f.Media) {
		p.Media = append(p.Media, e.picURL(src))
	}
	return p, nil
}

// Comments 抽取评论列表，mid 为所属微博，由调用方传入。
func (e *Extractor) Comments(html, mid string) ([]model.Comment, error) {
	if strings.TrimSpace(html) == "" {
		return nil, nil
	}
	d, err := parse.Document(html)
	if err != nil {
		return nil, err
	}
	r := e.rules.Comment
	var out []model.Comment
	var bad error
	d.Find(r.Item).EachWithBreak(func(i int, s *goquery.Selection) bool {
		c := model.Comment{
			ID:      value(s, r.ID),
			MID:     mid,
			UID:     value(s, r.UID),
			Author:  value(s, r.Author),
			Created: parse.CleanText(value(s, r.Created)),
		}
		c.Text = stripAuthor(parse.CleanText(value(s, r.Text)), c.Author)
		// 纯表情评论正文可能为空，只要求 id 与 uid
		if c.ID == "" || c.UID == "" {
			bad = fmt.Errorf("%w: comment #%d missing id or uid", errs.ErrExtraction, i)
			return false
		}
		out = append(out, c)
		return true
	})
	if bad != nil {
		return nil, bad
	}
	return out, nil
}

// stripAuthor 去掉评论正文前的 "昵称：" 前缀。
func stripAuthor(text, author string) string {
	if author == "" || !strings.HasPrefix(text, author) {
		return text
	}
	rest := strings.TrimPrefix(text, author)
	rest = strings.TrimLeft(rest, " ")
	rest = strings.TrimPrefix(rest, "：")
	rest = strings.TrimPrefix(rest, ":")
	return strings.TrimSpace(rest)
}

// Account 从名片接口的 data 字段（原始 JSON）抽取账号：
// data 为对象时按键名读取，为字符串时视作名片 HTML。缺失的可选字段保持 nil。
func (e *Extractor) Account(data string) (model.Account, error) {
	r := gjson.Parse(data)
	switch {
	case r.IsObject():
		return accountFromJSON(r)
	case r.Type == gjson.String:
		return e.accountFromHTML(r.String())
	default:
		return model.Account{}, fmt.Errorf("%w: namecard data is neither object nor html", errs.ErrExtraction)
	}
}

func accountFromJSON(r gjson.Result) (model.Account, error) {
	a := model.Account{
		UID:  first(r, "id", "uid", "idstr").String(),
		Name: strings.TrimSpace(first(r, "name", "screen_name", "nick").String()),
	}
	if a.Name == "" {
		return model.Account{}, fmt.Errorf("%w: namecard has no name", errs.ErrExtraction)
	}
	if v := first(r, "description", "bio", "intro"); v.Exists() {
		s := parse.CleanText(v.String())
		a.Bio = &s
	}
	a.Followees = optCount(first(r, "follow_count", "friends_count"))
	a.Followers = optCount(first(r, "followers_count", "fans_count"))
	a.Posts = optCount(first(r, "statuses_count", "weibo_count"))
	if v := first(r, "verified"); v.Exists() {
		b := v.Bool()
		a.Verified = &b
	}
	return a, nil
}

func (e *Extractor) accountFromHTML(html string) (model.Account, error) {
	d, err := parse.Document(html)
	if err != nil {
		return model.Account{}, err
	}
	r := e.rules.Namecard
	root := d.Selection
	a := model.Account{Name: value(root, r.Name)}
	if a.Name == "" {
		return model.Account{}, fmt.Errorf("%w: namecard has no name", errs.ErrExtraction)
	}
	if bio := parse.CleanText(value(root, r.Bio)); bio != "" {
		a.Bio = &bio
	}
	a.Followees = parseCount(value(root, r.Followees))
	a.Followers = parseCount(value(root, r.Followers))
	a.Posts = parseCount(value(root, r.Posts))
	verified := d.Find(r.Verified).Length() > 0
	a.Verified = &verified
	return a, nil
}

var (
	domainPattern = regexp.MustCompile(`\$CONFIG\[['"]domain['"]\]\s*=\s*['"]([^'"]+)['"]`)
	pageIDPattern = regexp.MustCompile(`\$CONFIG\[['"]page_id['"]\]\s*=\s*['"](\d{6})\d*['"]`)
)

// Domain 从主页 $CONFIG 中取出 domain；缺失时用 page_id 的前 6 位。
func (e *Extractor) Domain(page string) (string, error) {
	if m := domainPattern.FindStringSubmatch(page); m != nil {
		return m[1], nil
	}
	if m := pageIDPattern.FindStringSubmatch(page); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("%w: no domain in homepage config", errs.ErrExtraction)
}

// Relations 抽取关注/粉丝列表，并返回总页数（未找到分页时为 0）。
func (e *Extractor) Relations(page string) ([]model.Relation, int, error) {
	r := e.rules.Relation
	html, ok, err := scriptHTML(page, r.Flag)
	if err != nil || !ok {
		return nil, 0, err
	}
	d, err := parse.Document(html)
	if err != nil {
		return nil, 0, err
	}
	var out []model.Relation
	var bad error
	d.Find(r.Item).EachWithBreak(func(i int, s *goquery.Selection) bool {
		rel := model.Relation{UID: value(s, r.UID), Name: value(s, r.Name), Sex: value(s, r.Sex)}
		if rel.UID == "" || rel.Name == "" {
			bad = fmt.Errorf("%w: relation #%d missing uid or name", errs.ErrExtraction, i)
			return false
		}
		out = append(out, rel)
		return true
	})
	if bad != nil {
		return nil, 0, bad
	}
	return out, pageCount(d.Selection, r.Pages), nil
}

// UserInfo 抽取资料页的键值项，保持页面顺序。
func (e *Extractor) UserInfo(page string) ([]model.Field, error) {
	r := e.rules.Profile
	html, ok, err := scriptHTML(page, r.Flag)
	if err != nil || !ok {
		return nil, err
	}
	d, err := parse.Document(html)
	if err != nil {
		return nil, err
	}
	var out []model.Field
	d.Find(r.Item).Each(func(_ int, s *goquery.Selection) {
		k := strings.TrimRight(parse.CleanText(value(s, r.Key)), "：:")
		if k == "" {
			return
		}
		out = append(out, model.Field{Key: k, Value: parse.CleanText(value(s, r.Value))})
	})
	return out, nil
}

// SearchUsers 抽取用户搜索结果；offset 为之前页面已有的条数，用于连续编号。
func (e *Extractor) SearchUsers(page string, offset int) ([]model.UserHit, int, error) {
	r := e.rules.SearchUser
	html, ok, err := scriptHTML(page, r.Flag)
	if err != nil || !ok {
		return nil, 0, err
	}
	d, err := parse.Document(html)
	if err != nil {
		return nil, 0, err
	}
	var out []model.UserHit
	var bad error
	d.Find(r.Item).EachWithBreak(func(i int, s *goquery.Selection) bool {
		hit := model.UserHit{Rank: offset + i + 1}
		hit.UID = value(s, r.UID)
		hit.Name = value(s, r.Name)
		if hit.UID == "" || hit.Name == "" {
			bad = fmt.Errorf("%w: user hit #%d missing uid or name", errs.ErrExtraction, i)
			return false
		}
		if bio := parse.CleanText(value(s, r.Bio)); bio != "" {
			hit.Bio = &bio
		}
		out = append(out, hit)
		return true
	})
	if bad != nil {
		return nil, 0, bad
	}
	return out, pageCount(d.Selection, r.Pages), nil
}

// SearchPosts 抽取微博搜索结果。
func (e *Extractor) SearchPosts(page string, offset int) ([]model.PostHit, int, error) {
	r := e.rules.SearchPost
	html, ok, err := scriptHTML(page, r.Flag)
	if err != nil || !ok {
		return nil, 0, err
	}
	posts, err := e.feed(html, r.Post)
	if err != nil {
		return nil, 0, err
	}
	out := make([]model.PostHit, 0, len(posts))
	for i, p := range posts {
		out = append(out, model.PostHit{Post: p, Rank: offset + i + 1})
	}
	d, err := parse.Document(html)
	if err != nil {
		return nil, 0, err
	}
	return out, pageCount(d.Selection, r.Pages), nil
}

// scriptHTML 在整页 HTML 中按 flag（支持 "||" 多个候选）找到 script 并取出内嵌 html。
// 未找到 script 时 ok 为 false。
func scriptHTML(page, flag string) (html string, ok bool, err error) {
	d, err := parse.Document(page)
	if err != nil {
		return "", false, err
	}
	scripts := parse.Scripts(d)
	for _, f := range alternatives(flag) {
		s, found := parse.SelectScript(scripts, f)
		if !found {
			continue
		}
		h, err := parse.EmbeddedHTML(s)
		if err != nil {
			return "", false, err
		}
		return h, true, nil
	}
	return "", false, nil
}

// pageCount 取分页元素文本中的最大数字；元素不含数字时以元素个数计。
func pageCount(scope *goquery.Selection, sel string) int {
	if sel == "" {
		return 0
	}
	items := scope.Find(sel)
	maxN := 0
	items.Each(func(_ int, s *goquery.Selection) {
		if n, err := strconv.Atoi(digits(s.Text())); err == nil && n > maxN {
			maxN = n
		}
	})
	if maxN == 0 {
		return items.Length()
	}
	return maxN
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (e *Extractor) picURL(src string) string {
	if i := strings.IndexAny(src, "?#"); i >= 0 {
		src = src[:i]
	}
	if e.imageURL != "" {
		if i := strings.LastIndex(src, "/"); i >= 0 && i < len(src)-1 {
			return strings.ReplaceAll(e.imageURL, "{pic}", src[i+1:])
		}
	}
	if strings.HasPrefix(src, "//") {
		return "http:" + src
	}
	return src
}

func parseMillis(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}, fmt.Errorf("bad timestamp %q", s)
	}
	return time.UnixMilli(ms), nil
}

// parseCount 解析计数文本，支持 "1.5万"、"2亿" 与千分位；无法解析时返回 nil。
func parseCount(s string) *int {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return nil
	}
	mul := 1.0
	switch {
	case strings.HasSuffix(s, "万"):
		mul, s = 1e4, strings.TrimSuffix(s, "万")
	case strings.HasSuffix(s, "亿"):
		mul, s = 1e8, strings.TrimSuffix(s, "亿")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	n := int(math.Round(f * mul))
	return &n
}

func optCount(r gjson.Result) *int {
	if !r.Exists() {
		return nil
	}
	if r.Type == gjson.Number {
		n := int(r.Int())
		return &n
	}
	return parseCount(r.String())
}

// first 返回第一个存在的键。
func first(r gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if v := r.Get(k); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}
