package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// value 解析选择器表达式，支持 "||" 分隔的回退方案，例如 "@tbinfo#ouid||div.WB_info a@usercard#id"。
func value(scope *goquery.Selection, expr string) string {
	for _, p := range alternatives(expr) {
		if v := valueSingle(scope, p); v != "" {
			return v
		}
	}
	return ""
}

// values 与 value 相同，但返回第一个有结果的方案下全部命中元素的取值。
func values(scope *goquery.Selection, expr string) []string {
	for _, p := range alternatives(expr) {
		sel, attr, key := split(p)
		var out []string
		target := scope
		if sel != "" {
			target = scope.Find(sel)
		}
		target.Each(func(_ int, s *goquery.Selection) {
			if v := read(s, attr, key); v != "" {
				out = append(out, v)
			}
		})
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// valueSingle 解析单个表达式：
// - "." 当前项文本；".sel" 子元素文本
// - "sel@attr" / "@attr" 属性
// - "sel@attr#key" 属性按 query string 解析后取 key（如 usercard="id=123&type=1"）
func valueSingle(scope *goquery.Selection, expr string) string {
	if expr == "" {
		return ""
	}
	if expr == "." {
		return strings.TrimSpace(scope.Text())
	}
	sel, attr, key := split(expr)
	target := scope
	if sel != "" {
		target = scope.Find(sel).First()
	}
	if target.Length() == 0 {
		return ""
	}
	return read(target, attr, key)
}

func read(s *goquery.Selection, attr, key string) string {
	if attr == "" {
		return strings.TrimSpace(s.Text())
	}
	val, _ := s.Attr(attr)
	val = strings.TrimSpace(val)
	if key == "" || val == "" {
		return val
	}
	q, err := url.ParseQuery(val)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(q.Get(key))
}

// split 将表达式拆为 选择器/属性/键；'#' 仅在 '@' 之后才表示键，避免与 id 选择器混淆。
func split(expr string) (sel, attr, key string) {
	at := strings.Index(expr, "@")
	if at == -1 {
		return strings.TrimSpace(expr), "", ""
	}
	sel = strings.TrimSpace(expr[:at])
	attr = strings.TrimSpace(expr[at+1:])
	if h := strings.Index(attr, "#"); h != -1 {
		key = strings.TrimSpace(attr[h+1:])
		attr = strings.TrimSpace(attr[:h])
	}
	return sel, attr, key
}

func alternatives(expr string) []string {
	parts := strings.Split(expr, "||")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
