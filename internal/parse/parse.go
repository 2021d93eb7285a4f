// 包 parse 负责把接口返回的原始文本归一化：
// - 从回调包裹（cb(...) / FM.view({...})）中取出 JSON
// - 从 script 块中取出内嵌的 html 片段
// - 按标记挑选 script、清理正文空白
package parse

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/bytedance/sonic"
	"github.com/tidwall/gjson"

	"go-weiboapi/internal/errs"
)

// OKCode 为平台成功响应的 code 字段取值。
const OKCode = "100000"

// Envelope 描述 JSON 外层包裹的起止定界符。
// 定界符中属于 JSON 本身的 '{' '[' / '}' ']' 会保留在结果里。
type Envelope struct {
	Open  string
	Close string
}

var (
	// Paren 形如 callback({...}) 的简单括号包裹（预登录、登录回调）。
	Paren = Envelope{Open: "(", Close: ")"}
	// Call 形如 FM.view({...}) 或 try{STK_1({...})}catch(e){} 的调用包裹，
	// 以 "({" 与 "})" 定界，可避开包裹之外的其它括号。
	Call = Envelope{Open: "({", Close: "})"}
)

// BoundedJSON 取第一个起始定界符与最后一个结束定界符之间的文本，并校验其为合法 JSON。
func BoundedJSON(text string, env Envelope) (string, error) {
	i := strings.Index(text, env.Open)
	j := strings.LastIndex(text, env.Close)
	if i < 0 || j < 0 || j < i+len(env.Open)-1 {
		return "", fmt.Errorf("%w: no %s...%s envelope", errs.ErrExtraction, env.Open, env.Close)
	}
	start := i + len(strings.TrimRight(env.Open, "{["))
	end := j + len(env.Close) - len(strings.TrimLeft(env.Close, "}]"))
	if end < start {
		return "", fmt.Errorf("%w: empty envelope", errs.ErrExtraction)
	}
	raw := strings.TrimSpace(text[start:end])
	if raw == "" || !gjson.Valid(raw) {
		return "", fmt.Errorf("%w: envelope is not valid json", errs.ErrExtraction)
	}
	return raw, nil
}

// LenientJSON 整段文本本身即为 JSON 时直接返回，否则按 env 取包裹内的 JSON。
func LenientJSON(text string, env Envelope) (string, error) {
	t := strings.TrimSpace(text)
	if (strings.HasPrefix(t, "{") || strings.HasPrefix(t, "[")) && gjson.Valid(t) {
		return t, nil
	}
	return BoundedJSON(text, env)
}

// Decode 取出包裹内的 JSON 并反序列化到 v。
func Decode(text string, env Envelope, v any) error {
	raw, err := BoundedJSON(text, env)
	if err != nil {
		return err
	}
	if err := sonic.UnmarshalString(raw, v); err != nil {
		return fmt.Errorf("%w: decode json: %v", errs.ErrExtraction, err)
	}
	return nil
}

// EmbeddedHTML 解析 script 中 FM.view({...}) 风格的调用，返回其 html 字段。
func EmbeddedHTML(script string) (string, error) {
	var view struct {
		HTML *string `json:"html"`
	}
	if err := Decode(script, Call, &view); err != nil {
		return "", err
	}
	if view.HTML == nil {
		return "", fmt.Errorf("%w: script view has no html field", errs.ErrExtraction)
	}
	return *view.HTML, nil
}

// Field 按 gjson 路径读取 JSON 文本中的字符串字段（如 "data" 或 "data.html"）。
func Field(text, path string) (string, error) {
	t := strings.TrimSpace(text)
	if !gjson.Valid(t) {
		return "", fmt.Errorf("%w: response is not json", errs.ErrExtraction)
	}
	r := gjson.Get(t, path)
	if !r.Exists() {
		return "", fmt.Errorf("%w: missing field %q", errs.ErrExtraction, path)
	}
	return r.String(), nil
}

// CodeOK 判断响应是否为 {"code":"100000"}；code 必须是字符串，数字 100000 不算成功。
func CodeOK(text string) bool {
	t := strings.TrimSpace(text)
	if !gjson.Valid(t) {
		return false
	}
	r := gjson.Get(t, "code")
	return r.Type == gjson.String && r.Str == OKCode
}

// RedirectURL 从登录响应中取出 location.replace('...') 的目标地址。
func RedirectURL(text string) (string, error) {
	start := strings.Index(text, "location.replace")
	end := strings.Index(text, "');})")
	if start < 0 || end < 0 || end <= start {
		return "", fmt.Errorf("%w: no location.replace call", errs.ErrExtraction)
	}
	s := text[start:end]
	i := strings.Index(s, "http")
	if i < 0 {
		return "", fmt.Errorf("%w: redirect target is not a url", errs.ErrExtraction)
	}
	return s[i:], nil
}

// Document 将 html 片段解析为 goquery 文档。
func Document(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: parse html: %v", errs.ErrExtraction, err)
	}
	return doc, nil
}

// Scripts 返回文档中全部 <script> 的文本（去除首尾空白）。
func Scripts(doc *goquery.Document) []string {
	var out []string
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		out = append(out, strings.TrimSpace(s.Text()))
	})
	return out
}

// SelectScript 返回第一个包含 flag 的 script；未命中返回 false（表示无数据，而非错误）。
func SelectScript(scripts []string, flag string) (string, bool) {
	for _, s := range scripts {
		if strings.Contains(s, flag) {
			return s, true
		}
	}
	return "", false
}

// CleanText 去首尾空白、删除 \t \r、换行转空格并合并连续空格。幂等。
func CleanText(text string) string {
	text = strings.TrimSpace(text)
	text = strings.ReplaceAll(text, "\t", "")
	text = strings.ReplaceAll(text, "\r", "")
	text = strings.ReplaceAll(text, "\n", " ")
	for strings.Contains(text, "  ") {
		text = strings.ReplaceAll(text, "  ", " ")
	}
	return text
}
