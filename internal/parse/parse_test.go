package parse

import (
	"errors"
	"testing"
	"testing/quick"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/require"

	"go-weiboapi/internal/errs"
)

func TestBoundedJSON_RoundTrip(t *testing.T) {
	objects := []map[string]any{
		{"servertime": "1000", "nonce": "abc"},
		{"nested": map[string]any{"list": []any{"a", "b"}, "n": float64(3)}},
		{"text": "has (parens) and })"},
		{},
	}
	for _, obj := range objects {
		b, err := sonic.Marshal(obj)
		require.NoError(t, err)
		for _, env := range []Envelope{Paren, Call} {
			wrapped := "XXX(" + string(b) + ")"
			raw, err := BoundedJSON(wrapped, env)
			require.NoError(t, err, wrapped)
			var got map[string]any
			require.NoError(t, sonic.UnmarshalString(raw, &got))
			require.Equal(t, obj, got)
		}
	}
}

func TestBoundedJSON_CallEnvelopeIgnoresOuterParens(t *testing.T) {
	text := `try{STK_1454070000123({"code":"100000","data":{"name":"Alice"}})}catch(e){}`
	_, err := BoundedJSON(text, Paren)
	require.Error(t, err)
	raw, err := BoundedJSON(text, Call)
	require.NoError(t, err)
	name, err := Field(raw, "data.name")
	require.NoError(t, err)
	require.Equal(t, "Alice", name)
}

func TestBoundedJSON_Errors(t *testing.T) {
	for _, text := range []string{"", "no envelope", "cb()", "cb({not json})", ")("} {
		_, err := BoundedJSON(text, Paren)
		require.True(t, errors.Is(err, errs.ErrExtraction), text)
	}
}

func TestLenientJSON(t *testing.T) {
	raw, err := LenientJSON(` {"result":true} `, Paren)
	require.NoError(t, err)
	require.Equal(t, `{"result":true}`, raw)

	raw, err = LenientJSON(`feedBackUrlCallBack({"result":false});`, Paren)
	require.NoError(t, err)
	require.Equal(t, `{"result":false}`, raw)
}

func TestEmbeddedHTML(t *testing.T) {
	html, err := EmbeddedHTML(`FM.view({"ns":"pl.content","domid":"Pl_Official_MyProfileFeed__21","html":"<div class=\"x\">hi</div>"})`)
	require.NoError(t, err)
	require.Equal(t, `<div class="x">hi</div>`, html)

	_, err = EmbeddedHTML(`FM.view({"ns":"pl.content"})`)
	require.True(t, errors.Is(err, errs.ErrExtraction))

	_, err = EmbeddedHTML(`FM.view(`)
	require.True(t, errors.Is(err, errs.ErrExtraction))
}

func TestSelectScript(t *testing.T) {
	doc, err := Document(`<html><script>var a = 1;</script><script> FM.view({"domid":"Pl_Official_MyProfileFeed__21","html":""}) </script></html>`)
	require.NoError(t, err)
	scripts := Scripts(doc)
	require.Len(t, scripts, 2)

	s, ok := SelectScript(scripts, "Pl_Official_MyProfileFeed")
	require.True(t, ok)
	require.Contains(t, s, "FM.view")

	_, ok = SelectScript(scripts, "Pl_Official_HisRelation")
	require.False(t, ok)
}

func TestCleanText(t *testing.T) {
	cases := map[string]string{
		"  hello\tworld \r\n":      "helloworld",
		"line1\nline2":             "line1 line2",
		"a   b":                    "a b",
		"a \n b":                   "a b",
		"\t\t":                     "",
		"转发微博 \n\n //@某人: 内容": "转发微博 //@某人: 内容",
	}
	for in, want := range cases {
		require.Equal(t, want, CleanText(in), "%q", in)
	}
}

func TestCleanText_Idempotent(t *testing.T) {
	f := func(s string) bool { return CleanText(CleanText(s)) == CleanText(s) }
	require.NoError(t, quick.Check(f, &quick.Config{MaxCount: 2000}))
	for _, s := range []string{" \t \n \r x  \n\n  y\t ", "\n \n", "a\r\n\r\nb"} {
		require.True(t, f(s), "%q", s)
	}
}

func TestRedirectURL(t *testing.T) {
	u, err := RedirectURL(`<script>location.replace('http://x/y');})</script>`)
	require.NoError(t, err)
	require.Equal(t, "http://x/y", u)

	u, err = RedirectURL(`try{sinaSSOController.setCrossDomainUrlList({});}catch(e){}location.replace('https://passport.weibo.com/wbsso/login?ticket=ST-1');});`)
	require.NoError(t, err)
	require.Equal(t, "https://passport.weibo.com/wbsso/login?ticket=ST-1", u)

	for _, text := range []string{"", "location.replace('');})", "no redirect here"} {
		_, err := RedirectURL(text)
		require.True(t, errors.Is(err, errs.ErrExtraction), text)
	}
}

func TestCodeOK(t *testing.T) {
	require.True(t, CodeOK(`{"code":"100000"}`))
	require.False(t, CodeOK(`{"code":"100001"}`))
	require.False(t, CodeOK(`{"msg":"x"}`))
	require.False(t, CodeOK(`<html>`))
	require.False(t, CodeOK(`{"code":100000}`))
	require.True(t, CodeOK(` {"code":"100000","data":{}} `))
}
