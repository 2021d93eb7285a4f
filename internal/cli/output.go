package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jedib0t/go-pretty/v6/table"

	"go-weiboapi/internal/model"
)

// emit 以 JSON 输出 v，或调用 render 输出表格。
func (a *app) emit(v any, render func(t table.Writer)) error {
	if a.json {
		b, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("encode output: %w", err)
		}
		_, err = fmt.Fprintln(a.out, string(b))
		return err
	}
	t := table.NewWriter()
	t.SetOutputMirror(a.out)
	t.SetStyle(table.StyleRounded)
	render(t)
	t.Render()
	return nil
}

func postsTable(posts []model.Post) func(t table.Writer) {
	return func(t table.Writer) {
		t.AppendHeader(table.Row{"MID", "UID", "Created", "Text", "Media", "Repost of"})
		for _, p := range posts {
			t.AppendRow(table.Row{p.MID, p.UID, p.Created.Format(time.DateTime), truncate(p.Text, 60), len(p.Media), p.RepostOf})
		}
		t.AppendFooter(table.Row{"", "", "", "Total", len(posts)})
	}
}

func accountRows(t table.Writer, a model.Account) {
	t.AppendRow(table.Row{"UID", a.UID})
	t.AppendRow(table.Row{"Name", a.Name})
	t.AppendRow(table.Row{"Bio", optString(a.Bio)})
	t.AppendRow(table.Row{"Followees", optInt(a.Followees)})
	t.AppendRow(table.Row{"Followers", optInt(a.Followers)})
	t.AppendRow(table.Row{"Posts", optInt(a.Posts)})
	t.AppendRow(table.Row{"Verified", optBool(a.Verified)})
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

func optString(v *string) string {
	if v == nil {
		return "-"
	}
	return *v
}

func optInt(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func optBool(v *bool) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatBool(*v)
}
