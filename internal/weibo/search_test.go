package weibo

import (
	"context"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/require"
)

// pagelet 生成搜索页的 STK.pageletM.view({...}) script。
func pagelet(t *testing.T, pid, html string) string {
	t.Helper()
	b, err := sonic.MarshalString(map[string]string{"pid": pid, "html": html})
	require.NoError(t, err)
	return `<html><body><script>STK && STK.pageletM && STK.pageletM.view(` + b + `)</script></body></html>`
}

const userList = `<div class="list_person"><p class="person_name"><a uid="201" title="Fay">Fay</a></p></div>
<div class="list_person"><p class="person_name"><a uid="202" title="Gil">Gil</a></p></div>
<div class="layer_menu_list"><ul><li><a>第1页</a></li><li><a>第2页</a></li><li><a>第4页</a></li></ul></div>`

func TestSearchUsers(t *testing.T) {
	f := newFake().on("http://s.test/user/", pagelet(t, "pl_user_feedList", userList))
	c := newClient(f)

	hits, pages, ok := c.SearchUsers(context.Background(), "北京", 2, true)
	require.True(t, ok)
	require.Equal(t, 4, pages)
	require.Len(t, hits, 2)
	require.Equal(t, "201", hits[0].UID)
	require.Equal(t, SearchPageSize+1, hits[0].Rank)
	require.Equal(t, SearchPageSize+2, hits[1].Rank)
	require.Equal(t, "http://s.test/user/%25E5%258C%2597%25E4%25BA%25AC&page=2", f.requests()[0].URL)

	hits, pages, ok = c.SearchUsers(context.Background(), "北京", 0, false)
	require.True(t, ok)
	require.Zero(t, pages)
	require.Equal(t, 1, hits[0].Rank)
}

func TestSearchUsers_Failures(t *testing.T) {
	f := newFake().fail("http://s.test/user/")
	hits, pages, ok := newClient(f).SearchUsers(context.Background(), "x", 1, true)
	require.False(t, ok)
	require.Nil(t, hits)
	require.Zero(t, pages)

	f = newFake().on("http://s.test/user/", pagelet(t, "pl_user_feedList", `<div class="list_person"><p class="person_name"><a>no uid</a></p></div>`))
	_, _, ok = newClient(f).SearchUsers(context.Background(), "x", 1, true)
	require.False(t, ok)
}

func TestSearchPosts_Region(t *testing.T) {
	html := `<div action-type="feed_list_item" mid="5001"><a class="W_texta" usercard="id=301">Gus</a>` +
		`<p class="comment_txt">hit</p><div class="feed_from"><a date="1454070000000">x</a></div></div>`
	f := newFake().on("http://s.test/weibo/", pagelet(t, "pl_weibo_direct", html))
	c := newClient(f)

	hits, _, ok := c.SearchPosts(context.Background(), "go", 1, false, "11")
	require.True(t, ok)
	require.Len(t, hits, 1)
	require.Equal(t, "5001", hits[0].MID)
	require.Equal(t, 1, hits[0].Rank)
	require.Equal(t, "http://s.test/weibo/go&region=custom:11:1000&page=1", f.requests()[0].URL)

	_, _, ok = c.SearchPosts(context.Background(), "go", 3, true, "")
	require.True(t, ok)
	require.Equal(t, "http://s.test/weibo/go&page=3", f.requests()[1].URL)
}

func TestRegionParam(t *testing.T) {
	require.Empty(t, regionParam(" "))
	require.Equal(t, "&region=custom:11:1000", regionParam("11"))
	require.Equal(t, "&region=custom:44:3", regionParam("44:3"))
}
