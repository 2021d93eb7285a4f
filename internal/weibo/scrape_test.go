package weibo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"go-weiboapi/internal/fetch"
	"go-weiboapi/internal/model"
)

func TestFetchPosts_EmptyFirstStageShortCircuits(t *testing.T) {
	f := newFake().
		on("http://w.test/u/9/home", `<html><script>$CONFIG={};</script></html>`).
		on("http://w.test/aj/mbloglist", dataJSON(t, feedItem("1")))
	posts := newClient(f).FetchPosts(context.Background(), "9", "100505", 1)
	require.Empty(t, posts)
	require.Len(t, f.requests(), 1)
}

func TestFetchPosts_ThreeStages(t *testing.T) {
	f := newFake()
	f.on("http://w.test/u/9/home", view(t, "Pl_Official_MyProfileFeed__21", feedItem("1")+feedItem("2")))
	f.handle("http://w.test/aj/mbloglist", func(req fetch.Request) (string, error) {
		if req.Query["pagebar"] == "0" {
			return dataJSON(t, feedItem("3")), nil
		}
		return dataJSON(t, feedItem("4")+feedItem("5")), nil
	})
	posts := newClient(f).FetchPosts(context.Background(), "9", "100505", 2)

	var mids []string
	for _, p := range posts {
		mids = append(mids, p.MID)
	}
	require.Equal(t, []string{"1", "2", "3", "4", "5"}, mids)

	calls := f.requests()
	require.Len(t, calls, 3)
	require.Equal(t, "http://w.test/u/9/home?page=2", calls[0].URL)
	for i, bar := range []string{"0", "1"} {
		q := calls[i+1].Query
		require.Equal(t, bar, q["pagebar"])
		require.Equal(t, "2", q["page"])
		require.Equal(t, "2", q["pre_page"])
		require.Equal(t, "100505", q["domain"])
		require.Equal(t, "1005059", q["id"])
		require.Equal(t, "/u/9", q["script_uri"])
		require.Equal(t, "data", q["mod"])
	}
}

func TestFetchPosts_StopsOnEmptyOrBrokenStage(t *testing.T) {
	f := newFake().
		on("http://w.test/u/9/home", view(t, "Pl_Official_MyProfileFeed__21", feedItem("1"))).
		on("http://w.test/aj/mbloglist", dataJSON(t, ""))
	posts := newClient(f).FetchPosts(context.Background(), "9", "100505", 1)
	require.Len(t, posts, 1)
	require.Len(t, f.requests(), 2)

	f.on("http://w.test/aj/mbloglist", `{"code":"100000","data":"<div action-type=\"feed_list_item\" mid=\"7\"></div>"}`)
	posts = newClient(f).FetchPosts(context.Background(), "9", "100505", 1)
	require.Len(t, posts, 1)

	f.fail("http://w.test/aj/mbloglist")
	posts = newClient(f).FetchPosts(context.Background(), "9", "100505", 1)
	require.Len(t, posts, 1)
}

func TestFetchPosts_ResolvesDomain(t *testing.T) {
	f := newFake().
		on("http://w.test/home/9", `<script>$CONFIG['domain']='100306';</script>`).
		on("http://w.test/u/9/home", view(t, "Pl_Official_MyProfileFeed__21", feedItem("1"))).
		on("http://w.test/aj/mbloglist", dataJSON(t, ""))
	posts := newClient(f).FetchPosts(context.Background(), "9", "", 1)
	require.Len(t, posts, 1)
	calls := f.requests()
	require.Len(t, calls, 3)
	require.Equal(t, "100306", calls[2].Query["domain"])

	f = newFake().fail("http://w.test/home/9")
	require.Nil(t, newClient(f).FetchPosts(context.Background(), "9", "", 1))
	require.Len(t, f.requests(), 1)
}

func TestFetchPost_Single(t *testing.T) {
	url := "http://w.test/9/Dd1"
	f := newFake().on(url, view(t, "Pl_Official_WeiboDetail__58", feedItem("88")))
	p, ok := newClient(f).FetchPost(context.Background(), url)
	require.True(t, ok)
	require.Equal(t, "88", p.MID)
	require.Equal(t, "post 88", p.Text)

	f = newFake().on(url, view(t, "Pl_Official_WeiboDetail__58", feedItem("88")+feedItem("89")))
	_, ok = newClient(f).FetchPost(context.Background(), url)
	require.False(t, ok)

	f = newFake().on(url, `<html></html>`)
	_, ok = newClient(f).FetchPost(context.Background(), url)
	require.False(t, ok)
}

func TestFetchComments(t *testing.T) {
	html := `<div class="list_li" comment_id="9001"><div class="WB_text"><a usercard="id=777">Bob</a>：nice</div><div class="WB_from">今天 12:03</div></div>`
	f := newFake().on("http://w.test/aj/comment/big", dataJSON(t, map[string]string{"html": html}))
	got, ok := newClient(f).FetchComments(context.Background(), "4001", 0)
	require.True(t, ok)
	require.Equal(t, []model.Comment{{ID: "9001", MID: "4001", UID: "777", Author: "Bob", Text: "nice", Created: "今天 12:03"}}, got)
	require.Equal(t, "http://w.test/aj/comment/big?id=4001&page=1&__rnd=1700000000000", f.requests()[0].URL)

	f = newFake().on("http://w.test/aj/comment/big", `{"code":"100000","data":{}}`)
	_, ok = newClient(f).FetchComments(context.Background(), "4001", 1)
	require.False(t, ok)

	f = newFake().fail("http://w.test/aj/comment/big")
	_, ok = newClient(f).FetchComments(context.Background(), "4001", 1)
	require.False(t, ok)
}

func TestFetchAccount_InjectsUID(t *testing.T) {
	f := newFake().on("http://w.test/aj/newcard", `try{STK_1700000000000({"data":{"name":"Alice"}})}catch(e){}`)
	a, ok := newClient(f).FetchAccount(context.Background(), "555")
	require.True(t, ok)
	require.Equal(t, "555", a.UID)
	require.Equal(t, "Alice", a.Name)
	require.Nil(t, a.Bio)
	require.Equal(t, "http://w.test/aj/newcard?id=555&call_back=STK_1700000000000", f.requests()[0].URL)

	f = newFake().on("http://w.test/aj/newcard", `try{STK_1({"code":"100000","data":{"name":"Alice","id":"999"}})}catch(e){}`)
	a, ok = newClient(f).FetchAccount(context.Background(), "555")
	require.True(t, ok)
	require.Equal(t, "555", a.UID)
}

func TestFetchAccount_Failures(t *testing.T) {
	for _, body := range []string{
		`try{STK_1({"code":"100000"})}catch(e){}`,
		`try{STK_1({"data":{"bio":"x"}})}catch(e){}`,
		`try{STK_1({"data":`,
		`<html>login required</html>`,
	} {
		f := newFake().on("http://w.test/aj/newcard", body)
		_, ok := newClient(f).FetchAccount(context.Background(), "555")
		require.False(t, ok, body)
	}
}

func TestIsVerified(t *testing.T) {
	f := newFake().on("http://w.test/home/1", `<div class="verify_area W_tog_hover">`)
	verified, ok := newClient(f).IsVerified(context.Background(), "1")
	require.True(t, ok)
	require.True(t, verified)

	f = newFake().on("http://w.test/home/1", `<div class="PCD_person_info">`)
	verified, ok = newClient(f).IsVerified(context.Background(), "1")
	require.True(t, ok)
	require.False(t, verified)

	f = newFake().fail("http://w.test/home/1")
	_, ok = newClient(f).IsVerified(context.Background(), "1")
	require.False(t, ok)
}

func TestFetchRelations(t *testing.T) {
	html := `<ul><li class="follow_item" action-data="uid=111&fnick=Dan&sex=m"></li></ul>`
	paged := html + `<div class="W_pages"><a class="page S_txt1">1</a><a class="page S_txt1">3</a></div>`
	f := newFake().
		on("http://w.test/9/follow", view(t, "Pl_Official_HisRelation__60", html)).
		on("http://w.test/9/fans", view(t, "Pl_Official_HisRelation__61", paged))
	c := newClient(f)

	rels, pages, ok := c.FetchRelations(context.Background(), "9", 2, model.Follower)
	require.True(t, ok)
	require.Equal(t, []model.Relation{{UID: "111", Name: "Dan", Sex: "m"}}, rels)
	require.Equal(t, 3, pages)
	require.Equal(t, "http://w.test/9/fans?page=2", f.requests()[0].URL)

	_, pages, ok = c.FetchRelations(context.Background(), "9", 1, model.Followee)
	require.True(t, ok)
	require.Zero(t, pages)
	require.Equal(t, "http://w.test/9/follow?page=1", f.requests()[1].URL)

	_, _, ok = c.FetchRelations(context.Background(), "9", 1, "friends")
	require.False(t, ok)
	require.Len(t, f.requests(), 2)
}

func TestFetchUserInfo_DefaultDomain(t *testing.T) {
	html := `<ul><li class="li_1"><span class="pt_title">昵称：</span><span class="pt_detail">Alice</span></li></ul>`
	f := newFake().on("http://w.test/p/", view(t, "Pl_Official_PersonalInfo__62", html))
	info, ok := newClient(f).FetchUserInfo(context.Background(), "9", "")
	require.True(t, ok)
	require.Equal(t, "http://w.test/p/1005059/info", f.requests()[0].URL)
	require.Equal(t, DefaultInfoDomain, info.Domain)
	name, found := info.Get("昵称")
	require.True(t, found)
	require.Equal(t, "Alice", name)

	f = newFake().on("http://w.test/p/", `<html></html>`)
	_, ok = newClient(f).FetchUserInfo(context.Background(), "9", "100306")
	require.False(t, ok)
}

func TestStagePagebar(t *testing.T) {
	require.True(t, Stage1.isHTML())
	require.False(t, Stage2.isHTML())
	require.Equal(t, "0", Stage2.pagebar())
	require.Equal(t, "1", Stage3.pagebar())
}
