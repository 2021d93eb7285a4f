package export

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/require"

	"go-weiboapi/internal/model"
	"go-weiboapi/internal/store"
)

func readExport(t *testing.T, path string) model.Export {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var e model.Export
	require.NoError(t, sonic.Unmarshal(b, &e))
	return e
}

func TestToJSON_FromStore(t *testing.T) {
	dir := t.TempDir()
	s, err := store.OpenSQLite(filepath.Join(dir, "t.db"))
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	base := time.Unix(1454070000, 0)
	for i, mid := range []string{"a", "b", "c"} {
		require.NoError(t, s.UpsertPost(ctx, model.Post{MID: mid, UID: "1", Text: "t", Created: base.Add(time.Duration(i) * time.Minute)}))
	}
	require.NoError(t, s.UpsertAccount(ctx, model.Account{UID: "1", Name: "Alice"}))
	require.NoError(t, s.UpsertComments(ctx, []model.Comment{{ID: "c1", MID: "a", UID: "2", Text: "hi"}}))

	out := filepath.Join(dir, "data.json")
	require.NoError(t, ToJSON(ctx, s, out))
	e := readExport(t, out)
	require.Equal(t, 3, e.Stats.PostsTotal)
	require.Equal(t, 1, e.Stats.AccountsTotal)
	require.Equal(t, 1, e.Stats.CommentsTotal)
	require.Equal(t, "c", e.Posts[0].MID)
	require.Equal(t, "a", e.Posts[2].MID)
	require.Equal(t, "Alice", e.Accounts[0].Name)
	require.Equal(t, "hi", e.Comments[0].Text)
}

func TestToJSONData_EmptyListsAndStats(t *testing.T) {
	out := filepath.Join(t.TempDir(), "data.json")
	posts := []model.Post{{MID: "1", UID: "9", Created: time.Now()}, {MID: "2", UID: "9", Created: time.Now()}}
	require.NoError(t, ToJSONData(context.Background(), nil, posts, nil, out))

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Contains(t, string(b), `"accounts": []`)
	require.Contains(t, string(b), `"comments": []`)

	e := readExport(t, out)
	require.Equal(t, 2, e.Stats.PostsTotal)
	require.Zero(t, e.Stats.AccountsTotal)
}

func TestToJSONData_BadPath(t *testing.T) {
	err := ToJSONData(context.Background(), nil, nil, nil, filepath.Join(t.TempDir(), "missing", "data.json"))
	require.Error(t, err)
}
