package weibo

import (
	"context"
	"strconv"
	"strings"

	"go-weiboapi/internal/codec"
	"go-weiboapi/internal/model"
)

// SearchPageSize 为搜索结果每页条数，用于计算跨页连续的 Rank。
const SearchPageSize = 20

// SearchUsers 按关键词搜索用户。wantPageCount 为真时同时返回总页数，否则页数为 0。
func (c *Client) SearchUsers(ctx context.Context, word string, page int, wantPageCount bool) ([]model.UserHit, int, bool) {
	page = max(page, 1)
	body, err := c.get(ctx, c.endpoints.SearchUser, map[string]string{
		"word": searchWord(word),
		"page": strconv.Itoa(page),
	})
	if err != nil {
		report("搜索用户 "+word, err)
		return nil, 0, false
	}
	hits, pages, err := c.extract.SearchUsers(body, (page-1)*SearchPageSize)
	if err != nil {
		report("搜索用户 "+word, err)
		return nil, 0, false
	}
	if !wantPageCount {
		pages = 0
	}
	return hits, pages, true
}

// SearchPosts 按关键词搜索微博，region 为省份代码（如 "11"）或 "省:市"，空串表示不限地区。
func (c *Client) SearchPosts(ctx context.Context, word string, page int, wantPageCount bool, region string) ([]model.PostHit, int, bool) {
	page = max(page, 1)
	body, err := c.get(ctx, c.endpoints.SearchPost, map[string]string{
		"word":   searchWord(word),
		"region": regionParam(region),
		"page":   strconv.Itoa(page),
	})
	if err != nil {
		report("搜索微博 "+word, err)
		return nil, 0, false
	}
	hits, pages, err := c.extract.SearchPosts(body, (page-1)*SearchPageSize)
	if err != nil {
		report("搜索微博 "+word, err)
		return nil, 0, false
	}
	if !wantPageCount {
		pages = 0
	}
	return hits, pages, true
}

// searchWord 搜索页路径中的关键词需要两次百分号编码。
func searchWord(word string) string {
	return codec.Quote(codec.Quote(strings.TrimSpace(word)))
}

func regionParam(region string) string {
	region = strings.TrimSpace(region)
	if region == "" {
		return ""
	}
	if !strings.Contains(region, ":") {
		region += ":1000"
	}
	return "&region=custom:" + region
}
