// 包 model 定义抓取得到的数据模型（微博/评论/账号/关系/搜索结果/导出结构）。
package model

import "time"

// Post 为一条微博。MID/UID/Created 为必填字段，纯图片微博的 Text 可以为空。
type Post struct {
	MID      string    `json:"mid"`
	UID      string    `json:"uid"`
	Text     string    `json:"text"`
	Created  time.Time `json:"created"`
	Media    []string  `json:"media,omitempty"`     // 配图地址
	RepostOf string    `json:"repost_of,omitempty"` // 被转发微博的 mid
}

// Comment 为微博下的一条评论，顺序与页面渲染顺序一致。
type Comment struct {
	ID      string `json:"id"`
	MID     string `json:"mid"`
	UID     string `json:"uid"`
	Author  string `json:"author"`
	Text    string `json:"text"`
	Created string `json:"created"` // 平台渲染的时间文本（如 "今天 12:03"）
}

// Account 为账号名片信息。可选字段为 nil 表示页面未提供。
type Account struct {
	UID       string  `json:"uid"`
	Name      string  `json:"name"`
	Bio       *string `json:"bio,omitempty"`
	Followees *int    `json:"followees,omitempty"`
	Followers *int    `json:"followers,omitempty"`
	Posts     *int    `json:"posts,omitempty"`
	Verified  *bool   `json:"verified,omitempty"`
}

// RelationKind 区分关注与粉丝列表。
type RelationKind string

const (
	Followee RelationKind = "followee"
	Follower RelationKind = "follower"
)

// Valid 判断关系类型是否受支持。
func (k RelationKind) Valid() bool { return k == Followee || k == Follower }

// Relation 为关系列表中的一项。
type Relation struct {
	UID  string `json:"uid"`
	Name string `json:"name"`
	Sex  string `json:"sex,omitempty"`
}

// UserInfo 为个人资料页的键值信息，保持页面顺序。
type UserInfo struct {
	UID    string  `json:"uid"`
	Domain string  `json:"domain"`
	Fields []Field `json:"fields"`
}

// Field 为资料页中的一项（如 昵称/所在地/简介）。
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Get 按键名查找资料项。
func (u UserInfo) Get(key string) (string, bool) {
	for _, f := range u.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// UserHit 为用户搜索结果，Rank 从 1 开始并跨页连续。
type UserHit struct {
	Account
	Rank int `json:"rank"`
}

// PostHit 为微博搜索结果。
type PostHit struct {
	Post
	Rank int `json:"rank"`
}

// Stats 为归档统计信息。
type Stats struct {
	AccountsTotal int       `json:"accounts_total"`
	PostsTotal    int       `json:"posts_total"`
	CommentsTotal int       `json:"comments_total"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Export 为导出的 data.json 顶层结构。
type Export struct {
	Stats    Stats     `json:"stats"`
	Accounts []Account `json:"accounts"`
	Posts    []Post    `json:"posts"`
	Comments []Comment `json:"comments"`
}
