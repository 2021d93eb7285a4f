// 包 rules 负责加载并提供页面解析规则（rules.yaml），
// 以预设名组织各类页面的 script 标记与 CSS 选择器；
// 平台改版时只需调整 rules.yaml，未配置的字段回退到内置默认值。
package rules

import (
	"fmt"
	"io"
	"os"
	"strings"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Rules 表示全部规则集合：键为预设名，值为具体规则。
type Rules struct {
	Presets map[string]Preset `yaml:",inline"`
}

// Preset 为单个预设的解析规则集合。
// 选择器表达式语法见 extract 包：".sel"、"sel@attr"、"sel@attr#key"，"||" 分隔回退方案。
type Preset struct {
	Feed       Feed       `yaml:"feed"`
	Comment    Comment    `yaml:"comment"`
	Namecard   Namecard   `yaml:"namecard"`
	Relation   Relation   `yaml:"relation"`
	Profile    Profile    `yaml:"profile"`
	SearchUser SearchUser `yaml:"search_user"`
	SearchPost SearchPost `yaml:"search_post"`
}

// Feed 描述微博列表：
// - flag/single_flag：首屏 HTML 中承载列表/单条微博的 script 标记
// - item：每条微博容器；其余为字段表达式
type Feed struct {
	Flag       string `yaml:"flag"`
	SingleFlag string `yaml:"single_flag"`
	Item       string `yaml:"item"`
	MID        string `yaml:"mid"`
	UID        string `yaml:"uid"`
	Text       string `yaml:"text"`
	Date       string `yaml:"date"`
	Media      string `yaml:"media"`
	Repost     string `yaml:"repost"`
}

// Comment 描述评论列表。
type Comment struct {
	Item    string `yaml:"item"`
	ID      string `yaml:"id"`
	UID     string `yaml:"uid"`
	Author  string `yaml:"author"`
	Text    string `yaml:"text"`
	Created string `yaml:"created"`
}

// Namecard 描述 HTML 形式的名片；verified 为存在性选择器。
type Namecard struct {
	Name      string `yaml:"name"`
	Bio       string `yaml:"bio"`
	Followees string `yaml:"followees"`
	Followers string `yaml:"followers"`
	Posts     string `yaml:"posts"`
	Verified  string `yaml:"verified"`
}

// Relation 描述关注/粉丝列表页。
type Relation struct {
	Flag  string `yaml:"flag"`
	Item  string `yaml:"item"`
	UID   string `yaml:"uid"`
	Name  string `yaml:"name"`
	Sex   string `yaml:"sex"`
	Pages string `yaml:"pages"`
}

// Profile 描述个人资料页（键值列表）。
type Profile struct {
	Flag  string `yaml:"flag"`
	Item  string `yaml:"item"`
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

// SearchUser 描述用户搜索结果页。
type SearchUser struct {
	Flag  string `yaml:"flag"`
	Item  string `yaml:"item"`
	UID   string `yaml:"uid"`
	Name  string `yaml:"name"`
	Bio   string `yaml:"bio"`
	Pages string `yaml:"pages"`
}

// SearchPost 描述微博搜索结果页，条目字段沿用 Feed 的表达式。
type SearchPost struct {
	Flag  string `yaml:"flag"`
	Pages string `yaml:"pages"`
	Post  Feed   `yaml:"post"`
}

// Default 返回内置预设（v6 网页版）。
func Default() Preset {
	return Preset{
		Feed: Feed{
			Flag:       "Pl_Official_MyProfileFeed",
			SingleFlag: "Pl_Official_WeiboDetail",
			Item:       `div[action-type="feed_list_item"][mid]`,
			MID:        "@mid",
			UID:        "@tbinfo#ouid||div.WB_info a@usercard#id",
			Text:       `div.WB_detail > div.WB_text||div.WB_text`,
			Date:       "div.WB_detail > div.WB_from a[date]@date||div.WB_from a[date]@date",
			Media:      "div.WB_detail > div.WB_media_wrap img@src",
			Repost:     "@omid",
		},
		Comment: Comment{
			Item:    "div.list_li[comment_id]",
			ID:      "@comment_id",
			UID:     "div.WB_text a[usercard]@usercard#id",
			Author:  "div.WB_text a[usercard]",
			Text:    "div.WB_text",
			Created: "div.WB_from",
		},
		Namecard: Namecard{
			Name:      "div.name a@title||div.name a",
			Bio:       "div.intro||div.info_intro",
			Followees: "div.count li:nth-child(1) em",
			Followers: "div.count li:nth-child(2) em",
			Posts:     "div.count li:nth-child(3) em",
			Verified:  "i.icon_approve, i.icon_approve_co, i.W_icon_approve",
		},
		Relation: Relation{
			Flag:  "Pl_Official_HisRelation||Pl_Official_RelationMyfollow",
			Item:  "li.follow_item",
			UID:   "@action-data#uid",
			Name:  "@action-data#fnick||dt.mod_pic img@alt",
			Sex:   "@action-data#sex",
			Pages: "div.W_pages a.page",
		},
		Profile: Profile{
			Flag:  "Pl_Official_PersonalInfo",
			Item:  "li.li_1",
			Key:   "span.pt_title",
			Value: "span.pt_detail",
		},
		SearchUser: SearchUser{
			Flag:  "pl_user_feedList",
			Item:  "div.list_person",
			UID:   "p.person_name a@uid||a[uid]@uid",
			Name:  "p.person_name a@title||p.person_name a",
			Bio:   "div.person_info p.person_card||p.person_info",
			Pages: "div.layer_menu_list li",
		},
		SearchPost: SearchPost{
			Flag:  "pl_weibo_direct",
			Pages: "div.layer_menu_list li",
			Post: Feed{
				Item:   `div[action-type="feed_list_item"][mid]`,
				MID:    "@mid",
				UID:    "a.W_texta@usercard#id||a.name@usercard#id",
				Text:   "p.comment_txt||p.txt",
				Date:   "div.feed_from a[date]@date||a[node-type=\"feed_list_item_date\"]@date",
				Media:  "div.media_box img@src",
				Repost: "@omid",
			},
		},
	}
}

func Load(path string) (*Rules, error) {
	// 从文件加载 YAML 到 Rules.Presets
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rules %s: %w", path, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	var r Rules
	if err := yaml.Unmarshal(b, &r.Presets); err != nil {
		return nil, fmt.Errorf("unmarshal rules %s: %w", path, err)
	}
	return &r, nil
}

// GetPreset 按名称获取预设（不区分大小写），为空或不存在时回退到 "default"；
// 返回值已用内置默认值补齐未配置的字段。没有任何可用预设时返回 Default()。
func (r *Rules) GetPreset(name string) Preset {
	p, ok := r.lookup(name)
	if !ok {
		return Default()
	}
	if err := mergo.Merge(&p, Default()); err != nil {
		return Default()
	}
	return p
}

func (r *Rules) lookup(name string) (Preset, bool) {
	if r == nil || len(r.Presets) == 0 {
		return Preset{}, false
	}
	if name == "" {
		name = "default"
	}
	if p, ok := r.Presets[name]; ok {
		return p, true
	}
	lower := strings.ToLower(name)
	for k, v := range r.Presets {
		if strings.ToLower(k) == lower {
			return v, true
		}
	}
	if p, ok := r.Presets["default"]; ok {
		return p, true
	}
	return Preset{}, false
}
