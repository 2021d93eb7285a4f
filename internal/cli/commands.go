package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"go-weiboapi/internal/model"
)

func loginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Logs in with the configured account and prints the user id.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.login(cmd.Context())
			if err != nil {
				return err
			}
			return a.emit(map[string]string{"uid": s.UID}, func(t table.Writer) {
				t.AppendHeader(table.Row{"UID", "State"})
				t.AppendRow(table.Row{s.UID, s.State})
			})
		},
	}
}

func postCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "post <content>",
		Short: "Logs in and publishes a post.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.login(cmd.Context())
			if err != nil {
				return err
			}
			if !a.client.Post(cmd.Context(), s, args[0]) {
				return fmt.Errorf("post: %w", errNoData)
			}
			fmt.Fprintln(a.out, "ok")
			return nil
		},
	}
}

func commentCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "comment <mid> <content>",
		Short: "Logs in and comments on a post.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.login(cmd.Context())
			if err != nil {
				return err
			}
			if !a.client.Comment(cmd.Context(), s, args[0], args[1]) {
				return fmt.Errorf("comment: %w", errNoData)
			}
			fmt.Fprintln(a.out, "ok")
			return nil
		},
	}
}

func postsCmd(a *app) *cobra.Command {
	var domain string
	var page int
	cmd := &cobra.Command{
		Use:   "posts <uid>",
		Short: "Fetches one page of an account's posts (all three lazy-loaded chunks).",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.authenticate(cmd.Context()); err != nil {
				return err
			}
			posts := a.client.FetchPosts(cmd.Context(), args[0], domain, page)
			if len(posts) == 0 {
				return fmt.Errorf("posts of %s page %d: %w", args[0], page, errNoData)
			}
			return a.emit(posts, postsTable(posts))
		},
	}
	cmd.Flags().StringVar(&domain, "domain", "", "account domain (resolved from the homepage when empty)")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	return cmd
}

func showCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <url>",
		Short: "Fetches a single post by its page url.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.authenticate(cmd.Context()); err != nil {
				return err
			}
			p, ok := a.client.FetchPost(cmd.Context(), args[0])
			if !ok {
				return fmt.Errorf("post %s: %w", args[0], errNoData)
			}
			return a.emit(p, postsTable([]model.Post{p}))
		},
	}
}

func commentsCmd(a *app) *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "comments <mid>",
		Short: "Fetches one page of comments of a post.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.authenticate(cmd.Context()); err != nil {
				return err
			}
			list, ok := a.client.FetchComments(cmd.Context(), args[0], page)
			if !ok {
				return fmt.Errorf("comments of %s: %w", args[0], errNoData)
			}
			return a.emit(list, func(t table.Writer) {
				t.AppendHeader(table.Row{"ID", "UID", "Author", "Created", "Text"})
				for _, c := range list {
					t.AppendRow(table.Row{c.ID, c.UID, c.Author, c.Created, truncate(c.Text, 60)})
				}
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	return cmd
}

func accountCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "account <uid>",
		Short: "Fetches an account's namecard.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.authenticate(cmd.Context()); err != nil {
				return err
			}
			acc, ok := a.client.FetchAccount(cmd.Context(), args[0])
			if !ok {
				return fmt.Errorf("account %s: %w", args[0], errNoData)
			}
			return a.emit(acc, func(t table.Writer) { accountRows(t, acc) })
		},
	}
}

func domainCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "domain <uid>",
		Short: "Resolves an account's domain from its homepage.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.authenticate(cmd.Context()); err != nil {
				return err
			}
			d, ok := a.client.ResolveDomain(cmd.Context(), args[0])
			if !ok {
				return fmt.Errorf("domain of %s: %w", args[0], errNoData)
			}
			return a.emit(map[string]string{"uid": args[0], "domain": d}, func(t table.Writer) {
				t.AppendHeader(table.Row{"UID", "Domain"})
				t.AppendRow(table.Row{args[0], d})
			})
		},
	}
}

func relationsCmd(a *app) *cobra.Command {
	var kind string
	var page int
	cmd := &cobra.Command{
		Use:   "relations <uid>",
		Short: "Fetches one page of an account's followees or followers.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k := model.RelationKind(kind)
			if !k.Valid() {
				return fmt.Errorf("--kind must be %q or %q", model.Followee, model.Follower)
			}
			if err := a.authenticate(cmd.Context()); err != nil {
				return err
			}
			list, pages, ok := a.client.FetchRelations(cmd.Context(), args[0], page, k)
			if !ok {
				return fmt.Errorf("%ss of %s: %w", kind, args[0], errNoData)
			}
			return a.emit(map[string]any{"relations": list, "pages": pages}, func(t table.Writer) {
				t.AppendHeader(table.Row{"UID", "Name", "Sex"})
				for _, r := range list {
					t.AppendRow(table.Row{r.UID, r.Name, r.Sex})
				}
				t.AppendFooter(table.Row{"", "Pages", pages})
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(model.Followee), "followee or follower")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	return cmd
}

func infoCmd(a *app) *cobra.Command {
	var domain string
	cmd := &cobra.Command{
		Use:   "info <uid>",
		Short: "Fetches the profile information page of an account.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.authenticate(cmd.Context()); err != nil {
				return err
			}
			info, ok := a.client.FetchUserInfo(cmd.Context(), args[0], domain)
			if !ok {
				return fmt.Errorf("info of %s: %w", args[0], errNoData)
			}
			return a.emit(info, func(t table.Writer) {
				t.AppendHeader(table.Row{"Key", "Value"})
				for _, f := range info.Fields {
					t.AppendRow(table.Row{f.Key, f.Value})
				}
			})
		},
	}
	cmd.Flags().StringVar(&domain, "domain", "", "profile domain (default 100505)")
	return cmd
}

func verifiedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verified <uid>",
		Short: "Checks whether an account is verified.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.authenticate(cmd.Context()); err != nil {
				return err
			}
			v, ok := a.client.IsVerified(cmd.Context(), args[0])
			if !ok {
				return fmt.Errorf("homepage of %s: %w", args[0], errNoData)
			}
			return a.emit(map[string]any{"uid": args[0], "verified": v}, func(t table.Writer) {
				t.AppendHeader(table.Row{"UID", "Verified"})
				t.AppendRow(table.Row{args[0], strconv.FormatBool(v)})
			})
		},
	}
}

func searchUsersCmd(a *app) *cobra.Command {
	var page int
	var count bool
	cmd := &cobra.Command{
		Use:   "search-users <word>",
		Short: "Searches accounts by keyword.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.authenticate(cmd.Context()); err != nil {
				return err
			}
			hits, pages, ok := a.client.SearchUsers(cmd.Context(), args[0], page, count)
			if !ok {
				return fmt.Errorf("search users %q: %w", args[0], errNoData)
			}
			return a.emit(map[string]any{"hits": hits, "pages": pages}, func(t table.Writer) {
				t.AppendHeader(table.Row{"#", "UID", "Name", "Bio"})
				for _, h := range hits {
					t.AppendRow(table.Row{h.Rank, h.UID, h.Name, truncate(optString(h.Bio), 40)})
				}
				if count {
					t.AppendFooter(table.Row{"", "", "Pages", pages})
				}
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().BoolVar(&count, "pages", false, "also report the total page count")
	return cmd
}

func searchPostsCmd(a *app) *cobra.Command {
	var page int
	var count bool
	var region string
	cmd := &cobra.Command{
		Use:   "search-posts <word>",
		Short: "Searches posts by keyword, optionally within a region.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.authenticate(cmd.Context()); err != nil {
				return err
			}
			hits, pages, ok := a.client.SearchPosts(cmd.Context(), args[0], page, count, region)
			if !ok {
				return fmt.Errorf("search posts %q: %w", args[0], errNoData)
			}
			return a.emit(map[string]any{"hits": hits, "pages": pages}, func(t table.Writer) {
				t.AppendHeader(table.Row{"#", "MID", "UID", "Created", "Text"})
				for _, h := range hits {
					t.AppendRow(table.Row{h.Rank, h.MID, h.UID, h.Created.Format(time.DateTime), truncate(h.Text, 60)})
				}
				if count {
					t.AppendFooter(table.Row{"", "", "", "Pages", pages})
				}
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().BoolVar(&count, "pages", false, "also report the total page count")
	cmd.Flags().StringVar(&region, "region", "", "province code, or province:city (e.g. 11 or 11:1000)")
	return cmd
}
