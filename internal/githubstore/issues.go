package githubstore

import (
	"context"

	gh "github.com/google/go-github/v68/github"

	"guestbook-gateway/internal/guestbook"
)

func (c *Client) CreateIssue(ctx context.Context, in guestbook.NewIssue) (guestbook.Issue, error) {
	req := &gh.IssueRequest{
		Title:  gh.Ptr(in.Title),
		Body:   gh.Ptr(in.Body),
		Labels: &in.Labels,
	}
	issue, err := call(ctx, c, "create issue", func(ctx context.Context) (*gh.Issue, *gh.Response, error) {
		return c.gh.Issues.Create(ctx, c.owner, c.repo, req)
	})
	if err != nil {
		return guestbook.Issue{}, err
	}
	return toIssue(issue), nil
}

func (c *Client) CreateReaction(ctx context.Context, issue int, content string) error {
	_, err := call(ctx, c, "create reaction", func(ctx context.Context) (*gh.Reaction, *gh.Response, error) {
		return c.gh.Reactions.CreateIssueReaction(ctx, c.owner, c.repo, issue, content)
	})
	return err
}

// ReactionCount lê o resumo de reações da issue. Rótulo desconhecido conta 0.
func (c *Client) ReactionCount(ctx context.Context, issue int, content string) (int, error) {
	is, err := call(ctx, c, "get issue", func(ctx context.Context) (*gh.Issue, *gh.Response, error) {
		return c.gh.Issues.Get(ctx, c.owner, c.repo, issue)
	})
	if err != nil {
		return 0, err
	}

	r := is.GetReactions()
	switch content {
	case "+1":
		return r.GetPlusOne(), nil
	case "-1":
		return r.GetMinusOne(), nil
	case "laugh":
		return r.GetLaugh(), nil
	case "confused":
		return r.GetConfused(), nil
	case "heart":
		return r.GetHeart(), nil
	case "hooray":
		return r.GetHooray(), nil
	case "rocket":
		return r.GetRocket(), nil
	case "eyes":
		return r.GetEyes(), nil
	}
	return 0, nil
}

func (c *Client) SearchIssues(ctx context.Context, query string, perPage int) ([]guestbook.Issue, error) {
	opts := &gh.SearchOptions{
		Sort:        "created",
		Order:       "desc",
		ListOptions: gh.ListOptions{PerPage: perPage},
	}
	res, err := call(ctx, c, "search issues", func(ctx context.Context) (*gh.IssuesSearchResult, *gh.Response, error) {
		return c.gh.Search.Issues(ctx, query, opts)
	})
	if err != nil {
		return nil, err
	}

	out := make([]guestbook.Issue, 0, len(res.Issues))
	for _, is := range res.Issues {
		out = append(out, toIssue(is))
	}
	return out, nil
}

func toIssue(is *gh.Issue) guestbook.Issue {
	return guestbook.Issue{
		ID:        is.GetID(),
		Number:    is.GetNumber(),
		Title:     is.GetTitle(),
		Body:      is.GetBody(),
		URL:       is.GetHTMLURL(),
		CreatedAt: is.GetCreatedAt().Time,
	}
}
