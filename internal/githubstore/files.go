package githubstore

import (
	"context"
	"net/url"

	gh "github.com/google/go-github/v68/github"

	"guestbook-gateway/internal/guestbook"
)

const rawBaseURL = "https://raw.githubusercontent.com/"

// ListFiles percorre ref -> commit -> árvore recursiva e devolve os blobs.
func (c *Client) ListFiles(ctx context.Context, branch string) ([]string, error) {
	ref, err := call(ctx, c, "get ref", func(ctx context.Context) (*gh.Reference, *gh.Response, error) {
		return c.gh.Git.GetRef(ctx, c.owner, c.repo, "heads/"+branch)
	})
	if err != nil {
		return nil, err
	}
	commitSHA := ref.GetObject().GetSHA()
	if commitSHA == "" {
		return nil, &guestbook.MissingSHAError{Object: "branch"}
	}

	commit, err := call(ctx, c, "get commit", func(ctx context.Context) (*gh.Commit, *gh.Response, error) {
		return c.gh.Git.GetCommit(ctx, c.owner, c.repo, commitSHA)
	})
	if err != nil {
		return nil, err
	}
	treeSHA := commit.GetTree().GetSHA()
	if treeSHA == "" {
		return nil, &guestbook.MissingSHAError{Object: "tree"}
	}

	tree, err := call(ctx, c, "get tree", func(ctx context.Context) (*gh.Tree, *gh.Response, error) {
		return c.gh.Git.GetTree(ctx, c.owner, c.repo, treeSHA, true)
	})
	if err != nil {
		return nil, err
	}

	var out []string
	for _, e := range tree.Entries {
		if e.GetType() == "blob" && e.GetPath() != "" {
			out = append(out, e.GetPath())
		}
	}
	if tree.GetTruncated() {
		c.log.WithField("tree", treeSHA).Warn("git tree truncated, listing is partial")
	}
	return out, nil
}

// PutFile cria o arquivo pela API de conteúdo. content é o binário; a
// biblioteca faz o base64.
func (c *Client) PutFile(ctx context.Context, path, message, branch string, content []byte) (string, error) {
	opts := &gh.RepositoryContentFileOptions{
		Message: gh.Ptr(message),
		Content: content,
		Branch:  gh.Ptr(branch),
	}
	res, err := call(ctx, c, "create file", func(ctx context.Context) (*gh.RepositoryContentResponse, *gh.Response, error) {
		return c.gh.Repositories.CreateFile(ctx, c.owner, c.repo, path, opts)
	})
	if err != nil {
		return "", err
	}
	return res.GetContent().GetDownloadURL(), nil
}

// RawURL aponta para o arquivo servido por raw.githubusercontent.com (repositório público).
func (c *Client) RawURL(branch, path string) string {
	u, _ := url.JoinPath(rawBaseURL, c.owner, c.repo, branch, path)
	return u
}
