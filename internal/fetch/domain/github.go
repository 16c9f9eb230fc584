package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

// githubExtractor handles github.com issue, pull-request, and bare
// repository URLs via the public REST API, which returns the body
// markdown directly instead of requiring the rendered HTML page.
type githubExtractor struct{}

var (
	githubIssueRe = regexp.MustCompile(`^/([^/]+)/([^/]+)/(issues|pull)/(\d+)$`)
	githubRepoRe  = regexp.MustCompile(`^/([^/]+)/([^/]+)/?$`)
)

func (githubExtractor) Matches(u *url.URL) bool {
	if u.Host != "github.com" {
		return false
	}
	return githubIssueRe.MatchString(u.Path) || githubRepoRe.MatchString(u.Path)
}

func (githubExtractor) Extract(ctx context.Context, client *http.Client, u *url.URL) (*Result, error) {
	if m := githubIssueRe.FindStringSubmatch(u.Path); m != nil {
		return extractGithubIssue(ctx, client, u, m[1], m[2], m[4])
	}
	if m := githubRepoRe.FindStringSubmatch(u.Path); m != nil {
		return extractGithubRepo(ctx, client, u, m[1], m[2])
	}
	return nil, nil
}

type ghIssue struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	User      struct{ Login string } `json:"user"`
	CreatedAt string `json:"created_at"`
	State     string `json:"state"`
	Comments  int    `json:"comments"`
}

type ghComment struct {
	Body string `json:"body"`
	User struct{ Login string } `json:"user"`
}

func extractGithubIssue(ctx context.Context, client *http.Client, u *url.URL, owner, repo, number string) (*Result, error) {
	var issue ghIssue
	issueURL := fmt.Sprintf("https://api.github.com/repos/%s/%s/issues/%s", owner, repo, number)
	if err := getJSON(ctx, client, issueURL, &issue); err != nil {
		return nil, err
	}

	var body strings.Builder
	body.WriteString(issue.Title)
	body.WriteString("\n\n")
	body.WriteString(issue.Body)

	var comments []ghComment
	commentsURL := fmt.Sprintf("https://api.github.com/repos/%s/%s/issues/%s/comments?per_page=20", owner, repo, number)
	if err := getJSON(ctx, client, commentsURL, &comments); err == nil {
		for _, c := range comments {
			body.WriteString(fmt.Sprintf("\n\n> %s: %s", c.User.Login, c.Body))
		}
	}

	return &Result{
		Title: issue.Title, Content: body.String(), Author: issue.User.Login,
		PublishedAt: issue.CreatedAt, URL: u.String(),
		Structured: map[string]any{"state": issue.State, "commentCount": issue.Comments},
	}, nil
}

type ghRepo struct {
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	Owner       struct{ Login string } `json:"login"`
	Stars       int    `json:"stargazers_count"`
	CreatedAt   string `json:"created_at"`
	Language    string `json:"language"`
}

type ghReadme struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

func extractGithubRepo(ctx context.Context, client *http.Client, u *url.URL, owner, repo string) (*Result, error) {
	var r ghRepo
	repoURL := fmt.Sprintf("https://api.github.com/repos/%s/%s", owner, repo)
	if err := getJSON(ctx, client, repoURL, &r); err != nil {
		return nil, err
	}

	body := r.Description
	readmeURL := fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/HEAD/README.md", owner, repo)
	if raw, err := getRaw(ctx, client, readmeURL); err == nil && len(raw) > 0 {
		body = body + "\n\n" + string(raw)
	}

	return &Result{
		Title: r.FullName, Content: body, Author: owner, PublishedAt: r.CreatedAt,
		URL: u.String(), Structured: map[string]any{"stars": r.Stars, "language": r.Language},
	}, nil
}

func getJSON(ctx context.Context, client *http.Client, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("github api: status %d for %s", resp.StatusCode, rawURL)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func getRaw(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github raw: status %d", resp.StatusCode)
	}
	buf := make([]byte, 0, 4096)
	chunk := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if err != nil {
			break
		}
		if len(buf) > 200*1024 {
			break
		}
	}
	return buf, nil
}
