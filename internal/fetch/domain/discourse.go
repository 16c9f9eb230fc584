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

// discourseExtractor handles the generic Discourse forum topic URL
// shape (/t/<slug>/<id>) on any host by requesting the same path with
// a .json suffix, which every stock Discourse install serves without
// authentication.
type discourseExtractor struct{}

var discourseTopicRe = regexp.MustCompile(`^/t/[^/]+/(\d+)(?:/\d+)?/?$`)

func (discourseExtractor) Matches(u *url.URL) bool {
	return discourseTopicRe.MatchString(u.Path)
}

type discourseTopic struct {
	Title     string `json:"title"`
	PostsCount int   `json:"posts_count"`
	CreatedAt string `json:"created_at"`
	PostStream struct {
		Posts []struct {
			Cooked    string `json:"cooked"`
			Username  string `json:"username"`
			CreatedAt string `json:"created_at"`
		} `json:"posts"`
	} `json:"post_stream"`
}

func (discourseExtractor) Extract(ctx context.Context, client *http.Client, u *url.URL) (*Result, error) {
	jsonURL := *u
	jsonURL.Path = strings.TrimSuffix(jsonURL.Path, "/") + ".json"
	jsonURL.RawQuery = ""

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jsonURL.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discourse: status %d", resp.StatusCode)
	}
	var topic discourseTopic
	if err := json.NewDecoder(resp.Body).Decode(&topic); err != nil {
		return nil, err
	}
	if len(topic.PostStream.Posts) == 0 {
		return nil, fmt.Errorf("discourse: no posts in topic")
	}

	var body strings.Builder
	body.WriteString(topic.Title)
	limit := min(len(topic.PostStream.Posts), 20)
	for _, p := range topic.PostStream.Posts[:limit] {
		body.WriteString(fmt.Sprintf("\n\n%s wrote:\n%s", p.Username, stripHTMLTags(p.Cooked)))
	}

	first := topic.PostStream.Posts[0]
	return &Result{
		Title: topic.Title, Content: body.String(), Author: first.Username,
		PublishedAt: topic.CreatedAt, URL: u.String(),
		Structured: map[string]any{"postsCount": topic.PostsCount},
	}, nil
}

func stripHTMLTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
