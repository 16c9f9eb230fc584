package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// hackerNewsExtractor handles news.ycombinator.com/item?id=N via the
// public Firebase API, which returns structured story+comment data
// directly instead of requiring HTML scraping.
type hackerNewsExtractor struct{}

type hnItem struct {
	ID    int    `json:"id"`
	Type  string `json:"type"`
	By    string `json:"by"`
	Time  int64  `json:"time"`
	Text  string `json:"text"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Kids  []int  `json:"kids"`
	Score int    `json:"score"`
}

func (hackerNewsExtractor) Matches(u *url.URL) bool {
	host := strings.TrimPrefix(u.Host, "www.")
	return host == "news.ycombinator.com" && u.Path == "/item" && u.Query().Get("id") != ""
}

func (hackerNewsExtractor) Extract(ctx context.Context, client *http.Client, u *url.URL) (*Result, error) {
	id := u.Query().Get("id")
	item, err := fetchHNItem(ctx, client, id)
	if err != nil {
		return nil, err
	}

	var body strings.Builder
	body.WriteString(item.Title)
	if item.Text != "" {
		body.WriteString("\n\n")
		body.WriteString(stripHNHTML(item.Text))
	}
	if item.URL != "" {
		body.WriteString("\n\nLink: " + item.URL)
	}

	commentCount := min(len(item.Kids), 20)
	for _, kidID := range item.Kids[:commentCount] {
		kid, err := fetchHNItem(ctx, client, strconv.Itoa(kidID))
		if err != nil || kid == nil || kid.Text == "" {
			continue
		}
		body.WriteString(fmt.Sprintf("\n\n> %s: %s", kid.By, stripHNHTML(kid.Text)))
	}

	return &Result{
		Title:       item.Title,
		Content:     body.String(),
		Author:      item.By,
		PublishedAt: time.Unix(item.Time, 0).UTC().Format(time.RFC3339),
		URL:         u.String(),
		Structured: map[string]any{
			"id": item.ID, "score": item.Score, "type": item.Type, "commentIDs": item.Kids,
		},
	}, nil
}

func fetchHNItem(ctx context.Context, client *http.Client, id string) (*hnItem, error) {
	apiURL := fmt.Sprintf("https://hacker-news.firebaseio.com/v0/item/%s.json", id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hn api: status %d", resp.StatusCode)
	}
	var item hnItem
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, err
	}
	return &item, nil
}

func stripHNHTML(s string) string {
	r := strings.NewReplacer("<p>", "\n\n", "&gt;", ">", "&lt;", "<", "&amp;", "&", "&#x27;", "'", "&quot;", `"`)
	s = r.Replace(s)
	for strings.Contains(s, "<") && strings.Contains(s, ">") {
		start := strings.Index(s, "<")
		end := strings.Index(s[start:], ">")
		if end == -1 {
			break
		}
		s = s[:start] + s[start+end+1:]
	}
	return strings.TrimSpace(s)
}
