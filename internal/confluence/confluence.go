// Package confluence pushes a one-way snapshot of the board to a Confluence
// page through the v2 REST API. It is glue around the core's read accessors:
// nothing here feeds back into the document.
package confluence

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/amirbrooks/weekboard/internal/board"
)

var ErrNotConfigured = errors.New("confluence settings not configured")

var (
	editURLRe = regexp.MustCompile(`/pages/edit-v2/(\d+)`)
	viewURLRe = regexp.MustCompile(`pageId=(\d+)`)
	pageURLRe = regexp.MustCompile(`/pages/(\d+)`)
	baseURLRe = regexp.MustCompile(`^(https://[^/]+)`)
	linkRe    = regexp.MustCompile(`https?://\S+`)
)

// ExtractPageID pulls the numeric page id out of the URL formats Confluence
// hands users: edit-v2 links, viewpage.action links and plain page links.
func ExtractPageID(url string) (string, bool) {
	for _, re := range []*regexp.Regexp{editURLRe, viewURLRe, pageURLRe} {
		if m := re.FindStringSubmatch(url); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// ExtractBaseURL returns the scheme-and-host prefix of a Confluence URL.
func ExtractBaseURL(url string) (string, bool) {
	if m := baseURLRe.FindStringSubmatch(url); m != nil {
		return m[1], true
	}
	return "", false
}

// exportOrder is the section layout of the exported page; history sections
// follow it, current quarter first.
var exportOrder = []string{
	board.SectionDone,
	board.SectionProblems,
	board.SectionResearch,
	board.SectionProjects,
	board.SectionCompletedProjects,
	board.SectionFollowUps,
	board.SectionBlocked,
	board.SectionInProgress,
	board.SectionThisWeek,
	board.SectionNextWeek,
	board.SectionFollowingWeek,
	board.SectionBacklogHigh,
	board.SectionBacklogMedium,
	board.SectionBacklogLow,
}

// BuildContent renders the board into Confluence storage-format HTML.
// sections must be in the store's canonical order so the history sections
// come out current-quarter first.
func BuildContent(sections []board.Section, notes string) string {
	byName := make(map[string][]board.Task, len(sections))
	for _, s := range sections {
		byName[s.Name] = s.Tasks
	}

	names := make([]string, 0, len(sections)+1)
	names = append(names, exportOrder...)
	for _, s := range sections {
		if board.IsHistorySection(s.Name) {
			names = append(names, s.Name)
		}
	}

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "<h2>%s</h2>\n", name)
		tasks := byName[name]
		if len(tasks) == 0 {
			b.WriteString("<p><em>(empty)</em></p>\n")
			continue
		}
		b.WriteString("<ul>\n")
		for _, t := range tasks {
			fmt.Fprintf(&b, "<li>%s</li>\n", linkify(t.Text))
		}
		b.WriteString("</ul>\n")
	}

	b.WriteString("<h2>NOTES</h2>\n")
	notes = strings.TrimSpace(notes)
	if notes == "" {
		b.WriteString("<p><em>(empty)</em></p>\n")
	} else {
		fmt.Fprintf(&b, "<p>%s</p>\n", strings.ReplaceAll(linkify(notes), "\n", "<br/>"))
	}
	return b.String()
}

func linkify(text string) string {
	return linkRe.ReplaceAllString(text, `<a href="$0">$0</a>`)
}

// Client talks to one Confluence site with basic auth.
type Client struct {
	baseURL string
	email   string
	token   string
	http    *http.Client
}

// NewClient builds a client from the stored settings. It fails with
// ErrNotConfigured when any credential is missing and wraps URL parse
// problems in the same error.
func NewClient(settings board.Settings) (*Client, string, error) {
	if settings.ConfluenceURL == "" || settings.ConfluenceEmail == "" || settings.ConfluenceToken == "" {
		return nil, "", ErrNotConfigured
	}
	pageID, ok := ExtractPageID(settings.ConfluenceURL)
	if !ok {
		return nil, "", fmt.Errorf("%w: no page id in %q", ErrNotConfigured, settings.ConfluenceURL)
	}
	baseURL, ok := ExtractBaseURL(settings.ConfluenceURL)
	if !ok {
		return nil, "", fmt.Errorf("%w: no base url in %q", ErrNotConfigured, settings.ConfluenceURL)
	}
	return &Client{
		baseURL: baseURL,
		email:   settings.ConfluenceEmail,
		token:   settings.ConfluenceToken,
		http:    &http.Client{Timeout: 30 * time.Second},
	}, pageID, nil
}

type page struct {
	ID      string `json:"id"`
	Status  string `json:"status,omitempty"`
	Title   string `json:"title"`
	Version struct {
		Number int `json:"number"`
	} `json:"version"`
}

type updateRequest struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Title  string `json:"title"`
	Body   struct {
		Representation string `json:"representation"`
		Value          string `json:"value"`
	} `json:"body"`
	Version struct {
		Number int `json:"number"`
	} `json:"version"`
}

// UpdatePage replaces the page body, bumping the version number read from the
// current page.
func (c *Client) UpdatePage(ctx context.Context, pageID, content string) error {
	apiURL := fmt.Sprintf("%s/wiki/api/v2/pages/%s", c.baseURL, pageID)

	current, err := c.getPage(ctx, apiURL)
	if err != nil {
		return err
	}

	var update updateRequest
	update.ID = pageID
	update.Status = "current"
	update.Title = current.Title
	update.Body.Representation = "storage"
	update.Body.Value = content
	update.Version.Number = current.Version.Number + 1

	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("encode page update: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, apiURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build page update: %w", err)
	}
	req.SetBasicAuth(c.email, c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("update page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("update page: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

func (c *Client) getPage(ctx context.Context, apiURL string) (*page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build page fetch: %w", err)
	}
	req.SetBasicAuth(c.email, c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("fetch page: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var p page
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}
	if p.Version.Number == 0 {
		p.Version.Number = 1
	}
	if p.Title == "" {
		p.Title = "Weekboard Export"
	}
	return &p, nil
}
