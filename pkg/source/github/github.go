package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	ledgermodels "github.com/epochlabs/ledgerx/pkg/db/models/ledger"
	"github.com/epochlabs/ledgerx/pkg/source"
	"go.uber.org/zap"
)

const (
	// SourceName is the registry key for this adapter.
	SourceName = "github"

	// AdapterVersion is stamped onto every event this adapter produces.
	AdapterVersion = "github-adapter/1.2.0"

	producerName = "ledgerx-github"

	defaultBaseURL = "https://api.github.com"
	perPage        = 100
	maxPages       = 10
)

// Streams this adapter understands.
const (
	StreamPullRequests = "pull_requests"
	StreamReviews      = "reviews"
	StreamIssues       = "issues"
)

// Event types produced by this adapter.
const (
	EventPullRequestMerged = "pull_request_merged"
	EventPullRequestReview = "pull_request_review"
	EventIssueClosed       = "issue_closed"
)

// Opts configures the GitHub adapter.
type Opts struct {
	BaseURL       string
	Token         string
	HTTPClient    *http.Client
	MaxConcurrent int // parallel review fetches, default 8
}

// Adapter collects contributor activity (merged PRs, reviews, closed issues)
// from the GitHub REST API for one repository per collect call.
type Adapter struct {
	logger  *zap.Logger
	baseURL string
	token   string
	client  *http.Client
	pool    pond.Pool
}

// New creates a GitHub adapter. An empty token works against public
// repositories at the unauthenticated rate limit.
func New(logger *zap.Logger, opts Opts) *Adapter {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 8
	}

	return &Adapter{
		logger:  logger.With(zap.String("source", SourceName)),
		baseURL: opts.BaseURL,
		token:   opts.Token,
		client:  opts.HTTPClient,
		pool:    pond.NewPool(opts.MaxConcurrent),
	}
}

func (a *Adapter) Name() string    { return SourceName }
func (a *Adapter) Version() string { return AdapterVersion }

// Collect scans the requested streams of one repository over
// [cursor-or-window-start, window-end). The next cursor always advances to
// the window end, even when nothing was found, so subsequent runs skip the
// already-scanned range.
func (a *Adapter) Collect(ctx context.Context, req source.CollectRequest) (source.CollectResult, error) {
	since := req.WindowStart.UTC()
	if req.Cursor != nil {
		if t, err := time.Parse(time.RFC3339, *req.Cursor); err == nil && t.After(since) {
			since = t.UTC()
		}
	}
	until := req.WindowEnd.UTC()

	var events []*ledgermodels.ActivityEvent
	for _, stream := range req.Streams {
		var (
			collected []*ledgermodels.ActivityEvent
			err       error
		)
		switch stream {
		case StreamPullRequests:
			collected, err = a.collectMergedPullRequests(ctx, req.SourceRef, since, until)
		case StreamIssues:
			collected, err = a.collectClosedIssues(ctx, req.SourceRef, since, until)
		case StreamReviews:
			collected, err = a.collectReviews(ctx, req.SourceRef, since, until)
		default:
			a.logger.Warn("Unknown stream requested, skipping",
				zap.String("stream", stream),
				zap.String("source_ref", req.SourceRef))
			continue
		}
		if err != nil {
			return source.CollectResult{}, fmt.Errorf("collect %s for %s: %w", stream, req.SourceRef, err)
		}
		events = append(events, collected...)
	}

	streamID := ""
	if len(req.Streams) > 0 {
		streamID = req.Streams[0]
	}

	return source.CollectResult{
		Events: events,
		NextCursor: source.NextCursor{
			StreamID: streamID,
			Value:    until.Format(time.RFC3339),
		},
	}, nil
}

type apiUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
}

type searchItem struct {
	Number      int        `json:"number"`
	Title       string     `json:"title"`
	HTMLURL     string     `json:"html_url"`
	User        apiUser    `json:"user"`
	ClosedAt    *time.Time `json:"closed_at"`
	PullRequest *struct {
		MergedAt *time.Time `json:"merged_at"`
	} `json:"pull_request,omitempty"`
}

type reviewItem struct {
	ID          int64      `json:"id"`
	User        apiUser    `json:"user"`
	State       string     `json:"state"`
	HTMLURL     string     `json:"html_url"`
	SubmittedAt *time.Time `json:"submitted_at"`
}

func (a *Adapter) collectMergedPullRequests(ctx context.Context, ref string, since, until time.Time) ([]*ledgermodels.ActivityEvent, error) {
	query := fmt.Sprintf("repo:%s is:pr is:merged merged:%s..%s",
		ref, since.Format(time.RFC3339), until.Format(time.RFC3339))

	raws, err := a.searchIssues(ctx, query)
	if err != nil {
		return nil, err
	}

	events := make([]*ledgermodels.ActivityEvent, 0, len(raws))
	for _, raw := range raws {
		var item searchItem
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("decode search item: %w", err)
		}

		eventTime := item.ClosedAt
		if item.PullRequest != nil && item.PullRequest.MergedAt != nil {
			eventTime = item.PullRequest.MergedAt
		}
		if eventTime == nil {
			continue
		}

		naturalKey := fmt.Sprintf("%s#%d", ref, item.Number)
		events = append(events, a.newEvent(EventPullRequestMerged, naturalKey, item.User, item.HTMLURL, *eventTime, raw, map[string]any{
			"number": item.Number,
			"title":  item.Title,
			"repo":   ref,
		}))
	}

	return events, nil
}

func (a *Adapter) collectClosedIssues(ctx context.Context, ref string, since, until time.Time) ([]*ledgermodels.ActivityEvent, error) {
	query := fmt.Sprintf("repo:%s is:issue is:closed closed:%s..%s",
		ref, since.Format(time.RFC3339), until.Format(time.RFC3339))

	raws, err := a.searchIssues(ctx, query)
	if err != nil {
		return nil, err
	}

	events := make([]*ledgermodels.ActivityEvent, 0, len(raws))
	for _, raw := range raws {
		var item searchItem
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("decode search item: %w", err)
		}
		if item.ClosedAt == nil {
			continue
		}

		naturalKey := fmt.Sprintf("%s#%d", ref, item.Number)
		events = append(events, a.newEvent(EventIssueClosed, naturalKey, item.User, item.HTMLURL, *item.ClosedAt, raw, map[string]any{
			"number": item.Number,
			"title":  item.Title,
			"repo":   ref,
		}))
	}

	return events, nil
}

// collectReviews searches PRs touched inside the window, then fans out review
// listing per PR through the worker pool and keeps reviews submitted in range.
func (a *Adapter) collectReviews(ctx context.Context, ref string, since, until time.Time) ([]*ledgermodels.ActivityEvent, error) {
	query := fmt.Sprintf("repo:%s is:pr updated:%s..%s",
		ref, since.Format(time.RFC3339), until.Format(time.RFC3339))

	raws, err := a.searchIssues(ctx, query)
	if err != nil {
		return nil, err
	}

	var (
		mu     sync.Mutex
		events []*ledgermodels.ActivityEvent
	)

	group := a.pool.NewGroup()
	for _, raw := range raws {
		var item searchItem
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("decode search item: %w", err)
		}

		number := item.Number
		group.SubmitErr(func() error {
			reviews, rawReviews, err := a.listReviews(ctx, ref, number)
			if err != nil {
				return err
			}

			for i, review := range reviews {
				if review.SubmittedAt == nil ||
					review.SubmittedAt.Before(since) || !review.SubmittedAt.Before(until) {
					continue
				}

				naturalKey := fmt.Sprintf("%s#%d/review/%d", ref, number, review.ID)
				event := a.newEvent(EventPullRequestReview, naturalKey, review.User, review.HTMLURL, *review.SubmittedAt, rawReviews[i], map[string]any{
					"number": number,
					"state":  review.State,
					"repo":   ref,
				})

				mu.Lock()
				events = append(events, event)
				mu.Unlock()
			}

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return events, nil
}

func (a *Adapter) newEvent(eventType, naturalKey string, user apiUser, artifactURL string, eventTime time.Time, payload []byte, metadata map[string]any) *ledgermodels.ActivityEvent {
	return &ledgermodels.ActivityEvent{
		ID:             source.EventID(SourceName, eventType, naturalKey),
		Source:         SourceName,
		EventType:      eventType,
		ExternalUserID: strconv.FormatInt(user.ID, 10),
		ExternalLogin:  user.Login,
		ArtifactURL:    artifactURL,
		Metadata:       metadata,
		PayloadHash:    source.PayloadHash(payload),
		Producer:       producerName,
		EventTime:      eventTime.UTC(),
		RetrievedAt:    time.Now().UTC(),
	}
}

// searchIssues pages through the search API and returns raw items so payload
// hashes cover the exact upstream representation.
func (a *Adapter) searchIssues(ctx context.Context, query string) ([]json.RawMessage, error) {
	var items []json.RawMessage

	for page := 1; page <= maxPages; page++ {
		endpoint := fmt.Sprintf("%s/search/issues?q=%s&per_page=%d&page=%d&sort=updated&order=asc",
			a.baseURL, url.QueryEscape(query), perPage, page)

		body, err := a.doGet(ctx, endpoint)
		if err != nil {
			return nil, err
		}

		var resp struct {
			TotalCount int               `json:"total_count"`
			Items      []json.RawMessage `json:"items"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decode search response: %w", err)
		}

		items = append(items, resp.Items...)
		if len(resp.Items) < perPage {
			break
		}
	}

	return items, nil
}

func (a *Adapter) listReviews(ctx context.Context, ref string, number int) ([]reviewItem, []json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/pulls/%d/reviews?per_page=%d", a.baseURL, ref, number, perPage)

	body, err := a.doGet(ctx, endpoint)
	if err != nil {
		return nil, nil, err
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, nil, fmt.Errorf("decode reviews response: %w", err)
	}

	reviews := make([]reviewItem, len(raws))
	for i, raw := range raws {
		if err := json.Unmarshal(raw, &reviews[i]); err != nil {
			return nil, nil, fmt.Errorf("decode review item: %w", err)
		}
	}

	return reviews, raws, nil
}

// doGet performs one API call. Rate limiting (403/429) comes back as a plain
// error so the activity retry policy owns the backoff.
func (a *Adapter) doGet(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github api returned %d for %s: %s", resp.StatusCode, endpoint, truncate(body, 256))
	}

	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
