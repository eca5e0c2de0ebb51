package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"

	"github.com/jingkaihe/skillcms/pkg/logger"
	"github.com/jingkaihe/skillcms/pkg/telemetry"
	"github.com/jingkaihe/skillcms/pkg/types/skills"
)

// Store endpoints, relative to the base URL
const (
	PathHistory   = "/cms/getCommitHistory.json"
	PathContentAt = "/cms/getFileAtCommitID.json"
	PathCreate    = "/cms/createSkill.json"
	PathModify    = "/cms/modifySkill.json"
)

const (
	defaultImage     = "images/default.png"
	defaultImageName = "default.png"
	maxResponseBytes = 8 << 20
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	time.UnixDate,
	time.RFC1123Z,
	time.RFC1123,
}

// Client talks to the content store over HTTP
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	tokens     oauth2.TokenSource
}

var (
	_ Gateway       = (*Client)(nil)
	_ Authenticator = (*Client)(nil)
)

// Option configures a Client
type Option func(*Client)

// WithHTTPClient overrides the HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTokenSource sets where store write tokens come from
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithAccessToken uses a fixed access token. An empty token leaves the client unauthenticated.
func WithAccessToken(token string) Option {
	return func(c *Client) {
		if token == "" {
			c.tokens = nil
			return
		}
		c.tokens = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	}
}

// NewClient creates a content store client rooted at baseURL
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("base URL cannot be empty")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid base URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("unsupported base URL scheme %q", u.Scheme)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type historyJSON struct {
	Response
	Commits []struct {
		CommitID   string `json:"commitId"`
		CommitDate string `json:"commitDate"`
		Author     string `json:"author"`
	} `json:"commits"`
}

type contentJSON struct {
	Response
	File       string `json:"file"`
	Author     string `json:"author"`
	CommitDate string `json:"commitDate"`
}

// History lists the skill's commits, newest first
func (c *Client) History(ctx context.Context, loc Locator) (*HistoryResponse, error) {
	var out *HistoryResponse
	err := telemetry.WithSpan(ctx, "gateway.history", func(ctx context.Context) error {
		var raw historyJSON
		if err := c.get(ctx, "history", PathHistory, locatorQuery(loc), &raw); err != nil {
			return err
		}

		out = &HistoryResponse{Response: raw.Response}
		for _, rc := range raw.Commits {
			out.Commits = append(out.Commits, skills.Commit{
				ID:     rc.CommitID,
				Date:   parseDate(ctx, rc.CommitDate),
				Author: rc.Author,
			})
		}
		telemetry.SetAttributes(ctx, attribute.Int("commits", len(out.Commits)))
		return nil
	}, attribute.String("skill", loc.String()))
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ContentAt fetches the skill text at commitID
func (c *Client) ContentAt(ctx context.Context, loc Locator, commitID string) (*ContentResponse, error) {
	if commitID == "" {
		return nil, errors.New("commit ID cannot be empty")
	}

	var out *ContentResponse
	err := telemetry.WithSpan(ctx, "gateway.content_at", func(ctx context.Context) error {
		q := locatorQuery(loc)
		q.Set("commitID", commitID)

		var raw contentJSON
		if err := c.get(ctx, "contentAt", PathContentAt, q, &raw); err != nil {
			return err
		}

		out = &ContentResponse{
			Response:   raw.Response,
			File:       raw.File,
			Author:     raw.Author,
			CommitDate: parseDate(ctx, raw.CommitDate),
		}
		return nil
	}, attribute.String("skill", loc.String()), attribute.String("commit", commitID))
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Create publishes a new skill. It fails with skills.ErrNotAuthenticated before
// any request is sent when no access token is available.
func (c *Client) Create(ctx context.Context, p CreatePayload) (*Response, error) {
	token, err := c.accessToken()
	if err != nil {
		return nil, err
	}

	fields := [][2]string{
		{"group", p.Group},
		{"language", p.Language},
		{"skill", p.Skill},
		{"content", p.Content},
		{"access_token", token},
	}
	if p.Private {
		fields = append(fields, [2]string{"private", "1"})
	}

	var out *Response
	err = telemetry.WithSpan(ctx, "gateway.create", func(ctx context.Context) error {
		var err error
		out, err = c.postForm(ctx, "create", PathCreate, fields, p.Image, p.ImageName)
		return err
	}, attribute.String("skill", strings.Join([]string{p.Group, p.Language, p.Skill}, "/")))
	return out, err
}

// Modify publishes a new head revision of an existing skill
func (c *Client) Modify(ctx context.Context, p ModifyPayload) (*Response, error) {
	token, err := c.accessToken()
	if err != nil {
		return nil, err
	}

	fields := [][2]string{
		{"OldModel", p.OldModel},
		{"OldGroup", p.OldGroup},
		{"OldLanguage", p.OldLanguage},
		{"OldSkill", p.OldSkill},
		{"old_image_name", p.OldImageName},
		{"NewModel", p.NewModel},
		{"NewGroup", p.NewGroup},
		{"NewLanguage", p.NewLanguage},
		{"NewSkill", p.NewSkill},
		{"new_image_name", p.NewImageName},
		{"content", p.Content},
		{"changelog", p.Changelog},
		{"imageChanged", strconv.FormatBool(p.ImageChanged)},
		{"image_name_changed", strconv.FormatBool(p.ImageNameChanged)},
		{"access_token", token},
	}
	if p.Private {
		fields = append(fields, [2]string{"private", "1"})
	}

	var image []byte
	if p.ImageChanged {
		image = p.Image
	}

	var out *Response
	err = telemetry.WithSpan(ctx, "gateway.modify", func(ctx context.Context) error {
		var err error
		out, err = c.postForm(ctx, "modify", PathModify, fields, image, p.NewImageName)
		return err
	},
		attribute.String("skill.old", strings.Join([]string{p.OldGroup, p.OldLanguage, p.OldSkill}, "/")),
		attribute.String("skill.new", strings.Join([]string{p.NewGroup, p.NewLanguage, p.NewSkill}, "/")),
	)
	return out, err
}

// Authenticated reports whether an access token is available for writes
func (c *Client) Authenticated() bool {
	_, err := c.accessToken()
	return err == nil
}

func (c *Client) accessToken() (string, error) {
	if c.tokens == nil {
		return "", skills.ErrNotAuthenticated
	}
	tok, err := c.tokens.Token()
	if err != nil {
		return "", errors.Wrap(skills.ErrNotAuthenticated, err.Error())
	}
	if tok == nil || tok.AccessToken == "" {
		return "", skills.ErrNotAuthenticated
	}
	return tok.AccessToken, nil
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if q != nil {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func locatorQuery(loc Locator) url.Values {
	model := loc.Model
	if model == "" {
		model = skills.DefaultModel
	}
	q := url.Values{}
	q.Set("model", model)
	q.Set("group", loc.Group)
	q.Set("language", loc.Language)
	q.Set("skill", loc.Skill)
	return q
}

func (c *Client) get(ctx context.Context, op, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, q), nil)
	if err != nil {
		return skills.NewTransportError(op, err)
	}
	return c.do(ctx, op, req, out)
}

func (c *Client) postForm(ctx context.Context, op, path string, fields [][2]string, image []byte, imageName string) (*Response, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, errors.Wrapf(err, "failed to write form field %s", f[0])
		}
	}

	if len(image) > 0 {
		name := skills.StripImagePrefix(imageName)
		part, err := w.CreateFormFile("image", name)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create image part")
		}
		if _, err := part.Write(image); err != nil {
			return nil, errors.Wrap(err, "failed to write image part")
		}
		if err := w.WriteField("image_name", name); err != nil {
			return nil, errors.Wrap(err, "failed to write image name")
		}
	} else {
		// without a binary both endpoints still name the placeholder image
		if err := w.WriteField("image", defaultImage); err != nil {
			return nil, errors.Wrap(err, "failed to write default image")
		}
		if err := w.WriteField("image_name", defaultImageName); err != nil {
			return nil, errors.Wrap(err, "failed to write default image name")
		}
	}

	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to close multipart form")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path, nil), &body)
	if err != nil {
		return nil, skills.NewTransportError(op, err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var out Response
	if err := c.do(ctx, op, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do sends req and decodes a JSON body into out. Non-2xx statuses still count
// as completed calls when the body is a store rejection with a message.
func (c *Client) do(ctx context.Context, op string, req *http.Request, out any) error {
	log := logger.G(ctx).WithField("op", op).WithField("url", req.URL.Path)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Debug("store request failed")
		return skills.NewTransportError(op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return skills.NewTransportError(op, errors.Wrap(err, "failed to read response body"))
	}

	log = log.WithField("status", resp.StatusCode).WithField("duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var rejection Response
		if jsonErr := json.Unmarshal(data, &rejection); jsonErr == nil && !rejection.Accepted && rejection.Message != "" {
			log.WithField("message", rejection.Message).Warn("store rejected request")
			return json.Unmarshal(data, out)
		}
		log.Debug("unexpected store status")
		return skills.NewTransportError(op, errors.Errorf("unexpected status %d", resp.StatusCode))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return skills.NewTransportError(op, errors.Wrap(err, "failed to decode response"))
	}

	log.Debug("store request completed")
	return nil
}

func parseDate(ctx context.Context, s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	logger.G(ctx).WithField("date", s).Debug("unrecognized commit date format")
	return time.Time{}
}
