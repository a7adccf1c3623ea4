// Package bugzilla talks to the Bugzilla REST API to read stabilization
// requests and record sanity-check results.
package bugzilla

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/obentoo/nattka/internal/common/httpclient"
	"github.com/obentoo/nattka/internal/common/version"
	"github.com/obentoo/nattka/internal/keywording"
)

var (
	// ErrBugNotFound indicates Bugzilla has no bug with the requested ID
	ErrBugNotFound = errors.New("bug not found")
	// ErrUnauthorized indicates the API key was rejected or lacks permissions
	ErrUnauthorized = errors.New("bugzilla rejected credentials")
	// ErrNoAPIKey indicates a write was attempted without an API key
	ErrNoAPIKey = errors.New("bugzilla API key is required to update bugs")
	// ErrAPIError indicates a general Bugzilla API error
	ErrAPIError = errors.New("bugzilla API error")
)

const (
	// DefaultURL is the Gentoo Bugzilla instance
	DefaultURL = "https://bugs.gentoo.org"

	// SanityCheckFlag is the flag holding the sanity-check result
	SanityCheckFlag = "sanity-check"

	componentStabilization = "Stabilization"
	componentKeywording    = "Keywording"

	apiKeyHeader = "X-BUGZILLA-API-KEY"
)

var includeFields = []string{
	"id", "component", "cf_stabilisation_atoms", "cc", "depends_on", "blocks", "flags",
}

// APIError is a Bugzilla error envelope.
type APIError struct {
	StatusCode int
	Code       int    `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%v: status %d, code %d: %s", ErrAPIError, e.StatusCode, e.Code, e.Message)
}

// Is makes errors.Is(err, ErrAPIError) match.
func (e *APIError) Is(target error) bool {
	return target == ErrAPIError
}

// Client handles communication with a Bugzilla instance
type Client struct {
	BaseURL   string
	APIKey    string
	UserAgent string
	http      *httpclient.RetryableHTTPClient
}

// Option configures a Client
type Option func(*Client)

// WithAPIKey sets the API key used for authenticated calls. ${VAR}
// references are expanded from the environment.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.APIKey = httpclient.SubstituteEnvVars(key)
	}
}

// WithHTTPClient replaces the retrying transport
func WithHTTPClient(h *httpclient.RetryableHTTPClient) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithTimeout sets the per-request timeout of the default transport
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		cfg := httpclient.DefaultRetryConfig()
		cfg.Timeout = timeout
		c.http = httpclient.NewWithConfig(cfg)
	}
}

// NewClient creates a new Bugzilla client. An empty baseURL selects DefaultURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	c := &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		UserAgent: version.UserAgent(),
		http:      httpclient.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http.SetDefaultHeaders(map[string]string{
		"User-Agent": c.UserAgent,
		"Accept":     "application/json",
	})
	return c
}

// bugFlag is a single flag entry of a bug
type bugFlag struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// bugRecord is the subset of a Bugzilla bug the tool reads
type bugRecord struct {
	ID                 int       `json:"id"`
	Component          string    `json:"component"`
	StabilisationAtoms string    `json:"cf_stabilisation_atoms"`
	CC                 []string  `json:"cc"`
	DependsOn          []int     `json:"depends_on"`
	Blocks             []int     `json:"blocks"`
	Flags              []bugFlag `json:"flags"`
}

type bugsResponse struct {
	Bugs []bugRecord `json:"bugs"`
}

// toBugInfo converts a Bugzilla record into the tracker-neutral form
func (r *bugRecord) toBugInfo() keywording.BugInfo {
	info := keywording.BugInfo{
		Category:       categoryFromComponent(r.Component),
		RawPackageList: r.StabilisationAtoms,
		CC:             r.CC,
		DependsOn:      r.DependsOn,
		Blocks:         r.Blocks,
		Sanity:         keywording.SanityUnknown,
	}
	for _, f := range r.Flags {
		if f.Name != SanityCheckFlag {
			continue
		}
		switch f.Status {
		case "+":
			info.Sanity = keywording.SanityPassed
		case "-":
			info.Sanity = keywording.SanityFailed
		}
	}
	return info
}

func categoryFromComponent(component string) keywording.Category {
	switch component {
	case componentStabilization:
		return keywording.CategoryStableReq
	case componentKeywording:
		return keywording.CategoryKeywordReq
	default:
		return keywording.CategoryOther
	}
}

// FetchPackageList fetches the given bugs. Bugs Bugzilla does not return are
// absent from the map.
func (c *Client) FetchPackageList(ctx context.Context, ids []int) (map[int]keywording.BugInfo, error) {
	result := make(map[int]keywording.BugInfo, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = strconv.Itoa(id)
	}

	q := url.Values{}
	q.Set("id", strings.Join(strIDs, ","))
	q.Set("include_fields", strings.Join(includeFields, ","))
	// report inaccessible bugs as faults instead of failing the whole call
	q.Set("permissive", "1")

	var resp bugsResponse
	if err := c.call(ctx, http.MethodGet, "/rest/bug?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	for _, bug := range resp.Bugs {
		result[bug.ID] = bug.toBugInfo()
	}
	return result, nil
}

type flagChange struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

type commentChange struct {
	Body string `json:"body"`
}

type updateRequest struct {
	IDs     []int          `json:"ids"`
	Flags   []flagChange   `json:"flags"`
	Comment *commentChange `json:"comment,omitempty"`
}

// UpdateStatus sets the sanity-check flag of a bug, adding comment when it
// is not empty.
func (c *Client) UpdateStatus(ctx context.Context, id int, passed bool, comment string) error {
	if c.APIKey == "" {
		return ErrNoAPIKey
	}

	status := "-"
	if passed {
		status = "+"
	}
	body := updateRequest{
		IDs:   []int{id},
		Flags: []flagChange{{Name: SanityCheckFlag, Status: status}},
	}
	if comment != "" {
		body.Comment = &commentChange{Body: comment}
	}

	return c.call(ctx, http.MethodPut, "/rest/bug/"+strconv.Itoa(id), body, nil)
}

// call performs one REST call, decoding the response into out when non-nil
func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set(apiKeyHeader, c.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrBugNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if json.Unmarshal(data, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	// Bugzilla may report errors with a 200 status
	var envelope struct {
		Error   bool   `json:"error"`
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &envelope) == nil && envelope.Error {
		return &APIError{StatusCode: resp.StatusCode, Code: envelope.Code, Message: envelope.Message}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to parse Bugzilla response: %w", err)
		}
	}
	return nil
}
