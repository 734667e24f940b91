package httpbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/potlab/ecx/internal/box"
	"github.com/potlab/ecx/internal/log"
	"github.com/potlab/ecx/internal/model"
)

const (
	jobsPath = "/api/v1/jobs"

	clientDateTimeLayout = time.RFC3339
)

// ClientConfig configures the HTTP client of one box.
type ClientConfig struct {
	Box model.BoxConfig
	// HTTPClient is the HTTP client used for all requests.
	HTTPClient *http.Client
	// Logger for logging.
	Logger log.Logger
}

func (c *ClientConfig) defaults() error {
	if err := c.Box.Validate(); err != nil {
		return fmt.Errorf("invalid box config: %w", err)
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "box.HTTP", "box": c.Box.ID})
	return nil
}

// Client implements box.Client over the box HTTP API. One instance per
// configured box.
type Client struct {
	cfg        model.BoxConfig
	httpClient *http.Client
	logger     log.Logger
}

// NewClient creates a new box HTTP client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Client{
		cfg:        cfg.Box,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
	}, nil
}

// --- JSON wire types (private) ---

type startJobJSON struct {
	GroupID        string                    `json:"group_id"`
	Slot           string                    `json:"slot"`
	WellID         string                    `json:"well_id,omitempty"`
	Modes          []string                  `json:"modes"`
	Params         map[string]map[string]any `json:"params"`
	ExperimentName string                    `json:"experiment_name"`
	Subdir         string                    `json:"subdir,omitempty"`
	ClientDateTime string                    `json:"client_datetime"`
	GeneratePlots  bool                      `json:"generate_plots"`
}

type startJobReplyJSON struct {
	RunID string `json:"run_id"`
}

type pollJSON struct {
	RunIDs []string `json:"run_ids"`
}

type pollReplyJSON struct {
	Runs []runPayloadJSON `json:"runs"`
}

type runPayloadJSON struct {
	RunID          string  `json:"run_id"`
	Status         string  `json:"status"`
	StartedAt      *string `json:"started_at"`
	EndedAt        *string `json:"ended_at"`
	ProgressPct    any     `json:"progress_pct"`
	RemainingS     any     `json:"remaining_s"`
	CurrentMode    string  `json:"current_mode"`
	Mode           string  `json:"mode"` // Pre multi-mode firmwares.
	RemainingModes any     `json:"remaining_modes"`
	Message        string  `json:"message"`
}

type cancelReplyJSON struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

type apiErrorJSON struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Hint    string `json:"hint"`
}

func (p runPayloadJSON) toPayload() box.JobPayload {
	return box.JobPayload{
		RunID:          p.RunID,
		Status:         p.Status,
		StartedAt:      parseTimePtr(p.StartedAt),
		EndedAt:        parseTimePtr(p.EndedAt),
		ProgressPct:    p.ProgressPct,
		RemainingS:     p.RemainingS,
		CurrentMode:    p.CurrentMode,
		LegacyMode:     p.Mode,
		RemainingModes: p.RemainingModes,
		Message:        p.Message,
	}
}

func parseTimePtr(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

// --- box.Client implementation ---

func (c *Client) StartJob(ctx context.Context, req box.StartJobRequest) (string, error) {
	body := startJobJSON{
		GroupID:        req.GroupID,
		Slot:           req.Slot,
		WellID:         req.WellID,
		Modes:          req.Modes,
		Params:         req.ParamsByMode,
		ExperimentName: req.ExperimentName,
		Subdir:         req.Subdir,
		ClientDateTime: req.ClientDateTime.UTC().Format(clientDateTimeLayout),
		GeneratePlots:  req.GeneratePlots,
	}

	var reply startJobReplyJSON
	if err := c.doJSON(ctx, http.MethodPost, jobsPath, body, &reply); err != nil {
		return "", fmt.Errorf("starting job on slot %s: %w", req.Slot, err)
	}
	if reply.RunID == "" {
		return "", fmt.Errorf("box %s assigned no run id: %w", c.cfg.ID, model.ErrRemoteAPI)
	}

	c.logger.Debugf("started job on slot %s: run %s", req.Slot, reply.RunID)
	return reply.RunID, nil
}

func (c *Client) PollJobs(ctx context.Context, runIDs []string) ([]box.JobPayload, error) {
	var reply pollReplyJSON
	if err := c.doJSON(ctx, http.MethodPost, jobsPath+"/poll", pollJSON{RunIDs: runIDs}, &reply); err != nil {
		return nil, fmt.Errorf("polling %d runs: %w", len(runIDs), err)
	}

	payloads := make([]box.JobPayload, 0, len(reply.Runs))
	for _, r := range reply.Runs {
		payloads = append(payloads, r.toPayload())
	}

	return payloads, nil
}

func (c *Client) CancelJob(ctx context.Context, runID string) (*box.CancelResult, error) {
	var reply cancelReplyJSON
	path := fmt.Sprintf("%s/%s/cancel", jobsPath, url.PathEscape(runID))
	if err := c.doJSON(ctx, http.MethodPost, path, nil, &reply); err != nil {
		return nil, fmt.Errorf("cancelling run %s: %w", runID, err)
	}

	return &box.CancelResult{RunID: reply.RunID, Status: reply.Status}, nil
}

func (c *Client) DownloadResult(ctx context.Context, runID string) (io.ReadCloser, error) {
	// Downloads carry their own, longer timeout. The timer must outlive this
	// call since the caller streams the body, so it is bound to the body.
	ctx, cancel := context.WithTimeout(ctx, c.cfg.DownloadTimeout)

	path := fmt.Sprintf("%s/%s/result", jobsPath, url.PathEscape(runID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("creating request: %w", err)
	}
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, c.typedErr(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer cancel()
		defer resp.Body.Close()
		return nil, c.apiErr(resp)
	}

	c.logger.Debugf("downloading result of run %s", runID)
	return &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}

// --- internal helpers ---

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.typedErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.apiErr(resp)
	}

	if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt != "application/json" {
		return fmt.Errorf("box %s replied %q where JSON was required: %w", c.cfg.ID, mt, model.ErrBadContentType)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}

func (c *Client) setAuth(req *http.Request) {
	if c.cfg.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	}
}

// typedErr maps transport failures onto the error taxonomy.
func (c *Client) typedErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("box %s call: %w", c.cfg.ID, model.ErrTimeout)
	}
	return fmt.Errorf("box %s call: %v: %w", c.cfg.ID, err, model.ErrNetwork)
}

// apiErr builds the typed error of a non-success response, keeping whatever
// structured details the box supplied.
func (c *Client) apiErr(resp *http.Response) error {
	apiErr := &model.APIError{
		BoxID:      c.cfg.ID,
		StatusCode: resp.StatusCode,
	}

	if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt == "application/json" {
		var details apiErrorJSON
		data, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		if err == nil && json.Unmarshal(data, &details) == nil {
			apiErr.Code = details.Code
			apiErr.Message = strings.TrimSpace(details.Message)
			apiErr.Hint = details.Hint
		}
	}

	return apiErr
}
