package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/loykin/converge/internal/workload"
)

// Supervisor talks to one workload's supervisor agent over HTTP and
// satisfies the controller's supervisor surface. File content crosses
// the wire base64-encoded.
type Supervisor struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewSupervisor builds a Supervisor from client configuration. Only
// BaseURL is required.
func NewSupervisor(config Config) *Supervisor {
	c := New(config)
	return &Supervisor{baseURL: c.baseURL, client: c.client, logger: c.logger}
}

type fileBody struct {
	Path    string `json:"path"`
	Content string `json:"content,omitempty"`
	Owner   string `json:"owner,omitempty"`
	Group   string `json:"group,omitempty"`
	Perm    uint32 `json:"perm,omitempty"`
}

type dirBody struct {
	Path  string `json:"path"`
	Owner string `json:"owner,omitempty"`
	Group string `json:"group,omitempty"`
}

type serviceBody struct {
	Action string `json:"action"`
}

type execBody struct {
	Command []string `json:"command"`
	Timeout string   `json:"timeout,omitempty"`
}

func (s *Supervisor) CanConnect(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/health", nil)
	if err != nil {
		return false
	}
	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Debug("supervisor unreachable", "url", s.baseURL, "error", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}

func (s *Supervisor) PushFile(ctx context.Context, path string, data []byte, owner, group string, perm fs.FileMode) error {
	body := fileBody{
		Path:    path,
		Content: base64.StdEncoding.EncodeToString(data),
		Owner:   owner,
		Group:   group,
		Perm:    uint32(perm),
	}
	return s.post(ctx, "/v1/files", body, nil)
}

func (s *Supervisor) ReadFile(ctx context.Context, path string) ([]byte, error) {
	u := s.baseURL + "/v1/files?path=" + url.QueryEscape(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("read %s: %w", path, fs.ErrNotExist)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("read %s: HTTP %d", path, resp.StatusCode)
	}
	var body fileBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	data, err := base64.StdEncoding.DecodeString(body.Content)
	if err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}
	return data, nil
}

func (s *Supervisor) MakeDir(ctx context.Context, path, owner, group string) error {
	return s.post(ctx, "/v1/dirs", dirBody{Path: path, Owner: owner, Group: group}, nil)
}

func (s *Supervisor) Services(ctx context.Context) (map[string]workload.RunState, error) {
	var out map[string]workload.RunState
	if err := s.get(ctx, "/v1/services", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Supervisor) Start(ctx context.Context, name string) error {
	return s.serviceAction(ctx, name, "start")
}

func (s *Supervisor) Stop(ctx context.Context, name string) error {
	return s.serviceAction(ctx, name, "stop")
}

func (s *Supervisor) Restart(ctx context.Context, name string) error {
	return s.serviceAction(ctx, name, "restart")
}

func (s *Supervisor) serviceAction(ctx context.Context, name, action string) error {
	return s.post(ctx, "/v1/services/"+url.PathEscape(name), serviceBody{Action: action}, nil)
}

func (s *Supervisor) Exec(ctx context.Context, cmd []string, timeout time.Duration) (workload.ExecResult, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		// Local deadline slightly beyond the remote one so the agent
		// reports its own timeout first.
		ctx, cancel = context.WithTimeout(ctx, timeout+5*time.Second)
		defer cancel()
	}
	var out workload.ExecResult
	body := execBody{Command: cmd}
	if timeout > 0 {
		body.Timeout = timeout.String()
	}
	if err := s.post(ctx, "/v1/exec", body, &out); err != nil {
		return workload.ExecResult{}, err
	}
	return out, nil
}

func (s *Supervisor) Checks(ctx context.Context, level workload.CheckLevel) (map[string]workload.CheckStatus, error) {
	var out map[string]workload.CheckStatus
	if err := s.get(ctx, "/v1/checks?level="+url.QueryEscape(string(level)), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Supervisor) post(ctx context.Context, path string, body any, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("supervisor request failed", "path", path, "error", err)
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("supervisor %s: HTTP %d", path, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (s *Supervisor) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("supervisor %s: HTTP %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
