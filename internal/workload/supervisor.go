package workload

import (
	"context"
	"io/fs"
	"time"
)

// RunState is a supervised process state as reported by the
// supervisor.
type RunState string

const (
	StateRunning RunState = "running"
	StateStopped RunState = "stopped"
	StateError   RunState = "error"
)

// CheckLevel selects which health checks a query covers.
type CheckLevel string

const (
	CheckReady CheckLevel = "ready"
	CheckAlive CheckLevel = "alive"
)

// CheckStatus is the result of one periodic health probe.
type CheckStatus string

const (
	CheckUp   CheckStatus = "up"
	CheckDown CheckStatus = "down"
)

// ExecResult carries the outcome of a command run inside the
// workload.
type ExecResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

// Supervisor is the process/file RPC surface of one managed workload.
// Implementations are external collaborators (pkg/client ships an
// HTTP one); the core only orchestrates calls into it. All side
// effects are remote.
type Supervisor interface {
	// CanConnect reports transport reachability, the first of the two
	// independent readiness checks.
	CanConnect(ctx context.Context) bool

	PushFile(ctx context.Context, path string, data []byte, owner, group string, perm fs.FileMode) error
	// ReadFile returns the current content of path. A missing file is
	// reported via an error wrapping fs.ErrNotExist.
	ReadFile(ctx context.Context, path string) ([]byte, error)
	// MakeDir creates path with parents, idempotently.
	MakeDir(ctx context.Context, path, owner, group string) error

	Services(ctx context.Context) (map[string]RunState, error)
	Start(ctx context.Context, name string) error
	Stop(ctx context.Context, name string) error
	Restart(ctx context.Context, name string) error

	// Exec runs cmd with a bounded timeout. Expiry surfaces as an
	// error wrapping context.DeadlineExceeded.
	Exec(ctx context.Context, cmd []string, timeout time.Duration) (ExecResult, error)

	Checks(ctx context.Context, level CheckLevel) (map[string]CheckStatus, error)
}

// FileSpec declares one managed file. Template defaults to the file's
// base name when empty.
type FileSpec struct {
	Path     string      `toml:"path" yaml:"path" json:"path" mapstructure:"path"`
	Template string      `toml:"template,omitempty" yaml:"template,omitempty" json:"template,omitempty" mapstructure:"template"`
	Owner    string      `toml:"owner" yaml:"owner" json:"owner" mapstructure:"owner"`
	Group    string      `toml:"group" yaml:"group" json:"group" mapstructure:"group"`
	Perm     fs.FileMode `toml:"perm,omitempty" yaml:"perm,omitempty" json:"perm,omitempty" mapstructure:"perm"`
}

// DirSpec declares one directory created inside the workload.
type DirSpec struct {
	Path  string `toml:"path" yaml:"path" json:"path" mapstructure:"path"`
	Owner string `toml:"owner" yaml:"owner" json:"owner" mapstructure:"owner"`
	Group string `toml:"group" yaml:"group" json:"group" mapstructure:"group"`
}
