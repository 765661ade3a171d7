package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/loykin/converge/internal/deplink"
	"github.com/loykin/converge/internal/logger"
	"github.com/loykin/converge/internal/store"
	"github.com/loykin/converge/internal/workload"
)

// FileConfig represents the top-level TOML structure.
type FileConfig struct {
	Instance     string           `toml:"instance" mapstructure:"instance"`
	Leader       bool             `toml:"leader" mapstructure:"leader"`
	Log          logger.Config    `toml:"log" mapstructure:"log"`
	Store        store.Config     `toml:"store" mapstructure:"store"`
	Server       ServerConfig     `toml:"server" mapstructure:"server"`
	Templates    TemplatesConfig  `toml:"templates" mapstructure:"templates"`
	History      HistoryConfig    `toml:"history" mapstructure:"history"`
	Dependencies []deplink.Config `toml:"dependencies" mapstructure:"dependencies"`
	Workloads    []WorkloadConfig `toml:"workloads" mapstructure:"workloads"`
	Jobs         []JobConfig      `toml:"jobs" mapstructure:"jobs"`
}

type ServerConfig struct {
	Listen  string `toml:"listen" mapstructure:"listen"`
	TLSCert string `toml:"tls_cert" mapstructure:"tls_cert"`
	TLSKey  string `toml:"tls_key" mapstructure:"tls_key"`
}

type TemplatesConfig struct {
	Dir     string `toml:"dir" mapstructure:"dir"`
	Variant string `toml:"variant" mapstructure:"variant"`
}

type HistoryConfig struct {
	Sinks []string `toml:"sinks" mapstructure:"sinks"`
}

type WorkloadConfig struct {
	Name     string              `toml:"name" mapstructure:"name"`
	Endpoint string              `toml:"endpoint" mapstructure:"endpoint"`
	Dirs     []workload.DirSpec  `toml:"dirs" mapstructure:"dirs"`
	Files    []workload.FileSpec `toml:"files" mapstructure:"files"`
	Services []string            `toml:"services" mapstructure:"services"`
}

// JobConfig declares a run-once job executed inside a workload.
type JobConfig struct {
	Label      string        `toml:"label" mapstructure:"label"`
	Workload   string        `toml:"workload" mapstructure:"workload"`
	Command    []string      `toml:"command" mapstructure:"command"`
	LeaderOnly bool          `toml:"leader_only" mapstructure:"leader_only"`
	Timeout    time.Duration `toml:"timeout" mapstructure:"timeout"`
}

// Load parses path into a FileConfig and validates it.
func Load(path string) (*FileConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, err
	}
	if err := fc.Validate(); err != nil {
		return nil, err
	}
	return &fc, nil
}

// Validate checks cross-field constraints the TOML schema cannot
// express.
func (fc *FileConfig) Validate() error {
	if fc.Instance == "" {
		return fmt.Errorf("instance is required")
	}
	names := make(map[string]bool, len(fc.Workloads))
	for _, w := range fc.Workloads {
		if w.Name == "" {
			return fmt.Errorf("workload requires a name")
		}
		if names[w.Name] {
			return fmt.Errorf("duplicate workload %q", w.Name)
		}
		names[w.Name] = true
		if w.Endpoint == "" {
			return fmt.Errorf("workload %q requires an endpoint", w.Name)
		}
	}
	depNames := make(map[string]bool, len(fc.Dependencies))
	for _, d := range fc.Dependencies {
		if d.Name == "" {
			return fmt.Errorf("dependency requires a name")
		}
		if depNames[d.Name] {
			return fmt.Errorf("duplicate dependency %q", d.Name)
		}
		depNames[d.Name] = true
	}
	labels := make(map[string]bool, len(fc.Jobs))
	for _, j := range fc.Jobs {
		if j.Label == "" {
			return fmt.Errorf("job requires a label")
		}
		if labels[j.Label] {
			return fmt.Errorf("duplicate job %q", j.Label)
		}
		labels[j.Label] = true
		if len(j.Command) == 0 {
			return fmt.Errorf("job %q requires a command", j.Label)
		}
		if j.Workload != "" && !names[j.Workload] {
			return fmt.Errorf("job %q references unknown workload %q", j.Label, j.Workload)
		}
	}
	return nil
}
