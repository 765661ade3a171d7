package converge

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	cfg "github.com/loykin/converge/internal/config"
	"github.com/loykin/converge/internal/controller"
	"github.com/loykin/converge/internal/deplink"
	"github.com/loykin/converge/internal/history"
	"github.com/loykin/converge/internal/history/factory"
	"github.com/loykin/converge/internal/metrics"
	"github.com/loykin/converge/internal/peers"
	iapi "github.com/loykin/converge/internal/server"
	"github.com/loykin/converge/internal/status"
	"github.com/loykin/converge/internal/store"
	tlsutil "github.com/loykin/converge/internal/tls"
	"github.com/loykin/converge/internal/workload"
	"github.com/loykin/converge/pkg/client"
	"github.com/loykin/converge/pkg/render"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type State = status.State

type Projection = status.Projection

type DepConfig = deplink.Config

type DepLink = deplink.Link

type FileConfig = cfg.FileConfig

type HistorySink = history.Sink

type OneShotJob = controller.OneShotJob

const (
	Active  = status.Active
	Waiting = status.Waiting
	Blocked = status.Blocked
)

// System is the assembled reconciliation daemon: store, dependency
// links, workload handles, jobs and sinks wired into one controller.
type System struct {
	fc       *cfg.FileConfig
	st       store.Store
	ctrl     *controller.Controller
	links    []deplink.Link
	channels map[string]*deplink.MemChannel
	peers    *peers.Coordinator
	sinks    []history.Sink
}

// LoadConfig parses and validates a TOML config file.
func LoadConfig(path string) (*cfg.FileConfig, error) {
	return cfg.Load(path)
}

// New assembles a System from a validated config.
func New(fc *cfg.FileConfig) (*System, error) {
	st, err := store.New(fc.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	var renderer render.Renderer
	if fc.Templates.Dir != "" {
		renderer = render.NewTemplateRenderer(os.DirFS(fc.Templates.Dir), fc.Templates.Variant)
	} else {
		renderer = render.Static(nil)
	}

	leader := fc.Leader

	registry := deplink.DefaultRegistry()
	channels := make(map[string]*deplink.MemChannel, len(fc.Dependencies))
	links := make([]deplink.Link, 0, len(fc.Dependencies))
	var coord *peers.Coordinator
	for _, dc := range fc.Dependencies {
		if dc.Variant == "" {
			dc.Variant = dc.Name
		}
		if dc.Variant == "peer-group" {
			// The peer group is backed by the coordinator rather than
			// a data channel; joining instances share its bag.
			bag := peers.NewMemBag(fc.Instance)
			bag.SetConnected(true)
			coord = peers.New(bag, func() bool { return leader })
			links = append(links, deplink.NewPeerGroup(dc.Name, dc.Mandatory, coord))
			continue
		}
		ch := deplink.NewMemChannel()
		link, err := registry.Build(dc, ch)
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("dependency %q: %w", dc.Name, err)
		}
		channels[dc.Name] = ch
		links = append(links, link)
	}

	handles := make(map[string]*workload.Handle, len(fc.Workloads))
	workloads := make([]*workload.Handle, 0, len(fc.Workloads))
	for _, wc := range fc.Workloads {
		sup := client.NewSupervisor(client.Config{BaseURL: wc.Endpoint})
		h := workload.NewHandle(wc.Name, sup, renderer, wc.Dirs, wc.Files, wc.Services)
		handles[wc.Name] = h
		workloads = append(workloads, h)
	}

	jobs := make([]controller.OneShotJob, 0, len(fc.Jobs))
	for _, jc := range fc.Jobs {
		jc := jc
		h := handles[jc.Workload]
		jobs = append(jobs, controller.OneShotJob{
			Label:      jc.Label,
			LeaderOnly: jc.LeaderOnly,
			Run: func(ctx context.Context) error {
				if h == nil {
					return fmt.Errorf("job %q has no workload to run in", jc.Label)
				}
				timeout := jc.Timeout
				if timeout == 0 {
					timeout = 5 * time.Minute
				}
				res, err := h.Exec(ctx, jc.Command, timeout)
				if err != nil {
					return err
				}
				if res.ExitCode != 0 {
					return fmt.Errorf("exit code %d: %s", res.ExitCode, res.Stderr)
				}
				return nil
			},
		})
	}

	sinks := make([]history.Sink, 0, len(fc.History.Sinks))
	for _, dsn := range fc.History.Sinks {
		sink, err := factory.NewSinkFromDSN(dsn)
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("history sink %q: %w", dsn, err)
		}
		sinks = append(sinks, sink)
	}

	ctrl := controller.New(controller.Config{
		Instance:  fc.Instance,
		Leader:    func() bool { return leader },
		Store:     st,
		Links:     links,
		Workloads: workloads,
		Jobs:      jobs,
		Peers:     coord,
		Sinks:     sinks,
	})

	s := &System{
		fc:       fc,
		st:       st,
		ctrl:     ctrl,
		links:    links,
		channels: channels,
		peers:    coord,
		sinks:    sinks,
	}

	// Data arriving on a channel has to drive a pass, otherwise the
	// daemon only reacts to explicit reconcile requests.
	for name, ch := range channels {
		ch.Subscribe(name+"-changed", func(trigger string) {
			s.ctrl.Reconcile(context.Background(), trigger)
		})
	}

	return s, nil
}

// Reconcile runs one pass and returns the resulting projection.
func (s *System) Reconcile(ctx context.Context, trigger string) Projection {
	return s.ctrl.Reconcile(ctx, trigger)
}

// Status returns the current projection without reconciling.
func (s *System) Status() Projection { return s.ctrl.Pool().Projection() }

// Summary returns the per-entry status pool dump.
func (s *System) Summary() string { return s.ctrl.Pool().Summarise() }

// Bootstrapped reports whether a pass has completed end to end.
func (s *System) Bootstrapped(ctx context.Context) bool { return s.ctrl.Bootstrapped(ctx) }

// Links returns the configured dependency links.
func (s *System) Links() []deplink.Link { return s.links }

// Peers returns the peer coordinator, or nil when no peer-group
// dependency is configured.
func (s *System) Peers() *peers.Coordinator { return s.peers }

// Feed publishes data for one dependency, the way the remote side of
// an integration would.
func (s *System) Feed(name string, values map[string]string) error {
	ch, ok := s.channels[name]
	if !ok {
		return fmt.Errorf("unknown dependency %q", name)
	}
	ch.Set(deplink.ScopeRemoteApp, values)
	return nil
}

// Serve starts the HTTP API on the configured listen address. With a
// certificate pair configured the server listens over TLS, generating
// a self-signed pair when neither file exists yet.
func (s *System) Serve() (*http.Server, error) {
	addr := s.fc.Server.Listen
	if addr == "" {
		addr = "127.0.0.1:8080"
	}
	sc := s.fc.Server
	if sc.TLSCert == "" && sc.TLSKey == "" {
		return iapi.NewServer(addr, "", s.ctrl, s.links, s)
	}
	if err := tlsutil.Ensure(sc.TLSCert, sc.TLSKey, s.fc.Instance); err != nil {
		return nil, err
	}
	return iapi.NewTLSServer(addr, "", sc.TLSCert, sc.TLSKey, s.ctrl, s.links, s)
}

// Close releases the store and any closable sinks.
func (s *System) Close() error {
	err := s.st.Close()
	for _, sink := range s.sinks {
		if c, ok := sink.(interface{ Close() error }); ok {
			_ = c.Close()
		}
	}
	return err
}

// RegisterMetrics registers the collectors on r.
func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
