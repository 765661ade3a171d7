package workload

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"time"

	"github.com/loykin/converge/internal/metrics"
	"github.com/loykin/converge/internal/status"
	"github.com/loykin/converge/pkg/render"
)

// Handle drives one supervised workload: it materialises declared
// directories and rendered files, keeps the service set running and
// translates health probes into a status entry.
type Handle struct {
	name     string
	sup      Supervisor
	renderer render.Renderer
	files    []FileSpec
	dirs     []DirSpec
	services []string
	entry    *status.Entry
}

func NewHandle(name string, sup Supervisor, renderer render.Renderer, dirs []DirSpec, files []FileSpec, services []string) *Handle {
	return &Handle{
		name:     name,
		sup:      sup,
		renderer: renderer,
		dirs:     dirs,
		files:    files,
		services: services,
	}
}

func (h *Handle) Name() string { return h.name }

// BindStatus attaches the pool entry this handle reports through.
func (h *Handle) BindStatus(e *status.Entry) { h.entry = e }

// StatusLabel is the pool label workload entries register under.
func (h *Handle) StatusLabel() string { return "workload:" + h.name }

// Reachable reports whether the supervisor endpoint answers.
func (h *Handle) Reachable(ctx context.Context) bool {
	return h.sup.CanConnect(ctx)
}

// Init converges the workload onto its declared state: directories
// first, then files, then services. Files are rendered from templates
// and compared against the live content; only a differing file is
// pushed. Running services restart only when at least one file
// changed, stopped services are started regardless.
func (h *Handle) Init(ctx context.Context, tctx any) error {
	for _, d := range h.dirs {
		if err := h.sup.MakeDir(ctx, d.Path, d.Owner, d.Group); err != nil {
			return fmt.Errorf("workload %s: mkdir %s: %w", h.name, d.Path, err)
		}
	}

	changed, err := h.writeFiles(ctx, tctx)
	if err != nil {
		return err
	}

	states, err := h.sup.Services(ctx)
	if err != nil {
		return fmt.Errorf("workload %s: list services: %w", h.name, err)
	}
	for _, svc := range h.services {
		switch {
		case states[svc] != StateRunning:
			if err := h.sup.Start(ctx, svc); err != nil {
				return fmt.Errorf("workload %s: start %s: %w", h.name, svc, err)
			}
		case changed:
			if err := h.sup.Restart(ctx, svc); err != nil {
				return fmt.Errorf("workload %s: restart %s: %w", h.name, svc, err)
			}
			metrics.IncRestart(h.name)
		}
	}
	return nil
}

// writeFiles renders every declared file and pushes the ones whose
// live content differs. Reports whether anything was written.
func (h *Handle) writeFiles(ctx context.Context, tctx any) (bool, error) {
	changed := false
	for _, f := range h.files {
		tmpl := f.Template
		if tmpl == "" {
			tmpl = path.Base(f.Path)
		}
		data, err := h.renderer.Render(tmpl, tctx)
		if err != nil {
			return changed, fmt.Errorf("workload %s: render %s: %w", h.name, tmpl, err)
		}
		cur, err := h.sup.ReadFile(ctx, f.Path)
		if err == nil && string(cur) == string(data) {
			continue
		}
		perm := f.Perm
		if perm == 0 {
			perm = 0o640
		}
		if err := h.sup.PushFile(ctx, f.Path, data, f.Owner, f.Group, perm); err != nil {
			return changed, fmt.Errorf("workload %s: push %s: %w", h.name, f.Path, err)
		}
		metrics.IncFileWritten(h.name)
		changed = true
	}
	return changed, nil
}

// ServicesRunning reports whether every declared service is running.
func (h *Handle) ServicesRunning(ctx context.Context) bool {
	states, err := h.sup.Services(ctx)
	if err != nil {
		slog.Warn("workload service query failed", "workload", h.name, "error", err)
		return false
	}
	for _, svc := range h.services {
		if states[svc] != StateRunning {
			return false
		}
	}
	return true
}

// StopAll stops every declared service. Used when a mandatory
// dependency disappears.
func (h *Handle) StopAll(ctx context.Context) error {
	for _, svc := range h.services {
		if err := h.sup.Stop(ctx, svc); err != nil {
			return fmt.Errorf("workload %s: stop %s: %w", h.name, svc, err)
		}
	}
	return nil
}

// Exec runs cmd inside the workload.
func (h *Handle) Exec(ctx context.Context, cmd []string, timeout time.Duration) (ExecResult, error) {
	return h.sup.Exec(ctx, cmd, timeout)
}

// Assess folds the workload's health into its status entry. Ready
// checks take precedence; when none are configured the alive checks
// are consulted instead. An unreachable supervisor is Waiting, a
// failing check is Blocked.
func (h *Handle) Assess(ctx context.Context) {
	if h.entry == nil {
		return
	}
	if !h.sup.CanConnect(ctx) {
		h.entry.Set(status.Waiting, "waiting for workload")
		return
	}
	ready, err := h.sup.Checks(ctx, CheckReady)
	if err != nil {
		slog.Warn("workload check query failed", "workload", h.name, "error", err)
	}
	checks := ready
	if len(ready) == 0 {
		checks, err = h.sup.Checks(ctx, CheckAlive)
		if err != nil {
			slog.Warn("workload check query failed", "workload", h.name, "error", err)
		}
	}
	if name, ok := firstDown(checks); ok {
		h.entry.Set(status.Blocked, "healthcheck failed: "+name)
		return
	}
	if !h.ServicesRunning(ctx) {
		h.entry.Set(status.Waiting, "services not running")
		return
	}
	h.entry.Set(status.Active, "")
}

// firstDown returns the alphabetically first failing check so the
// reported message is stable between passes.
func firstDown(checks map[string]CheckStatus) (string, bool) {
	var down []string
	for name, st := range checks {
		if st == CheckDown {
			down = append(down, name)
		}
	}
	if len(down) == 0 {
		return "", false
	}
	sort.Strings(down)
	return down[0], true
}
