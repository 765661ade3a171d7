package workload

import (
	"context"
	"fmt"
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/loykin/converge/internal/status"
	"github.com/loykin/converge/internal/store"
	"github.com/loykin/converge/pkg/render"
)

type fakeSupervisor struct {
	reachable bool
	files     map[string][]byte
	dirs      map[string]bool
	services  map[string]RunState
	ready     map[string]CheckStatus
	alive     map[string]CheckStatus

	pushes   int
	restarts int
	starts   int
	stops    int
}

func newFakeSupervisor() *fakeSupervisor {
	return &fakeSupervisor{
		reachable: true,
		files:     map[string][]byte{},
		dirs:      map[string]bool{},
		services:  map[string]RunState{},
		ready:     map[string]CheckStatus{},
		alive:     map[string]CheckStatus{},
	}
}

func (f *fakeSupervisor) CanConnect(context.Context) bool { return f.reachable }

func (f *fakeSupervisor) PushFile(_ context.Context, path string, data []byte, _, _ string, _ fs.FileMode) error {
	f.files[path] = append([]byte(nil), data...)
	f.pushes++
	return nil
}

func (f *fakeSupervisor) ReadFile(_ context.Context, path string) ([]byte, error) {
	data, ok := f.files[path]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", path, fs.ErrNotExist)
	}
	return data, nil
}

func (f *fakeSupervisor) MakeDir(_ context.Context, path, _, _ string) error {
	f.dirs[path] = true
	return nil
}

func (f *fakeSupervisor) Services(context.Context) (map[string]RunState, error) {
	out := make(map[string]RunState, len(f.services))
	for k, v := range f.services {
		out[k] = v
	}
	return out, nil
}

func (f *fakeSupervisor) Start(_ context.Context, name string) error {
	f.services[name] = StateRunning
	f.starts++
	return nil
}

func (f *fakeSupervisor) Stop(_ context.Context, name string) error {
	f.services[name] = StateStopped
	f.stops++
	return nil
}

func (f *fakeSupervisor) Restart(_ context.Context, name string) error {
	f.services[name] = StateRunning
	f.restarts++
	return nil
}

func (f *fakeSupervisor) Exec(context.Context, []string, time.Duration) (ExecResult, error) {
	return ExecResult{Stdout: "ok"}, nil
}

func (f *fakeSupervisor) Checks(_ context.Context, level CheckLevel) (map[string]CheckStatus, error) {
	if level == CheckReady {
		return f.ready, nil
	}
	return f.alive, nil
}

func testHandle(sup Supervisor) *Handle {
	r := render.Static(map[string][]byte{
		"app.conf": []byte("listen = 8080\n"),
	})
	return NewHandle("app", sup, r,
		[]DirSpec{{Path: "/etc/app", Owner: "root", Group: "root"}},
		[]FileSpec{{Path: "/etc/app/app.conf", Owner: "root", Group: "root"}},
		[]string{"app"})
}

func TestHandleInitFirstRun(t *testing.T) {
	sup := newFakeSupervisor()
	h := testHandle(sup)

	require.NoError(t, h.Init(context.Background(), nil))
	require.True(t, sup.dirs["/etc/app"])
	require.Equal(t, "listen = 8080\n", string(sup.files["/etc/app/app.conf"]))
	require.Equal(t, 1, sup.pushes)
	require.Equal(t, 1, sup.starts)
	require.Equal(t, 0, sup.restarts)
	require.True(t, h.ServicesRunning(context.Background()))
}

func TestHandleInitIdempotent(t *testing.T) {
	sup := newFakeSupervisor()
	h := testHandle(sup)

	require.NoError(t, h.Init(context.Background(), nil))
	require.NoError(t, h.Init(context.Background(), nil))
	// Unchanged config must neither be rewritten nor trigger a restart.
	require.Equal(t, 1, sup.pushes)
	require.Equal(t, 0, sup.restarts)
	require.Equal(t, 1, sup.starts)
}

func TestHandleInitRestartsOnDrift(t *testing.T) {
	sup := newFakeSupervisor()
	h := testHandle(sup)

	require.NoError(t, h.Init(context.Background(), nil))
	sup.files["/etc/app/app.conf"] = []byte("listen = 9090\n")

	require.NoError(t, h.Init(context.Background(), nil))
	require.Equal(t, 2, sup.pushes)
	require.Equal(t, 1, sup.restarts)
	require.Equal(t, "listen = 8080\n", string(sup.files["/etc/app/app.conf"]))
}

func TestHandleInitStartsStoppedServiceWithoutDrift(t *testing.T) {
	sup := newFakeSupervisor()
	h := testHandle(sup)

	require.NoError(t, h.Init(context.Background(), nil))
	sup.services["app"] = StateStopped

	require.NoError(t, h.Init(context.Background(), nil))
	require.Equal(t, 2, sup.starts)
	require.Equal(t, 0, sup.restarts)
}

func TestHandleStopAll(t *testing.T) {
	sup := newFakeSupervisor()
	h := testHandle(sup)

	require.NoError(t, h.Init(context.Background(), nil))
	require.NoError(t, h.StopAll(context.Background()))
	require.Equal(t, StateStopped, sup.services["app"])
	require.False(t, h.ServicesRunning(context.Background()))
}

func bindEntry(t *testing.T, h *Handle) (*status.Pool, *status.Entry) {
	t.Helper()
	pool := status.NewPool(store.NewMemoryStore())
	e := status.NewEntry(h.StatusLabel(), 50)
	pool.Add(e)
	h.BindStatus(e)
	return pool, e
}

func TestHandleAssess(t *testing.T) {
	sup := newFakeSupervisor()
	h := testHandle(sup)
	pool, _ := bindEntry(t, h)
	require.NoError(t, h.Init(context.Background(), nil))

	h.Assess(context.Background())
	require.Equal(t, status.Active, pool.Projection().State)

	sup.ready["online"] = CheckDown
	h.Assess(context.Background())
	p := pool.Projection()
	require.Equal(t, status.Blocked, p.State)
	require.Contains(t, p.Message, "healthcheck failed: online")

	sup.ready = map[string]CheckStatus{}
	sup.alive["up"] = CheckDown
	h.Assess(context.Background())
	require.Equal(t, status.Blocked, pool.Projection().State)

	sup.alive = map[string]CheckStatus{}
	sup.reachable = false
	h.Assess(context.Background())
	p = pool.Projection()
	require.Equal(t, status.Waiting, p.State)
	require.Contains(t, p.Message, "waiting for workload")
}

func TestHandleAssessServicesNotRunning(t *testing.T) {
	sup := newFakeSupervisor()
	h := testHandle(sup)
	pool, _ := bindEntry(t, h)
	sup.services["app"] = StateStopped

	h.Assess(context.Background())
	p := pool.Projection()
	require.Equal(t, status.Waiting, p.State)
	require.Contains(t, p.Message, "services not running")
}

func TestHandleExec(t *testing.T) {
	sup := newFakeSupervisor()
	h := testHandle(sup)

	res, err := h.Exec(context.Background(), []string{"true"}, time.Second)
	require.NoError(t, err)
	require.Equal(t, 0, res.ExitCode)
	require.Equal(t, "ok", res.Stdout)
}
