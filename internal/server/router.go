package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loykin/converge/internal/controller"
	"github.com/loykin/converge/internal/deplink"
	"github.com/loykin/converge/internal/metrics"
)

// DepFeeder accepts dependency data pushed through the API, the way
// an external integration would publish its connection details.
type DepFeeder interface {
	Feed(name string, values map[string]string) error
}

// Router provides embeddable HTTP handlers for driving reconciliation.
// Endpoints:
//
//	POST {basePath}/reconcile    query: trigger=... (default "api")
//	GET  {basePath}/status       projection plus bootstrap flag
//	GET  {basePath}/summary      plain-text status pool dump
//	GET  {basePath}/deps         dependency readiness listing
//	POST {basePath}/deps/:name   body: JSON object of key/value data
//	GET  {basePath}/healthz
//	GET  {basePath}/metrics
//
// basePath may be empty or start with '/'; no trailing slash.
type Router struct {
	ctrl     *controller.Controller
	links    []deplink.Link
	feeder   DepFeeder
	basePath string
}

// NewRouter constructs a new Router with configurable basePath.
// feeder may be nil, which disables the dependency feed endpoint.
func NewRouter(ctrl *controller.Controller, links []deplink.Link, feeder DepFeeder, basePath string) *Router {
	return &Router{ctrl: ctrl, links: links, feeder: feeder, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin that can be mounted
// in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.POST("/reconcile", r.handleReconcile)
	group.GET("/status", r.handleStatus)
	group.GET("/summary", r.handleSummary)
	group.GET("/deps", r.handleDeps)
	group.POST("/deps/:name", r.handleFeedDep)
	group.GET("/healthz", r.handleHealthz)
	group.GET("/metrics", gin.WrapH(metrics.Handler()))
	return g
}

// NewServer starts a standalone HTTP server on addr using this
// router. Call Close or Shutdown on the returned server to stop it.
func NewServer(addr, basePath string, ctrl *controller.Controller, links []deplink.Link, feeder DepFeeder) (*http.Server, error) {
	r := NewRouter(ctrl, links, feeder, basePath)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server, nil
}

// NewTLSServer is NewServer over TLS with the given certificate pair.
func NewTLSServer(addr, basePath, certFile, keyFile string, ctrl *controller.Controller, links []deplink.Link, feeder DepFeeder) (*http.Server, error) {
	r := NewRouter(ctrl, links, feeder, basePath)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServeTLS(certFile, keyFile) }()
	return server, nil
}

type errorResp struct {
	Error string `json:"error"`
}

type statusResp struct {
	State        string `json:"state"`
	Message      string `json:"message"`
	Bootstrapped bool   `json:"bootstrapped"`
}

type depResp struct {
	Name      string `json:"name"`
	Mandatory bool   `json:"mandatory"`
	Ready     bool   `json:"ready"`
}

func (r *Router) handleReconcile(c *gin.Context) {
	trigger := c.Query("trigger")
	if trigger == "" {
		trigger = "api"
	}
	if !isSafeTrigger(trigger) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid trigger: allowed [A-Za-z0-9._-]"})
		return
	}
	proj := r.ctrl.Reconcile(c.Request.Context(), trigger)
	writeJSON(c, http.StatusOK, statusResp{
		State:        string(proj.State),
		Message:      proj.Message,
		Bootstrapped: r.ctrl.Bootstrapped(c.Request.Context()),
	})
}

func (r *Router) handleStatus(c *gin.Context) {
	proj := r.ctrl.Pool().Projection()
	writeJSON(c, http.StatusOK, statusResp{
		State:        string(proj.State),
		Message:      proj.Message,
		Bootstrapped: r.ctrl.Bootstrapped(c.Request.Context()),
	})
}

func (r *Router) handleSummary(c *gin.Context) {
	c.String(http.StatusOK, r.ctrl.Pool().Summarise())
}

func (r *Router) handleDeps(c *gin.Context) {
	out := make([]depResp, 0, len(r.links))
	for _, l := range r.links {
		out = append(out, depResp{Name: l.Name(), Mandatory: l.Mandatory(), Ready: l.Ready()})
	}
	writeJSON(c, http.StatusOK, out)
}

func (r *Router) handleFeedDep(c *gin.Context) {
	if r.feeder == nil {
		writeJSON(c, http.StatusNotImplemented, errorResp{Error: "dependency feed not enabled"})
		return
	}
	name := c.Param("name")
	var values map[string]string
	if err := c.ShouldBindJSON(&values); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if err := r.feeder.Feed(name, values); err != nil {
		writeJSON(c, http.StatusNotFound, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, map[string]bool{"ok": true})
}

func (r *Router) handleHealthz(c *gin.Context) {
	writeJSON(c, http.StatusOK, map[string]bool{"ok": true})
}
