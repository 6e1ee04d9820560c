// Package server exposes the supervisor over the daemon's IPC endpoint as a
// small JSON API. On POSIX the endpoint is a unix socket under the data
// directory; on Windows it is loopback TCP. The CLI client is the only
// expected consumer.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gpm-project/gpm/internal/metrics"
	"github.com/gpm-project/gpm/internal/process"
	"github.com/gpm-project/gpm/internal/supervisor"
)

// Router wires the supervisor's operations into HTTP handlers.
// Endpoints under /api:
//
//	POST /start       body: Spec JSON
//	POST /stop        query: name=...&wait=1s (wait optional)
//	POST /restart     query: name=...
//	POST /reload      body: Spec JSON (name must exist)
//	POST /delete      query: name=...
//	POST /save
//	POST /resurrect
//	POST /kill        shuts the daemon down
//	GET  /list
//	GET  /show        query: name=...
//	GET  /logs        query: name=...&lines=20 or follow=1 (text stream)
//	GET  /status      daemon health summary
//
// plus GET /metrics for Prometheus.
type Router struct {
	sup       *supervisor.Supervisor
	startedAt time.Time
	kill      func() // requests daemon shutdown; may be nil
}

func NewRouter(sup *supervisor.Supervisor, kill func()) *Router {
	return &Router{sup: sup, startedAt: time.Now(), kill: kill}
}

// Handler returns the gin handler serving the API.
func (r *Router) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	g := gin.New()
	g.Use(gin.Recovery())
	api := g.Group("/api")
	api.POST("/start", r.handleStart)
	api.POST("/stop", r.handleStop)
	api.POST("/restart", r.handleRestart)
	api.POST("/reload", r.handleReload)
	api.POST("/delete", r.handleDelete)
	api.POST("/save", r.handleSave)
	api.POST("/resurrect", r.handleResurrect)
	api.POST("/kill", r.handleKill)
	api.GET("/list", r.handleList)
	api.GET("/show", r.handleShow)
	api.GET("/logs", r.handleLogs)
	api.GET("/status", r.handleStatus)
	g.GET("/metrics", gin.WrapH(metrics.Handler()))
	return g
}

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

// statusCode maps supervisor errors onto HTTP statuses so the client can
// distinguish "no such process" from bad requests.
func statusCode(err error) int {
	switch {
	case errors.Is(err, supervisor.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, supervisor.ErrAlreadyRunning),
		errors.Is(err, supervisor.ErrTooManyProcesses):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func fail(c *gin.Context, err error) {
	c.JSON(statusCode(err), errorResp{Error: err.Error()})
}

func ok(c *gin.Context) {
	c.JSON(http.StatusOK, okResp{OK: true})
}

// bindSpec decodes and sanity-checks a spec body. Name validation guards the
// filenames derived from it.
func bindSpec(c *gin.Context) (process.Spec, bool) {
	var spec process.Spec
	if err := c.ShouldBindJSON(&spec); err != nil {
		c.JSON(http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return spec, false
	}
	if spec.Name == "" {
		spec.Name = process.DefaultName(spec.Command)
	}
	if !isSafeName(spec.Name) {
		c.JSON(http.StatusBadRequest, errorResp{Error: "invalid name: allowed [A-Za-z0-9._-]"})
		return spec, false
	}
	return spec, true
}

func requireName(c *gin.Context) (string, bool) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, errorResp{Error: "name query param required"})
		return "", false
	}
	if !isSafeName(name) {
		c.JSON(http.StatusBadRequest, errorResp{Error: "invalid name: allowed [A-Za-z0-9._-]"})
		return "", false
	}
	return name, true
}

func (r *Router) handleStart(c *gin.Context) {
	spec, okSpec := bindSpec(c)
	if !okSpec {
		return
	}
	if err := r.sup.Start(spec); err != nil {
		fail(c, err)
		return
	}
	ok(c)
}

func (r *Router) handleStop(c *gin.Context) {
	name, okName := requireName(c)
	if !okName {
		return
	}
	var wait time.Duration
	if s := c.Query("wait"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResp{Error: "invalid wait: " + err.Error()})
			return
		}
		wait = d
	}
	if err := r.sup.Stop(name, wait); err != nil {
		fail(c, err)
		return
	}
	ok(c)
}

func (r *Router) handleRestart(c *gin.Context) {
	name, okName := requireName(c)
	if !okName {
		return
	}
	if err := r.sup.Restart(name); err != nil {
		fail(c, err)
		return
	}
	ok(c)
}

func (r *Router) handleReload(c *gin.Context) {
	spec, okSpec := bindSpec(c)
	if !okSpec {
		return
	}
	if err := r.sup.Reload(spec); err != nil {
		fail(c, err)
		return
	}
	ok(c)
}

func (r *Router) handleDelete(c *gin.Context) {
	name, okName := requireName(c)
	if !okName {
		return
	}
	if err := r.sup.Delete(name); err != nil {
		fail(c, err)
		return
	}
	ok(c)
}

func (r *Router) handleSave(c *gin.Context) {
	if err := r.sup.Save(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	ok(c)
}

type resurrectResp struct {
	OK      bool `json:"ok"`
	Started int  `json:"started"`
}

func (r *Router) handleResurrect(c *gin.Context) {
	started, err := r.sup.Resurrect(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resurrectResp{OK: true, Started: started})
}

func (r *Router) handleKill(c *gin.Context) {
	if r.kill == nil {
		c.JSON(http.StatusBadRequest, errorResp{Error: "daemon shutdown not available"})
		return
	}
	ok(c)
	// Reply first, then shut down, so the client sees the acknowledgement.
	go r.kill()
}

func (r *Router) handleList(c *gin.Context) {
	c.JSON(http.StatusOK, r.sup.List())
}

func (r *Router) handleShow(c *gin.Context) {
	name, okName := requireName(c)
	if !okName {
		return
	}
	st, err := r.sup.Info(name)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

type logsResp struct {
	Name  string   `json:"name"`
	Lines []string `json:"lines"`
}

func (r *Router) handleLogs(c *gin.Context) {
	name, okName := requireName(c)
	if !okName {
		return
	}
	if c.Query("follow") == "1" || c.Query("follow") == "true" {
		r.followLogs(c, name)
		return
	}
	n := 20
	if s := c.Query("lines"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, errorResp{Error: "invalid lines: must be a positive integer"})
			return
		}
		n = v
	}
	lines, err := r.sup.Logs(name, n)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, logsResp{Name: name, Lines: lines})
}

// followLogs streams newline-delimited text until the client disconnects or
// the process is deleted.
func (r *Router) followLogs(c *gin.Context, name string) {
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	ch, err := r.sup.Follow(ctx, name)
	if err != nil {
		fail(c, err)
		return
	}
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Status(http.StatusOK)
	c.Stream(func(w io.Writer) bool {
		select {
		case line, open := <-ch:
			if !open {
				return false
			}
			_, werr := io.WriteString(w, line+"\n")
			return werr == nil
		case <-ctx.Done():
			return false
		}
	})
}

type daemonStatus struct {
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
	Uptime    string    `json:"uptime"`
	Processes int       `json:"processes"`
	Version   string    `json:"version"`
}

// Version is stamped by the build; the default marks development builds.
var Version = "dev"

func (r *Router) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, daemonStatus{
		PID:       os.Getpid(),
		StartedAt: r.startedAt,
		Uptime:    time.Since(r.startedAt).Round(time.Second).String(),
		Processes: r.sup.Count(),
		Version:   Version,
	})
}
