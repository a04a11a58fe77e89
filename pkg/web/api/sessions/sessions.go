package sessionsapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ferama/ptyctl/pkg/registry"
	"github.com/ferama/ptyctl/pkg/rpty"
	"github.com/ferama/ptyctl/pkg/session"
	"github.com/gin-gonic/gin"
)

// Routes registers the session endpoints on router
func Routes(manager *session.Manager, launch *session.LaunchConf, router *gin.RouterGroup) {
	r := &sessionsRoutes{
		manager: manager,
		launch:  launch,
	}

	router.GET("/", r.get)
	router.POST("/", r.post)
	router.GET("/:session-id", r.get)
	router.DELETE("/:session-id", r.delete)
	router.GET("/:session-id/size", r.getSize)
	router.PUT("/:session-id/size", r.putSize)
	router.POST("/:session-id/signal", r.postSignal)
	router.GET("/:session-id/wait", r.wait)
	router.GET("/:session-id/attach", r.attach)
}

type sessionsRoutes struct {
	manager *session.Manager
	launch  *session.LaunchConf
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, rpty.ErrInvalidSize),
		errors.Is(err, rpty.ErrExecFailed):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrClosed),
		errors.Is(err, session.ErrExited),
		errors.Is(err, session.ErrAttached):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}

func abort(c *gin.Context, err error) {
	c.JSON(errorStatus(err), gin.H{
		"error": err.Error(),
	})
}

func (r *sessionsRoutes) session(c *gin.Context) (*session.Session, bool) {
	id, err := strconv.Atoi(c.Param("session-id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
		return nil, false
	}
	s, err := r.manager.Get(id)
	if err != nil {
		abort(c, err)
		return nil, false
	}
	return s, true
}

func (r *sessionsRoutes) get(c *gin.Context) {
	if c.Param("session-id") == "" {
		res := []responseItem{}
		for _, s := range r.manager.List() {
			res = append(res, newResponseItem(s))
		}
		c.JSON(http.StatusOK, res)
		return
	}

	s, ok := r.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newResponseItem(s))
}

// Example curl:
// curl -X POST -H "Content-Type: application/json" --data '{"command": "top", "rows": 40, "cols": 120}' http://localhost:8090/api/sessions/
func (r *sessionsRoutes) post(c *gin.Context) {
	var body launchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	if body.Command == "" && len(body.Args) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "args given without a command",
		})
		return
	}
	var argv []string
	if body.Command != "" {
		argv = append([]string{body.Command}, body.Args...)
	}
	req, err := r.launch.Request(argv, body.Env)
	if err != nil {
		abort(c, err)
		return
	}
	if body.Dir != "" {
		req.Dir = body.Dir
	}
	rows, cols := int(req.Size.Rows), int(req.Size.Cols)
	if body.Rows != nil {
		rows = *body.Rows
	}
	if body.Cols != nil {
		cols = *body.Cols
	}
	if req.Size, err = rpty.NewWindowSize(rows, cols); err != nil {
		abort(c, err)
		return
	}

	s, err := r.manager.Start(req, session.Meta{
		Args:   req.Argv[1:],
		Origin: "http " + c.ClientIP(),
	})
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, newResponseItem(s))
}

func (r *sessionsRoutes) delete(c *gin.Context) {
	s, ok := r.session(c)
	if !ok {
		return
	}
	if err := r.manager.Remove(s.ID); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id": s.ID,
	})
}

func (r *sessionsRoutes) getSize(c *gin.Context) {
	s, ok := r.session(c)
	if !ok {
		return
	}
	size, err := s.Size()
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, size)
}

func (r *sessionsRoutes) putSize(c *gin.Context) {
	s, ok := r.session(c)
	if !ok {
		return
	}
	var body sizeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}
	size, err := rpty.NewWindowSize(*body.Rows, *body.Cols)
	if err != nil {
		abort(c, err)
		return
	}
	if err := s.Resize(size); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, size)
}

func (r *sessionsRoutes) postSignal(c *gin.Context) {
	s, ok := r.session(c)
	if !ok {
		return
	}
	var body signalRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}
	var name string
	switch v := body.Signal.(type) {
	case string:
		name = v
	case float64:
		name = strconv.Itoa(int(v))
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("invalid signal %v", body.Signal),
		})
		return
	}
	sig, err := rpty.ParseSignal(name)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}
	if err := s.Signal(sig); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"signal": rpty.SignalName(sig),
	})
}

// wait blocks until the process exits, the optional timeout expires or
// the client goes away
func (r *sessionsRoutes) wait(c *gin.Context) {
	s, ok := r.session(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if t := c.Query("timeout"); t != "" {
		timeout, err := time.ParseDuration(t)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": err.Error(),
			})
			return
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	status, err := s.Wait(ctx)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, newExitResponse(status))
}
