package rootapi

import (
	"net/http"
	"runtime"

	"github.com/ferama/ptyctl/pkg/session"
	"github.com/gin-gonic/gin"
)

type rootRoutes struct {
	info    *Info
	manager *session.Manager
}

// Routes registers the informational endpoints on router
func Routes(info *Info, manager *session.Manager, router *gin.RouterGroup) {
	r := &rootRoutes{
		info:    info,
		manager: manager,
	}

	router.GET("/info", r.getInfo)
	router.GET("/stats", r.getStats)
}

func (r *rootRoutes) getInfo(c *gin.Context) {
	c.JSON(http.StatusOK, &infoResponse{
		Info:          r.info,
		CountSessions: r.manager.Len(),
	})
}

func (r *rootRoutes) getStats(c *gin.Context) {
	response := &statsResponse{}
	for _, s := range r.manager.List() {
		response.CountSessions++
		if !s.Exited() {
			response.CountRunningSessions++
		}
		if s.Attached() {
			response.CountAttachedSessions++
		}
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	response.NumGoroutine = runtime.NumGoroutine()
	response.MemTotal = m.Sys

	c.JSON(http.StatusOK, response)
}
