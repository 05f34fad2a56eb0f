package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/danmuck/armctl/internal/arm"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	r := s.router
	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	r.GET("/metrics/snapshot", func(c *gin.Context) {
		snap := s.src.MetricsSnapshot()
		c.JSON(http.StatusOK, gin.H{
			"counters":       snap,
			"overwrite_rate": snap.OverwriteRate(),
			"rx_filter_rate": snap.RxFilterRate(),
		})
	})

	st := r.Group("/state")
	st.GET("/joints", s.read(func(_ *gin.Context, st *arm.State) (any, bool) {
		return st.JointPositions()
	}))
	st.GET("/pose", s.read(func(_ *gin.Context, st *arm.State) (any, bool) {
		return st.EndPose()
	}))
	st.GET("/motors", s.read(func(_ *gin.Context, st *arm.State) (any, bool) {
		return st.MotorFeedback()
	}))
	st.GET("/status", s.read(func(_ *gin.Context, st *arm.State) (any, bool) {
		v, ok := st.ArmStatus()
		return gin.H{"status": v, "fault": v.Fault()}, ok
	}))
	st.GET("/gripper", s.read(func(_ *gin.Context, st *arm.State) (any, bool) {
		return st.Gripper()
	}))
	st.GET("/drivers/:joint", func(c *gin.Context) {
		joint, err := strconv.Atoi(c.Param("joint"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "joint must be a number"})
			return
		}
		s.read(func(_ *gin.Context, st *arm.State) (any, bool) {
			return st.DriverInfo(joint)
		})(c)
	})
	st.GET("/limits", s.read(func(_ *gin.Context, st *arm.State) (any, bool) {
		return st.JointLimits()
	}))
	st.GET("/firmware", s.read(func(_ *gin.Context, st *arm.State) (any, bool) {
		return st.Firmware()
	}))
}

// read serves one state value. A stopped driver answers 503 rather than
// its last values.
func (s *Server) read(get func(c *gin.Context, st *arm.State) (any, bool)) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := s.src.ReadState()
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		v, ok := get(c, st)
		respond(c, v, ok)
	}
}

func (s *Server) health(c *gin.Context) {
	h := s.src.HealthCheck()
	body := gin.H{
		"session":        s.src.SessionID().String(),
		"running":        h.Running,
		"rx_alive":       h.RxAlive,
		"tx_alive":       h.TxAlive,
		"bottleneck":     h.Bottleneck,
		"overwrite_rate": h.OverwriteRate,
		"uptime":         time.Since(s.started).String(),
		"version":        s.opts.Version,
	}
	if h.Err != nil {
		body["error"] = h.Err.Error()
	}
	status := http.StatusOK
	if !h.Running {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, body)
}

// respond writes v, or 404 while the value has never been received.
func respond(c *gin.Context, v any, ok bool) {
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not yet received"})
		return
	}
	c.JSON(http.StatusOK, v)
}
