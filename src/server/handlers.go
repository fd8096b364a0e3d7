package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"request-monitor/src/helpers"
	"request-monitor/src/models"

	"github.com/gin-gonic/gin"
)

const (
	healthTimeout       = 2 * time.Second
	defaultHistoryLimit = 100
)

// Hour windows offered by the chart filter buttons.
var hourFilters = []int{1, 6, 24, 168}

var templateFuncs = template.FuncMap{
	"hoursLabel": func(h int) string {
		if h%24 == 0 {
			return fmt.Sprintf("%dd", h/24)
		}
		return fmt.Sprintf("%dh", h)
	},
}

// -----------------------------------------------------------------------------
// HTML Pages
// -----------------------------------------------------------------------------

func (s *DashboardServer) indexPage(c *gin.Context) {
	services, err := s.Renderer.Services(c.Request.Context())
	if err != nil {
		s.Logger.Warning("Service list unavailable: %v", err)
		services = []string{}
	}

	c.HTML(http.StatusOK, "index.html", gin.H{
		"Name":     s.Config.Name,
		"Pages":    s.Renderer.Pages(),
		"Services": services,
		"Service":  c.Query("service"),
	})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) chartPage(c *gin.Context) {
	page, err := s.Renderer.Page(c.Param("name"))
	if err != nil {
		c.HTML(statusFor(err), "error.html", gin.H{"Name": s.Config.Name, "Error": err.Error()})
		return
	}

	hours, err := queryInt(c, "hours", 0)
	if err == nil {
		hours, err = s.Renderer.ResolveHours(hours)
	}
	if err != nil {
		c.HTML(statusFor(err), "error.html", gin.H{"Name": s.Config.Name, "Error": err.Error()})
		return
	}

	c.HTML(http.StatusOK, "page.html", gin.H{
		"Name":        s.Config.Name,
		"Page":        page,
		"Pages":       s.Renderer.Pages(),
		"Service":     c.Query("service"),
		"Hours":       hours,
		"HourFilters": hourFilters,
	})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) logsPage(c *gin.Context) {
	c.HTML(http.StatusOK, "logs.html", gin.H{
		"Name":    s.Config.Name,
		"Pages":   s.Renderer.Pages(),
		"Service": c.Query("service"),
		"Columns": models.LogColumns,
	})
}

// -----------------------------------------------------------------------------
// REST API
// -----------------------------------------------------------------------------

func (s *DashboardServer) getPages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"pages": s.Renderer.Pages()})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getPage(c *gin.Context) {
	hours, err := queryInt(c, "hours", 0)
	if err != nil {
		writeError(c, err)
		return
	}

	payload, err := s.render(c.Request.Context(), c.Param("name"), c.Query("service"), hours)
	if err != nil {
		s.Logger.Warning("Render %s failed: %v", c.Param("name"), err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, payload)
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getServices(c *gin.Context) {
	services, err := s.Renderer.Services(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"services": services})
}

// -----------------------------------------------------------------------------

// getLogs speaks the DataTables server-side processing protocol.
func (s *DashboardServer) getLogs(c *gin.Context) {
	draw, _ := strconv.Atoi(c.Query("draw"))
	start, _ := strconv.Atoi(c.DefaultQuery("start", "0"))
	length, _ := strconv.Atoi(c.DefaultQuery("length", "0"))

	q := models.MLogQuery{
		Service:  c.Query("service"),
		Search:   c.Query("search[value]"),
		Start:    start,
		Length:   length,
		OrderDir: c.Query("order[0][dir]"),
	}
	if col, err := strconv.Atoi(c.Query("order[0][column]")); err == nil && col >= 0 && col < len(models.LogColumns) {
		q.OrderBy = models.LogColumns[col]
	}

	page, err := s.Renderer.Logs(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	page.Draw = draw
	c.JSON(http.StatusOK, page)
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getMetrics(c *gin.Context) {
	limit, err := queryInt(c, "limit", defaultHistoryLimit)
	if err != nil {
		writeError(c, err)
		return
	}

	pages := make(map[string]gin.H)
	for _, p := range s.Renderer.Pages() {
		renders, failures, avg := s.History.PageStats(p.Name)
		pages[p.Name] = gin.H{
			"renders":            renders,
			"failures":           failures,
			"avg_render_seconds": avg,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"recent": s.History.GetLatest(limit),
		"pages":  pages,
	})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getConfig(c *gin.Context) {
	names := make([]string, 0, len(s.Config.Pages))
	for _, p := range s.Config.Pages {
		names = append(names, p.Name)
	}

	refresh := 0.0
	if s.Scheduler != nil {
		refresh = s.Scheduler.NextInterval().Seconds()
	}

	c.JSON(http.StatusOK, gin.H{
		"pages":             names,
		"default_hours":     s.Config.DefaultHours,
		"hour_filters":      hourFilters,
		"refresh_seconds":   refresh,
		"density_threshold": s.Config.Aggregation.DensityThreshold,
		"tick_step":         s.Config.Aggregation.TickStep,
		"sort_mode":         s.Config.Aggregation.SortMode,
	})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getHealth(c *gin.Context) {
	s.clientsMu.RLock()
	connections := len(s.clients)
	s.clientsMu.RUnlock()

	status, dbStatus, code := "ok", "ok", http.StatusOK
	if s.Health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()
		if err := s.Health.Ping(ctx); err != nil {
			status, dbStatus, code = "degraded", err.Error(), http.StatusServiceUnavailable
		}
	}

	c.JSON(code, gin.H{
		"status":         status,
		"database":       dbStatus,
		"connections":    connections,
		"renders":        s.History.Size(),
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
	})
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func writeError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

// -----------------------------------------------------------------------------

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, helpers.NewValidationError(fmt.Sprintf("%s must be an integer", key))
	}
	return v, nil
}
