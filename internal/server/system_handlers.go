package server

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/aristath/trendtrack/internal/database"
	"github.com/aristath/trendtrack/internal/modules/watchlist"
	"github.com/aristath/trendtrack/internal/scheduler"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemHandlers handles process monitoring and job trigger endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	demoMode    bool
	startupTime time.Time
	store       *watchlist.Store
	scheduler   *scheduler.Scheduler
	databases   []*database.DB

	// Swapped in tests so status calls don't block on CPU sampling
	systemStats func() (float64, float64)
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(
	log zerolog.Logger,
	dataDir string,
	demoMode bool,
	store *watchlist.Store,
	sched *scheduler.Scheduler,
	databases ...*database.DB,
) *SystemHandlers {
	h := &SystemHandlers{
		log:         log.With().Str("handler", "system").Logger(),
		dataDir:     dataDir,
		demoMode:    demoMode,
		startupTime: time.Now(),
		store:       store,
		scheduler:   sched,
		databases:   databases,
	}
	h.systemStats = h.getSystemStats
	return h
}

// SystemStatusResponse represents system status
type SystemStatusResponse struct {
	Status         string  `json:"status"`
	CPUPercent     float64 `json:"cpu_percent"`
	MemoryPercent  float64 `json:"memory_percent"`
	UptimeSeconds  int64   `json:"uptime_seconds"`
	DemoMode       bool    `json:"demo_mode"`
	SessionID      string  `json:"session_id"`
	TrackedSymbols int     `json:"tracked_symbols"`
	ActiveSymbol   string  `json:"active_symbol,omitempty"`
	Initialized    bool    `json:"initialized"`
}

// JobsStatusResponse represents scheduler job status
type JobsStatusResponse struct {
	TotalJobs int       `json:"total_jobs"`
	Jobs      []JobInfo `json:"jobs"`
}

// JobInfo represents information about a single job
type JobInfo struct {
	Name     string `json:"name"`
	Schedule string `json:"schedule"`
	LastRun  string `json:"last_run,omitempty"`
	NextRun  string `json:"next_run,omitempty"`
}

// DatabaseStatsResponse represents database statistics
type DatabaseStatsResponse struct {
	Databases   []DBInfo `json:"databases"`
	TotalSizeMB float64  `json:"total_size_mb"`
	LastChecked string   `json:"last_checked"`
}

// DBInfo represents information about a database
type DBInfo struct {
	Name      string  `json:"name"`
	Path      string  `json:"path"`
	SizeMB    float64 `json:"size_mb"`
	WALSizeMB float64 `json:"wal_size_mb"`
	PageCount int64   `json:"page_count"`
}

// DiskUsageResponse represents disk usage
type DiskUsageResponse struct {
	DataDirMB float64 `json:"data_dir_mb"`
	LogsDirMB float64 `json:"logs_dir_mb"`
	TotalMB   float64 `json:"total_mb"`
}

// HandleSystemStatus returns process and watchlist status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.systemStats()
	snap := h.store.Snapshot()

	writeJSON(w, h.log, http.StatusOK, SystemStatusResponse{
		Status:         "healthy",
		CPUPercent:     cpuPercent,
		MemoryPercent:  memPercent,
		UptimeSeconds:  int64(time.Since(h.startupTime).Seconds()),
		DemoMode:       h.demoMode,
		SessionID:      snap.SessionID,
		TrackedSymbols: len(snap.Stocks),
		ActiveSymbol:   snap.ActiveSymbol,
		Initialized:    snap.Initialized,
	})
}

// HandleJobsStatus returns scheduler job status
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting jobs status")

	jobs := []JobInfo{}
	for _, info := range h.scheduler.Jobs() {
		job := JobInfo{Name: info.Name, Schedule: info.Schedule}
		if !info.Prev.IsZero() {
			job.LastRun = info.Prev.Format(time.RFC3339)
		}
		if !info.Next.IsZero() {
			job.NextRun = info.Next.Format(time.RFC3339)
		}
		jobs = append(jobs, job)
	}

	writeJSON(w, h.log, http.StatusOK, JobsStatusResponse{
		TotalJobs: len(jobs),
		Jobs:      jobs,
	})
}

// HandleTriggerJob runs a registered job immediately
// POST /api/jobs/{name}
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	registered := false
	for _, info := range h.scheduler.Jobs() {
		if info.Name == name {
			registered = true
			break
		}
	}
	if !registered {
		writeJSON(w, h.log, http.StatusNotFound, map[string]string{
			"status":  "error",
			"message": "Job not registered: " + name,
		})
		return
	}

	h.log.Info().Str("job", name).Msg("Manual job trigger")

	if err := h.scheduler.RunNow(name); err != nil {
		h.log.Error().Err(err).Str("job", name).Msg("Manual job failed")
		writeJSON(w, h.log, http.StatusInternalServerError, map[string]string{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}

	writeJSON(w, h.log, http.StatusOK, map[string]string{
		"status":  "success",
		"message": name + " completed successfully",
	})
}

// HandleDatabaseStats returns database statistics
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting database stats")

	databases := []DBInfo{}
	totalSizeMB := 0.0

	for _, db := range h.databases {
		stats, err := db.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to get database stats")
			continue
		}

		sizeMB := bytesToMB(stats.SizeBytes)
		walMB := bytesToMB(stats.WALSizeBytes)
		totalSizeMB += sizeMB + walMB

		databases = append(databases, DBInfo{
			Name:      db.Name(),
			Path:      db.Path(),
			SizeMB:    sizeMB,
			WALSizeMB: walMB,
			PageCount: stats.PageCount,
		})
	}

	writeJSON(w, h.log, http.StatusOK, DatabaseStatsResponse{
		Databases:   databases,
		TotalSizeMB: totalSizeMB,
		LastChecked: time.Now().Format(time.RFC3339),
	})
}

// HandleDiskUsage returns disk usage statistics
func (h *SystemHandlers) HandleDiskUsage(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting disk usage")

	dataDirSize := h.getDirSize(h.dataDir)
	logsDirSize := h.getDirSize(filepath.Join(h.dataDir, "logs"))

	writeJSON(w, h.log, http.StatusOK, DiskUsageResponse{
		DataDirMB: dataDirSize,
		LogsDirMB: logsDirSize,
		TotalMB:   dataDirSize,
	})
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})

	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return bytesToMB(totalSize)
}

// getSystemStats calculates CPU and RAM usage percentages.
// CPU is sampled over 100ms to keep the endpoint responsive.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

func bytesToMB(n int64) float64 {
	return float64(n) / 1024 / 1024
}
