package app

import (
	"changeimpact/internal/shared/util"
	"time"
)

type HealthStatus struct {
	Status        string            `json:"status"`
	Timestamp     time.Time         `json:"timestamp"`
	UptimeSeconds int64             `json:"uptimeSeconds"`
	Files         int               `json:"files"`
	Edges         int               `json:"edges"`
	HistoryLen    int               `json:"historyLength"`
	Baselines     int               `json:"baselines"`
	Busy          bool              `json:"busy"`
	HeapAllocMB   uint64            `json:"heapAllocMB"`
	Components    map[string]string `json:"components"`
}

func (a *App) Health() HealthStatus {
	state := a.Pipeline.State()
	g := state.Graph.Snapshot()
	status := HealthStatus{
		Status:        "up",
		Timestamp:     time.Now().UTC(),
		UptimeSeconds: int64(time.Since(a.started).Seconds()),
		Files:         g.Len(),
		Edges:         g.EdgeCount(),
		HistoryLen:    state.History.Len(),
		Baselines:     state.Cache.Len(),
		Busy:          state.Busy(),
		HeapAllocMB:   util.HeapAllocMB(),
		Components:    make(map[string]string),
	}

	if g.Len() == 0 {
		status.Status = "degraded"
		status.Components["graph"] = "empty"
	} else {
		status.Components["graph"] = "ok"
	}

	switch {
	case a.Results != nil:
		status.Components["persistence"] = "ok"
	case a.Config.Persistence.Enabled:
		status.Status = "degraded"
		status.Components["persistence"] = "missing but enabled in config"
	default:
		status.Components["persistence"] = "disabled"
	}

	if a.activeWatcher != nil {
		status.Components["watcher"] = "ok"
	} else {
		status.Components["watcher"] = "off"
	}
	return status
}
