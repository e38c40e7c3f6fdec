package domain

import (
	"encoding/json"
	"time"
)

const (
	FolderStatusScanned = "scanned"
	FolderStatusSkipped = "skipped"
)

// BuildReport 是一次生成的结果摘要（--json 时输出到 stdout）。
type BuildReport struct {
	Root   string `json:"root"`
	Output string `json:"output"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary BuildSummary   `json:"summary"`
	Folders []FolderResult `json:"folders"`
}

type BuildSummary struct {
	Records int `json:"records"`
	Scanned int `json:"scanned"`
	Skipped int `json:"skipped"`
}

type FolderResult struct {
	Category string `json:"category"`
	Status   string `json:"status"`
	Records  int    `json:"records"`
}

// Finalize 把时间统一为 UTC，并由 folders 计算 summary。
// folders 保持配置顺序，不排序。
func (r *BuildReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()
	if r.Folders == nil {
		r.Folders = []FolderResult{}
	}

	var s BuildSummary
	for _, f := range r.Folders {
		switch f.Status {
		case FolderStatusScanned:
			s.Scanned++
			s.Records += f.Records
		case FolderStatusSkipped:
			s.Skipped++
		}
	}
	r.Summary = s
}

// MarshalJSON 仅用于集中约束输出的稳定性。
func (r BuildReport) MarshalJSON() ([]byte, error) {
	type Alias BuildReport
	return json.Marshal(Alias(r))
}
