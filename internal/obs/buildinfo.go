package obs

import (
	"runtime"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// BuildInfo identifies the running binary and the ledger backend it serves.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	GoVersion string `json:"go_version"`
	Backend   string `json:"backend"`
}

var (
	buildInfoMu         sync.Mutex
	buildInfoRegistered bool
	currentBuild        BuildInfo

	buildInfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "artifactlive_build_info",
			Help: "Version, commit and ledger backend of the running service. Always 1.",
		},
		[]string{"version", "commit", "go_version", "backend"},
	)
)

// SetBuildInfo publishes info as artifactlive_build_info, replacing the
// previous label set. GoVersion defaults to the running toolchain.
func SetBuildInfo(info BuildInfo) {
	if info.GoVersion == "" {
		info.GoVersion = runtime.Version()
	}
	buildInfoMu.Lock()
	defer buildInfoMu.Unlock()
	if !buildInfoRegistered {
		prometheus.MustRegister(buildInfoGauge)
		buildInfoRegistered = true
	}
	buildInfoGauge.Reset()
	buildInfoGauge.WithLabelValues(info.Version, info.Commit, info.GoVersion, info.Backend).Set(1)
	currentBuild = info
}

// CurrentBuildInfo returns what SetBuildInfo last published.
func CurrentBuildInfo() BuildInfo {
	buildInfoMu.Lock()
	defer buildInfoMu.Unlock()
	return currentBuild
}
