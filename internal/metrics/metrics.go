package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	StageExtract  = "extract"
	StageMetadata = "generate_metadata"
	StageCategory = "analyze_category"
	StageMatch    = "match_folder"
	StageNaming   = "name_folder"
)

var (
	// StageFallbacks counts pipeline stages that returned their fallback value.
	StageFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shelfmark_pipeline_fallbacks_total",
		Help: "Pipeline stages that degraded to a fallback value.",
	}, []string{"stage"})

	PipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "shelfmark_pipeline_duration_seconds",
		Help:    "Duration of full pipeline runs.",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
	})

	FolderDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shelfmark_folder_decisions_total",
		Help: "Folder decisions by outcome (matched, reconciled, new).",
	}, []string{"outcome"})
)

func Fallback(stage string) {
	StageFallbacks.WithLabelValues(stage).Inc()
}
