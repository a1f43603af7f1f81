package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SolvesTotal 排程求解总数计数器
	// Labels: outcome (optimal/feasible/infeasible/error)
	SolvesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daysage_solves_total",
			Help: "Total number of schedule solves by outcome",
		},
		[]string{"outcome"},
	)

	// SolveDuration 求解耗时直方图（秒）
	// Buckets 覆盖亚秒快速求解到 30s 预算上限
	SolveDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "daysage_solve_duration_seconds",
			Help:    "Schedule solve duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)

	// TasksScheduledTotal 成功排入的任务总数计数器
	// Labels: kind (mandatory/optional)
	TasksScheduledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daysage_tasks_scheduled_total",
			Help: "Total number of tasks placed into schedules",
		},
		[]string{"kind"},
	)

	// FeedbackRecordsTotal 反馈记录总数计数器
	FeedbackRecordsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "daysage_feedback_records_total",
			Help: "Total number of feedback records appended",
		},
	)

	// WeightUpdatesTotal 权重重训并落盘的总数计数器
	WeightUpdatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "daysage_weight_updates_total",
			Help: "Total number of objective weight updates persisted",
		},
	)
)

// RecordSolve 记录一次求解结果与耗时
func RecordSolve(outcome string, durationSeconds float64) {
	SolvesTotal.WithLabelValues(outcome).Inc()
	SolveDuration.Observe(durationSeconds)
}

// RecordTaskScheduled 记录排入的任务
func RecordTaskScheduled(mandatory bool) {
	kind := "optional"
	if mandatory {
		kind = "mandatory"
	}
	TasksScheduledTotal.WithLabelValues(kind).Inc()
}

// RecordFeedback 记录一次反馈追加
func RecordFeedback() {
	FeedbackRecordsTotal.Inc()
}

// RecordWeightUpdate 记录一次权重更新
func RecordWeightUpdate() {
	WeightUpdatesTotal.Inc()
}
