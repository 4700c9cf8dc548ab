package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(meetingJobsTotal, jobRetriesTotal, jobsStuckReaped) }

var (
	meetingJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meeting_jobs_total",
			Help: "Meeting processing jobs by terminal status.",
		},
		[]string{"status"}, // 'completed', 'failed'
	)

	jobRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "meeting_job_retries_total",
			Help: "Whole-job retries scheduled after an attempt failed.",
		},
	)

	jobsStuckReaped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "meeting_jobs_stuck_reaped_total",
			Help: "Meetings force-failed after being stuck in processing.",
		},
	)
)

func IncMeetingJob(status string) { meetingJobsTotal.WithLabelValues(norm(status)).Inc() }

func IncJobRetry() { jobRetriesTotal.Inc() }

func IncStuckReaped(n int) { jobsStuckReaped.Add(float64(n)) }
