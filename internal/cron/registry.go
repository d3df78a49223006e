package cron

import (
	"context"
	"fmt"
	"time"
)

// Job is one unit of scheduled work run by the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type entry struct {
	job   Job
	every time.Duration
}

// Registry holds the worker's jobs and how often each one is due.
// Job names are unique; they double as metric labels.
type Registry struct {
	entries []entry
	names   map[string]struct{}
}

// NewRegistry registers jobs that run on every cycle. Nil jobs and
// repeated names are skipped.
func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{names: map[string]struct{}{}}
	for _, job := range jobs {
		_ = r.Register(job)
	}
	return r
}

// Register adds a job that runs on every cycle.
func (r *Registry) Register(job Job) error {
	return r.RegisterEvery(job, 0)
}

// RegisterEvery adds a job that runs at most once per every. Zero or a
// negative value means every cycle.
func (r *Registry) RegisterEvery(job Job, every time.Duration) error {
	if job == nil {
		return fmt.Errorf("job required")
	}
	if r.names == nil {
		r.names = map[string]struct{}{}
	}
	if _, dup := r.names[job.Name()]; dup {
		return fmt.Errorf("job %q already registered", job.Name())
	}
	r.names[job.Name()] = struct{}{}
	r.entries = append(r.entries, entry{job: job, every: every})
	return nil
}

// Jobs returns the registered jobs in registration order.
func (r *Registry) Jobs() []Job {
	out := make([]Job, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.job)
	}
	return out
}

// due returns the jobs whose interval has elapsed since their last run.
func (r *Registry) due(lastRun map[string]time.Time, now time.Time) []Job {
	var out []Job
	for _, e := range r.entries {
		last, ran := lastRun[e.job.Name()]
		if !ran || e.every <= 0 || !now.Before(last.Add(e.every)) {
			out = append(out, e.job)
		}
	}
	return out
}
