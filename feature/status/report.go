package status

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"ocsync/core/failure"
	"ocsync/core/lock"
	"ocsync/core/reconcile"
	"ocsync/core/schedule"
	"ocsync/feature/destination"
)

// RemoteChecker reports whether the shared remote is reachable.
type RemoteChecker interface {
	Check(ctx context.Context) error
}

// MountChecker reports the browse mount state.
type MountChecker interface {
	MountPoint() string
	Mounted() (bool, error)
}

// RemoteStatus is the remote section of a report.
type RemoteStatus struct {
	URL        string `json:"url" yaml:"url"`
	Configured bool   `json:"configured" yaml:"configured"`
	Reachable  bool   `json:"reachable" yaml:"reachable"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
}

// MountStatus is the mount section of a report.
type MountStatus struct {
	MountPoint string `json:"mount_point" yaml:"mount_point"`
	Mounted    bool   `json:"mounted" yaml:"mounted"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
}

// DestinationStatus is one destination row of a report.
type DestinationStatus struct {
	Name       string          `json:"name" yaml:"name"`
	LocalPath  string          `json:"local_path" yaml:"local_path"`
	RemotePath string          `json:"remote_path" yaml:"remote_path"`
	State      reconcile.State `json:"state" yaml:"state"`
	Lock       lock.State      `json:"lock" yaml:"lock"`
	LockPID    int             `json:"lock_pid,omitempty" yaml:"lock_pid,omitempty"`
	Scheduled  bool            `json:"scheduled" yaml:"scheduled"`
	Failures   int             `json:"failures" yaml:"failures"`
	LastError  string          `json:"last_error,omitempty" yaml:"last_error,omitempty"`
	// Recommendation is an operator action, e.g. "resync ableton".
	Recommendation string `json:"recommendation,omitempty" yaml:"recommendation,omitempty"`
	Error          string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Report is the aggregated status.
type Report struct {
	GeneratedAt  time.Time           `json:"generated_at" yaml:"generated_at"`
	Remote       RemoteStatus        `json:"remote" yaml:"remote"`
	Mount        MountStatus         `json:"mount" yaml:"mount"`
	Threshold    int                 `json:"failure_threshold" yaml:"failure_threshold"`
	Destinations []DestinationStatus `json:"destinations" yaml:"destinations"`
}

// Find returns the row for name.
func (r *Report) Find(name string) (*DestinationStatus, bool) {
	for i := range r.Destinations {
		if r.Destinations[i].Name == name {
			return &r.Destinations[i], true
		}
	}
	return nil, false
}

// Healthy reports whether the remote is reachable and no destination needs attention.
func (r *Report) Healthy() bool {
	if !r.Remote.Reachable {
		return false
	}
	for _, d := range r.Destinations {
		if d.Recommendation != "" || d.Error != "" {
			return false
		}
	}
	return true
}

// Sources are the collaborators a Reporter reads from.
type Sources struct {
	Registry   *destination.Registry
	Locks      *lock.Locker
	Failures   *failure.Tracker
	Controller *reconcile.Controller
	Schedule   schedule.Manager
	// Remote and Mount are optional.
	Remote    RemoteChecker
	Mount     MountChecker
	RemoteURL string
	Threshold int
	Logger    *zap.Logger
}

// Reporter builds status reports.
type Reporter struct {
	src Sources
	now func() time.Time

	ttl    time.Duration
	mu     sync.RWMutex
	cached *Report
	sf     singleflight.Group
}

// NewReporter creates a Reporter. ttl is how long Get may reuse a report;
// zero disables reuse but concurrent callers still share one build.
func NewReporter(src Sources, ttl time.Duration) *Reporter {
	if src.Threshold <= 0 {
		src.Threshold = failure.DefaultThreshold
	}
	if src.Logger == nil {
		src.Logger = zap.NewNop()
	}
	return &Reporter{src: src, ttl: ttl, now: time.Now}
}

// Get returns a recent report, building one if needed.
func (r *Reporter) Get(ctx context.Context) (*Report, error) {
	r.mu.RLock()
	cached := r.cached
	r.mu.RUnlock()
	if cached != nil && r.ttl > 0 && r.now().Sub(cached.GeneratedAt) < r.ttl {
		return cached, nil
	}

	result, err, _ := r.sf.Do("report", func() (any, error) {
		rep, err := r.Build(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.cached = rep
		r.mu.Unlock()
		return rep, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Report), nil
}

// Build aggregates a fresh report.
func (r *Reporter) Build(ctx context.Context) (*Report, error) {
	rep := &Report{GeneratedAt: r.now().UTC(), Threshold: r.src.Threshold}

	var (
		rows    []DestinationStatus
		rowsErr error
		wg      sync.WaitGroup
	)
	wg.Add(3)

	go func() {
		defer wg.Done()
		rep.Remote = r.remote(ctx)
	}()

	go func() {
		defer wg.Done()
		rep.Mount = r.mount()
	}()

	go func() {
		defer wg.Done()
		rows, rowsErr = r.destinations(ctx)
	}()

	wg.Wait()

	if rowsErr != nil {
		return nil, rowsErr
	}
	rep.Destinations = rows
	return rep, nil
}

func (r *Reporter) remote(ctx context.Context) RemoteStatus {
	st := RemoteStatus{URL: r.src.RemoteURL, Configured: r.src.RemoteURL != ""}
	if r.src.Remote == nil {
		return st
	}
	if err := r.src.Remote.Check(ctx); err != nil {
		st.Error = err.Error()
		return st
	}
	st.Configured = true
	st.Reachable = true
	return st
}

func (r *Reporter) mount() MountStatus {
	if r.src.Mount == nil {
		return MountStatus{}
	}
	st := MountStatus{MountPoint: r.src.Mount.MountPoint()}
	mounted, err := r.src.Mount.Mounted()
	if err != nil {
		st.Error = err.Error()
	}
	st.Mounted = mounted
	return st
}

func (r *Reporter) destinations(ctx context.Context) ([]DestinationStatus, error) {
	dests, err := r.src.Registry.List()
	if err != nil {
		return nil, err
	}
	rows := make([]DestinationStatus, 0, len(dests))
	for _, d := range dests {
		rows = append(rows, r.row(ctx, d))
	}
	return rows, nil
}

// row collects one destination. Per-source errors are reported in the row.
func (r *Reporter) row(ctx context.Context, d *destination.Destination) DestinationStatus {
	row := DestinationStatus{
		Name:       d.Name,
		LocalPath:  d.LocalPath,
		RemotePath: d.RemotePath,
		Lock:       lock.StateIdle,
	}
	log := r.src.Logger.With(zap.String("destination", d.Name))
	var errs []string
	note := func(what string, err error) {
		log.Warn("Failed to read "+what, zap.Error(err))
		errs = append(errs, fmt.Sprintf("%s: %v", what, err))
	}

	lockState, rec, err := r.src.Locks.Inspect(ctx, d.Name)
	if err != nil {
		note("lock", err)
	} else {
		row.Lock = lockState
		if rec != nil {
			row.LockPID = rec.PID
		}
	}

	state, err := r.src.Controller.State(ctx, reconcile.Target{
		Name:       d.Name,
		LocalPath:  d.LocalPath,
		RemotePath: d.RemotePath,
	}, row.Lock == lock.StateRunning)
	if err != nil {
		note("baseline", err)
	}
	row.State = state

	if r.src.Schedule != nil {
		if ok, err := r.src.Schedule.Installed(ctx, d.Name); err != nil {
			note("schedule", err)
		} else {
			row.Scheduled = ok
		}
	}

	if f, err := r.src.Failures.Lookup(ctx, d.Name); err != nil {
		note("failures", err)
	} else if f != nil {
		row.Failures = f.Count
		row.LastError = f.LastError
	}

	row.Recommendation = recommend(row, r.src.Threshold)
	if len(errs) > 0 {
		row.Error = strings.Join(errs, "; ")
	}
	return row
}

// recommend returns the operator action for row, if any. The system never
// repairs a destination on its own.
func recommend(row DestinationStatus, threshold int) string {
	switch {
	case row.State == reconcile.Unseeded:
		return fmt.Sprintf("resync %s [local|remote|newer]", row.Name)
	case row.Failures >= threshold:
		return fmt.Sprintf("resync %s", row.Name)
	case row.Lock == lock.StateStale:
		// The next run clears the stale lock.
		return fmt.Sprintf("sync %s", row.Name)
	default:
		return ""
	}
}
