package destination

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"ocsync/core/apperr"
)

const (
	fileExt       = ".env"
	keyLocalPath  = "LOCAL_PATH"
	keyRemotePath = "REMOTE_PATH"
	keyExclude    = "EXCLUDE_"
)

// CleanupFunc removes state keyed by a destination name.
type CleanupFunc func(ctx context.Context, name string) error

// Registry stores destinations as files in a directory.
type Registry struct {
	dir      string
	validate *validator.Validate
	cleanups []namedCleanup
	log      *zap.Logger
}

type namedCleanup struct {
	what string
	fn   CleanupFunc
}

// NewRegistry creates a registry rooted at dir.
func NewRegistry(dir string, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{dir: dir, validate: newValidator(), log: log}
}

// OnRemove registers a cleanup that runs when a destination is removed.
func (r *Registry) OnRemove(what string, fn CleanupFunc) {
	r.cleanups = append(r.cleanups, namedCleanup{what: what, fn: fn})
}

func (r *Registry) path(name string) string {
	return filepath.Join(r.dir, name+fileExt)
}

// Get returns the destination called name.
func (r *Registry) Get(name string) (*Destination, error) {
	const op = "destination.get"
	if !ValidName(name) {
		return nil, apperr.InvalidName(op, name)
	}
	d, err := r.read(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperr.NotFound(op, name)
	}
	if err != nil {
		return nil, apperr.Configuration(op, fmt.Sprintf("failed to read destination %q", name), err)
	}
	return d, nil
}

// Exists reports whether name is registered.
func (r *Registry) Exists(name string) bool {
	if !ValidName(name) {
		return false
	}
	_, err := os.Stat(r.path(name))
	return err == nil
}

// AddOrUpdate creates the destination or updates the fields set in u. It
// ensures the local directory exists. created is true for a new destination.
func (r *Registry) AddOrUpdate(name string, u Update) (d *Destination, created bool, err error) {
	const op = "destination.add"
	if !ValidName(name) {
		return nil, false, apperr.InvalidName(op, name)
	}

	existing, err := r.read(name)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		existing = &Destination{Name: name}
		created = true
	case err != nil:
		return nil, false, apperr.Configuration(op, fmt.Sprintf("failed to read destination %q", name), err)
	}

	next := *existing
	if u.LocalPath != "" {
		local, err := NormalizeLocal(u.LocalPath)
		if err != nil {
			return nil, false, apperr.Configuration(op, "invalid local path", err)
		}
		next.LocalPath = local
	}
	if u.RemotePath != "" {
		next.RemotePath = NormalizeRemote(u.RemotePath)
	}
	if u.Excludes != nil {
		next.Excludes = compact(u.Excludes)
	}

	if err := r.validate.Struct(next); err != nil {
		return nil, false, apperr.New(apperr.KindConfiguration, op, name,
			fmt.Sprintf("invalid destination %q", name), validationError(err))
	}

	if err := os.MkdirAll(next.LocalPath, 0o755); err != nil {
		return nil, false, apperr.Configuration(op, "failed to create local directory", err)
	}
	if err := r.write(&next); err != nil {
		return nil, false, apperr.Configuration(op, fmt.Sprintf("failed to save destination %q", name), err)
	}

	r.log.Debug("Saved destination",
		zap.String("destination", name),
		zap.Bool("created", created),
		zap.String("local_path", next.LocalPath),
		zap.String("remote_path", next.RemotePath))
	return &next, created, nil
}

// Names yields every registered destination name in no particular order.
// Each iteration reads the directory afresh.
func (r *Registry) Names() iter.Seq[string] {
	return func(yield func(string) bool) {
		entries, err := os.ReadDir(r.dir)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				r.log.Warn("Failed to list destinations", zap.String("dir", r.dir), zap.Error(err))
			}
			return
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
				continue
			}
			name := strings.TrimSuffix(e.Name(), fileExt)
			if !ValidName(name) {
				continue
			}
			if !yield(name) {
				return
			}
		}
	}
}

// List returns all destinations sorted by name.
func (r *Registry) List() ([]*Destination, error) {
	names := slices.Collect(r.Names())
	sort.Strings(names)

	out := make([]*Destination, 0, len(names))
	for _, name := range names {
		d, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Remove deletes the destination after running every cleanup hook. When a
// hook fails the destination file is kept so the removal can be retried.
func (r *Registry) Remove(ctx context.Context, name string) error {
	const op = "destination.remove"
	if !ValidName(name) {
		return apperr.InvalidName(op, name)
	}
	if !r.Exists(name) {
		return apperr.NotFound(op, name)
	}

	var errs []error
	for _, c := range r.cleanups {
		if err := c.fn(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.what, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to clean up destination %q: %w", name, err)
	}

	if err := os.Remove(r.path(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove destination %q: %w", name, err)
	}
	r.log.Info("Removed destination", zap.String("destination", name))
	return nil
}

func (r *Registry) read(name string) (*Destination, error) {
	values, err := godotenv.Read(r.path(name))
	if err != nil {
		return nil, err
	}
	d := &Destination{
		Name:       name,
		LocalPath:  values[keyLocalPath],
		RemotePath: values[keyRemotePath],
	}
	for i := 1; ; i++ {
		p, ok := values[keyExclude+strconv.Itoa(i)]
		if !ok {
			break
		}
		d.Excludes = append(d.Excludes, p)
	}
	return d, nil
}

func (r *Registry) write(d *Destination) error {
	values := map[string]string{
		keyLocalPath:  d.LocalPath,
		keyRemotePath: d.RemotePath,
	}
	for i, p := range d.Excludes {
		values[keyExclude+strconv.Itoa(i+1)] = p
	}
	content, err := godotenv.Marshal(values)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return err
	}
	tmp := r.path(d.Name) + ".tmp"
	if err := os.WriteFile(tmp, []byte(content+"\n"), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, r.path(d.Name))
}

func compact(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" && !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}
