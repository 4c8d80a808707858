package destination

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-playground/validator/v10"
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ReservedNames are subcommands of sync. A destination with one of these names
// could never be reached by "sync <name>".
var ReservedNames = []string{"ls", "rm"}

// ValidName reports whether name is a valid destination name.
func ValidName(name string) bool {
	return namePattern.MatchString(name) && !slices.Contains(ReservedNames, name)
}

// Destination is a named pairing of a local directory and a remote directory.
type Destination struct {
	// Name identifies the destination.
	Name string `json:"name" yaml:"name" validate:"required,destname"`
	// LocalPath is the absolute local directory.
	LocalPath string `json:"local_path" yaml:"local_path" validate:"required,abspath"`
	// RemotePath is relative to the remote root.
	RemotePath string `json:"remote_path" yaml:"remote_path" validate:"required,relpath"`
	// Excludes are glob patterns the engine skips.
	Excludes []string `json:"excludes,omitempty" yaml:"excludes,omitempty" validate:"dive,required,glob"`
}

// Update carries the fields of an AddOrUpdate call. Empty fields keep the
// existing value; a nil Excludes keeps the existing patterns.
type Update struct {
	LocalPath  string
	RemotePath string
	Excludes   []string
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("destname", func(fl validator.FieldLevel) bool {
		return ValidName(fl.Field().String())
	})
	_ = v.RegisterValidation("abspath", func(fl validator.FieldLevel) bool {
		return filepath.IsAbs(fl.Field().String())
	})
	_ = v.RegisterValidation("relpath", func(fl validator.FieldLevel) bool {
		p := fl.Field().String()
		return p != "" && p != "." && !strings.HasPrefix(p, "/") &&
			p != ".." && !strings.HasPrefix(p, "../")
	})
	_ = v.RegisterValidation("glob", func(fl validator.FieldLevel) bool {
		return doublestar.ValidatePattern(fl.Field().String())
	})
	return v
}

// validationError turns validator errors into one readable message.
func validationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "abspath":
			msgs = append(msgs, fmt.Sprintf("%s must be absolute: %q", fe.Field(), fe.Value()))
		case "relpath":
			msgs = append(msgs, fmt.Sprintf("%s must stay inside the remote root: %q", fe.Field(), fe.Value()))
		case "glob":
			msgs = append(msgs, fmt.Sprintf("invalid exclude pattern %q", fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}

// NormalizeLocal expands a leading ~ and makes p absolute.
func NormalizeLocal(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return filepath.Abs(p)
}

// NormalizeRemote cleans p and strips leading slashes. ".." segments survive
// cleaning only when they escape the root, which validation rejects.
func NormalizeRemote(p string) string {
	if p == "" {
		return ""
	}
	p = path.Clean(strings.ReplaceAll(p, "\\", "/"))
	return strings.TrimLeft(p, "/")
}
