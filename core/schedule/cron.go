package schedule

import (
	"context"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"ocsync/core/runner"
)

type crontab struct {
	*base
}

func newCron(s *base) (*crontab, error) {
	if s.cfg.CronSpec == "" {
		s.cfg.CronSpec = cronSpecFor(s.cfg.IntervalSeconds)
	}
	if _, err := cron.ParseStandard(s.cfg.CronSpec); err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", s.cfg.CronSpec, err)
	}
	if strings.HasPrefix(s.cfg.CronSpec, "@every") {
		return nil, fmt.Errorf("cron spec %q is not supported by crontab", s.cfg.CronSpec)
	}
	return &crontab{base: s}, nil
}

// cronSpecFor converts an interval into a crontab schedule. Cron resolution is
// one minute, so the interval is rounded up to whole minutes, or to whole hours
// past 59 minutes, and capped at once a day.
func cronSpecFor(seconds int) string {
	minutes := (seconds + 59) / 60
	switch {
	case minutes <= 1:
		return "* * * * *"
	case minutes < 60:
		return fmt.Sprintf("*/%d * * * *", minutes)
	}
	hours := (minutes + 59) / 60
	if hours < 24 {
		return fmt.Sprintf("0 */%d * * *", hours)
	}
	return "0 0 * * *"
}

func (c *crontab) tag(name string) string {
	return "# ocsync:" + c.Label(name)
}

func (c *crontab) line(name string) string {
	argv := c.action.Argv(name)
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = shellQuote(a)
	}
	var env []string
	if p, ok := c.action.Env["PATH"]; ok && p != "" {
		env = append(env, "PATH="+shellQuote(p))
	}
	cmd := strings.Join(append(env, quoted...), " ")
	return fmt.Sprintf("%s %s >> %s 2>&1 %s",
		c.cfg.CronSpec, cmd, shellQuote(c.logFile(name)), c.tag(name))
}

// Install implements Manager.
func (c *crontab) Install(ctx context.Context, name string) error {
	lines, err := c.read(ctx)
	if err != nil {
		return err
	}
	kept := c.without(lines, name)
	kept = append(kept, c.line(name))
	if err := c.write(ctx, kept); err != nil {
		return err
	}
	c.log.Info("Installed crontab entry", zap.String("label", c.Label(name)))
	return nil
}

// Uninstall implements Manager.
func (c *crontab) Uninstall(ctx context.Context, name string) error {
	lines, err := c.read(ctx)
	if err != nil {
		return err
	}
	kept := c.without(lines, name)
	if len(kept) == len(lines) {
		return nil
	}
	if err := c.write(ctx, kept); err != nil {
		return err
	}
	c.log.Info("Removed crontab entry", zap.String("label", c.Label(name)))
	return nil
}

// Installed implements Manager.
func (c *crontab) Installed(ctx context.Context, name string) (bool, error) {
	lines, err := c.read(ctx)
	if err != nil {
		return false, err
	}
	return len(c.without(lines, name)) != len(lines), nil
}

func (c *crontab) without(lines []string, name string) []string {
	tag := c.tag(name)
	kept := make([]string, 0, len(lines))
	for _, l := range lines {
		if strings.HasSuffix(strings.TrimSpace(l), tag) {
			continue
		}
		kept = append(kept, l)
	}
	return kept
}

func (c *crontab) read(ctx context.Context) ([]string, error) {
	res, err := c.runner.Run(ctx, "crontab", []string{"-l"})
	if err != nil {
		// crontab -l exits non-zero when the user has no crontab yet.
		if res != nil && strings.Contains(strings.ToLower(res.Stderr), "no crontab") {
			return nil, nil
		}
		return nil, fmt.Errorf("crontab -l: %w: %s", err, res.Combined())
	}
	out := strings.TrimRight(res.Stdout, "\n")
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

func (c *crontab) write(ctx context.Context, lines []string) error {
	content := strings.Join(lines, "\n")
	if content != "" {
		content += "\n"
	}
	res, err := c.runner.Run(ctx, "crontab", []string{"-"}, runner.WithStdin(strings.NewReader(content)))
	if err != nil {
		return fmt.Errorf("crontab -: %w: %s", err, res.Combined())
	}
	return nil
}
