package schedule

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"go.uber.org/zap"
)

var serviceTemplate = template.Must(template.New("service").Parse(`[Unit]
Description=ocsync sync {{.Name}}

[Service]
Type=oneshot
{{- range .Env}}
Environment={{.}}
{{- end}}
ExecStart={{.ExecStart}}
`))

var timerTemplate = template.Must(template.New("timer").Parse(`[Unit]
Description=ocsync sync {{.Name}} every {{.Interval}}s

[Timer]
OnBootSec={{.Interval}}s
OnUnitActiveSec={{.Interval}}s
AccuracySec=1s
Unit={{.Label}}.service

[Install]
WantedBy=timers.target
`))

type systemd struct {
	*base
}

func (s *systemd) unitDir() string {
	return filepath.Join(s.home, ".config", "systemd", "user")
}

func (s *systemd) unitPaths(name string) (service, timer string) {
	stem := filepath.Join(s.unitDir(), s.Label(name))
	return stem + ".service", stem + ".timer"
}

func (s *systemd) render(name string) (service, timer []byte, err error) {
	argv := s.action.Argv(name)
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = systemdQuote(a)
	}

	env := make([]string, 0, len(s.action.Env))
	for k, v := range s.action.Env {
		env = append(env, systemdQuote(k+"="+v))
	}
	sort.Strings(env)

	data := map[string]any{
		"Name":      name,
		"Label":     s.Label(name),
		"Interval":  s.cfg.IntervalSeconds,
		"ExecStart": strings.Join(quoted, " "),
		"Env":       env,
	}

	var svc, tmr bytes.Buffer
	if err := serviceTemplate.Execute(&svc, data); err != nil {
		return nil, nil, fmt.Errorf("failed to render service: %w", err)
	}
	if err := timerTemplate.Execute(&tmr, data); err != nil {
		return nil, nil, fmt.Errorf("failed to render timer: %w", err)
	}
	return svc.Bytes(), tmr.Bytes(), nil
}

// Install implements Manager.
func (s *systemd) Install(ctx context.Context, name string) error {
	svc, tmr, err := s.render(name)
	if err != nil {
		return err
	}
	servicePath, timerPath := s.unitPaths(name)
	if err := writeFileAtomic(servicePath, svc); err != nil {
		return fmt.Errorf("failed to write %s: %w", servicePath, err)
	}
	if err := writeFileAtomic(timerPath, tmr); err != nil {
		return fmt.Errorf("failed to write %s: %w", timerPath, err)
	}

	if err := s.systemctl(ctx, "daemon-reload"); err != nil {
		return err
	}
	if err := s.systemctl(ctx, "enable", "--now", s.Label(name)+".timer"); err != nil {
		return err
	}
	s.log.Info("Installed systemd timer", zap.String("unit", s.Label(name)+".timer"))
	return nil
}

// Uninstall implements Manager.
func (s *systemd) Uninstall(ctx context.Context, name string) error {
	servicePath, timerPath := s.unitPaths(name)
	ok, err := exists(timerPath)
	if err != nil {
		return err
	}
	if !ok {
		if svcOK, _ := exists(servicePath); !svcOK {
			return nil
		}
	}

	// Fails when the timer is not loaded, which is fine.
	_ = s.systemctl(ctx, "disable", "--now", s.Label(name)+".timer")

	for _, p := range []string{timerPath, servicePath} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}
	if err := s.systemctl(ctx, "daemon-reload"); err != nil {
		return err
	}
	s.log.Info("Removed systemd timer", zap.String("unit", s.Label(name)+".timer"))
	return nil
}

// Installed implements Manager.
func (s *systemd) Installed(_ context.Context, name string) (bool, error) {
	_, timerPath := s.unitPaths(name)
	return exists(timerPath)
}

func (s *systemd) systemctl(ctx context.Context, args ...string) error {
	res, err := s.runner.Run(ctx, "systemctl", append([]string{"--user"}, args...))
	if err != nil {
		return fmt.Errorf("systemctl %s: %w: %s", strings.Join(args, " "), err, res.Combined())
	}
	return nil
}

// systemdQuote quotes s for an Exec or Environment line.
func systemdQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\"'\\$%") {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, `$`, `$$`, `%`, `%%`)
	return `"` + r.Replace(s) + `"`
}
