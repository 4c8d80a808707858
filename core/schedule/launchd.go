package schedule

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"text/template"

	"go.uber.org/zap"
)

var plistTemplate = template.Must(template.New("plist").Funcs(template.FuncMap{
	"xml": xmlEscape,
}).Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>{{xml .Label}}</string>
	<key>ProgramArguments</key>
	<array>
{{- range .Argv}}
		<string>{{xml .}}</string>
{{- end}}
	</array>
{{- if .Env}}
	<key>EnvironmentVariables</key>
	<dict>
{{- range .Env}}
		<key>{{xml .Key}}</key>
		<string>{{xml .Value}}</string>
{{- end}}
	</dict>
{{- end}}
	<key>StartInterval</key>
	<integer>{{.Interval}}</integer>
	<key>RunAtLoad</key>
	<true/>
	<key>StandardOutPath</key>
	<string>{{xml .LogFile}}</string>
	<key>StandardErrorPath</key>
	<string>{{xml .LogFile}}</string>
</dict>
</plist>
`))

type envVar struct {
	Key   string
	Value string
}

type launchd struct {
	*base
	uid string
}

func (l *launchd) plistPath(name string) string {
	return filepath.Join(l.home, "Library", "LaunchAgents", l.Label(name)+".plist")
}

func (l *launchd) render(name string) ([]byte, error) {
	env := make([]envVar, 0, len(l.action.Env))
	for k, v := range l.action.Env {
		env = append(env, envVar{Key: k, Value: v})
	}
	sort.Slice(env, func(i, j int) bool { return env[i].Key < env[j].Key })

	var buf bytes.Buffer
	err := plistTemplate.Execute(&buf, map[string]any{
		"Label":    l.Label(name),
		"Argv":     l.action.Argv(name),
		"Env":      env,
		"Interval": l.cfg.IntervalSeconds,
		"LogFile":  l.logFile(name),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render plist: %w", err)
	}
	return buf.Bytes(), nil
}

// Install implements Manager.
func (l *launchd) Install(ctx context.Context, name string) error {
	data, err := l.render(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(l.logDir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	path := l.plistPath(name)
	// Unload first so launchd picks up the new definition.
	l.bootout(ctx, name)
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	if res, err := l.runner.Run(ctx, "launchctl", []string{"bootstrap", "gui/" + l.uid, path}); err != nil {
		return fmt.Errorf("failed to load %s: %w: %s", l.Label(name), err, res.Combined())
	}
	l.log.Info("Installed launchd agent", zap.String("label", l.Label(name)), zap.String("path", path))
	return nil
}

// Uninstall implements Manager.
func (l *launchd) Uninstall(ctx context.Context, name string) error {
	path := l.plistPath(name)
	ok, err := exists(path)
	if err != nil || !ok {
		return err
	}
	l.bootout(ctx, name)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	l.log.Info("Removed launchd agent", zap.String("label", l.Label(name)))
	return nil
}

// Installed implements Manager.
func (l *launchd) Installed(_ context.Context, name string) (bool, error) {
	return exists(l.plistPath(name))
}

func (l *launchd) bootout(ctx context.Context, name string) {
	// Fails when the agent is not loaded, which is fine.
	_, _ = l.runner.Run(ctx, "launchctl", []string{"bootout", "gui/" + l.uid + "/" + l.Label(name)})
}

func xmlEscape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
