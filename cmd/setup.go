package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"ocsync/core/apperr"
	"ocsync/core/config"
	"ocsync/core/engine"
	"ocsync/core/remote"
	"ocsync/core/runner"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var setupFlags struct {
	remoteType  string
	name        string
	url         string
	vendor      string
	user        string
	password    string
	bucket      string
	accessKey   string
	secretKey   string
	region      string
	cachePolicy string
	mountPoint  string
	skipCheck   bool
}

// setupCmd configures the shared remote.
var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure the shared remote connection",
	Long: `Registers the shared remote with the engine, saves it to the configuration
directory and checks that it can be listed.

Values not given as flags are prompted for when running in a terminal.

Examples:
  # ownCloud / Nextcloud over WebDAV (prompts for the password)
  setup --url https://cloud.example.com/remote.php/webdav --user me

  # S3 compatible storage
  setup --type s3 --url https://s3.example.com --bucket studio --access-key AK --secret-key SK`,
	Args: usageArgs(cobra.NoArgs),
	RunE: runSetup,
}

func init() {
	f := setupCmd.Flags()
	f.StringVar(&setupFlags.remoteType, "type", "", "Remote type: webdav or s3")
	f.StringVar(&setupFlags.name, "name", "", "Engine remote name")
	f.StringVar(&setupFlags.url, "url", "", "WebDAV URL or S3 endpoint")
	f.StringVar(&setupFlags.vendor, "vendor", "", "WebDAV vendor: owncloud, nextcloud or other")
	f.StringVar(&setupFlags.user, "user", "", "WebDAV user")
	f.StringVar(&setupFlags.password, "password", "", "WebDAV password (prompted when omitted)")
	f.StringVar(&setupFlags.bucket, "bucket", "", "S3 bucket")
	f.StringVar(&setupFlags.accessKey, "access-key", "", "S3 access key ID")
	f.StringVar(&setupFlags.secretKey, "secret-key", "", "S3 secret key")
	f.StringVar(&setupFlags.region, "region", "", "S3 region")
	f.StringVar(&setupFlags.cachePolicy, "cache-policy", "", "VFS cache mode for the browse mount: off, minimal, writes or full")
	f.StringVar(&setupFlags.mountPoint, "mount-point", "", "Browse mount directory (default ~/<name>)")
	f.BoolVar(&setupFlags.skipCheck, "skip-check", false, "Do not check connectivity after saving")

	RootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, _ []string) error {
	const op = "setup"
	ctx := cmd.Context()

	cfg, l, err := loadConfig()
	if err != nil {
		return err
	}
	defer l.Sync()

	rc := cfg.Remote
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	in := bufio.NewReader(os.Stdin)

	apply := func(dst *string, flag, label string, prompt bool) error {
		if cmd.Flags().Changed(flag) {
			*dst = strings.TrimSpace(cmd.Flag(flag).Value.String())
			return nil
		}
		if !prompt || !interactive {
			return nil
		}
		v, err := ask(in, label, *dst)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}

	if err := apply(&rc.Type, "type", "Remote type (webdav, s3)", true); err != nil {
		return err
	}
	if rc.Type != remote.TypeWebDAV && rc.Type != remote.TypeS3 {
		return apperr.Configuration(op, fmt.Sprintf("unknown remote type %q", rc.Type), nil, "setup --type webdav")
	}
	s3 := rc.Type == remote.TypeS3

	steps := []struct {
		dst    *string
		flag   string
		label  string
		prompt bool
	}{
		{&rc.Name, "name", "Remote name", false},
		{&rc.URL, "url", "URL", true},
		{&rc.Vendor, "vendor", "Vendor (owncloud, nextcloud, other)", !s3},
		{&rc.User, "user", "User", !s3},
		{&rc.Bucket, "bucket", "Bucket", s3},
		{&rc.AccessKey, "access-key", "Access key ID", s3},
		{&rc.SecretKey, "secret-key", "Secret key", false},
		{&rc.Region, "region", "Region", false},
		{&rc.CachePolicy, "cache-policy", "Mount cache mode", false},
		{&rc.MountPoint, "mount-point", "Mount point", false},
	}
	for _, s := range steps {
		if err := apply(s.dst, s.flag, s.label, s.prompt); err != nil {
			return err
		}
	}

	password := setupFlags.password
	switch {
	case s3 && rc.SecretKey == "" && interactive:
		if rc.SecretKey, err = askSecret("Secret key"); err != nil {
			return err
		}
	case !s3 && password == "" && interactive:
		if password, err = askSecret("Password"); err != nil {
			return err
		}
	}

	if !rc.Configured() {
		return apperr.Configuration(op, "remote url (and bucket for s3) is required", nil,
			"setup --url <url>")
	}

	r := runner.New()
	if err := remote.Provision(ctx, r, cfg.Engine.Binary, rc, password); err != nil {
		return err
	}
	if err := config.SaveRemote(cfg.Dir, rc); err != nil {
		return err
	}
	l.Info("Saved remote configuration",
		zap.String("dir", cfg.Dir),
		zap.String("type", rc.Type),
		zap.String("url", rc.URL))

	if setupFlags.skipCheck {
		return nil
	}
	return checkRemote(ctx, rc, engine.NewRclone(cfg.Engine, rc.Name, r), l)
}

func checkRemote(ctx context.Context, rc remote.Config, eng *engine.Rclone, l *zap.Logger) error {
	if err := remote.NewChecker(rc, eng).Check(ctx); err != nil {
		return err
	}
	l.Info("Remote is reachable", zap.String("url", rc.URL))
	return nil
}

func ask(in *bufio.Reader, label, current string) (string, error) {
	if current != "" {
		fmt.Fprintf(os.Stderr, "%s [%s]: ", label, current)
	} else {
		fmt.Fprintf(os.Stderr, "%s: ", label)
	}
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	if v := strings.TrimSpace(line); v != "" {
		return v, nil
	}
	return current, nil
}

func askSecret(label string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", label)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	return string(b), nil
}
