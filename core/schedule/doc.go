// Package schedule registers a periodic OS trigger per destination.
//
// Each backend keys its registration by Label(name), so installing twice
// replaces the existing registration and uninstalling a missing one does
// nothing. The registered action always runs "sync <name>" for a single
// destination.
//
// Backends:
//
//   - launchd: a LaunchAgent plist in ~/Library/LaunchAgents with StartInterval.
//   - systemd: a user service plus timer in ~/.config/systemd/user.
//   - cron: a tagged line in the user's crontab.
package schedule
