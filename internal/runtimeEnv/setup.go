// Package runtimeEnv holds process-level daemon setup that doesn't belong
// to any one core package: privilege dropping and systemd readiness
// notification, adapted from the teacher's pkg/runtimeEnv. Local .env
// loading is handled by joho/godotenv from internal/config instead of a
// hand-rolled reader.
package runtimeEnv

import (
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"strconv"
	"syscall"
)

// DropPrivileges changes the process's user and group to those named by
// username/group; an empty name leaves that id unchanged. The Go runtime takes care of
// every thread (not just the calling one) executing the underlying
// syscall.
func DropPrivileges(username string, group string) error {
	if group != "" {
		g, err := user.LookupGroup(group)
		if err != nil {
			return err
		}

		gid, _ := strconv.Atoi(g.Gid)
		if err := syscall.Setgid(gid); err != nil {
			return err
		}
	}

	if username != "" {
		u, err := user.Lookup(username)
		if err != nil {
			return err
		}

		uid, _ := strconv.Atoi(u.Uid)
		if err := syscall.Setuid(uid); err != nil {
			return err
		}
	}

	return nil
}

// SystemdNotify sends systemd a readiness notification (when ready is true)
// and a status line (when status is non-empty), per
// https://www.freedesktop.org/software/systemd/man/sd_notify.html. A no-op
// when the process was not started under systemd.
func SystemdNotify(ready bool, status string) {
	if os.Getenv("NOTIFY_SOCKET") == "" {
		return
	}

	args := []string{fmt.Sprintf("--pid=%d", os.Getpid())}
	if ready {
		args = append(args, "--ready")
	}
	if status != "" {
		args = append(args, fmt.Sprintf("--status=%s", status))
	}

	cmd := exec.Command("systemd-notify", args...)
	cmd.Run() // errors ignored; nothing useful to do if systemd-notify itself is missing.
}
