package util

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"time"
)

func IsRoot() bool {
	return os.Geteuid() == 0
}

func HasSystemctl() bool {
	_, err := exec.LookPath("systemctl")
	return err == nil
}

// RestartService restarts a systemd unit. It is a no-op without systemctl.
func RestartService(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" || !HasSystemctl() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return exec.CommandContext(ctx, "systemctl", "restart", name).Run()
}
