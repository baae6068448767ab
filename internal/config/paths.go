package config

import (
	"os"
	"path/filepath"
	"strings"
)

// daemonSuffix is appended to the client binary name to locate the daemon.
const daemonSuffix = "-daemon"

// DaemonPath resolves the daemon executable as a sibling of the current
// executable: <dir>/<client-name>-daemon. The file is not required to exist;
// the caller surfaces spawn failures.
func DaemonPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	base := strings.TrimSuffix(filepath.Base(exe), filepath.Ext(exe))
	return filepath.Join(filepath.Dir(exe), base+daemonSuffix), nil
}
