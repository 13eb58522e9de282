// Package paths resolves configuration-relative file paths against a base
// directory, falling back to a well-known system directory.
package paths

import (
	"os"
	"path/filepath"
)

// SystemBaseDir is probed when a relative path isn't found under the base
// directory. It mirrors /etc/subcon from the original implementation.
const SystemBaseDir = "/etc/subcon"

// Resolve returns an absolute-ish path for p relative to base.
//
// Absolute inputs are returned unchanged. Otherwise base/p is probed first;
// if that doesn't exist, SystemBaseDir/p is probed. If neither exists,
// base/p is returned unchanged and the caller decides whether that's an
// error.
func Resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}

	local := filepath.Join(base, p)
	if exists(local) {
		return local
	}

	system := filepath.Join(SystemBaseDir, p)
	if exists(system) {
		return system
	}

	return local
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
