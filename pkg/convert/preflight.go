package convert

import (
	"fmt"
	"os"
)

// preflightOutputDir verifies the output directory exists and can take
// new files before any parsing work starts. Platform-specific free-space
// checks live in preflight_linux.go and preflight_darwin.go.
func preflightOutputDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot stat output directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("output path %s is not a directory", dir)
	}
	free, err := freeBytes(dir)
	if err != nil {
		return fmt.Errorf("cannot check free space in %s: %w", dir, err)
	}
	if free == 0 {
		return fmt.Errorf("no free space in output directory %s", dir)
	}
	return nil
}
