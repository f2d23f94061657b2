// Package validation holds the input checks shared by the CLI commands.
package validation

import (
	"fmt"
	"os"
	"strings"
)

// IsValidInputFile checks that path exists and is a regular file.
func IsValidInputFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("input file does not exist: %s", path)
	}
	if err != nil {
		return fmt.Errorf("error checking input file %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("input path %s is not a regular file", path)
	}
	return nil
}

// IsValidOutputFormat checks format against the formats a command supports.
// The comparison is case-insensitive.
func IsValidOutputFormat(format string, supported ...string) error {
	f := strings.ToLower(strings.TrimSpace(format))
	for _, s := range supported {
		if f == s {
			return nil
		}
	}
	return fmt.Errorf("unsupported format: %s. Supported formats are %s", format, strings.Join(supported, ", "))
}

// IsValidFilePermissions reports an error when others have any access to a
// file holding credentials.
func IsValidFilePermissions(mode os.FileMode) error {
	if mode.Perm()&0007 != 0 {
		return fmt.Errorf("file permissions are too permissive: %s. Recommended 0600", mode.Perm().String())
	}
	return nil
}
