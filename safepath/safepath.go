// Package safepath confines caller-supplied file paths to a base directory.
package safepath

import (
	"errors"
	"path/filepath"
	"strings"
)

// ErrPathTraversal is returned when a path escapes its base.
var ErrPathTraversal = errors.New("safepath: path escapes base directory")

// Resolve joins input onto base and returns the cleaned result, or
// ErrPathTraversal when input contains a ".." element or lands outside
// base. A leading slash in input is relative to base.
func Resolve(base, input string) (string, error) {
	for _, elem := range strings.FieldsFunc(input, isSep) {
		if elem == ".." {
			return "", ErrPathTraversal
		}
	}
	root := filepath.Clean(base)
	cleaned := filepath.Join(root, filepath.Clean("/"+input))
	if cleaned != root && !strings.HasPrefix(cleaned, root+string(filepath.Separator)) {
		return "", ErrPathTraversal
	}
	return cleaned, nil
}

func isSep(r rune) bool { return r == '/' || r == filepath.Separator }
