package pathresolver

import (
	"errors"
	"os"
	"path"
	"strings"
)

// ErrPathEscape is returned when a server path contains a ".." segment.
var ErrPathEscape = errors.New("path may not contain '..' segments")

// Resolve joins serverPath onto root and returns the absolute remote path.
// Leading slashes of serverPath are dropped, so "" and "/" both resolve to root.
func Resolve(root, serverPath string) (string, error) {
	root = cleanRoot(root)

	rel := strings.TrimLeft(serverPath, "/")
	for _, seg := range strings.Split(rel, "/") {
		if seg == ".." {
			return "", ErrPathEscape
		}
	}

	return path.Join(root, rel), nil
}

// DeriveURL maps remotePath to a public URL under baseURL.
// It returns "" when baseURL is empty or remotePath lies outside root.
func DeriveURL(baseURL, root, remotePath string) string {
	if baseURL == "" {
		return ""
	}

	rel, ok := relativeTo(cleanRoot(root), path.Clean(remotePath))
	if !ok {
		return ""
	}
	return strings.TrimRight(baseURL, "/") + "/" + rel
}

// IsDirShaped reports whether p names a container: empty, ending in "/" or
// ending in a "." segment.
func IsDirShaped(p string) bool {
	return p == "" || strings.HasSuffix(p, "/") || path.Base(p) == "."
}

// IsRootShaped reports whether p consists only of slashes (or nothing).
func IsRootShaped(p string) bool {
	return strings.Trim(p, "/") == ""
}

// IsLocalDirShaped reports whether a local destination names a directory.
func IsLocalDirShaped(p string) bool {
	switch p {
	case "", ".", "./":
		return true
	}
	if strings.HasSuffix(p, "/") || strings.HasSuffix(p, string(os.PathSeparator)) {
		return true
	}
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

// SameAsRoot compares a resolved path with root ignoring surrounding slashes.
func SameAsRoot(root, remotePath string) bool {
	return strings.Trim(cleanRoot(root), "/") == strings.Trim(remotePath, "/")
}

func cleanRoot(root string) string {
	if root == "" {
		return "/"
	}
	return path.Clean(root)
}

func relativeTo(root, p string) (string, bool) {
	if p == root {
		return "", true
	}
	prefix := root
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	if !strings.HasPrefix(p, prefix) {
		return "", false
	}
	return strings.TrimPrefix(p, prefix), true
}
