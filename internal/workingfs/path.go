package workingfs

import "strings"

// Slug returns the final segment of a "/"-delimited path.
// A single trailing slash is ignored, so "a/b/" and "a/b" both give "b".
func Slug(path string) string {
	path = strings.TrimSuffix(path, "/")
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// Parent returns path without its final segment. Empty segments are dropped,
// and a leading "/" is kept so absolute paths stay absolute.
//
//	Parent("a/b/c.txt") == "a/b"
//	Parent("/a/b.txt")  == "/a"
//	Parent("c.txt")     == ""
func Parent(path string) string {
	parts := Segments(path)
	if len(parts) == 0 {
		return ""
	}
	joined := strings.Join(parts[:len(parts)-1], "/")
	if strings.HasPrefix(path, "/") {
		return "/" + joined
	}
	return joined
}

// Segments splits path on "/" and drops empty segments.
func Segments(path string) []string {
	raw := strings.Split(path, "/")
	parts := raw[:0]
	for _, p := range raw {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// isRootPath reports whether path addresses the directory it is resolved against.
func isRootPath(path string) bool {
	return strings.TrimSpace(path) == "" || path == "/"
}
