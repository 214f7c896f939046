// Package workingfs models the physical layout of a digital object as a tree
// of working directories and working files.
package workingfs

import (
	"strings"
	"time"
)

// ContentTypeNotIdentified marks a file whose MIME type is unknown.
// It is an internal marker and is never served.
const ContentTypeNotIdentified = "dlip/not-identified"

// DefaultRootName names the synthetic root directory of a tree.
const DefaultRootName = "__ROOT"

// BagItData is the payload directory of a BagIt layout.
const BagItData = "data"

// Kind discriminates the two entry variants.
type Kind string

const (
	KindFile      Kind = "WorkingFile"
	KindDirectory Kind = "WorkingDirectory"
)

// Entry is implemented only by *WorkingFile and *WorkingDirectory.
type Entry interface {
	Kind() Kind
	Base() *WorkingBase
}

// WorkingBase holds the fields shared by files and directories.
type WorkingBase struct {
	LocalPath       string          `json:"localPath" yaml:"localPath"` // Full path from the object root
	Name            string          `json:"name,omitempty" yaml:"name,omitempty"`
	Modified        time.Time       `json:"modified,omitzero" yaml:"modified,omitempty"` // Set only on the synthetic root
	AccessCondition string          `json:"accessCondition,omitempty" yaml:"accessCondition,omitempty"`
	Rights          string          `json:"rights,omitempty" yaml:"rights,omitempty"`
	Metadata        Metadata        `json:"metadata,omitzero" yaml:"metadata,omitempty"`
	Mets            *MetsExtensions `json:"mets,omitempty" yaml:"mets,omitempty"`
}

// Slug returns the final segment of the entry's local path.
func (b *WorkingBase) Slug() string {
	return Slug(b.LocalPath)
}

// WorkingFile is a file in the physical structure.
type WorkingFile struct {
	WorkingBase `yaml:",inline"`
	ContentType string `json:"contentType" yaml:"contentType"`
	Digest      string `json:"digest,omitempty" yaml:"digest,omitempty"` // sha256 hex, empty when unknown
	Size        int64  `json:"size" yaml:"size"`
}

func (f *WorkingFile) Kind() Kind         { return KindFile }
func (f *WorkingFile) Base() *WorkingBase { return &f.WorkingBase }

// WorkingDirectory is a directory in the physical structure. Children are
// owned exclusively by their parent and kept in insertion order.
type WorkingDirectory struct {
	WorkingBase `yaml:",inline"`
	Files       []*WorkingFile      `json:"files" yaml:"files"`
	Directories []*WorkingDirectory `json:"directories" yaml:"directories"`
}

func (d *WorkingDirectory) Kind() Kind         { return KindDirectory }
func (d *WorkingDirectory) Base() *WorkingBase { return &d.WorkingBase }

// NewRoot returns an empty synthetic root directory stamped with now.
func NewRoot(now time.Time) *WorkingDirectory {
	return &WorkingDirectory{
		WorkingBase: WorkingBase{
			LocalPath: "",
			Name:      DefaultRootName,
			Modified:  now,
		},
	}
}

// FindDirectory resolves path relative to d without modifying the tree.
// It returns nil when any segment is missing.
func (d *WorkingDirectory) FindDirectory(path string) *WorkingDirectory {
	return d.findDirectory(path, false)
}

// EnsureDirectory resolves path relative to d, creating every missing
// directory on the way. Created directories get the accumulated prefix as
// their LocalPath and no name.
func (d *WorkingDirectory) EnsureDirectory(path string) *WorkingDirectory {
	return d.findDirectory(path, true)
}

// findDirectory walks the tree one segment at a time. Children are matched on
// the slug of their own LocalPath, not on the full path, because lookups are
// always relative to the immediate parent.
func (d *WorkingDirectory) findDirectory(path string, create bool) *WorkingDirectory {
	if isRootPath(path) {
		return d
	}
	parts := Segments(path)
	dir := d
	for i, part := range parts {
		next := dir.childDirectory(part)
		if next == nil {
			if !create {
				return nil
			}
			next = &WorkingDirectory{
				WorkingBase: WorkingBase{LocalPath: strings.Join(parts[:i+1], "/")},
			}
			dir.Directories = append(dir.Directories, next)
		}
		dir = next
	}
	return dir
}

func (d *WorkingDirectory) childDirectory(slug string) *WorkingDirectory {
	for _, c := range d.Directories {
		if c.Slug() == slug {
			return c
		}
	}
	return nil
}

// FindFile resolves a file path relative to d. It returns nil when the parent
// directory or the file itself is missing.
func (d *WorkingDirectory) FindFile(path string) *WorkingFile {
	parent := d.FindDirectory(Parent(path))
	if parent == nil {
		return nil
	}
	slug := Slug(path)
	for _, f := range parent.Files {
		if f.Slug() == slug {
			return f
		}
	}
	return nil
}

// Walk visits d and every descendant in pre-order, directories before the
// files they contain. Returning false from fn stops the walk.
func (d *WorkingDirectory) Walk(fn func(e Entry, depth int) bool) {
	d.walk(fn, 0)
}

func (d *WorkingDirectory) walk(fn func(e Entry, depth int) bool, depth int) bool {
	if !fn(d, depth) {
		return false
	}
	for _, sub := range d.Directories {
		if !sub.walk(fn, depth+1) {
			return false
		}
	}
	for _, f := range d.Files {
		if !fn(f, depth+1) {
			return false
		}
	}
	return true
}

// DescendantFileCount counts the files in d and all of its subdirectories.
func (d *WorkingDirectory) DescendantFileCount() int {
	n := len(d.Files)
	for _, sub := range d.Directories {
		n += sub.DescendantFileCount()
	}
	return n
}

// DescendantDirectoryCount counts the directories below d, excluding d.
func (d *WorkingDirectory) DescendantDirectoryCount() int {
	n := len(d.Directories)
	for _, sub := range d.Directories {
		n += sub.DescendantDirectoryCount()
	}
	return n
}

// TotalSize sums the sizes of every file below d.
func (d *WorkingDirectory) TotalSize() int64 {
	var n int64
	for _, f := range d.Files {
		n += f.Size
	}
	for _, sub := range d.Directories {
		n += sub.TotalSize()
	}
	return n
}

// ToRootLayout returns a copy of d with the BagIt "data/" prefix removed from
// every path. Trees that are not in a BagIt layout are returned unchanged.
func (d *WorkingDirectory) ToRootLayout() *WorkingDirectory {
	if !strings.HasPrefix(d.LocalPath, BagItData+"/") {
		return d
	}
	out := &WorkingDirectory{WorkingBase: d.WorkingBase}
	out.LocalPath = strings.TrimPrefix(d.LocalPath, BagItData+"/")
	for _, sub := range d.Directories {
		out.Directories = append(out.Directories, sub.ToRootLayout())
	}
	for _, f := range d.Files {
		out.Files = append(out.Files, f.ToRootLayout())
	}
	return out
}

// ToRootLayout returns a copy of f with the BagIt "data/" prefix removed.
func (f *WorkingFile) ToRootLayout() *WorkingFile {
	if !strings.HasPrefix(f.LocalPath, BagItData+"/") {
		return f
	}
	out := *f
	out.LocalPath = strings.TrimPrefix(f.LocalPath, BagItData+"/")
	return &out
}

// StripBagIt returns a new root in which d's top-level "data" directory has
// been dissolved into the root, with every path below it re-rooted. Nodes under
// "data" are copied. Directories and files outside it are shared with d.
// It returns d unchanged when d is not a root or has no "data" directory.
func (d *WorkingDirectory) StripBagIt() *WorkingDirectory {
	if d.LocalPath != "" {
		return d
	}
	data := d.childDirectory(BagItData)
	if data == nil {
		return d
	}
	out := &WorkingDirectory{WorkingBase: d.WorkingBase}
	for _, sub := range d.Directories {
		if sub != data {
			out.Directories = append(out.Directories, sub)
		}
	}
	for _, sub := range data.Directories {
		out.Directories = append(out.Directories, sub.ToRootLayout())
	}
	out.Files = append(out.Files, d.Files...)
	for _, f := range data.Files {
		out.Files = append(out.Files, f.ToRootLayout())
	}
	return out
}
