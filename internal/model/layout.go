package model

import (
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Directory names under the dataset base directory. Runs made by earlier
// versions of the tool use the same names, so they must not change.
const (
	ArchivesDirName   = "tar"
	TrainDirName      = "train"
	ValidationDirName = "validation"
	StateDirName      = ".imagenet-dl"
	LockFileName      = "run.lock"

	// ArchiveExt is the extension of downloaded synset archives.
	ArchiveExt = ".tar"
)

// Layout computes dataset paths relative to a base directory.
//
// Example:
//
//	layout := Layout{BaseDir: "/data"}
//	layout.For("dog").Target("n02085620").Path
//	// "/data/tar/dog/n02085620.tar"
type Layout struct {
	// BaseDir is the dataset root. Relative paths are resolved against the
	// working directory by the caller.
	BaseDir string
}

// LabelDirs holds the three per-label directories.
type LabelDirs struct {
	// Label is the sanitized label used as the directory segment.
	Label string

	// Archives is where downloaded archives are kept (tar/<label>).
	Archives string

	// Train receives extracted images (train/<label>).
	Train string

	// Validation receives the sampled validation images (validation/<label>).
	Validation string
}

// For returns the directories for label.
func (l Layout) For(label string) LabelDirs {
	segment := SanitizeLabel(label)
	return LabelDirs{
		Label:      segment,
		Archives:   filepath.Join(l.BaseDir, ArchivesDirName, segment),
		Train:      filepath.Join(l.BaseDir, TrainDirName, segment),
		Validation: filepath.Join(l.BaseDir, ValidationDirName, segment),
	}
}

// StateDir is where the tool keeps its own files (lock, run history).
func (l Layout) StateDir() string {
	return filepath.Join(l.BaseDir, StateDirName)
}

// LockPath is the lock file held for the duration of a run.
func (l Layout) LockPath() string {
	return filepath.Join(l.StateDir(), LockFileName)
}

// RootDirs returns the top-level directories every run needs.
func (l Layout) RootDirs() []string {
	return []string{
		filepath.Join(l.BaseDir, ArchivesDirName),
		filepath.Join(l.BaseDir, TrainDirName),
		filepath.Join(l.BaseDir, ValidationDirName),
		l.StateDir(),
	}
}

// All returns the per-label directories in creation order.
func (d LabelDirs) All() []string {
	return []string{d.Validation, d.Train, d.Archives}
}

// Target returns the download target for id: <archives>/<id>.tar.
func (d LabelDirs) Target(id CategoryID) DownloadTarget {
	return DownloadTarget{
		ID:   id,
		Path: filepath.Join(d.Archives, sanitizeFileName(string(id))+ArchiveExt),
	}
}

// SanitizeLabel turns a user supplied label into a single directory segment.
//
// The label is trimmed, normalized to Unicode NFC (so visually identical
// labels typed on different systems map to the same directory) and stripped
// of characters that are invalid in file names.
func SanitizeLabel(label string) string {
	label = norm.NFC.String(strings.TrimSpace(label))
	label = sanitizeFileName(label)
	if label == "." || label == ".." {
		return ""
	}
	return label
}

var (
	invalidFileChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	trailingDots     = regexp.MustCompile(`\.+$`)
	repeatedSpace    = regexp.MustCompile(`\s+`)
)

// sanitizeFileName removes or replaces characters that are invalid in file/folder names.
//
// The following transformations are applied:
//   - Invalid characters (<>:"/\|?* and control chars) are replaced with underscore
//   - Trailing dots are removed (Windows limitation)
//   - Multiple whitespace is collapsed to single space
//   - Trailing whitespace is removed
//
// Example:
//
//	sanitizeFileName("Song: Part 1/2") // Returns "Song_ Part 1_2"
func sanitizeFileName(name string) string {
	name = invalidFileChars.ReplaceAllString(name, "_")
	name = trailingDots.ReplaceAllString(name, "")
	name = repeatedSpace.ReplaceAllString(name, " ")
	name = strings.TrimRight(name, " ")
	return name
}
