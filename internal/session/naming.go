package session

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var (
	nonAlnumRe    = regexp.MustCompile(`[^a-z0-9]+`)
	sessionNameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)
)

// Slugify lowercases s and collapses every run of other characters to a
// single hyphen.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Trim(nonAlnumRe.ReplaceAllString(s, "-"), "-")
}

// NormalizeTitle is the key used for title uniqueness.
func NormalizeTitle(title string) string { return Slugify(title) }

// ValidSessionName reports whether name is usable as a session directory.
func ValidSessionName(name string) bool {
	return sessionNameRe.MatchString(name) && !strings.Contains(name, "..")
}

// GenerateDirName returns YY-MM-DD_<slug> for title, dated in UTC.
func GenerateDirName(title string, now time.Time) string {
	slug := Slugify(title)
	if slug == "" {
		slug = "directive"
	}
	return now.UTC().Format("06-01-02") + "_" + slug
}

// NextAvailableName returns base, or base-2, base-3, ... for the first name
// with no existing entry under the root.
func (r *Root) NextAvailableName(base string) string {
	name := base
	for i := 2; ; i++ {
		if _, err := os.Lstat(filepath.Join(r.Dir, name)); os.IsNotExist(err) {
			return name
		}
		name = fmt.Sprintf("%s-%d", base, i)
	}
}
