package store

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jorge-barreto/dc/internal/errs"
)

const (
	MetaSuffix    = ".meta.json"
	TaskSuffix    = ".task.json"
	HandoffSuffix = ".handoff.json"
)

const slugPattern = `[a-z0-9]+(?:-[a-z0-9]+)*`

var (
	slugRe        = regexp.MustCompile(`^` + slugPattern + `$`)
	metaFileRe    = regexp.MustCompile(`^` + slugPattern + `\.meta\.json$`)
	taskFileRe    = regexp.MustCompile(`^` + slugPattern + `\.task\.json$`)
	handoffFileRe = regexp.MustCompile(`^` + slugPattern + `\.handoff\.json$`)
	legacyTaskRe  = regexp.MustCompile(`^TASK_.*\.(md|meta\.json)$`)
)

// IsSlug reports whether s is lowercase words joined by single hyphens.
func IsSlug(s string) bool { return slugRe.MatchString(s) }

func MetaFileName(slug string) string    { return slug + MetaSuffix }
func TaskFileName(slug string) string    { return slug + TaskSuffix }
func HandoffFileName(slug string) string { return slug + HandoffSuffix }

func IsMetaFile(name string) bool    { return metaFileRe.MatchString(name) }
func IsTaskFile(name string) bool    { return taskFileRe.MatchString(name) }
func IsHandoffFile(name string) bool { return handoffFileRe.MatchString(name) }

// IsLegacyName reports file names from the retired session layout.
func IsLegacyName(name string) bool {
	switch name {
	case "SESSION.md", "SESSION.meta.json", "HANDOFF.json", "README.md", "README.meta.json":
		return true
	}
	return legacyTaskRe.MatchString(name)
}

// SlugFromFile strips a document suffix from a file name.
func SlugFromFile(name string) string {
	for _, suffix := range []string{MetaSuffix, TaskSuffix, HandoffSuffix} {
		if strings.HasSuffix(name, suffix) {
			return strings.TrimSuffix(name, suffix)
		}
	}
	return name
}

// FindMetaFile returns the single metadata document in sessionDir.
func FindMetaFile(sessionDir string) (string, error) {
	names, err := listFiles(sessionDir)
	if err != nil {
		return "", err
	}
	var metas []string
	for _, n := range names {
		if IsMetaFile(n) {
			metas = append(metas, n)
		}
	}
	switch len(metas) {
	case 0:
		return "", errs.NotFoundf("no directive metadata document in session %s", filepath.Base(sessionDir))
	case 1:
		return filepath.Join(sessionDir, metas[0]), nil
	default:
		return "", errs.Validationf("expected exactly one metadata document in session %s, found %d", filepath.Base(sessionDir), len(metas))
	}
}

// listFiles returns the sorted regular-file names directly under dir.
func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// NewID returns a random version 4 UUID.
func NewID() string { return uuid.NewString() }

// IsUUID reports whether s is a canonical RFC 4122 UUID, versions 1 through 5.
func IsUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return false
	}
	v := u.Version()
	return u.Variant() == uuid.RFC4122 && v >= 1 && v <= 5
}

// Timestamp formats t as UTC with second precision.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}
