package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jorge-barreto/dc/internal/errs"
)

const SchemaVersion = "1.0"

// encode renders v as two-space indented, newline-terminated JSON, then
// decodes the result and runs check so nothing invalid reaches disk.
func encode(v any, check func(map[string]any) []string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	data := buf.Bytes()
	obj, err := decodeObject(data)
	if err != nil {
		return nil, err
	}
	if problems := check(obj); len(problems) > 0 {
		return nil, errs.Validationf("refusing to write invalid document: %s", strings.Join(problems, "; "))
	}
	return data, nil
}

// read loads path, runs check on the generic form, then decodes into out.
func read(path string, check func(map[string]any) []string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errs.NotFoundf("file not found: %s", path)
		}
		return err
	}
	name := filepath.Base(path)
	obj, err := decodeObject(data)
	if err != nil {
		return errs.Validationf("%s: %v", name, err)
	}
	if problems := check(obj); len(problems) > 0 {
		return errs.Validationf("%s: %s", name, strings.Join(problems, "; "))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errs.Validationf("%s: %v", name, err)
	}
	return nil
}

// CheckFile reads path and returns its schema problems for the given check.
// A file that cannot be parsed yields a single problem.
func CheckFile(path string, check func(map[string]any) []string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return []string{err.Error()}
	}
	obj, err := decodeObject(data)
	if err != nil {
		return []string{err.Error()}
	}
	return check(obj)
}

func writeNew(path string, data []byte) error {
	if err := writeFileExclusive(path, data, 0644); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return errs.Preconditionf("refusing to overwrite existing file: %s", path)
		}
		return err
	}
	return nil
}
