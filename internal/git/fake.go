package git

import (
	"context"
	"fmt"
	"strings"
)

// Fake is a Runner returning canned results keyed by the joined argument
// list. Unknown invocations fail. It records every call.
type Fake struct {
	Results map[string]*Result
	Calls   []string
}

func (f *Fake) Run(_ context.Context, _ string, args ...string) (*Result, error) {
	key := strings.Join(args, " ")
	f.Calls = append(f.Calls, key)
	if res, ok := f.Results[key]; ok {
		return res, nil
	}
	return nil, fmt.Errorf("fake git: unexpected call: git %s", key)
}

// Set registers the result for args.
func (f *Fake) Set(stdout string, code int, args ...string) *Fake {
	if f.Results == nil {
		f.Results = make(map[string]*Result)
	}
	f.Results[strings.Join(args, " ")] = &Result{ExitCode: code, Stdout: stdout}
	return f
}

// Clean registers a clean working tree on branch.
func (f *Fake) Clean(branch string) *Fake {
	return f.Dirty(branch)
}

// Dirty registers a working tree on branch with the given porcelain entries,
// such as " M src/a.go".
func (f *Fake) Dirty(branch string, entries ...string) *Fake {
	out := ""
	if len(entries) > 0 {
		out = strings.Join(entries, "\x00") + "\x00"
	}
	f.Set(out, 0, "status", "--porcelain=v1", "-z", "--untracked-files=all")
	f.Set(branch+"\n", 0, "rev-parse", "--abbrev-ref", "HEAD")
	return f
}
