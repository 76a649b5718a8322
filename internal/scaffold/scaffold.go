package scaffold

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/jorge-barreto/dc/internal/config"
	"github.com/jorge-barreto/dc/internal/ux"
)

const configHeader = `# dc configuration. Paths are relative to the project root.
# Run 'dc docs config' for the key reference.

`

// Init writes .directive-cli/config.yaml with the default settings and
// creates the directive root, the startup context directory and the rule
// directories it names.
func Init(targetDir string, w io.Writer) error {
	configPath := config.Path(targetDir)
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("%s already exists in %s", filepath.Join(config.Dir, config.FileName), targetDir)
	}

	cfg := config.Default()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	dirs := []string{filepath.Join(targetDir, config.Dir), cfg.DirectivesRootAbs(targetDir), cfg.StartupContextDirAbs(targetDir)}
	for _, d := range cfg.ContextBundle.RuleDirs {
		dirs = append(dirs, filepath.Join(targetDir, filepath.FromSlash(d)))
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", d, err)
		}
	}

	if err := os.WriteFile(configPath, append([]byte(configHeader), data...), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", config.FileName, err)
	}

	fmt.Fprintf(w, "\n%s\n\n", ux.Bold(ux.Green("✓ Initialized "+config.Dir+"/")))
	fmt.Fprintf(w, "  Created:\n")
	fmt.Fprintf(w, "    %s  project configuration\n", ux.Cyan(filepath.ToSlash(filepath.Join(config.Dir, config.FileName))))
	fmt.Fprintf(w, "    %s  directive root\n", ux.Cyan(cfg.DirectivesRoot+"/"))
	for _, d := range cfg.ContextBundle.RuleDirs {
		fmt.Fprintf(w, "    %s  agent rules\n", ux.Cyan(d+"/"))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Next steps:\n")
	fmt.Fprintf(w, "    1. Adjust %s (base branch, paths)\n", ux.Cyan(config.Dir+"/"+config.FileName))
	fmt.Fprintf(w, "    2. Run %s to create a session\n", ux.Cyan("dc directive new"))
	fmt.Fprintf(w, "    3. Run %s to compile the agent rules\n\n", ux.Cyan("dc context build"))
	return nil
}
