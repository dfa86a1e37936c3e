package cli

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// overrideEnvVars name variables that point at an env file and win over --env.
var overrideEnvVars = []string{"NEWSLINK_ENV_FILE", "HORSE_ENV_FILE"}

// EnvLoader loads .env files with a predictable override order.
type EnvLoader struct {
	value       *string
	defaultPath string
}

// AddEnvFlag registers an --env flag and returns an EnvLoader.
func AddEnvFlag(fs *flag.FlagSet, defaultPath, description string) *EnvLoader {
	if fs == nil {
		fs = flag.CommandLine
	}
	if defaultPath == "" {
		defaultPath = ".env"
	}
	if description == "" {
		description = "Path to the .env file"
	}

	value := fs.String("env", defaultPath, description)
	return &EnvLoader{
		value:       value,
		defaultPath: defaultPath,
	}
}

// Load applies the first env file that can be read, in this order: override
// variables, the --env value, its basename, then the default path. Values in
// the file override the process environment.
func (l *EnvLoader) Load() (string, error) {
	if l == nil {
		return "", fmt.Errorf("env loader is nil")
	}

	for _, candidate := range l.candidates() {
		if err := godotenv.Overload(candidate); err == nil {
			fmt.Fprintf(os.Stderr, "Loaded environment from %s\n", candidate)
			return candidate, nil
		}
	}

	return "", fmt.Errorf("failed to load env file from %s", l.requested())
}

func (l *EnvLoader) requested() string {
	requested := ""
	if l.value != nil {
		requested = strings.TrimSpace(*l.value)
	}
	if requested == "" {
		requested = l.defaultPath
	}
	return requested
}

func (l *EnvLoader) candidates() []string {
	paths := make([]string, 0, len(overrideEnvVars)+3)
	for _, envVar := range overrideEnvVars {
		if custom := strings.TrimSpace(os.Getenv(envVar)); custom != "" {
			paths = append(paths, custom)
		}
	}

	requested := l.requested()
	paths = append(paths, requested)
	if base := filepath.Base(requested); base != "" && base != requested {
		paths = append(paths, base)
	}
	paths = append(paths, l.defaultPath)

	seen := make(map[string]struct{}, len(paths))
	deduped := paths[:0]
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		deduped = append(deduped, p)
	}
	return deduped
}
