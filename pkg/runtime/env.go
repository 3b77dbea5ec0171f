package runtime

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads .env.local and .env from the working directory and then
// from every directory above the caller's source file, so running from a
// package directory still finds the repo root files.
//
// Variables already set in the environment win, matching godotenv.
func LoadDotEnv(logPrefix string) {
	if IsDotEnvDisabled() {
		return
	}
	for _, p := range dotEnvPaths(2) {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			log.Fatalf("%s failed to load %s: %v", logPrefix, p, err)
		}
		log.Printf("%s loaded env from %s", logPrefix, p)
	}
}

func dotEnvPaths(callerSkip int) []string {
	paths := []string{".env.local", ".env"}
	if _, file, _, ok := runtime.Caller(callerSkip); ok {
		for d := filepath.Dir(file); ; {
			paths = append(paths, filepath.Join(d, ".env.local"), filepath.Join(d, ".env"))
			parent := filepath.Dir(d)
			if parent == d {
				break
			}
			d = parent
		}
	}

	seen := make(map[string]struct{}, len(paths))
	out := paths[:0]
	for _, p := range paths {
		p = filepath.Clean(p)
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func IsDotEnvDisabled() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("STUDYBOT_DOTENV"))) {
	case "0", "false", "off", "no":
		return true
	default:
		return false
	}
}
