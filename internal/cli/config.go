package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/asynkron/patchstage/internal/core/stage"
	"github.com/asynkron/patchstage/internal/repo"
)

// Environment variables consulted when the matching flag is not given.
const (
	EnvPatchDir     = "PATCHSTAGE_PATCH_DIR"
	EnvBranchPrefix = "PATCHSTAGE_BRANCH_PREFIX"
	EnvBaseBranch   = "PATCHSTAGE_BASE_BRANCH"
	EnvReport       = "PATCHSTAGE_REPORT"
	EnvSourceExt    = "PATCHSTAGE_SOURCE_EXT"
	EnvPreviewLines = "PATCHSTAGE_PREVIEW_LINES"
	EnvLogLevel     = "PATCHSTAGE_LOG_LEVEL"
)

// settings is the resolved configuration shared by both commands. Flags win
// over the process environment, which wins over the repository .env file.
type settings struct {
	root         repo.Root
	patchDir     string
	branchPrefix string
	baseBranch   string
	report       string
	sourceExt    string
	previewLines int
	logLevel     stage.LogLevel
	plain        bool
}

// flagValues holds raw flag input before environment fallback.
type flagValues struct {
	repoDir      string
	patchDir     string
	branchPrefix string
	baseBranch   string
	report       string
	sourceExt    string
	previewLines int
	logLevel     string
	plain        bool
	set          map[string]bool
}

func newFlagSet(name string, stderr io.Writer, batch bool) (*flag.FlagSet, *flagValues) {
	values := &flagValues{set: map[string]bool{}}
	flagSet := flag.NewFlagSet(name, flag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&values.repoDir, "repo", "", "repository to operate on (default: the git checkout containing the working directory)")
	flagSet.StringVar(&values.patchDir, "dir", "", "patch directory relative to the repository root (env "+EnvPatchDir+", default "+stage.DefaultPatchDir+")")
	flagSet.StringVar(&values.sourceExt, "source-ext", "", "extension the patch generator strips from replacement names, e.g. .py (env "+EnvSourceExt+")")
	flagSet.IntVar(&values.previewLines, "preview-lines", 0, "maximum lines shown per note or diff (env "+EnvPreviewLines+")")
	flagSet.StringVar(&values.logLevel, "log-level", "", "diagnostic log level: debug, info, warn, error (env "+EnvLogLevel+", default warn)")
	flagSet.BoolVar(&values.plain, "plain", false, "disable colors and the interactive prompt widget")
	if batch {
		flagSet.StringVar(&values.branchPrefix, "branch-prefix", "", "prefix for the review branch (env "+EnvBranchPrefix+", default "+stage.DefaultBranchPrefix+")")
		flagSet.StringVar(&values.baseBranch, "base", "", "base branch shown in the pull request command (env "+EnvBaseBranch+", default "+stage.DefaultBaseBranch+")")
		flagSet.StringVar(&values.report, "report", "", "diagnostics report referenced by the commit message (env "+EnvReport+", default "+stage.DefaultReportPath+")")
	}
	return flagSet, values
}

// resolve locates the repository, reads its .env file and merges every
// source into settings.
func (v *flagValues) resolve(flagSet *flag.FlagSet, lookupEnv func(string) (string, bool)) (settings, error) {
	flagSet.Visit(func(f *flag.Flag) { v.set[f.Name] = true })

	start := v.repoDir
	if start == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return settings{}, fmt.Errorf("determine working directory: %w", err)
		}
		start = cwd
	}
	root, err := repo.Discover(start)
	if err != nil {
		return settings{}, err
	}

	dotenv, err := godotenv.Read(filepath.Join(root.Path(), ".env"))
	if err != nil {
		// A missing .env file is fine, but other errors should be surfaced.
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return settings{}, fmt.Errorf("failed to load .env: %w", err)
		}
		dotenv = map[string]string{}
	}
	env := func(key string) string {
		if value, ok := lookupEnv(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
		return strings.TrimSpace(dotenv[key])
	}
	pick := func(name, flagValue, key string) string {
		if v.set[name] {
			return strings.TrimSpace(flagValue)
		}
		return env(key)
	}

	s := settings{
		root:         root,
		patchDir:     pick("dir", v.patchDir, EnvPatchDir),
		branchPrefix: pick("branch-prefix", v.branchPrefix, EnvBranchPrefix),
		baseBranch:   pick("base", v.baseBranch, EnvBaseBranch),
		report:       pick("report", v.report, EnvReport),
		sourceExt:    pick("source-ext", v.sourceExt, EnvSourceExt),
		logLevel:     stage.ParseLogLevel(pick("log-level", v.logLevel, EnvLogLevel), stage.LogLevelWarn),
		plain:        v.plain,
	}

	if v.set["preview-lines"] {
		s.previewLines = v.previewLines
	} else if raw := env(EnvPreviewLines); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return settings{}, fmt.Errorf("%s: %q is not a number", EnvPreviewLines, raw)
		}
		s.previewLines = n
	}
	if s.previewLines < 0 {
		return settings{}, fmt.Errorf("preview lines must not be negative, got %d", s.previewLines)
	}

	if s.sourceExt != "" && !strings.HasPrefix(s.sourceExt, ".") {
		s.sourceExt = "." + s.sourceExt
	}
	if filepath.IsAbs(s.patchDir) {
		rel, err := filepath.Rel(root.Path(), s.patchDir)
		if err != nil || strings.HasPrefix(rel, "..") {
			return settings{}, fmt.Errorf("patch directory %s is outside the repository", s.patchDir)
		}
		s.patchDir = filepath.ToSlash(rel)
	}
	return s, nil
}
