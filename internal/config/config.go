// Package config holds the resolved compiler configuration: the options
// the CLI driver (cmd/nelua) parses from argv, layered over environment
// fallbacks the way confucianzuoyuan-zcc/main.go's opt_* globals are
// layered over nothing at all — this module adds the fallback layer
// using github.com/xyproto/env/v2, the environment-lookup library the
// rest of the example pack reaches for (xyproto-flapc/go.mod).
package config

import (
	"github.com/xyproto/env/v2"

	"github.com/Sondro/nelua-lang/internal/pragma"
)

// Generator selects the emitter backend (spec §6 --generator).
type Generator string

const (
	GeneratorC   Generator = "c"
	GeneratorLua Generator = "lua"
)

// Mode selects how far the driver carries a compilation (spec §6
// --compile-code/--compile-binary/--analyze/--lint).
type Mode int

const (
	ModeCompileBinary Mode = iota
	ModeCompileCode
	ModeAnalyze
	ModeLint
)

// Config is the fully resolved set of options for one driver invocation.
type Config struct {
	Generator Generator
	Mode      Mode

	InputFiles []string
	EvalCode   string // set when --eval was used instead of a file list

	OutputPath string
	Shared     bool
	Static     bool

	CC      string
	CFlags  []string
	LDFlags []string

	SearchPaths []string // -L/--path entries, searched in order by require
	NoCache     bool
	CacheDir    string

	PrintAST          bool
	PrintAnalyzedAST  bool
	PrintCode         bool
	DebugResolve      bool
	DebugScopeResolve bool
	Verbose           bool
	Timing            bool

	Pragmas *pragma.Map
}

// New returns a Config seeded from environment fallbacks (spec §6: CC,
// CFLAGS, LDFLAGS and the cache directory may all come from the
// environment when not given on the command line), ready for the CLI
// parser to overlay explicit flags on top.
func New() *Config {
	return &Config{
		Generator: GeneratorC,
		Mode:      ModeCompileBinary,
		CC:        env.Str("CC", "cc"),
		CFlags:    splitFields(env.Str("CFLAGS", "")),
		LDFlags:   splitFields(env.Str("LDFLAGS", "")),
		CacheDir:  env.Str("NELUA_CACHE", defaultCacheDir()),
		Pragmas:   pragma.New(),
	}
}

func defaultCacheDir() string {
	if home := env.Str("HOME", ""); home != "" {
		return home + "/.cache/nelua"
	}
	return ".neluacache"
}

func splitFields(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := -1
	for i := 0; i <= len(s); i++ {
		if i < len(s) && s[i] != ' ' && s[i] != '\t' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			out = append(out, s[start:i])
			start = -1
		}
	}
	return out
}
