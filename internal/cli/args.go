// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import "strings"

// =============================================================================
// ARGUMENT PARSING
// =============================================================================

// ArgParser parses command line arguments in the formats the binary accepts:
//
//	--flag value     Long flag with space-separated value
//	--flag=value     Long flag with equals sign
//	-f value         Short flag with space-separated value
//	--flag           Boolean flag (no value)
type ArgParser struct {
	flags      map[string]string
	boolFlags  map[string]bool
	positional []string
}

// valueFlags are the flags that consume the following argument.
var valueFlags = map[string]bool{
	"endpoint": true, "e": true,
	"company": true, "c": true,
	"config": true,
	"theme":  true,
}

// NewArgParser parses raw arguments.
func NewArgParser(raw []string) *ArgParser {
	p := &ArgParser{
		flags:     make(map[string]string),
		boolFlags: make(map[string]bool),
	}

	i := 0
	for i < len(raw) {
		arg := raw[i]
		if !strings.HasPrefix(arg, "-") {
			p.positional = append(p.positional, arg)
			i++
			continue
		}

		name := strings.TrimLeft(arg, "-")
		if name == "" {
			i++
			continue
		}

		if eq := strings.IndexByte(name, '='); eq >= 0 {
			value := name[eq+1:]
			name = name[:eq]
			if value == "true" || value == "false" {
				p.boolFlags[name] = value == "true"
			} else {
				p.flags[name] = value
			}
			i++
			continue
		}

		if valueFlags[name] && i+1 < len(raw) && !strings.HasPrefix(raw[i+1], "-") {
			p.flags[name] = raw[i+1]
			i += 2
			continue
		}

		p.boolFlags[name] = true
		i++
	}

	return p
}

// Flag returns the value of a string flag, checking each name in order.
func (p *ArgParser) Flag(names ...string) string {
	for _, n := range names {
		if v, ok := p.flags[n]; ok {
			return v
		}
	}
	return ""
}

// BoolFlag reports whether any of the given boolean flags was set.
func (p *ArgParser) BoolFlag(names ...string) bool {
	for _, n := range names {
		if p.boolFlags[n] {
			return true
		}
	}
	return false
}

// Positional returns the positional arguments.
func (p *ArgParser) Positional() []string {
	return p.positional
}

// =============================================================================
// LAUNCH OPTIONS
// =============================================================================

// Options are the resolved command line options.
type Options struct {
	Endpoint   string
	CompanyID  string
	ConfigPath string
	Theme      string
	Plain      bool
	NoStream   bool
	Version    bool
	Help       bool
}

// ParseArgs resolves the launch options from raw arguments.
func ParseArgs(raw []string) Options {
	p := NewArgParser(raw)
	return Options{
		Endpoint:   p.Flag("endpoint", "e"),
		CompanyID:  p.Flag("company", "c"),
		ConfigPath: p.Flag("config"),
		Theme:      p.Flag("theme"),
		Plain:      p.BoolFlag("plain"),
		NoStream:   p.BoolFlag("no-stream"),
		Version:    p.BoolFlag("version", "v"),
		Help:       p.BoolFlag("help", "h"),
	}
}

// Usage is the --help output.
const Usage = `docchat - terminal client for the document chat backend

Usage:
  docchat [flags]

Flags:
  -e, --endpoint URL   backend endpoint (default from config)
  -c, --company ID     company collection to chat against
      --config PATH    config file to load
      --theme NAME     color theme: dark, light, auto
      --plain          line-mode REPL instead of the full TUI
      --no-stream      disable streaming, wait for complete answers
  -v, --version        print version and exit
  -h, --help           show this help

Environment:
  DOCCHAT_ENDPOINT, DOCCHAT_COMPANY_ID, DOCCHAT_STREAMING,
  DOCCHAT_LOG_LEVEL, DOCCHAT_THEME override config file values.`
