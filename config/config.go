/*
 * CCP - Startup configuration file parser
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package config parses the line-oriented startup file that selects a
// Device's log verbosity and whether a protected-key proxy is
// expected to be wired in by the embedder. One directive per line,
// '#' starts a comment, blank lines are ignored - the same shape as
// the original S370 config file grammar, pared down to the directives
// a CCP instance actually needs.
package config

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Config is the parsed form of a startup file.
type Config struct {
	LogLevel    slog.Level
	ProxyWanted bool
}

// Default returns the configuration used when no file is supplied:
// warnings and above, no proxy.
func Default() Config {
	return Config{LogLevel: slog.LevelWarn}
}

// Parse reads directives from r. Recognized directives:
//
//	loglevel <debug|info|warn|error>
//	proxy <on|off>
//
// Unknown directives are a parse error, matching the original
// parser's refusal to silently ignore malformed lines.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := stripComment(scanner.Text())
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if err := applyDirective(&cfg, fields, lineNo); err != nil {
			return cfg, err
		}
	}
	if err := scanner.Err(); err != nil {
		return cfg, fmt.Errorf("config: read error: %w", err)
	}
	return cfg, nil
}

func stripComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		return line[:i]
	}
	return line
}

func applyDirective(cfg *Config, fields []string, lineNo int) error {
	directive := strings.ToLower(fields[0])
	if len(fields) != 2 {
		return fmt.Errorf("config: line %d: %q takes exactly one argument", lineNo, directive)
	}
	arg := strings.ToLower(fields[1])

	switch directive {
	case "loglevel":
		level, err := parseLevel(arg)
		if err != nil {
			return fmt.Errorf("config: line %d: %w", lineNo, err)
		}
		cfg.LogLevel = level
	case "proxy":
		on, err := parseBool(arg)
		if err != nil {
			return fmt.Errorf("config: line %d: %w", lineNo, err)
		}
		cfg.ProxyWanted = on
	default:
		return fmt.Errorf("config: line %d: unknown directive %q", lineNo, directive)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unrecognized loglevel %q", s)
	}
}

func parseBool(s string) (bool, error) {
	switch s {
	case "on", "yes", "true":
		return true, nil
	case "off", "no", "false":
		return false, nil
	default:
		return false, fmt.Errorf("unrecognized boolean %q", s)
	}
}
