package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	appDirName  = "ilo-pi-ante-toki"
	envCacheDir = "ILO_CACHE_DIR"
)

// resolveCacheDir picks the directory for default outputs: the flag or config
// value, then $ILO_CACHE_DIR, then the user cache dir.
func resolveCacheDir(flag string) (string, error) {
	if dir := strings.TrimSpace(flag); dir != "" {
		return filepath.Clean(dir), nil
	}
	if dir := strings.TrimSpace(os.Getenv(envCacheDir)); dir != "" {
		return filepath.Clean(dir), nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("no cache directory: set --cache-dir or %s: %w", envCacheDir, err)
	}
	return filepath.Join(base, appDirName), nil
}

// resolveOutput returns where the artifact for input goes. An explicit path
// wins; otherwise it is <dir>/<input stem><ext>. The parent directory exists on
// return.
func resolveOutput(input, outFlag, dir, ext string) (string, error) {
	out := strings.TrimSpace(outFlag)
	if out == "" {
		stem := inputStem(input)
		if stem == "" {
			return "", fmt.Errorf("cannot derive an output name from %q", input)
		}
		out = filepath.Join(dir, stem+ext)
	}
	out = filepath.Clean(out)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", err
	}
	return out, nil
}

// siblingPath swaps the extension of path for ext.
func siblingPath(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

func inputStem(input string) string {
	base := filepath.Base(filepath.Clean(input))
	if base == "." || base == string(filepath.Separator) || base == "-" {
		return ""
	}
	for _, ext := range []string{".gz", ".txt", ".tsv", ".csv"} {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}
