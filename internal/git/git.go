// Package git lists the files changed since a reference, so their blast
// radius can be computed against a snapshot.
package git

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// ChangedFile is one entry of `git diff --name-status`.
type ChangedFile struct {
	// Path is slash-separated and relative to the diffed directory.
	Path string
	// Status is the git status letter: A, M, D, R, C, T or U.
	Status string
	// OldPath is set for renames and copies.
	OldPath string
}

// GetChangedFiles runs git diff in dir and returns the changed files with
// paths relative to dir.
func GetChangedFiles(ctx context.Context, dir, baseRef string) ([]ChangedFile, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", dir, "diff", "--name-status", "--relative", "-M", baseRef)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git diff failed: %w", err)
	}

	return parseNameStatus(output)
}

func parseNameStatus(output []byte) ([]ChangedFile, error) {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	var changes []ChangedFile

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		parts := strings.Split(line, "\t")
		if len(parts) < 2 || parts[0] == "" {
			return nil, fmt.Errorf("unexpected diff line %q", line)
		}

		// Renames and copies carry a similarity score: R097\told\tnew
		status := parts[0][:1]
		switch status {
		case "R", "C":
			if len(parts) < 3 {
				return nil, fmt.Errorf("unexpected diff line %q", line)
			}
			changes = append(changes, ChangedFile{Path: parts[2], Status: status, OldPath: parts[1]})
		default:
			changes = append(changes, ChangedFile{Path: parts[1], Status: status})
		}
	}

	return changes, scanner.Err()
}

// Paths returns every path touched by changes, old paths of renames included.
func Paths(changes []ChangedFile) []string {
	out := make([]string, 0, len(changes))
	for _, c := range changes {
		if c.OldPath != "" {
			out = append(out, c.OldPath)
		}
		out = append(out, c.Path)
	}
	return out
}
