package git

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Status is the git standing of files companion writes, such as export
// archives and the database
type Status struct {
	IsRepo    bool
	Tracked   []string // committed to git (bad)
	Unignored []string // not in .gitignore (warning)
	Ignored   []string // in .gitignore (good)
}

// Exposed reports whether any file could end up in a commit
func (s *Status) Exposed() bool {
	return len(s.Tracked) > 0 || len(s.Unignored) > 0
}

// IsGitRepo checks if the working directory is inside a git repository
func IsGitRepo(workDir string) bool {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = workDir
	err := cmd.Run()
	return err == nil
}

// IsTracked checks if a file is tracked by git
func IsTracked(workDir, path string) bool {
	cmd := exec.Command("git", "ls-files", "--", path)
	cmd.Dir = workDir
	output, err := cmd.Output()

	if err != nil {
		return false
	}

	return len(strings.TrimSpace(string(output))) > 0
}

// IsIgnored checks if a file is ignored by git (handles all .gitignore files)
func IsIgnored(workDir, path string) bool {
	cmd := exec.Command("git", "check-ignore", "-q", "--", path)
	cmd.Dir = workDir
	err := cmd.Run()

	// git check-ignore returns exit code 0 if file is ignored
	return err == nil
}

// Check reports the git status of files. Each file is checked from its
// own directory, so files may live in different repositories.
func Check(files ...string) *Status {
	status := &Status{}
	for _, file := range files {
		dir, name := filepath.Split(file)
		if dir == "" {
			dir = "."
		}
		if !IsGitRepo(dir) {
			continue
		}
		status.IsRepo = true

		switch {
		case IsTracked(dir, name):
			status.Tracked = append(status.Tracked, file)
		case IsIgnored(dir, name):
			status.Ignored = append(status.Ignored, file)
		default:
			status.Unignored = append(status.Unignored, file)
		}
	}
	return status
}

// FormatStatus formats the status as warnings for display. It returns ""
// when nothing needs attention.
func FormatStatus(status *Status) string {
	if !status.IsRepo || !status.Exposed() {
		return ""
	}

	var result strings.Builder
	result.WriteString("\nGit Integration:\n")

	for _, file := range status.Tracked {
		result.WriteString(fmt.Sprintf("   error: %s is tracked by git (run: git rm --cached %s)\n", file, file))
	}
	for _, file := range status.Unignored {
		result.WriteString(fmt.Sprintf("   warning: %s not in .gitignore (add to .gitignore)\n", file))
	}
	return result.String()
}
