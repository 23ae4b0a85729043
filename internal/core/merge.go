package core

import (
	"fmt"
	"os"
	"strings"

	"github.com/illarion/companion/internal/exim"
	"golang.org/x/term"
)

// AskMergeStrategy prompts for how imported records should be merged
func AskMergeStrategy() (exim.MergeStrategy, error) {
	fmt.Printf("\nHow should imported notes be merged?\n")
	fmt.Printf("  [s] Skip records whose name already exists\n")
	fmt.Printf("  [o] Override existing records\n")
	fmt.Printf("  [d] Delete everything before importing\n")

	for {
		fmt.Printf("\nYour choice: ")
		choice, err := readChoice()
		if err != nil {
			return exim.SkipOnConflict, err
		}

		switch choice {
		case "s":
			return exim.SkipOnConflict, nil
		case "o":
			return exim.OverrideOnConflict, nil
		case "d":
			return exim.DeleteAllBefore, nil
		default:
			fmt.Printf("Invalid choice. Please enter s, o or d\n")
		}
	}
}

// readChoice reads a single character choice from the terminal
func readChoice() (string, error) {
	// Try to use raw mode for single-key input
	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		// Fallback to regular input
		var input string
		_, err := fmt.Scanln(&input)
		if err != nil {
			return "", err
		}
		return strings.ToLower(strings.TrimSpace(input)), nil
	}
	defer func() { _ = term.Restore(int(os.Stdin.Fd()), oldState) }()

	buf := make([]byte, 1)
	_, err = os.Stdin.Read(buf)
	if err != nil {
		return "", err
	}

	choice := strings.ToLower(string(buf[0]))
	fmt.Printf("%s\n", choice)
	return choice, nil
}

// FormatReports renders import reports with one line per collection and the
// conflicts below it. Overridden records show what changed.
func FormatReports(reports []exim.Report) string {
	var b strings.Builder
	for _, r := range reports {
		b.WriteString(r.String())
		b.WriteByte('\n')
		for _, c := range r.Conflicts {
			fmt.Fprintf(&b, "  %s: %s\n", c.Action, c.Name)
			if c.Diff == "" {
				continue
			}
			for _, line := range strings.Split(strings.TrimRight(c.Diff, "\n"), "\n") {
				b.WriteString("    ")
				b.WriteString(line)
				b.WriteByte('\n')
			}
		}
	}
	return b.String()
}
