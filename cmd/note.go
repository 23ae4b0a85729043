package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/illarion/companion/internal/model"
	"github.com/illarion/companion/internal/security"
)

const previewLength = 48

// NoteOptions are the flags of 'note add'
type NoteOptions struct {
	Category string
	Favorite bool
	Secure   bool
	Login    bool
	Method   security.Type
}

// NoteAdd stores a new note. Content "-" or empty reads standard input.
func NoteAdd(ctx context.Context, configPath, name, content string, opts NoteOptions) {
	app := Open(ctx, configPath)
	defer app.Close()

	if content == "" || content == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			HandleError(fmt.Errorf("failed to read note content: %w", err))
		}
		content = string(data)
	}

	if opts.Secure || opts.Login {
		Login(ctx, app, opts.Method)
	}

	n := model.Note{Name: name, Content: content, Favorite: opts.Favorite}
	if opts.Secure {
		n.SecurityLevel = 1
	}
	stored, err := app.AddNote(n, opts.Category)
	if err != nil {
		HandleError(err)
	}
	fmt.Printf("added: %s\n", stored.Name)
}

// NoteList prints all notes, newest first
func NoteList(ctx context.Context, configPath string, login bool, method security.Type) {
	app := Open(ctx, configPath)
	defer app.Close()

	if login {
		Login(ctx, app, method)
	}

	notes, err := app.Notes()
	if err != nil {
		HandleError(err)
	}
	if len(notes) == 0 {
		fmt.Println("No notes")
		return
	}

	for _, n := range notes {
		marker := " "
		if n.Favorite {
			marker = "*"
		}
		preview := n.Preview(previewLength)
		if n.Hidden {
			preview = "(secure, login to read)"
		}
		fmt.Printf("%s %-20s %-12s %s  %s\n", marker, n.Name, n.Category, n.Date.Local().Format(time.DateTime), preview)
	}
}

// NoteRemove deletes notes by name
func NoteRemove(ctx context.Context, configPath string, names []string, login bool, method security.Type) {
	if len(names) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: companion note rm <name> [name...]")
		os.Exit(1)
	}

	app := Open(ctx, configPath)
	defer app.Close()

	if login {
		Login(ctx, app, method)
	}

	var failed []string
	for _, name := range names {
		if err := app.RemoveNote(name); err != nil {
			fmt.Fprintf(os.Stderr, "error: %s\n", err)
			failed = append(failed, name)
			continue
		}
		fmt.Printf("removed: %s\n", name)
	}
	if len(failed) > 0 {
		fmt.Fprintf(os.Stderr, "Could not remove: %s\n", strings.Join(failed, ", "))
		os.Exit(1)
	}
}
