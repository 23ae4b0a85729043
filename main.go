package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/illarion/companion/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "setup":
		runSetup(ctx, os.Args[2:])
	case "login":
		runLogin(ctx, os.Args[2:])
	case "passwd":
		runPasswd(ctx, os.Args[2:])
	case "methods":
		runMethods(ctx, os.Args[2:])
	case "note":
		runNote(ctx, os.Args[2:])
	case "export":
		runExport(ctx, os.Args[2:])
	case "import":
		runImport(ctx, os.Args[2:])
	case "status":
		runStatus(ctx, os.Args[2:])
	case "compact":
		runCompact(ctx, os.Args[2:])
	case "completion":
		runCompletion(ctx, os.Args[2:])
	case "help", "-h", "--help":
		if len(os.Args) <= 2 {
			printUsage()
			return
		}
		printCommandHelp(os.Args[2])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// newFlagSet creates a flag set with the --config flag every command takes
func newFlagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	configPath := fs.String("config", "", "Config file (default $COMPANION_CONFIG)")
	return fs, configPath
}

func parse(fs *flag.FlagSet, args []string) {
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func runSetup(ctx context.Context, args []string) {
	fs, configPath := newFlagSet("setup")
	method := fs.String("method", "password", "Security method (password, biometric)")
	parse(fs, args)

	cmd.Setup(ctx, *configPath, *method)
}

func runLogin(ctx context.Context, args []string) {
	fs, configPath := newFlagSet("login")
	method := fs.String("method", "password", "Security method (password, biometric)")
	parse(fs, args)

	cmd.LoginCheck(ctx, *configPath, *method)
}

func runPasswd(ctx context.Context, args []string) {
	fs, configPath := newFlagSet("passwd")
	parse(fs, args)

	cmd.Passwd(ctx, *configPath)
}

func runMethods(ctx context.Context, args []string) {
	fs, configPath := newFlagSet("methods")
	parse(fs, args)

	cmd.Methods(ctx, *configPath)
}

func runNote(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: companion note <add|ls|rm> [arguments]")
		os.Exit(1)
	}

	fs, configPath := newFlagSet("note " + args[0])
	login := fs.Bool("login", false, "Log in first")
	method := fs.String("method", "password", "Security method used to log in")

	switch args[0] {
	case "add":
		category := fs.String("category", "", "Category name (created when missing)")
		favorite := fs.Bool("favorite", false, "Mark as favorite")
		secure := fs.Bool("secure", false, "Only readable after login")
		parse(fs, args[1:])
		if fs.NArg() < 1 {
			fmt.Fprintln(os.Stderr, "Usage: companion note add [flags] <name> [content|-]")
			os.Exit(1)
		}
		cmd.NoteAdd(ctx, *configPath, fs.Arg(0), fs.Arg(1), cmd.NoteOptions{
			Category: *category,
			Favorite: *favorite,
			Secure:   *secure,
			Login:    *login,
			Method:   cmd.ParseMethod(*method),
		})
	case "ls":
		parse(fs, args[1:])
		cmd.NoteList(ctx, *configPath, *login, cmd.ParseMethod(*method))
	case "rm":
		parse(fs, args[1:])
		cmd.NoteRemove(ctx, *configPath, fs.Args(), *login, cmd.ParseMethod(*method))
	default:
		fmt.Fprintf(os.Stderr, "Unknown note command: %s\n", args[0])
		os.Exit(1)
	}
}

func runExport(ctx context.Context, args []string) {
	fs, configPath := newFlagSet("export")
	login := fs.Bool("login", false, "Log in first (required when secure notes exist)")
	method := fs.String("method", "password", "Security method used to log in")
	parse(fs, args)

	cmd.Export(ctx, *configPath, fs.Arg(0), *login, cmd.ParseMethod(*method))
}

func runImport(ctx context.Context, args []string) {
	fs, configPath := newFlagSet("import")
	strategy := fs.String("strategy", "", "Merge strategy (skip, override, delete-all); asks when empty")
	login := fs.Bool("login", false, "Log in first (required when secure notes exist)")
	method := fs.String("method", "password", "Security method used to log in")
	parse(fs, args)

	cmd.Import(ctx, *configPath, fs.Arg(0), *strategy, *login, cmd.ParseMethod(*method))
}

func runStatus(ctx context.Context, args []string) {
	fs, configPath := newFlagSet("status")
	parse(fs, args)

	cmd.Status(ctx, *configPath)
}

func runCompact(ctx context.Context, args []string) {
	fs, configPath := newFlagSet("compact")
	parse(fs, args)

	cmd.Compact(ctx, *configPath)
}

func runCompletion(_ context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: companion completion <bash|zsh|fish>")
		os.Exit(1)
	}
	cmd.Completion(args[0])
}

func printUsage() {
	fmt.Println("companion - Notes with a password or biometric login")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  companion <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  setup       Create credentials for a security method")
	fmt.Println("  login       Check credentials of a security method")
	fmt.Println("  passwd      Change the login password")
	fmt.Println("  methods     List security methods")
	fmt.Println("  note        Add, list or remove notes")
	fmt.Println("  export      Write notes to a password-protected archive")
	fmt.Println("  import      Merge notes from an archive")
	fmt.Println("  status      Show database status")
	fmt.Println("  compact     Compact database to reclaim disk space")
	fmt.Println("  completion  Generate shell completions")
	fmt.Println("  help        Show help for a command")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  companion setup                       # Choose a login password")
	fmt.Println("  companion note add todo \"buy milk\"    # Add a note")
	fmt.Println("  companion export --login              # Export everything")
	fmt.Println("  companion import --strategy skip a.zip")
	fmt.Println()
	fmt.Println("Use 'companion help <command>' for more information about a command.")
}

func printCommandHelp(command string) {
	switch command {
	case "setup":
		fmt.Println("companion setup [--method password|biometric]")
		fmt.Println()
		fmt.Println("Creates the first credentials for a security method.")
		fmt.Println("Once any method is set up, further methods need a login first.")
		fmt.Println("The password is read from $COMPANION_PASSWORD when set.")
	case "login":
		fmt.Println("companion login [--method password|biometric]")
		fmt.Println()
		fmt.Println("Verifies your credentials. Commands that need a login take --login.")
	case "passwd":
		fmt.Println("companion passwd")
		fmt.Println()
		fmt.Println("Changes the login password. Requires the current password.")
		fmt.Println("The new password gets a fresh salt.")
	case "methods":
		fmt.Println("companion methods")
		fmt.Println()
		fmt.Println("Lists security methods, whether they are set up and available.")
	case "note":
		fmt.Println("companion note add [--category name] [--favorite] [--secure] <name> [content|-]")
		fmt.Println("companion note ls [--login]")
		fmt.Println("companion note rm [--login] <name> [name...]")
		fmt.Println()
		fmt.Println("Manages notes. Secure notes are hidden until you log in.")
		fmt.Println("Content is read from standard input when omitted or '-'.")
	case "export":
		fmt.Println("companion export [--login] [<archive>]")
		fmt.Println()
		fmt.Println("Writes notes and categories to an AES-256 encrypted zip archive.")
		fmt.Println("The default name is companion-<time>.zip in the current directory.")
		fmt.Println("Exporting secure notes requires --login.")
		fmt.Println("The archive password is read from $COMPANION_ARCHIVE_PASSWORD when set.")
	case "import":
		fmt.Println("companion import [--login] [--strategy skip|override|delete-all] <archive>")
		fmt.Println()
		fmt.Println("Merges an exported archive into the database.")
		fmt.Println("Importing into a database with secure notes requires --login.")
		fmt.Println()
		fmt.Println("Strategies:")
		fmt.Println("  skip        Keep notes whose name already exists")
		fmt.Println("  override    Replace existing notes and show what changed")
		fmt.Println("  delete-all  Remove all notes and categories first")
	case "status":
		fmt.Println("companion status")
		fmt.Println()
		fmt.Println("Shows database details, note counts and security methods.")
		fmt.Println("Does not require a login.")
	case "compact":
		fmt.Println("companion compact")
		fmt.Println()
		fmt.Println("Compacts the database to reclaim unused disk space.")
	case "completion":
		fmt.Println("companion completion <bash|zsh|fish>")
		fmt.Println()
		fmt.Println("Outputs shell completion script for the specified shell.")
		fmt.Println()
		fmt.Println("Setup:")
		fmt.Println("  # Bash - add to ~/.bashrc")
		fmt.Println("  eval \"$(companion completion bash)\"")
		fmt.Println()
		fmt.Println("  # Zsh - add to ~/.zshrc")
		fmt.Println("  eval \"$(companion completion zsh)\"")
		fmt.Println()
		fmt.Println("  # Fish - add to ~/.config/fish/config.fish")
		fmt.Println("  companion completion fish | source")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
	}
}
