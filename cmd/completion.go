package cmd

import (
	"fmt"
	"os"
)

// Completion outputs shell completion scripts
func Completion(shell string) {
	switch shell {
	case "bash":
		fmt.Print(bashCompletion)
	case "zsh":
		fmt.Print(zshCompletion)
	case "fish":
		fmt.Print(fishCompletion)
	default:
		fmt.Fprintf(os.Stderr, "Unknown shell: %s\nSupported: bash, zsh, fish\n", shell)
		os.Exit(1)
	}
}

const bashCompletion = `_companion() {
    local cur prev words cword
    _init_completion || return

    local commands="setup login passwd methods note export import status compact help completion"

    if [[ $cword -eq 1 ]]; then
        COMPREPLY=($(compgen -W "$commands" -- "$cur"))
        return
    fi

    if [[ "$prev" == "--method" ]]; then
        COMPREPLY=($(compgen -W "password biometric" -- "$cur"))
        return
    fi
    if [[ "$prev" == "--strategy" ]]; then
        COMPREPLY=($(compgen -W "skip override delete-all" -- "$cur"))
        return
    fi

    local cmd="${words[1]}"
    case "$cmd" in
        setup|login)
            COMPREPLY=($(compgen -W "--method --config" -- "$cur"))
            ;;
        note)
            if [[ $cword -eq 2 ]]; then
                COMPREPLY=($(compgen -W "add ls rm" -- "$cur"))
            elif [[ "${words[2]}" == "rm" && "$cur" != -* ]]; then
                # Complete with note names
                local names
                names=$(companion note ls 2>/dev/null | sed 's/^. //' | awk '{print $1}')
                COMPREPLY=($(compgen -W "$names" -- "$cur"))
            else
                COMPREPLY=($(compgen -W "--category --favorite --secure --login --method --config" -- "$cur"))
            fi
            ;;
        export)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "--login --method --config" -- "$cur"))
            else
                _filedir zip
            fi
            ;;
        import)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "--strategy --login --method --config" -- "$cur"))
            else
                _filedir zip
            fi
            ;;
        help)
            COMPREPLY=($(compgen -W "$commands" -- "$cur"))
            ;;
        completion)
            COMPREPLY=($(compgen -W "bash zsh fish" -- "$cur"))
            ;;
    esac
}

complete -F _companion companion
`

const zshCompletion = `#compdef companion

_companion() {
    local -a commands
    commands=(
        'setup:Create credentials for a security method'
        'login:Check credentials of a security method'
        'passwd:Change the login password'
        'methods:List security methods'
        'note:Add, list or remove notes'
        'export:Write notes to a password-protected archive'
        'import:Merge notes from an archive'
        'status:Show database status'
        'compact:Compact database to reclaim disk space'
        'help:Show help for a command'
        'completion:Generate shell completions'
    )

    _arguments -C \
        '1: :->command' \
        '*: :->args'

    case "$state" in
        command)
            _describe -t commands 'companion commands' commands
            ;;
        args)
            case "${words[2]}" in
                setup|login)
                    _arguments \
                        '--method[Security method]:method:(password biometric)' \
                        '--config[Config file]:file:_files'
                    ;;
                note)
                    _values 'subcommand' add ls rm
                    ;;
                export)
                    _arguments \
                        '--login[Log in first]' \
                        '--method[Security method]:method:(password biometric)' \
                        '*:archive:_files -g "*.zip"'
                    ;;
                import)
                    _arguments \
                        '--strategy[Merge strategy]:strategy:(skip override delete-all)' \
                        '--login[Log in first]' \
                        '--method[Security method]:method:(password biometric)' \
                        '*:archive:_files -g "*.zip"'
                    ;;
                help)
                    _describe -t commands 'companion commands' commands
                    ;;
                completion)
                    _values 'shell' bash zsh fish
                    ;;
            esac
            ;;
    esac
}

_companion "$@"
`

const fishCompletion = `# companion fish completions

set -l commands setup login passwd methods note export import status compact help completion

complete -c companion -f

# Commands
complete -c companion -n "not __fish_seen_subcommand_from $commands" -a setup -d 'Create credentials'
complete -c companion -n "not __fish_seen_subcommand_from $commands" -a login -d 'Check credentials'
complete -c companion -n "not __fish_seen_subcommand_from $commands" -a passwd -d 'Change login password'
complete -c companion -n "not __fish_seen_subcommand_from $commands" -a methods -d 'List security methods'
complete -c companion -n "not __fish_seen_subcommand_from $commands" -a note -d 'Manage notes'
complete -c companion -n "not __fish_seen_subcommand_from $commands" -a export -d 'Export notes'
complete -c companion -n "not __fish_seen_subcommand_from $commands" -a import -d 'Import notes'
complete -c companion -n "not __fish_seen_subcommand_from $commands" -a status -d 'Show database status'
complete -c companion -n "not __fish_seen_subcommand_from $commands" -a compact -d 'Compact database'
complete -c companion -n "not __fish_seen_subcommand_from $commands" -a help -d 'Show help'
complete -c companion -n "not __fish_seen_subcommand_from $commands" -a completion -d 'Generate completions'

# method flag
complete -c companion -n "__fish_seen_subcommand_from setup login note export import" -l method -a "password biometric"

# note subcommands
complete -c companion -n "__fish_seen_subcommand_from note" -a "add ls rm"

# import strategy
complete -c companion -n "__fish_seen_subcommand_from import" -l strategy -a "skip override delete-all"
complete -c companion -n "__fish_seen_subcommand_from import export" -F

# help completions
complete -c companion -n "__fish_seen_subcommand_from help" -a "$commands"

# completion completions
complete -c companion -n "__fish_seen_subcommand_from completion" -a "bash zsh fish"
`
