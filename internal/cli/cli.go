// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command dispatch for qwen-cli.

package cli

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Version information (overridden at build time via -ldflags).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdAsk Command = iota
	CmdChat
	CmdTUI
	CmdStatus
	CmdInit
	CmdConfig
	CmdHistory
	CmdPersona
	CmdCache
	CmdVersion
	CmdHelp
	CmdUnknown
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Model      string
	Host       string
	ConfigPath string
	Yes        bool
	Quiet      bool

	// ask
	Query    string
	NoStream bool
	Format   string
	Cached   bool
	NoCache  bool

	// chat
	Title       string
	HistoryDir  string
	NoLog       bool
	Session     string
	MaxMessages int // -1 when the flag was not given
	System      string

	// init
	Dir string

	// Raw args remaining after command extraction; subcommand-style
	// handlers (config, history, persona, cache) parse these themselves.
	Raw []string
}

const usageText = `qwen - local AI chat for your terminal, powered by Ollama

Qwen CLI forwards prompts to a locally running Ollama-compatible server.
Nothing leaves your machine.

Usage:
  qwen ask "question"             Ask a single question
  qwen chat                       Interactive chat session
  qwen tui                        Full-screen chat interface
  qwen status                     Show server and model status
  qwen init [--dir D]             Initialize the workspace
  qwen config [list|path|get|set] Configuration management
  qwen history [list|show]        Browse saved transcripts
  qwen persona [list|show|use]    Persona presets
  qwen cache [stats|clear]        Response cache maintenance
  qwen version                    Show version information
  qwen help                       Show this help

Ask Options:
  --no-stream          Wait for the complete response instead of streaming
  --format FORMAT      Output format: text, markdown, json
  --cached             Serve from (and populate) the response cache
  --no-cache           With --cached, skip the lookup and repopulate

Chat Options:
  --title TITLE        Session title used in transcript filenames
  --history-dir DIR    Directory for transcript segments
  --session PATH|ID    Resume a prior transcript
  --no-log             Do not write a transcript
  --max-messages N     In-memory history cap (excluding the system prompt)
  --system PROMPT      Override the system prompt

Global Flags:
  --model NAME         Override the configured model
  --host URL           Override the Ollama host URL
  --config PATH        Use an alternate config file
  -y, --yes            Auto-confirm prompts (e.g., model download)
  -q, --quiet          Minimal output
  --version            Show version and exit
  --help               Show this help

Environment:
  QWEN_MODEL, QWEN_OLLAMA_HOST, QWEN_CONFIG, QWEN_CLI_HOME,
  QWEN_HISTORY_DIR, QWEN_SESSION_TITLE, QWEN_SYSTEM, QWEN_MAX_MESSAGES,
  QWEN_HISTORY_MAX_BYTES, QWEN_LOG_DIR, QWEN_LOG_LEVEL, QWEN_LOG_TO_CONSOLE

Interactive Commands (during chat):
  /exit, :q, :quit     End the session
  /reset               Clear the conversation context
  /help                Show chat commands

Examples:
  qwen ask "What is Go?"                     One-shot question
  qwen ask --format markdown "Explain JSON"  Render the answer as markdown
  qwen --model qwen2.5:14b chat              Chat with a specific model
  qwen chat --title support                  Logged chat session
  qwen chat --session support-2026-08-25-1   Resume a transcript
  qwen config set model qwen2.5:14b          Persist a different model
  qwen history show support-2026-08-25-1     Replay a transcript
  qwen persona use tutor                     Switch the persona preset

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("qwen-cli version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
	fmt.Printf("  Go version: %s\n", runtime.Version())
}

// Parse parses command-line arguments and returns the command and args.
func Parse() (Command, Args) {
	return parse(os.Args[1:])
}

// parse is the testable core of Parse.
func parse(argv []string) (Command, Args) {
	remaining, parsedArgs := parseGlobalFlags(argv)

	if parsedArgs.helpRequested {
		return CmdHelp, parsedArgs.Args
	}
	if parsedArgs.versionRequested {
		return CmdVersion, parsedArgs.Args
	}

	// No command defaults to help; the tool never guesses an action.
	if len(remaining) == 0 {
		return CmdHelp, parsedArgs.Args
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	args := parsedArgs.Args
	args.Raw = remaining

	switch cmd {
	case "ask":
		parseAskArgs(&args, remaining)
		return CmdAsk, args

	case "chat":
		parseChatArgs(&args, remaining)
		return CmdChat, args

	case "tui", "gui":
		parseChatArgs(&args, remaining)
		return CmdTUI, args

	case "status", "s":
		return CmdStatus, args

	case "init", "setup":
		parseInitArgs(&args, remaining)
		return CmdInit, args

	case "config", "cfg":
		return CmdConfig, args

	case "history", "sessions":
		return CmdHistory, args

	case "persona", "personas":
		return CmdPersona, args

	case "cache":
		return CmdCache, args

	case "version", "-v", "--version":
		return CmdVersion, args

	case "help", "-h", "--help":
		return CmdHelp, args

	default:
		args.Raw = append([]string{cmd}, remaining...)
		return CmdUnknown, args
	}
}

// globalArgs carries Args plus flags that resolve to commands themselves.
type globalArgs struct {
	Args
	helpRequested    bool
	versionRequested bool
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(argv []string) ([]string, globalArgs) {
	var remaining []string
	parsed := globalArgs{Args: Args{MaxMessages: -1}}

	i := 0
	for i < len(argv) {
		arg := argv[i]

		switch arg {
		case "-y", "--yes":
			parsed.Yes = true
		case "-q", "--quiet":
			parsed.Quiet = true
		case "--help":
			parsed.helpRequested = true
		case "--version":
			parsed.versionRequested = true
		case "--model":
			if i+1 < len(argv) {
				i++
				parsed.Model = argv[i]
			}
		case "--host":
			if i+1 < len(argv) {
				i++
				parsed.Host = argv[i]
			}
		case "--config":
			if i+1 < len(argv) {
				i++
				parsed.ConfigPath = argv[i]
			}
		default:
			switch {
			case strings.HasPrefix(arg, "--model="):
				parsed.Model = strings.TrimPrefix(arg, "--model=")
			case strings.HasPrefix(arg, "--host="):
				parsed.Host = strings.TrimPrefix(arg, "--host=")
			case strings.HasPrefix(arg, "--config="):
				parsed.ConfigPath = strings.TrimPrefix(arg, "--config=")
			default:
				remaining = append(remaining, arg)
			}
		}
		i++
	}

	return remaining, parsed
}

// parseAskArgs parses ask command specific arguments.
func parseAskArgs(args *Args, remaining []string) {
	var query []string

	i := 0
	for i < len(remaining) {
		arg := remaining[i]

		switch arg {
		case "--no-stream":
			args.NoStream = true
		case "--cached":
			args.Cached = true
		case "--no-cache":
			args.NoCache = true
		case "-f", "--format":
			if i+1 < len(remaining) {
				i++
				args.Format = remaining[i]
			}
		case "-m", "--model":
			if i+1 < len(remaining) {
				i++
				args.Model = remaining[i]
			}
		default:
			switch {
			case strings.HasPrefix(arg, "--format="):
				args.Format = strings.TrimPrefix(arg, "--format=")
			case strings.HasPrefix(arg, "--model="):
				args.Model = strings.TrimPrefix(arg, "--model=")
			case !strings.HasPrefix(arg, "-"):
				query = append(query, arg)
			}
		}
		i++
	}

	args.Query = strings.Join(query, " ")
}

// parseChatArgs parses chat/tui command specific arguments.
func parseChatArgs(args *Args, remaining []string) {
	i := 0
	for i < len(remaining) {
		arg := remaining[i]

		switch arg {
		case "--no-log":
			args.NoLog = true
		case "--title", "-t":
			if i+1 < len(remaining) {
				i++
				args.Title = remaining[i]
			}
		case "--history-dir":
			if i+1 < len(remaining) {
				i++
				args.HistoryDir = remaining[i]
			}
		case "--session":
			if i+1 < len(remaining) {
				i++
				args.Session = remaining[i]
			}
		case "--system":
			if i+1 < len(remaining) {
				i++
				args.System = remaining[i]
			}
		case "--max-messages":
			if i+1 < len(remaining) {
				i++
				if n, err := strconv.Atoi(remaining[i]); err == nil && n >= 0 {
					args.MaxMessages = n
				}
			}
		case "-m", "--model":
			if i+1 < len(remaining) {
				i++
				args.Model = remaining[i]
			}
		default:
			switch {
			case strings.HasPrefix(arg, "--title="):
				args.Title = strings.TrimPrefix(arg, "--title=")
			case strings.HasPrefix(arg, "--history-dir="):
				args.HistoryDir = strings.TrimPrefix(arg, "--history-dir=")
			case strings.HasPrefix(arg, "--session="):
				args.Session = strings.TrimPrefix(arg, "--session=")
			case strings.HasPrefix(arg, "--system="):
				args.System = strings.TrimPrefix(arg, "--system=")
			case strings.HasPrefix(arg, "--max-messages="):
				if n, err := strconv.Atoi(strings.TrimPrefix(arg, "--max-messages=")); err == nil && n >= 0 {
					args.MaxMessages = n
				}
			case strings.HasPrefix(arg, "--model="):
				args.Model = strings.TrimPrefix(arg, "--model=")
			}
		}
		i++
	}
}

// parseInitArgs parses init command specific arguments.
func parseInitArgs(args *Args, remaining []string) {
	i := 0
	for i < len(remaining) {
		arg := remaining[i]

		switch {
		case arg == "--dir" || arg == "-d":
			if i+1 < len(remaining) {
				i++
				args.Dir = remaining[i]
			}
		case strings.HasPrefix(arg, "--dir="):
			args.Dir = strings.TrimPrefix(arg, "--dir=")
		}
		i++
	}
}
