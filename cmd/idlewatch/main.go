package main

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/idlewatch/idlewatch/pkg/config"
	flag "github.com/spf13/pflag"
)

func main() {
	var (
		configPath   string
		timeout      time.Duration
		promptBefore time.Duration
		paused       bool
		quiet        bool
		debug        bool
		help         bool
	)

	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.DurationVar(&timeout, "timeout", 0, "Inactivity timeout before the session is declared idle")
	flag.DurationVar(&promptBefore, "prompt-before", 0, "Warn this long before the idle deadline (0 disables the warning)")
	flag.BoolVar(&paused, "paused", false, "Start with the countdown paused")
	flag.BoolVar(&quiet, "quiet", false, "Disable all notifications")
	flag.BoolVar(&debug, "debug", false, "Log engine transitions to stderr")
	flag.BoolVar(&help, "help", false, "Show help message")

	// Stop at the first non-flag argument so the wrapped command's
	// own flags pass through untouched.
	flag.CommandLine.SetInterspersed(false)
	if err := flag.CommandLine.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(2)
	}

	if help {
		printUsage()
		os.Exit(0)
	}

	// Point Load at the explicit config file before it reads the
	// environment.
	if configPath != "" {
		if err := os.Setenv("IDLEWATCH_CONFIG", configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error setting config path: %v\n", err)
			os.Exit(1)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Command line flags win over file and environment.
	if flag.CommandLine.Changed("timeout") {
		cfg.Timeout = timeout
	}
	if flag.CommandLine.Changed("prompt-before") {
		cfg.PromptBefore = promptBefore
	}
	if paused {
		cfg.StartPaused = true
	}
	if quiet {
		cfg.Quiet = true
	}
	if debug {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	command, args, err := resolveCommand(cfg, flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintf(os.Stderr, "\nPass a command to wrap, or set command in %s\n", "~/.config/idlewatch/config.yaml")
		os.Exit(1)
	}

	deps, err := NewDependencies(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating dependencies: %v\n", err)
		os.Exit(1)
	}
	defer deps.Close()

	app := NewApplication(deps)

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Ensure terminal restoration on panic
	defer func() {
		if r := recover(); r != nil {
			_ = app.Stop() // Best effort terminal restoration
			panic(r)       // Re-panic
		}
	}()

	go func() {
		<-sigChan
		if err := app.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "Error stopping process: %v\n", err)
		}
		// Exit with standard interrupt code
		os.Exit(130)
	}()

	if cfg.Debug {
		fmt.Fprintf(os.Stderr, "idlewatch: wrapping %s %v\n", command, args)
		fmt.Fprintf(os.Stderr, "idlewatch: timeout=%v prompt_before=%v quiet=%v topic=%q\n",
			cfg.Timeout, cfg.PromptBefore, cfg.Quiet, cfg.NtfyTopic)
	}

	if err := app.Run(command, args); err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			// Only log if it's not an expected exit error
			fmt.Fprintf(os.Stderr, "Error running command: %v\n", err)
		}
	}

	// Exit with the same code as the wrapped process
	os.Exit(app.ExitCode())
}

// resolveCommand picks the command to wrap: CLI arguments first, the
// configured command as fallback. Configured default args always go
// before the CLI-provided ones.
func resolveCommand(cfg *config.Config, cliArgs []string) (string, []string, error) {
	var command string
	var args []string

	if len(cliArgs) > 0 {
		command = cliArgs[0]
		args = append(args, cfg.DefaultArgs...)
		args = append(args, cliArgs[1:]...)
		return command, args, nil
	}

	if cfg.Command != "" {
		return cfg.Command, append(args, cfg.DefaultArgs...), nil
	}

	return "", nil, fmt.Errorf("no command to wrap")
}

func printUsage() {
	fmt.Println("idlewatch - terminal session wrapper with idle detection")
	fmt.Println()
	fmt.Println("Usage: idlewatch [OPTIONS] COMMAND [ARGS...]")
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Flags after COMMAND are passed through to the wrapped command")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  IDLEWATCH_TIMEOUT        Inactivity timeout (default: 2m)")
	fmt.Println("  IDLEWATCH_PROMPT_BEFORE  Warning lead time before idle (default: 30s)")
	fmt.Println("  IDLEWATCH_TOPIC          Ntfy topic for notifications")
	fmt.Println("  IDLEWATCH_SERVER         Ntfy server URL (default: https://ntfy.sh)")
	fmt.Println("  IDLEWATCH_QUIET          Disable notifications (true/false)")
	fmt.Println("  IDLEWATCH_DEBUG          Log engine transitions (true/false)")
	fmt.Println("  IDLEWATCH_START_PAUSED   Start with the countdown paused (true/false)")
	fmt.Println("  IDLEWATCH_COMMAND        Command to wrap when none is given")
	fmt.Println("  IDLEWATCH_CONFIG         Path to config file")
	fmt.Println()
	fmt.Println("Configuration file: ~/.config/idlewatch/config.yaml")
}
