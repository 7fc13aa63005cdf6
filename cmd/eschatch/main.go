// eschatch wraps an arbitrary terminal program in a transparent PTY and, on
// an escape key, turns natural-language tasks into injected input.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/eschatch/eschatch/internal/config"
	"github.com/eschatch/eschatch/internal/llm"
	"github.com/eschatch/eschatch/internal/logging"
	"github.com/eschatch/eschatch/internal/mux"
	"github.com/eschatch/eschatch/internal/overlay"
	"github.com/eschatch/eschatch/internal/prompt"
	"github.com/eschatch/eschatch/internal/ring"
	"github.com/eschatch/eschatch/internal/safety"
	"github.com/eschatch/eschatch/internal/secret"
	"github.com/eschatch/eschatch/internal/session"
	"github.com/eschatch/eschatch/internal/ssh"
	"github.com/eschatch/eschatch/internal/transcript"
	"github.com/eschatch/eschatch/internal/trigger"
)

// Version information - set at build time.
var (
	Version   = "0.3.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

type options struct {
	exec       string
	configPath string
	model      string
	baseURL    string
	sshTarget  string
	container  string
	preview    bool
	verbose    bool
	version    bool
}

func main() {
	os.Exit(run())
}

func run() int {
	var opts options
	pflag.StringVarP(&opts.exec, "exec", "e", "", "Command to wrap (default $SHELL)")
	pflag.StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	pflag.StringVarP(&opts.model, "model", "m", "", "Model name (overrides config)")
	pflag.StringVar(&opts.baseURL, "base-url", "", "Provider base URL (overrides config)")
	pflag.StringVar(&opts.sshTarget, "ssh", "", "Wrap a remote shell: user@host[:port]")
	pflag.StringVar(&opts.container, "docker", "", "Wrap a shell inside a running container")
	pflag.BoolVar(&opts.preview, "preview", false, "Show generated commands before injecting")
	pflag.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	pflag.BoolVar(&opts.version, "version", false, "Show version information")
	pflag.Parse()

	if opts.version {
		fmt.Printf("eschatch version %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		return 0
	}

	if opts.configPath == "" {
		opts.configPath = config.DefaultConfigPath()
	}

	if pflag.NArg() > 0 && pflag.Arg(0) == "init" {
		if err := runInit(opts.configPath); err != nil {
			fmt.Fprintf(os.Stderr, "eschatch: %v\n", err)
			return 1
		}
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "eschatch: %v\n", err)
		return 1
	}
	if opts.model != "" {
		cfg.LLM.Model = opts.model
	}
	if opts.baseURL != "" {
		cfg.LLM.BaseURL = opts.baseURL
	}
	if opts.preview {
		cfg.Safety.PreviewMode = true
	}
	if opts.verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "eschatch: invalid configuration: %v\n", err)
		return 1
	}

	logCloser, err := logging.Setup(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "eschatch: %v\n", err)
		return 1
	}
	defer logCloser.Close()

	code, err := runSession(cfg, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "eschatch: %v\n", err)
		return 1
	}
	return code
}

func runSession(cfg *config.Config, opts options) (int, error) {
	keys := secret.NewStore()
	apiKey, err := keys.ResolveAPIKey(cfg.LLM.Provider, apiKeyEnv(cfg))
	if err != nil {
		return 0, err
	}
	provider, err := llm.New(cfg.LLM, apiKey)
	if err != nil {
		return 0, err
	}

	source, err := promptSource(cfg)
	if err != nil {
		return 0, err
	}
	defer source.Close()

	sequences, err := cfg.EscapeSequences()
	if err != nil {
		return 0, err
	}
	scanner, err := trigger.NewScanner(sequences...)
	if err != nil {
		return 0, err
	}

	filter, err := safetyFilter(cfg)
	if err != nil {
		return 0, err
	}

	terminal, command, err := startTerminal(cfg, opts)
	if err != nil {
		return 0, err
	}

	sess, err := session.Attach(terminal, os.Stdin)
	if err != nil {
		return 0, err
	}
	// Teardown is idempotent; the deferred call covers every exit path
	// below, including panics out of the loop.
	defer sess.Teardown()

	slog.Info("session started",
		slog.String("command", command),
		slog.String("model", cfg.LLM.Model),
		slog.String("provider", cfg.LLM.Provider),
	)

	rec := startTranscript(cfg, sess, command)
	if rec != nil {
		defer rec.Close()
	}

	contextRing := ring.New(cfg.Context.MaxBytes)
	m := mux.New(mux.Params{
		Term:       sess.Terminal(),
		Stdin:      os.Stdin,
		Screen:     os.Stdout,
		Ring:       contextRing,
		Scanner:    scanner,
		Transcript: rec,
	})
	m.SetOverlay(overlay.New(overlay.Params{
		Screen:      os.Stdout,
		Host:        m,
		Provider:    provider,
		Builder:     prompt.NewBuilder(source),
		Filter:      filter,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Preview:     cfg.Safety.PreviewMode,
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watchSignals(ctx, cancel, sess)

	err = m.Run(ctx)
	sess.Teardown()
	if err != nil && !errors.Is(err, context.Canceled) {
		return 0, err
	}

	code, waitErr := sess.Wait()
	if waitErr != nil {
		slog.Warn("wait for child", slog.String("error", waitErr.Error()))
	}
	slog.Info("session ended", slog.Int("exit_code", code))
	return code, nil
}

// watchSignals forwards terminal resizes to the child and turns termination
// signals into a context cancel so the loop unwinds through teardown.
func watchSignals(ctx context.Context, cancel context.CancelFunc, sess *session.Session) {
	ch := make(chan os.Signal, 4)
	signal.Notify(ch, syscall.SIGWINCH, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-ch:
			switch sig {
			case syscall.SIGWINCH:
				if err := sess.ResizeToTerminal(); err != nil {
					slog.Warn("resize failed", slog.String("error", err.Error()))
				}
			default:
				slog.Info("terminating on signal", slog.String("signal", sig.String()))
				cancel()
				return
			}
		}
	}
}

// startTerminal picks the child backend: a local PTY, or a remote shell
// over SSH when --ssh was given.
func startTerminal(cfg *config.Config, opts options) (session.Terminal, string, error) {
	if opts.sshTarget != "" {
		user, host, port, err := ssh.ParseTarget(opts.sshTarget)
		if err != nil {
			return nil, "", err
		}
		client, err := ssh.Dial(ssh.Options{
			User:       user,
			Host:       host,
			Port:       port,
			KeyPath:    cfg.SSH.KeyPath,
			KnownHosts: cfg.SSH.KnownHosts,
			Passphrase: os.Getenv(cfg.SSH.PassphraseEnv),
		})
		if err != nil {
			return nil, "", err
		}
		cols, rows, err := term.GetSize(int(os.Stdin.Fd()))
		if err != nil {
			cols, rows = 80, 24
		}
		remote, err := client.StartShell(uint16(rows), uint16(cols))
		if err != nil {
			client.Close()
			return nil, "", err
		}
		return remote, "ssh " + opts.sshTarget, nil
	}

	if opts.container != "" {
		local, err := session.StartDocker(session.DockerOptions{
			Container: opts.container,
			Command:   opts.exec,
		})
		if err != nil {
			return nil, "", err
		}
		return local, "docker exec " + opts.container, nil
	}

	command := opts.exec
	if command == "" {
		command = os.Getenv("SHELL")
	}
	if command == "" {
		command = "/bin/sh"
	}
	parts := strings.Fields(command)
	local, err := session.StartLocal(parts[0], parts[1:]...)
	if err != nil {
		return nil, "", err
	}
	return local, command, nil
}

func safetyFilter(cfg *config.Config) (*safety.Filter, error) {
	filter, err := safety.New(cfg.Safety.DestructivePatterns)
	if err != nil {
		return nil, fmt.Errorf("compile destructive patterns: %w", err)
	}
	return filter, nil
}

func promptSource(cfg *config.Config) (*prompt.Source, error) {
	system := cfg.Prompt.System
	if system == "" {
		system = config.DefaultSystemPrompt
	}
	if cfg.Prompt.File != "" {
		return prompt.NewFileSource(cfg.Prompt.File, system)
	}
	return prompt.NewSource(system), nil
}

// startTranscript opens a best-effort session recorder; a failure logs and
// disables recording rather than blocking the session.
func startTranscript(cfg *config.Config, sess *session.Session, command string) *transcript.Recorder {
	if !cfg.Transcript.Enabled {
		return nil
	}
	rows, cols, err := sess.Size()
	if err != nil {
		rows, cols = 24, 80
	}
	rec, err := transcript.NewRecorder(cfg.Transcript.Dir, command, cols, rows)
	if err != nil {
		slog.Warn("transcript disabled", slog.String("error", err.Error()))
		return nil
	}
	if err := transcript.Prune(cfg.Transcript.Dir, cfg.Transcript.Keep); err != nil {
		slog.Warn("transcript pruning failed", slog.String("error", err.Error()))
	}
	return rec
}

// apiKeyEnv returns the environment variable consulted for the API key.
func apiKeyEnv(cfg *config.Config) string {
	if cfg.LLM.APIKeyEnv != "" {
		return cfg.LLM.APIKeyEnv
	}
	switch cfg.LLM.Provider {
	case "openai":
		return "OPENAI_API_KEY"
	default:
		return "ANTHROPIC_API_KEY"
	}
}
