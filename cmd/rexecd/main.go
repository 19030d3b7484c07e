package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"rexecd/rexec"
)

var (
	flagConfigFile      string
	flagAddr            string
	flagUsername        string
	flagAuthorizedKeys  string
	flagHostKey         string
	flagWorkingDir      string
	flagShell           string
	flagExecFlag        string
	flagLogLevel        string
	flagLogFile         string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "rexecd",
		Short:         "standalone SSH remote-command execution server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	flags := cmd.Flags()
	flags.StringVar(&flagConfigFile, "config", "", "path to a YAML config file")
	flags.StringVar(&flagAddr, "addr", "", "listen address (default \":2200\")")
	flags.StringVar(&flagUsername, "username", "", "the single account allowed to authenticate")
	flags.StringVar(&flagAuthorizedKeys, "authorized-keys", "", "path to an authorized_keys file")
	flags.StringVar(&flagHostKey, "host-key", "", "path to the host private key (generated if missing, default \"rexecd_host_key\")")
	flags.StringVar(&flagWorkingDir, "working-dir", "", "working directory for spawned shells (default \".\")")
	flags.StringVar(&flagShell, "shell", "", "shell invocation, shell-quoted, e.g. \"/bin/sh\" or \"cmd /Q\"")
	flags.StringVar(&flagExecFlag, "exec-flag", "", "token inserted before a command string in the shell template")
	flags.StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error (default \"info\")")
	flags.StringVar(&flagLogFile, "log-file", "", "write logs to this file instead of stderr")
	return cmd
}

// fileConfig is the YAML shape read from --config. Every field overlaps a
// flag; flags win when both are set. Grounded on Websoft9-AppOS's
// yaml-config-plus-flag-override convention.
type fileConfig struct {
	Addr               string   `yaml:"addr"`
	Username           string   `yaml:"username"`
	AuthorizedKeysFile string   `yaml:"authorized_keys_file"`
	HostKeyFile        string   `yaml:"host_key_file"`
	WorkingDir         string   `yaml:"working_dir"`
	Shell              string   `yaml:"shell"`
	ExecFlag           string   `yaml:"exec_flag"`
	LogLevel           string   `yaml:"log_level"`
	LogFile            string   `yaml:"log_file"`
}

func loadFileConfig(path string) (fileConfig, error) {
	var fc fileConfig
	if path == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse config file: %w", err)
	}
	return fc, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	fc, err := loadFileConfig(flagConfigFile)
	if err != nil {
		return err
	}

	addr := firstNonEmpty(flagAddr, fc.Addr, ":2200")
	username := firstNonEmpty(flagUsername, fc.Username)
	authorizedKeysPath := firstNonEmpty(flagAuthorizedKeys, fc.AuthorizedKeysFile)
	hostKeyPath := firstNonEmpty(flagHostKey, fc.HostKeyFile, "rexecd_host_key")
	workingDir := firstNonEmpty(flagWorkingDir, fc.WorkingDir, ".")
	execFlag := firstNonEmpty(flagExecFlag, fc.ExecFlag)
	logLevel := firstNonEmpty(flagLogLevel, fc.LogLevel, "info")
	logFile := firstNonEmpty(flagLogFile, fc.LogFile)

	shell := firstNonEmpty(flagShell, fc.Shell)

	if username == "" {
		return fmt.Errorf("rexecd: --username (or config username) is required")
	}

	logger := logrus.New()
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("rexecd: invalid --log-level %q: %w", logLevel, err)
	}
	logger.SetLevel(level)
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("rexecd: open log file: %w", err)
		}
		logger.SetOutput(f)
	}

	signer, fingerprint, generated, err := rexec.EnsureHostKey(hostKeyPath)
	if err != nil {
		return fmt.Errorf("rexecd: host key: %w", err)
	}
	hint := rexec.HostKeySuffixHint(hostKeyPath)
	keyLog := logger.WithField("fingerprint", fingerprint)
	if hint != "" {
		keyLog = keyLog.WithField("key_type_hint", hint)
	}
	if generated {
		keyLog.Info("generated new host key")
	} else {
		keyLog.Info("loaded host key")
	}

	var authorizedKeys []rexec.AuthorizedKey
	if authorizedKeysPath != "" {
		authorizedKeys, err = rexec.LoadAuthorizedKeys(authorizedKeysPath)
		if err != nil {
			return fmt.Errorf("rexecd: authorized keys: %w", err)
		}
	}
	if len(authorizedKeys) == 0 {
		dir := filepath.Dir(firstNonEmpty(authorizedKeysPath, hostKeyPath))
		if openErr := (rexec.SystemShellOpener{}).Open("explore", dir, workingDir); openErr != nil {
			logger.WithError(openErr).Warn("could not open authorized_keys directory")
		}
		return rexec.ErrNoAuthorizedKeys
	}

	opts := []rexec.OptionFunc{
		rexec.WithAddr(addr),
		rexec.WithUsername(username),
		rexec.WithAuthorizedKeys(authorizedKeys),
		rexec.WithHostKey(signer),
		rexec.WithWorkingDir(workingDir),
		rexec.WithEventHandler(rexec.LoggingEventHandler(logger)),
		rexec.WithPresenceSink(rexec.NewLoggingPresenceSink(logger)),
	}
	if shell != "" {
		opts = append(opts, rexec.WithShell(shell))
	} else {
		opts = append(opts, rexec.WithShellTemplate(defaultShellTemplate()))
	}
	if execFlag != "" {
		opts = append(opts, rexec.WithExecFlag(execFlag))
	}

	sv, err := rexec.New(rexec.Config{}, opts...)
	if err != nil {
		return fmt.Errorf("rexecd: configure: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.WithField("addr", addr).Info("starting rexecd")
	return sv.Run(ctx)
}

// defaultShellTemplate mirrors original_source's cmd.exe invocation on
// Windows and falls back to /bin/sh elsewhere, since rexecd's transport
// and side channels are cross-platform even though the reference
// implementation targeted Windows exclusively.
func defaultShellTemplate() []string {
	if runtime.GOOS == "windows" {
		return []string{"cmd"}
	}
	return []string{"/bin/sh"}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
