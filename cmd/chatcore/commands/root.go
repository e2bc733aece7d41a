// Package commands provides the CLI commands for chatcore.
package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/opencode-ai/chatcore/internal/config"
	"github.com/opencode-ai/chatcore/internal/logging"
	"github.com/opencode-ai/chatcore/pkg/types"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	printLogs bool
	logToFile bool
	logLevel  string
	workDir   string
	noColor   bool
)

// appConfig is loaded once before any subcommand runs.
var appConfig *types.Config

var rootCmd = &cobra.Command{
	Use:   "chatcore",
	Short: "chatcore - inspect the chat session core",
	Long: `chatcore exercises the chat session core from the command line.

Run 'chatcore parse' to see how a request is tokenized, 'chatcore stream'
to replay a model answer through the streaming content parser, and
'chatcore combine' to aggregate change-sets along a request path.`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&printLogs, "print-logs", false, "Print logs to stderr")
	rootCmd.PersistentFlags().BoolVar(&logToFile, "log-file", false, "Append logs to chatcore.log in the state directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG|INFO|WARN|ERROR)")
	rootCmd.PersistentFlags().StringVar(&workDir, "dir", "", "Project directory (defaults to the current directory)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.SetVersionTemplate(fmt.Sprintf("chatcore %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(streamCmd)
	rootCmd.AddCommand(combineCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func setup(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	color.NoColor = color.NoColor || noColor

	dir, err := GetWorkDir(workDir)
	if err != nil {
		return err
	}
	workDir = dir

	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	appConfig = cfg

	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	var writers []io.Writer
	if printLogs {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}
	if logToFile {
		f, err := openLogFile()
		if err != nil {
			return err
		}
		writers = append(writers, f)
	}
	var out io.Writer = io.Discard
	if len(writers) > 0 {
		out = zerolog.MultiLevelWriter(writers...)
	}
	logging.Init(logging.Config{Level: logging.ParseLevel(level), Output: out})
	return nil
}

// openLogFile opens the state log file for appending. It stays open for the
// life of the process.
func openLogFile() (*os.File, error) {
	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	f, err := os.OpenFile(paths.LogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// GetWorkDir returns the working directory from flag or current directory.
func GetWorkDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	return os.Getwd()
}
