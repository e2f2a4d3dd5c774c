// spotdl implementation of [Downloader]
package services

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/pxsync/internal/shared"
)

// CommandRunner runs an external command and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// SpotDL downloads tracks by running the spotdl command into the library's watched folder.
type SpotDL struct {
	command   string
	outputDir string
	configDir string
	run       CommandRunner
	logger    *log.Logger
}

// NewSpotDL creates a [SpotDL] from cfg. A nil runner executes the real command.
func NewSpotDL(cfg shared.DownloadConfig, runner CommandRunner, logger *log.Logger) *SpotDL {
	if runner == nil {
		runner = execRunner
	}
	command := cfg.Command
	if command == "" {
		command = "spotdl"
	}
	return &SpotDL{
		command:   command,
		outputDir: cfg.OutputDir,
		configDir: cfg.ConfigDir,
		run:       runner,
		logger:    logger,
	}
}

// Args returns the command line used to download urls.
func (s *SpotDL) Args(urls []string) []string {
	args := append([]string{"download"}, urls...)
	if s.outputDir != "" {
		args = append(args, "--output", filepath.Join(s.outputDir, "{artists}", "{album}", "{title}.{output-ext}"))
	}
	if s.configDir != "" {
		args = append(args, "--cache-path", filepath.Join(s.configDir, ".spotify"))
		cookies := filepath.Join(s.configDir, "youtube_cookies.txt")
		if _, err := os.Stat(cookies); err == nil {
			args = append(args, "--cookie-file", cookies)
		}
	}
	return args
}

// Download runs spotdl once with every non-empty url as arguments of a single command.
func (s *SpotDL) Download(ctx context.Context, urls []string) error {
	var queue []string
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			queue = append(queue, u)
		}
	}
	if len(queue) == 0 {
		return nil
	}

	s.logger.Info("downloading missing tracks", "count", len(queue), "command", s.command)
	output, err := s.run(ctx, s.command, s.Args(queue)...)
	if err != nil {
		trimmed := strings.TrimSpace(string(output))
		if trimmed == "" {
			return fmt.Errorf("%s failed: %w", s.command, err)
		}
		return fmt.Errorf("%s failed: %w: %s", s.command, err, trimmed)
	}

	s.logger.Debug("download finished", "output", strings.TrimSpace(string(output)))
	return nil
}
