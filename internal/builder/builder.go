// Package builder invokes the external static site generator.
package builder

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/rs/zerolog"
)

// Builder runs the hugo executable against a workspace. No timeout is
// applied beyond the caller's context.
type Builder struct {
	binary string
}

// New creates a Builder. An empty binary defaults to "hugo" on PATH.
func New(binary string) *Builder {
	if binary == "" {
		binary = "hugo"
	}
	return &Builder{binary: binary}
}

// Build renders the site at srcDir into destDir using the named theme.
// The subprocess's stdout and stderr are streamed line by line to the
// logger in ctx. A non-zero exit resolves to an error carrying the exit
// code.
func (b *Builder) Build(ctx context.Context, theme, srcDir, destDir string) error {
	logger := zerolog.Ctx(ctx)

	cmd := exec.CommandContext(ctx, b.binary, "--theme="+theme, "-s", srcDir, "-d", destDir)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to open stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", b.binary, err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		streamLines(stdout, func(line string) {
			logger.Info().Str("stream", "stdout").Msg(line)
		})
	}()
	go func() {
		defer wg.Done()
		streamLines(stderr, func(line string) {
			logger.Warn().Str("stream", "stderr").Msg(line)
		})
	}()
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			return fmt.Errorf("%s exited with status %d: %w", b.binary, exitErr.ExitCode(), err)
		}
		return fmt.Errorf("%s failed: %w", b.binary, err)
	}

	return nil
}

func streamLines(r io.Reader, emit func(string)) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		emit(scanner.Text())
	}
}
