package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
)

// RunResult carries the outcome of a piped ffmpeg invocation.
type RunResult struct {
	Stdout []byte
	Stderr string
}

// execCommand builds the subprocess Run starts. The source, encoder and mux
// unit tests avoid a real ffmpeg binary through their own RunDecode,
// RunEncode and RunRemux seams rather than through this variable.
var execCommand = exec.CommandContext

// Run executes name with args, feeding stdin (if non-nil) and capturing
// stdout and stderr in full. Per-invocation progress isn't tracked here:
// the pipeline's per-frame subprocess model makes whole-clip ETA/percent
// scraping meaningless, and the Pipeline already reports progress itself
// via ProgressEvent.
func Run(ctx context.Context, name string, args []string, stdin io.Reader) (*RunResult, error) {
	cmd := execCommand(ctx, name, args...)
	if stdin != nil {
		cmd.Stdin = stdin
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}

	err := cmd.Wait()
	result := &RunResult{Stdout: stdout.Bytes(), Stderr: stderr.String()}

	if err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		return result, err
	}

	return result, nil
}
