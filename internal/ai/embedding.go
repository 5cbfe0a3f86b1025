package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

var ErrInvalidEmbedding = errors.New("invalid embedding output")

// CommandEmbedderConfig describes the external embedding process. The text is
// written to a temp file whose path is appended to Args.
type CommandEmbedderConfig struct {
	Command string
	Args    []string
	WorkDir string
	Env     []string
	Timeout time.Duration
}

// CommandEmbedder runs an external program per text and reads a JSON vector
// from its standard output. The program is started with an argument list, so
// file names never pass through a shell.
type CommandEmbedder struct {
	command string
	args    []string
	workDir string
	env     []string
	timeout time.Duration
}

func NewCommandEmbedder(cfg CommandEmbedderConfig) *CommandEmbedder {
	return &CommandEmbedder{
		command: cfg.Command,
		args:    append([]string(nil), cfg.Args...),
		workDir: cfg.WorkDir,
		env:     append([]string(nil), cfg.Env...),
		timeout: cfg.Timeout,
	}
}

// GenerateEmbedding returns the embedding vector for text.
func (e *CommandEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float64, error) {
	if e.command == "" {
		return nil, fmt.Errorf("embedding command is not configured")
	}

	textFile, err := os.CreateTemp(e.workDir, "embedding-input-*.txt")
	if err != nil {
		return nil, fmt.Errorf("create embedding input file failed: %w", err)
	}
	textPath := textFile.Name()
	defer os.Remove(textPath)

	if _, err := textFile.WriteString(text); err != nil {
		_ = textFile.Close()
		return nil, fmt.Errorf("write embedding input file failed: %w", err)
	}
	if err := textFile.Close(); err != nil {
		return nil, fmt.Errorf("close embedding input file failed: %w", err)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	args := append(append([]string(nil), e.args...), textPath)
	cmd := exec.CommandContext(ctx, e.command, args...)
	if len(e.env) > 0 {
		cmd.Env = append(os.Environ(), e.env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("embedding command timed out: %w", ctx.Err())
		}
		return nil, fmt.Errorf("embedding command failed: %w: %s", err, lastLines(stderr.String(), 5))
	}

	return ParseEmbedding(stdout.Bytes())
}

// ParseEmbedding decodes a JSON array of numbers. A single-row matrix is
// accepted too, and when the whole output is not JSON the last non-empty line
// is tried, since model libraries like to print progress to stdout.
func ParseEmbedding(out []byte) ([]float64, error) {
	trimmed := bytes.TrimSpace(out)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty output", ErrInvalidEmbedding)
	}

	vec, err := decodeVector(trimmed)
	if err != nil {
		lines := bytes.Split(trimmed, []byte("\n"))
		last := bytes.TrimSpace(lines[len(lines)-1])
		if len(lines) == 1 {
			return nil, err
		}
		if vec, err = decodeVector(last); err != nil {
			return nil, err
		}
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: empty vector", ErrInvalidEmbedding)
	}
	return vec, nil
}

func decodeVector(data []byte) ([]float64, error) {
	var flat []float64
	if err := json.Unmarshal(data, &flat); err == nil {
		return flat, nil
	}
	var nested [][]float64
	if err := json.Unmarshal(data, &nested); err == nil {
		if len(nested) != 1 {
			return nil, fmt.Errorf("%w: expected one vector, got %d", ErrInvalidEmbedding, len(nested))
		}
		return nested[0], nil
	}
	return nil, fmt.Errorf("%w: not a JSON number array", ErrInvalidEmbedding)
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
