package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/gndm/ytGateway/internal/locator"
	"github.com/gndm/ytGateway/internal/resolver"
)

// Format selectors passed to -f for each stream kind.
const (
	audioSelector      = "bestaudio"
	audioVideoSelector = "best[acodec!=none][vcodec!=none]"
)

// waitDelay bounds how long Wait blocks on output pipes held open by
// children of a killed yt-dlp.
const waitDelay = 5 * time.Second

// CommandClient implements resolver.Resolver by calling the yt-dlp binary.
type CommandClient struct {
	// BinaryPath is the path to the yt-dlp executable. Defaults to "yt-dlp".
	BinaryPath string
}

// NewClient creates a new yt-dlp CommandClient.
func NewClient(binaryPath string) *CommandClient {
	return &CommandClient{BinaryPath: binaryPath}
}

func (c *CommandClient) bin() string {
	if c.BinaryPath == "" {
		return "yt-dlp"
	}
	return c.BinaryPath
}

// Validate reports whether loc carries a well-formed video ID. Anything past
// the first eleven characters is ignored, as yt-dlp does. It does not spawn
// yt-dlp.
func (c *CommandClient) Validate(loc string) bool {
	return resolver.ValidIDPrefix(locator.VideoID(loc))
}

// Info runs yt-dlp --dump-json for a single video.
func (c *CommandClient) Info(ctx context.Context, loc string) (*resolver.Info, error) {
	args := []string{"--dump-json", "--no-playlist", "--no-warnings", loc}
	cmd := exec.CommandContext(ctx, c.bin(), args...)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, resolver.Fail("info", resolver.ReasonCanceled, ctx.Err())
		}
		return nil, resolver.Fail("info", classify(stderr.String()), fmt.Errorf("yt-dlp failed: %w: %s", err, strings.TrimSpace(stderr.String())))
	}

	var data videoJSON
	if err := json.NewDecoder(&stdout).Decode(&data); err != nil {
		return nil, resolver.Fail("info", resolver.ReasonUpstream, fmt.Errorf("failed to parse yt-dlp output: %w", err))
	}

	info := &resolver.Info{
		ID:         data.ID,
		Title:      data.Title,
		Thumbnails: make([]resolver.Thumbnail, 0, len(data.Thumbnails)),
	}
	for _, th := range data.Thumbnails {
		info.Thumbnails = append(info.Thumbnails, resolver.Thumbnail{URL: th.URL, Width: th.Width, Height: th.Height})
	}
	return info, nil
}

// Stream starts yt-dlp writing the selected format to stdout and returns
// a reader over it. A non-zero exit is reported by Read in place of io.EOF.
func (c *CommandClient) Stream(ctx context.Context, loc string, kind resolver.Kind) (io.ReadCloser, error) {
	selector := audioSelector
	if kind == resolver.KindAudioVideo {
		selector = audioVideoSelector
	}

	args := []string{"-f", selector, "-o", "-", "--no-playlist", "--no-warnings", "--quiet", loc}
	cmd := exec.CommandContext(ctx, c.bin(), args...)
	cmd.WaitDelay = waitDelay

	pr := &processReader{cmd: cmd}
	cmd.Stderr = &pr.stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, resolver.Fail("stream", resolver.ReasonUpstream, fmt.Errorf("creating stdout pipe: %w", err))
	}
	pr.stdout = stdout

	if err := cmd.Start(); err != nil {
		return nil, resolver.Fail("stream", resolver.ReasonUpstream, fmt.Errorf("starting yt-dlp: %w", err))
	}
	return pr, nil
}

// processReader reads a running command's stdout and reaps it.
type processReader struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr bytes.Buffer
	waited bool
	err    error
}

func (p *processReader) Read(b []byte) (int, error) {
	n, err := p.stdout.Read(b)
	if err == io.EOF {
		if werr := p.wait(); werr != nil {
			return n, werr
		}
	}
	return n, err
}

// Close kills the process if it is still producing output.
func (p *processReader) Close() error {
	if p.waited {
		return nil
	}
	_ = p.cmd.Process.Kill()
	_ = p.wait()
	return nil
}

func (p *processReader) wait() error {
	if p.waited {
		return p.err
	}
	p.waited = true

	if err := p.cmd.Wait(); err != nil {
		msg := strings.TrimSpace(p.stderr.String())
		p.err = resolver.Fail("stream", classify(msg), fmt.Errorf("yt-dlp failed: %w: %s", err, msg))
	}
	return p.err
}

// classify maps yt-dlp's error text to a failure reason.
func classify(stderr string) resolver.Reason {
	msg := strings.ToLower(stderr)
	switch {
	case strings.Contains(msg, "private video"),
		strings.Contains(msg, "sign in to confirm"),
		strings.Contains(msg, "members-only"):
		return resolver.ReasonRestricted
	case strings.Contains(msg, "video unavailable"),
		strings.Contains(msg, "is not a valid url"),
		strings.Contains(msg, "incomplete youtube id"):
		return resolver.ReasonUnavailable
	case strings.Contains(msg, "requested format is not available"):
		return resolver.ReasonNoFormat
	}
	return resolver.ReasonUpstream
}
