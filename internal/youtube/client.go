package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gndm/ytGateway/internal/locator"
	"github.com/gndm/ytGateway/internal/resolver"
	"github.com/kkdai/youtube/v2"
)

// videoClient is the part of *youtube.Client the resolver needs.
type videoClient interface {
	GetVideoContext(ctx context.Context, url string) (*youtube.Video, error)
	GetStreamContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error)
}

var _ videoClient = (*youtube.Client)(nil)

// Resolver implements resolver.Resolver on top of kkdai/youtube.
type Resolver struct {
	client videoClient
}

// NewResolver creates a Resolver using a default youtube.Client.
func NewResolver() *Resolver {
	return &Resolver{client: &youtube.Client{}}
}

// Validate reports whether loc names a single, well-formed video.
func (r *Resolver) Validate(loc string) bool {
	id, err := youtube.ExtractVideoID(loc)
	return err == nil && resolver.ValidID(id)
}

// Info fetches the title and thumbnails for locator.
func (r *Resolver) Info(ctx context.Context, loc string) (*resolver.Info, error) {
	video, err := r.client.GetVideoContext(ctx, loc)
	if err != nil {
		return nil, resolver.Fail("info", classify(err), fmt.Errorf("getting video %s: %w", locator.VideoID(loc), err))
	}

	info := &resolver.Info{
		ID:         video.ID,
		Title:      video.Title,
		Thumbnails: make([]resolver.Thumbnail, 0, len(video.Thumbnails)),
	}
	for _, th := range video.Thumbnails {
		info.Thumbnails = append(info.Thumbnails, resolver.Thumbnail{URL: th.URL, Width: th.Width, Height: th.Height})
	}
	return info, nil
}

// Stream opens the best format of the requested kind for locator.
func (r *Resolver) Stream(ctx context.Context, loc string, kind resolver.Kind) (io.ReadCloser, error) {
	video, err := r.client.GetVideoContext(ctx, loc)
	if err != nil {
		return nil, resolver.Fail("stream", classify(err), fmt.Errorf("getting video %s: %w", locator.VideoID(loc), err))
	}

	format := pickFormat(video.Formats, kind)
	if format == nil {
		return nil, resolver.Fail("stream", resolver.ReasonNoFormat, fmt.Errorf("video %s has no %s format", video.ID, kind))
	}

	stream, _, err := r.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return nil, resolver.Fail("stream", classify(err), fmt.Errorf("opening itag %d of %s: %w", format.ItagNo, video.ID, err))
	}
	return stream, nil
}

// pickFormat returns the highest bitrate audio-only format for KindAudio,
// and the tallest (then highest bitrate) muxed format for KindAudioVideo.
func pickFormat(formats youtube.FormatList, kind resolver.Kind) *youtube.Format {
	var best *youtube.Format
	for i := range formats {
		f := &formats[i]
		if f.AudioChannels == 0 {
			continue
		}

		switch kind {
		case resolver.KindAudio:
			if !strings.HasPrefix(f.MimeType, "audio/") {
				continue
			}
			if best == nil || f.Bitrate > best.Bitrate {
				best = f
			}
		case resolver.KindAudioVideo:
			if !strings.HasPrefix(f.MimeType, "video/") {
				continue
			}
			if best == nil || f.Height > best.Height || (f.Height == best.Height && f.Bitrate > best.Bitrate) {
				best = f
			}
		}
	}
	return best
}

func classify(err error) resolver.Reason {
	switch {
	case errors.Is(err, youtube.ErrLoginRequired),
		errors.Is(err, youtube.ErrVideoPrivate),
		errors.Is(err, youtube.ErrNotPlayableInEmbed):
		return resolver.ReasonRestricted
	case errors.Is(err, youtube.ErrInvalidCharactersInVideoID),
		errors.Is(err, youtube.ErrVideoIDMinLength):
		return resolver.ReasonUnavailable
	}

	var statusErr *youtube.ErrPlayabiltyStatus
	if errors.As(err, &statusErr) {
		if statusErr.Status == "ERROR" {
			return resolver.ReasonUnavailable
		}
		return resolver.ReasonRestricted
	}

	return resolver.ReasonUpstream
}
