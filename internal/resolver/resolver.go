package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
)

// Resolver validates canonical locators and produces metadata and media
// bytes for them. Every error returned by Info and Stream is a *Failure.
type Resolver interface {
	Validate(locator string) bool
	Info(ctx context.Context, locator string) (*Info, error)
	Stream(ctx context.Context, locator string, kind Kind) (io.ReadCloser, error)
}

// Kind selects which media track a stream carries.
type Kind int

const (
	// KindAudio is the highest quality audio-only format.
	KindAudio Kind = iota
	// KindAudioVideo is the highest quality format carrying both audio and video.
	KindAudioVideo
)

func (k Kind) String() string {
	switch k {
	case KindAudio:
		return "audio"
	case KindAudioVideo:
		return "audio+video"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Thumbnail is one advertised preview image.
type Thumbnail struct {
	URL    string
	Width  uint
	Height uint
}

// Info is the metadata record for a single video.
type Info struct {
	ID         string
	Title      string
	Thumbnails []Thumbnail
}

// Thumbnail returns the third advertised thumbnail, or "" when fewer
// than three are available. There is deliberately no fallback to a
// smaller one.
func (i *Info) Thumbnail() string {
	if len(i.Thumbnails) < 3 {
		return ""
	}
	return i.Thumbnails[2].URL
}

const idLength = 11

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ValidID reports whether id has the shape of a YouTube video ID.
func ValidID(id string) bool {
	return videoIDPattern.MatchString(id)
}

// ValidIDPrefix reports whether id starts with a well-formed video ID.
// Characters past the eleventh are ignored, matching how YouTube and the
// kkdai client read watch URLs.
func ValidIDPrefix(id string) bool {
	if len(id) > idLength {
		id = id[:idLength]
	}
	return ValidID(id)
}

// Reason tags why a resolver call failed.
type Reason int

const (
	ReasonUpstream Reason = iota
	ReasonUnavailable
	ReasonRestricted
	ReasonNoFormat
	ReasonCanceled
)

func (r Reason) String() string {
	switch r {
	case ReasonUpstream:
		return "upstream"
	case ReasonUnavailable:
		return "unavailable"
	case ReasonRestricted:
		return "restricted"
	case ReasonNoFormat:
		return "no-format"
	case ReasonCanceled:
		return "canceled"
	}
	return fmt.Sprintf("Reason(%d)", int(r))
}

// Failure is the error type every resolver returns.
type Failure struct {
	Op     string
	Reason Reason
	Err    error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", f.Op, f.Reason, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Fail wraps err in a *Failure. Context errors are always tagged
// ReasonCanceled regardless of the reason given, and an err that is
// already a *Failure is returned unchanged.
func Fail(op string, reason Reason, err error) error {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		reason = ReasonCanceled
	}
	return &Failure{Op: op, Reason: reason, Err: err}
}

// ReasonOf returns the failure reason carried by err, or ReasonUpstream
// if err is not a *Failure.
func ReasonOf(err error) Reason {
	var f *Failure
	if errors.As(err, &f) {
		return f.Reason
	}
	return ReasonUpstream
}
