package api

import (
	"net/http"

	"github.com/gndm/ytGateway/internal/locator"
	"github.com/gndm/ytGateway/internal/logger"
	"github.com/gndm/ytGateway/internal/resolver"
	"github.com/labstack/echo/v4"
)

// Plain-text bodies for failed requests. Causes are logged, never returned.
const (
	msgInvalidURL  = "Invalid url"
	msgInfoFailed  = "Error fetching info"
	msgAudioFailed = "Error streaming audio"
	msgVideoFailed = "Error streaming video"
)

type (
	locatorParams struct {
		URL string `query:"url" validate:"required"`
	}

	infoResponse struct {
		Title     string `json:"title"`
		Thumbnail string `json:"thumbnail,omitempty"`
	}
)

func (gateway *Gateway) root(ec echo.Context) error {
	return ec.NoContent(http.StatusOK)
}

func (gateway *Gateway) health(ec echo.Context) error {
	return ec.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// info responds with the title and third thumbnail of the video named by
// the url query parameter.
func (gateway *Gateway) info(ec echo.Context) error {
	loc, ok := gateway.locate(ec)
	if !ok {
		return ec.String(http.StatusBadRequest, msgInvalidURL)
	}

	info, err := gateway.resolver.Info(ec.Request().Context(), loc)
	if err != nil {
		logFailure(ec, err)
		return ec.String(http.StatusInternalServerError, msgInfoFailed)
	}

	return ec.JSON(http.StatusOK, infoResponse{Title: info.Title, Thumbnail: info.Thumbnail()})
}

// mp3 streams the best audio-only track as "<title>.mp3".
func (gateway *Gateway) mp3(ec echo.Context) error {
	loc, ok := gateway.locate(ec)
	if !ok {
		return ec.String(http.StatusBadRequest, msgInvalidURL)
	}

	return gateway.sendAttachment(ec, loc, attachment{
		kind:        resolver.KindAudio,
		contentType: "audio/mpeg",
		filename:    func(title string) string { return title + ".mp3" },
		failure:     msgAudioFailed,
	})
}

// mp4 streams the best muxed audio+video track as "<sanitized title>.mp4".
func (gateway *Gateway) mp4(ec echo.Context) error {
	loc, ok := gateway.locate(ec)
	if !ok {
		return ec.String(http.StatusBadRequest, msgInvalidURL)
	}

	return gateway.sendAttachment(ec, loc, attachment{
		kind:        resolver.KindAudioVideo,
		contentType: "video/mp4",
		filename:    func(title string) string { return SanitizeTitle(title) + ".mp4" },
		failure:     msgVideoFailed,
	})
}

// locate reads the url query parameter, normalizes it and has the resolver
// confirm it names a real video. ok is false for any invalid input.
func (gateway *Gateway) locate(ec echo.Context) (string, bool) {
	var params locatorParams
	if err := (&echo.DefaultBinder{}).BindQueryParams(ec, &params); err != nil {
		return "", false
	}
	if err := ec.Validate(&params); err != nil {
		return "", false
	}

	loc, err := locator.Normalize(params.URL)
	if err != nil {
		log.Emit(logger.DEBUG, "Rejected url %q: %v\n", params.URL, err)
		return "", false
	}
	if !gateway.resolver.Validate(loc) {
		log.Emit(logger.DEBUG, "Resolver rejected locator %s\n", loc)
		return "", false
	}

	return loc, true
}

// logFailure records a resolver failure against the request that hit it.
// Cancellations are the client going away and are only worth a debug line.
func logFailure(ec echo.Context, err error) {
	status := logger.ERROR
	if resolver.ReasonOf(err) == resolver.ReasonCanceled {
		status = logger.DEBUG
	}

	id := ec.Response().Header().Get(echo.HeaderXRequestID)
	log.Emit(status, "[%s] %s: %v\n", ec.Path(), id, err)
}
