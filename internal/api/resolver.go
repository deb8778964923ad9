package api

import (
	"fmt"

	"github.com/gndm/ytGateway/internal/config"
	"github.com/gndm/ytGateway/internal/logger"
	"github.com/gndm/ytGateway/internal/resolver"
	"github.com/gndm/ytGateway/internal/youtube"
	"github.com/gndm/ytGateway/internal/ytdlp"
)

// NewResolver builds the resolver backend named by cfg.Resolver.
func NewResolver(cfg config.Config) (resolver.Resolver, error) {
	switch cfg.Resolver {
	case config.ResolverYouTube, "":
		log.Emit(logger.DEBUG, "Using built-in YouTube resolver\n")
		return youtube.NewResolver(), nil
	case config.ResolverYtdlp:
		log.Emit(logger.DEBUG, "Using yt-dlp resolver at %s\n", cfg.YtdlpPath)
		return ytdlp.NewClient(cfg.YtdlpPath), nil
	}
	return nil, fmt.Errorf("unknown resolver %q", cfg.Resolver)
}
