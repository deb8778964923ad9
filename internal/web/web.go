package web

import (
	"bytes"
	"compress/gzip"
	"embed"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/gndm/ytGateway/internal/logger"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/svg"
)

//go:embed static/*
var staticFS embed.FS

var log = logger.Get("Web")

// asset holds a minified and gzipped version of a static file.
type asset struct {
	content     []byte // minified content
	gzipped     []byte // gzipped minified content
	contentType string
}

// assets is built once by Handler and only read afterwards.
type assets map[string]*asset

// loadAssets processes all embedded static files.
func loadAssets(files fs.FS) (assets, error) {
	m := minify.New()
	m.AddFunc("text/html", html.Minify)
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/javascript", js.Minify)
	m.AddFunc("application/javascript", js.Minify)
	m.AddFunc("image/svg+xml", svg.Minify)

	cache := make(assets)
	err := fs.WalkDir(files, "static", func(filePath string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		data, err := fs.ReadFile(files, filePath)
		if err != nil {
			return err
		}

		// Determine content type from extension.
		contentType := mime.TypeByExtension(filepath.Ext(filePath))
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		// Strip "static/" prefix for serving path.
		servePath := strings.TrimPrefix(filePath, "static/")

		minified := data
		mediaType := strings.Split(contentType, ";")[0]
		if _, _, fn := m.Match(mediaType); fn != nil {
			var buf bytes.Buffer
			if err := m.Minify(mediaType, &buf, bytes.NewReader(data)); err != nil {
				log.Emit(logger.WARNING, "Failed to minify %s: %v (using original)\n", servePath, err)
			} else if len(data) > 0 {
				minified = buf.Bytes()
				reduction := 100 - (len(minified)*100)/len(data)
				log.Emit(logger.DEBUG, "Minified %s: %d -> %d bytes (%d%% reduction)\n",
					servePath, len(data), len(minified), reduction)
			}
		}

		var gzBuf bytes.Buffer
		gz, _ := gzip.NewWriterLevel(&gzBuf, gzip.BestCompression)
		gz.Write(minified)
		gz.Close()

		cache[servePath] = &asset{
			content:     minified,
			gzipped:     gzBuf.Bytes(),
			contentType: contentType,
		}
		return nil
	})

	return cache, err
}

// Handler returns an http.Handler for the browser UI. Request paths are
// relative to the mount point ("/" serves index.html). With dev set, files
// are served straight from ./internal/web/static so edits show up without
// a rebuild.
func Handler(dev bool) http.Handler {
	if dev {
		log.Emit(logger.DEBUG, "Development mode: serving UI from disk\n")
		return http.FileServer(http.Dir(filepath.Join("internal", "web", "static")))
	}

	cache, err := loadAssets(staticFS)
	if err != nil {
		log.Emit(logger.WARNING, "Failed to process embedded assets: %v\n", err)
	}
	log.Emit(logger.INFO, "Initialized %d embedded assets\n", len(cache))

	return cache
}

func (cache assets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	urlPath := path.Clean(r.URL.Path)
	if urlPath == "/" || urlPath == "." {
		urlPath = "index.html"
	} else {
		urlPath = strings.TrimPrefix(urlPath, "/")
	}

	a, ok := cache[urlPath]
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", a.contentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Vary", "Accept-Encoding")

	if strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") && len(a.gzipped) > 0 {
		w.Header().Set("Content-Encoding", "gzip")
		w.Write(a.gzipped)
		return
	}

	w.Write(a.content)
}
