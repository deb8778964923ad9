package ytdlp

// videoJSON is the subset of yt-dlp's --dump-json output the resolver reads.
type videoJSON struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Thumbnails []thumbnailJSON `json:"thumbnails"`
}

type thumbnailJSON struct {
	URL    string `json:"url"`
	Width  uint   `json:"width"`
	Height uint   `json:"height"`
}
