package config

const (
	HCType        = "Content-Type"
	HETag         = "ETag"
	HCacheControl = "Cache-Control"

	CTypeCSS  = "text/css"
	CTypeJSON = "application/json"
	CTypeRSS  = "application/rss+xml"
	CTypeSSE  = "text/event-stream"
)

const (
	// SearchDataMaxAge is the Cache-Control max-age of the search snapshot, in seconds.
	SearchDataMaxAge = 300
)
