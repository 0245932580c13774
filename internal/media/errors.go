package media

import "errors"

var (
	// ErrProberUnavailable indicates the duration prober is not configured.
	ErrProberUnavailable = errors.New("media duration prober unavailable")
	// ErrUnreadableMedia indicates ffprobe could not extract a duration from
	// the supplied file.
	ErrUnreadableMedia = errors.New("unreadable media file")
)
