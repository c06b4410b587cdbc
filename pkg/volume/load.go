package volume

import (
	"context"
	"strings"
)

// IsURL reports whether src names a remote http(s) resource.
func IsURL(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// Load ingests src, a path or an http(s) URL, and blocks until the Volume
// completes. The Volume is returned even when ingestion fails so callers can
// inspect it; the error is the Volume's Err.
func Load(ctx context.Context, params *Params, src string) (*Volume, error) {
	v := New(params)
	done := make(chan struct{})
	handler := func(*Volume) { close(done) }

	var err error
	if IsURL(src) {
		err = v.ReadURL(ctx, src, handler)
	} else {
		err = v.ReadPath(ctx, src, handler)
	}
	if err != nil {
		return nil, err
	}

	<-done
	return v, v.Err()
}
