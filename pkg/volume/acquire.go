package volume

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"
)

// maxErrorBody bounds how much of a failed response is kept as the message.
const maxErrorBody = 64 << 10

// maxPresize bounds the up-front allocation made from a reported size.
// File handles and servers can report any length; larger inputs grow as read.
const maxPresize = 64 << 20

// presize returns how much to allocate for an input of reported size n.
func presize(n int64) int {
	if n <= 0 {
		return 0
	}
	return int(min(n, maxPresize))
}

// readSource obtains the complete raw buffer. It never decompresses.
func (v *Volume) readSource(ctx context.Context) ([]byte, error) {
	switch v.source.Kind {
	case SourceFile:
		return readAll(v.source.File)

	case SourcePath:
		f, err := os.Open(v.source.Path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return readAll(f)

	case SourceURL:
		return v.fetch(ctx)

	default:
		return nil, fmt.Errorf("no source bound")
	}
}

func readAll(f fs.File) ([]byte, error) {
	var buf bytes.Buffer
	if info, err := f.Stat(); err == nil {
		buf.Grow(presize(info.Size()))
	}
	if _, err := buf.ReadFrom(f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// fetch issues a single GET. Only 200 OK with a fully read body succeeds.
func (v *Volume) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.source.URL, nil)
	if err != nil {
		return nil, err
	}
	if v.params.UserAgent != "" {
		req.Header.Set("User-Agent", v.params.UserAgent)
	}

	resp, err := v.params.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &HTTPStatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	var buf bytes.Buffer
	buf.Grow(presize(resp.ContentLength))
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
