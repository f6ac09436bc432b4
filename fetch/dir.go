package fetch

import (
	"context"
	stderrors "errors"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/wippyai/wasm-loader/errors"
)

// Dir serves paths from a file system with HTTP-like statuses: 404 for
// missing files, 403 for permission errors, 400 for directories.
type Dir struct {
	fsys fs.FS
}

// NewDir creates a fetcher rooted at fsys, e.g. os.DirFS("public").
func NewDir(fsys fs.FS) *Dir {
	return &Dir{fsys: fsys}
}

func (d *Dir) Fetch(ctx context.Context, p string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Transport(p, 0, err)
	}

	name := p
	if u, err := url.Parse(p); err == nil && u.Scheme == "file" {
		name = u.Path
	}
	name = strings.TrimPrefix(path.Clean("/"+name), "/")
	if name == "" {
		name = "."
	}

	f, err := d.fsys.Open(name)
	switch {
	case err == nil:
	case stderrors.Is(err, fs.ErrNotExist):
		return statusOnly(p, http.StatusNotFound), nil
	case stderrors.Is(err, fs.ErrPermission):
		return statusOnly(p, http.StatusForbidden), nil
	default:
		return nil, errors.Transport(p, 0, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Transport(p, 0, err)
	}
	if info.IsDir() {
		f.Close()
		return statusOnly(p, http.StatusBadRequest), nil
	}

	return &Response{
		Body:        f,
		Path:        name,
		ContentType: "application/wasm",
		Size:        info.Size(),
		Status:      http.StatusOK,
	}, nil
}

func statusOnly(p string, status int) *Response {
	return &Response{
		Body:   io.NopCloser(strings.NewReader("")),
		Path:   p,
		Size:   0,
		Status: status,
	}
}
