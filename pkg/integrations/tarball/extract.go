package tarball

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// maxExtractedBytes caps the total size written by one extraction.
const maxExtractedBytes = 1 << 30

// Extract unpacks a gzipped tar stream into dest, dropping the first path
// component of every entry. It returns the number of files written.
func Extract(r io.Reader, dest string) (int, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return 0, fmt.Errorf("open gzip stream: %w", err)
	}
	defer zr.Close()

	dest = filepath.Clean(dest)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return 0, err
	}

	tr := tar.NewReader(zr)
	files := 0
	var written int64
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return files, nil
		}
		if err != nil {
			return files, fmt.Errorf("read archive: %w", err)
		}

		if escapes(hdr.Name) {
			return files, fmt.Errorf("archive entry escapes package directory: %s", hdr.Name)
		}
		rel, ok := stripFirst(hdr.Name)
		if !ok {
			continue
		}
		target, err := safeJoin(dest, rel)
		if err != nil {
			return files, err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return files, err
			}
		case tar.TypeReg:
			if written+hdr.Size > maxExtractedBytes {
				return files, fmt.Errorf("archive exceeds %d bytes", maxExtractedBytes)
			}
			n, err := writeFile(target, tr, hdr.Size)
			written += n
			if err != nil {
				return files, err
			}
			files++
		default:
			// Links, devices and pax metadata never carry package code.
		}
	}
}

// stripFirst removes the leading directory ("package/" in npm archives).
// Entries without a second component are dropped.
func stripFirst(name string) (string, bool) {
	name = strings.TrimPrefix(path.Clean("/"+name), "/")
	_, rest, ok := strings.Cut(name, "/")
	if !ok || rest == "" {
		return "", false
	}
	return rest, true
}

// escapes reports whether name is absolute or has a ".." component.
func escapes(name string) bool {
	name = strings.ReplaceAll(name, "\\", "/")
	if strings.HasPrefix(name, "/") {
		return true
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return true
		}
	}
	return false
}

// safeJoin joins rel onto dest and rejects results outside dest.
func safeJoin(dest, rel string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(rel))
	if target != dest && !strings.HasPrefix(target, dest+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry escapes package directory: %s", rel)
	}
	return target, nil
}

func writeFile(target string, r io.Reader, size int64) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, err
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	n, err := io.CopyN(f, r, size)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}
