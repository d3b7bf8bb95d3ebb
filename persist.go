package imagesweep

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/disintegration/imaging"
)

// Extensions of downloaded artifacts.
const (
	savedExt        = ".jpeg"
	undecodableExt  = ".unknown"
	maxNameAttempts = 10000
)

// persist decodes data, flattens alpha onto white and writes it as JPEG
// under <dir>/<index>.jpeg. A body that fails to decode is written verbatim
// as <index>.unknown and the returned error wraps ErrDecode alongside the
// path of that file.
func (cfg *Config) persist(dir string, index int, data []byte) (string, error) {
	img, err := decodeImage(bytes.NewReader(data))
	if err != nil {
		path, werr := cfg.writeExclusive(dir, index, undecodableExt, data)
		if werr != nil {
			return "", werr
		}
		cfg.Logger.Warn("imagesweep: undecodable body kept", "path", path, "bytes", len(data), "error", err)
		return path, err
	}

	var buf bytes.Buffer
	buf.Grow(len(data))
	if err := Encode(&buf, flatten(img), imaging.JPEG, cfg.JPEGQuality); err != nil {
		return "", fmt.Errorf("%w: encode jpeg: %w", ErrResourceExhausted, err)
	}
	return cfg.writeExclusive(dir, index, savedExt, buf.Bytes())
}

// writeExclusive creates <dir>/<index><ext>, or <index>.<n><ext> for the
// first free n when the name is taken. Creation uses O_EXCL so concurrent
// writers never share a file.
func (cfg *Config) writeExclusive(dir string, index int, ext string, data []byte) (string, error) {
	stem := strconv.Itoa(index)
	for n := range maxNameAttempts {
		path := numberedPath(dir, stem, ext, n)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			cfg.Logger.Error("imagesweep: create failed", "path", path, "bytes", len(data), "error", err)
			return "", fmt.Errorf("%w: create %s: %w", ErrResourceExhausted, path, err)
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			_ = os.Remove(path)
			cfg.Logger.Error("imagesweep: write failed", "path", path, "bytes", len(data), "error", err)
			return "", fmt.Errorf("%w: write %s: %w", ErrResourceExhausted, path, err)
		}
		if err := f.Close(); err != nil {
			_ = os.Remove(path)
			return "", fmt.Errorf("%w: close %s: %w", ErrResourceExhausted, path, err)
		}
		return path, nil
	}
	return "", fmt.Errorf("%w: no free name for %s%s in %s", ErrResourceExhausted, stem, ext, dir)
}
