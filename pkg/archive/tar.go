package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mabitter/tractor-sub000/pkg/log"
	"github.com/mabitter/tractor-sub000/pkg/metrics"
	"github.com/rs/zerolog"
)

const (
	blockSize = 512

	nameOffset     = 0
	nameSize       = 100
	sizeOffset     = 124
	sizeDigits     = 11
	typeflagOffset = 156
	magicOffset    = 257
	prefixOffset   = 345
	prefixSize     = 155
)

// Type flags handled by the reader
const (
	typeDir       = '5'
	typeGNULong   = 'L'
	typePAX       = 'x'
	typePAXGlobal = 'g'
)

// POSIX ustar only; the GNU magic ("ustar  ") reuses the prefix field for timestamps
var magicUSTAR = []byte("ustar\x00")

// ErrCorruptTar is returned when a header or its data runs past the archive
var ErrCorruptTar = errors.New("corrupt tar archive")

type tarEntry struct {
	name     string
	typeflag byte
	size     int64
	offset   int
}

func (e tarEntry) isDir() bool {
	return e.typeflag == typeDir || strings.HasSuffix(e.name, "/")
}

// TarArchive is a read-only archive over an in-memory tarball. Entries are
// found by scanning the headers in order; no index is built.
type TarArchive struct {
	data   []byte
	logger zerolog.Logger
}

// NewTarArchive opens a tarball, inflating it first when it is gzip, zstd
// or lz4 compressed
func NewTarArchive(data []byte) (*TarArchive, error) {
	raw, err := Decompress(data)
	if err != nil {
		return nil, err
	}
	return &TarArchive{
		data:   raw,
		logger: log.WithComponent("archive").With().Str("backend", "tar").Logger(),
	}, nil
}

// NormalizeTarPath strips the first path component, which archivers
// commonly add as a wrapping directory.
func NormalizeTarPath(p string) string {
	p = strings.TrimPrefix(p, "./")
	i := strings.IndexByte(p, '/')
	if i < 0 {
		return p
	}
	return p[i+1:]
}

// walk calls fn for every file or directory entry until fn returns false.
// Long-name and PAX records are folded into the entry that follows them.
func (a *TarArchive) walk(fn func(e tarEntry) bool) error {
	var longName string
	pos := 0
	for pos+blockSize <= len(a.data) {
		hdr := a.data[pos : pos+blockSize]
		if isZeroBlock(hdr) {
			return nil
		}

		size, err := parseOctal(hdr[sizeOffset : sizeOffset+sizeDigits])
		if err != nil {
			return fmt.Errorf("%w: header at %d: %v", ErrCorruptTar, pos, err)
		}
		start := pos + blockSize
		if size < 0 || int64(start)+size > int64(len(a.data)) {
			return fmt.Errorf("%w: entry at %d wants %d bytes", ErrCorruptTar, pos, size)
		}
		body := a.data[start : start+int(size)]
		pos = start + int(roundUp(size))

		e := tarEntry{
			name:     headerName(hdr),
			typeflag: hdr[typeflagOffset],
			size:     size,
			offset:   start,
		}
		switch e.typeflag {
		case typeGNULong:
			longName = cString(body)
			continue
		case typePAX:
			if p, ok := paxPath(body); ok {
				longName = p
			}
			continue
		case typePAXGlobal:
			continue
		}
		if longName != "" {
			e.name, longName = longName, ""
		}
		if !fn(e) {
			return nil
		}
	}
	return nil
}

// Names lists every entry in archive order
func (a *TarArchive) Names() ([]string, error) {
	var names []string
	err := a.walk(func(e tarEntry) bool {
		names = append(names, e.name)
		return true
	})
	return names, err
}

// Entry returns the bytes of the entry named exactly name
func (a *TarArchive) Entry(name string) ([]byte, error) {
	var (
		found tarEntry
		ok    bool
	)
	err := a.walk(func(e tarEntry) bool {
		if e.name == name && !e.isDir() {
			found, ok = e, true
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return a.data[found.offset : found.offset+int(found.size)], nil
}

// GetBlob returns the entry at path. The path may be given with or
// without the archive's wrapping directory.
func (a *TarArchive) GetBlob(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		found tarEntry
		ok    bool
	)
	err := a.walk(func(e tarEntry) bool {
		if e.isDir() {
			return true
		}
		if e.name == path || NormalizeTarPath(e.name) == path {
			found, ok = e, true
			return false
		}
		return true
	})
	if err == nil && !ok {
		err = fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		metrics.ResourceFetches.WithLabelValues("tar", "error").Inc()
		a.logger.Warn().Err(err).Str("path", path).Msg("Resource fetch failed")
		return nil, err
	}
	metrics.ResourceFetches.WithLabelValues("tar", "ok").Inc()
	return append([]byte(nil), a.data[found.offset:found.offset+int(found.size)]...), nil
}

func (a *TarArchive) GetJSON(ctx context.Context, path string, v any) error {
	return getJSON(ctx, a, path, v)
}

func (a *TarArchive) GetDataURL(ctx context.Context, path string) (string, error) {
	return getDataURL(ctx, a, path)
}

// GetFileInfo lists the archive's entries with normalized names, sorted
func (a *TarArchive) GetFileInfo(ctx context.Context) ([]FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var infos []FileInfo
	err := a.walk(func(e tarEntry) bool {
		name := strings.TrimSuffix(NormalizeTarPath(e.name), "/")
		if name == "" {
			return true
		}
		infos = append(infos, FileInfo{Name: name, Size: e.size, IsDir: e.isDir()})
		return true
	})
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, err
}

func headerName(hdr []byte) string {
	name := cString(hdr[nameOffset : nameOffset+nameSize])
	if bytes.HasPrefix(hdr[magicOffset:], magicUSTAR) {
		if prefix := cString(hdr[prefixOffset : prefixOffset+prefixSize]); prefix != "" {
			name = prefix + "/" + name
		}
	}
	return name
}

// paxPath extracts the path keyword from PAX extended header records,
// each of the form "<len> <key>=<value>\n".
func paxPath(body []byte) (string, bool) {
	for len(body) > 0 {
		sp := bytes.IndexByte(body, ' ')
		if sp <= 0 {
			return "", false
		}
		n, err := strconv.Atoi(string(body[:sp]))
		if err != nil || n <= sp+1 || n > len(body) {
			return "", false
		}
		record := body[sp+1 : n-1]
		body = body[n:]

		key, value, ok := bytes.Cut(record, []byte("="))
		if ok && string(key) == "path" {
			return string(value), true
		}
	}
	return "", false
}

func parseOctal(field []byte) (int64, error) {
	s := strings.Trim(string(field), " \x00")
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 8, 64)
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

func isZeroBlock(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

func roundUp(n int64) int64 {
	return (n + blockSize - 1) / blockSize * blockSize
}
