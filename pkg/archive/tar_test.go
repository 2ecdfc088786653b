package archive

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/mabitter/tractor-sub000/pkg/log"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tarFile struct {
	name string
	body string
}

func buildTar(t *testing.T, format tar.Format, files ...tarFile) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, f := range files {
		hdr := &tar.Header{Name: f.name, Mode: 0o644, Size: int64(len(f.body)), Typeflag: tar.TypeReg, Format: format}
		if strings.HasSuffix(f.name, "/") {
			hdr.Typeflag, hdr.Size, hdr.Mode = tar.TypeDir, 0, 0o755
		}
		require.NoError(t, tw.WriteHeader(hdr))
		_, err := tw.Write([]byte(f.body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

var dataset = []tarFile{
	{"dataset/", ""},
	{"dataset/events.log", "recorded events"},
	{"dataset/calib/result.json", `{"rms": 0.25}`},
	{"dataset/empty.txt", ""},
}

func TestNormalizeTarPath(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"archive-root/sub/file.log", "sub/file.log"},
		{"archive-root/file.log", "file.log"},
		{"file.log", "file.log"},
		{"./archive-root/file.log", "file.log"},
		{"archive-root/", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeTarPath(tt.in))
		})
	}
}

func TestTarArchive(t *testing.T) {
	a, err := NewTarArchive(buildTar(t, tar.FormatUnknown, dataset...))
	require.NoError(t, err)
	ctx := context.Background()

	names, err := a.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"dataset/", "dataset/events.log", "dataset/calib/result.json", "dataset/empty.txt"}, names)

	data, err := a.Entry("dataset/events.log")
	require.NoError(t, err)
	assert.Equal(t, "recorded events", string(data))

	_, err = a.Entry("events.log")
	assert.True(t, IsNotFound(err))

	for _, p := range []string{"calib/result.json", "dataset/calib/result.json"} {
		data, err = a.GetBlob(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, `{"rms": 0.25}`, string(data))
	}

	data, err = a.GetBlob(ctx, "empty.txt")
	require.NoError(t, err)
	assert.Empty(t, data)

	_, err = a.GetBlob(ctx, "missing.bin")
	assert.ErrorIs(t, err, ErrNotFound)

	var result struct{ RMS float64 }
	require.NoError(t, a.GetJSON(ctx, "calib/result.json", &result))
	assert.Equal(t, 0.25, result.RMS)

	url, err := a.GetDataURL(ctx, "calib/result.json")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "data:application/json;base64,"), url)

	infos, err := a.GetFileInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, []FileInfo{
		{Name: "calib/result.json", Size: 13},
		{Name: "empty.txt", Size: 0},
		{Name: "events.log", Size: 15},
	}, infos)
}

func TestTarLongNames(t *testing.T) {
	splittable := "dataset/" + strings.Repeat("a", 60) + "/" + strings.Repeat("b", 60) + ".json"
	unsplittable := "dataset/" + strings.Repeat("c", 120) + ".log"

	tests := []struct {
		format tar.Format
		name   string
	}{
		{tar.FormatUSTAR, splittable},
		{tar.FormatPAX, unsplittable},
		{tar.FormatGNU, unsplittable},
	}

	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			a, err := NewTarArchive(buildTar(t, tt.format,
				tarFile{tt.name, "long"},
				tarFile{"dataset/short.txt", "short"},
			))
			require.NoError(t, err)

			names, err := a.Names()
			require.NoError(t, err)
			assert.Equal(t, []string{tt.name, "dataset/short.txt"}, names)

			data, err := a.Entry(tt.name)
			require.NoError(t, err)
			assert.Equal(t, "long", string(data))

			data, err = a.GetBlob(context.Background(), "short.txt")
			require.NoError(t, err)
			assert.Equal(t, "short", string(data))
		})
	}
}

func TestTarFixedLayoutHeader(t *testing.T) {
	body := "hello"
	hdr := make([]byte, blockSize)
	copy(hdr[nameOffset:], "root/greeting.txt")
	copy(hdr[sizeOffset:], fmt.Sprintf("%011o", len(body)))
	hdr[typeflagOffset] = '0'

	data := append(hdr, make([]byte, blockSize)...)
	copy(data[blockSize:], body)
	data = append(data, make([]byte, 2*blockSize)...)

	a, err := NewTarArchive(data)
	require.NoError(t, err)

	got, err := a.GetBlob(context.Background(), "greeting.txt")
	require.NoError(t, err)
	assert.Equal(t, body, string(got))
}

func TestTarCorrupt(t *testing.T) {
	data := buildTar(t, tar.FormatUnknown, tarFile{"root/big.bin", strings.Repeat("x", 2000)})

	a, err := NewTarArchive(data[:blockSize*2])
	require.NoError(t, err)

	_, err = a.Names()
	assert.ErrorIs(t, err, ErrCorruptTar)

	_, err = a.GetBlob(context.Background(), "big.bin")
	assert.ErrorIs(t, err, ErrCorruptTar)
}

func TestCompressedTar(t *testing.T) {
	raw := buildTar(t, tar.FormatUnknown, dataset...)

	gz := func() []byte {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, err := zw.Write(raw)
		require.NoError(t, err)
		require.NoError(t, zw.Close())
		return buf.Bytes()
	}
	zst := func() []byte {
		enc, err := zstd.NewWriter(nil)
		require.NoError(t, err)
		defer enc.Close()
		return enc.EncodeAll(raw, nil)
	}
	lz := func() []byte {
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		_, err := zw.Write(raw)
		require.NoError(t, err)
		require.NoError(t, zw.Close())
		return buf.Bytes()
	}

	tests := []struct {
		compression Compression
		data        []byte
	}{
		{CompressionNone, raw},
		{CompressionGzip, gz()},
		{CompressionZstd, zst()},
		{CompressionLZ4, lz()},
	}

	for _, tt := range tests {
		t.Run(string(tt.compression), func(t *testing.T) {
			assert.Equal(t, tt.compression, Detect(tt.data))

			a, err := NewTarArchive(tt.data)
			require.NoError(t, err)

			data, err := a.GetBlob(context.Background(), "events.log")
			require.NoError(t, err)
			assert.Equal(t, "recorded events", string(data))
		})
	}
}

func TestDecompressCorrupt(t *testing.T) {
	_, err := Decompress([]byte{0x1f, 0x8b, 0x00})
	assert.Error(t, err)
}

func TestDataURL(t *testing.T) {
	assert.Equal(t, "data:image/png;base64,AQI=", DataURL("images/frame.png", []byte{1, 2}))
	assert.Equal(t, "data:text/plain; charset=utf-8;base64,aGk=", DataURL("notes", []byte("hi")))
}

func TestTarGetBlobLogsFailure(t *testing.T) {
	var out bytes.Buffer
	log.Init(log.Config{Level: log.WarnLevel, JSONOutput: true, Output: &out})
	defer log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	a, err := NewTarArchive(buildTar(t, tar.FormatUnknown, dataset...))
	require.NoError(t, err)

	_, err = a.GetBlob(context.Background(), "calib/missing.json")
	require.True(t, IsNotFound(err))

	assert.Contains(t, out.String(), `"backend":"tar"`)
	assert.Contains(t, out.String(), `"path":"calib/missing.json"`)
	assert.Contains(t, out.String(), "Resource fetch failed")
}
