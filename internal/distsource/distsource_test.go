package distsource

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tarEntry struct {
	name     string
	body     string
	dir      bool
	linkname string
}

func tarball(t *testing.T, entries ...tarEntry) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(zw)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: 0o644, Size: int64(len(e.body)), Typeflag: tar.TypeReg}
		switch {
		case e.dir:
			hdr.Typeflag, hdr.Mode, hdr.Size = tar.TypeDir, 0o755, 0
		case e.linkname != "":
			hdr.Typeflag, hdr.Linkname, hdr.Size = tar.TypeSymlink, e.linkname, 0
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if hdr.Typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, zw.Close())
	return &buf
}

func TestExtract(t *testing.T) {
	dest := t.TempDir()
	archive := tarball(t,
		tarEntry{name: "zlib-1.3/", dir: true},
		tarEntry{name: "zlib-1.3/configure", body: "#!/bin/sh\n"},
		tarEntry{name: "zlib-1.3/src/zlib.h", body: "/* zlib */"},
		tarEntry{name: "zlib-1.3/zconf.h", linkname: "src/zlib.h"},
	)

	require.NoError(t, Extract(archive, dest, 1))

	data, err := os.ReadFile(filepath.Join(dest, "configure"))
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\n", string(data))
	data, err = os.ReadFile(filepath.Join(dest, "src", "zlib.h"))
	require.NoError(t, err)
	assert.Equal(t, "/* zlib */", string(data))
	link, err := os.Readlink(filepath.Join(dest, "zconf.h"))
	require.NoError(t, err)
	assert.Equal(t, "src/zlib.h", link)
}

func TestExtract_RejectsEscapes(t *testing.T) {
	testCases := map[string]tarEntry{
		"parent entry":     {name: "../evil", body: "x"},
		"absolute entry":   {name: "/etc/evil", body: "x"},
		"escaping symlink": {name: "link", linkname: "../../etc/passwd"},
	}
	for name, entry := range testCases {
		t.Run(name, func(t *testing.T) {
			err := Extract(tarball(t, entry), t.TempDir(), 0)
			assert.ErrorContains(t, err, "destination")
		})
	}
}

func TestLocal_Fetch(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "zlib", "1.3"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "file"), nil, 0o644))
	src := &Local{Root: root}

	dir, err := src.Fetch(context.Background(), "zlib/1.3")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "zlib", "1.3"), dir)

	for _, id := range []string{"missing", "file", "../zlib", "", "/abs"} {
		_, err := src.Fetch(context.Background(), id)
		assert.True(t, errors.Is(err, ErrSourceUnavailable), "id %q: %v", id, err)
		var fetchErr *FetchError
		assert.True(t, errors.As(err, &fetchErr))
	}
}

type countingSource struct {
	calls map[string]int
	err   error
}

func (c *countingSource) Fetch(ctx context.Context, id string) (string, error) {
	if c.calls == nil {
		c.calls = make(map[string]int)
	}
	c.calls[id]++
	if c.err != nil {
		return "", c.err
	}
	return "/cache/" + id, nil
}

func TestCached_Fetch(t *testing.T) {
	inner := &countingSource{}
	cached, err := NewCached(inner, 8)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		dir, err := cached.Fetch(context.Background(), "zlib")
		require.NoError(t, err)
		assert.Equal(t, "/cache/zlib", dir)
	}
	assert.Equal(t, 1, inner.calls["zlib"])

	failing := &countingSource{err: &FetchError{ID: "x", Err: errors.New("gone")}}
	cached, err = NewCached(failing, 8)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err := cached.Fetch(context.Background(), "x")
		assert.ErrorIs(t, err, ErrSourceUnavailable)
	}
	assert.Equal(t, 2, failing.calls["x"], "failures are not cached")

	_, err = NewCached(inner, 0)
	assert.Error(t, err)
}

func TestChain_Fetch(t *testing.T) {
	unavailable := &countingSource{err: &FetchError{ID: "x", Err: errors.New("nope")}}
	ok := &countingSource{}

	dir, err := Chain{unavailable, ok}.Fetch(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "/cache/x", dir)

	_, err = Chain{unavailable, unavailable}.Fetch(context.Background(), "x")
	assert.ErrorIs(t, err, ErrSourceUnavailable)

	broken := &countingSource{err: errors.New("permission denied")}
	_, err = Chain{broken, ok}.Fetch(context.Background(), "y")
	assert.EqualError(t, err, "permission denied")
	assert.Zero(t, ok.calls["y"])

	_, err = Chain{}.Fetch(context.Background(), "z")
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestObjectStore(t *testing.T) {
	_, err := NewObjectStore(ObjectStoreConfig{Bucket: "b", CacheDir: "c"})
	assert.ErrorContains(t, err, "endpoint")
	_, err = NewObjectStore(ObjectStoreConfig{Endpoint: "localhost:9000", CacheDir: "c"})
	assert.ErrorContains(t, err, "bucket")

	cacheDir := t.TempDir()
	store, err := NewObjectStore(ObjectStoreConfig{Endpoint: "localhost:9000", Bucket: "dist", Prefix: "src/", CacheDir: cacheDir})
	require.NoError(t, err)
	assert.Equal(t, "src/zlib.tar.gz", store.objectKey("zlib"))

	extracted := filepath.Join(cacheDir, "zlib")
	require.NoError(t, os.MkdirAll(extracted, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(extracted, completeMarker), nil, 0o644))

	dir, err := store.Fetch(context.Background(), "zlib")
	require.NoError(t, err, "an extracted source is reused without contacting the store")
	assert.Equal(t, extracted, dir)

	_, err = store.Fetch(context.Background(), "../zlib")
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}
