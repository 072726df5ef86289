package media

import (
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blob pads a magic-byte prefix out to n bytes.
func blob(magic []byte, n int) []byte {
	b := make([]byte, n)
	copy(b, magic)
	return b
}

var (
	jpegMagic = []byte{0xFF, 0xD8, 0xFF, 0xE0}
	pngMagic  = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	gifMagic  = []byte("GIF89a")
	webpMagic = []byte("RIFF\x00\x00\x00\x00WEBPVP8 ")
	mp4Magic  = []byte{0x00, 0x00, 0x00, 0x10, 'f', 't', 'y', 'p', 'm', 'p', '4', '2', 0x00, 0x00, 0x02, 0x00}
	webmMagic = []byte{0x1A, 0x45, 0xDF, 0xA3}
)

type mediaFixture struct {
	svc   Service
	store *FSStore
}

func newMediaFixture(t *testing.T) *mediaFixture {
	t.Helper()
	store, err := NewFSStore(filepath.Join(t.TempDir(), "media"))
	require.NoError(t, err)
	return &mediaFixture{
		svc:   NewService(store, zerolog.Nop()),
		store: store,
	}
}

func TestUploadAcceptsWhitelistedTypes(t *testing.T) {
	fx := newMediaFixture(t)

	tests := []struct {
		name  string
		magic []byte
		mime  string
		ext   string
	}{
		{"jpeg", jpegMagic, "image/jpeg", ".jpg"},
		{"png", pngMagic, "image/png", ".png"},
		{"gif", gifMagic, "image/gif", ".gif"},
		{"webp", webpMagic, "image/webp", ".webp"},
		{"mp4", mp4Magic, "video/mp4", ".mp4"},
		{"webm", webmMagic, "video/webm", ".webm"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := blob(tt.magic, 1024)
			up, err := fx.svc.Upload(data, "")
			require.NoError(t, err)

			assert.Equal(t, tt.mime, up.MIME)
			assert.True(t, strings.HasSuffix(up.Key, tt.ext), "key %q should end in %s", up.Key, tt.ext)
			assert.Equal(t, "/media/"+up.Key, up.URL)
			assert.Equal(t, len(data), up.Size)

			f, _, err := fx.svc.Open(up.Key)
			require.NoError(t, err)
			defer f.Close()
			got, err := io.ReadAll(f)
			require.NoError(t, err)
			assert.Equal(t, data, got)
		})
	}
}

func TestUploadRejectsUnknownType(t *testing.T) {
	fx := newMediaFixture(t)

	_, err := fx.svc.Upload([]byte("just some plain text, definitely not an image"), "")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = fx.svc.Upload(blob([]byte("%PDF-1.7"), 256), "")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestUploadDeclaredTypeMismatch(t *testing.T) {
	fx := newMediaFixture(t)

	// PNG bytes claiming to be a JPEG: the sniff wins and the upload is
	// refused rather than relabeled.
	_, err := fx.svc.Upload(blob(pngMagic, 256), "image/jpeg")
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestUploadDeclaredTypeNormalized(t *testing.T) {
	fx := newMediaFixture(t)

	up, err := fx.svc.Upload(blob(jpegMagic, 256), "image/jpg")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", up.MIME)

	_, err = fx.svc.Upload(blob(jpegMagic, 256), " IMAGE/JPEG ")
	require.NoError(t, err)
}

func TestUploadSizeCaps(t *testing.T) {
	fx := newMediaFixture(t)
	svc := fx.svc.(*mediaService)
	svc.maxImage = 64
	svc.maxVideo = 128

	_, err := fx.svc.Upload(blob(jpegMagic, 64), "")
	require.NoError(t, err)
	_, err = fx.svc.Upload(blob(jpegMagic, 65), "")
	assert.ErrorIs(t, err, ErrTooLarge)

	// Videos get the larger cap.
	_, err = fx.svc.Upload(blob(webmMagic, 128), "")
	require.NoError(t, err)
	_, err = fx.svc.Upload(blob(webmMagic, 129), "")
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestUploadEmpty(t *testing.T) {
	fx := newMediaFixture(t)

	_, err := fx.svc.Upload(nil, "")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestUploadKeysUnique(t *testing.T) {
	fx := newMediaFixture(t)
	data := blob(gifMagic, 256)

	a, err := fx.svc.Upload(data, "")
	require.NoError(t, err)
	b, err := fx.svc.Upload(data, "")
	require.NoError(t, err)
	assert.NotEqual(t, a.Key, b.Key)
}

func TestOpenRejectsBadKeys(t *testing.T) {
	fx := newMediaFixture(t)

	for _, key := range []string{
		"../../../etc/passwd",
		"..%2f..%2fsecret",
		"notauuid.jpg",
		"",
		"0d9f39e2-8a7c-4be1-9f05-1c2d3e4f5a6b", // no extension
	} {
		_, _, err := fx.svc.Open(key)
		assert.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
	}
}

func TestOpenMissing(t *testing.T) {
	fx := newMediaFixture(t)

	_, _, err := fx.svc.Open("0d9f39e2-8a7c-4be1-9f05-1c2d3e4f5a6b.jpg")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteIdempotent(t *testing.T) {
	fx := newMediaFixture(t)

	up, err := fx.svc.Upload(blob(pngMagic, 256), "")
	require.NoError(t, err)

	require.NoError(t, fx.svc.Delete(up.Key))
	_, _, err = fx.svc.Open(up.Key)
	assert.ErrorIs(t, err, ErrNotFound)

	// A second delete is a no-op at the service layer.
	require.NoError(t, fx.svc.Delete(up.Key))
	// The store itself reports the miss.
	assert.ErrorIs(t, fx.store.Delete(up.Key), ErrNotFound)
}
