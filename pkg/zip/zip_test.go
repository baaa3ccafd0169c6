package zip

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiveRoundTrip(t *testing.T) {
	data := Archive([]Entry{
		{Filename: "variant_1.jpg", Data: []byte("one")},
		{Filename: "variant_2.jpg", Data: []byte("two")},
		{Filename: "empty.jpg"},
	})
	require.NotEmpty(t, data)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)

	contents := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		contents[f.Name] = string(body)
	}
	assert.Equal(t, map[string]string{"variant_1.jpg": "one", "variant_2.jpg": "two"}, contents)
}

func TestArchiveEmptyInput(t *testing.T) {
	data := Archive(nil)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Empty(t, zr.File)
}
