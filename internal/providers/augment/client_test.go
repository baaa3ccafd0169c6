package augment

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDecodesDataURLs(t *testing.T) {
	var got Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/augment", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		json.NewEncoder(w).Encode(map[string]any{
			"outputsBase64": []string{
				EncodeDataURL([]byte("first")),
				EncodeDataURL([]byte("second")),
			},
		})
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL})
	payloads, err := client.Generate(context.Background(), Request{
		SourceURL: "https://gateway.test/ipfs/cidX",
		Recipe:    "fog",
		Count:     2,
		Seed:      42,
	})
	require.NoError(t, err)
	require.Len(t, payloads, 2)
	assert.Equal(t, []byte("first"), payloads[0])
	assert.Equal(t, []byte("second"), payloads[1])

	assert.Equal(t, "https://gateway.test/ipfs/cidX", got.SourceURL)
	assert.Equal(t, "fog", got.Recipe)
	assert.Equal(t, 2, got.Count)
	assert.Equal(t, uint64(42), got.Seed)
}

func TestGenerateSurfacesServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "recipe not supported", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL})
	_, err := client.Generate(context.Background(), Request{Recipe: "unknown", Count: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 422")
	assert.Contains(t, err.Error(), "recipe not supported")
}

func TestGenerateRejectsEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"outputsBase64": []string{}})
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL})
	_, err := client.Generate(context.Background(), Request{Count: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")
}

func TestDecodeDataURL(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"data url", "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("hello"))},
		{"bare base64", base64.StdEncoding.EncodeToString([]byte("hello"))},
		{"trailing whitespace", base64.StdEncoding.EncodeToString([]byte("hello")) + "\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := DecodeDataURL(tc.input)
			require.NoError(t, err)
			assert.Equal(t, []byte("hello"), data)
		})
	}

	_, err := DecodeDataURL("not base64 at all!!!")
	assert.Error(t, err)
}
