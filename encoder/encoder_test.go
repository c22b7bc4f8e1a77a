package encoder

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/marketrec/core"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n")

func fakePNG(tag string) []byte {
	return append(append([]byte(nil), pngHeader...), tag...)
}

// fakeEncoder 对每张图片返回 [len(img), 0, ...]，并统计调用次数
type fakeEncoder struct {
	dims  int
	calls atomic.Int32
}

func (f *fakeEncoder) EncodeImages(_ context.Context, images [][]byte) ([][]float64, error) {
	f.calls.Add(1)
	out := make([][]float64, len(images))
	for i, img := range images {
		v := make([]float64, f.dims)
		v[0] = float64(len(img))
		v[1] = 1
		out[i] = v
	}
	return out, nil
}

func (f *fakeEncoder) EncodeText(_ context.Context, text string) ([]float64, error) {
	f.calls.Add(1)
	v := make([]float64, f.dims)
	v[0] = 3
	v[1] = 4
	return v, nil
}

type mapObjects map[string][]byte

func (m mapObjects) GetObject(_ context.Context, bucket, key string) ([]byte, error) {
	data, ok := m[bucket+"/"+key]
	if !ok {
		return nil, core.Validationf(core.ModuleEncoder, "image not found")
	}
	return data, nil
}

func TestSession_EncodeTextNormalizesAndMemoizes(t *testing.T) {
	enc := &fakeEncoder{dims: 4}
	s, err := NewSession(enc, WithDimensions(4))
	require.NoError(t, err)

	v, err := s.EncodeText(context.Background(), "red chair")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.6, 0.8, 0, 0}, v, 1e-12)

	_, err = s.EncodeText(context.Background(), "red chair")
	require.NoError(t, err)
	assert.Equal(t, int32(1), enc.calls.Load())

	_, err = s.EncodeText(context.Background(), "  ")
	assert.True(t, core.IsValidation(err))
}

func TestSession_DimensionMismatch(t *testing.T) {
	s, err := NewSession(&fakeEncoder{dims: 3})
	require.NoError(t, err)
	assert.Equal(t, DefaultDimensions, s.Dimensions())

	_, err = s.EncodeText(context.Background(), "lamp")
	require.Error(t, err)
	assert.True(t, core.IsComputation(err))
}

func TestSession_EncodeImageSources(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "item.png")
	require.NoError(t, os.WriteFile(path, fakePNG("file"), 0o600))
	notImage := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notImage, []byte("hello world"), 0o600))

	loader := &ImageLoader{Objects: mapObjects{"products/1.png": fakePNG("object")}}
	s, err := NewSession(&fakeEncoder{dims: 2}, WithDimensions(2), WithImageLoader(loader))
	require.NoError(t, err)

	tests := []struct {
		name    string
		source  string
		wantErr bool
	}{
		{name: "file", source: path},
		{name: "data uri", source: "data:image/png;base64," + base64.StdEncoding.EncodeToString(fakePNG("uri"))},
		{name: "object storage", source: "s3://products/1.png"},
		{name: "missing file", source: filepath.Join(dir, "missing.png"), wantErr: true},
		{name: "not an image", source: notImage, wantErr: true},
		{name: "bad base64", source: "data:image/png;base64,@@@", wantErr: true},
		{name: "missing object", source: "s3://products/2.png", wantErr: true},
		{name: "malformed object uri", source: "s3://products", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := s.EncodeImage(context.Background(), tt.source)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, core.IsValidation(err), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, v, 2)
		})
	}
}

func TestSession_ObjectStorageNotConfigured(t *testing.T) {
	s, err := NewSession(&fakeEncoder{dims: 2}, WithDimensions(2))
	require.NoError(t, err)
	_, err = s.EncodeImage(context.Background(), "s3://bucket/key.png")
	assert.True(t, core.IsConfiguration(err))
}

func TestSession_BatchEncodeSkipsFailures(t *testing.T) {
	dir := t.TempDir()
	var sources []string
	for _, name := range []string{"a.png", "bb.png"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, fakePNG(name), 0o600))
		sources = append(sources, p)
	}
	missing := filepath.Join(dir, "gone.png")
	input := []string{sources[0], missing, sources[1]}

	enc := &fakeEncoder{dims: 2}
	s, err := NewSession(enc, WithDimensions(2), WithBatchConcurrency(2))
	require.NoError(t, err)

	res, err := s.BatchEncode(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, []string{sources[0], sources[1]}, res.Sources)
	assert.Equal(t, []string{missing}, res.Skipped)
	require.Len(t, res.Embeddings, 2)
	// 图片越长第一维越大，据此确认顺序
	assert.Less(t, res.Embeddings[0][0], res.Embeddings[1][0])
	assert.Equal(t, int32(1), enc.calls.Load())

	empty, err := s.BatchEncode(context.Background(), []string{missing})
	require.NoError(t, err)
	assert.Empty(t, empty.Embeddings)
}

func TestHTTPEncoder_EncodeImages(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predictions/clip", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var req encodeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "image", req.Type)
		out := make([][]float64, len(req.Inputs))
		for i := range out {
			out[i] = []float64{1, float64(i)}
		}
		_ = json.NewEncoder(w).Encode(encodeResponse{Embeddings: out})
	}))
	defer srv.Close()

	enc := NewHTTPEncoder(srv.URL+"/", "clip", WithAuth(&AuthConfig{Type: "bearer", Token: "secret"}))
	got, err := enc.EncodeImages(context.Background(), [][]byte{fakePNG("a"), fakePNG("b")})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 0}, {1, 1}}, got)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestHTTPEncoder_EncodeTextBareArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[[0.5, 0.5]]`))
	}))
	defer srv.Close()

	got, err := NewHTTPEncoder(srv.URL, "clip").EncodeText(context.Background(), "sofa")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.5}, got)
}

func TestHTTPEncoder_Errors(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		if r.Header.Get("X-API-Key") == "bad" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewHTTPEncoder(srv.URL, "clip", WithAuth(&AuthConfig{Type: "api_key", APIKey: "bad"})).
		EncodeText(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, core.IsValidation(err))
	assert.Equal(t, int32(1), attempts.Load())

	attempts.Store(0)
	_, err = NewHTTPEncoder(srv.URL, "clip", WithMaxRetries(2)).EncodeText(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, core.IsUnavailable(err))
	assert.Equal(t, int32(3), attempts.Load())
}

func TestHTTPEncoder_CircuitOpens(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	enc := NewHTTPEncoder(srv.URL, "clip", WithMaxRetries(0))
	for i := 0; i < 5; i++ {
		_, err := enc.EncodeText(context.Background(), "x")
		require.Error(t, err)
	}
	before := attempts.Load()
	_, err := enc.EncodeText(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, core.IsUnavailable(err))
	assert.Equal(t, before, attempts.Load())
}
