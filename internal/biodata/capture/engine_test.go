package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bderrors "github.com/a3tai/mcp-biodata/internal/biodata/errors"
	"github.com/a3tai/mcp-biodata/internal/biodata/layout"
	"github.com/a3tai/mcp-biodata/internal/biodata/model"
	"github.com/a3tai/mcp-biodata/internal/biodata/photo"
)

var quietLogger = log.New(io.Discard, "", 0)

// blockingLoader signals when a load starts and blocks until released,
// ignoring cancellation
type blockingLoader struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingLoader) Load(_ context.Context, _ string) (image.Image, error) {
	close(b.started)
	<-b.release
	return nil, errors.New("released")
}

type failingLoader struct{ calls atomic.Int32 }

func (f *failingLoader) Load(context.Context, string) (image.Image, error) {
	f.calls.Add(1)
	return nil, errors.New("broken image")
}

func pngData(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func testDocument(t *testing.T, withPhoto bool) *layout.Document {
	t.Helper()
	p := model.NewProfile()
	require.NoError(t, p.Set(model.FieldName, "Raj Kumar"))
	require.NoError(t, p.Set(model.FieldPhone, "+91 98765 43210"))
	require.NoError(t, p.Set(model.FieldAddress, "12 MG Road, Bengaluru, Karnataka, India"))
	if withPhoto {
		p.SetPhoto(photo.EncodeDataURL(photo.MIMEPNG, pngData(t, 30, 40)))
	}
	return layout.RenderLive(p, model.DefaultTemplate())
}

func newTestEngine(t *testing.T, loader ImageLoader) (*Engine, *Stage) {
	t.Helper()
	stage := NewStage()
	e, err := NewEngine(stage, loader, WithLogger(quietLogger))
	require.NoError(t, err)
	return e, stage
}

func smallOptions() model.Options {
	opts := model.DefaultOptions()
	opts.Scale = 0.5
	return opts
}

func TestEngine_Capture(t *testing.T) {
	e, stage := newTestEngine(t, NewSourceLoader(4, nil))
	stage.Mount(testDocument(t, true))

	bm, err := e.Capture(context.Background(), layout.DocumentID, smallOptions())
	require.NoError(t, err)
	assert.Equal(t, 397, bm.Width)
	assert.Greater(t, bm.Height, 0)
	assert.Equal(t, 0.5, bm.Scale)
	assert.Equal(t, image.Rect(0, 0, bm.Width, bm.Height), bm.Image.Bounds())

	captures, failures := e.Stats()
	assert.Equal(t, int64(1), captures)
	assert.Equal(t, int64(0), failures)
	assert.False(t, e.InProgress())
}

func TestEngine_HeightGrowsWithContent(t *testing.T) {
	e, stage := newTestEngine(t, NewSourceLoader(4, nil))

	stage.Mount(layout.Render(model.NewProfile(), model.DefaultTemplate()))
	short, err := e.Capture(context.Background(), layout.DocumentID, smallOptions())
	require.NoError(t, err)

	p := model.NewProfile()
	for _, key := range model.FieldKeys() {
		require.NoError(t, p.Set(key, "some reasonably long value for the "+key+" field of this record"))
	}
	stage.Mount(layout.Render(p, model.DefaultTemplate()))
	tall, err := e.Capture(context.Background(), layout.DocumentID, smallOptions())
	require.NoError(t, err)

	assert.Equal(t, short.Width, tall.Width)
	assert.Greater(t, tall.Height, short.Height)
}

func TestEngine_ElementNotFound(t *testing.T) {
	e, _ := newTestEngine(t, NewSourceLoader(4, nil))

	_, err := e.Capture(context.Background(), "missing", smallOptions())
	assert.ErrorIs(t, err, bderrors.ErrElementNotFound)
	assert.False(t, e.InProgress())

	_, failures := e.Stats()
	assert.Equal(t, int64(1), failures)
}

func TestEngine_HiddenNodeIsZeroSize(t *testing.T) {
	e, stage := newTestEngine(t, NewSourceLoader(4, nil))
	stage.Mount(testDocument(t, false))
	require.NoError(t, stage.SetVisible(layout.DocumentID, false))

	_, err := e.Capture(context.Background(), layout.DocumentID, smallOptions())
	assert.ErrorIs(t, err, bderrors.ErrZeroSizeOutput)
	assert.False(t, e.InProgress())
}

func TestEngine_RejectsConcurrentCapture(t *testing.T) {
	loader := &blockingLoader{started: make(chan struct{}), release: make(chan struct{})}
	e, stage := newTestEngine(t, loader)
	stage.Mount(testDocument(t, true))

	opts := smallOptions()
	opts.ImageTimeout = 5 * time.Second

	firstDone := make(chan error, 1)
	go func() {
		_, err := e.Capture(context.Background(), layout.DocumentID, opts)
		firstDone <- err
	}()

	<-loader.started
	assert.True(t, e.InProgress())

	start := time.Now()
	_, err := e.Capture(context.Background(), layout.DocumentID, opts)
	assert.ErrorIs(t, err, bderrors.ErrCaptureInProgress)
	assert.Less(t, time.Since(start), time.Second, "second capture must fail immediately")

	close(loader.release)
	require.NoError(t, <-firstDone, "a failed image load is tolerated")
	assert.False(t, e.InProgress())
}

func TestEngine_ImageTimeoutIsTolerated(t *testing.T) {
	loader := &blockingLoader{started: make(chan struct{}), release: make(chan struct{})}
	defer close(loader.release)
	e, stage := newTestEngine(t, loader)
	stage.Mount(testDocument(t, true))

	opts := smallOptions()
	opts.ImageTimeout = 50 * time.Millisecond

	bm, err := e.Capture(context.Background(), layout.DocumentID, opts)
	require.NoError(t, err)
	assert.Greater(t, bm.Height, 0)
}

func TestEngine_FailedImageIsTolerated(t *testing.T) {
	loader := &failingLoader{}
	e, stage := newTestEngine(t, loader)
	stage.Mount(testDocument(t, true))

	_, err := e.Capture(context.Background(), layout.DocumentID, smallOptions())
	require.NoError(t, err)
	assert.Equal(t, int32(1), loader.calls.Load())
}

func TestEngine_StyleRevertedAfterCapture(t *testing.T) {
	e, stage := newTestEngine(t, NewSourceLoader(4, nil))
	doc := testDocument(t, false)
	stage.Mount(doc)

	_, err := e.Capture(context.Background(), layout.DocumentID, smallOptions())
	require.NoError(t, err)
	mounted, visible, ok := stage.Lookup(layout.DocumentID)
	require.True(t, ok)
	assert.True(t, visible)
	assert.Equal(t, doc.Style, mounted.Style)
	assert.True(t, mounted.WatermarkVisible())

	// failure path
	require.NoError(t, stage.SetVisible(layout.DocumentID, false))
	_, err = e.Capture(context.Background(), layout.DocumentID, smallOptions())
	require.Error(t, err)
	mounted, _, _ = stage.Lookup(layout.DocumentID)
	assert.Equal(t, doc.Style, mounted.Style)
}

func TestStage_LeaseAppliesAndReleases(t *testing.T) {
	stage := NewStage()
	doc := testDocument(t, false)
	stage.Mount(doc)

	lease, err := stage.Acquire(layout.DocumentID, layout.ExportStyle())
	require.NoError(t, err)

	mounted, _, _ := stage.Lookup(layout.DocumentID)
	assert.Equal(t, layout.ExportStyle(), mounted.Style)
	assert.False(t, lease.Document().WatermarkVisible())

	lease.Release()
	lease.Release()
	mounted, _, _ = stage.Lookup(layout.DocumentID)
	assert.Equal(t, doc.Style, mounted.Style)

	_, err = stage.Acquire("other", layout.ExportStyle())
	assert.ErrorIs(t, err, bderrors.ErrElementNotFound)
	assert.Error(t, stage.SetVisible("other", false))
}

func TestStage_ReleaseAfterRemountKeepsNewDocument(t *testing.T) {
	stage := NewStage()
	stage.Mount(testDocument(t, false))

	lease, err := stage.Acquire(layout.DocumentID, layout.ExportStyle())
	require.NoError(t, err)

	fresh := layout.Render(model.NewProfile(), model.DefaultTemplate())
	stage.Mount(fresh)
	lease.Release()

	mounted, _, ok := stage.Lookup(layout.DocumentID)
	require.True(t, ok)
	assert.Equal(t, fresh, mounted)

	stage.Unmount(layout.DocumentID)
	_, _, ok = stage.Lookup(layout.DocumentID)
	assert.False(t, ok)
}

func TestSourceLoader(t *testing.T) {
	data := pngData(t, 6, 4)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/photo.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "photo.png")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	loader := NewSourceLoader(8, srv.Client())
	ctx := context.Background()

	for _, src := range []string{photo.EncodeDataURL(photo.MIMEPNG, data), path, srv.URL + "/photo.png"} {
		img, err := loader.Load(ctx, src)
		require.NoError(t, err, src)
		assert.Equal(t, 6, img.Bounds().Dx())
		assert.Equal(t, 4, img.Bounds().Dy())
	}

	// cached
	_, err := loader.Load(ctx, srv.URL+"/photo.png")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
	stats := loader.CacheStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, 3, stats.Size)

	_, err = loader.Load(ctx, srv.URL+"/missing.png")
	assert.Error(t, err)
	_, err = loader.Load(ctx, "")
	assert.Error(t, err)
	_, err = loader.Load(ctx, filepath.Join(t.TempDir(), "nope.png"))
	assert.Error(t, err)
}

func TestInlineLoader_RejectsPathsAndURLs(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "photo.png")
	data := pngData(t, 3, 3)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	loader := NewInlineLoader(4)
	ctx := context.Background()

	img, err := loader.Load(ctx, photo.EncodeDataURL(photo.MIMEPNG, data))
	require.NoError(t, err)
	assert.Equal(t, 3, img.Bounds().Dx())

	for _, src := range []string{path, "file://" + path, srv.URL + "/photo.png"} {
		_, err := loader.Load(ctx, src)
		assert.Error(t, err, src)
	}
	assert.Equal(t, int32(0), hits.Load())
}

func TestLRUCache_Evicts(t *testing.T) {
	c := newLRUCache[int](2)
	c.put("a", 1)
	c.put("b", 2)
	_, _ = c.get("a")
	c.put("c", 3)

	_, ok := c.get("b")
	assert.False(t, ok, "least recently used entry evicted")
	v, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.len())

	c.put("a", 10)
	v, _ = c.get("a")
	assert.Equal(t, 10, v)
}

func TestParseHex(t *testing.T) {
	fallback := color.RGBA{1, 2, 3, 255}
	assert.Equal(t, color.RGBA{0xd4, 0xaf, 0x37, 0xff}, parseHex("#d4af37", fallback))
	assert.Equal(t, color.RGBA{0xff, 0xff, 0xff, 0xff}, parseHex("#fff", fallback))
	assert.Equal(t, fallback, parseHex("blue", fallback))
	assert.Equal(t, fallback, parseHex("", fallback))
}
