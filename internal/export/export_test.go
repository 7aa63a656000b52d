package export

import (
	"archive/zip"
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"bereal_explorer/internal/mediamap"
	"bereal_explorer/internal/model"
)

var (
	red  = color.NRGBA{R: 255, A: 255}
	blue = color.NRGBA{B: 255, A: 255}
)

func solid(t *testing.T, w, h int, c color.NRGBA, asPNG bool) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if asPNG {
		require.NoError(t, png.Encode(&buf, img))
	} else {
		require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 100}))
	}
	return buf.Bytes()
}

type fixture struct {
	media   *mediamap.Map
	video   []byte
	primary []byte
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		media:   mediamap.New(),
		video:   []byte("mp4 bytes"),
		primary: solid(t, 350, 467, red, true),
	}
	add := func(path, mime string, data []byte) {
		_, err := f.media.Add(path, mime, data)
		require.NoError(t, err)
	}
	add("Photos/post/front.png", "image/png", f.primary)
	add("Photos/post/back.jpg", "image/jpeg", solid(t, 120, 160, blue, false))
	add("Photos/bereal/bts.mp4", "video/mp4", f.video)
	add("Photos/bereal/bts.jpg", "image/jpeg", solid(t, 10, 10, blue, false))
	t.Cleanup(func() { f.media.Release() })
	return f
}

func post(id string, taken time.Time, bts string) *model.Post {
	p := &model.Post{
		ID:             id,
		PrimaryImage:   model.Media{Path: "Photos/post/front.png", MediaType: model.MediaImage},
		SecondaryImage: model.Media{Path: "Photos/post/back.jpg", MediaType: model.MediaImage},
		Taken:          taken,
		Visibility:     []string{},
	}
	if bts != "" {
		mediaType := model.MediaImage
		if strings.HasSuffix(bts, ".mp4") {
			mediaType = model.MediaVideo
		}
		p.BTSMedia = &model.Media{Path: bts, MediaType: mediaType}
	}
	return p
}

func decodeSize(t *testing.T, data []byte) image.Point {
	t.Helper()
	img, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img.Bounds().Size()
}

func zipListing(t *testing.T, data []byte) []string {
	t.Helper()
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	names := make([]string, 0, len(reader.File))
	for _, f := range reader.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}

func TestInsetLayout(t *testing.T) {
	layout := InsetLayout(1500)
	assert.Equal(t, image.Rect(37, 37, 37+428, 37+570), layout.Inset)
	assert.Equal(t, 30.0, layout.Radius)
	assert.Equal(t, 7.5, layout.Border)

	small := InsetLayout(3)
	assert.Equal(t, 1, small.Inset.Dx())
	assert.Equal(t, 1, small.Inset.Dy())
	assert.Equal(t, 4.0, small.Border)
}

func TestComposite(t *testing.T) {
	f := newFixture(t)
	secondary, err := f.media.Bytes("Photos/post/back.jpg")
	require.NoError(t, err)

	merged, err := Composite(f.primary, secondary)
	require.NoError(t, err)

	img, format, err := image.Decode(bytes.NewReader(merged))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, image.Pt(350, 467), img.Bounds().Size())

	rgb := func(x, y int) (uint32, uint32, uint32) {
		r, g, b, _ := img.At(x, y).RGBA()
		return r >> 8, g >> 8, b >> 8
	}
	r, _, b := rgb(58, 74)
	assert.Greater(t, b, uint32(200), "inset shows the secondary image")
	assert.Less(t, r, uint32(60))

	r, g, b := rgb(300, 400)
	assert.Greater(t, r, uint32(240), "primary stays untouched away from the inset")
	assert.Less(t, g, uint32(40))
	assert.Less(t, b, uint32(40))

	r, g, b = rgb(8, 74)
	assert.Less(t, r, uint32(90), "border is black")
	assert.Less(t, g, uint32(90))
	assert.Less(t, b, uint32(90))

	r, _, _ = rgb(112, 100)
	assert.Less(t, r, uint32(245), "shadow darkens the primary beside the inset")
}

func TestComposite_RejectsUndecodable(t *testing.T) {
	_, err := Composite([]byte("nope"), []byte("nope"))
	assert.Error(t, err)
}

func TestSingle_MergedPrefersVideo(t *testing.T) {
	f := newFixture(t)
	taken := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	artifact, err := Download(context.Background(), []model.Capture{post("p1", taken, "Photos/bereal/bts.mp4")}, f.media, ModeMerged, "bereal", Options{})
	require.NoError(t, err)
	assert.Equal(t, "bereal.mp4", artifact.Name)
	assert.Equal(t, "video/mp4", artifact.ContentType)
	assert.Equal(t, f.video, artifact.Data)
}

func TestSingle_MergedComposites(t *testing.T) {
	f := newFixture(t)
	taken := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	for _, bts := range []string{"", "Photos/bereal/bts.jpg", "Photos/bereal/absent.mp4"} {
		artifact, err := Download(context.Background(), []model.Capture{post("p1", taken, bts)}, f.media, ModeMerged, "bereal", Options{})
		require.NoError(t, err, bts)
		assert.Equal(t, "bereal-merged.jpg", artifact.Name)
		assert.Equal(t, "image/jpeg", artifact.ContentType)
		assert.Equal(t, image.Pt(350, 467), decodeSize(t, artifact.Data))
	}
}

func TestSingle_PrimarySecondary(t *testing.T) {
	f := newFixture(t)
	item := post("p1", time.Now(), "")

	artifact, err := Single(item, f.media, ModePrimary, "x")
	require.NoError(t, err)
	assert.Equal(t, "x-primary.jpg", artifact.Name)
	assert.Equal(t, f.primary, artifact.Data)

	artifact, err = Single(item, f.media, ModeSecondary, "x")
	require.NoError(t, err)
	assert.Equal(t, "x-secondary.jpg", artifact.Name)
	assert.Equal(t, "image/jpeg", artifact.ContentType)
}

func TestSingle_MissingMediaIsFatal(t *testing.T) {
	f := newFixture(t)
	item := post("p1", time.Now(), "")
	item.SecondaryImage = model.Media{Path: "Photos/post/gone.jpg"}

	_, err := Download(context.Background(), []model.Capture{item}, f.media, ModePrimary, "x", Options{})
	assert.ErrorIs(t, err, ErrMissingMedia)
}

func TestDownload_BothUsesBundle(t *testing.T) {
	f := newFixture(t)
	taken := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	artifact, err := Download(context.Background(), []model.Capture{post("p1", taken, "")}, f.media, ModeBoth, "bereal", Options{})
	require.NoError(t, err)
	assert.Equal(t, "bereal.zip", artifact.Name)
	assert.Equal(t, []string{
		"2024-03-01-10-00-00/primary.jpg",
		"2024-03-01-10-00-00/secondary.jpg",
	}, zipListing(t, artifact.Data))
}

func TestBatch_SkipsMissingAndNamesFolders(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	missing := post("broken", base.Add(time.Hour), "")
	missing.SecondaryImage = model.Media{}
	memory := &model.Memory{
		ID:         "m1",
		FrontImage: model.Media{Path: "Photos/post/front.png"},
		BackImage:  model.Media{Path: "Photos/post/back.jpg"},
		TakenTime:  base.Add(2 * time.Hour),
	}
	items := []model.Capture{
		post("p1", base, ""),
		post("p2", base, "Photos/bereal/bts.mp4"),
		missing,
		memory,
	}

	artifact, err := Batch(context.Background(), items, f.media, ModeMerged, "export", Options{Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	assert.Equal(t, "export.zip", artifact.Name)
	assert.Equal(t, "application/zip", artifact.ContentType)
	assert.Equal(t, []string{"broken"}, artifact.Skipped)

	listing := zipListing(t, artifact.Data)
	assert.Equal(t, []string{
		"2024-03-01-10-00-00/merged.jpg",
		"2024-03-01-10-00-00_2/video.mp4",
		"2024-03-01-12-00-00/merged.jpg",
	}, listing)

	folders := map[string]struct{}{}
	for _, name := range listing {
		folder, _, _ := strings.Cut(name, "/")
		folders[folder] = struct{}{}
	}
	assert.Len(t, folders, len(items)-1)
}

func TestBatch_TimezoneAndModes(t *testing.T) {
	f := newFixture(t)
	taken := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	loc := time.FixedZone("UTC+2", 2*60*60)

	artifact, err := Batch(context.Background(), []model.Capture{post("p1", taken, "Photos/bereal/bts.mp4")}, f.media, ModeSecondary, "export", Options{Location: loc})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"2024-03-01-12-00-00/secondary.jpg",
		"2024-03-01-12-00-00/video.mp4",
	}, zipListing(t, artifact.Data))
}

func TestDownload_Errors(t *testing.T) {
	f := newFixture(t)
	_, err := Download(context.Background(), nil, f.media, ModePrimary, "x", Options{})
	assert.ErrorIs(t, err, ErrNoItems)

	_, err = Download(context.Background(), []model.Capture{post("p1", time.Now(), "")}, f.media, Mode("gif"), "x", Options{})
	assert.ErrorIs(t, err, ErrUnknownMode)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Batch(ctx, []model.Capture{post("p1", time.Now(), "")}, f.media, ModePrimary, "x", Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode(" Merged ")
	require.NoError(t, err)
	assert.Equal(t, ModeMerged, mode)

	_, err = ParseMode("zip")
	assert.ErrorIs(t, err, ErrUnknownMode)
}
