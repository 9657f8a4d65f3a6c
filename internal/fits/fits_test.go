package fits_test

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weave-qa/qagmire/internal/fits"
	"github.com/weave-qa/qagmire/internal/testutil"
)

func writeObsFile(t *testing.T, dir, name string, o testutil.ObsHeader) string {
	t.Helper()
	return testutil.WriteFITS(t, dir, name, testutil.BuildPrimary(o.Cards()...))
}

func TestPrimaryHeader(t *testing.T) {
	dir := t.TempDir()
	path := writeObsFile(t, dir, "r1002813.fit", testutil.ObsHeader{
		Run: 1002813, OBID: 3133, Camera: "RED", MJD: 57639.8653,
		ObsTemp: "DACBC", SkyBrTel: 21.2, SeeingB: 0.93,
	})

	h, err := fits.ReadPrimaryHeader(path)
	require.NoError(t, err)

	run, err := h.Int("RUN")
	require.NoError(t, err)
	assert.Equal(t, int64(1002813), run)

	camera, err := h.Str("CAMERA")
	require.NoError(t, err)
	assert.Equal(t, "RED", camera)

	mjd, err := h.Float("MJD-OBS")
	require.NoError(t, err)
	assert.InDelta(t, 57639.8653, mjd, 1e-9)

	obstemp, err := h.Str("OBSTEMP")
	require.NoError(t, err)
	assert.Equal(t, "DACBC", obstemp)

	simple, err := h.Bool("SIMPLE")
	require.NoError(t, err)
	assert.True(t, simple)

	assert.False(t, h.Has("NOPE"))
	_, err = h.Str("NOPE")
	assert.Error(t, err)
}

func TestImageInt16WithBZero(t *testing.T) {
	dir := t.TempDir()
	counts := [][]float64{
		{0, 1000, 65535},
		{40000, 20.0, 3},
	}
	path := testutil.WriteFITS(t, dir, "raw.fit",
		testutil.BuildPrimary(),
		testutil.BuildImageExt("COUNTS1", 16, 32768, counts),
	)

	f, err := fits.Open(path)
	require.NoError(t, err)
	defer f.Close()

	im, err := f.Image("COUNTS1")
	require.NoError(t, err)
	assert.Equal(t, 2, im.Rows())
	assert.Equal(t, 3, im.Cols())
	// Values above the signed 16-bit range must survive via BZERO.
	assert.Equal(t, 65535.0, im.Pixels[0][2])
	assert.Equal(t, 40000.0, im.Pixels[1][0])
	assert.Equal(t, 0.0, im.Pixels[0][0])
}

func TestImageFloat64NaN(t *testing.T) {
	dir := t.TempDir()
	pixels := [][]float64{{1.5, math.NaN()}, {-4.25, math.Inf(1)}}
	path := testutil.WriteFITS(t, dir, "l1.fit",
		testutil.BuildPrimary(),
		testutil.BuildImageExt("FLUX", -64, 0, pixels),
	)

	f, err := fits.Open(path)
	require.NoError(t, err)
	defer f.Close()

	im, err := f.Image("FLUX")
	require.NoError(t, err)
	assert.Equal(t, 1.5, im.Pixels[0][0])
	assert.True(t, math.IsNaN(im.Pixels[0][1]))
	assert.Equal(t, -4.25, im.Pixels[1][0])
	assert.True(t, math.IsInf(im.Pixels[1][1], 1))
}

func TestExtensionWalkSkipsEarlierData(t *testing.T) {
	dir := t.TempDir()
	first := [][]float64{{1, 2}, {3, 4}}
	second := [][]float64{{9, 8}, {7, 6}}
	path := testutil.WriteFITS(t, dir, "two.fit",
		testutil.BuildPrimary(),
		testutil.BuildImageExt("COUNTS1", -64, 0, first),
		testutil.BuildImageExt("COUNTS2", -64, 0, second),
	)

	f, err := fits.Open(path)
	require.NoError(t, err)
	defer f.Close()

	im, err := f.Image("COUNTS2")
	require.NoError(t, err)
	assert.Equal(t, 9.0, im.Pixels[0][0])

	_, err = f.Image("COUNTS3")
	assert.ErrorContains(t, err, "no extension named")
}

func TestBinaryTable(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFITS(t, dir, "tab.fit",
		testutil.BuildPrimary(),
		testutil.BuildTableExt("FIBTABLE", 3, []testutil.TableColumn{
			{Name: "TARGUSE", TForm: "1A", Strings: []string{"S", "T", "S"}},
			{Name: "TARGID", TForm: "8A", Strings: []string{"sky_1", "star_22", "sky_3"}},
			{Name: "FIBREID", TForm: "1J", Ints: []int64{101, 102, 103}},
			{Name: "XPOS", TForm: "1D", Floats: []float64{-1.25, 0, 2.5}},
		}),
	)

	f, err := fits.Open(path)
	require.NoError(t, err)
	defer f.Close()

	tab, err := f.Table("FIBTABLE")
	require.NoError(t, err)
	assert.Equal(t, 3, tab.NRows())
	assert.Equal(t, []string{"TARGUSE", "TARGID", "FIBREID", "XPOS"}, tab.Names())

	use, err := tab.Strings("TARGUSE")
	require.NoError(t, err)
	assert.Equal(t, []string{"S", "T", "S"}, use)

	ids, err := tab.Strings("TARGID")
	require.NoError(t, err)
	assert.Equal(t, []string{"sky_1", "star_22", "sky_3"}, ids)

	fibres, err := tab.Ints("FIBREID")
	require.NoError(t, err)
	assert.Equal(t, []int64{101, 102, 103}, fibres)

	xs, err := tab.Floats("XPOS")
	require.NoError(t, err)
	assert.Equal(t, []float64{-1.25, 0, 2.5}, xs)

	// Integer columns read as floats too.
	ff, err := tab.Floats("FIBREID")
	require.NoError(t, err)
	assert.Equal(t, []float64{101, 102, 103}, ff)

	_, err = tab.Strings("FIBREID")
	assert.Error(t, err)
	_, err = tab.Floats("MISSING")
	assert.Error(t, err)
}

func TestReadPrimaryHeadersParallel(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i := 0; i < 6; i++ {
		paths = append(paths, writeObsFile(t, dir, fmt.Sprintf("r%d.fit", i), testutil.ObsHeader{
			Run: int64(1000 + i), Camera: "BLUE", MJD: 57639.5 + float64(i)*0.01,
			ObsTemp: "AAAAA",
		}))
	}

	for _, workers := range []int{1, 4} {
		headers, err := fits.ReadPrimaryHeaders(context.Background(), paths, workers)
		require.NoError(t, err)
		require.Len(t, headers, len(paths))
		for i, h := range headers {
			run, err := h.Int("RUN")
			require.NoError(t, err)
			assert.Equal(t, int64(1000+i), run, "workers=%d", workers)
		}
	}

	_, err := fits.ReadPrimaryHeaders(context.Background(), append(paths, dir+"/absent.fit"), 2)
	assert.Error(t, err)
}
