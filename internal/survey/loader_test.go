package survey

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weave-qa/qagmire/internal/dataset"
	"github.com/weave-qa/qagmire/internal/monitoring"
	"github.com/weave-qa/qagmire/internal/store"
	"github.com/weave-qa/qagmire/internal/testutil"
)

func writeRawFixture(t *testing.T, root string, o testutil.ObsHeader, counts1, counts2 [][]float64) string {
	t.Helper()
	name := filepath.Join("raw", "20160908", fmt.Sprintf("r%d.fit", o.Run))
	return testutil.WriteFITS(t, root, name, testutil.BuildRawFile(o, counts1, counts2)...)
}

func TestHeaderLoader(t *testing.T) {
	root := t.TempDir()
	writeRawFixture(t, root, testutil.ObsHeader{
		Run: 1002813, OBID: 3133, Camera: "RED", MJD: 57639.8653,
		ObsTemp: "DACBC", SkyBrTel: 21.2, SeeingB: 0.93,
	}, [][]float64{{1}}, [][]float64{{2}})
	writeRawFixture(t, root, testutil.ObsHeader{
		Run: 1002814, OBID: 3133, Camera: "BLUE", MJD: 57639.8653,
		ObsTemp: "DACBC", SkyBrTel: 21.3, SeeingB: 0.91,
	}, [][]float64{{1}}, [][]float64{{2}})

	hl := &HeaderLoader{Locator: NewLocator(root, nil), Workers: 2}
	ds, err := hl.Load(context.Background(), Selection{Level: "raw", FileType: "r", Resolution: AnyRes})
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())

	e := ds.Exposures[0]
	assert.Equal(t, int64(1002813), e.Run)
	assert.Equal(t, int64(3133), e.OBID)
	assert.Equal(t, dataset.CameraRed, e.Camera)
	assert.Equal(t, "20160908", e.Night)
	assert.Equal(t, "DACBC", e.ObsTemp)
	assert.Equal(t, 21.2, e.SkyBrTel)
}

func TestHeaderLoaderCache(t *testing.T) {
	root := t.TempDir()
	for i := int64(0); i < 3; i++ {
		writeRawFixture(t, root, testutil.ObsHeader{
			Run: 1002813 + i, OBID: 3133, Camera: "RED", MJD: 57639.8 + float64(i)*0.001,
			ObsTemp: "AAAAA",
		}, [][]float64{{1}}, [][]float64{{2}})
	}
	s, err := store.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer s.Close()

	var logs []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		logs = append(logs, fmt.Sprintf(format, v...))
	})
	defer monitoring.SetLogger(nil)

	hl := &HeaderLoader{Locator: NewLocator(root, nil), Store: s}
	sel := Selection{Level: "raw", FileType: "r", Resolution: AnyRes}

	_, err = hl.Load(context.Background(), sel)
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	assert.Contains(t, logs[len(logs)-1], "0 cached, 3 converted")

	ds, err := hl.Load(context.Background(), sel)
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Len())
	assert.Contains(t, logs[len(logs)-1], "3 cached, 0 converted")

	// Invalidation forces a single reconversion.
	files, err := hl.Locator.Locate(sel)
	require.NoError(t, err)
	require.NoError(t, s.Invalidate(files[0]))
	_, err = hl.Load(context.Background(), sel)
	require.NoError(t, err)
	assert.Contains(t, logs[len(logs)-1], "2 cached, 1 converted")
}

func TestRawLoader(t *testing.T) {
	root := t.TempDir()
	writeRawFixture(t, root, testutil.ObsHeader{
		Run: 1002813, Camera: "RED", MJD: 57639.8653, ObsTemp: "AAAAA",
	}, [][]float64{{100, 65535}, {3, 4}}, [][]float64{{-5, math.NaN()}, {7, 8}})

	rl := &RawLoader{Headers: HeaderLoader{Locator: NewLocator(root, nil)}}
	ds, err := rl.Load(context.Background(), Selection{Level: "raw", FileType: "r", Resolution: AnyRes})
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())

	c1, ok := ds.Matrix("COUNTS1")
	require.True(t, ok)
	assert.Equal(t, 65535.0, c1[0][0][1])

	c2, ok := ds.Matrix("COUNTS2")
	require.True(t, ok)
	assert.Equal(t, -5.0, c2[0][0][0])
	assert.True(t, math.IsNaN(c2[0][0][1]))
}

func TestL1Loader(t *testing.T) {
	root := t.TempDir()
	flux := [][]float64{{1, 2, 3}, {4, 5, 6}}
	ivar := [][]float64{{1, 1, 1}, {4, 4, 4}}
	hdus := testutil.BuildL1File(testutil.ObsHeader{
		Run: 1002813, Camera: "BLUE", MJD: 57639.8653, ObsTemp: "AAAAA",
	}, map[string][][]float64{"FLUX": flux, "IVAR": ivar}, []string{"S", "T"})
	testutil.WriteFITS(t, root, filepath.Join("L1", "20160908", "single_1002813.fit"), hdus...)

	ll := &L1Loader{
		Headers:    HeaderLoader{Locator: NewLocator(root, nil)},
		Extensions: []string{"FLUX", "IVAR"},
		FibreTable: true,
	}
	ds, err := ll.Load(context.Background(), L1Single("", ""))
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())

	got, ok := ds.Matrix("FLUX")
	require.True(t, ok)
	assert.Equal(t, flux, got[0])

	use, ok := ds.Labels("TARGUSE")
	require.True(t, ok)
	assert.Equal(t, []string{"S", "T"}, use[0])
}

func TestL1LoaderDefaultsToLowRes(t *testing.T) {
	// L1Single carries the LowRes default, so a high-resolution file in the
	// tree is skipped without error.
	root := t.TempDir()
	hdus := testutil.BuildL1File(testutil.ObsHeader{
		Run: 42, Camera: "RED", MJD: 57640.0, ResObs: "HR", ObsTemp: "AAAAA",
	}, map[string][][]float64{"FLUX": {{1}}}, nil)
	testutil.WriteFITS(t, root, filepath.Join("L1", "20160909", "single_42.fit"), hdus...)

	ll := &L1Loader{
		Headers:    HeaderLoader{Locator: NewLocator(root, nil)},
		Extensions: []string{"FLUX"},
	}
	ds, err := ll.Load(context.Background(), L1Single("", ""))
	require.NoError(t, err)
	assert.Equal(t, 0, ds.Len())
}

func TestLoaderFailsOutright(t *testing.T) {
	// A file that cannot be parsed fails the whole load; there is no
	// partial-success mode.
	root := t.TempDir()
	writeRawFixture(t, root, testutil.ObsHeader{
		Run: 1, Camera: "RED", MJD: 57639.8, ObsTemp: "AAAAA",
	}, [][]float64{{1}}, [][]float64{{2}})
	testutil.WriteFITS(t, root, filepath.Join("raw", "20160908", "r2.fit"),
		[]byte(strings.Repeat("x", 2880)))

	hl := &HeaderLoader{Locator: NewLocator(root, nil)}
	_, err := hl.Load(context.Background(), Selection{Level: "raw", FileType: "r", Resolution: AnyRes})
	assert.Error(t, err)
}
