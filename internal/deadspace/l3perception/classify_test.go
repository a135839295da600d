package l3perception

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/deadspace/internal/testutil"
)

func TestClassify_NoContoursIsInactive(t *testing.T) {
	t.Parallel()

	res := Classify(image.NewGray(image.Rect(0, 0, 64, 48)), 10)
	assert.False(t, res.Active)
	assert.Empty(t, res.Regions)
	assert.Equal(t, -1, res.Trigger)
}

func TestClassify_ThresholdIsInclusive(t *testing.T) {
	t.Parallel()

	// 11x11 filled square has area exactly 100.
	mask := testutil.GrayRect(40, 40, image.Rect(10, 10, 21, 21), 255)

	res := Classify(mask, 100)
	assert.True(t, res.Active)
	assert.Equal(t, 0, res.Trigger)
	assert.Len(t, res.Regions, 1)

	res = Classify(mask, 100.5)
	assert.False(t, res.Active)
	assert.Empty(t, res.Regions)
}

func TestClassify_LaterContourTriggers(t *testing.T) {
	t.Parallel()

	// Enumerated first: a small square near the top.
	mask := testutil.GrayRect(80, 80, image.Rect(60, 2, 64, 6), 255)
	// Enumerated second: a large square lower down.
	testutil.FillGray(mask, image.Rect(5, 30, 35, 60), 255)

	res := Classify(mask, 500)
	require.True(t, res.Active)
	require.Len(t, res.Regions, 2)
	assert.Equal(t, 1, res.Trigger)
	assert.Less(t, res.Regions[0].Area(), 500.0)
	assert.GreaterOrEqual(t, res.Regions[1].Area(), 500.0)
}

func TestClassify_FirstQualifyingContourWins(t *testing.T) {
	t.Parallel()

	// The first enumerated contour qualifies even though a later one is larger.
	mask := testutil.GrayRect(100, 100, image.Rect(70, 2, 90, 22), 255)
	testutil.FillGray(mask, image.Rect(5, 40, 65, 95), 255)

	res := Classify(mask, 300)
	require.True(t, res.Active)
	assert.Equal(t, 0, res.Trigger)
	assert.Greater(t, res.Regions[1].Area(), res.Regions[0].Area())
}

func TestClassify_ManySmallContoursStayInactive(t *testing.T) {
	t.Parallel()

	mask := image.NewGray(image.Rect(0, 0, 60, 60))
	for y := 2; y < 60; y += 6 {
		for x := 2; x < 60; x += 6 {
			testutil.FillGray(mask, image.Rect(x, y, x+3, y+3), 255)
		}
	}
	res := Classify(mask, 5)
	assert.False(t, res.Active)
	assert.Empty(t, res.Regions)
}

// =============================================================================
// Tests: Mask refinement
// =============================================================================

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := NewClassifier(DefaultParams())
	require.NoError(t, err)
	return c
}

func assertBinary(t *testing.T, mask *image.Gray) {
	t.Helper()
	for i, v := range mask.Pix {
		if v != 0 && v != 255 {
			t.Fatalf("pixel %d = %d, want 0 or 255", i, v)
		}
	}
}

func TestParams_Validate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, DefaultParams().Validate())

	p := DefaultParams()
	p.KernelSize = 2
	assert.Error(t, p.Validate())

	p = DefaultParams()
	p.BoxSize = 0
	assert.Error(t, p.Validate())

	p = DefaultParams()
	p.DilateIterations = -1
	assert.Error(t, p.Validate())

	p = DefaultParams()
	p.GaussianSize = 4
	assert.Error(t, p.Validate())

	p = DefaultParams()
	p.GaussianSize = 0
	assert.NoError(t, p.Validate(), "zero skips the Gaussian pass")

	_, err := NewClassifier(Params{KernelSize: 4, BoxSize: 5})
	assert.Error(t, err)
}

func TestGaussianKernel_FixedWindow(t *testing.T) {
	t.Parallel()

	k := gaussianKernel(5, 1.1)
	require.Len(t, k, 25)

	var sum float32
	for _, w := range k {
		sum += w
	}
	assert.InDelta(t, 1, sum, 1e-5)

	centre := k[2*5+2]
	for i, w := range k {
		assert.LessOrEqual(t, w, centre, "weight %d", i)
		x, y := i%5, i/5
		assert.InDelta(t, w, k[(4-y)*5+(4-x)], 1e-7, "symmetry at %d", i)
	}
	assert.Greater(t, k[0], float32(0), "corners are inside the window")

	// Sigma 0 derives 1.1 from a 5x5 window.
	assert.InDeltaSlice(t, k, gaussianKernel(5, 0), 1e-6)
}

func TestRefineMask_GaussianWindowIsBounded(t *testing.T) {
	t.Parallel()

	// One bright pixel with every other stage disabled spreads no further
	// than the 5x5 window.
	c, err := NewClassifier(Params{KernelSize: 1, BoxSize: 1, GaussianSize: 5, GaussianSigma: 3, ThresholdCutoff: 0})
	require.NoError(t, err)
	mask := image.NewGray(image.Rect(0, 0, 11, 11))
	mask.SetGray(5, 5, color.Gray{Y: 255})

	out := c.RefineMask(mask)
	assert.Equal(t, uint8(255), out.GrayAt(3, 3).Y)
	assert.Equal(t, uint8(255), out.GrayAt(7, 7).Y)
	assert.Equal(t, uint8(0), out.GrayAt(2, 5).Y)
	assert.Equal(t, uint8(0), out.GrayAt(5, 8).Y)
	assert.Equal(t, 25, ComputeMaskMetrics(out).ForegroundPixels)
}

func TestRefineMask_RemovesSpeckle(t *testing.T) {
	t.Parallel()

	c := newTestClassifier(t)
	mask := image.NewGray(image.Rect(0, 0, 40, 40))
	mask.SetGray(10, 10, color.Gray{Y: 255})
	mask.SetGray(30, 25, color.Gray{Y: 255})

	out := c.RefineMask(mask)
	assert.Equal(t, mask.Bounds(), out.Bounds())
	assert.Zero(t, ComputeMaskMetrics(out).ForegroundPixels)
}

func TestRefineMask_KeepsAndGrowsBlob(t *testing.T) {
	t.Parallel()

	c := newTestClassifier(t)
	mask := testutil.GrayRect(80, 80, image.Rect(25, 25, 55, 55), 255)

	out := c.RefineMask(mask)
	assertBinary(t, out)
	assert.Equal(t, uint8(255), out.GrayAt(40, 40).Y)
	assert.Equal(t, uint8(255), out.GrayAt(26, 26).Y)
	assert.Equal(t, uint8(0), out.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(0), out.GrayAt(79, 79).Y)
	assert.GreaterOrEqual(t, ComputeMaskMetrics(out).ForegroundPixels, 30*30)
}

func TestRefineMask_DropsShadow(t *testing.T) {
	t.Parallel()

	c := newTestClassifier(t)
	mask := testutil.GrayRect(60, 60, image.Rect(10, 10, 50, 50), 127)

	out := c.RefineMask(mask)
	assert.Zero(t, ComputeMaskMetrics(out).ForegroundPixels)
}

func TestRefineThenClassify_Blob(t *testing.T) {
	t.Parallel()

	c := newTestClassifier(t)
	scene := testutil.DefaultScene().WithMotion(0, 1)
	mask := testutil.GrayRect(scene.Size.X, scene.Size.Y, scene.BlobRect(0), 255)

	res := c.Classify(c.RefineMask(mask), 2000)
	assert.True(t, res.Active)
	assert.Equal(t, 0, res.Trigger)
}

// =============================================================================
// Tests: Overlay and metrics
// =============================================================================

func TestDrawRegions(t *testing.T) {
	t.Parallel()

	src := testutil.GrayRect(20, 20, image.Rect(5, 5, 10, 10), 200)
	regions := FindExternalContours(src)
	require.Len(t, regions, 1)

	out := DrawRegions(src, regions, RegionColour, 1)
	assert.Equal(t, RegionColour, out.RGBAAt(5, 5))
	assert.Equal(t, color.RGBA{R: 200, G: 200, B: 200, A: 255}, out.RGBAAt(7, 7))
	assert.Equal(t, color.RGBA{A: 255}, out.RGBAAt(0, 0))

	thick := DrawRegions(src, regions, RegionColour, 5)
	assert.Equal(t, RegionColour, thick.RGBAAt(7, 7))
	assert.Equal(t, RegionColour, thick.RGBAAt(3, 3))
}

func TestComputeMaskMetrics(t *testing.T) {
	t.Parallel()

	mask := testutil.GrayRect(10, 10, image.Rect(0, 0, 5, 2), 255)
	testutil.FillGray(mask, image.Rect(0, 5, 10, 6), 127)

	m := ComputeMaskMetrics(mask)
	assert.Equal(t, MaskMetrics{
		TotalPixels:        100,
		ForegroundPixels:   10,
		ShadowPixels:       10,
		ForegroundFraction: 0.1,
	}, m)
}
