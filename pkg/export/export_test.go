package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	v2 "github.com/deadsy/sdfx/vec/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/lamina/pkg/clip"
	"github.com/chazu/lamina/pkg/geom"
	"github.com/chazu/lamina/pkg/layer"
)

func square(no int, z float64) *layer.Layer {
	l := layer.New(no, z, 0.3, 1)
	l.SetPolygons([]geom.Poly{geom.Rect(z, v2.Vec{}, v2.Vec{X: 10, Y: 10})})
	l.Infill.Normal = []geom.Poly{geom.NewLine(z, v2.Vec{X: 1, Y: 1}, v2.Vec{X: 9, Y: 9})}
	return l
}

func TestSVG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SVG(&buf, []*layer.Layer{square(0, 0.3), square(1, 0.6)}, 2))
	out := buf.String()
	assert.Contains(t, out, `id="layer-0"`)
	assert.Contains(t, out, `id="layer-1"`)
	assert.Contains(t, out, `data-z="0.6000"`)
	assert.Equal(t, 2, strings.Count(out, "<polygon"))
	assert.Equal(t, 2, strings.Count(out, "<polyline"))
	assert.Contains(t, out, `width="28"`)
}

func TestSVGFiles(t *testing.T) {
	st := layer.NewStack(clip.NewSession())
	for i := 0; i < 11; i++ {
		require.NoError(t, st.Append(square(i, 0.3*float64(i+1))))
	}
	dir := t.TempDir()
	paths, err := SVGFiles(dir, "part", st, 1)
	require.NoError(t, err)
	require.Len(t, paths, 11)
	assert.Equal(t, filepath.Join(dir, "part00.svg"), paths[0])
	assert.Equal(t, filepath.Join(dir, "part10.svg"), paths[10])
	_, err = os.Stat(paths[10])
	assert.NoError(t, err)
}

func TestNothingToDraw(t *testing.T) {
	empty := layer.New(0, 0.3, 0.3, 1)
	var buf bytes.Buffer
	assert.Error(t, SVG(&buf, []*layer.Layer{empty}, 1))
	assert.Error(t, DXF(filepath.Join(t.TempDir(), "x.dxf"), []*layer.Layer{empty}))
	_, err := Image(empty, 1)
	assert.Error(t, err)
	_, err = Image(square(0, 0.3), 0)
	assert.Error(t, err)
}

func TestImage(t *testing.T) {
	img, err := Image(square(0, 0.3), 2)
	require.NoError(t, err)
	assert.Equal(t, 28, img.Bounds().Dx())
	assert.Equal(t, 28, img.Bounds().Dy())
	corner := img.RGBAAt(0, 0)
	assert.Equal(t, background, corner)
	inside := img.RGBAAt(8, 8)
	assert.Equal(t, regionFill, inside)
}

func TestPNGAndDXF(t *testing.T) {
	dir := t.TempDir()
	png := filepath.Join(dir, "layer.png")
	require.NoError(t, PNG(png, square(0, 0.3), 4))
	info, err := os.Stat(png)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	path := filepath.Join(dir, "layers.dxf")
	require.NoError(t, DXF(path, []*layer.Layer{square(0, 0.3), square(1, 0.6)}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "LAYER_1")
	assert.Contains(t, string(data), "LINE")
}
