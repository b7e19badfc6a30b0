// Package imagediff counts perceptually different pixels between two images, skipping pixels that only
// differ through anti-aliasing.
package imagediff

import (
	"bytes"
	"image"
	"image/draw"
	"image/png"
	"math"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/filmio/pageload/internal/common/loaderrors"
)

const DefaultThreshold = 0.1

// maxYIQDelta is the largest possible delta between two colours in YIQ space.
const maxYIQDelta = 35215

// ErrSizeMismatch is returned when the compared images do not have the same dimensions.
type ErrSizeMismatch struct {
	Expected image.Rectangle
	Actual   image.Rectangle
}

func (err *ErrSizeMismatch) Error() string {
	return "image sizes do not match: expected " + err.Expected.Size().String() + " got " + err.Actual.Size().String()
}

// CountDiff returns the number of pixels whose colour distance exceeds threshold, in [0, 1].
func CountDiff(a, b image.Image, threshold float64) (int, error) {
	if a.Bounds().Size() != b.Bounds().Size() {
		return 0, errors.WithStack(&ErrSizeMismatch{Expected: a.Bounds(), Actual: b.Bounds()})
	}
	img1, img2 := toNRGBA(a), toNRGBA(b)
	if bytes.Equal(img1.Pix, img2.Pix) {
		return 0, nil
	}
	width, height := img1.Rect.Dx(), img1.Rect.Dy()
	maxDelta := maxYIQDelta * threshold * threshold

	diff := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			pos := (y*width + x) * 4
			delta := colorDelta(img1.Pix, img2.Pix, pos, pos, false)
			if math.Abs(delta) <= maxDelta {
				continue
			}
			if antialiased(img1.Pix, x, y, width, height, img2.Pix) || antialiased(img2.Pix, x, y, width, height, img1.Pix) {
				continue
			}
			diff++
		}
	}
	return diff, nil
}

// CountDiffPNG decodes both images as PNG and compares them.
func CountDiffPNG(a, b []byte, threshold float64) (int, error) {
	img1, err := png.Decode(bytes.NewReader(a))
	if err != nil {
		return 0, errors.Wrap(err, "error decoding first image")
	}
	img2, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		return 0, errors.Wrap(err, "error decoding second image")
	}
	return CountDiff(img1, img2, threshold)
}

// ReferenceDiffer compares screenshots against one reference image loaded from disk on first use.
type ReferenceDiffer struct {
	path      string
	threshold float64

	once      sync.Once
	reference image.Image
	loadErr   error
}

func NewReferenceDiffer(path string, threshold float64) *ReferenceDiffer {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &ReferenceDiffer{path: path, threshold: threshold}
}

func (d *ReferenceDiffer) Diff(screenshot []byte) (int, error) {
	d.once.Do(func() {
		d.reference, d.loadErr = loadPNG(d.path)
	})
	if d.loadErr != nil {
		return 0, d.loadErr
	}
	img, err := png.Decode(bytes.NewReader(screenshot))
	if err != nil {
		return 0, errors.Wrap(err, "error decoding screenshot")
	}
	return CountDiff(img, d.reference, d.threshold)
}

func loadPNG(path string) (image.Image, error) {
	if path == "" {
		return nil, errors.WithStack(&loaderrors.ErrNotFound{Type: "reference image", Value: path, Message: "no reference image configured"})
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.WithStack(&loaderrors.ErrNotFound{Type: "reference image", Value: path})
	} else if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "error decoding reference image %s", path)
	}
	return img, nil
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) && n.Stride == 4*n.Rect.Dx() {
		return n
	}
	b := img.Bounds()
	n := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(n, n.Rect, img, b.Min, draw.Src)
	return n
}

// antialiased reports whether the pixel at (x1, y1) of img looks like an anti-aliased edge: few identical
// neighbours, both a darker and a brighter neighbour, and one of those sits in a flat area of both images.
func antialiased(img []uint8, x1, y1, width, height int, img2 []uint8) bool {
	x0, y0 := max(x1-1, 0), max(y1-1, 0)
	x2, y2 := min(x1+1, width-1), min(y1+1, height-1)
	pos := (y1*width + x1) * 4
	zeroes := 0
	if x1 == x0 || x1 == x2 || y1 == y0 || y1 == y2 {
		zeroes = 1
	}
	var minDelta, maxDelta float64
	var minX, minY, maxX, maxY int
	for x := x0; x <= x2; x++ {
		for y := y0; y <= y2; y++ {
			if x == x1 && y == y1 {
				continue
			}
			delta := colorDelta(img, img, pos, (y*width+x)*4, true)
			if delta == 0 {
				zeroes++
				if zeroes > 2 {
					return false
				}
			} else if delta < minDelta {
				minDelta, minX, minY = delta, x, y
			} else if delta > maxDelta {
				maxDelta, maxX, maxY = delta, x, y
			}
		}
	}
	if minDelta == 0 || maxDelta == 0 {
		return false
	}
	return (hasManySiblings(img, minX, minY, width, height) && hasManySiblings(img2, minX, minY, width, height)) ||
		(hasManySiblings(img, maxX, maxY, width, height) && hasManySiblings(img2, maxX, maxY, width, height))
}

// hasManySiblings reports whether more than two neighbours of (x1, y1) share its exact colour.
func hasManySiblings(img []uint8, x1, y1, width, height int) bool {
	x0, y0 := max(x1-1, 0), max(y1-1, 0)
	x2, y2 := min(x1+1, width-1), min(y1+1, height-1)
	pos := (y1*width + x1) * 4
	zeroes := 0
	if x1 == x0 || x1 == x2 || y1 == y0 || y1 == y2 {
		zeroes = 1
	}
	for x := x0; x <= x2; x++ {
		for y := y0; y <= y2; y++ {
			if x == x1 && y == y1 {
				continue
			}
			pos2 := (y*width + x) * 4
			if bytes.Equal(img[pos:pos+4], img[pos2:pos2+4]) {
				zeroes++
			}
			if zeroes > 2 {
				return true
			}
		}
	}
	return false
}

// colorDelta is the squared YIQ distance between two pixels, negative when the first one is brighter.
// With yOnly only the luma difference is returned.
func colorDelta(img1, img2 []uint8, k, m int, yOnly bool) float64 {
	if bytes.Equal(img1[k:k+4], img2[m:m+4]) {
		return 0
	}
	r1, g1, b1 := blend(img1[k : k+4])
	r2, g2, b2 := blend(img2[m : m+4])

	y1, y2 := rgb2y(r1, g1, b1), rgb2y(r2, g2, b2)
	y := y1 - y2
	if yOnly {
		return y
	}
	i := rgb2i(r1, g1, b1) - rgb2i(r2, g2, b2)
	q := rgb2q(r1, g1, b1) - rgb2q(r2, g2, b2)
	delta := 0.5053*y*y + 0.299*i*i + 0.1957*q*q
	if y1 > y2 {
		return -delta
	}
	return delta
}

// blend composes a non-premultiplied pixel over white.
func blend(px []uint8) (float64, float64, float64) {
	r, g, b, a := float64(px[0]), float64(px[1]), float64(px[2]), px[3]
	if a < 255 {
		alpha := float64(a) / 255
		r, g, b = 255+(r-255)*alpha, 255+(g-255)*alpha, 255+(b-255)*alpha
	}
	return r, g, b
}

func rgb2y(r, g, b float64) float64 { return r*0.29889531 + g*0.58662247 + b*0.11448223 }
func rgb2i(r, g, b float64) float64 { return r*0.59597799 - g*0.27417610 - b*0.32180189 }
func rgb2q(r, g, b float64) float64 { return r*0.21147017 - g*0.52261711 + b*0.31114694 }
