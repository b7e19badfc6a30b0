// Package collage tiles run screenshots into a single image for visual review.
package collage

import (
	"bufio"
	"context"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultImagesPerRow = 4
	maxParallelFetches  = 8
)

// ReadUrls returns the non-blank lines of a file, trimmed.
func ReadUrls(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			urls = append(urls, line)
		}
	}
	return urls, errors.WithStack(scanner.Err())
}

// Fetch downloads and decodes every url, preserving order.
func Fetch(ctx context.Context, client *http.Client, urls []string) ([]image.Image, error) {
	images := make([]image.Image, len(urls))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFetches)
	for i, url := range urls {
		i, url := i, url
		g.Go(func() error {
			img, err := fetchOne(ctx, client, url)
			if err != nil {
				return errors.WithMessagef(err, "error fetching %s", url)
			}
			images[i] = img
			return nil
		})
	}
	return images, g.Wait()
}

func fetchOne(ctx context.Context, client *http.Client, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("unexpected status %d", resp.StatusCode)
	}
	img, format, err := image.Decode(resp.Body)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	log.Debugf("decoded %s image %s", format, url)
	return img, nil
}

// Tile lays images out perRow to a row on a black canvas. Every cell is as large as the largest image.
func Tile(images []image.Image, perRow int) (*image.RGBA, error) {
	if len(images) == 0 {
		return nil, errors.New("no images to tile")
	}
	if perRow <= 0 {
		perRow = DefaultImagesPerRow
	}
	cellWidth, cellHeight := 0, 0
	for _, img := range images {
		size := img.Bounds().Size()
		cellWidth = max(cellWidth, size.X)
		cellHeight = max(cellHeight, size.Y)
	}
	rows := (len(images)-1)/perRow + 1

	canvas := image.NewRGBA(image.Rect(0, 0, cellWidth*perRow, cellHeight*rows))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	for i, img := range images {
		origin := image.Pt((i%perRow)*cellWidth, (i/perRow)*cellHeight)
		target := image.Rectangle{Min: origin, Max: origin.Add(img.Bounds().Size())}
		draw.Draw(canvas, target, img, img.Bounds().Min, draw.Src)
	}
	return canvas, nil
}

// Write encodes img as JPEG.
func Write(w io.Writer, img image.Image) error {
	return errors.WithStack(jpeg.Encode(w, img, &jpeg.Options{Quality: 90}))
}

// Build fetches urls, tiles them and writes the collage to path.
func Build(ctx context.Context, client *http.Client, urls []string, perRow int, path string) error {
	images, err := Fetch(ctx, client, urls)
	if err != nil {
		return err
	}
	canvas, err := Tile(images, perRow)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := Write(f, canvas); err != nil {
		_ = f.Close()
		return err
	}
	return errors.WithStack(f.Close())
}
