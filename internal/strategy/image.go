package strategy

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"github.com/trunov/converthub/internal/routing"
)

// imagingStrategy converts between raster formats in-process. WEBP goes
// through chai2010/webp; everything else through disintegration/imaging.
type imagingStrategy struct{}

func (imagingStrategy) ID() routing.StrategyID { return routing.StrategyImaging }

func (imagingStrategy) Convert(ctx context.Context, inputPath, outputPath string) error {
	img, err := decodeImage(inputPath)
	if err != nil {
		return &Error{Strategy: routing.StrategyImaging, Kind: KindInvalidInput, Err: err}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return encodeImage(img, outputPath)
}

func decodeImage(path string) (image.Image, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".webp" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return webp.Decode(f)
	}
	return imaging.Open(path)
}

func encodeImage(img image.Image, path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		return webp.Encode(f, img, &webp.Options{Quality: 90})
	case ".jpg", ".jpeg":
		// JPEG has no alpha channel; flatten onto white.
		img = flatten(img)
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("encode %s: %w", ext, err)
	}
	return nil
}

func flatten(img image.Image) image.Image {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}
