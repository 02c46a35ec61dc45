package vault

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	// Register the decoders for the formats a photo library produces.
	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
)

const (
	defaultThumbnailMaxDim = 256
	thumbnailJPEGQuality   = 70
)

// makeThumbnail decodes the photo, scales it so its longest side is at most
// maxDim (never upscaling), and re-encodes it as reduced-quality JPEG.
func makeThumbnail(content []byte, maxDim int) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("decode photo: %w", err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("decode photo: empty image")
	}

	tw, th := w, h
	if w > maxDim || h > maxDim {
		if w >= h {
			tw = maxDim
			th = h * maxDim / w
		} else {
			th = maxDim
			tw = w * maxDim / h
		}
		if tw < 1 {
			tw = 1
		}
		if th < 1 {
			th = 1
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: thumbnailJPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
