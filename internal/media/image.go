package media

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // PNG decoder
	"io"
	"net/http"

	"golang.org/x/image/draw"
)

// Image limits.
const (
	MaxImageDimension = 1024
	MaxImageBytes     = 10 << 20
	JPEGQuality       = 85
)

var imageMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Image is a processed item image.
type Image struct {
	Data   []byte
	MIME   string
	Width  int
	Height int
}

// ProcessImage sniffs the uploaded bytes, rejects anything but JPEG and PNG,
// scales the image down to fit maxDim and re-encodes it as JPEG.
// A maxDim <= 0 means MaxImageDimension.
func ProcessImage(r io.Reader, maxDim int) (*Image, error) {
	if maxDim <= 0 {
		maxDim = MaxImageDimension
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}
	if len(data) > MaxImageBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", MaxImageBytes)
	}

	if detected := http.DetectContentType(data); !imageMIME[detected] {
		return nil, fmt.Errorf("unsupported image format: %s (only JPEG and PNG accepted)", detected)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	img = fit(img, maxDim)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}

	b := img.Bounds()
	return &Image{Data: buf.Bytes(), MIME: "image/jpeg", Width: b.Dx(), Height: b.Dy()}, nil
}

// fit scales img with Catmull-Rom so that neither side exceeds maxDim.
// Smaller images are returned unchanged.
func fit(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	newW, newH := maxDim, maxDim
	if w > h {
		newH = max(1, h*maxDim/w)
	} else {
		newW = max(1, w*maxDim/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
