package fingerprint

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	canvasWidth  = 240
	canvasHeight = 60
	canvasText   = "Cwm fjordbank glyphs vext quiz, 0123456789"

	// canvasSliceLen characters are taken from the encoding, ending
	// canvasTailSkip characters before its end so the constant trailer
	// chunk is excluded.
	canvasSliceLen = 32
	canvasTailSkip = 24
)

var errShortEncoding = errors.New("encoded surface too short")

// CanvasHash renders fixed text onto an offscreen surface, encodes it as
// PNG and returns a slice of the base64 encoding near its tail, where the
// image data checksums live.
func CanvasHash() (string, error) {
	encoded, err := renderCanvas()
	if err != nil {
		return "", err
	}
	return tailSlice(encoded)
}

func renderCanvas() (string, error) {
	parsed, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return "", fmt.Errorf("failed to parse font: %w", err)
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    14,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create face: %w", err)
	}
	defer face.Close()

	img := image.NewRGBA(image.Rect(0, 0, canvasWidth, canvasHeight))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{0xf6, 0x0f, 0x00, 0xff}}, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(125, 1, 187, 21), &image.Uniform{C: color.RGBA{0x06, 0x69, 0x00, 0xff}}, image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{0x66, 0xcc, 0x00, 0xb3}),
		Face: face,
		Dot:  fixed.P(2, 17),
	}
	drawer.DrawString(canvasText)

	drawer.Src = image.NewUniform(color.RGBA{0x00, 0x66, 0xcc, 0xff})
	drawer.Dot = fixed.P(4, 45)
	drawer.DrawString(canvasText)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode surface: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func tailSlice(encoded string) (string, error) {
	end := len(encoded) - canvasTailSkip
	start := end - canvasSliceLen
	if start < 0 {
		return "", errShortEncoding
	}
	return encoded[start:end], nil
}
