package dataset

import (
	"errors"
	"fmt"
	"image"
)

// Format is the pixel format of an Image.
type Format int

// Pixel formats. The numeric values are part of the command protocol.
const (
	FormatUndefined Format = 0
	FormatGrey      Format = 1
	FormatRGB       Format = 2
	FormatRGBA      Format = 3
)

var (
	// ErrBufferTooSmall indicates a caller buffer smaller than width*height*bpp.
	ErrBufferTooSmall = errors.New("buffer too small")

	// ErrInvalidFormat indicates an undefined or unknown pixel format.
	ErrInvalidFormat = errors.New("invalid image format")

	// ErrInvalidSize indicates a negative image dimension.
	ErrInvalidSize = errors.New("invalid image size")
)

// BytesPerPixel returns the number of bytes per pixel, or 0 for undefined or
// unknown formats.
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatGrey:
		return 1
	case FormatRGB:
		return 3
	case FormatRGBA:
		return 4
	default:
		return 0
	}
}

// Valid reports whether f is a defined pixel format.
func (f Format) Valid() bool {
	return f.BytesPerPixel() > 0
}

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatUndefined:
		return "undefined"
	case FormatGrey:
		return "grey"
	case FormatRGB:
		return "rgb"
	case FormatRGBA:
		return "rgba"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// Image is a cell holding raw pixels.
type Image struct {
	width  int
	height int
	format Format
	pix    []byte
}

// NewImage creates a zeroed image. An undefined format yields an empty image.
func NewImage(width, height int, format Format) (*Image, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	if format != FormatUndefined && !format.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFormat, int(format))
	}
	return &Image{
		width:  width,
		height: height,
		format: format,
		pix:    make([]byte, width*height*format.BytesPerPixel()),
	}, nil
}

// Kind implements Data.
func (img *Image) Kind() Kind { return KindImage }

// Width returns the width in pixels.
func (img *Image) Width() int { return img.width }

// Height returns the height in pixels.
func (img *Image) Height() int { return img.height }

// Format returns the pixel format.
func (img *Image) Format() Format { return img.format }

// BytesPerPixel returns the bytes per pixel of the current format.
func (img *Image) BytesPerPixel() int { return img.format.BytesPerPixel() }

// Len returns width*height*bytesPerPixel.
func (img *Image) Len() int {
	return img.width * img.height * img.format.BytesPerPixel()
}

// Empty reports whether the image holds no pixels.
func (img *Image) Empty() bool {
	return img.Len() == 0
}

// Pix returns the live pixel buffer. Only code owning the store may use it.
func (img *Image) Pix() []byte {
	return img.pix
}

// CopyToBuffer copies the pixels into buf, which must hold at least
// width*height*bytesPerPixel bytes.
func (img *Image) CopyToBuffer(buf []byte) error {
	need := img.Len()
	if len(buf) < need {
		return fmt.Errorf("%w: need %d bytes, got %d", ErrBufferTooSmall, need, len(buf))
	}
	copy(buf, img.pix[:need])
	return nil
}

// CopyFromBuffer resizes the image to width x height and copies pixels in the
// image's current format from buf.
func (img *Image) CopyFromBuffer(buf []byte, width, height int) error {
	if !img.format.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidFormat, img.format)
	}
	if width < 0 || height < 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	need := width * height * img.format.BytesPerPixel()
	if len(buf) < need {
		return fmt.Errorf("%w: need %d bytes, got %d", ErrBufferTooSmall, need, len(buf))
	}
	img.resize(width, height, img.format)
	copy(img.pix, buf[:need])
	return nil
}

// CopyFromBufferWithFormat resizes the image and converts pixels of the given
// format from buf into the canonical RGBA representation.
func (img *Image) CopyFromBufferWithFormat(buf []byte, width, height int, format Format) error {
	bpp := format.BytesPerPixel()
	if bpp == 0 {
		return fmt.Errorf("%w: %s", ErrInvalidFormat, format)
	}
	if width < 0 || height < 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	n := width * height
	if len(buf) < n*bpp {
		return fmt.Errorf("%w: need %d bytes, got %d", ErrBufferTooSmall, n*bpp, len(buf))
	}

	img.resize(width, height, FormatRGBA)
	dst := img.pix
	switch format {
	case FormatGrey:
		for i := 0; i < n; i++ {
			g := buf[i]
			dst[i*4], dst[i*4+1], dst[i*4+2], dst[i*4+3] = g, g, g, 0xff
		}
	case FormatRGB:
		for i := 0; i < n; i++ {
			dst[i*4], dst[i*4+1], dst[i*4+2], dst[i*4+3] = buf[i*3], buf[i*3+1], buf[i*3+2], 0xff
		}
	case FormatRGBA:
		copy(dst, buf[:n*4])
	}
	return nil
}

// ToRGBA returns a copy of the image as an *image.RGBA.
func (img *Image) ToRGBA() *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, img.width, img.height))
	n := img.width * img.height
	bpp := img.format.BytesPerPixel()
	for i := 0; i < n; i++ {
		o := i * 4
		switch img.format {
		case FormatGrey:
			g := img.pix[i]
			out.Pix[o], out.Pix[o+1], out.Pix[o+2], out.Pix[o+3] = g, g, g, 0xff
		case FormatRGB:
			s := i * bpp
			out.Pix[o], out.Pix[o+1], out.Pix[o+2], out.Pix[o+3] = img.pix[s], img.pix[s+1], img.pix[s+2], 0xff
		case FormatRGBA:
			copy(out.Pix[o:o+4], img.pix[o:o+4])
		}
	}
	return out
}

func (img *Image) resize(width, height int, format Format) {
	need := width * height * format.BytesPerPixel()
	if cap(img.pix) >= need {
		img.pix = img.pix[:need]
	} else {
		img.pix = make([]byte, need)
	}
	img.width, img.height, img.format = width, height, format
}

func (img *Image) cloneData() Data {
	c := *img
	c.pix = make([]byte, len(img.pix))
	copy(c.pix, img.pix)
	return &c
}

// View returns a read-only view of the image.
func (img *Image) View() ImageView {
	return ImageView{img: img}
}

// ImageView is a non-owning, read-only view of an Image. The zero value is an
// invalid view.
type ImageView struct {
	img *Image
}

// Valid reports whether the view refers to an image.
func (v ImageView) Valid() bool { return v.img != nil }

// Width returns the width in pixels.
func (v ImageView) Width() int { return v.img.Width() }

// Height returns the height in pixels.
func (v ImageView) Height() int { return v.img.Height() }

// Format returns the pixel format.
func (v ImageView) Format() Format { return v.img.Format() }

// BytesPerPixel returns the bytes per pixel.
func (v ImageView) BytesPerPixel() int { return v.img.BytesPerPixel() }

// CopyToBuffer copies the pixels into buf.
func (v ImageView) CopyToBuffer(buf []byte) error { return v.img.CopyToBuffer(buf) }

// ToRGBA returns a copy of the pixels as an *image.RGBA.
func (v ImageView) ToRGBA() *image.RGBA { return v.img.ToRGBA() }
