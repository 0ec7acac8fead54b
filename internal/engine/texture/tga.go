// Package texture decodes and encodes the images used as horizon layers.
package texture

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// TGA image types.
const (
	TGATypeTrueColor    = 2
	TGATypeGray         = 3
	TGATypeTrueColorRLE = 10
	TGATypeGrayRLE      = 11
)

var (
	ErrTGATruncated   = errors.New("TGA data truncated")
	ErrTGAUnsupported = errors.New("unsupported TGA variant")
)

// DecodeTGA decodes uncompressed or RLE TGA files, true-colour (24/32 bit)
// into *image.NRGBA and grayscale (8 bit) into *image.Gray. Grayscale
// files are the usual way to ship undefined-value masks.
func DecodeTGA(data []byte) (image.Image, error) {
	if len(data) < 18 {
		return nil, ErrTGATruncated
	}
	idLength := int(data[0])
	colorMapType := data[1]
	imageType := data[2]
	width := int(data[12]) | int(data[13])<<8
	height := int(data[14]) | int(data[15])<<8
	bpp := int(data[16])
	topToBottom := data[17]&0x20 != 0

	if colorMapType != 0 {
		return nil, fmt.Errorf("%w: colour-mapped", ErrTGAUnsupported)
	}
	gray := imageType == TGATypeGray || imageType == TGATypeGrayRLE
	switch {
	case gray && bpp == 8:
	case !gray && (imageType == TGATypeTrueColor || imageType == TGATypeTrueColorRLE) && (bpp == 24 || bpp == 32):
	default:
		return nil, fmt.Errorf("%w: type %d, %d bpp", ErrTGAUnsupported, imageType, bpp)
	}

	offset := 18 + idLength
	if offset > len(data) {
		return nil, ErrTGATruncated
	}
	d := tgaDecoder{
		src:         data[offset:],
		bpp:         bpp / 8,
		width:       width,
		height:      height,
		topToBottom: topToBottom,
	}

	var img image.Image
	if gray {
		g := image.NewGray(image.Rect(0, 0, width, height))
		d.set = func(x, y int, px []byte) { g.Pix[g.PixOffset(x, y)] = px[0] }
		img = g
	} else {
		n := image.NewNRGBA(image.Rect(0, 0, width, height))
		d.set = func(x, y int, px []byte) {
			a := uint8(255)
			if len(px) == 4 {
				a = px[3]
			}
			n.SetNRGBA(x, y, color.NRGBA{R: px[2], G: px[1], B: px[0], A: a})
		}
		img = n
	}

	var err error
	if imageType == TGATypeTrueColorRLE || imageType == TGATypeGrayRLE {
		err = d.decodeRLE()
	} else {
		err = d.decodeRaw()
	}
	if err != nil {
		return nil, err
	}
	return img, nil
}

type tgaDecoder struct {
	src           []byte
	bpp           int
	width, height int
	topToBottom   bool
	set           func(x, y int, px []byte)
}

// put stores the n-th pixel in file order.
func (d *tgaDecoder) put(n int, px []byte) {
	x, y := n%d.width, n/d.width
	if !d.topToBottom {
		y = d.height - 1 - y
	}
	d.set(x, y, px)
}

func (d *tgaDecoder) decodeRaw() error {
	count := d.width * d.height
	if len(d.src) < count*d.bpp {
		return ErrTGATruncated
	}
	for n := 0; n < count; n++ {
		d.put(n, d.src[n*d.bpp:(n+1)*d.bpp])
	}
	return nil
}

func (d *tgaDecoder) decodeRLE() error {
	count := d.width * d.height
	n, pos := 0, 0
	for n < count {
		if pos >= len(d.src) {
			return ErrTGATruncated
		}
		packet := d.src[pos]
		pos++
		run := int(packet&0x7f) + 1

		if packet&0x80 != 0 {
			if pos+d.bpp > len(d.src) {
				return ErrTGATruncated
			}
			px := d.src[pos : pos+d.bpp]
			pos += d.bpp
			for k := 0; k < run && n < count; k++ {
				d.put(n, px)
				n++
			}
			continue
		}
		for k := 0; k < run && n < count; k++ {
			if pos+d.bpp > len(d.src) {
				return ErrTGATruncated
			}
			d.put(n, d.src[pos:pos+d.bpp])
			pos += d.bpp
			n++
		}
	}
	return nil
}
