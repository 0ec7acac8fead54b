package texture

import (
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"testing"
)

func tgaHeader(imageType, bpp byte, w, h int, topToBottom bool) []byte {
	hdr := make([]byte, 18)
	hdr[2] = imageType
	hdr[12], hdr[13] = byte(w), byte(w>>8)
	hdr[14], hdr[15] = byte(h), byte(h>>8)
	hdr[16] = bpp
	if topToBottom {
		hdr[17] = 0x20
	}
	return hdr
}

func TestDecodeTGATrueColor(t *testing.T) {
	// Bottom-up 2x2, BGRA.
	data := append(tgaHeader(TGATypeTrueColor, 32, 2, 2, false),
		0, 0, 255, 255, 0, 255, 0, 128, // bottom row: red, half green
		255, 0, 0, 255, 0, 0, 0, 0, // top row: blue, transparent
	)
	img, err := DecodeTGA(data)
	if err != nil {
		t.Fatalf("DecodeTGA: %v", err)
	}
	n, ok := img.(*image.NRGBA)
	if !ok {
		t.Fatalf("got %T, want *image.NRGBA", img)
	}
	tests := []struct {
		x, y int
		want color.NRGBA
	}{
		{0, 1, color.NRGBA{255, 0, 0, 255}},
		{1, 1, color.NRGBA{0, 255, 0, 128}},
		{0, 0, color.NRGBA{0, 0, 255, 255}},
		{1, 0, color.NRGBA{}},
	}
	for _, tt := range tests {
		if got := n.NRGBAAt(tt.x, tt.y); got != tt.want {
			t.Errorf("pixel (%d,%d) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestDecodeTGAGrayRLE(t *testing.T) {
	// Top-down 3x2: run of three 200s, then raw 1, 2, 3.
	data := append(tgaHeader(TGATypeGrayRLE, 8, 3, 2, true),
		0x82, 200,
		0x02, 1, 2, 3,
	)
	img, err := DecodeTGA(data)
	if err != nil {
		t.Fatalf("DecodeTGA: %v", err)
	}
	g, ok := img.(*image.Gray)
	if !ok {
		t.Fatalf("got %T, want *image.Gray", img)
	}
	want := []uint8{200, 200, 200, 1, 2, 3}
	for k, v := range want {
		if g.Pix[k] != v {
			t.Errorf("pix[%d] = %d, want %d", k, g.Pix[k], v)
		}
	}
}

func TestDecodeTGAErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"short header", []byte{0, 0, 2}, ErrTGATruncated},
		{"colour mapped", append([]byte{0, 1}, make([]byte, 16)...), ErrTGAUnsupported},
		{"16 bit", tgaHeader(TGATypeTrueColor, 16, 1, 1, false), ErrTGAUnsupported},
		{"missing pixels", append(tgaHeader(TGATypeTrueColor, 24, 2, 2, false), 1, 2, 3), ErrTGATruncated},
		{"broken run", append(tgaHeader(TGATypeTrueColorRLE, 24, 2, 2, false), 0x83, 1), ErrTGATruncated},
	}
	for _, tt := range tests {
		if _, err := DecodeTGA(tt.data); !errors.Is(err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestSaveLoad(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			src.SetNRGBA(x, y, color.NRGBA{uint8(x * 60), uint8(y * 100), 7, 255})
		}
	}

	dir := t.TempDir()
	for _, name := range []string{"layer.png", "layer.tiff", "layer.bmp"} {
		path := filepath.Join(dir, name)
		if err := Save(path, src); err != nil {
			t.Fatalf("Save(%s): %v", name, err)
		}
		img, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%s): %v", name, err)
		}
		if img.Bounds() != src.Bounds() {
			t.Fatalf("%s: bounds %v", name, img.Bounds())
		}
		r, g, b, _ := img.At(3, 2).RGBA()
		if r>>8 != 180 || g>>8 != 200 || b>>8 != 7 {
			t.Errorf("%s: pixel (3,2) = %d,%d,%d", name, r>>8, g>>8, b>>8)
		}
	}

	if err := Save(filepath.Join(dir, "layer.xyz"), src); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("unknown extension: err = %v", err)
	}
}
