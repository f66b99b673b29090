package imageprep_test

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/lmnode/pkg/imageprep"
)

func encodePNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	Expect(png.Encode(&buf, img)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("Prepare", func() {
	It("re-encodes a PNG as JPEG", func() {
		out, err := imageprep.Prepare(encodePNG(32, 16), imageprep.Options{})
		Expect(err).NotTo(HaveOccurred())

		Expect(out.SourceFormat).To(Equal("png"))
		Expect(out.Name).To(Equal("image.jpg"))
		Expect(out.Width).To(Equal(32))
		Expect(out.Height).To(Equal(16))
		Expect(out.Resized).To(BeFalse())

		cfg, err := jpeg.DecodeConfig(bytes.NewReader(out.Data))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Width).To(Equal(32))
	})

	It("downscales to the maximum dimension keeping the aspect ratio", func() {
		out, err := imageprep.Prepare(encodePNG(200, 100), imageprep.Options{MaxDimension: 50})
		Expect(err).NotTo(HaveOccurred())

		Expect(out.Resized).To(BeTrue())
		Expect(out.Width).To(Equal(50))
		Expect(out.Height).To(Equal(25))

		cfg, err := jpeg.DecodeConfig(bytes.NewReader(out.Data))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Width).To(Equal(50))
		Expect(cfg.Height).To(Equal(25))
	})

	It("keeps small images as they are", func() {
		out, err := imageprep.Prepare(encodePNG(10, 40), imageprep.Options{MaxDimension: 50})
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Resized).To(BeFalse())
		Expect(out.Height).To(Equal(40))
	})

	It("rejects empty data", func() {
		_, err := imageprep.Prepare(nil, imageprep.Options{})
		Expect(err).To(MatchError(imageprep.ErrMalformed))
	})

	It("rejects undecodable data", func() {
		_, err := imageprep.Prepare([]byte("definitely not an image"), imageprep.Options{})
		Expect(err).To(MatchError(imageprep.ErrMalformed))
	})
})
