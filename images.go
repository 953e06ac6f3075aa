package pdfdocx

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/enums"
	"github.com/klippa-app/go-pdfium/references"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/pkg/errors"
)

// extractPageImages enumerates the page's objects and extracts embedded
// image objects with their page-relative bounds. Bitmaps are re-encoded as
// PNG so the assembler can place them without caring about the source
// filter. Objects that cannot be decoded are skipped.
func extractPageImages(instance pdfium.Pdfium, page references.FPDF_PAGE, pageNumber int, pageHeight float64) ([]PageImage, error) {
	countResp, err := instance.FPDFPage_CountObjects(&requests.FPDFPage_CountObjects{
		Page: requests.Page{
			ByReference: &page,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to count page objects")
	}

	var images []PageImage

	for i := 0; i < countResp.Count; i++ {
		objResp, err := instance.FPDFPage_GetObject(&requests.FPDFPage_GetObject{
			Page: requests.Page{
				ByReference: &page,
			},
			Index: i,
		})
		if err != nil {
			continue
		}

		typeResp, err := instance.FPDFPageObj_GetType(&requests.FPDFPageObj_GetType{
			PageObject: objResp.PageObject,
		})
		if err != nil || typeResp.Type != enums.FPDF_PAGEOBJ_IMAGE {
			continue
		}

		boundsResp, err := instance.FPDFPageObj_GetBounds(&requests.FPDFPageObj_GetBounds{
			PageObject: objResp.PageObject,
		})
		if err != nil {
			continue
		}

		// Convert PDF coordinates (origin bottom-left) to top-left origin
		box := Rect{
			X0: float64(boundsResp.Left),
			Y0: pageHeight - float64(boundsResp.Top),
			X1: float64(boundsResp.Right),
			Y1: pageHeight - float64(boundsResp.Bottom),
		}

		img, err := decodeImageObject(instance, objResp.PageObject)
		if err != nil {
			continue
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			continue
		}

		bounds := img.Bounds()
		images = append(images, PageImage{
			Name:   fmt.Sprintf("image_%d_%d.png", pageNumber, len(images)),
			Data:   buf.Bytes(),
			Box:    box,
			Width:  bounds.Dx(),
			Height: bounds.Dy(),
		})
	}

	return images, nil
}

// decodeImageObject renders an image object's bitmap and converts it to an
// image.NRGBA regardless of the pdfium pixel format.
func decodeImageObject(instance pdfium.Pdfium, obj references.FPDF_PAGEOBJECT) (image.Image, error) {
	bitmapResp, err := instance.FPDFImageObj_GetBitmap(&requests.FPDFImageObj_GetBitmap{
		ImageObject: obj,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get image bitmap")
	}
	defer instance.FPDFBitmap_Destroy(&requests.FPDFBitmap_Destroy{
		Bitmap: bitmapResp.Bitmap,
	})

	widthResp, err := instance.FPDFBitmap_GetWidth(&requests.FPDFBitmap_GetWidth{
		Bitmap: bitmapResp.Bitmap,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get bitmap width")
	}

	heightResp, err := instance.FPDFBitmap_GetHeight(&requests.FPDFBitmap_GetHeight{
		Bitmap: bitmapResp.Bitmap,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get bitmap height")
	}

	strideResp, err := instance.FPDFBitmap_GetStride(&requests.FPDFBitmap_GetStride{
		Bitmap: bitmapResp.Bitmap,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get bitmap stride")
	}

	formatResp, err := instance.FPDFBitmap_GetFormat(&requests.FPDFBitmap_GetFormat{
		Bitmap: bitmapResp.Bitmap,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get bitmap format")
	}

	bufferResp, err := instance.FPDFBitmap_GetBuffer(&requests.FPDFBitmap_GetBuffer{
		Bitmap: bitmapResp.Bitmap,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get bitmap buffer")
	}

	width := widthResp.Width
	height := heightResp.Height
	stride := strideResp.Stride
	buffer := bufferResp.Buffer

	if width <= 0 || height <= 0 || len(buffer) < stride*height {
		return nil, errors.New("bitmap buffer is truncated")
	}

	out := image.NewNRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		row := buffer[y*stride:]
		for x := 0; x < width; x++ {
			var r, g, b, a uint8

			switch formatResp.Format {
			case enums.FPDF_BITMAP_FORMAT_BGRA:
				b, g, r, a = row[x*4], row[x*4+1], row[x*4+2], row[x*4+3]
			case enums.FPDF_BITMAP_FORMAT_BGRX:
				b, g, r, a = row[x*4], row[x*4+1], row[x*4+2], 255
			case enums.FPDF_BITMAP_FORMAT_BGR:
				b, g, r, a = row[x*3], row[x*3+1], row[x*3+2], 255
			case enums.FPDF_BITMAP_FORMAT_GRAY:
				v := row[x]
				r, g, b, a = v, v, v, 255
			default:
				return nil, errors.Errorf("unsupported bitmap format %d", formatResp.Format)
			}

			idx := out.PixOffset(x, y)
			out.Pix[idx] = r
			out.Pix[idx+1] = g
			out.Pix[idx+2] = b
			out.Pix[idx+3] = a
		}
	}

	return out, nil
}
