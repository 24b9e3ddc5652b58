// SPDX-License-Identifier: AGPL-3.0-only
package fetcher

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"net/textproto"
	"path/filepath"
	"strings"

	"github.com/gen2brain/webp"
	"golang.org/x/image/draw"
)

const (
	MaxUploadSize  = 25 * 1024 * 1024
	MaxImageEdge   = 1080
	jpegQuality    = 85
	contentTypeJPG = "image/jpeg"
	contentTypePNG = "image/png"
)

var ErrUnsupportedImage = errors.New("invalid file type (allowed: jpg, jpeg, png, webp)")

// Upload is an image ready to be attached to a multipart form.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// PrepareImage validates an image and rewrites it into a form the backend
// accepts: jpeg or png, longest edge at most MaxImageEdge. WebP input is
// transcoded to jpeg.
func PrepareImage(filename string, r io.Reader) (*Upload, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".jpg" && ext != ".jpeg" && ext != ".png" && ext != ".webp" {
		return nil, ErrUnsupportedImage
	}

	raw, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return nil, err
	}
	if len(raw) > MaxUploadSize {
		return nil, fmt.Errorf("file size too large (max %dMB)", MaxUploadSize/1024/1024)
	}

	var img image.Image
	if ext == ".webp" {
		img, err = webp.Decode(bytes.NewReader(raw))
	} else {
		img, _, err = image.Decode(bytes.NewReader(raw))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode image: %v", ErrUnsupportedImage, err)
	}

	resized := scaleDown(img, MaxImageEdge)
	if resized == img && ext != ".webp" {
		ct := contentTypeJPG
		if ext == ".png" {
			ct = contentTypePNG
		}
		return &Upload{Filename: filepath.Base(filename), ContentType: ct, Data: raw}, nil
	}

	var buf bytes.Buffer
	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if ext == ".png" {
		if err := png.Encode(&buf, resized); err != nil {
			return nil, fmt.Errorf("failed to encode image: %w", err)
		}
		return &Upload{Filename: name + ".png", ContentType: contentTypePNG, Data: buf.Bytes()}, nil
	}

	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return &Upload{Filename: name + ".jpg", ContentType: contentTypeJPG, Data: buf.Bytes()}, nil
}

func scaleDown(img image.Image, maxEdge int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxEdge && h <= maxEdge {
		return img
	}

	nw, nh := maxEdge, maxEdge
	if w >= h {
		nh = h * maxEdge / w
	} else {
		nw = w * maxEdge / h
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

type multipartForm struct {
	buf bytes.Buffer
	w   *multipart.Writer
	err error
}

func newMultipartForm() *multipartForm {
	f := &multipartForm{}
	f.w = multipart.NewWriter(&f.buf)
	return f
}

func (f *multipartForm) field(name, value string) {
	if f.err != nil {
		return
	}
	f.err = f.w.WriteField(name, value)
}

func (f *multipartForm) file(name string, u *Upload) {
	if f.err != nil {
		return
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, name, u.Filename))
	h.Set("Content-Type", u.ContentType)

	part, err := f.w.CreatePart(h)
	if err != nil {
		f.err = err
		return
	}
	_, f.err = part.Write(u.Data)
}

func (f *multipartForm) finish() (io.Reader, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	if err := f.w.Close(); err != nil {
		return nil, "", err
	}
	return &f.buf, f.w.FormDataContentType(), nil
}
