// Package inspect sanity-checks uploaded files before they are stored.
// It rejects files whose content does not match the declared MIME type,
// which keeps malformed uploads from burning inference calls later.
package inspect

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/avelinsk/finpaper/internal/core/domain"
	"github.com/avelinsk/finpaper/internal/core/ports"
)

type Inspector struct{}

func New() *Inspector {
	return &Inspector{}
}

func (i *Inspector) Inspect(_ context.Context, fileName, mimeType string, data []byte) (ports.FileInfo, error) {
	if len(data) == 0 {
		return ports.FileInfo{}, domain.WrapError(domain.ErrInvalidInput, "inspect file",
			fmt.Errorf("%s: file is empty", fileName))
	}

	if mimeType == "application/pdf" {
		return inspectPDF(fileName, data)
	}
	return inspectImage(fileName, mimeType, data)
}

func inspectPDF(fileName string, data []byte) (ports.FileInfo, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ports.FileInfo{}, domain.WrapError(domain.ErrInvalidInput, "inspect file",
			fmt.Errorf("%s: not a readable PDF: %v", fileName, err))
	}

	pages := reader.NumPage()
	if pages < 1 {
		return ports.FileInfo{}, domain.WrapError(domain.ErrInvalidInput, "inspect file",
			fmt.Errorf("%s: PDF has no pages", fileName))
	}
	return ports.FileInfo{Pages: pages}, nil
}

var imageMagic = map[string][][]byte{
	"image/jpeg": {{0xFF, 0xD8, 0xFF}},
	"image/jpg":  {{0xFF, 0xD8, 0xFF}},
	"image/png":  {{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}},
}

func inspectImage(fileName, mimeType string, data []byte) (ports.FileInfo, error) {
	signatures, ok := imageMagic[mimeType]
	if !ok {
		return ports.FileInfo{}, domain.WrapError(domain.ErrInvalidInput, "inspect file",
			fmt.Errorf("%s: unsupported content type %q", fileName, mimeType))
	}

	for _, sig := range signatures {
		if bytes.HasPrefix(data, sig) {
			return ports.FileInfo{Pages: 1}, nil
		}
	}
	return ports.FileInfo{}, domain.WrapError(domain.ErrInvalidInput, "inspect file",
		fmt.Errorf("%s: content does not match declared type %s", fileName, mimeType))
}
