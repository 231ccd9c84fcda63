package iox

import (
	"errors"
	"fmt"
	"os"

	"github.com/bmharper/cimg/v2"
)

var ErrNotJPEG = errors.New("Not a JPEG image")

// Smallest file that can hold an SOI marker and the start of the next segment
const minJPEGSize = 4

// ReadJPEG decodes a JPEG file. cimg hands the buffer straight to libjpeg-turbo,
// so empty and truncated-header files are rejected here first.
func ReadJPEG(filename string) (*cimg.Image, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return DecodeJPEG(filename, raw)
}

// DecodeJPEG decodes raw, which was read from 'name'
func DecodeJPEG(name string, raw []byte) (*cimg.Image, error) {
	if len(raw) < minJPEGSize {
		return nil, fmt.Errorf("%w: %v is %v bytes", ErrNotJPEG, name, len(raw))
	}
	if raw[0] != 0xFF || raw[1] != 0xD8 {
		return nil, fmt.Errorf("%w: %v has no SOI marker", ErrNotJPEG, name)
	}
	return cimg.Decompress(raw)
}
