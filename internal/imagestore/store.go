// Package imagestore keeps per-option and per-machine JPEG images on disk,
// looked up by file name.
package imagestore

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // uploads may be PNG
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

const (
	defaultMaxWidth = 1200
	defaultQuality  = 85
	imageExt        = ".jpg"
)

// ErrInvalidName is returned for codes or machine names that cannot be used
// as a file name.
var ErrInvalidName = errors.New("invalid image name")

// Store reads and writes images under two directories.
type Store struct {
	optionDir  string
	machineDir string
	maxWidth   int
	quality    int
}

// Option configures a Store.
type Option func(*Store)

// WithMaxWidth sets the width uploads are scaled down to.
func WithMaxWidth(px int) Option {
	return func(s *Store) {
		if px > 0 {
			s.maxWidth = px
		}
	}
}

// New creates both directories if needed.
func New(optionDir, machineDir string, opts ...Option) (*Store, error) {
	s := &Store{
		optionDir:  optionDir,
		machineDir: machineDir,
		maxWidth:   defaultMaxWidth,
		quality:    defaultQuality,
	}
	for _, o := range opts {
		o(s)
	}

	for _, dir := range []string{optionDir, machineDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create image directory %s: %w", dir, err)
		}
	}
	return s, nil
}

// OptionPath is option_images/{code}.jpg.
func (s *Store) OptionPath(code string) (string, error) {
	return pathFor(s.optionDir, code)
}

// MachinePath is machine_images/{name}.jpg.
func (s *Store) MachinePath(name string) (string, error) {
	return pathFor(s.machineDir, name)
}

// OptionImage returns the path of an existing option image.
func (s *Store) OptionImage(code string) (string, bool) {
	return existing(s.OptionPath(code))
}

// MachineImage returns the path of an existing machine image.
func (s *Store) MachineImage(name string) (string, bool) {
	return existing(s.MachinePath(name))
}

// SaveOption stores an uploaded option image, replacing any previous one.
func (s *Store) SaveOption(code string, r io.Reader) (string, error) {
	path, err := s.OptionPath(code)
	if err != nil {
		return "", err
	}
	return path, s.save(path, r)
}

// SaveMachine stores an uploaded machine image, replacing any previous one.
func (s *Store) SaveMachine(name string, r io.Reader) (string, error) {
	path, err := s.MachinePath(name)
	if err != nil {
		return "", err
	}
	return path, s.save(path, r)
}

// save decodes r (JPEG or PNG), scales it down to maxWidth and writes it as
// JPEG. The file is written under a temporary name and renamed into place,
// so concurrent writers for one code leave the last complete image.
func (s *Store) save(path string, r io.Reader) error {
	src, _, err := image.Decode(bufio.NewReader(r))
	if err != nil {
		return fmt.Errorf("decode uploaded image: %w", err)
	}

	img := scaleDown(src, s.maxWidth)

	tmp := filepath.Join(filepath.Dir(path), ".upload-"+uuid.NewString()+imageExt)
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create image file: %w", err)
	}

	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: s.quality}); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode jpeg: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close image file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("move image into place: %w", err)
	}
	return nil
}

func scaleDown(src image.Image, maxWidth int) image.Image {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= maxWidth {
		return src
	}

	ratio := float64(maxWidth) / float64(width)
	newHeight := int(float64(height) * ratio)
	if newHeight < 1 {
		newHeight = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return dst
}

func pathFor(dir, name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	return filepath.Join(dir, name+imageExt), nil
}

func validateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`+"\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: %q is hidden", ErrInvalidName, name)
	}
	return nil
}

func existing(path string, err error) (string, bool) {
	if err != nil {
		return "", false
	}
	info, statErr := os.Stat(path)
	if statErr != nil || info.IsDir() {
		return "", false
	}
	return path, true
}
