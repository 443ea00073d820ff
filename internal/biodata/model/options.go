package model

import (
	"errors"
	"fmt"
	"time"
)

// Page formats
const (
	FormatA4     = "a4"
	FormatLetter = "letter"
)

// Orientations
const (
	OrientationPortrait  = "portrait"
	OrientationLandscape = "landscape"
)

// Layout modes for the paginator
const (
	// LayoutAuto splits content across pages when it is taller than one page
	LayoutAuto = "auto"
	// LayoutFit always scales the whole capture onto a single page
	LayoutFit = "fit"
)

// Capture and export defaults
const (
	DefaultScale        = 2.0
	MaxScale            = 6.0
	DefaultQuality      = 1.0
	DefaultImageTimeout = 20 * time.Second
)

// Options controls a single capture and export run
type Options struct {
	Scale        float64       `json:"scale"`
	Format       string        `json:"format"`
	Orientation  string        `json:"orientation"`
	Quality      float64       `json:"quality"`
	Filename     string        `json:"filename,omitempty"`
	Layout       string        `json:"layout"`
	ImageTimeout time.Duration `json:"image_timeout"`
}

// DefaultOptions returns scale 2, A4 portrait, maximum quality
func DefaultOptions() Options {
	return Options{
		Scale:        DefaultScale,
		Format:       FormatA4,
		Orientation:  OrientationPortrait,
		Quality:      DefaultQuality,
		Layout:       LayoutAuto,
		ImageTimeout: DefaultImageTimeout,
	}
}

// WithDefaults fills unset fields from DefaultOptions
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o.Scale <= 0 {
		o.Scale = d.Scale
	}
	if o.Format == "" {
		o.Format = d.Format
	}
	if o.Orientation == "" {
		o.Orientation = d.Orientation
	}
	if o.Quality == 0 {
		o.Quality = d.Quality
	}
	if o.Layout == "" {
		o.Layout = d.Layout
	}
	if o.ImageTimeout <= 0 {
		o.ImageTimeout = d.ImageTimeout
	}
	return o
}

// EffectiveScale caps the requested scale to bound raster memory
func (o Options) EffectiveScale() float64 {
	if o.Scale <= 0 {
		return DefaultScale
	}
	if o.Scale > MaxScale {
		return MaxScale
	}
	return o.Scale
}

// Validate checks enumerated values and ranges
func (o Options) Validate() error {
	switch o.Format {
	case FormatA4, FormatLetter:
	default:
		return fmt.Errorf("unsupported page format: %q (must be a4 or letter)", o.Format)
	}
	switch o.Orientation {
	case OrientationPortrait, OrientationLandscape:
	default:
		return fmt.Errorf("unsupported orientation: %q (must be portrait or landscape)", o.Orientation)
	}
	switch o.Layout {
	case LayoutAuto, LayoutFit:
	default:
		return fmt.Errorf("unsupported layout: %q (must be auto or fit)", o.Layout)
	}
	if o.Quality <= 0 || o.Quality > 1 {
		return errors.New("quality must be in (0, 1]")
	}
	return nil
}
