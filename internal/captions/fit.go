package captions

// Measurer reports the rendered size of text at a font size.
type Measurer interface {
	Measure(text string, size float64) (width, height float64)
}

// Box is the caption area and the padding kept free on each axis.
type Box struct {
	Width   float64
	Height  float64
	Padding float64
}

// FitOptions bounds the font-size search.
type FitOptions struct {
	MaxSize float64
	MinSize float64
	Step    float64
}

// DefaultFitOptions mirrors the sizes used by the reel template.
func DefaultFitOptions() FitOptions {
	return FitOptions{MaxSize: 100, MinSize: 20, Step: 5}
}

// FitFont returns the largest size, stepping down from MaxSize, at which text
// fits inside the box minus padding. MinSize is returned when nothing fits.
func FitFont(text string, m Measurer, box Box, opts FitOptions) float64 {
	if opts.Step <= 0 {
		opts.Step = DefaultFitOptions().Step
	}
	if opts.MinSize <= 0 {
		opts.MinSize = 1
	}
	if opts.MaxSize < opts.MinSize {
		opts.MaxSize = opts.MinSize
	}

	maxW := box.Width - box.Padding
	maxH := box.Height - box.Padding

	for size := opts.MaxSize; size >= opts.MinSize; size -= opts.Step {
		w, h := m.Measure(text, size)
		if w <= maxW && h <= maxH {
			return size
		}
	}
	return opts.MinSize
}
