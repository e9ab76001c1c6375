// Package dsp provides the per-sample conditioning primitives of the
// acquisition pipeline: a ring-buffer DC remover and cascaded biquad
// (second-order IIR) sections with setup-time coefficient design.
package dsp

// Coefficients holds one second-order section, normalized so a0 == 1.
// Values are immutable once designed; all division happens at design time.
type Coefficients struct {
	B0, B1, B2 float64
	A1, A2     float64
}

// Section is a single biquad with its delay-line state. The state
// persists across calls for the lifetime of the pipeline; it is reset
// only by an explicit Reset.
type Section struct {
	Coefficients

	z1, z2 float64
}

// NewSection creates a section with zeroed state.
func NewSection(c Coefficients) *Section {
	return &Section{Coefficients: c}
}

// ProcessSample filters one sample using the transposed direct form II
// recursion. State is mutated exactly once per call.
func (s *Section) ProcessSample(x float64) float64 {
	y := s.B0*x + s.z1
	s.z1 = s.B1*x + s.z2 - s.A1*y
	s.z2 = s.B2*x - s.A2*y
	return y
}

// Reset clears the delay line.
func (s *Section) Reset() {
	s.z1, s.z2 = 0, 0
}

// State returns the current delay-line values.
func (s *Section) State() (z1, z2 float64) {
	return s.z1, s.z2
}

// Chain is an ordered cascade of biquad sections processed in series.
// Each section's output feeds the next; order matters.
type Chain struct {
	sections []Section
}

// NewChain creates a cascade from one or more coefficient sets.
// Sections are pre-sized at setup; ProcessSample never allocates.
func NewChain(coeffs []Coefficients) *Chain {
	c := &Chain{sections: make([]Section, len(coeffs))}
	for i := range coeffs {
		c.sections[i].Coefficients = coeffs[i]
	}
	return c
}

// ProcessSample cascades the input through all sections in order.
func (c *Chain) ProcessSample(x float64) float64 {
	for i := range c.sections {
		x = c.sections[i].ProcessSample(x)
	}
	return x
}

// Reset clears all section states.
func (c *Chain) Reset() {
	for i := range c.sections {
		c.sections[i].Reset()
	}
}

// NumSections returns the number of cascaded sections.
func (c *Chain) NumSections() int {
	return len(c.sections)
}

// Section returns a pointer to the i-th section for inspection.
func (c *Chain) Section(i int) *Section {
	return &c.sections[i]
}
