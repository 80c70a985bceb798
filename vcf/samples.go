package vcf

// Samples is the ordered list of sample identifiers taken from a VCF header
// line's sample columns. Every sample in this module is diploid (spec
// Non-goals exclude polyploid samples).
type Samples struct {
	ids []string
}

// NewSamples constructs a Samples list from the given ids, in VCF column
// order.
func NewSamples(ids []string) Samples {
	return Samples{ids: append([]string(nil), ids...)}
}

// Size returns the number of samples.
func (s Samples) Size() int { return len(s.ids) }

// IDs returns the sample identifiers, in VCF column order.
func (s Samples) IDs() []string { return append([]string(nil), s.ids...) }

// ID returns the identifier of the sample at index j.
func (s Samples) ID(j int) string { return s.ids[j] }
