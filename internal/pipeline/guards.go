package pipeline

// Type guards are the capability predicates of spec.md §4.8. Pipeline.AddStep
// and the target setters call them; SetCache and SetChunker take typed
// interfaces, and context and parameter updates are not guarded.

// IsStep reports whether v is a Step.
func IsStep(v any) bool {
	_, ok := v.(Step)
	return ok
}

// IsExtractor reports whether v is a Step with Capability == CapabilityExtract.
func IsExtractor(v any) bool {
	s, ok := v.(Step)
	return ok && s.Descriptor().Capability == CapabilityExtract
}

// IsLoader reports whether v is a Step with Capability == CapabilityLoad.
func IsLoader(v any) bool {
	s, ok := v.(Step)
	return ok && s.Descriptor().Capability == CapabilityLoad
}

// IsTransform reports whether v is a Step with Capability == CapabilityTransform.
func IsTransform(v any) bool {
	s, ok := v.(Step)
	return ok && s.Descriptor().Capability == CapabilityTransform
}

// IsContext reports whether v is a *Context.
func IsContext(v any) bool {
	_, ok := v.(*Context)
	return ok
}

// RequireExtractor returns a TypeViolationError tagged with seam when v is
// not an extractor step.
func RequireExtractor(seam string, v any) error {
	if IsExtractor(v) {
		return nil
	}
	return &TypeViolationError{Seam: seam, Expected: "Extract step"}
}

// RequireLoader returns a TypeViolationError tagged with seam when v is not
// a loader step.
func RequireLoader(seam string, v any) error {
	if IsLoader(v) {
		return nil
	}
	return &TypeViolationError{Seam: seam, Expected: "Load step"}
}

// RequireStep returns a TypeViolationError tagged with seam when v is not a
// Step.
func RequireStep(seam string, v any) error {
	if IsStep(v) {
		return nil
	}
	return &TypeViolationError{Seam: seam, Expected: "Step"}
}
