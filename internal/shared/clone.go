package shared

// CloneMetadata performs a shallow copy of a metadata map. Snapshots handed
// out of an oscillator must not alias its internal state.
func CloneMetadata(source map[string]interface{}) map[string]interface{} {
	if source == nil {
		return nil
	}
	cloned := make(map[string]interface{}, len(source))
	for k, v := range source {
		cloned[k] = v
	}
	return cloned
}

// CloneFloats copies a float slice.
func CloneFloats(source []float64) []float64 {
	if source == nil {
		return nil
	}
	cloned := make([]float64, len(source))
	copy(cloned, source)
	return cloned
}

// CloneSamples copies a slice of phase samples.
func CloneSamples(source []PhaseSample) []PhaseSample {
	if source == nil {
		return nil
	}
	cloned := make([]PhaseSample, len(source))
	copy(cloned, source)
	return cloned
}
