// Package filter smooths the accumulated histogram before tone mapping.
//
// The filter stage reads the accumulator A and writes the output buffer O;
// the two never alias. Box and Gaussian filters are separable and run as a
// horizontal pass into a scratch buffer followed by a vertical pass into O.
// Samples outside the image count as zero, so interior mass is conserved
// and only the border loses weight.
//
// Every channel (hits and the three colour sums) is filtered with the same
// taps, which keeps the per-pixel colour average meaningful after
// filtering.
package filter
