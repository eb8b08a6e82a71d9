// Package convolver implements a uniformly-partitioned overlap-save FFT
// convolver with a fixed block size, used to run cabinet impulse responses
// in the realtime signal chain.
package convolver
