// Package irloader loads cabinet impulse responses from disk for the
// signal chain's IrConvolver node. It is non-realtime: it opens files,
// allocates, and may return errors; it must never be called from the
// audio thread.
package irloader
