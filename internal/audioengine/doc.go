// Package audioengine owns the realtime ALSA capture/playback loop: device
// negotiation, xrun recovery, realtime scheduling, denormal suppression,
// deadline accounting, and the period-boundary chain swap.
package audioengine
