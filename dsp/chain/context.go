package chain

// ProcessContext carries build-time parameters shared by every node
// constructed for one engine instance: negotiated sample rate, the
// maximum block size the engine will ever call Process with, and the
// shared-state cell the Input node reads its realtime trim from.
type ProcessContext struct {
	SampleRate     int
	MaxBlockFrames int
	InputTrimLin   *TrimCell
}
