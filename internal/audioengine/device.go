//go:build linux

package audioengine

/*
#cgo LDFLAGS: -lasound
#include <alsa/asoundlib.h>
#include <stdlib.h>

static snd_pcm_t *pw_open(const char *device, int stream, int *err) {
	snd_pcm_t *handle;
	*err = snd_pcm_open(&handle, device, (snd_pcm_stream_t)stream, 0);
	if (*err < 0) return NULL;
	return handle;
}

static int pw_setup(snd_pcm_t *handle, unsigned int *rate, snd_pcm_uframes_t *period,
                     unsigned int periods, unsigned int channels) {
	snd_pcm_hw_params_t *hw;
	int dir = 0;
	int err;

	snd_pcm_hw_params_alloca(&hw);

	err = snd_pcm_hw_params_any(handle, hw);
	if (err < 0) return err;
	err = snd_pcm_hw_params_set_access(handle, hw, SND_PCM_ACCESS_RW_INTERLEAVED);
	if (err < 0) return err;
	err = snd_pcm_hw_params_set_format(handle, hw, SND_PCM_FORMAT_S32_LE);
	if (err < 0) return err;
	err = snd_pcm_hw_params_set_channels(handle, hw, channels);
	if (err < 0) return err;
	err = snd_pcm_hw_params_set_rate_near(handle, hw, rate, &dir);
	if (err < 0) return err;
	err = snd_pcm_hw_params_set_period_size_near(handle, hw, period, &dir);
	if (err < 0) return err;
	err = snd_pcm_hw_params_set_periods_near(handle, hw, &periods, &dir);
	if (err < 0) return err;
	err = snd_pcm_hw_params(handle, hw);
	if (err < 0) return err;

	return snd_pcm_prepare(handle);
}

static snd_pcm_sframes_t pw_readi(snd_pcm_t *h, void *buf, snd_pcm_uframes_t frames) {
	return snd_pcm_readi(h, buf, frames);
}

static snd_pcm_sframes_t pw_writei(snd_pcm_t *h, void *buf, snd_pcm_uframes_t frames) {
	return snd_pcm_writei(h, buf, frames);
}

static int pw_recover(snd_pcm_t *h, int err, int silent) {
	return snd_pcm_recover(h, err, silent);
}

static int pw_prepare(snd_pcm_t *h) {
	return snd_pcm_prepare(h);
}

static int pw_link(snd_pcm_t *a, snd_pcm_t *b) {
	return snd_pcm_link(a, b);
}

static snd_pcm_state_t pw_state(snd_pcm_t *h) {
	return snd_pcm_state(h);
}

static void pw_close(snd_pcm_t *h) {
	if (h != NULL) {
		snd_pcm_drop(h);
		snd_pcm_close(h);
	}
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// stream direction constants mirroring snd_pcm_stream_t.
const (
	streamCapture  = C.SND_PCM_STREAM_CAPTURE
	streamPlayback = C.SND_PCM_STREAM_PLAYBACK
)

// alsaPCM wraps one ALSA PCM handle (capture or playback).
type alsaPCM struct {
	handle   *C.snd_pcm_t
	channels int
}

func openPCM(device string, stream C.int, channels, rate, period, periods int) (*alsaPCM, int, int, error) {
	cDevice := C.CString(device)
	defer C.free(unsafe.Pointer(cDevice))

	var cErr C.int

	handle := C.pw_open(cDevice, stream, &cErr)
	if handle == nil {
		return nil, 0, 0, fmt.Errorf("audioengine: open %s: %s", device, alsaStrerror(cErr))
	}

	cRate := C.uint(rate)
	cPeriod := C.snd_pcm_uframes_t(period)

	if err := C.pw_setup(handle, &cRate, &cPeriod, C.uint(periods), C.uint(channels)); err < 0 {
		C.pw_close(handle)
		return nil, 0, 0, fmt.Errorf("audioengine: setup %s: %s", device, alsaStrerror(err))
	}

	return &alsaPCM{handle: handle, channels: channels}, int(cRate), int(cPeriod), nil
}

// pcmError carries the raw negative ALSA error code alongside its message,
// so recover() can dispatch on the code without reparsing a string.
type pcmError struct {
	code C.int
}

func (e *pcmError) Error() string {
	return fmt.Sprintf("audioengine: %s", alsaStrerror(e.code))
}

func (p *alsaPCM) readFrames(buf []int32, frames int) (int, error) {
	n := C.pw_readi(p.handle, unsafe.Pointer(&buf[0]), C.snd_pcm_uframes_t(frames))
	if n < 0 {
		return 0, &pcmError{code: C.int(n)}
	}

	return int(n), nil
}

func (p *alsaPCM) writeFrames(buf []int32, frames int) (int, error) {
	n := C.pw_writei(p.handle, unsafe.Pointer(&buf[0]), C.snd_pcm_uframes_t(frames))
	if n < 0 {
		return 0, &pcmError{code: C.int(n)}
	}

	return int(n), nil
}

// recover implements the §4.9 recovery policy: on EPIPE/ESTRPIPE, drop and
// prepare explicitly; otherwise defer to snd_pcm_recover. Returns nil only
// if the stream is runnable afterward.
func (p *alsaPCM) recover(errCode int) error {
	switch -errCode {
	case int(C.EPIPE), int(C.ESTRPIPE):
		C.snd_pcm_drop(p.handle)

		if rc := C.pw_prepare(p.handle); rc < 0 {
			return fmt.Errorf("audioengine: recover prepare: %s", alsaStrerror(rc))
		}

		return nil
	default:
		if rc := C.pw_recover(p.handle, C.int(errCode), 1); rc < 0 {
			return fmt.Errorf("audioengine: recover: %s", alsaStrerror(rc))
		}
	}

	state := C.pw_state(p.handle)
	if state == C.SND_PCM_STATE_XRUN || state == C.SND_PCM_STATE_SUSPENDED {
		if rc := C.pw_prepare(p.handle); rc < 0 {
			return fmt.Errorf("audioengine: recover re-prepare: %s", alsaStrerror(rc))
		}
	}

	return nil
}

func (p *alsaPCM) close() {
	if p == nil || p.handle == nil {
		return
	}

	C.pw_close(p.handle)
	p.handle = nil
}

func alsaStrerror(code C.int) string {
	return C.GoString(C.snd_strerror(code))
}

// Device owns a negotiated full-duplex ALSA capture+playback pair.
type Device struct {
	capture  *alsaPCM
	playback *alsaPCM

	Rate             int
	Period           int
	CaptureChannels  int
	PlaybackChannels int
}

// OpenDevice opens and negotiates capture and playback devices. Capture and
// playback must agree on the negotiated rate and period; a mismatch is a
// fatal AudioError (§7).
func OpenDevice(captureDevice, playbackDevice string, rate, period, periods, captureChannels, playbackChannels int) (*Device, error) {
	cap, capRate, capPeriod, err := openPCM(captureDevice, streamCapture, captureChannels, rate, period, periods)
	if err != nil {
		return nil, err
	}

	play, playRate, playPeriod, err := openPCM(playbackDevice, streamPlayback, playbackChannels, rate, period, periods)
	if err != nil {
		cap.close()
		return nil, err
	}

	if capRate != playRate || capPeriod != playPeriod {
		cap.close()
		play.close()

		return nil, fmt.Errorf(
			"audioengine: capture/playback negotiation mismatch: capture(rate=%d,period=%d) playback(rate=%d,period=%d)",
			capRate, capPeriod, playRate, playPeriod,
		)
	}

	return &Device{
		capture:          cap,
		playback:         play,
		Rate:             capRate,
		Period:           capPeriod,
		CaptureChannels:  captureChannels,
		PlaybackChannels: playbackChannels,
	}, nil
}

// Link attempts to link capture and playback for sample-accurate start.
// Failure is non-fatal (fail-open per §4.9 step 6).
func (d *Device) Link() error {
	if rc := C.pw_link(d.capture.handle, d.playback.handle); rc < 0 {
		return fmt.Errorf("audioengine: link: %s", alsaStrerror(rc))
	}

	return nil
}

// ReadCapture reads exactly frames frames into buf (len(buf) must be
// frames*CaptureChannels), looping on short reads and recovering on error.
func (d *Device) ReadCapture(buf []int32, frames int, running func() bool) error {
	got := 0

	for got < frames && running() {
		n, err := d.capture.readFrames(buf[got*d.CaptureChannels:], frames-got)
		if err != nil {
			pe, ok := err.(*pcmError)
			if !ok {
				return err
			}

			if rerr := d.capture.recover(int(pe.code)); rerr != nil {
				return rerr
			}

			continue
		}

		got += n
	}

	return nil
}

// WriteToPlayback writes exactly frames frames from buf, recovering on
// xrun/suspend.
func (d *Device) WriteToPlayback(buf []int32, frames int) error {
	written := 0

	for written < frames {
		n, err := d.playback.writeFrames(buf[written*d.PlaybackChannels:], frames-written)
		if err != nil {
			pe, ok := err.(*pcmError)
			if !ok {
				return err
			}

			if rerr := d.playback.recover(int(pe.code)); rerr != nil {
				return rerr
			}

			continue
		}

		written += n
	}

	return nil
}

// PrimePlayback writes n frames of silence to fill the playback buffer
// before the steady-state loop begins (§4.9 step 7).
func (d *Device) PrimePlayback(frames int) error {
	silence := make([]int32, frames*d.PlaybackChannels)
	return d.WriteToPlayback(silence, frames)
}

// Close releases both PCM handles.
func (d *Device) Close() {
	d.capture.close()
	d.playback.close()
}
