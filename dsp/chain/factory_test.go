package chain

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pedalworks/dsp-engine/dsp/irloader"
)

type fakeNamModel struct {
	resetSR, resetBlock int
	expectedDbu         float64
}

func (m *fakeNamModel) Reset(sampleRate, maxBlockFrames int) error {
	m.resetSR, m.resetBlock = sampleRate, maxBlockFrames
	return nil
}

func (m *fakeNamModel) Process(in, out []float32, n int) {
	copy(out[:n], in[:n])
}

func (m *fakeNamModel) ExpectedDbu() float64 { return m.expectedDbu }

func testCtx() ProcessContext {
	return ProcessContext{SampleRate: 48000, MaxBlockFrames: 64}
}

func TestFactoryBuildOverdrive(t *testing.T) {
	f := NewNodeFactory(nil)
	node, warning, err := f.Build(NodeSpec{ID: "od1", Type: TypeOverdrive, Enabled: true}, testCtx(), false)

	require.NoError(t, err)
	require.Empty(t, warning)
	require.IsType(t, &OverdriveNode{}, node)
}

func TestFactoryBuildOverdriveDisabledIsBypassed(t *testing.T) {
	f := NewNodeFactory(nil)
	node, _, err := f.Build(NodeSpec{ID: "od1", Type: TypeOverdrive, Enabled: false}, testCtx(), false)

	require.NoError(t, err)
	require.IsType(t, &bypassWrapper{}, node)
}

func TestFactoryNamModelMissingAssetFallsBackToPassthrough(t *testing.T) {
	f := NewNodeFactory(nil)
	node, warning, err := f.Build(NodeSpec{ID: "amp1", Type: TypeNamModel, Enabled: true}, testCtx(), false)

	require.NoError(t, err)
	require.NotEmpty(t, warning)
	require.IsType(t, &PassthroughNode{}, node)
}

func TestFactoryNamModelNoLoaderConfiguredIsHardError(t *testing.T) {
	f := NewNodeFactory(nil)
	_, _, err := f.Build(NodeSpec{
		ID: "amp1", Type: TypeNamModel, Enabled: true, Asset: &Asset{Path: "amp.nam"},
	}, testCtx(), false)

	require.Error(t, err)
}

func TestFactoryNamModelLoadsAndInits(t *testing.T) {
	model := &fakeNamModel{expectedDbu: 12.2}
	f := NewNodeFactory(func(path string) (NamModel, error) {
		require.Equal(t, "amp.nam", path)
		return model, nil
	})

	node, _, err := f.Build(NodeSpec{
		ID: "amp1", Type: TypeNamModel, Enabled: true, Asset: &Asset{Path: "amp.nam"},
	}, testCtx(), false)

	require.NoError(t, err)
	require.IsType(t, &NamModelNode{}, node)
	require.Equal(t, 48000, model.resetSR)
	require.Equal(t, 64, model.resetBlock)
}

func TestFactoryNamModelLoaderErrorPropagates(t *testing.T) {
	wantErr := errors.New("boom")
	f := NewNodeFactory(func(path string) (NamModel, error) { return nil, wantErr })

	_, _, err := f.Build(NodeSpec{
		ID: "amp1", Type: TypeNamModel, Enabled: true, Asset: &Asset{Path: "amp.nam"},
	}, testCtx(), false)

	require.ErrorIs(t, err, wantErr)
}

func TestFactoryIrConvolverMissingAssetFallsBackToPassthrough(t *testing.T) {
	f := NewNodeFactory(nil)
	node, warning, err := f.Build(NodeSpec{ID: "cab1", Type: TypeIrConvolver, Enabled: true}, testCtx(), false)

	require.NoError(t, err)
	require.NotEmpty(t, warning)
	require.IsType(t, &PassthroughNode{}, node)
}

func TestFactoryIrConvolverSampleRateMismatchIsHardError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cab.wav")
	require.NoError(t, os.WriteFile(path, []byte("not used, loader stubbed"), 0o644))

	f := NewNodeFactory(nil)
	f.loadIR = func(p string) (irloader.Result, error) {
		return irloader.Result{SampleRate: 44100, Mono: []float64{1, 0, 0, 0}}, nil
	}

	_, _, err := f.Build(NodeSpec{
		ID: "cab1", Type: TypeIrConvolver, Enabled: true, Asset: &Asset{Path: path},
	}, testCtx(), false)

	require.Error(t, err)
}

func TestFactoryIrConvolverBuildsFromStubbedLoader(t *testing.T) {
	f := NewNodeFactory(nil)
	f.loadIR = func(p string) (irloader.Result, error) {
		return irloader.Result{SampleRate: 48000, Mono: []float64{1, 0, 0, 0, 0, 0, 0, 0}}, nil
	}

	node, _, err := f.Build(NodeSpec{
		ID: "cab1", Type: TypeIrConvolver, Enabled: true, Asset: &Asset{Path: "cab.wav"},
	}, testCtx(), false)

	require.NoError(t, err)
	require.IsType(t, &IrConvolverNode{}, node)
}

func TestFactoryUnknownNodeType(t *testing.T) {
	f := NewNodeFactory(nil)
	_, _, err := f.Build(NodeSpec{ID: "x", Type: "reverb"}, testCtx(), false)
	require.Error(t, err)
}
