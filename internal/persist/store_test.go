package persist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pedalworks/dsp-engine/dsp/chain"
)

func testSpec() *chain.ChainSpec {
	return &chain.ChainSpec{
		Version:    1,
		SampleRate: 48000,
		Chain: []chain.NodeSpec{
			{ID: "in", Type: chain.TypeInput, Enabled: true},
			{ID: "amp1", Type: chain.TypeNamModel, Enabled: true, Asset: &chain.Asset{Path: "amp.nam"}},
			{ID: "cab1", Type: chain.TypeIrConvolver, Enabled: true, Asset: &chain.Asset{Path: "cab.wav"}},
			{ID: "out", Type: chain.TypeOutput, Enabled: true},
		},
	}
}

func TestStoreWriteThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(filepath.Join(dir, "chain.json"))

	spec := testSpec()
	if err := s.Write(spec); err != nil {
		t.Fatalf("Write: %v", err)
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := chain.Validate(loaded); err != nil {
		t.Fatalf("Validate(loaded): %v", err)
	}

	if loaded.SampleRate != spec.SampleRate || len(loaded.Chain) != len(spec.Chain) {
		t.Fatalf("round-tripped spec mismatch: %+v vs %+v", loaded, spec)
	}
}

func TestStoreWriteCreatesParentDirectories(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(filepath.Join(dir, "nested", "deep", "chain.json"))

	if err := s.Write(testSpec()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if _, err := os.Stat(s.Path()); err != nil {
		t.Fatalf("expected file to exist: %v", err)
	}
}

func TestStoreWriteLeavesNoTempFileBehind(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(filepath.Join(dir, "chain.json"))

	if err := s.Write(testSpec()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if _, err := os.Stat(s.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("expected .tmp file to be renamed away, got err=%v", err)
	}
}

func TestStoreLoadMissingFileReturnsError(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "missing.json"))

	if _, err := s.Load(); err == nil {
		t.Fatalf("expected error loading a nonexistent file")
	}
}
