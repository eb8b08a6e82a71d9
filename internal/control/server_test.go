package control

import (
	"bufio"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/pedalworks/dsp-engine/dsp/chain"
	"github.com/pedalworks/dsp-engine/internal/runtime"
)

type fakeStore struct {
	writes int
	fail   bool
}

func (f *fakeStore) Write(spec *chain.ChainSpec) error {
	f.writes++
	if f.fail {
		return errFakeStore
	}
	return nil
}

var errFakeStore = &fakeStoreError{}

type fakeStoreError struct{}

func (*fakeStoreError) Error() string { return "fake store failure" }

func testChainSpec() *chain.ChainSpec {
	return &chain.ChainSpec{
		Version:    1,
		SampleRate: 48000,
		Chain: []chain.NodeSpec{
			{ID: "in", Type: chain.TypeInput, Enabled: true},
			{ID: "amp1", Type: chain.TypeNamModel, Enabled: false},
			{ID: "cab1", Type: chain.TypeIrConvolver, Enabled: false},
			{ID: "out", Type: chain.TypeOutput, Enabled: true},
		},
	}
}

func newTestServer(t *testing.T, store Store) (*Server, string) {
	t.Helper()

	ph := runtime.NewParamHandle()
	ctx := chain.ProcessContext{SampleRate: 48000, MaxBlockFrames: 64, InputTrimLin: ph.InputTrimLin}
	builder := chain.NewChainBuilder(chain.NewNodeFactory(nil))
	rt := runtime.NewChainRuntime(builder, ctx)

	sockPath := filepath.Join(t.TempDir(), "control.sock")

	srv, err := NewServer(sockPath, rt, store, 48000, zap.NewNop())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	go srv.Run()
	t.Cleanup(srv.Stop)

	return srv, sockPath
}

func roundTrip(t *testing.T, sockPath string, req any) response {
	t.Helper()

	var conn net.Conn
	var err error

	for range 20 {
		conn, err = net.Dial("unix", sockPath)
		if err == nil {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	data = append(data, '\n')

	if _, err := conn.Write(data); err != nil {
		t.Fatalf("write request: %v", err)
	}

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		t.Fatalf("read response: %v", err)
	}

	var resp response
	if err := json.Unmarshal(line, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}

	return resp
}

func TestServerListTypes(t *testing.T) {
	_, sockPath := newTestServer(t, &fakeStore{})

	resp := roundTrip(t, sockPath, map[string]string{"cmd": "list_types"})

	if !resp.OK {
		t.Fatalf("expected ok, got %+v", resp)
	}
	if resp.Types == nil || resp.Types.Version != manifestVersion {
		t.Fatalf("expected versioned manifest, got %+v", resp.Types)
	}

	found := false
	for _, td := range resp.Types.Types {
		if td.Type == chain.TypeNamModel {
			found = true
			if len(td.Params) == 0 {
				t.Fatalf("expected nam_model params, got none")
			}
		}
	}
	if !found {
		t.Fatalf("expected nam_model in manifest, got %+v", resp.Types)
	}
}

func TestServerGetChainBeforeAnySetIsNil(t *testing.T) {
	_, sockPath := newTestServer(t, &fakeStore{})

	resp := roundTrip(t, sockPath, map[string]string{"cmd": "get_chain"})

	if !resp.OK {
		t.Fatalf("expected ok, got %+v", resp)
	}
	if resp.Chain != nil {
		t.Fatalf("expected no chain before any set_chain, got %+v", resp.Chain)
	}
}

func TestServerSetChainThenGetChainRoundTrips(t *testing.T) {
	_, sockPath := newTestServer(t, &fakeStore{})

	setResp := roundTrip(t, sockPath, map[string]any{"cmd": "set_chain", "chain": testChainSpec()})
	if !setResp.OK {
		t.Fatalf("set_chain failed: %+v", setResp)
	}

	getResp := roundTrip(t, sockPath, map[string]string{"cmd": "get_chain"})
	if !getResp.OK || getResp.Chain == nil {
		t.Fatalf("get_chain failed: %+v", getResp)
	}
	if len(getResp.Chain.Chain) != 4 {
		t.Fatalf("expected 4 nodes, got %d", len(getResp.Chain.Chain))
	}
}

func TestServerSetChainRejectsInvalidSpec(t *testing.T) {
	_, sockPath := newTestServer(t, &fakeStore{})

	bad := testChainSpec()
	bad.Chain = bad.Chain[:1] // drop output, nam_model, ir_convolver

	resp := roundTrip(t, sockPath, map[string]any{"cmd": "set_chain", "chain": bad})
	if resp.OK {
		t.Fatalf("expected failure for invalid spec, got %+v", resp)
	}
}

func TestServerSetChainPersistFailureDoesNotPublish(t *testing.T) {
	store := &fakeStore{fail: true}
	_, sockPath := newTestServer(t, store)

	resp := roundTrip(t, sockPath, map[string]any{"cmd": "set_chain", "chain": testChainSpec()})
	if resp.OK {
		t.Fatalf("expected failure when persistence fails, got %+v", resp)
	}

	getResp := roundTrip(t, sockPath, map[string]string{"cmd": "get_chain"})
	if getResp.Chain != nil {
		t.Fatalf("expected no chain published after persist failure, got %+v", getResp.Chain)
	}
}

func TestServerSetChainOverridesAdvisorySampleRate(t *testing.T) {
	_, sockPath := newTestServer(t, &fakeStore{})

	spec := testChainSpec()
	spec.SampleRate = 96000

	resp := roundTrip(t, sockPath, map[string]any{"cmd": "set_chain", "chain": spec})
	if !resp.OK {
		t.Fatalf("set_chain failed: %+v", resp)
	}

	getResp := roundTrip(t, sockPath, map[string]string{"cmd": "get_chain"})
	if getResp.Chain.SampleRate != 48000 {
		t.Fatalf("SampleRate = %d, want engine-negotiated 48000", getResp.Chain.SampleRate)
	}
}

func TestServerUnknownCommand(t *testing.T) {
	_, sockPath := newTestServer(t, &fakeStore{})

	resp := roundTrip(t, sockPath, map[string]string{"cmd": "frobnicate"})
	if resp.OK {
		t.Fatalf("expected failure for unknown command, got %+v", resp)
	}
}
