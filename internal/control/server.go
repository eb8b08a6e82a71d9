// Package control implements the line-delimited JSON request/response
// protocol exposed over a local stream socket, and the loopback UDP trim
// listener.
package control

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"net"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/pedalworks/dsp-engine/dsp/chain"
	"github.com/pedalworks/dsp-engine/internal/persist"
	"github.com/pedalworks/dsp-engine/internal/runtime"
)

const acceptPollInterval = 200 * time.Millisecond

// Store is the persistence dependency set_chain writes through before
// publishing. Satisfied by *persist.Store.
type Store interface {
	Write(spec *chain.ChainSpec) error
}

var _ Store = (*persist.Store)(nil)

// Server serves get_chain / set_chain / list_types over a Unix domain
// socket, one request per connection.
type Server struct {
	path       string
	ln         *net.UnixListener
	rt         *runtime.ChainRuntime
	store      Store
	sampleRate int
	log        *zap.Logger

	stop chan struct{}
	done chan struct{}
}

// NewServer creates but does not start a control server. sampleRate is the
// engine's negotiated rate, which overrides any advisory rate in an
// incoming set_chain spec.
func NewServer(socketPath string, rt *runtime.ChainRuntime, store Store, sampleRate int, log *zap.Logger) (*Server, error) {
	_ = os.Remove(socketPath)

	addr, err := net.ResolveUnixAddr("unix", socketPath)
	if err != nil {
		return nil, err
	}

	ln, err := net.ListenUnix("unix", addr)
	if err != nil {
		return nil, err
	}

	if err := os.Chmod(socketPath, 0o666); err != nil {
		ln.Close()
		return nil, err
	}

	return &Server{
		path:       socketPath,
		ln:         ln,
		rt:         rt,
		store:      store,
		sampleRate: sampleRate,
		log:        log,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}, nil
}

// Run accepts connections until Stop is called, serving one request per
// connection. It polls Accept with a short deadline so shutdown is prompt.
func (s *Server) Run() {
	defer close(s.done)

	for {
		select {
		case <-s.stop:
			return
		default:
		}

		s.ln.SetDeadline(time.Now().Add(acceptPollInterval))

		conn, err := s.ln.Accept()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}

			select {
			case <-s.stop:
				return
			default:
				s.log.Warn("control accept failed", zap.Error(err))
				continue
			}
		}

		s.handle(conn)
	}
}

// Stop closes the listener and unlinks the socket file.
func (s *Server) Stop() {
	close(s.stop)
	s.ln.Close()
	<-s.done
	os.Remove(s.path)
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	line, err := bufio.NewReader(io.LimitReader(conn, maxRequestBytes+1)).ReadBytes('\n')
	if err != nil && len(line) == 0 {
		s.writeResponse(conn, errResponse("empty request"))
		return
	}

	var req request
	if err := json.Unmarshal(line, &req); err != nil {
		s.writeResponse(conn, errResponse("invalid JSON: "+err.Error()))
		return
	}

	s.writeResponse(conn, s.dispatch(req))
}

func (s *Server) dispatch(req request) response {
	switch req.Cmd {
	case "list_types":
		return response{OK: true, Types: &Manifest}

	case "get_chain":
		spec := s.rt.ActiveSpec()
		if spec == nil {
			spec = s.rt.LastSpec()
		}

		return response{OK: true, Chain: spec}

	case "set_chain":
		return s.setChain(req.Chain)

	default:
		return errResponse("unknown command: " + req.Cmd)
	}
}

func (s *Server) setChain(spec *chain.ChainSpec) response {
	if spec == nil {
		return errResponse("missing chain")
	}

	spec.SampleRate = s.sampleRate

	pending, err := s.rt.Build(spec)
	if err != nil {
		var verr *chain.ValidationError
		if errors.As(err, &verr) {
			return errResponse(verr.Message)
		}

		return errResponse(err.Error())
	}

	if err := s.store.Write(spec); err != nil {
		return errResponse("persist failed: " + err.Error())
	}

	s.rt.Publish(pending)

	resp := okResponse()
	if len(pending.Warnings) > 0 {
		resp.Warning = pending.Warnings[0]
	}

	return resp
}

func (s *Server) writeResponse(conn net.Conn, resp response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.log.Error("control response marshal failed", zap.Error(err))
		return
	}

	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		s.log.Warn("control response write failed", zap.Error(err))
	}
}
