package control

import (
	"net"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pedalworks/dsp-engine/internal/runtime"
)

const trimUDPPort = 9000

// TrimUDP is the optional loopback datagram listener for TRIM_DB
// messages, letting an external controller nudge input trim without
// going through the chain protocol.
type TrimUDP struct {
	conn   *net.UDPConn
	params *runtime.ParamHandle
	log    *zap.Logger

	stop chan struct{}
	done chan struct{}
}

// NewTrimUDP binds the loopback trim listener.
func NewTrimUDP(params *runtime.ParamHandle, log *zap.Logger) (*TrimUDP, error) {
	addr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: trimUDPPort}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, err
	}

	return &TrimUDP{
		conn:   conn,
		params: params,
		log:    log,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}, nil
}

// Run reads one datagram per line until Stop is called.
func (t *TrimUDP) Run() {
	defer close(t.done)

	buf := make([]byte, 256)

	for {
		select {
		case <-t.stop:
			return
		default:
		}

		t.conn.SetReadDeadline(time.Now().Add(acceptPollInterval))

		n, _, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			continue
		}

		t.handle(string(buf[:n]))
	}
}

// Stop closes the socket and waits for Run to return.
func (t *TrimUDP) Stop() {
	close(t.stop)
	t.conn.Close()
	<-t.done
}

func (t *TrimUDP) handle(line string) {
	line = strings.TrimSpace(line)

	fields := strings.Fields(line)
	if len(fields) != 2 || fields[0] != "TRIM_DB" {
		t.log.Info("trim udp: unrecognized message", zap.String("line", line))
		return
	}

	db, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		t.log.Info("trim udp: unparseable value", zap.String("line", line))
		return
	}

	t.params.SetInputTrimDb(db)
}
