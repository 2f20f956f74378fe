package election

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"sync"
)

// Peer is a roster entry: a remote node this one dials out to and may also
// be dialed by. conn and reader are set once, right after the initial dial
// succeeds, and live for the lifetime of the process — but that first write
// races with any inbound Elect arriving before DialPeers finishes, so
// writeMu guards conn/reader themselves, not just the bytes written to
// conn. Every access to conn/reader, including the nil check, must hold
// writeMu.
type Peer struct {
	ID      uint8
	Address string

	writeMu sync.Mutex
	conn    net.Conn
	reader  *bufio.Reader
}

// dialWithRetry opens an outbound TCP stream to address, making up to Retry
// attempts in total; a connect attempt that times out consumes one attempt.
// Any other connect error is returned immediately.
func dialWithRetry(address string) (net.Conn, error) {
	var lastErr error
	for attempt := 0; attempt < Retry; attempt++ {
		conn, err := net.DialTimeout("tcp", address, InitConnTimeout)
		if err == nil {
			return conn, nil
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("dial %s: exhausted %d attempts: %w", address, Retry, lastErr)
}

// dial connects to the peer and stores the resulting stream. An inbound
// Elect can reach this peer (and spawn a self-election) before DialPeers
// has dialed every peer, so the assignment runs under writeMu just like
// every other access to conn/reader.
func (p *Peer) dial() error {
	conn, err := dialWithRetry(p.Address)
	if err != nil {
		return fmt.Errorf("peer %d: %w", p.ID, err)
	}
	p.writeMu.Lock()
	p.conn = conn
	p.reader = bufio.NewReader(conn)
	p.writeMu.Unlock()
	return nil
}
