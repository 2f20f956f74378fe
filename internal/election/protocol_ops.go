package election

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/charleszheng44/leader-elect/internal/message"
)

// ElectOutcome is the per-peer result of a single Elect/Alive round trip.
type ElectOutcome int

const (
	ResponseTimeOut ElectOutcome = iota
	BullierAlive
)

func (o ElectOutcome) String() string {
	if o == BullierAlive {
		return "BullierAlive"
	}
	return "ResponseTimeOut"
}

// send builds a message with sender_id = n.ID and writes it in full to the
// peer's outbound stream. Writes to a single peer's stream are serialized
// by the peer's own mutex so timer-loop broadcasts and elect() requests
// never interleave on the wire.
func (n *Node) send(peerID uint8, t message.Type) error {
	peer, ok := n.peer(peerID)
	if !ok {
		return fmt.Errorf("election: unknown peer %d", peerID)
	}
	peer.writeMu.Lock()
	defer peer.writeMu.Unlock()
	if peer.conn == nil {
		return fmt.Errorf("election: connection missing for peer %d", peerID)
	}
	return message.Write(peer.conn, message.New(n.ID, t))
}

// replyAlive writes an Alive message directly on the connection a frame was
// received on — the accepted, inbound side of the peer's own outbound dial,
// not this node's outbound stream to that peer.
func replyAlive(conn net.Conn, selfID uint8) error {
	return message.Write(conn, message.New(selfID, message.Alive))
}

// requestElection sends Elect to peerID and awaits its reply within
// AliveTimeout on that peer's outbound stream.
func (n *Node) requestElection(peerID uint8) (ElectOutcome, error) {
	peer, ok := n.peer(peerID)
	if !ok {
		return 0, fmt.Errorf("election: unknown peer %d", peerID)
	}

	peer.writeMu.Lock()
	defer peer.writeMu.Unlock()

	if peer.conn == nil {
		return 0, fmt.Errorf("election: connection missing for peer %d", peerID)
	}

	if err := message.Write(peer.conn, message.New(n.ID, message.Elect)); err != nil {
		return 0, err
	}

	if err := peer.conn.SetReadDeadline(time.Now().Add(AliveTimeout)); err != nil {
		return 0, err
	}
	defer peer.conn.SetReadDeadline(time.Time{})

	reply, err := message.Read(peer.reader)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return ResponseTimeOut, nil
		}
		return 0, err
	}
	if reply.Type != message.Alive {
		return 0, fmt.Errorf("election: expected Alive from peer %d, got %s", peerID, reply.Type)
	}
	return BullierAlive, nil
}
