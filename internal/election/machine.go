package election

import (
	"net"
	"time"

	"github.com/charleszheng44/leader-elect/internal/message"
)

// Result is the outcome of a full election attempt.
type Result int

const (
	Win Result = iota
	Fail
)

func (r Result) String() string {
	if r == Win {
		return "Win"
	}
	return "Fail"
}

// dispatch routes one inbound frame to the election state machine. conn is
// the connection the frame arrived on, needed only to reply to Elect.
func (n *Node) dispatch(msg message.Message, conn net.Conn) {
	switch msg.Type {
	case message.HeartBeat:
		n.onHeartBeat(msg.SenderID)
	case message.Elect:
		n.onElect(msg.SenderID, conn)
	case message.Victory:
		n.onVictory(msg.SenderID)
	case message.Alive:
		// An Alive reply to Elect is consumed synchronously by
		// requestElection on the outbound stream; one arriving here means
		// it was read on an inbound connection, which never happens in a
		// correct run.
		n.logger.Warnw("unexpected unsolicited Alive on inbound connection", "sender", msg.SenderID)
	}
}

// onHeartBeat trusts the sender as leader without validating its id is the
// highest live one: a misbehaving higher-id node later initiating an
// election corrects state naturally.
func (n *Node) onHeartBeat(sender uint8) {
	now := time.Now()
	n.mu.Lock()
	n.leader = &sender
	n.lastLeaderHeartbeat = &now
	n.mu.Unlock()
}

// onElect replies Alive on the same stream, then — only if sender has a
// lower id — initiates a new election of this node's own. Receipt of Elect
// proves sender believes the leader is lost; a higher-id node responds by
// both vetoing the sender and asserting itself.
func (n *Node) onElect(sender uint8, conn net.Conn) {
	if err := replyAlive(conn, n.ID); err != nil {
		n.logger.Errorw("failed to reply Alive to Elect", "sender", sender, "err", err)
		return
	}
	if sender < n.ID {
		go func() {
			if _, err := n.Elect(); err != nil {
				n.logger.Errorw("self-initiated election failed", "triggered_by", sender, "err", err)
			}
		}()
	}
}

// onVictory unconditionally accepts the announced leader: monotone with
// respect to last-write-wins, documented as an accepted weakness.
func (n *Node) onVictory(sender uint8) {
	now := time.Now()
	n.mu.Lock()
	n.leader = &sender
	n.lastLeaderHeartbeat = &now
	n.mu.Unlock()
}

// Elect initiates an election of this node's own, holding the write lock for
// the full duration so no interleaved election can run on this node at the
// same time.
func (n *Node) Elect() (Result, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.electLocked()
}

// electLocked implements §4.4: probe strictly-higher peers in ascending id
// order; any Alive reply aborts with Fail; a transport error to a peer is
// treated like a timeout for that peer. If every higher peer times out,
// this node wins, becomes leader, and broadcasts Victory to strictly-lower
// peers. Callers must hold n.mu.
func (n *Node) electLocked() (Result, error) {
	for _, peerID := range n.higherPeerIDsLocked() {
		outcome, err := n.requestElection(peerID)
		if err != nil {
			n.logger.Warnw("elect: treating peer error as timeout", "peer_id", peerID, "err", err)
			continue
		}
		if outcome == BullierAlive {
			n.logger.Infow("elect: aborting, higher peer alive", "peer_id", peerID)
			return Fail, nil
		}
	}

	self := n.ID
	n.leader = &self
	n.logger.Infow("elect: won election", "node_id", n.ID)

	if err := n.broadcastVictoryLocked(); err != nil {
		return Win, err
	}
	return Win, nil
}

// broadcastVictoryLocked announces this node's leadership to every peer
// with a strictly lower id. Callers must hold n.mu.
func (n *Node) broadcastVictoryLocked() error {
	for _, peerID := range n.lowerPeerIDsLocked() {
		if err := n.send(peerID, message.Victory); err != nil {
			return err
		}
	}
	return nil
}
