// Package election implements the per-node Bully leader-election state
// machine: the peer connection registry, the node's shared state, the
// election state machine, and the timer loops that drive it.
package election

import (
	"bufio"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/charleszheng44/leader-elect/internal/message"
)

// Node is the local process participating in the election. leader and
// lastLeaderHeartbeat are guarded by mu; at most one writer mutates them at
// a time, any number of readers may observe them.
type Node struct {
	ID               uint8
	AdvertiseAddress string

	peers   map[uint8]*Peer
	peerIDs []uint8 // sorted ascending, excludes ID

	mu                  sync.RWMutex
	leader              *uint8
	lastLeaderHeartbeat *time.Time

	logger *zap.SugaredLogger
}

// Config describes the static roster a Node is built from.
type Config struct {
	ID               uint8
	AdvertiseAddress string
	Peers            map[uint8]string // peer id -> "ipv4:port"
}

// New builds a Node from a validated Config. It does not dial or listen.
func New(cfg Config, logger *zap.SugaredLogger) (*Node, error) {
	if _, ok := cfg.Peers[cfg.ID]; ok {
		return nil, fmt.Errorf("election: id %d must not appear in its own peer roster", cfg.ID)
	}

	peers := make(map[uint8]*Peer, len(cfg.Peers))
	ids := make([]uint8, 0, len(cfg.Peers))
	for id, addr := range cfg.Peers {
		peers[id] = &Peer{ID: id, Address: addr}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return &Node{
		ID:               cfg.ID,
		AdvertiseAddress: cfg.AdvertiseAddress,
		peers:            peers,
		peerIDs:          ids,
		logger:           logger,
	}, nil
}

// DialPeers opens an outbound stream to every peer, in ascending id order,
// with bounded retry. Any unrecoverable dial error is fatal to startup.
func (n *Node) DialPeers() error {
	for _, id := range n.peerIDs {
		peer := n.peers[id]
		if err := peer.dial(); err != nil {
			return err
		}
		n.logger.Infow("peer connected", "peer_id", id, "address", peer.Address)
	}
	return nil
}

// Listen binds the advertise address for inbound peer connections.
func (n *Node) Listen() (net.Listener, error) {
	return net.Listen("tcp", n.AdvertiseAddress)
}

// AcceptLoop accepts inbound connections and spawns a handler for each.
// Returns only on a fatal accept error, per the listener failure semantics.
func (n *Node) AcceptLoop(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return fmt.Errorf("election: accept failed: %w", err)
		}
		n.logger.Infow("accepted inbound connection", "remote", conn.RemoteAddr())
		go n.handleInbound(conn)
	}
}

// handleInbound repeatedly reads framed messages from an accepted
// connection and dispatches them to the election state machine. Any
// decode or I/O error is fatal to this connection alone.
func (n *Node) handleInbound(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	for {
		msg, err := message.Read(r)
		if err != nil {
			n.logger.Warnw("inbound connection terminated", "remote", conn.RemoteAddr(), "err", err)
			return
		}
		n.dispatch(msg, conn)
	}
}

// peer looks up a roster entry. The peers map is built once at New and
// never mutated afterward, so this requires no additional locking.
func (n *Node) peer(id uint8) (*Peer, bool) {
	p, ok := n.peers[id]
	return p, ok
}

// higherPeerIDsLocked returns peer ids strictly greater than n.ID, ascending.
// Callers must hold n.mu.
func (n *Node) higherPeerIDsLocked() []uint8 {
	var out []uint8
	for _, id := range n.peerIDs {
		if id > n.ID {
			out = append(out, id)
		}
	}
	return out
}

// lowerPeerIDsLocked returns peer ids strictly less than n.ID, ascending.
// Callers must hold n.mu.
func (n *Node) lowerPeerIDsLocked() []uint8 {
	var out []uint8
	for _, id := range n.peerIDs {
		if id < n.ID {
			out = append(out, id)
		}
	}
	return out
}

// Leader returns the currently believed leader id, if any.
func (n *Node) Leader() (uint8, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.leader == nil {
		return 0, false
	}
	return *n.leader, true
}
