package election

import (
	"context"
	"fmt"
	"time"

	"github.com/charleszheng44/leader-elect/internal/message"
)

// Bootstrap runs the node's first election once the dial-all-peers phase
// has completed. The source algorithm only re-triggers an election from the
// leader-check loop when last_leader_heartbeat was previously set, which
// means a freshly started node would otherwise never elect on its own; this
// explicit bootstrap step is the resolution chosen for that open question.
func (n *Node) Bootstrap() error {
	result, err := n.Elect()
	if err != nil {
		return fmt.Errorf("bootstrap election: %w", err)
	}
	n.logger.Infow("bootstrap election complete", "result", result.String())
	return nil
}

// HeartbeatLoop sends HeartBeat to every lower-id peer every
// HeartbeatInterval while this node is leader. Peers with a higher id are
// presumed down — the leader is necessarily the highest-id live node, so
// they are never sent to directly; a rejoining higher-id peer instead
// takes over through its own Bootstrap election. An outbound send error here is fatal
// to the loop, per the propagation policy for heartbeat/victory sends.
func (n *Node) HeartbeatLoop(ctx context.Context) error {
	ticker := time.NewTicker(HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := n.emitHeartbeats(); err != nil {
				return err
			}
		}
	}
}

func (n *Node) emitHeartbeats() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.leader == nil || *n.leader != n.ID {
		return nil
	}
	for _, peerID := range n.lowerPeerIDsLocked() {
		if err := n.send(peerID, message.HeartBeat); err != nil {
			return fmt.Errorf("heartbeat loop: %w", err)
		}
	}
	return nil
}

// LeaderCheckLoop declares the leader lost when no heartbeat has been seen
// for more than LeaderCheckInterval and runs a fresh election. A node whose
// last_leader_heartbeat is still unset (bootstrap grace, or a leader that won
// its election from this loop, which clears it) takes no action on this
// tick. A node that won through Elect keeps any earlier heartbeat time, so
// once that goes stale this loop runs one more election.
func (n *Node) LeaderCheckLoop(ctx context.Context) error {
	ticker := time.NewTicker(LeaderCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := n.checkLeaderLiveness(); err != nil {
				return err
			}
		}
	}
}

func (n *Node) checkLeaderLiveness() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.lastLeaderHeartbeat == nil {
		return nil
	}
	if time.Since(*n.lastLeaderHeartbeat) <= LeaderCheckInterval {
		return nil
	}

	n.logger.Warnw("leader heartbeat stale, opening election", "staleness", time.Since(*n.lastLeaderHeartbeat))
	n.leader = nil
	n.lastLeaderHeartbeat = nil

	result, err := n.electLocked()
	if err != nil {
		return fmt.Errorf("leader-check loop: %w", err)
	}
	n.logger.Infow("leader-check election complete", "result", result.String())
	return nil
}
