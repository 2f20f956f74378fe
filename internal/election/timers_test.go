package election

import (
	"testing"
	"time"

	"github.com/charleszheng44/leader-elect/internal/message"
)

// TestCheckLeaderLivenessReElectsOnStaleHeartbeat mirrors end-to-end scenario
// 2 from the specification: a node whose believed leader has gone silent
// for longer than LeaderCheckInterval clears its state and runs a fresh
// election on the next tick.
func TestCheckLeaderLivenessReElectsOnStaleHeartbeat(t *testing.T) {
	deadLeader := newFakePeer(t, false) // higher id, never responds
	follower := newFakePeer(t, false)   // lower id, receives the Victory

	n, err := New(Config{
		ID: 2,
		Peers: map[uint8]string{
			3: deadLeader.addr(),
			1: follower.addr(),
		},
	}, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := n.DialPeers(); err != nil {
		t.Fatalf("DialPeers: %v", err)
	}

	stale := time.Now().Add(-2 * LeaderCheckInterval)
	believedLeader := uint8(3)
	n.mu.Lock()
	n.leader = &believedLeader
	n.lastLeaderHeartbeat = &stale
	n.mu.Unlock()

	if err := n.checkLeaderLiveness(); err != nil {
		t.Fatalf("checkLeaderLiveness: %v", err)
	}

	if m := deadLeader.expectMessage(t, 2*time.Second); m.Type != message.Elect || m.SenderID != 2 {
		t.Fatalf("dead leader got %v, want Elect from 2", m)
	}
	if m := follower.expectMessage(t, 2*time.Second); m.Type != message.Victory || m.SenderID != 2 {
		t.Fatalf("follower got %v, want Victory from 2", m)
	}
	if leader, ok := n.Leader(); !ok || leader != 2 {
		t.Fatalf("Leader() = (%d, %v), want (2, true)", leader, ok)
	}
}

// TestCheckLeaderLivenessSkipsWithoutHeartbeat exercises the bootstrap-grace
// branch: a node that has never seen a heartbeat must not open an election
// from this path (see SPEC_FULL.md's bootstrap-election resolution).
func TestCheckLeaderLivenessSkipsWithoutHeartbeat(t *testing.T) {
	n, err := New(Config{ID: 4}, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := n.checkLeaderLiveness(); err != nil {
		t.Fatalf("checkLeaderLiveness: %v", err)
	}
	if _, ok := n.Leader(); ok {
		t.Fatal("expected no leader to be set")
	}
}

// TestCheckLeaderLivenessToleratesFreshHeartbeat confirms a recent heartbeat
// suppresses re-election.
func TestCheckLeaderLivenessToleratesFreshHeartbeat(t *testing.T) {
	n, err := New(Config{ID: 4}, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	fresh := time.Now()
	leader := uint8(9)
	n.mu.Lock()
	n.leader = &leader
	n.lastLeaderHeartbeat = &fresh
	n.mu.Unlock()

	if err := n.checkLeaderLiveness(); err != nil {
		t.Fatalf("checkLeaderLiveness: %v", err)
	}
	if got, ok := n.Leader(); !ok || got != 9 {
		t.Fatalf("Leader() = (%d, %v), want (9, true) unchanged", got, ok)
	}
}
