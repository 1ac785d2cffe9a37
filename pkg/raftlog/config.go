package raftlog

import (
	"time"

	"github.com/hashicorp/raft"

	"github.com/journalkeeper-go/journal/internal/logx"
)

// NewRaftConfig returns a raft.Config for localID with the same timeout
// tuning the embedding cluster layer used against the in-memory stores,
// pointed at the shared leveled logger instead of raft's default stderr
// writer.
func NewRaftConfig(localID string) *raft.Config {
	cfg := raft.DefaultConfig()
	cfg.LocalID = raft.ServerID(localID)
	cfg.HeartbeatTimeout = 1 * time.Second
	cfg.ElectionTimeout = 1 * time.Second
	cfg.CommitTimeout = 50 * time.Millisecond
	cfg.Logger = logx.NewHCLogAdapter("raft")
	return cfg
}
