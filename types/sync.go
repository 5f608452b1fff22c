package types

// SyncState is the stage of block synchronization.
type SyncState uint8

const (
	SyncIdle SyncState = iota
	SyncBlocks
	SyncWaiting
)

func (s SyncState) String() string {
	switch s {
	case SyncIdle:
		return "idle"
	case SyncBlocks:
		return "blocks"
	case SyncWaiting:
		return "waiting"
	default:
		return "unknown"
	}
}

// SyncStatus is the aggregate synchronization status.
type SyncStatus struct {
	State           SyncState
	ProtocolVersion uint
	StartBlock      uint64
	// HighestBlock is nil until a better block has been announced.
	HighestBlock *uint64
}
