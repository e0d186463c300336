package mtlink

import "github.com/behrlich/mtlink/internal/interfaces"

// EventID, Event and ChunkInfo are re-exported from the internal
// interfaces package so callers of Link.New never need to import it
// directly.
type (
	EventID   = interfaces.EventID
	Event     = interfaces.Event
	ChunkInfo = interfaces.ChunkInfo
)

const (
	EventMasterCall       = interfaces.EventMasterCall
	EventMasterAnswered   = interfaces.EventMasterAnswered
	EventMasterChunkRx    = interfaces.EventMasterChunkRx
	EventMasterUpdated    = interfaces.EventMasterUpdated
	EventMasterIdle       = interfaces.EventMasterIdle
	EventMasterTimeout    = interfaces.EventMasterTimeout
	EventMasterAllocError = interfaces.EventMasterAllocError
	EventSlaveInited      = interfaces.EventSlaveInited
	EventSlaveDemanded    = interfaces.EventSlaveDemanded
	EventSlaveChunkRq     = interfaces.EventSlaveChunkRq
	EventSlaveReleased    = interfaces.EventSlaveReleased
	EventSlaveFinished    = interfaces.EventSlaveFinished
	EventSlaveTimeout     = interfaces.EventSlaveTimeout
	EventSlaveAllocError  = interfaces.EventSlaveAllocError
)
