package event

import "fmt"

type EventKind int16

const (
	Connected             EventKind = iota + 1 // [SYSTEM] stream subscriber attached
	CustomMessageReceived                      // [BUSINESS]
	PreSync                                    // [SYNC] cancellable
	PostSync                                   // [SYNC]
	UserLoaded                                 // [USER]
	UserFirstLogin                             // [USER]
	PlayerDataSaved                            // [USER]
	UserUnload                                 // [USER] cancellable
)

func (k EventKind) String() string {
	switch k {
	case Connected:
		return "connected"
	case CustomMessageReceived:
		return "custom_message_received"
	case PreSync:
		return "pre_sync"
	case PostSync:
		return "post_sync"
	case UserLoaded:
		return "user_loaded"
	case UserFirstLogin:
		return "user_first_login"
	case PlayerDataSaved:
		return "player_data_saved"
	case UserUnload:
		return "user_unload"
	default:
		return fmt.Sprintf("EventKind(%d)", int16(k))
	}
}

type EventPriority int32

const (
	PriorityLow    EventPriority = 10
	PriorityNormal EventPriority = 20
	PriorityHigh   EventPriority = 30
)

// Eventer defines the contract for all notifications flowing through the
// dispatcher and the stream hub.
type Eventer interface {
	GetID() string
	GetKind() EventKind
	// GetChannel is the hub routing key. Empty for events that never reach stream clients.
	GetChannel() string
	GetPriority() EventPriority
	GetOccurredAt() int64
	GetPayload() any
	GetCached() any
	SetCached(any)
}
