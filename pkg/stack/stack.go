package stack

import (
	"context"
	"errors"
)

// ErrStopped is returned by WaitEvent when the stack has been shut down.
var ErrStopped = errors.New("stack stopped")

// EventSource delivers stack events to the dispatcher.
type EventSource interface {
	// WaitEvent blocks until the next event is available or ctx is done.
	WaitEvent(ctx context.Context) (Event, error)

	// Filter offers ev to the mesh library for internal bookkeeping.
	// It returns false when the event was fully consumed and must not
	// be dispatched further.
	Filter(ev Event) bool
}

// Commands is the command surface the core issues to the stack.
// Every call returns immediately; completion arrives as a later Event.
type Commands interface {
	GetBDAddr() (BDAddr, Result)
	WriteAttribute(char Characteristic, offset uint16, value []byte) Result
	SendUserWriteResponse(conn Handle, char Characteristic, status Result) Result

	NodeInit() Result
	StartUnprovBeaconing(bearers Bearer) Result
	GenericClientInit() Result
	SceneClientInit(elemIndex uint16) Result
	MeshLibInit(maxModels int) Result

	LPNInit() Result
	LPNConfig(key LPNConfigKey, value uint32) Result
	LPNEstablishFriendship(timeout uint32) Result
	LPNTerminateFriendship() Result
	LPNDeinit() Result

	CloseConnection(conn Handle) Result
	SetSoftTimer(ticks Ticks, id TimerID, singleShot bool) Result
	EraseAllSettings() Result
	SystemReset(mode ResetMode)
}

// Stack is the full collaborator surface.
type Stack interface {
	EventSource
	Commands
}
