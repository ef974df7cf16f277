package core

import (
	"errors"
	"sync"
	"sync/atomic"

	"picolab/protocol"
)

// CommandHandler decodes its own arguments from the frame payload and
// sends its own success reply; the dispatcher turns a returned error
// into an error reply.
type CommandHandler func(data *[]byte) error

// Command is one entry of the host-facing command surface. IDs are
// fixed wire values shared with the host client.
type Command struct {
	ID      uint16
	Name    string
	Handler CommandHandler
}

// CommandRegistry holds all registered commands.
type CommandRegistry struct {
	mu       sync.RWMutex
	commands map[uint16]*Command
}

var globalRegistry = NewCommandRegistry()

// NewCommandRegistry creates an empty command registry.
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{commands: make(map[uint16]*Command)}
}

// RegisterCommand registers a handler under a fixed command ID.
func RegisterCommand(id uint16, name string, handler CommandHandler) {
	globalRegistry.Register(id, name, handler)
}

// Register adds a command to the registry. A duplicate ID is a
// programming error.
func (r *CommandRegistry) Register(id uint16, name string, handler CommandHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.commands[id]; exists {
		panic("duplicate command ID: " + itoa(int(id)))
	}
	r.commands[id] = &Command{ID: id, Name: name, Handler: handler}
}

// GetCommand retrieves a command by ID.
func (r *CommandRegistry) GetCommand(id uint16) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[id]
	return cmd, ok
}

// Count returns the number of registered commands.
func (r *CommandRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// DispatchCommand routes a decoded frame to its handler. Every command
// produces exactly one reply frame: either the handler's success reply
// or an error reply carrying the mapped response code. Dispatch errors
// never propagate to the transport, so a bad command cannot desync the
// link.
func DispatchCommand(cmdID uint16, data *[]byte) error {
	cmd, ok := globalRegistry.GetCommand(cmdID)
	if !ok {
		SendReply(cmdID, protocol.RspUnknownCommand, nil)
		return nil
	}
	if err := cmd.Handler(data); err != nil {
		SendReply(cmdID, responseCode(err), nil)
	}
	return nil
}

// responseCode maps the instrument error taxonomy to wire response
// codes. Argument decode failures count as argument errors.
func responseCode(err error) uint8 {
	switch {
	case err == nil:
		return protocol.RspSuccess
	case errors.Is(err, ErrBusy):
		return protocol.RspBusy
	case errors.Is(err, ErrInvalidArgument),
		errors.Is(err, protocol.ErrInvalidVLQ),
		errors.Is(err, protocol.ErrBufferTooSmall):
		return protocol.RspArgumentError
	default:
		return protocol.RspFailed
	}
}

// SendReply sends a reply frame: the echoed command ID, a response
// code, then any reply fields.
func SendReply(cmdID uint16, code uint8, fields func(output protocol.OutputBuffer)) {
	if globalTransport == nil {
		return
	}
	globalTransport.SendCommand(cmdID, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(code))
		if fields != nil {
			fields(output)
		}
	})
}

// Global transport for sending replies (set by main).
var globalTransport *protocol.Transport

// SetGlobalTransport sets the global transport for sending replies.
func SetGlobalTransport(transport *protocol.Transport) {
	globalTransport = transport
}

// Global reset handler (set by target-specific code).
var globalResetHandler func()

// resetPending is set when a reset command is received. The actual
// reset happens in the main loop after the ACK and reply are flushed.
var resetPending uint32 // atomic bool

// SetResetHandler sets the platform-specific reset handler.
func SetResetHandler(handler func()) {
	globalResetHandler = handler
}

// ProcessPendingReset performs a deferred reset. Called from the main
// loop between frames.
func ProcessPendingReset() {
	if atomic.LoadUint32(&resetPending) == 0 {
		return
	}
	atomic.StoreUint32(&resetPending, 0)
	Logic.Stop()
	Scope.Stop()
	if globalResetHandler != nil {
		globalResetHandler()
	}
}
