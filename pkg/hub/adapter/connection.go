package adapter

import "sync"

// State is the lifecycle state of an adapter's link to its backend.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateError        State = "error"
)

// Connection tracks one adapter's serving surface: lifecycle state, the
// resolved network address (present only when connected), and the last error.
// The owning adapter mutates it exclusively.
type Connection struct {
	mu        sync.Mutex
	state     State
	address   string
	lastError string
}

// NewConnection returns a Connection in the Disconnected state.
func NewConnection() *Connection {
	return &Connection{state: StateDisconnected}
}

// State returns the current lifecycle state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Address returns the resolved address, or "" unless connected.
func (c *Connection) Address() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnected {
		return ""
	}
	return c.address
}

// LastError returns the most recent error message, if any.
func (c *Connection) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

func (c *Connection) setConnecting() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateConnecting
	c.address = ""
	c.lastError = ""
}

func (c *Connection) setConnected(address string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateConnected
	c.address = address
	c.lastError = ""
}

func (c *Connection) setError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateError
	c.address = ""
	if err != nil {
		c.lastError = err.Error()
	}
}

func (c *Connection) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateDisconnected
	c.address = ""
	c.lastError = ""
}
