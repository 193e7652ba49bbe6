package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	readWait  = 5 * time.Minute
)

// WriteTyped sends a strongly-typed response payload over the WebSocket.
func WriteTyped(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// WriteError sends a typed ErrorResponse over the WebSocket.
func WriteError(conn *websocket.Conn, code, errMsg string) error {
	return WriteTyped(conn, ErrorResponse{
		Event: EventError,
		Code:  code,
		Error: errMsg,
	})
}

// ReadMessage reads one raw message. It sets a read deadline.
func ReadMessage(conn *websocket.Conn) ([]byte, error) {
	conn.SetReadDeadline(time.Now().Add(readWait))
	_, data, err := conn.ReadMessage()
	return data, err
}

// Writer owns the write side of a connection. gorilla/websocket allows one
// concurrent writer, so timer ticks, hook callbacks and replies all go
// through Send and are written by Run.
type Writer struct {
	conn *websocket.Conn
	out  chan interface{}
	done chan struct{}
	once sync.Once
}

// NewWriter creates a Writer with a buffer of pending messages.
func NewWriter(conn *websocket.Conn, buffer int) *Writer {
	return &Writer{
		conn: conn,
		out:  make(chan interface{}, buffer),
		done: make(chan struct{}),
	}
}

// Run writes queued messages until Close or a write error.
func (w *Writer) Run() {
	for {
		select {
		case <-w.done:
			return
		case v := <-w.out:
			if err := WriteTyped(w.conn, v); err != nil {
				w.Close()
				return
			}
		}
	}
}

// Send queues v. It reports false once the writer is closed.
func (w *Writer) Send(v interface{}) bool {
	select {
	case <-w.done:
		return false
	default:
	}
	select {
	case w.out <- v:
		return true
	case <-w.done:
		return false
	}
}

// Close stops the writer. Pending messages are dropped.
func (w *Writer) Close() {
	w.once.Do(func() { close(w.done) })
}

// Done is closed when the writer stops.
func (w *Writer) Done() <-chan struct{} {
	return w.done
}
