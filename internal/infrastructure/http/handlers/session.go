package handlers

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/newmanyatta/manyatta/internal/domain/gallery"
	"github.com/newmanyatta/manyatta/internal/ports/inbound"
)

// Client message types
const (
	MessageKey         = "key"
	MessageTouchStart  = "touch_start"
	MessageTouchMove   = "touch_move"
	MessageTouchEnd    = "touch_end"
	MessageTouchCancel = "touch_cancel"
	MessageNext        = "next"
	MessagePrevious    = "previous"
	MessageAutoplay    = "autoplay"
	MessageClose       = "close"
)

// ClientMessage is one input event from the viewer
type ClientMessage struct {
	Type string  `json:"type"`
	Key  string  `json:"key,omitempty"`
	X    float64 `json:"x,omitempty"`
}

// ScrollLockMessage tells the page to lock or release body scrolling
type ScrollLockMessage struct {
	Type   string `json:"type"`
	Locked bool   `json:"locked"`
}

// SuppressScrollMessage asks the page to stop native scrolling for the
// rest of the current gesture
type SuppressScrollMessage struct {
	Type string `json:"type"`
}

// ErrorMessage reports a message the session could not handle
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// session pumps one slideshow over one websocket. Writes happen only on
// the write pump; everything else enqueues.
type session struct {
	conn    *websocket.Conn
	options SessionOptions
	logger  *zap.Logger

	send      chan interface{}
	done      chan struct{}
	closeOnce sync.Once
	written   sync.WaitGroup

	// touched only by the read pump
	suppressing bool
}

func newSession(conn *websocket.Conn, options SessionOptions, logger *zap.Logger) *session {
	return &session{
		conn:    conn,
		options: options,
		logger:  logger,
		send:    make(chan interface{}, options.SendBuffer),
		done:    make(chan struct{}),
	}
}

// serve runs until the client leaves or closes the slideshow
func (s *session) serve(show inbound.Slideshow, images []gallery.Image, title string) {
	s.written.Add(1)
	go s.writePump()

	unsubscribe := show.Subscribe(func(u inbound.SlideshowUpdate) {
		s.enqueue(u)
	})

	if err := show.Open(images, title); err != nil {
		s.enqueue(ErrorMessage{Type: "error", Message: err.Error()})
	} else {
		s.readPump(show)
		show.Close()
	}

	unsubscribe()
	s.shutdown()
	s.written.Wait()
}

func (s *session) scrollLockChanged(locked bool) {
	s.enqueue(ScrollLockMessage{Type: "scroll_lock", Locked: locked})
}

// enqueue never blocks; a client that cannot keep up is disconnected
func (s *session) enqueue(msg interface{}) {
	select {
	case <-s.done:
		return
	default:
	}

	select {
	case s.send <- msg:
	default:
		s.logger.Warn("Slideshow client too slow, disconnecting")
		s.shutdown()
	}
}

func (s *session) shutdown() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *session) readPump(show inbound.Slideshow) {
	s.conn.SetReadLimit(4096)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.options.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.options.PongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("Slideshow socket closed", zap.Error(err))
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.enqueue(ErrorMessage{Type: "error", Message: "malformed message"})
			continue
		}

		if !s.dispatch(show, msg) {
			return
		}

		select {
		case <-s.done:
			return
		default:
		}
	}
}

// dispatch applies one client message and reports whether the session
// continues
func (s *session) dispatch(show inbound.Slideshow, msg ClientMessage) bool {
	switch msg.Type {
	case MessageKey:
		show.HandleKey(msg.Key)
		return show.IsOpen()
	case MessageTouchStart:
		s.suppressing = false
		show.TouchStart(msg.X)
	case MessageTouchMove:
		if show.TouchMove(msg.X) && !s.suppressing {
			s.suppressing = true
			s.enqueue(SuppressScrollMessage{Type: "suppress_scroll"})
		}
	case MessageTouchEnd:
		show.TouchEnd(msg.X)
	case MessageTouchCancel:
		show.TouchCancel()
	case MessageNext:
		show.Next()
	case MessagePrevious:
		show.Previous()
	case MessageAutoplay:
		show.ToggleAutoplay()
	case MessageClose:
		show.Close()
		return false
	default:
		s.enqueue(ErrorMessage{Type: "error", Message: "unknown message type " + msg.Type})
	}
	return true
}

func (s *session) writePump() {
	defer s.written.Done()
	ticker := time.NewTicker(s.options.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case msg := <-s.send:
			if err := s.write(msg); err != nil {
				s.shutdown()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.options.WriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.shutdown()
				return
			}
		case <-s.done:
			s.drain()
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.options.WriteWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// drain flushes whatever was queued before shutdown, e.g. the closed update
func (s *session) drain() {
	for {
		select {
		case msg := <-s.send:
			if err := s.write(msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (s *session) write(msg interface{}) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.options.WriteWait))
	return s.conn.WriteJSON(msg)
}
