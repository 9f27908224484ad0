// Package whatsapp wraps the whatsmeow client behind a small transport
// interface: QR pairing, connection lifecycle, inbound text delivery, and
// outbound sends with typing presence.
package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	qrterminal "github.com/mdp/qrterminal/v3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"

	_ "modernc.org/sqlite"

	"github.com/edgard/zapbot/internal/config"
	"github.com/edgard/zapbot/internal/logger"
)

// Connection states, in the order a healthy session moves through them.
type State string

const (
	StateLoading       State = "loading"
	StateQR            State = "qr"
	StateAuthenticated State = "authenticated"
	StateReady         State = "ready"
	StateDisconnected  State = "disconnected"
)

// Typed transport errors.
var (
	ErrNotConnected = errors.New("whatsapp: not connected")
	ErrEmptyMessage = errors.New("whatsapp: refusing to send an empty message")
	ErrInvalidJID   = errors.New("whatsapp: invalid recipient")
)

// Message is an inbound direct text message after filtering.
type Message struct {
	Sender     string
	SenderName string
	Body       string
	Timestamp  time.Time
}

// Handlers receives transport events. Any field may be nil.
type Handlers struct {
	OnMessage func(Message)
	OnQR      func(code string)
	OnState   func(State)
}

// Client manages one WhatsApp session.
type Client struct {
	cfg      config.WhatsAppConfig
	log      *slog.Logger
	handlers Handlers

	wa        *whatsmeow.Client
	container *sqlstore.Container

	mu          sync.Mutex
	state       State
	reconnected bool
}

// NewClient opens the session store at sessionPath and prepares a client
// for the stored device, creating one on first run.
func NewClient(ctx context.Context, cfg config.WhatsAppConfig, sessionPath string, handlers Handlers, log *slog.Logger) (*Client, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)", sessionPath)
	container, err := sqlstore.New(ctx, "sqlite", dsn, logger.Wa(log, "wa/store"))
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		_ = container.Close()
		return nil, fmt.Errorf("failed to load device: %w", err)
	}

	c := &Client{
		cfg:       cfg,
		log:       log.With("component", "whatsapp"),
		handlers:  handlers,
		wa:        whatsmeow.NewClient(device, logger.Wa(log, "wa/client")),
		container: container,
		state:     StateLoading,
	}
	c.wa.AddEventHandler(c.handleEvent)
	return c, nil
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	c.mu.Unlock()

	if changed {
		c.log.Info("Connection state changed", "state", string(s))
		if c.handlers.OnState != nil {
			c.handlers.OnState(s)
		}
	}
}

// Run connects the session and blocks until ctx is cancelled. When the
// device is not yet paired, the QR codes are printed to stdout and handed
// to the OnQR handler until the user links the device.
func (c *Client) Run(ctx context.Context) error {
	c.setState(StateLoading)

	if c.wa.Store.ID == nil {
		qrChan, err := c.wa.GetQRChannel(ctx)
		if err != nil {
			return fmt.Errorf("failed to get QR channel: %w", err)
		}
		go c.consumeQR(ctx, qrChan)
	}

	if err := c.wa.Connect(); err != nil {
		c.setState(StateDisconnected)
		return fmt.Errorf("failed to connect: %w", err)
	}

	<-ctx.Done()
	c.wa.Disconnect()
	if err := c.container.Close(); err != nil {
		c.log.Warn("Failed to close session store", "error", err)
	}
	c.setState(StateDisconnected)
	return ctx.Err()
}

func (c *Client) consumeQR(ctx context.Context, qrChan <-chan whatsmeow.QRChannelItem) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-qrChan:
			if !ok {
				return
			}
			switch evt.Event {
			case whatsmeow.QRChannelEventCode:
				c.setState(StateQR)
				c.log.Info("Scan the QR code below to link this device")
				qrterminal.GenerateHalfBlock(evt.Code, qrterminal.L, os.Stdout)
				if c.handlers.OnQR != nil {
					c.handlers.OnQR(evt.Code)
				}
			default:
				if evt.Error != nil {
					c.log.Warn("QR pairing event", "event", evt.Event, "error", evt.Error)
				} else {
					c.log.Info("QR pairing event", "event", evt.Event)
				}
			}
		}
	}
}

func (c *Client) handleEvent(evt any) {
	switch e := evt.(type) {
	case *events.PairSuccess:
		c.setState(StateAuthenticated)
	case *events.Connected:
		c.mu.Lock()
		c.reconnected = false
		c.mu.Unlock()
		c.setState(StateReady)
	case *events.Disconnected:
		c.setState(StateDisconnected)
		c.maybeReconnect()
	case *events.LoggedOut:
		c.log.Warn("Device logged out, a new QR pairing is required", "reason", e.Reason)
		c.setState(StateDisconnected)
	case *events.Message:
		c.handleMessage(e)
	}
}

// maybeReconnect retries the connection once per disconnect after a short
// delay. whatsmeow handles transient socket drops itself; this covers the
// cases where it gives up.
func (c *Client) maybeReconnect() {
	if !c.cfg.AutoReconnect {
		return
	}

	c.mu.Lock()
	if c.reconnected {
		c.mu.Unlock()
		return
	}
	c.reconnected = true
	c.mu.Unlock()

	go func() {
		time.Sleep(c.cfg.ReconnectDelay)
		if c.wa.IsConnected() {
			return
		}
		c.log.Info("Attempting reconnect", "delay", c.cfg.ReconnectDelay)
		if err := c.wa.Connect(); err != nil {
			c.log.Error("Reconnect failed", "error", err)
		}
	}()
}

// handleMessage filters inbound events down to direct text messages from
// other users and forwards them. Own messages, status broadcasts, group
// chats, and non-text payloads are dropped.
func (c *Client) handleMessage(evt *events.Message) {
	if evt == nil || evt.Message == nil || evt.Info.IsFromMe {
		return
	}
	if evt.Info.Chat.Server == types.BroadcastServer || evt.Info.Chat.Server == types.GroupServer {
		return
	}

	body := strings.TrimSpace(evt.Message.GetConversation())
	if body == "" && evt.Message.GetExtendedTextMessage() != nil {
		body = strings.TrimSpace(evt.Message.GetExtendedTextMessage().GetText())
	}
	if body == "" {
		return
	}

	sender := evt.Info.Sender.ToNonAD().String()
	c.log.Debug("Inbound message", "sender", sender, "length", len(body))

	if c.handlers.OnMessage != nil {
		c.handlers.OnMessage(Message{
			Sender:     sender,
			SenderName: evt.Info.PushName,
			Body:       body,
			Timestamp:  evt.Info.Timestamp,
		})
	}
}

// Send delivers a text message to the recipient identified by senderKey.
func (c *Client) Send(ctx context.Context, senderKey, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	if !c.wa.IsConnected() {
		return ErrNotConnected
	}

	jid, err := ParseJID(senderKey)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.SendTimeout)
	defer cancel()

	if _, err := c.wa.SendMessage(ctx, jid, &waE2E.Message{Conversation: proto.String(text)}); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// SetTyping toggles the composing presence indicator for the recipient.
// Presence is cosmetic, so failures are logged and swallowed.
func (c *Client) SetTyping(ctx context.Context, senderKey string, typing bool) {
	if !c.wa.IsConnected() {
		return
	}
	jid, err := ParseJID(senderKey)
	if err != nil {
		return
	}

	state := types.ChatPresenceComposing
	if !typing {
		state = types.ChatPresencePaused
	}
	if err := c.wa.SendChatPresence(ctx, jid, state, types.ChatPresenceMediaText); err != nil {
		c.log.Debug("Failed to send chat presence", "error", err)
	}
}

// ParseJID resolves a sender key or bare phone number to a user JID.
func ParseJID(raw string) (types.JID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return types.EmptyJID, ErrInvalidJID
	}

	if strings.Contains(raw, "@") {
		jid, err := types.ParseJID(raw)
		if err != nil {
			return types.EmptyJID, fmt.Errorf("%w: %v", ErrInvalidJID, err)
		}
		return jid, nil
	}

	user := strings.TrimPrefix(raw, "+")
	for _, r := range user {
		if r < '0' || r > '9' {
			return types.EmptyJID, fmt.Errorf("%w: %q", ErrInvalidJID, raw)
		}
	}
	return types.NewJID(user, types.DefaultUserServer), nil
}
