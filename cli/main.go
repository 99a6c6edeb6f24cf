// Package main provides a terminal chat client for the marketplace messaging API.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/xiaot623/gogo/marketplace/internal/adapter/events"
	"github.com/xiaot623/gogo/marketplace/internal/domain"
	v1 "github.com/xiaot623/gogo/marketplace/internal/transport/http/v1"
)

// Client talks to the marketplace API as a single viewer.
type Client struct {
	baseURL string
	viewer  domain.Viewer
	http    *http.Client
	conn    *websocket.Conn
	out     io.Writer
	done    chan struct{}
}

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL string, viewer domain.Viewer) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		viewer:  viewer,
		http:    &http.Client{Timeout: 10 * time.Second},
		out:     os.Stdout,
		done:    make(chan struct{}),
	}
}

func (c *Client) header() http.Header {
	h := http.Header{}
	h.Set(v1.HeaderViewerID, c.viewer.Key())
	h.Set(v1.HeaderViewerRole, string(c.viewer.Role))
	return h
}

// Connect opens the live event feed.
func (c *Client) Connect() error {
	u, err := url.Parse(c.baseURL + "/v1/ws")
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), c.header())
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	c.conn = conn
	return nil
}

// Close closes the live feed.
func (c *Client) Close() error {
	close(c.done)
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) call(method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header = c.header()
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (status %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(data))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

// Start opens or reuses the conversation with a freelancer.
func (c *Client) Start(freelancerID string) (int64, error) {
	var resp struct {
		ConversationID int64 `json:"conversation_id"`
	}
	if err := c.call(http.MethodPost, "/v1/conversations/start/"+url.PathEscape(freelancerID), nil, &resp); err != nil {
		return 0, err
	}
	return resp.ConversationID, nil
}

// Send appends a message to a conversation.
func (c *Client) Send(conversationID int64, receiverID, text string) error {
	body := map[string]string{"receiver_id": receiverID, "text": text}
	return c.call(http.MethodPost, fmt.Sprintf("/v1/conversations/%d/messages", conversationID), body, nil)
}

// AutoReply asks the server for its canned reply.
func (c *Client) AutoReply(conversationID int64) error {
	return c.call(http.MethodPost, fmt.Sprintf("/v1/conversations/%d/auto_reply", conversationID), nil, nil)
}

// List prints the viewer's conversations.
func (c *Client) List() error {
	var resp struct {
		Conversations []domain.ConversationSummary `json:"conversations"`
	}
	if err := c.call(http.MethodGet, "/v1/conversations", nil, &resp); err != nil {
		return err
	}
	if len(resp.Conversations) == 0 {
		fmt.Fprintln(c.out, "No conversations yet.")
		return nil
	}
	for _, conv := range resp.Conversations {
		fmt.Fprintf(c.out, "  #%d %-24s %s  %s\n", conv.ID, conv.Name, conv.Timestamp, conv.LastMessage)
	}
	return nil
}

// History prints one conversation transcript.
func (c *Client) History(conversationID int64) error {
	var detail domain.ConversationDetail
	if err := c.call(http.MethodGet, fmt.Sprintf("/v1/conversations/%d", conversationID), nil, &detail); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "--- %s (#%d) ---\n", detail.Name, detail.ID)
	for _, m := range detail.Messages {
		who := m.Sender
		if m.IsOwn {
			who = "you"
		}
		fmt.Fprintf(c.out, "  [%s] %s: %s\n", m.Timestamp, who, m.Text)
	}
	return nil
}

// ReadMessages prints events from the live feed.
func (c *Client) ReadMessages() {
	for {
		select {
		case <-c.done:
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					log.Printf("Read error: %v", err)
				}
				return
			}

			var event domain.MessageEvent
			if err := json.Unmarshal(data, &event); err != nil {
				log.Printf("Unmarshal error: %v", err)
				continue
			}
			printEvent(c.viewer, event)
		}
	}
}

func printEvent(viewer domain.Viewer, event domain.MessageEvent) {
	m := event.Message
	who := m.Sender
	if m.Sender == viewer.Key() {
		who = "you"
	}
	fmt.Printf("\n[#%d %s] %s: %s\n> ", m.ConversationID, m.Timestamp, who, m.Text)
}

// tailEvents prints every message event published on NATS until interrupted.
func tailEvents(natsURL, token string, viewer domain.Viewer) {
	publisher, err := events.NewPublisher(natsURL, token, nil)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer publisher.Close()

	sub, err := publisher.Subscribe(func(event domain.MessageEvent) {
		printEvent(viewer, event)
	})
	if err != nil {
		log.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	fmt.Printf("Tailing %s on %s (Ctrl+C to stop)\n", events.SubjectMessageCreated, natsURL)
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	<-interrupt
}

func main() {
	addr := flag.String("addr", "http://localhost:8080", "Marketplace API address")
	id := flag.String("id", "", "Viewer account id")
	role := flag.String("role", string(domain.RoleClient), "Viewer role (client or freelancer)")
	conv := flag.Int64("conv", 0, "Conversation id to chat in")
	to := flag.String("to", "", "Receiver id; for clients without -conv this also starts a conversation with that freelancer")
	natsURL := flag.String("nats", "", "Tail message events from this NATS server instead of chatting")
	natsToken := flag.String("nats-token", "", "NATS auth token")
	flag.Parse()

	log.SetFlags(log.Ltime)

	viewer := domain.Viewer{Role: domain.Role(*role)}
	if *id != "" {
		if _, err := fmt.Sscan(*id, &viewer.ID); err != nil {
			log.Fatalf("Invalid -id %q: %v", *id, err)
		}
	}

	if *natsURL != "" {
		tailEvents(*natsURL, *natsToken, viewer)
		return
	}

	if viewer.ID == 0 || !viewer.Role.Valid() {
		log.Fatalf("-id and a valid -role are required")
	}

	client := NewClient(*addr, viewer)
	fmt.Printf("Connecting to %s as %s %s...\n", *addr, viewer.Role, viewer.Key())
	if err := client.Connect(); err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer client.Close()

	conversationID := *conv
	if conversationID == 0 && *to != "" && viewer.Role == domain.RoleClient {
		started, err := client.Start(*to)
		if err != nil {
			log.Fatalf("Start failed: %v", err)
		}
		conversationID = started
	}

	if conversationID != 0 {
		if err := client.History(conversationID); err != nil {
			log.Printf("History error: %v", err)
		}
	}

	fmt.Println("\nType a message and press Enter to send.")
	fmt.Println("Commands: /list, /open <id>, /reply, /quit")

	go client.ReadMessages()

	// Handle Ctrl+C
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	sess := &session{client: client, conversationID: conversationID, to: *to}
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		fmt.Print("> ")
		select {
		case <-interrupt:
			fmt.Println("\nInterrupted")
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			quit, err := sess.handle(line)
			if err != nil {
				log.Printf("%v", err)
			}
			if quit {
				fmt.Println("Bye!")
				return
			}
		}
	}
}

// session tracks the open conversation of an interactive run.
type session struct {
	client         *Client
	conversationID int64
	to             string
}

// handle runs one input line and reports whether the user asked to quit.
func (s *session) handle(line string) (bool, error) {
	input := strings.TrimSpace(line)
	switch {
	case input == "":
		return false, nil
	case input == "/quit":
		return true, nil
	case input == "/list":
		if err := s.client.List(); err != nil {
			return false, fmt.Errorf("list: %w", err)
		}
	case strings.HasPrefix(input, "/open "):
		next, err := strconv.ParseInt(strings.TrimSpace(strings.TrimPrefix(input, "/open ")), 10, 64)
		if err != nil || next <= 0 {
			return false, fmt.Errorf("invalid conversation id %q", strings.TrimPrefix(input, "/open "))
		}
		s.conversationID = next
		if err := s.client.History(next); err != nil {
			return false, fmt.Errorf("history: %w", err)
		}
	case input == "/reply":
		if s.conversationID == 0 {
			return false, errors.New("no conversation open; use /open <id>")
		}
		if err := s.client.AutoReply(s.conversationID); err != nil {
			return false, fmt.Errorf("auto reply: %w", err)
		}
	default:
		if s.conversationID == 0 || s.to == "" {
			return false, errors.New("need an open conversation and a -to receiver to send")
		}
		if err := s.client.Send(s.conversationID, s.to, input); err != nil {
			return false, fmt.Errorf("send: %w", err)
		}
	}
	return false, nil
}
