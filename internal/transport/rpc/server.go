// Package rpc exposes the messaging operations over JSON-RPC for internal callers.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"

	"github.com/xiaot623/gogo/marketplace/internal/domain"
	"github.com/xiaot623/gogo/marketplace/internal/service"
)

// ServiceName is the JSON-RPC receiver name, e.g. "Marketplace.SendMessage".
const ServiceName = "Marketplace"

// Server accepts JSON-RPC connections.
type Server struct {
	listener  net.Listener
	rpcServer *rpc.Server
	done      chan struct{}
}

// NewServer creates a new RPC server bound to the marketplace service.
func NewServer(svc *service.Service) (*Server, error) {
	rpcServer := rpc.NewServer()
	handler := &Handler{service: svc}
	if err := rpcServer.RegisterName(ServiceName, handler); err != nil {
		return nil, fmt.Errorf("register rpc handler: %w", err)
	}

	return &Server{
		rpcServer: rpcServer,
		done:      make(chan struct{}),
	}, nil
}

// Start listens on addr and serves until Shutdown.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections from ln until it is closed.
func (s *Server) Serve(ln net.Listener) error {
	s.listener = ln

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				close(s.done)
				return nil
			}
			slog.Warn("rpc accept error", "error", err)
			continue
		}

		go s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(conn))
	}
}

// Shutdown stops accepting new RPC connections.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.listener == nil {
		return nil
	}

	if err := s.listener.Close(); err != nil {
		return err
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handler implements the marketplace RPC methods. Every call names the
// viewer explicitly since there are no gateway headers on this path.
type Handler struct {
	service *service.Service
}

// ViewerArgs identifies the acting account.
type ViewerArgs struct {
	Role domain.Role `json:"role"`
	ID   int64       `json:"id"`
}

// resolve rejects malformed or unknown viewers the same way the HTTP gateway path does.
func (h *Handler) resolve(ctx context.Context, args ViewerArgs) (domain.Viewer, error) {
	viewer := domain.Viewer{Role: args.Role, ID: args.ID}
	if viewer.ID <= 0 || !viewer.Role.Valid() {
		return viewer, fmt.Errorf("%w: viewer identity required", domain.ErrUnauthorized)
	}
	exists, err := h.service.ViewerExists(ctx, viewer)
	if err != nil {
		return viewer, err
	}
	if !exists {
		return viewer, fmt.Errorf("%w: unknown viewer", domain.ErrUnauthorized)
	}
	return viewer, nil
}

// StartConversationArgs opens a conversation with a freelancer.
type StartConversationArgs struct {
	Viewer       ViewerArgs `json:"viewer"`
	FreelancerID int64      `json:"freelancer_id"`
}

// StartConversationResponse carries the resolved conversation id.
type StartConversationResponse struct {
	ConversationID int64 `json:"conversation_id"`
}

// ConversationArgs addresses one conversation.
type ConversationArgs struct {
	Viewer         ViewerArgs `json:"viewer"`
	ConversationID int64      `json:"conversation_id"`
}

// SendMessageArgs appends a message from the viewer.
type SendMessageArgs struct {
	Viewer         ViewerArgs `json:"viewer"`
	ConversationID int64      `json:"conversation_id"`
	ReceiverID     string     `json:"receiver_id"`
	Text           string     `json:"text"`
}

// ListConversationsResponse wraps the viewer's conversation list.
type ListConversationsResponse struct {
	Conversations []domain.ConversationSummary `json:"conversations"`
}

// StartConversation opens or reuses the client's conversation with a freelancer.
func (h *Handler) StartConversation(req *StartConversationArgs, resp *StartConversationResponse) error {
	if req == nil {
		return errors.New("start request is required")
	}

	ctx := context.Background()
	viewer, err := h.resolve(ctx, req.Viewer)
	if err != nil {
		return err
	}
	id, err := h.service.StartOrGetConversation(ctx, viewer, req.FreelancerID)
	if err != nil {
		return err
	}
	if resp != nil {
		resp.ConversationID = id
	}
	return nil
}

// SendMessage appends a message to a conversation.
func (h *Handler) SendMessage(req *SendMessageArgs, resp *domain.AppendedMessage) error {
	if req == nil {
		return errors.New("send request is required")
	}

	ctx := context.Background()
	viewer, err := h.resolve(ctx, req.Viewer)
	if err != nil {
		return err
	}
	msg, err := h.service.AppendMessage(ctx, viewer, req.ConversationID, req.ReceiverID, req.Text)
	if err != nil {
		return err
	}
	if resp != nil && msg != nil {
		*resp = *msg
	}
	return nil
}

// AutoReply appends the canned server reply.
func (h *Handler) AutoReply(req *ConversationArgs, resp *domain.AppendedMessage) error {
	if req == nil {
		return errors.New("auto reply request is required")
	}

	ctx := context.Background()
	viewer, err := h.resolve(ctx, req.Viewer)
	if err != nil {
		return err
	}
	msg, err := h.service.AutoReply(ctx, viewer, req.ConversationID)
	if err != nil {
		return err
	}
	if resp != nil && msg != nil {
		*resp = *msg
	}
	return nil
}

// ListConversations lists every conversation as seen by the viewer.
func (h *Handler) ListConversations(req *ViewerArgs, resp *ListConversationsResponse) error {
	if req == nil {
		return errors.New("viewer is required")
	}

	ctx := context.Background()
	viewer, err := h.resolve(ctx, *req)
	if err != nil {
		return err
	}
	conversations, err := h.service.ListConversations(ctx, viewer)
	if err != nil {
		return err
	}
	if resp != nil {
		resp.Conversations = conversations
	}
	return nil
}

// GetConversation returns one conversation with its transcript.
func (h *Handler) GetConversation(req *ConversationArgs, resp *domain.ConversationDetail) error {
	if req == nil {
		return errors.New("conversation request is required")
	}

	ctx := context.Background()
	viewer, err := h.resolve(ctx, req.Viewer)
	if err != nil {
		return err
	}
	detail, err := h.service.GetConversation(ctx, viewer, req.ConversationID)
	if err != nil {
		return err
	}
	if resp != nil && detail != nil {
		*resp = *detail
	}
	return nil
}
