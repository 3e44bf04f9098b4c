// Package chatchannel allocates the chat-system channels that back forums
// and private chats. Only the handle is modelled here; rendering and message
// delivery belong to the chat system.
package chatchannel

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/nrednav/cuid2"

	id "rankgate/pkg/domain"
	dErrors "rankgate/pkg/domain-errors"
)

type Kind string

const (
	KindForum   Kind = "forum"
	KindPrivate Kind = "pm"
)

func (k Kind) IsValid() bool {
	return k == KindForum || k == KindPrivate
}

// Handle identifies an allocated channel.
type Handle struct {
	ChannelID string
	Kind      Kind
	Title     string
}

// Provider allocates channels.
type Provider interface {
	NewChannel(ctx context.Context, kind Kind, ownerID id.MemberID, nickname string) (Handle, error)
}

const idLength = 16

// Local mints channel ids locally with cuid2; the ids are collision
// resistant enough to back the unique channel constraints directly.
type Local struct {
	mu       sync.Mutex
	generate func() string
}

func NewLocal() (*Local, error) {
	generate, err := cuid2.Init(cuid2.WithLength(idLength))
	if err != nil {
		return nil, fmt.Errorf("init channel id generator: %w", err)
	}
	return &Local{generate: generate}, nil
}

func (p *Local) NewChannel(ctx context.Context, kind Kind, ownerID id.MemberID, nickname string) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return Handle{}, err
	}
	if !kind.IsValid() {
		return Handle{}, dErrors.New(dErrors.CodeInvalidArgument, "unknown channel kind: "+string(kind))
	}
	if ownerID.IsNil() {
		return Handle{}, dErrors.New(dErrors.CodeInvalidArgument, "channel owner is required")
	}
	title := strings.TrimSpace(nickname)
	if title == "" {
		title = string(kind)
	}
	p.mu.Lock()
	suffix := p.generate()
	p.mu.Unlock()
	return Handle{
		ChannelID: string(kind) + "_" + suffix,
		Kind:      kind,
		Title:     title,
	}, nil
}
