package handler

import (
	"rankgate/internal/chat/models"
	id "rankgate/pkg/domain"
)

// OpenRequest is the body of POST /chats.
type OpenRequest struct {
	PeerID string `json:"peer_id"`
	Type   string `json:"type"`

	parsedPeerID id.MemberID
	parsedType   models.SessionType
}

func (r *OpenRequest) Validate() error {
	peerID, err := id.ParseMemberID(r.PeerID)
	if err != nil {
		return err
	}
	sessionType, err := models.ParseSessionType(r.Type)
	if err != nil {
		return err
	}
	r.parsedPeerID = peerID
	r.parsedType = sessionType
	return nil
}

func (r *OpenRequest) ParsedPeerID() id.MemberID {
	return r.parsedPeerID
}

func (r *OpenRequest) ParsedType() models.SessionType {
	return r.parsedType
}
