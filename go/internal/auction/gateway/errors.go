package gateway

import (
	"errors"

	"github.com/mcdev12/auctionhouse/go/internal/auction/events"
	"github.com/mcdev12/auctionhouse/go/internal/auction/session"
)

// errorMessage maps a rejected request to the text shown to the bidder.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, events.ErrMalformed):
		return "Invalid message format."
	case errors.Is(err, events.ErrUnknownType):
		return "Unknown message type."
	case errors.Is(err, session.ErrTeamTaken):
		return "Team already taken. Choose another team."
	case errors.Is(err, session.ErrUnknownTeam):
		return "Unknown team. Choose another team."
	case errors.Is(err, session.ErrTeamAlreadyChosen):
		return "You have already selected a team."
	case errors.Is(err, session.ErrInvalidBid):
		return "Invalid bid."
	case errors.Is(err, session.ErrCapacity), errors.Is(err, session.ErrSessionFull):
		return "Auction is full. Please try again later."
	case errors.Is(err, session.ErrUnknownSeat):
		return "This auction has ended. Reconnect to join a new one."
	default:
		return "Something went wrong."
	}
}
