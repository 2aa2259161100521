package session

import "errors"

var (
	ErrUnknownSeat       = errors.New("seat is not part of this session")
	ErrUnknownTeam       = errors.New("unknown team")
	ErrTeamTaken         = errors.New("team already taken")
	ErrTeamAlreadyChosen = errors.New("seat already selected a team")
	ErrInvalidBid        = errors.New("invalid bid")
	ErrSessionFull       = errors.New("session is full")
	ErrCapacity          = errors.New("no auction session has a free seat")
)
