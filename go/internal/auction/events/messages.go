package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/mcdev12/auctionhouse/go/internal/auction/catalog"
)

// MessageType is the "type" discriminator carried by every WebSocket frame.
type MessageType string

// Client -> server
const (
	TypeSelectTeam MessageType = "select-team"
	TypePlaceBid   MessageType = "placeBid"
	TypeTimerEnded MessageType = "timerEnded"
)

// Server -> client
const (
	TypeTeamDetails       MessageType = "teamDetails"
	TypeError             MessageType = "error"
	TypeTeamSelected      MessageType = "teamSelected"
	TypeWaitingForPlayers MessageType = "waitingForPlayers"
	TypeStartAuction      MessageType = "startAuction"
	TypeNewHighestBid     MessageType = "newHighestBid"
	TypeTimerUpdate       MessageType = "timerUpdate"
	TypePlayerSold        MessageType = "playerSold"
	TypePlayerUnsold      MessageType = "playerUnsold"
	TypeNewAuctionPlayer  MessageType = "newAuctionPlayer"
	TypeAuctionComplete   MessageType = "auctionComplete"
)

var (
	ErrMalformed   = errors.New("malformed message")
	ErrUnknownType = errors.New("unknown message type")
)

// Inbound is a decoded client command.
type Inbound interface{ isInbound() }

type SelectTeam struct {
	Team string
}

// PlaceBid carries the raw bid. Amount is NaN when the client sent something
// that is not a JSON number; bid validation rejects it.
type PlaceBid struct {
	Amount float64
}

// TimerEnded is a client-side countdown expiry. Round is optional and, when
// present, pins the signal to one item.
type TimerEnded struct {
	Round *uint64
}

func (SelectTeam) isInbound() {}
func (PlaceBid) isInbound()   {}
func (TimerEnded) isInbound() {}

type inboundFrame struct {
	Type      MessageType     `json:"type"`
	Team      string          `json:"team"`
	BidAmount json.RawMessage `json:"bidAmount"`
	Round     *uint64         `json:"round"`
}

// DecodeInbound validates a client frame and turns it into a command.
func DecodeInbound(data []byte) (Inbound, error) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch frame.Type {
	case TypeSelectTeam:
		return SelectTeam{Team: frame.Team}, nil
	case TypePlaceBid:
		return PlaceBid{Amount: parseAmount(frame.BidAmount)}, nil
	case TypeTimerEnded:
		return TimerEnded{Round: frame.Round}, nil
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, frame.Type)
	}
}

func parseAmount(raw json.RawMessage) float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return math.NaN()
	}
	var amount float64
	if err := json.Unmarshal(raw, &amount); err != nil {
		return math.NaN()
	}
	return amount
}

// Outbound is any frame the server sends.
type Outbound interface {
	MessageType() MessageType
}

// Player is an item as presented to clients.
type Player struct {
	Name      string `json:"name"`
	BasePrice int    `json:"basePrice"`
	Category  string `json:"category"`
}

// Purchase is one entry of a team's ledger.
type Purchase struct {
	Name  string `json:"name"`
	Price int    `json:"price"`
}

// PlayerFromLot converts a catalog lot into its wire form.
func PlayerFromLot(lot catalog.Lot) Player {
	return Player{Name: lot.Name, BasePrice: lot.BasePrice, Category: lot.Category}
}

type TeamDetails struct {
	Type             MessageType           `json:"type"`
	TeamBudgets      map[string]int        `json:"teamBudgets"`
	PurchasedPlayers map[string][]Purchase `json:"purchasedPlayers"`
}

type Error struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

type TeamSelected struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

type WaitingForPlayers struct {
	Type      MessageType `json:"type"`
	Remaining int         `json:"remaining"`
}

type StartAuction struct {
	Type        MessageType `json:"type"`
	AuctionData Player      `json:"auctionData"`
	Round       uint64      `json:"round"`
}

type NewHighestBid struct {
	Type      MessageType `json:"type"`
	BidAmount int         `json:"bidAmount"`
	Team      string      `json:"team"`
}

type TimerUpdate struct {
	Type     MessageType `json:"type"`
	TimeLeft int         `json:"timeLeft"`
}

type PlayerSold struct {
	Type             MessageType           `json:"type"`
	Player           Player                `json:"player"`
	Team             string                `json:"team"`
	BidAmount        int                   `json:"bidAmount"`
	PurchasedPlayers map[string][]Purchase `json:"purchasedPlayers"`
}

type PlayerUnsold struct {
	Type   MessageType `json:"type"`
	Player Player      `json:"player"`
}

type NewAuctionPlayer struct {
	Type   MessageType `json:"type"`
	Player Player      `json:"player"`
	Round  uint64      `json:"round"`
}

type AuctionComplete struct {
	Type MessageType `json:"type"`
}

func (TeamDetails) MessageType() MessageType       { return TypeTeamDetails }
func (Error) MessageType() MessageType             { return TypeError }
func (TeamSelected) MessageType() MessageType      { return TypeTeamSelected }
func (WaitingForPlayers) MessageType() MessageType { return TypeWaitingForPlayers }
func (StartAuction) MessageType() MessageType      { return TypeStartAuction }
func (NewHighestBid) MessageType() MessageType     { return TypeNewHighestBid }
func (TimerUpdate) MessageType() MessageType       { return TypeTimerUpdate }
func (PlayerSold) MessageType() MessageType        { return TypePlayerSold }
func (PlayerUnsold) MessageType() MessageType      { return TypePlayerUnsold }
func (NewAuctionPlayer) MessageType() MessageType  { return TypeNewAuctionPlayer }
func (AuctionComplete) MessageType() MessageType   { return TypeAuctionComplete }

func NewTeamDetails(budgets map[string]int, purchases map[string][]Purchase) TeamDetails {
	return TeamDetails{Type: TypeTeamDetails, TeamBudgets: budgets, PurchasedPlayers: purchases}
}

func NewError(message string) Error {
	return Error{Type: TypeError, Message: message}
}

func NewTeamSelected(team string) TeamSelected {
	return TeamSelected{Type: TypeTeamSelected, Message: fmt.Sprintf("Team %s selected.", team)}
}

func NewWaitingForPlayers(remaining int) WaitingForPlayers {
	return WaitingForPlayers{Type: TypeWaitingForPlayers, Remaining: remaining}
}

func NewStartAuction(player Player, round uint64) StartAuction {
	return StartAuction{Type: TypeStartAuction, AuctionData: player, Round: round}
}

func NewHighestBidMessage(amount int, team string) NewHighestBid {
	return NewHighestBid{Type: TypeNewHighestBid, BidAmount: amount, Team: team}
}

func NewTimerUpdate(timeLeft int) TimerUpdate {
	return TimerUpdate{Type: TypeTimerUpdate, TimeLeft: timeLeft}
}

func NewPlayerSold(player Player, team string, amount int, purchases map[string][]Purchase) PlayerSold {
	return PlayerSold{Type: TypePlayerSold, Player: player, Team: team, BidAmount: amount, PurchasedPlayers: purchases}
}

func NewPlayerUnsold(player Player) PlayerUnsold {
	return PlayerUnsold{Type: TypePlayerUnsold, Player: player}
}

func NewAuctionPlayerMessage(player Player, round uint64) NewAuctionPlayer {
	return NewAuctionPlayer{Type: TypeNewAuctionPlayer, Player: player, Round: round}
}

func NewAuctionComplete() AuctionComplete {
	return AuctionComplete{Type: TypeAuctionComplete}
}

// Encode marshals an outbound frame.
func Encode(msg Outbound) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s message: %w", msg.MessageType(), err)
	}
	return data, nil
}
