package connect

import (
	"github.com/osa030/dicebox/internal/app/game"
	"github.com/osa030/dicebox/internal/app/notification"
)

const (
	// ServiceName is the fully-qualified name of the game service.
	ServiceName = "dicebox.v1.GameService"

	GetStatusProcedure  = "/" + ServiceName + "/GetStatus"
	RandomiseProcedure  = "/" + ServiceName + "/Randomise"
	TogglePlayProcedure = "/" + ServiceName + "/TogglePlay"
	PlayCellProcedure   = "/" + ServiceName + "/PlayCell"
	PlayPieceProcedure  = "/" + ServiceName + "/PlayPiece"
	SetGroupsProcedure  = "/" + ServiceName + "/SetGroups"
	SubscribeProcedure  = "/" + ServiceName + "/Subscribe"
)

// mutatingProcedures are guarded by the control token.
var mutatingProcedures = map[string]bool{
	RandomiseProcedure:  true,
	TogglePlayProcedure: true,
	PlayCellProcedure:   true,
	PlayPieceProcedure:  true,
	SetGroupsProcedure:  true,
}

type GetStatusRequest struct{}

type GetStatusResponse struct {
	Status *game.Status `json:"status"`
}

type RandomiseRequest struct{}

type RandomiseResponse struct {
	Selection []string `json:"selection"`
	PlayLabel string   `json:"play_label"`
}

type TogglePlayRequest struct{}

type TogglePlayResponse struct {
	PlayLabel string `json:"play_label"`
	State     string `json:"state"`
}

type PlayCellRequest struct {
	Cell string `json:"cell"`
}

type PlayCellResponse struct {
	Playing bool `json:"playing"`
}

type PlayPieceRequest struct {
	Label string `json:"label"`
}

type PlayPieceResponse struct {
	Playing bool `json:"playing"`
}

type SetGroupsRequest struct {
	Groups []string `json:"groups"`
}

type SetGroupsResponse struct {
	Enabled   []string `json:"enabled"`
	Selection []string `json:"selection"`
}

type SubscribeRequest struct{}

// Event is one message of the Subscribe stream. Status is only set on the
// initial state event.
type Event struct {
	notification.Notification
	Status *game.Status `json:"status,omitempty"`
}
