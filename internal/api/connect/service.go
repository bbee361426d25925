// Package connect provides the Connect RPC game service, its client and
// the control-token interceptor.
package connect

import (
	"context"
	"net/http"
	"sync"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/dicebox/internal/app/game"
	"github.com/osa030/dicebox/internal/app/notification"
	"github.com/osa030/dicebox/internal/app/playback"
)

// GameService implements the GameService RPC.
type GameService struct {
	game *game.Manager
}

// NewGameService creates a new GameService.
func NewGameService(game *game.Manager) *GameService {
	return &GameService{game: game}
}

// NewHandler builds an HTTP handler serving every GameService procedure.
// It returns the path prefix to mount the handler on.
func NewHandler(svc *GameService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSONCodec()}, opts...)

	mux := http.NewServeMux()
	mux.Handle(GetStatusProcedure, connect.NewUnaryHandler(GetStatusProcedure, svc.GetStatus, opts...))
	mux.Handle(RandomiseProcedure, connect.NewUnaryHandler(RandomiseProcedure, svc.Randomise, opts...))
	mux.Handle(TogglePlayProcedure, connect.NewUnaryHandler(TogglePlayProcedure, svc.TogglePlay, opts...))
	mux.Handle(PlayCellProcedure, connect.NewUnaryHandler(PlayCellProcedure, svc.PlayCell, opts...))
	mux.Handle(PlayPieceProcedure, connect.NewUnaryHandler(PlayPieceProcedure, svc.PlayPiece, opts...))
	mux.Handle(SetGroupsProcedure, connect.NewUnaryHandler(SetGroupsProcedure, svc.SetGroups, opts...))
	mux.Handle(SubscribeProcedure, connect.NewServerStreamHandler(SubscribeProcedure, svc.Subscribe, opts...))
	return "/" + ServiceName + "/", mux
}

// GetStatus returns the current view model.
func (s *GameService) GetStatus(
	ctx context.Context,
	req *connect.Request[GetStatusRequest],
) (*connect.Response[GetStatusResponse], error) {
	return connect.NewResponse(&GetStatusResponse{Status: s.game.Status()}), nil
}

// Randomise draws a new selection.
func (s *GameService) Randomise(
	ctx context.Context,
	req *connect.Request[RandomiseRequest],
) (*connect.Response[RandomiseResponse], error) {
	if err := s.game.Randomise(ctx); err != nil {
		return nil, toConnectError(err)
	}

	st := s.game.Status()
	return connect.NewResponse(&RandomiseResponse{
		Selection: st.Selection,
		PlayLabel: st.PlayLabel,
	}), nil
}

// TogglePlay starts or stops the sequence.
func (s *GameService) TogglePlay(
	ctx context.Context,
	req *connect.Request[TogglePlayRequest],
) (*connect.Response[TogglePlayResponse], error) {
	label, err := s.game.TogglePlay(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&TogglePlayResponse{
		PlayLabel: label,
		State:     s.game.Status().State,
	}), nil
}

// PlayCell toggles the preview of one grid cell.
func (s *GameService) PlayCell(
	ctx context.Context,
	req *connect.Request[PlayCellRequest],
) (*connect.Response[PlayCellResponse], error) {
	playing, err := s.game.PlayCell(ctx, req.Msg.Cell)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&PlayCellResponse{Playing: playing}), nil
}

// PlayPiece toggles a full pre-recorded piece.
func (s *GameService) PlayPiece(
	ctx context.Context,
	req *connect.Request[PlayPieceRequest],
) (*connect.Response[PlayPieceResponse], error) {
	playing, err := s.game.PlayPiece(ctx, req.Msg.Label)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&PlayPieceResponse{Playing: playing}), nil
}

// SetGroups replaces the enabled groups.
func (s *GameService) SetGroups(
	ctx context.Context,
	req *connect.Request[SetGroupsRequest],
) (*connect.Response[SetGroupsResponse], error) {
	if err := s.game.SetEnabledGroups(ctx, req.Msg.Groups); err != nil {
		return nil, toConnectError(err)
	}

	st := s.game.Status()
	return connect.NewResponse(&SetGroupsResponse{
		Enabled:   st.Enabled,
		Selection: st.Selection,
	}), nil
}

// Subscribe streams the initial state followed by every view notification
// until the client goes away or the game is closed.
func (s *GameService) Subscribe(
	ctx context.Context,
	req *connect.Request[SubscribeRequest],
	stream *connect.ServerStream[Event],
) error {
	notifManager := s.game.GetNotificationManager()

	initial := &Event{
		Notification: notification.Notification{
			Type:       notification.TypeInitialState,
			SequenceNo: notifManager.NextSequenceNo(),
		},
		Status: s.game.Status(),
	}

	adapter := &eventStreamAdapter{stream: stream}
	if err := adapter.send(initial); err != nil {
		return err
	}

	subscriptionID := notifManager.Subscribe(adapter)
	zlog.Debug().Msgf("connect: subscribed: id=%s", subscriptionID)

	select {
	case <-ctx.Done():
	case <-s.game.Done():
	}

	notifManager.Unsubscribe(subscriptionID)
	zlog.Debug().Msgf("connect: unsubscribed: id=%s", subscriptionID)

	return nil
}

// eventStreamAdapter adapts connect.ServerStream to notification.Stream.
// Broadcasts run concurrently, so sends are serialised here.
type eventStreamAdapter struct {
	mu     sync.Mutex
	stream *connect.ServerStream[Event]
}

func (a *eventStreamAdapter) Send(n *notification.Notification) error {
	return a.send(&Event{Notification: *n})
}

func (a *eventStreamAdapter) send(ev *Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stream.Send(ev)
}

// toConnectError maps game errors to Connect status codes.
func toConnectError(err error) error {
	code := connect.CodeInternal
	switch {
	case errors.Is(err, game.ErrUnknownCell),
		errors.Is(err, game.ErrUnknownPiece),
		errors.Is(err, game.ErrUnknownGroup):
		code = connect.CodeInvalidArgument
	case errors.Is(err, game.ErrPlayDisabled),
		errors.Is(err, game.ErrRandomiseDisabled),
		errors.Is(err, playback.ErrQueueEmpty):
		code = connect.CodeFailedPrecondition
	case errors.Is(err, playback.ErrClosed):
		code = connect.CodeUnavailable
	}
	return connect.NewError(code, err)
}
