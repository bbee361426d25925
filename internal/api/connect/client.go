package connect

import (
	"context"
	"strings"

	"connectrpc.com/connect"
)

// Client is a GameService client.
type Client struct {
	token string

	getStatus  *connect.Client[GetStatusRequest, GetStatusResponse]
	randomise  *connect.Client[RandomiseRequest, RandomiseResponse]
	togglePlay *connect.Client[TogglePlayRequest, TogglePlayResponse]
	playCell   *connect.Client[PlayCellRequest, PlayCellResponse]
	playPiece  *connect.Client[PlayPieceRequest, PlayPieceResponse]
	setGroups  *connect.Client[SetGroupsRequest, SetGroupsResponse]
	subscribe  *connect.Client[SubscribeRequest, Event]
}

// NewClient creates a client for the server at baseURL. A non-empty token
// is sent with every call.
func NewClient(httpClient connect.HTTPClient, baseURL, token string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{WithJSONCodec()}, opts...)

	return &Client{
		token:      token,
		getStatus:  connect.NewClient[GetStatusRequest, GetStatusResponse](httpClient, baseURL+GetStatusProcedure, opts...),
		randomise:  connect.NewClient[RandomiseRequest, RandomiseResponse](httpClient, baseURL+RandomiseProcedure, opts...),
		togglePlay: connect.NewClient[TogglePlayRequest, TogglePlayResponse](httpClient, baseURL+TogglePlayProcedure, opts...),
		playCell:   connect.NewClient[PlayCellRequest, PlayCellResponse](httpClient, baseURL+PlayCellProcedure, opts...),
		playPiece:  connect.NewClient[PlayPieceRequest, PlayPieceResponse](httpClient, baseURL+PlayPieceProcedure, opts...),
		setGroups:  connect.NewClient[SetGroupsRequest, SetGroupsResponse](httpClient, baseURL+SetGroupsProcedure, opts...),
		subscribe:  connect.NewClient[SubscribeRequest, Event](httpClient, baseURL+SubscribeProcedure, opts...),
	}
}

func newRequest[T any](token string, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	if token != "" {
		req.Header().Set(ControlTokenHeader, token)
	}
	return req
}

// GetStatus calls GameService.GetStatus.
func (c *Client) GetStatus(ctx context.Context) (*GetStatusResponse, error) {
	res, err := c.getStatus.CallUnary(ctx, newRequest(c.token, &GetStatusRequest{}))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

// Randomise calls GameService.Randomise.
func (c *Client) Randomise(ctx context.Context) (*RandomiseResponse, error) {
	res, err := c.randomise.CallUnary(ctx, newRequest(c.token, &RandomiseRequest{}))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

// TogglePlay calls GameService.TogglePlay.
func (c *Client) TogglePlay(ctx context.Context) (*TogglePlayResponse, error) {
	res, err := c.togglePlay.CallUnary(ctx, newRequest(c.token, &TogglePlayRequest{}))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

// PlayCell calls GameService.PlayCell.
func (c *Client) PlayCell(ctx context.Context, cell string) (*PlayCellResponse, error) {
	res, err := c.playCell.CallUnary(ctx, newRequest(c.token, &PlayCellRequest{Cell: cell}))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

// PlayPiece calls GameService.PlayPiece.
func (c *Client) PlayPiece(ctx context.Context, label string) (*PlayPieceResponse, error) {
	res, err := c.playPiece.CallUnary(ctx, newRequest(c.token, &PlayPieceRequest{Label: label}))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

// SetGroups calls GameService.SetGroups.
func (c *Client) SetGroups(ctx context.Context, groups []string) (*SetGroupsResponse, error) {
	res, err := c.setGroups.CallUnary(ctx, newRequest(c.token, &SetGroupsRequest{Groups: groups}))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

// Subscribe opens the event stream. The caller must Close it.
func (c *Client) Subscribe(ctx context.Context) (*connect.ServerStreamForClient[Event], error) {
	return c.subscribe.CallServerStream(ctx, newRequest(c.token, &SubscribeRequest{}))
}
