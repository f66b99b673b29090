package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/papercomputeco/lmnode/pkg/llm"
	"github.com/papercomputeco/lmnode/pkg/transport"
)

const readLimit = 64 << 20

// conn is an authenticated websocket connection to one LM Studio namespace.
type conn struct {
	ws     *websocket.Conn
	nextID int
}

// wsURL converts an http(s) base URL to ws(s) and appends the namespace.
func wsURL(baseURL, namespace string) string {
	u := baseURL + namespace

	if strings.HasPrefix(u, "https://") {
		return "wss://" + u[len("https://"):]
	}

	if strings.HasPrefix(u, "http://") {
		return "ws://" + u[len("http://"):]
	}

	return u
}

// dial connects to namespace and performs the authentication handshake.
func dial(ctx context.Context, baseURL, namespace string, auth authPacket) (*conn, error) {
	ws, resp, err := websocket.Dial(ctx, wsURL(baseURL, namespace), nil)
	if err != nil {
		if resp != nil {
			// The server answered but refused the upgrade.
			return nil, fmt.Errorf("%w: dial %s: status %d: %w", transport.ErrProtocol, namespace, resp.StatusCode, err)
		}
		return nil, transport.Classify(fmt.Errorf("dial %s: %w", namespace, err))
	}
	ws.SetReadLimit(readLimit)

	c := &conn{ws: ws}
	if err := c.authenticate(ctx, auth); err != nil {
		c.close()
		return nil, err
	}
	return c, nil
}

func (c *conn) authenticate(ctx context.Context, auth authPacket) error {
	if err := c.write(ctx, auth); err != nil {
		return err
	}

	var res authResult
	if err := c.read(ctx, &res); err != nil {
		return err
	}
	if !res.Success {
		msg := "authentication rejected"
		if res.Error != nil {
			msg = res.Error.Error()
		}
		return fmt.Errorf("%w: %s", transport.ErrProtocol, msg)
	}
	return nil
}

func (c *conn) close() {
	_ = c.ws.Close(websocket.StatusNormalClosure, "")
}

func (c *conn) write(ctx context.Context, v any) error {
	if err := wsjson.Write(ctx, c.ws, v); err != nil {
		return c.ioError(ctx, "write", err)
	}
	return nil
}

func (c *conn) read(ctx context.Context, v any) error {
	if err := wsjson.Read(ctx, c.ws, v); err != nil {
		return c.ioError(ctx, "read", err)
	}
	return nil
}

func (c *conn) ioError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return transport.Classify(fmt.Errorf("%s: %w", op, ctxErr))
	}
	if websocket.CloseStatus(err) != -1 {
		return fmt.Errorf("%w: %s: %w", transport.ErrConnection, op, err)
	}
	return transport.Classify(fmt.Errorf("%s: %w", op, err))
}

// call performs a single RPC and decodes its result into result.
func (c *conn) call(ctx context.Context, endpoint string, param, result any) error {
	c.nextID++
	id := c.nextID

	if err := c.write(ctx, rpcCall{
		Type:      typeRPCCall,
		Endpoint:  endpoint,
		CallID:    id,
		Parameter: param,
	}); err != nil {
		return err
	}

	for {
		var p packet
		if err := c.read(ctx, &p); err != nil {
			return err
		}
		if p.CallID != id {
			continue
		}

		switch p.Type {
		case typeRPCResult:
			if err := json.Unmarshal(p.Result, result); err != nil {
				return fmt.Errorf("%w: decode %s result: %w", transport.ErrProtocol, endpoint, err)
			}
			return nil
		case typeRPCError:
			return serverFailure(endpoint, p.Error)
		}
	}
}

// prediction is the outcome of a predict channel.
type prediction struct {
	text      string
	fragments int
	stats     *predictionStats
	modelInfo map[string]any
}

// predict opens a predict channel and collects fragments until it succeeds.
func (c *conn) predict(ctx context.Context, param predictParameter, onFragment func(llm.Fragment)) (*prediction, error) {
	c.nextID++
	id := c.nextID

	if err := c.write(ctx, channelCreate{
		Type:              typeChannelCreate,
		Endpoint:          "predict",
		ChannelID:         id,
		CreationParameter: param,
	}); err != nil {
		return nil, err
	}

	var (
		text strings.Builder
		res  prediction
	)
	for {
		var p packet
		if err := c.read(ctx, &p); err != nil {
			return nil, err
		}
		if p.ChannelID != id {
			continue
		}

		switch p.Type {
		case typeChannelError:
			return nil, serverFailure("predict", p.Error)
		case typeChannelClose:
			return nil, fmt.Errorf("%w: predict channel closed before completion", transport.ErrProtocol)
		case typeChannelSend:
		default:
			continue
		}

		var msg channelMessage
		if err := json.Unmarshal(p.Message, &msg); err != nil {
			return nil, fmt.Errorf("%w: decode channel message: %w", transport.ErrProtocol, err)
		}

		switch msg.Type {
		case msgFragment:
			if msg.Fragment == nil {
				continue
			}
			text.WriteString(msg.Fragment.Content)
			res.fragments++
			if onFragment != nil {
				onFragment(*msg.Fragment)
			}
		case msgSuccess:
			res.text = text.String()
			res.stats = msg.Stats
			res.modelInfo = msg.ModelInfo
			return &res, nil
		}
	}
}

// serverFailure converts an error reported by the server into a transport error.
func serverFailure(endpoint string, e *serverError) error {
	if e == nil {
		return fmt.Errorf("%s failed without details", endpoint)
	}
	if transport.LooksLikeModelNotFound(e.Title) || transport.LooksLikeModelNotFound(e.RootTitle) {
		return fmt.Errorf("%w: %s", transport.ErrModelNotFound, e.Error())
	}
	return fmt.Errorf("%s failed: %w", endpoint, e)
}
