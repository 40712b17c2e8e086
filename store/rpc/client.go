package rpc

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-sif/segments"
	"github.com/go-sif/segments/codec"
	errors "github.com/go-sif/segments/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const defaultTimeout = 5 * time.Second

// ClientOptions configures a Client
type ClientOptions struct {
	Timeout        time.Duration // timeout for each RPC. Defaults to 5s.
	MaxMessageSize int           // the largest value, in bytes, which may be sent or received. Defaults to 64MiB.
}

func ensureDefaultClientOptionsValues(opts *ClientOptions) *ClientOptions {
	if opts == nil {
		opts = &ClientOptions{}
	}
	res := *opts
	if res.Timeout <= 0 {
		res.Timeout = defaultTimeout
	}
	if res.MaxMessageSize <= 0 {
		res.MaxMessageSize = defaultMaxMessageSize
	}
	return &res
}

// Client is a segments.Store backed by a remote Server. Values are copied
// on every Put and Get, so they must be registered with codec. After Close,
// every operation fails with a StoreClosedError.
type Client struct {
	conn   grpc.ClientConnInterface
	owned  *grpc.ClientConn
	opts   *ClientOptions
	closed atomic.Bool
}

// Dial creates a Client for the Server at addr. The connection is established lazily.
func Dial(addr string, opts *ClientOptions, dialOpts ...grpc.DialOption) (*Client, error) {
	opts = ensureDefaultClientOptionsValues(opts)
	dialOpts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(opts.MaxMessageSize),
			grpc.MaxCallSendMsgSize(opts.MaxMessageSize),
		),
	}, dialOpts...)
	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("fail to dial: %w", err)
	}
	c := NewClient(conn, opts)
	c.owned = conn
	return c, nil
}

// NewClient creates a Client over an existing connection
func NewClient(conn grpc.ClientConnInterface, opts *ClientOptions) *Client {
	return &Client{conn: conn, opts: ensureDefaultClientOptionsValues(opts)}
}

// Close marks the Client closed, and closes the connection if it was created by Dial.
// Closing twice is a no-op.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	if c.owned != nil {
		return c.owned.Close()
	}
	return nil
}

func (c *Client) invoke(ctx context.Context, method string, in interface{}, out interface{}) error {
	if c.closed.Load() {
		return errors.StoreClosedError{}
	}
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()
	return c.conn.Invoke(ctx, method, in, out)
}

// Put stores a value under a Key
func (c *Client) Put(ctx context.Context, key segments.Key, value interface{}) error {
	data, err := codec.Marshal(&entry{Key: string(key), Value: value})
	if err != nil {
		return err
	}
	return fromStatus(key, c.invoke(ctx, putMethod, wrapperspb.Bytes(data), new(emptypb.Empty)))
}

// Get retrieves the value stored under a Key, or a MissingKeyError
func (c *Client) Get(ctx context.Context, key segments.Key) (interface{}, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.invoke(ctx, getMethod, wrapperspb.String(string(key)), out); err != nil {
		return nil, fromStatus(key, err)
	}
	return codec.Unmarshal(out.GetValue())
}

// Remove deletes the value stored under a Key, if any
func (c *Client) Remove(ctx context.Context, key segments.Key) error {
	return fromStatus(key, c.invoke(ctx, removeMethod, wrapperspb.String(string(key)), new(emptypb.Empty)))
}

// Keys lists the Keys in the remote Store, skipping hidden Keys unless includeHidden is true
func (c *Client) Keys(ctx context.Context, includeHidden bool) ([]segments.Key, error) {
	out := new(structpb.ListValue)
	if err := c.invoke(ctx, keysMethod, wrapperspb.Bool(includeHidden), out); err != nil {
		return nil, fromStatus("", err)
	}
	keys := make([]segments.Key, len(out.GetValues()))
	for i, v := range out.GetValues() {
		keys[i] = segments.Key(v.GetStringValue())
	}
	return keys, nil
}

// fromStatus converts a gRPC status back into a Store error
func fromStatus(key segments.Key, err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.NotFound:
		return errors.MissingKeyError{Key: string(key)}
	case codes.Canceled:
		return fmt.Errorf("%s: %w", st.Message(), context.Canceled)
	case codes.DeadlineExceeded:
		return fmt.Errorf("%s: %w", st.Message(), context.DeadlineExceeded)
	default:
		return err
	}
}
