package client

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legamerdc/liveremote/internal/errs"
	"github.com/legamerdc/liveremote/internal/ring"
	"github.com/legamerdc/liveremote/protocol"
)

// fakeServer 在管道另一端按指定分帧方式应答
func fakeServer(t *testing.T, nc net.Conn, framer protocol.Framer, reply func(protocol.Command) protocol.Response) {
	t.Helper()
	go func() {
		defer nc.Close()
		rx := ring.New(1024, 1<<20)
		buf := make([]byte, 512)
		for {
			n, err := nc.Read(buf)
			if err != nil {
				return
			}
			_, _ = rx.Write(buf[:n])
			for {
				msg, ok, err := framer.Next(rx)
				if err != nil || !ok {
					break
				}
				out, _ := framer.Encode(msg.Codec, reply(msg.Command))
				// 拆成两段写，验证客户端跨读取累积
				half := len(out) / 2
				if _, err := nc.Write(out[:half]); err != nil {
					return
				}
				if _, err := nc.Write(out[half:]); err != nil {
					return
				}
			}
		}
	}()
}

func echoType(cmd protocol.Command) protocol.Response {
	if cmd.Type == "fail" {
		return protocol.Failure("Unknown command: fail")
	}
	return protocol.Success(map[string]any{"type": cmd.Type})
}

func TestDoPrefixed(t *testing.T) {
	a, b := net.Pipe()
	fakeServer(t, b, protocol.NewPrefixFramer(protocol.PrefixOptions{}), echoType)
	c := New(a)
	defer c.Close()

	resp, err := c.Do(context.Background(), "get_session_info", nil)
	require.NoError(t, err)
	require.True(t, resp.OK())
	assert.Equal(t, "get_session_info", resp.Result.(map[string]any)["type"])

	_, err = c.Call(context.Background(), "fail", nil)
	var re *ResponseError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "fail", re.Type)
	assert.Equal(t, "Unknown command: fail", re.Error())
}

func TestDoCBOR(t *testing.T) {
	a, b := net.Pipe()
	fakeServer(t, b, protocol.NewPrefixFramer(protocol.PrefixOptions{}), echoType)
	c := New(a, WithCodec(protocol.CBOR))
	defer c.Close()

	res, err := c.Call(context.Background(), "set_tempo", map[string]any{"tempo": 128.0})
	require.NoError(t, err)
	assert.Equal(t, "set_tempo", res.(map[string]any)["type"])
}

func TestDoLegacy(t *testing.T) {
	a, b := net.Pipe()
	fakeServer(t, b, protocol.NewLegacyFramer(), echoType)
	c := New(a, WithLegacyFraming(), WithCodec(protocol.CBOR))
	defer c.Close()

	for i := 0; i < 2; i++ {
		res, err := c.Call(context.Background(), "start_playback", nil)
		require.NoError(t, err)
		assert.Equal(t, "start_playback", res.(map[string]any)["type"])
	}
}

func TestDoRespectsContext(t *testing.T) {
	a, b := net.Pipe()
	defer b.Close()
	// 对端只读不回
	go func() {
		buf := make([]byte, 512)
		for {
			if _, err := b.Read(buf); err != nil {
				return
			}
		}
	}()
	c := New(a)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Do(ctx, "get_session_info", nil)
	require.Error(t, err)
	assert.True(t, errs.Has(err, errs.Transport))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDoAfterClose(t *testing.T) {
	a, b := net.Pipe()
	defer b.Close()
	c := New(a)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	_, err := c.Do(context.Background(), "x", nil)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestDoResponseTooLarge(t *testing.T) {
	a, b := net.Pipe()
	big := make([]byte, 256)
	for i := range big {
		big[i] = 'a'
	}
	fakeServer(t, b, protocol.NewLegacyFramer(), func(protocol.Command) protocol.Response {
		return protocol.Success(string(big))
	})
	c := New(a, WithLegacyFraming(), WithMaxMessageSize(32))
	defer c.Close()

	_, err := c.Do(context.Background(), "x", nil)
	require.Error(t, err)
	assert.True(t, errs.Has(err, errs.Framing))
}

func TestLegacyWireIsPlainJSON(t *testing.T) {
	a, b := net.Pipe()
	got := make(chan map[string]any, 1)
	go func() {
		var v map[string]any
		_ = json.NewDecoder(b).Decode(&v)
		got <- v
		out, _ := protocol.NewLegacyFramer().Encode(nil, protocol.Success(nil))
		_, _ = b.Write(out)
		_ = b.Close()
	}()
	c := New(a, WithLegacyFraming())
	defer c.Close()

	_, err := c.Do(context.Background(), "stop_playback", nil)
	require.NoError(t, err)
	v := <-got
	assert.Equal(t, "stop_playback", v["type"])
	assert.Equal(t, map[string]any{}, v["params"])
}
