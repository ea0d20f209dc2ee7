package protocol

import (
	"bytes"
	"encoding/json"
	"math"
	"runtime"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legamerdc/liveremote/internal/errs"
	"github.com/legamerdc/liveremote/internal/ring"
)

func TestHeaderShortAndLong(t *testing.T) {
	b, err := Header{Content: ContentCBOR, Length: 100, Compressed: true}.Append(nil)
	require.NoError(t, err)
	assert.Len(t, b, 4)
	h, n, err := DecodeHeader(b)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, Header{Content: ContentCBOR, Length: 100, Compressed: true}, h)

	b, err = Header{Content: ContentJSON, Length: 1 << 20, Batched: true}.Append(nil)
	require.NoError(t, err)
	assert.Len(t, b, MaxHeaderSize)
	h, n, err = DecodeHeader(b)
	require.NoError(t, err)
	assert.Equal(t, MaxHeaderSize, n)
	assert.Equal(t, Header{Content: ContentJSON, Length: 1 << 20, Batched: true}, h)

	// 边界：8191 仍是短头，8192 切换为长头
	assert.Equal(t, 4, Header{Length: shortMaxLen}.Size())
	assert.Equal(t, 6, Header{Length: shortMaxLen + 1}.Size())

	_, err = Header{Length: -1}.Append(nil)
	assert.Error(t, err)
	_, err = Header{Length: longMaxLen + 1}.Append(nil)
	assert.Error(t, err)
}

func TestDecodeHeaderNeedsContent(t *testing.T) {
	b, _ := Header{Content: ContentJSON, Length: 9000}.Append(nil)
	for i := 0; i < len(b); i++ {
		_, _, err := DecodeHeader(b[:i])
		assert.ErrorIs(t, err, errHeaderTooShort, "prefix of %d bytes", i)
	}
}

func TestHeaderCheck(t *testing.T) {
	assert.NoError(t, Header{Content: ContentJSON, Length: 10}.Check(10))
	assert.NoError(t, Header{Content: ContentCBOR, Length: 1 << 20}.Check(0))

	for _, h := range []Header{
		{Content: ContentJSON, Length: 4, Batched: true},
		{Content: ContentJSON, Length: 11},
		{Content: Content(7), Length: 4},
	} {
		assert.True(t, errs.Has(h.Check(10), errs.Framing), "%+v", h)
	}
}

func TestParseFrameIncompleteThenComplete(t *testing.T) {
	frame, err := EncodeFrame(ContentJSON, []byte(`{"type":"get_session_info"}`), false)
	require.NoError(t, err)

	for i := 0; i < len(frame); i++ {
		_, n, err := ParseFrame(frame[:i], 0)
		require.NoError(t, err)
		assert.Zero(t, n, "prefix of %d bytes must be incomplete", i)
	}
	f, n, err := ParseFrame(frame, 0)
	require.NoError(t, err)
	assert.Equal(t, len(frame), n)
	assert.Equal(t, ContentJSON, f.Content)
	assert.JSONEq(t, `{"type":"get_session_info"}`, string(f.Payload))
}

func TestParseFrameCompressed(t *testing.T) {
	payload := []byte(`{"type":"search_browser_items","params":{"query":"` + strings.Repeat("bass", 500) + `"}}`)
	frame, err := EncodeFrame(ContentJSON, payload, true)
	require.NoError(t, err)
	assert.Less(t, len(frame), len(payload))

	f, _, err := ParseFrame(frame, 1<<20)
	require.NoError(t, err)
	assert.Equal(t, payload, f.Payload)
}

func TestParseFrameRejectsBatchedAndOversize(t *testing.T) {
	hdr, _ := Header{Content: ContentJSON, Length: 4, Batched: true}.Append(nil)
	_, _, err := ParseFrame(append(hdr, 'a', 'b', 'c', 'd'), 0)
	assert.True(t, errs.Has(err, errs.Framing))

	// 仅凭头部即可拒绝，无需等待负载
	hdr, _ = Header{Content: Content(9), Length: 4}.Append(nil)
	_, _, err = ParseFrame(hdr, 0)
	assert.True(t, errs.Has(err, errs.Framing))

	frame, _ := EncodeFrame(ContentJSON, bytes.Repeat([]byte{' '}, 64), false)
	_, _, err = ParseFrame(frame, 32)
	assert.True(t, errs.Has(err, errs.Framing))
}

func TestParseFrameBoundsDecompressedSize(t *testing.T) {
	// 256 MiB 的零压缩成几十 KB
	var zbuf bytes.Buffer
	zw, err := zstd.NewWriter(&zbuf, zstd.WithWindowSize(1<<20))
	require.NoError(t, err)
	chunk := make([]byte, 1<<20)
	for i := 0; i < 256; i++ {
		_, err = zw.Write(chunk)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.Less(t, zbuf.Len(), 1<<20)

	frame, err := Header{Content: ContentJSON, Length: zbuf.Len(), Compressed: true}.Append(nil)
	require.NoError(t, err)
	frame = append(frame, zbuf.Bytes()...)

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	_, n, err := ParseFrame(frame, 1<<20)
	runtime.ReadMemStats(&after)

	assert.Zero(t, n)
	require.True(t, errs.Has(err, errs.Framing))
	assert.Contains(t, err.Error(), "decompressed payload exceeds limit 1048576")
	assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(64<<20), "decode must stop near the limit")
}

func TestParseFrameDecompressedAtLimit(t *testing.T) {
	payload := bytes.Repeat([]byte{'x'}, 4096)
	frame, err := EncodeFrame(ContentJSON, payload, true)
	require.NoError(t, err)

	f, _, err := ParseFrame(frame, 4096)
	require.NoError(t, err)
	assert.Equal(t, payload, f.Payload)

	_, _, err = ParseFrame(frame, 4095)
	assert.True(t, errs.Has(err, errs.Framing))
}

func TestParseFrameCorruptCompressed(t *testing.T) {
	body := []byte("definitely not zstd")
	frame, _ := Header{Content: ContentJSON, Length: len(body), Compressed: true}.Append(nil)
	_, _, err := ParseFrame(append(frame, body...), 0)
	assert.True(t, errs.Has(err, errs.Framing))
}

func TestLegacyFramerWaitsForCompletePayload(t *testing.T) {
	buf := ring.New(64, 1024)
	fr := NewLegacyFramer()

	_, _ = buf.Write([]byte(`{"type":"get_track_info",`))
	_, ok, err := fr.Next(buf)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 25, buf.Len(), "partial data must be kept")

	_, _ = buf.Write([]byte(`"params":{"track_index":2}}`))
	msg, ok, err := fr.Next(buf)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, msg.Err)
	assert.Equal(t, "get_track_info", msg.Command.Type)
	assert.Equal(t, json.Number("2"), msg.Command.Params["track_index"])
	assert.Zero(t, buf.Len())
}

func TestLegacyFramerMalformedStalls(t *testing.T) {
	buf := ring.New(64, 1024)
	fr := NewLegacyFramer()
	_, _ = buf.Write([]byte(`{"type": oops}`))

	for i := 0; i < 3; i++ {
		_, ok, err := fr.Next(buf)
		assert.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestLegacyFramerNonObjectIsCommandError(t *testing.T) {
	buf := ring.New(64, 1024)
	_, _ = buf.Write([]byte(`[1,2,3]`))
	msg, ok, err := NewLegacyFramer().Next(buf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, errs.Has(msg.Err, errs.Validation))
	assert.Zero(t, buf.Len())
}

func TestLegacyFramerInvalidUTF8IsCommandError(t *testing.T) {
	buf := ring.New(64, 1024)
	_, _ = buf.Write([]byte("{\"type\":\"get_track_info\xff\"}"))
	msg, ok, err := NewLegacyFramer().Next(buf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, errs.Has(msg.Err, errs.Framing))
	assert.Zero(t, buf.Len())

	resp := FailureFrom(msg.Err)
	assert.False(t, resp.OK())
}

func TestPrefixFramerInvalidUTF8IsFatal(t *testing.T) {
	buf := ring.New(64, 1024)
	frame, _ := EncodeFrame(ContentJSON, []byte("{\"type\":\"\xc3\x28\"}"), false)
	_, _ = buf.Write(frame)

	_, ok, err := NewPrefixFramer(PrefixOptions{}).Next(buf)
	assert.False(t, ok)
	assert.True(t, errs.Has(err, errs.Framing))
}

func TestPrefixFramerMalformedPayloadIsFatal(t *testing.T) {
	buf := ring.New(64, 1024)
	frame, _ := EncodeFrame(ContentJSON, []byte(`{"type": oops}`), false)
	_, _ = buf.Write(frame)

	_, ok, err := NewPrefixFramer(PrefixOptions{}).Next(buf)
	assert.False(t, ok)
	assert.True(t, errs.Has(err, errs.Framing))
}

func TestPrefixFramerTwoFramesBackToBack(t *testing.T) {
	buf := ring.New(64, 1024)
	fr := NewPrefixFramer(PrefixOptions{MaxPayload: 1024})
	a, _ := EncodeFrame(ContentJSON, []byte(`{"type":"start_playback"}`), false)
	b, _ := EncodeCommandFrame(CBOR, Command{Type: "set_tempo", Params: map[string]any{"tempo": 128.5}})
	_, _ = buf.Write(append(a, b...))

	msg, ok, err := fr.Next(buf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "start_playback", msg.Command.Type)
	assert.Equal(t, ContentJSON, msg.Codec.Content())

	msg, ok, err = fr.Next(buf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "set_tempo", msg.Command.Type)
	assert.Equal(t, 128.5, msg.Command.Params["tempo"])
	assert.Equal(t, ContentCBOR, msg.Codec.Content())
	assert.Zero(t, buf.Len())
}

func TestEncodeResponseShape(t *testing.T) {
	ok := EncodeResponse(JSON, Success(map[string]any{"tempo": 120.0}))
	assert.JSONEq(t, `{"status":"success","result":{"tempo":120}}`, string(ok))
	assert.Contains(t, string(ok), `"tempo":120.0`)

	bad := EncodeResponse(JSON, Failure("Track index out of range"))
	assert.JSONEq(t, `{"status":"error","message":"Track index out of range"}`, string(bad))
}

func TestEncodeResponseKeepsFloatsDecimal(t *testing.T) {
	out := EncodeResponse(JSON, Success(map[string]any{
		"tempo":      120.0,
		"track":      3,
		"volume":     0.85,
		"tiny":       1e-9,
		"clip_slots": []any{map[string]any{"length": 4.0, "index": 0}},
	}))
	s := string(out)
	assert.Contains(t, s, `"tempo":120.0`)
	assert.Contains(t, s, `"track":3,`)
	assert.Contains(t, s, `"volume":0.85`)
	assert.Contains(t, s, `"tiny":1e-9`)
	assert.Contains(t, s, `"length":4.0`)
	assert.Contains(t, s, `"index":0,`)

	r, err := DecodeResponse(JSON, out)
	require.NoError(t, err)
	assert.Equal(t, json.Number("120.0"), r.Result.(map[string]any)["tempo"])
}

func TestEncodeResponseUnserialisableResult(t *testing.T) {
	out := EncodeResponse(JSON, Success(map[string]any{"value": math.NaN()}))
	r, err := DecodeResponse(JSON, out)
	require.NoError(t, err)
	assert.False(t, r.OK())
	assert.Contains(t, r.Message, "failed to encode response")
}

func TestResponseRoundTripPreservesStructure(t *testing.T) {
	result := map[string]any{
		"tempo":  123.456789012345,
		"count":  int64(9007199254740993),
		"tracks": []any{map[string]any{"name": "Bass", "arm": true}, nil},
	}
	for _, codec := range []Codec{JSON, CBOR} {
		data := EncodeResponse(codec, Success(result))
		r, err := DecodeResponse(codec, data)
		require.NoError(t, err, codec.Content().String())
		require.True(t, r.OK())

		want, _ := json.Marshal(result)
		got, err := json.Marshal(r.Result)
		require.NoError(t, err)
		assert.JSONEq(t, string(want), string(got), codec.Content().String())
	}
}

func TestCommandFromValueDefaults(t *testing.T) {
	cmd, err := CommandFromValue(map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "", cmd.Type)
	assert.NotNil(t, cmd.Params)

	_, err = CommandFromValue(map[string]any{"type": 5})
	assert.True(t, errs.Has(err, errs.Validation))
	_, err = CommandFromValue(map[string]any{"type": "x", "params": "nope"})
	assert.True(t, errs.Has(err, errs.Validation))
}
