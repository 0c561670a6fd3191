package frame

import (
	"strings"
	"testing"

	"github.com/rocketscienceinc/tictactoe-socket/internal/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	assert.Equal(t, "11\nIt's a tie!", string(Encode("It's a tie!")))
	assert.Equal(t, "0\n", string(Encode("")))
	assert.Equal(t, "1\n4", string(Encode("4")))

	// length counts bytes, not runes
	assert.Equal(t, "2\né", string(Encode("é")))
}

func TestEncodeWithLimits(t *testing.T) {
	_, err := EncodeWithLimits(strings.Repeat("a", 11), Limits{MaxPayloadBytes: 10})
	require.ErrorIs(t, err, apperror.ErrPayloadTooLarge)

	out, err := EncodeWithLimits("hello", Limits{MaxPayloadBytes: 10})
	require.NoError(t, err)
	assert.Equal(t, "5\nhello", string(out))
}

func TestDecode(t *testing.T) {
	limits := DefaultLimits()

	t.Run("Round trip", func(t *testing.T) {
		for _, payload := range []string{
			"Hello! You're player X!",
			"playfield:    x    ",
			"",
			"4",
			"42 starts with digits",
			"line\nbreaks\ninside",
		} {
			// When: a single encoded payload is decoded
			payloads, consumed, err := Decode(Encode(payload), limits)

			// Then: exactly that payload comes back and every byte is used
			require.NoError(t, err)
			assert.Equal(t, []string{payload}, payloads)
			assert.Equal(t, len(Encode(payload)), consumed)
		}
	})

	t.Run("Two frames in one read", func(t *testing.T) {
		// Given: two frames concatenated into one buffer
		buf := append(Encode("Player x has done a move."), Encode("playfield:x        ")...)

		// When: the buffer is decoded
		payloads, consumed, err := Decode(buf, limits)

		// Then: both payloads come back in order
		require.NoError(t, err)
		assert.Equal(t, []string{"Player x has done a move.", "playfield:x        "}, payloads)
		assert.Equal(t, len(buf), consumed)
	})

	t.Run("Frame split across two reads", func(t *testing.T) {
		full := Encode("It's your turn! Please enter the position (0-8) to place your token:")

		for split := 0; split < len(full); split++ {
			// Given: only a prefix has arrived
			payloads, consumed, err := Decode(full[:split], limits)

			// Then: nothing is decoded and nothing is consumed
			require.NoError(t, err)
			assert.Empty(t, payloads)
			assert.Equal(t, 0, consumed)

			// When: the rest is appended and decoding is retried
			payloads, consumed, err = Decode(append(append([]byte{}, full[:split]...), full[split:]...), limits)

			// Then: the frame is recovered
			require.NoError(t, err)
			assert.Equal(t, []string{"It's your turn! Please enter the position (0-8) to place your token:"}, payloads)
			assert.Equal(t, len(full), consumed)
		}
	})

	t.Run("Complete frame followed by a partial one", func(t *testing.T) {
		first := Encode("first")
		buf := append(append([]byte{}, first...), Encode("second")[:4]...)

		payloads, consumed, err := Decode(buf, limits)

		require.NoError(t, err)
		assert.Equal(t, []string{"first"}, payloads)
		assert.Equal(t, len(first), consumed)
	})

	t.Run("Malformed header after good frames keeps what was decoded", func(t *testing.T) {
		first := Encode("ok")
		buf := append(append([]byte{}, first...), "garbage"...)

		payloads, consumed, err := Decode(buf, limits)

		require.ErrorIs(t, err, apperror.ErrMalformedHeader)
		assert.Equal(t, []string{"ok"}, payloads)
		assert.Equal(t, len(first), consumed)
	})
}

func TestDecodeOne(t *testing.T) {
	limits := DefaultLimits()

	tests := []struct {
		name string
		buf  string
		err  error
	}{
		{name: "empty buffer", buf: "", err: apperror.ErrTruncatedFrame},
		{name: "header digits only", buf: "12", err: apperror.ErrTruncatedFrame},
		{name: "payload short", buf: "5\nhel", err: apperror.ErrTruncatedFrame},
		{name: "no digit at cursor", buf: "x5\nhello", err: apperror.ErrMalformedHeader},
		{name: "missing delimiter", buf: "5hello", err: apperror.ErrMalformedHeader},
		{name: "leading zero", buf: "05\nhello", err: apperror.ErrMalformedHeader},
		{name: "declared length over limit", buf: "65537\n", err: apperror.ErrPayloadTooLarge},
		{name: "endless digits", buf: "1234567", err: apperror.ErrPayloadTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, n, err := DecodeOne([]byte(tt.buf), limits)

			require.ErrorIs(t, err, tt.err)
			assert.Equal(t, 0, n)
		})
	}

	t.Run("Zero length payload", func(t *testing.T) {
		payload, n, err := DecodeOne([]byte("0\n1\n4"), limits)

		require.NoError(t, err)
		assert.Equal(t, "", payload)
		assert.Equal(t, 2, n)
	})

	t.Run("Custom limit", func(t *testing.T) {
		_, _, err := DecodeOne([]byte("11\nhello world"), Limits{MaxPayloadBytes: 10})

		require.ErrorIs(t, err, apperror.ErrPayloadTooLarge)
	})
}

// FuzzDecode checks the decoder never panics and never consumes past the input.
func FuzzDecode(f *testing.F) {
	f.Add(Encode("hello"))
	f.Add([]byte("12"))
	f.Add([]byte("5hello"))
	f.Add([]byte{0xff, '\n'})

	f.Fuzz(func(t *testing.T, data []byte) {
		_, consumed, _ := Decode(data, DefaultLimits())
		if consumed > len(data) {
			t.Fatalf("consumed %d of %d bytes", consumed, len(data))
		}
	})
}

func FuzzRoundTrip(f *testing.F) {
	f.Add("hello")
	f.Add("")
	f.Add("8")

	f.Fuzz(func(t *testing.T, payload string) {
		if len(payload) > defaultMaxPayloadBytes {
			t.Skip()
		}

		payloads, _, err := Decode(Encode(payload), DefaultLimits())
		require.NoError(t, err)
		require.Equal(t, []string{payload}, payloads)
	})
}
