// Package frame implements the length-prefixed wire format shared by the
// server and the clients.
//
// A frame is the payload length in ASCII decimal (no leading zeros), a single
// '\n', then exactly that many payload bytes:
//
//	14\nIt's a tie!...
//
// The delimiter keeps payloads that start with a digit, such as a move "4",
// from being absorbed into the length.
package frame

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/rocketscienceinc/tictactoe-socket/internal/apperror"
)

const Delimiter byte = '\n'

const defaultMaxPayloadBytes = 64 * 1024

// Limits constrains decode memory use.
type Limits struct {
	MaxPayloadBytes int
}

func DefaultLimits() Limits {
	return Limits{MaxPayloadBytes: defaultMaxPayloadBytes}
}

func (l Limits) maxPayload() int {
	if l.MaxPayloadBytes <= 0 {
		return defaultMaxPayloadBytes
	}
	return l.MaxPayloadBytes
}

// maxHeaderDigits is the widest length header that can still be within the limit.
func (l Limits) maxHeaderDigits() int {
	return len(strconv.Itoa(l.maxPayload()))
}

// Encode returns payload framed for the wire.
func Encode(payload string) []byte {
	header := strconv.Itoa(len(payload))
	out := make([]byte, 0, len(header)+1+len(payload))
	out = append(out, header...)
	out = append(out, Delimiter)
	out = append(out, payload...)
	return out
}

// EncodeWithLimits is Encode that refuses payloads the peer would reject.
func EncodeWithLimits(payload string, limits Limits) ([]byte, error) {
	if len(payload) > limits.maxPayload() {
		return nil, fmt.Errorf("%w: %d bytes", apperror.ErrPayloadTooLarge, len(payload))
	}
	return Encode(payload), nil
}

// DecodeOne decodes the frame at the start of buf and reports how many bytes
// it occupied. ErrTruncatedFrame means buf holds only a prefix of a frame and
// more bytes are needed; any other error means the stream is desynchronized.
func DecodeOne(buf []byte, limits Limits) (string, int, error) {
	if len(buf) == 0 {
		return "", 0, apperror.ErrTruncatedFrame
	}

	maxDigits := limits.maxHeaderDigits()
	digits := 0
	for digits < len(buf) && isDigit(buf[digits]) {
		digits++
		if digits > maxDigits {
			return "", 0, fmt.Errorf("%w: length header wider than %d digits", apperror.ErrPayloadTooLarge, maxDigits)
		}
	}

	if digits == 0 {
		return "", 0, fmt.Errorf("%w: unexpected byte %q", apperror.ErrMalformedHeader, buf[0])
	}
	if digits == len(buf) {
		return "", 0, apperror.ErrTruncatedFrame
	}
	if buf[digits] != Delimiter {
		return "", 0, fmt.Errorf("%w: expected delimiter after length, got %q", apperror.ErrMalformedHeader, buf[digits])
	}
	if digits > 1 && buf[0] == '0' {
		return "", 0, fmt.Errorf("%w: leading zero in length %q", apperror.ErrMalformedHeader, buf[:digits])
	}

	length, err := strconv.Atoi(string(buf[:digits]))
	if err != nil {
		return "", 0, fmt.Errorf("%w: %w", apperror.ErrMalformedHeader, err)
	}
	if length > limits.maxPayload() {
		return "", 0, fmt.Errorf("%w: declared %d bytes", apperror.ErrPayloadTooLarge, length)
	}

	end := digits + 1 + length
	if len(buf) < end {
		return "", 0, apperror.ErrTruncatedFrame
	}

	return string(buf[digits+1 : end]), end, nil
}

// Decode decodes every complete frame in buf. A trailing partial frame is not
// an error: it is left unconsumed for the caller to retry once more bytes
// have arrived.
func Decode(buf []byte, limits Limits) ([]string, int, error) {
	var payloads []string
	consumed := 0

	for consumed < len(buf) {
		payload, n, err := DecodeOne(buf[consumed:], limits)
		if errors.Is(err, apperror.ErrTruncatedFrame) {
			break
		}
		if err != nil {
			return payloads, consumed, err
		}

		payloads = append(payloads, payload)
		consumed += n
	}

	return payloads, consumed, nil
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
