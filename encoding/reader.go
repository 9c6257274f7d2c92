package encoding

import (
	"errors"
	"io"
)

// BufferProvider supplies writable regions for received payloads. It is a
// capability object owned by the caller; failures are opaque and surface as
// BufferError in decode errors.
type BufferProvider interface {
	Provide(n int) ([]byte, error)
}

// HeapBufferProvider allocates payload buffers on the Go heap. It is the
// default provider for hosted environments.
type HeapBufferProvider struct{}

func (HeapBufferProvider) Provide(n int) ([]byte, error) {
	return make([]byte, n), nil
}

// BodyReader wraps the transport for the duration of one packet body. It
// enforces the remaining length declared in the fixed header: reads past the
// budget fail with ErrInsufficientRemainingLen, and the unread remainder can
// be discarded to realign the stream on a packet boundary.
type BodyReader struct {
	r         io.Reader
	remaining uint32
	provider  BufferProvider
}

// NewBodyReader creates a body reader for a packet with the given remaining
// length. A nil provider falls back to heap allocation.
func NewBodyReader(r io.Reader, remainingLength uint32, provider BufferProvider) *BodyReader {
	if provider == nil {
		provider = HeapBufferProvider{}
	}
	return &BodyReader{
		r:         r,
		remaining: remainingLength,
		provider:  provider,
	}
}

// Remaining returns the number of body bytes not yet consumed
func (b *BodyReader) Remaining() uint32 {
	return b.remaining
}

// Read consumes up to len(p) bytes of the body. A read requested when the
// body is exhausted fails with ErrInsufficientRemainingLen.
func (b *BodyReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if b.remaining == 0 {
		return 0, ErrInsufficientRemainingLen
	}
	if uint32(len(p)) > b.remaining {
		return 0, ErrInsufficientRemainingLen
	}

	n, err := b.r.Read(p)
	b.remaining -= uint32(n)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return n, ErrUnexpectedEOF
		}
		return n, err
	}
	return n, nil
}

// Provide obtains a writable region of n bytes from the buffer provider and
// fills it from the body. Provider failures are wrapped in BufferError.
func (b *BodyReader) Provide(n int) ([]byte, error) {
	if uint32(n) > b.remaining {
		return nil, ErrInsufficientRemainingLen
	}

	buf, err := b.provider.Provide(n)
	if err != nil {
		return nil, &BufferError{Err: err}
	}

	if _, err := io.ReadFull(b, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Discard drains the unread remainder of the body. The client engine calls
// this when a decoder fails mid-body so the stream stays aligned on a packet
// boundary.
func (b *BodyReader) Discard() error {
	var scratch [256]byte
	for b.remaining > 0 {
		n := len(scratch)
		if uint32(n) > b.remaining {
			n = int(b.remaining)
		}
		read, err := b.r.Read(scratch[:n])
		b.remaining -= uint32(read)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return ErrUnexpectedEOF
			}
			return err
		}
		if read == 0 {
			return ErrUnexpectedEOF
		}
	}
	return nil
}

// Exhausted reports whether the full body has been consumed. Decoders that
// finish with bytes left over indicate a malformed packet.
func (b *BodyReader) Exhausted() bool {
	return b.remaining == 0
}
