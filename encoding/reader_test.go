package encoding

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBodyReaderEnforcesBudget(t *testing.T) {
	src := bytes.NewReader([]byte{0x01, 0x02, 0x03, 0x04, 0x05})
	br := NewBodyReader(src, 3, nil)

	buf := make([]byte, 2)
	n, err := br.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, uint32(1), br.Remaining())

	// Asking for more than the remaining budget fails before touching the stream
	_, err = br.Read(make([]byte, 2))
	assert.ErrorIs(t, err, ErrInsufficientRemainingLen)

	n, err = br.Read(buf[:1])
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, br.Exhausted())

	// Exhausted body rejects further reads
	_, err = br.Read(buf[:1])
	assert.ErrorIs(t, err, ErrInsufficientRemainingLen)
}

func TestBodyReaderUnderlyingEOF(t *testing.T) {
	src := bytes.NewReader([]byte{0x01})
	br := NewBodyReader(src, 3, nil)

	buf := make([]byte, 1)
	_, err := br.Read(buf)
	require.NoError(t, err)

	_, err = br.Read(buf)
	assert.ErrorIs(t, err, ErrUnexpectedEOF)
}

func TestBodyReaderDiscard(t *testing.T) {
	payload := make([]byte, 1000)
	src := bytes.NewReader(payload)
	br := NewBodyReader(src, 1000, nil)

	buf := make([]byte, 10)
	_, err := br.Read(buf)
	require.NoError(t, err)

	require.NoError(t, br.Discard())
	assert.True(t, br.Exhausted())
	assert.Equal(t, 0, src.Len())
}

func TestBodyReaderDiscardTruncatedStream(t *testing.T) {
	src := bytes.NewReader([]byte{0x01, 0x02})
	br := NewBodyReader(src, 10, nil)
	assert.ErrorIs(t, br.Discard(), ErrUnexpectedEOF)
}

func TestBodyReaderProvide(t *testing.T) {
	src := bytes.NewReader([]byte("hello world"))
	br := NewBodyReader(src, 11, nil)

	buf, err := br.Provide(11)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world"), buf)
	assert.True(t, br.Exhausted())
}

func TestBodyReaderProvideOverBudget(t *testing.T) {
	br := NewBodyReader(bytes.NewReader([]byte{0x01}), 1, nil)
	_, err := br.Provide(2)
	assert.ErrorIs(t, err, ErrInsufficientRemainingLen)
}

// failingProvider always refuses to allocate
type failingProvider struct{ err error }

func (f failingProvider) Provide(n int) ([]byte, error) { return nil, f.err }

func TestBodyReaderProviderFailure(t *testing.T) {
	boom := errors.New("arena full")
	br := NewBodyReader(bytes.NewReader([]byte{0x01, 0x02}), 2, failingProvider{err: boom})

	_, err := br.Provide(2)

	var bufErr *BufferError
	require.ErrorAs(t, err, &bufErr)
	assert.ErrorIs(t, err, boom)
}

func TestHeapBufferProvider(t *testing.T) {
	buf, err := HeapBufferProvider{}.Provide(16)
	require.NoError(t, err)
	assert.Len(t, buf, 16)

	empty, err := HeapBufferProvider{}.Provide(0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
