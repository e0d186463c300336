package mtlink

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLink(t *testing.T) (*Link, net.Conn) {
	t.Helper()
	clientConn, serverConn := net.Pipe()
	t.Cleanup(func() { clientConn.Close() })
	// Drain the peer end so the link's writes never block on net.Pipe.
	go io.Copy(io.Discard, clientConn)

	cfg := DefaultConfig()
	cfg.StepInterval = time.Millisecond
	l := New(cfg, serverConn, nil)
	require.NoError(t, l.Start(context.Background()))
	t.Cleanup(func() { l.Close() })
	return l, clientConn
}

func TestNewBlobSucceeds(t *testing.T) {
	l, _ := newTestLink(t)

	rc := l.NewBlob("greeting", 16, RoleMaster, "GRAB", "DONE")
	assert.Equal(t, 0, rc)

	n, err := l.GetLength("greeting")
	require.NoError(t, err)
	assert.Equal(t, 16, n)
}

func TestNewBlobDuplicateNameFails(t *testing.T) {
	l, _ := newTestLink(t)

	require.Equal(t, 0, l.NewBlob("dup", 4, RoleMaster, "A", "B"))
	assert.Equal(t, -3, l.NewBlob("dup", 4, RoleMaster, "A", "B"))
}

func TestNewBlobNegativeLengthFails(t *testing.T) {
	l, _ := newTestLink(t)

	assert.Equal(t, -2, l.NewBlob("bad", -1, RoleMaster, "A", "B"))
}

func TestNewArraySucceeds(t *testing.T) {
	l, _ := newTestLink(t)

	rc := l.NewArray("records", 4, 8, RoleSlave, "TRIG", "ACK")
	assert.Equal(t, 0, rc)

	n, err := l.GetLength("records")
	require.NoError(t, err)
	assert.Equal(t, 32, n)
}

func TestGrabAndReturnRoundTrip(t *testing.T) {
	l, _ := newTestLink(t)
	require.Equal(t, 0, l.NewBlob("scratch", 8, RoleMaster, "A", "B"))

	storage, err := l.Grab("scratch", time.Second)
	require.NoError(t, err)
	copy(storage, []byte("ABCDEFGH"))
	require.NoError(t, l.Return("scratch"))

	n, err := l.GetLength("scratch")
	require.NoError(t, err)
	assert.Equal(t, 8, n)
}

func TestGrabUnknownBlockReturnsError(t *testing.T) {
	l, _ := newTestLink(t)

	_, err := l.Grab("nope", 50*time.Millisecond)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeNotFound))
}

func TestReturnUnknownBlockReturnsError(t *testing.T) {
	l, _ := newTestLink(t)

	err := l.Return("nope")
	require.Error(t, err)
}

func TestGetLengthUnknownBlockReturnsError(t *testing.T) {
	l, _ := newTestLink(t)

	_, err := l.GetLength("nope")
	require.Error(t, err)
}

func TestCallOnUnknownBlockReturnsMinusOne(t *testing.T) {
	l, _ := newTestLink(t)

	assert.Equal(t, -1, l.Call("nope", 100, 64))
}

func TestCallOnSlaveOwnedBlockReturnsMinusTwo(t *testing.T) {
	l, _ := newTestLink(t)
	require.Equal(t, 0, l.NewBlob("local", 8, RoleSlave, "A", "B"))

	assert.Equal(t, -2, l.Call("local", 100, 64))
}

func TestCallOnMasterOwnedBlockQueuesTransfer(t *testing.T) {
	l, _ := newTestLink(t)
	require.Equal(t, 0, l.NewBlob("remote", 8, RoleMaster, "A", "B"))

	assert.Equal(t, 0, l.Call("remote", 100, 64))
}

func TestBorrowAndReturnElement(t *testing.T) {
	l, _ := newTestLink(t)
	require.Equal(t, 0, l.NewArray("elems", 2, 4, RoleMaster, "A", "B"))

	require.NoError(t, l.ReturnElement("elems", []byte("WXYZ"), 1))

	out := make([]byte, 4)
	require.NoError(t, l.BorrowElement("elems", out, 1))
	assert.Equal(t, "WXYZ", string(out))
}

func TestBorrowElementOnBlobFails(t *testing.T) {
	l, _ := newTestLink(t)
	require.Equal(t, 0, l.NewBlob("notarray", 8, RoleMaster, "A", "B"))

	out := make([]byte, 4)
	err := l.BorrowElement("notarray", out, 0)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeNotAnArray))
}

func TestResizeGrowsStorage(t *testing.T) {
	l, _ := newTestLink(t)
	require.Equal(t, 0, l.NewBlob("growable", 4, RoleMaster, "A", "B"))

	require.NoError(t, l.Resize("growable", 12))

	n, err := l.GetLength("growable")
	require.NoError(t, err)
	assert.Equal(t, 12, n)
}

func TestStrcpyAndStrlenPassthrough(t *testing.T) {
	l, _ := newTestLink(t)
	require.Equal(t, 0, l.NewBlob("str", 16, RoleMaster, "A", "B"))

	n := l.Strcpy("str", []byte("hello"))
	assert.Equal(t, 5, n)
	assert.Equal(t, 5, l.Strlen("str"))
}

func TestMetricsSnapshotAfterTransferAttempt(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	go io.Copy(io.Discard, clientConn)

	cfg := DefaultConfig()
	cfg.StepInterval = time.Millisecond
	cfg.SessionTimeout = 20 * time.Millisecond
	l := New(cfg, serverConn, nil)
	require.NoError(t, l.Start(context.Background()))
	defer l.Close()

	require.Equal(t, 0, l.NewBlob("m", 8, RoleMaster, "A", "B"))
	l.Call("m", 10, 64)
	time.Sleep(100 * time.Millisecond)

	snap := l.Metrics()
	assert.GreaterOrEqual(t, snap.TransfersStarted, uint64(1))
	assert.GreaterOrEqual(t, snap.TransfersAborted, uint64(1))
}

func TestCloseAfterStartReturnsNil(t *testing.T) {
	cfg := DefaultConfig()
	l := New(cfg, NewMockTransport(), nil)
	require.NoError(t, l.Start(context.Background()))
	assert.NoError(t, l.Close())
}
