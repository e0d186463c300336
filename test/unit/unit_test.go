// Package unit holds tests that exercise the link protocol purely
// against net.Pipe, with no real serial hardware.
package unit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/behrlich/mtlink"
	"github.com/behrlich/mtlink/transport/pipe"
)

func newLinkPair(t *testing.T) (*mtlink.Link, *mtlink.Link) {
	t.Helper()
	a, b := pipe.New()

	cfg := mtlink.DefaultConfig()
	cfg.StepInterval = time.Millisecond
	cfg.SessionTimeout = time.Second

	masterLink := mtlink.New(cfg, a, nil)
	slaveLink := mtlink.New(cfg, b, nil)

	require.NoError(t, masterLink.Start(context.Background()))
	require.NoError(t, slaveLink.Start(context.Background()))

	t.Cleanup(func() {
		masterLink.Close()
		slaveLink.Close()
	})
	return masterLink, slaveLink
}

func TestSingleChunkTransfer(t *testing.T) {
	masterLink, slaveLink := newLinkPair(t)

	require.Equal(t, 0, slaveLink.NewBlob("greeting", 5, mtlink.RoleSlave, "TRIG____", "PATT____"))
	require.Equal(t, 0, masterLink.NewBlob("greeting", 5, mtlink.RoleMaster, "TRIG____", "PATT____"))

	slaveLink.Memcpy("greeting", 0, []byte("hello"))

	require.Equal(t, 0, masterLink.Call("greeting", 500, 64))

	require.Eventually(t, func() bool {
		n, err := masterLink.GetLength("greeting")
		return err == nil && n == 5
	}, time.Second, 5*time.Millisecond)

	got, err := masterLink.Grab("greeting", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
	require.NoError(t, masterLink.Return("greeting"))
}

func TestMultiChunkTransferWithSmallChunkSize(t *testing.T) {
	masterLink, slaveLink := newLinkPair(t)

	payload := make([]byte, 512)
	for i := range payload {
		payload[i] = byte(i % 251)
	}

	require.Equal(t, 0, slaveLink.NewBlob("bulk", len(payload), mtlink.RoleSlave, "BTRIG___", "BPATT___"))
	require.Equal(t, 0, masterLink.NewBlob("bulk", len(payload), mtlink.RoleMaster, "BTRIG___", "BPATT___"))
	slaveLink.Memcpy("bulk", 0, payload)

	require.Equal(t, 0, masterLink.Call("bulk", 1000, 32))

	require.Eventually(t, func() bool {
		got, err := masterLink.Grab("bulk", 50*time.Millisecond)
		if err != nil {
			return false
		}
		defer masterLink.Return("bulk")
		return string(got) == string(payload)
	}, 2*time.Second, 10*time.Millisecond)

	snap := masterLink.Metrics()
	assert.Greater(t, snap.ChunksReceived, uint64(1))
}

func TestCallOnLocallyOwnedBlockIsRejected(t *testing.T) {
	masterLink, _ := newLinkPair(t)

	require.Equal(t, 0, masterLink.NewBlob("mine", 4, mtlink.RoleSlave, "XTRIG___", "XPATT___"))
	assert.Equal(t, -2, masterLink.Call("mine", 100, 64))
}

func TestCallOnUnregisteredBlockIsRejected(t *testing.T) {
	masterLink, _ := newLinkPair(t)
	assert.Equal(t, -1, masterLink.Call("ghost", 100, 64))
}

func TestResizeThenTransferUsesNewLength(t *testing.T) {
	masterLink, slaveLink := newLinkPair(t)

	require.Equal(t, 0, slaveLink.NewBlob("resizable", 4, mtlink.RoleSlave, "RTRIG___", "RPATT___"))
	require.Equal(t, 0, masterLink.NewBlob("resizable", 4, mtlink.RoleMaster, "RTRIG___", "RPATT___"))

	require.NoError(t, slaveLink.Resize("resizable", 10))
	slaveLink.Memcpy("resizable", 0, []byte("0123456789"))

	require.Equal(t, 0, masterLink.Call("resizable", 500, 64))

	require.Eventually(t, func() bool {
		n, err := masterLink.GetLength("resizable")
		return err == nil && n == 10
	}, time.Second, 5*time.Millisecond)
}

func TestArrayElementRoundTripsThroughTransfer(t *testing.T) {
	masterLink, slaveLink := newLinkPair(t)

	require.Equal(t, 0, slaveLink.NewArray("records", 4, 8, mtlink.RoleSlave, "ATRIG___", "APATT___"))
	require.Equal(t, 0, masterLink.NewArray("records", 4, 8, mtlink.RoleMaster, "ATRIG___", "APATT___"))

	require.NoError(t, slaveLink.ReturnElement("records", []byte("rowtwo!!"), 2))

	require.Equal(t, 0, masterLink.Call("records", 500, 64))

	require.Eventually(t, func() bool {
		out := make([]byte, 8)
		err := masterLink.BorrowElement("records", out, 2)
		return err == nil && string(out) == "rowtwo!!"
	}, time.Second, 5*time.Millisecond)
}
