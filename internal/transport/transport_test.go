package transport

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dorcha-inc/vigil/internal/report"
)

func TestNormalizeExtension(t *testing.T) {
	assert.Equal(t, DefaultExtension, NormalizeExtension(""))
	assert.Equal(t, ".pprof", NormalizeExtension("pprof"))
	assert.Equal(t, ".pprof", NormalizeExtension(".pprof"))
}

func TestRecorder_SendAndSnapshot(t *testing.T) {
	rec := NewRecorder()
	conn, err := rec.Connect(context.Background())
	require.NoError(t, err)

	require.NoError(t, conn.Send(context.Background(), &report.Report{InvocationID: "a"}))
	require.NoError(t, conn.Send(context.Background(), &report.Report{InvocationID: "b"}))

	reports := rec.Reports()
	require.Len(t, reports, 2)
	assert.Equal(t, "a", reports[0].InvocationID)
	assert.Equal(t, "b", reports[1].InvocationID)

	// the snapshot is independent of later sends
	require.NoError(t, conn.Send(context.Background(), &report.Report{InvocationID: "c"}))
	assert.Len(t, reports, 2)

	require.NoError(t, conn.Close())
	assert.Equal(t, 1, rec.Closed())
}

func TestRecorder_FailWith(t *testing.T) {
	rec := NewRecorder()
	sendErr := errors.New("upstream unavailable")
	rec.FailWith(sendErr)

	err := rec.Send(context.Background(), &report.Report{})
	assert.ErrorIs(t, err, sendErr)
	assert.Empty(t, rec.Reports())
}

func TestRecorder_Signer(t *testing.T) {
	assert.Nil(t, NewRecorder().Signer(".pprof"))

	rec := NewSigningRecorder("https://uploads.example.com/signed")
	signer := rec.Signer("pprof")
	require.NotNil(t, signer)
	assert.Equal(t, ".pprof", signer.Extension())

	u, err := signer.SignedURL(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "https://uploads.example.com/signed/"))
	assert.True(t, strings.HasSuffix(u, ".pprof"))

	assert.Equal(t, DefaultExtension, rec.Signer("").Extension())
}

func TestLogFactory_Send(t *testing.T) {
	var buf bytes.Buffer
	factory := NewLogFactory(&buf)
	assert.Nil(t, factory.Signer(".pprof"))

	conn, err := factory.Connect(context.Background())
	require.NoError(t, err)
	require.NoError(t, conn.Send(context.Background(), &report.Report{InvocationID: "inv-1"}))
	assert.Contains(t, buf.String(), `"invocationId": "inv-1"`)
}
