package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/phambaophuc/media-compress/internal/models"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubOptimizer struct {
	out []byte
	err error
}

func (s stubOptimizer) Optimize(context.Context, []byte) ([]byte, error) {
	return s.out, s.err
}

func newTestWorker(opt stubOptimizer) *Worker {
	return NewWorker(&QueueService{logger: zap.NewNop()}, opt, 0, time.Second)
}

func TestHandleSuccessRoundTrip(t *testing.T) {
	w := newTestWorker(stubOptimizer{out: []byte("%PDF-optimized")})

	reply := w.handle(context.Background(), []byte("%PDF-original"))
	assert.Equal(t, statusOK, reply.Headers[headerStatus])

	out, err := decodeReply(amqp.Delivery{Headers: reply.Headers, Body: reply.Body})
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-optimized"), out)
}

func TestHandleFailureBecomesEncodeFailed(t *testing.T) {
	w := newTestWorker(stubOptimizer{err: errors.New("disk full at /var/tmp/x")})

	reply := w.handle(context.Background(), []byte("%PDF"))
	assert.Equal(t, statusError, reply.Headers[headerStatus])
	assert.Empty(t, reply.Body)

	_, err := decodeReply(amqp.Delivery{Headers: reply.Headers})
	require.Error(t, err)
	assert.Equal(t, models.KindEncodeFailed, models.KindOf(err))
	assert.Equal(t, "remote optimization failed", models.PublicMessage(err))
}

func TestHandleKeepsPublicMessage(t *testing.T) {
	w := newTestWorker(stubOptimizer{err: models.NewError(models.KindDecodeFailed, "could not parse document", nil)})

	_, err := decodeReply(amqp.Delivery{Headers: w.handle(context.Background(), nil).Headers})
	require.Error(t, err)
	assert.Equal(t, "could not parse document", models.PublicMessage(err))
}

func TestDecodeReplyWithoutHeaders(t *testing.T) {
	_, err := decodeReply(amqp.Delivery{Body: []byte("%PDF")})
	assert.True(t, errors.Is(err, models.ErrEncodeFailed))
}
