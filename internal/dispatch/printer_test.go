package dispatch

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	batch := testBatch(2)
	p.Track(batch.Recipients)

	tr := &fakeTransport{failAt: map[int]error{2: errors.New("Recipient address rejected")}}
	c := newTestController(tr, nil, WithObserver(p))

	_, err := c.Run(context.Background(), Request{Template: testTemplate(), Batch: batch, Settings: validSettings()})
	require.NoError(t, err)

	assert.Equal(t,
		"[1/2] sent   Acme <acme@example.jp>\n"+
			"[2/2] error  Globex <globex@example.jp>: Recipient address rejected\n"+
			"Sent 1 of 2\n",
		buf.String())
}
