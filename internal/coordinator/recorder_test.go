package coordinator

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestRecorderDropsJobsAfterClose(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	r := newRecorder(log, 1)

	ran := make(chan struct{}, 1)
	assert.True(t, r.enqueue(func(context.Context) { ran <- struct{}{} }))
	r.close()

	select {
	case <-ran:
	default:
		t.Fatal("queued job did not run before close returned")
	}
	assert.False(t, r.enqueue(func(context.Context) {}))
	r.close()
}
