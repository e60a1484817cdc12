package workerspool

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubmitRunsOnWorker(t *testing.T) {
	p := New(4)
	defer p.Close()

	var count atomic.Int32
	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		p.Submit(func(workerID int) {
			assert.GreaterOrEqual(t, workerID, 0)
			assert.Less(t, workerID, p.Size())
			if count.Add(1) == 10 {
				close(done)
			}
		})
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("not all tasks ran")
	}
}

func TestClose(t *testing.T) {
	p := New(2)
	p.Close()
	p.Close() // idempotent
}
