package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProducer_NilProducerIsNoop(t *testing.T) {
	var p *Producer

	// 事件发送未启用时调用方无需判空
	assert.NoError(t, p.SendAuditEvent(&AuditEvent{
		Operation: "ingest",
		IndexName: "contracts",
		Outcome:   "success",
		Timestamp: time.Now(),
	}))
	assert.NoError(t, p.Close())
}
