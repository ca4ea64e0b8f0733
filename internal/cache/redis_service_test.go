package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisService_NilClientDegradesGracefully(t *testing.T) {
	service := NewRedisService(nil)
	ctx := context.Background()

	// 写入静默跳过
	assert.NoError(t, service.SetCache(ctx, "key", "value", time.Minute))

	// 读取返回未命中
	var dest string
	found, err := service.GetCache(ctx, "key", &dest)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, dest)

	assert.NoError(t, service.DeleteCache(ctx, "key"))
}
