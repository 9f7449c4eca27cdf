package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheSetGetDel(t *testing.T) {
	c, err := New(100, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	c.Set("1:XAUUSD", 42)
	c.Wait()

	v, ok := c.Get("1:XAUUSD")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	c.Del("1:XAUUSD")
	_, ok = c.Get("1:XAUUSD")
	assert.False(t, ok)
}

func TestCacheClear(t *testing.T) {
	c, err := New(100, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	c.Set("a", 1)
	c.Set("b", 2)
	c.Wait()
	c.Clear()

	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("b")
	assert.False(t, ok)
}
