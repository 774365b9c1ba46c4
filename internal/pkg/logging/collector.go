package logging

import (
	"context"
	"sync"
)

type collectorKey struct{}

// Collector 请求级 SQL 采集器
// 挂在请求上下文中，由 gorm 日志回调填充，请求结束后统一批量落库
type Collector struct {
	mu     sync.Mutex
	events []SQLEvent
}

func (c *Collector) Add(e SQLEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

// Drain 取走全部已采集事件
func (c *Collector) Drain() []SQLEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	events := c.events
	c.events = nil
	return events
}

// WithCollector 在上下文中挂一个新的采集器
func WithCollector(ctx context.Context) (context.Context, *Collector) {
	c := &Collector{}
	return context.WithValue(ctx, collectorKey{}, c), c
}

// CollectorFrom 取出上下文中的采集器，没有则返回 nil
func CollectorFrom(ctx context.Context) *Collector {
	if ctx == nil {
		return nil
	}
	c, _ := ctx.Value(collectorKey{}).(*Collector)
	return c
}
