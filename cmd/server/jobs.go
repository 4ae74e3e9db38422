package main

import (
	"context"
	"sync"
)

type backgroundJob interface {
	Start(ctx context.Context)
}

// jobGroup 管理后台任务的生命周期，stop 返回时所有任务都已退出
type jobGroup struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func startJobs(parent context.Context, jobs ...backgroundJob) *jobGroup {
	ctx, cancel := context.WithCancel(parent)
	g := &jobGroup{cancel: cancel}
	for _, j := range jobs {
		g.wg.Add(1)
		go func(j backgroundJob) {
			defer g.wg.Done()
			j.Start(ctx)
		}(j)
	}
	return g
}

// stop 可以重复调用
func (g *jobGroup) stop() {
	g.cancel()
	g.wg.Wait()
}
