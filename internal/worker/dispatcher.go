// internal/worker/dispatcher.go
// 背景派送 - 在 HTTP 回應後執行寄送

package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"mail-dispatch/internal/config"
	"mail-dispatch/internal/models"
	"mail-dispatch/internal/services"
	"mail-dispatch/pkg/redact"
)

var (
	ErrQueueFull        = errors.New("dispatch queue is full")
	ErrDispatcherClosed = errors.New("dispatcher is shut down")
)

// Result 單次派送結果
type Result struct {
	Job      *models.DispatchJob
	Provider string
	Status   models.DispatchStatus
	Err      error
	Duration time.Duration
}

// CompletionFunc 派送完成 (成功或失敗) 時呼叫
type CompletionFunc func(Result)

// Dispatcher 有界的背景派送器
// 固定數量的 worker 消費記憶體佇列，佇列滿時 Submit 直接回傳 ErrQueueFull
type Dispatcher struct {
	cfg       *config.Config
	sender    services.MailSender
	callbacks []CompletionFunc
	jobs      chan *models.DispatchJob

	isShutdown bool
	activeJobs int
	mu         sync.Mutex
	wg         sync.WaitGroup
	startOnce  sync.Once
	closeOnce  sync.Once
}

// NewDispatcher 建立 Dispatcher
func NewDispatcher(cfg *config.Config, sender services.MailSender, callbacks ...CompletionFunc) *Dispatcher {
	queueSize := cfg.DispatchQueueSize
	if queueSize < 1 {
		queueSize = 1
	}

	return &Dispatcher{
		cfg:       cfg,
		sender:    sender,
		callbacks: callbacks,
		jobs:      make(chan *models.DispatchJob, queueSize),
	}
}

// Start 啟動 worker
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		workers := d.cfg.DispatchWorkers
		if workers < 1 {
			workers = 1
		}

		for i := 0; i < workers; i++ {
			d.wg.Add(1)
			go d.processJobs()
		}

		log.Printf("[Dispatch] started %d workers (queue size %d, provider %s)",
			workers, cap(d.jobs), d.sender.Name())
	})
}

// Submit 排入派送工作，不會阻塞
func (d *Dispatcher) Submit(job *models.DispatchJob) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.isShutdown {
		return ErrDispatcherClosed
	}

	select {
	case d.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// QueueDepth 佇列中等待的工作數
func (d *Dispatcher) QueueDepth() int {
	return len(d.jobs)
}

// ActiveJobs 正在寄送的工作數
func (d *Dispatcher) ActiveJobs() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.activeJobs
}

// processJobs 處理佇列
func (d *Dispatcher) processJobs() {
	defer d.wg.Done()

	for job := range d.jobs {
		d.handleJob(job)
	}
}

// handleJob 處理單一工作
func (d *Dispatcher) handleJob(job *models.DispatchJob) {
	d.mu.Lock()
	d.activeJobs++
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.activeJobs--
		d.mu.Unlock()
	}()

	ctx := context.Background()
	if d.cfg.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.SendTimeout)
		defer cancel()
	}

	log.Printf("[Dispatch] sending %s (template: %s, to: %s)",
		job.ID, job.TemplateID, redact.Emails(job.ToAddresses))

	start := time.Now()
	err := d.send(ctx, job)
	result := Result{
		Job:      job,
		Provider: d.sender.Name(),
		Status:   models.DispatchStatusSent,
		Err:      err,
		Duration: time.Since(start),
	}

	if err != nil {
		result.Status = models.DispatchStatusFailed
		log.Printf("[Dispatch] %s %s after %v: %v", result.Status, job.ID, result.Duration, err)
	} else {
		log.Printf("[Dispatch] %s %s via %s in %v", result.Status, job.ID, result.Provider, result.Duration)
	}

	d.notify(result)
}

// send 呼叫 MailSender，panic 轉為錯誤
func (d *Dispatcher) send(ctx context.Context, job *models.DispatchJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sender panic: %v", r)
		}
	}()
	return d.sender.SendMail(ctx, job)
}

// notify 通知所有 callback
func (d *Dispatcher) notify(result Result) {
	for _, cb := range d.callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[Dispatch] completion callback panic for %s: %v", result.Job.ID, r)
				}
			}()
			cb(result)
		}()
	}
}

// GracefulShutdown 優雅關機
// 停止接收新工作，等待佇列中與進行中的工作完成，直到 ctx 結束
func (d *Dispatcher) GracefulShutdown(ctx context.Context) error {
	log.Println("[Dispatch] Initiating graceful shutdown...")

	d.mu.Lock()
	d.isShutdown = true
	d.mu.Unlock()

	d.closeOnce.Do(func() { close(d.jobs) })

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("[Dispatch] shutdown complete")
		return nil
	case <-ctx.Done():
		log.Printf("[Dispatch] shutdown timeout, %d jobs still queued, %d active", d.QueueDepth(), d.ActiveJobs())
		return ctx.Err()
	}
}
