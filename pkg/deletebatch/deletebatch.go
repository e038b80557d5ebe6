// Package deletebatch starts bulk case instance deletions as batches.
//
// Start splits the instances into parts, persists the batch and its parts,
// and schedules a completion monitor for the batch, all in one transaction.
// Part executors read the instance ids of a part with PartInstanceIDs and
// report back through CompleteBatchPart.
package deletebatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jdziat/simple-durable-batches/pkg/core"
	"github.com/jdziat/simple-durable-batches/pkg/monitor"
	"github.com/jdziat/simple-durable-batches/pkg/queue"
)

const (
	// DefaultPartSize is the number of instances per part.
	DefaultPartSize = 100

	// DefaultCheckInterval is how often the monitor checks the batch.
	DefaultCheckInterval = 10 * time.Second
)

// Scheduler creates timer jobs inside a caller's transaction.
type Scheduler interface {
	ScheduleTx(ctx context.Context, tx core.Storage, handlerType, configuration string, opts ...queue.Option) (*core.TimerJob, error)
}

// Request describes one bulk deletion.
type Request struct {
	InstanceIDs   []string
	PartSize      int
	CheckInterval time.Duration
	SearchKey     string

	// MonitorType and PartType default to the monitor package's tags.
	MonitorType string
	PartType    string
}

// Result is what Start created.
type Result struct {
	Batch *core.Batch
	Parts []*core.BatchPart
	Job   *core.TimerJob
}

type batchDocument struct {
	InstanceIDs []string `json:"instanceIds"`
	PartSize    int      `json:"partSize"`
}

type partDocument struct {
	InstanceIDs []string `json:"instanceIds"`
}

// Start creates the batch, its parts and the monitor job.
//
// Parts exist before the monitor is scheduled, so the monitor never sees a
// partially created batch. A request without instances still creates the
// batch and monitor; the first tick completes it.
func Start(ctx context.Context, store core.Storage, scheduler Scheduler, req Request) (*Result, error) {
	req = withDefaults(req)

	doc, err := json.Marshal(batchDocument{InstanceIDs: req.InstanceIDs, PartSize: req.PartSize})
	if err != nil {
		return nil, fmt.Errorf("batches: encode batch document: %w", err)
	}

	result := &Result{}
	err = store.InTransaction(ctx, func(tx core.Storage) error {
		batch := &core.Batch{
			Type:      monitor.BatchType,
			SearchKey: req.SearchKey,
			Status:    core.BatchStatusInProgress,
			Document:  doc,
		}
		if err := tx.CreateBatch(ctx, batch); err != nil {
			return err
		}

		parts, err := buildParts(batch.ID, req)
		if err != nil {
			return err
		}
		if err := tx.CreateBatchParts(ctx, parts); err != nil {
			return err
		}

		job, err := scheduler.ScheduleTx(ctx, tx, req.MonitorType, batch.ID,
			queue.Every(req.CheckInterval),
			queue.Scope(batch.ID, monitor.BatchType),
		)
		if err != nil {
			return err
		}

		result.Batch, result.Parts, result.Job = batch, parts, job
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("batches: start delete batch: %w", err)
	}
	return result, nil
}

func withDefaults(req Request) Request {
	if req.PartSize <= 0 {
		req.PartSize = DefaultPartSize
	}
	if req.CheckInterval <= 0 {
		req.CheckInterval = DefaultCheckInterval
	}
	if req.MonitorType == "" {
		req.MonitorType = monitor.HandlerType
	}
	if req.PartType == "" {
		req.PartType = monitor.PartType
	}
	return req
}

func buildParts(batchID string, req Request) ([]*core.BatchPart, error) {
	var parts []*core.BatchPart
	for start := 0; start < len(req.InstanceIDs); start += req.PartSize {
		end := min(start+req.PartSize, len(req.InstanceIDs))
		doc, err := json.Marshal(partDocument{InstanceIDs: req.InstanceIDs[start:end]})
		if err != nil {
			return nil, fmt.Errorf("batches: encode part document: %w", err)
		}
		parts = append(parts, &core.BatchPart{
			BatchID:   batchID,
			Type:      req.PartType,
			Status:    core.PartStatusWaiting,
			SearchKey: req.SearchKey,
			Document:  doc,
		})
	}
	return parts, nil
}

// PartInstanceIDs returns the instance ids a part covers.
func PartInstanceIDs(part *core.BatchPart) ([]string, error) {
	var doc partDocument
	if err := json.Unmarshal(part.Document, &doc); err != nil {
		return nil, fmt.Errorf("batches: decode part %s: %w", part.ID, err)
	}
	return doc.InstanceIDs, nil
}
