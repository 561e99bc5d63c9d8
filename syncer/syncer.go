/*
Package syncer reconciles the local store with the remote API.

PURPOSE:
  Two directions, run separately or back to back:

  Push:  drain the sync queue in original append order, replaying each
         entry against the remote transport. Offline-created records
         (local_ IDs) have the local identifier stripped before the POST;
         on success the provisional local record is replaced by the
         server's copy - without producing new queue entries.
  Pull:  hydrate the offline collections by fetching each remote list and
         atomically replacing the local collection contents.

FAILURE POLICY:
  Entries are independent: a failed replay increments that entry's retry
  counter and the drain moves on. After MaxQueueRetries failures an entry
  is parked (excluded from Pending) rather than blocking the queue.

COLLISIONS:
  Offline document numbers are only locally unique. Resolving collisions
  between devices is the server's concern; this package just replays.

SEE ALSO:
  - generic/store.go: Queue contract
  - erp/registry.go:  Collection-to-path mapping
*/
package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/erp-offline/erp"
	"github.com/warp/erp-offline/generic"
)

// Settings keys for sync bookkeeping.
const (
	SettingLastPush = "lastSync"
	SettingLastPull = "lastDownload"
)

// bookkeepingFields are internal markers stripped from payloads before
// they reach the server.
var bookkeepingFields = []string{"_stockApplied", "_synced", "_updatedAt"}

// Syncer drains the queue and hydrates the local store.
type Syncer struct {
	Local    generic.Store
	Queue    generic.Queue
	Remote   generic.Transport
	Settings generic.Settings
	Log      *logrus.Logger

	mu      sync.Mutex
	running bool
}

// Result summarizes one push or pull run.
type Result struct {
	Synced     int `json:"synced"`
	Failed     int `json:"failed"`
	Downloaded int `json:"downloaded"`
}

// Status is the sync state reported to the UI.
type Status struct {
	PendingCount int    `json:"pendingCount"`
	InProgress   bool   `json:"inProgress"`
	LastPush     string `json:"lastPush,omitempty"`
	LastPull     string `json:"lastPull,omitempty"`
}

func New(local generic.Store, queue generic.Queue, remote generic.Transport, settings generic.Settings, log *logrus.Logger) *Syncer {
	if log == nil {
		log = logrus.New()
	}
	return &Syncer{Local: local, Queue: queue, Remote: remote, Settings: settings, Log: log}
}

// Push replays pending queue entries against the server, in order.
func (s *Syncer) Push(ctx context.Context) (Result, error) {
	release, err := s.acquire()
	if err != nil {
		return Result{}, err
	}
	defer release()

	pending, err := s.Queue.Pending(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read pending queue: %w", err)
	}

	var res Result
	for _, entry := range pending {
		if err := s.replay(ctx, entry); err != nil {
			s.Log.WithFields(logrus.Fields{
				"entry": entry.ID,
				"store": entry.Store,
				"op":    entry.Op,
			}).WithError(err).Warn("sync replay failed")
			if rerr := s.Queue.IncrementRetry(ctx, entry.ID); rerr != nil {
				return res, rerr
			}
			res.Failed++
			continue
		}
		if err := s.Queue.MarkSynced(ctx, entry.ID); err != nil {
			return res, err
		}
		res.Synced++
	}

	if err := s.Settings.PutSetting(ctx, SettingLastPush, generic.Now().Format(time.RFC3339)); err != nil {
		return res, err
	}
	return res, nil
}

// replay applies one queue entry to the server.
func (s *Syncer) replay(ctx context.Context, entry generic.QueueEntry) error {
	path := erp.RemotePath(entry.Store)
	if path == "" {
		// Collection with no remote counterpart; nothing to replay.
		return nil
	}

	payload := entry.Payload.DeepClone()
	for _, field := range bookkeepingFields {
		delete(payload, field)
	}

	switch entry.Op {
	case generic.OpCreate:
		wasLocal := generic.IsLocalID(entry.RecordID)
		if wasLocal {
			delete(payload, generic.IDField)
		}
		serverRec, err := s.Remote.Create(ctx, path, payload)
		if err != nil {
			return err
		}
		if wasLocal && serverRec.ID() != "" {
			// Promote: swap the provisional record for the server's copy.
			if err := s.Local.Delete(ctx, entry.Store, entry.RecordID); err != nil {
				return err
			}
			if err := s.Local.Put(ctx, entry.Store, serverRec); err != nil {
				return err
			}
		}
		return nil

	case generic.OpUpdate:
		_, err := s.Remote.Update(ctx, path, entry.RecordID, payload)
		return err

	case generic.OpDelete:
		return s.Remote.Delete(ctx, path, entry.RecordID)

	default:
		return fmt.Errorf("unknown queue op %q", entry.Op)
	}
}

// Pull hydrates the offline collections from the server. Each collection's
// local contents are replaced wholesale by the server's list.
func (s *Syncer) Pull(ctx context.Context) (Result, error) {
	release, err := s.acquire()
	if err != nil {
		return Result{}, err
	}
	defer release()

	var res Result
	for _, store := range erp.OfflineCollections() {
		recs, err := s.Remote.List(ctx, erp.RemotePath(store))
		if err != nil {
			s.Log.WithField("store", store).WithError(err).Warn("download failed, collection kept")
			res.Failed++
			continue
		}
		if err := s.Local.ReplaceAll(ctx, store, recs); err != nil {
			return res, fmt.Errorf("failed to replace %s: %w", store, err)
		}
		res.Downloaded++
	}

	if err := s.Settings.PutSetting(ctx, SettingLastPull, generic.Now().Format(time.RFC3339)); err != nil {
		return res, err
	}
	return res, nil
}

// Status reports queue depth and last run times.
func (s *Syncer) Status(ctx context.Context) (Status, error) {
	pending, err := s.Queue.Pending(ctx)
	if err != nil {
		return Status{}, err
	}
	lastPush, err := s.Settings.GetSetting(ctx, SettingLastPush)
	if err != nil {
		return Status{}, err
	}
	lastPull, err := s.Settings.GetSetting(ctx, SettingLastPull)
	if err != nil {
		return Status{}, err
	}

	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	return Status{
		PendingCount: len(pending),
		InProgress:   running,
		LastPush:     lastPush,
		LastPull:     lastPull,
	}, nil
}

// ErrSyncInProgress is returned when a push or pull overlaps another run.
var ErrSyncInProgress = fmt.Errorf("sync already in progress")

func (s *Syncer) acquire() (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil, ErrSyncInProgress
	}
	s.running = true
	return func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}, nil
}
