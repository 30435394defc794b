package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dukerupert/wedplan/internal/metrics"
	"github.com/dukerupert/wedplan/internal/model"
	"github.com/dukerupert/wedplan/internal/store"
)

var (
	ErrDisabled           = errors.New("backup not configured: S3 credentials missing")
	ErrNotFound           = errors.New("backup not found")
	ErrBusy               = errors.New("backup already in progress")
	ErrPassphraseRequired = errors.New("passphrase is required")
	ErrNotRestorable      = errors.New("backup did not complete")
	ErrWrongPassphrase    = errors.New("wrong passphrase or corrupted backup")
)

// snapshotVersion is bumped when the snapshot layout changes.
const snapshotVersion = 1

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Snapshotter reads and replaces every stored key at once.
type Snapshotter interface {
	All() (map[string]json.RawMessage, error)
	ReplaceAll(docs map[string]json.RawMessage) error
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

func (c S3Config) configured() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// Config holds backup manager configuration. Passphrase is only used by
// scheduled backups; manual runs pass their own.
type Config struct {
	S3            S3Config
	Passphrase    string
	RetentionDays int
}

// State represents the backup manager state.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

// Status holds the current backup manager status.
type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	Error      string     `json:"error,omitempty"`
	InProgress bool       `json:"in_progress"`
}

// StatusCallback is called whenever the backup state changes.
type StatusCallback func(Status)

// Snapshot is the plaintext document that gets encrypted and uploaded.
type Snapshot struct {
	Version   int                        `json:"version"`
	CreatedAt time.Time                  `json:"created_at"`
	Data      map[string]json.RawMessage `json:"data"`
}

// Manager manages encrypted snapshots of the key-value store on S3-compatible
// storage.
type Manager struct {
	mu       sync.RWMutex
	cfg      Config
	status   Status
	callback StatusCallback

	kv      Snapshotter
	backups *store.BackupStore
	client  s3Client
	now     func() time.Time
	logger  *slog.Logger
}

// NewManager creates a new backup manager. It is disabled unless the S3
// bucket and credentials are all set.
func NewManager(cfg Config, kv Snapshotter, bs *store.BackupStore, logger *slog.Logger, callback StatusCallback) *Manager {
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 30
	}
	m := &Manager{
		cfg:      cfg,
		kv:       kv,
		backups:  bs,
		callback: callback,
		status:   Status{State: StateDisabled},
		now:      time.Now,
		logger:   logger,
	}
	if cfg.S3.configured() {
		m.client = newS3Client(cfg.S3)
		m.status.State = StateIdle
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Enabled reports whether S3 storage is configured.
func (m *Manager) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client != nil
}

// Scheduled reports whether unattended backups can run.
func (m *Manager) Scheduled() bool {
	return m.Enabled() && m.cfg.Passphrase != ""
}

// Status returns the current backup status.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	if s.LastBackup == nil {
		s.LastBackup = m.status.LastBackup
	}
	m.status = s
	m.mu.Unlock()
	if m.callback != nil {
		m.callback(s)
	}
}

// begin claims the manager for one run. The check and the claim happen under
// one lock so concurrent callers cannot both win.
func (m *Manager) begin() (s3Client, error) {
	m.mu.Lock()
	if m.client == nil {
		m.mu.Unlock()
		return nil, ErrDisabled
	}
	if m.status.InProgress {
		m.mu.Unlock()
		return nil, ErrBusy
	}
	client := m.client
	m.status = Status{State: StateRunning, InProgress: true, LastBackup: m.status.LastBackup}
	s := m.status
	m.mu.Unlock()

	if m.callback != nil {
		m.callback(s)
	}
	return client, nil
}

// RunScheduled runs a backup with the configured passphrase and prunes old
// backups. It does nothing when no passphrase is configured.
func (m *Manager) RunScheduled(ctx context.Context) {
	if !m.Scheduled() {
		return
	}
	if _, err := m.RunNow(ctx, m.cfg.Passphrase); err != nil {
		m.logger.Error("scheduled backup failed", "error", err)
	}
	if err := m.Cleanup(ctx); err != nil {
		m.logger.Error("backup cleanup failed", "error", err)
	}
}

// RunNow snapshots every stored key, encrypts it with passphrase and uploads it.
func (m *Manager) RunNow(ctx context.Context, passphrase string) (*model.Backup, error) {
	if passphrase == "" {
		return nil, ErrPassphraseRequired
	}
	client, err := m.begin()
	if err != nil {
		return nil, err
	}

	now := m.now().UTC()
	s3Key := fmt.Sprintf("snapshots/%s.json.enc", now.Format("2006-01-02T150405Z"))

	record, err := m.backups.Create(s3Key)
	if err != nil {
		m.setStatus(Status{State: StateError, Error: err.Error()})
		metrics.IncrementBackup("failed")
		return nil, fmt.Errorf("create backup record: %w", err)
	}

	fail := func(err error) (*model.Backup, error) {
		if uerr := m.backups.UpdateStatus(record.ID, model.BackupStatusFailed, err.Error()); uerr != nil {
			m.logger.Error("mark backup failed", "id", record.ID, "error", uerr)
		}
		m.setStatus(Status{State: StateError, Error: err.Error()})
		metrics.IncrementBackup("failed")
		return nil, err
	}

	data, err := m.kv.All()
	if err != nil {
		return fail(fmt.Errorf("read store: %w", err))
	}
	plain, err := json.Marshal(Snapshot{Version: snapshotVersion, CreatedAt: now, Data: data})
	if err != nil {
		return fail(fmt.Errorf("encode snapshot: %w", err))
	}

	salt, err := GenerateSalt()
	if err != nil {
		return fail(err)
	}
	enc, err := Encrypt(plain, passphrase, salt)
	if err != nil {
		return fail(fmt.Errorf("encrypt: %w", err))
	}

	if err := m.backups.UpdateStatus(record.ID, model.BackupStatusUploading, ""); err != nil {
		m.logger.Error("mark backup uploading", "id", record.ID, "error", err)
	}
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.cfg.S3.Bucket),
		Key:           aws.String(s3Key),
		Body:          bytes.NewReader(enc),
		ContentLength: aws.Int64(int64(len(enc))),
	})
	if err != nil {
		return fail(fmt.Errorf("upload to s3: %w", err))
	}

	if err := m.backups.UpdateCompleted(record.ID, int64(len(enc)), len(data)); err != nil {
		m.logger.Error("mark backup completed", "id", record.ID, "error", err)
	}
	m.setStatus(Status{State: StateIdle, LastBackup: &now})
	metrics.IncrementBackup("completed")
	m.logger.Info("backup uploaded", "id", record.ID, "key", s3Key, "keys", len(data), "bytes", len(enc))

	return m.backups.GetByID(record.ID)
}

// Restore downloads a backup, decrypts it and replaces every stored key with
// the snapshot contents. The store is left untouched on any failure.
func (m *Manager) Restore(ctx context.Context, id int64, passphrase string) (*Snapshot, error) {
	if passphrase == "" {
		return nil, ErrPassphraseRequired
	}
	m.mu.RLock()
	client := m.client
	m.mu.RUnlock()
	if client == nil {
		return nil, ErrDisabled
	}

	record, err := m.backups.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("get backup: %w", err)
	}
	if record == nil {
		return nil, ErrNotFound
	}
	if record.Status != model.BackupStatusCompleted {
		return nil, ErrNotRestorable
	}

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.cfg.S3.Bucket),
		Key:    aws.String(record.S3Key),
	})
	if err != nil {
		return nil, fmt.Errorf("download from s3: %w", err)
	}
	defer result.Body.Close()

	enc, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("read backup: %w", err)
	}
	plain, err := Decrypt(enc, passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWrongPassphrase, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(plain, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}

	if err := m.kv.ReplaceAll(snap.Data); err != nil {
		return nil, fmt.Errorf("replace store: %w", err)
	}
	m.logger.Info("backup restored", "id", id, "keys", len(snap.Data))
	return &snap, nil
}

// List returns the most recent backups.
func (m *Manager) List(limit int) ([]model.Backup, error) {
	return m.backups.List(limit)
}

// Cleanup deletes backups older than the retention period, both the records
// and the stored objects.
func (m *Manager) Cleanup(ctx context.Context) error {
	m.mu.RLock()
	client := m.client
	m.mu.RUnlock()
	if client == nil {
		return nil
	}

	before := m.now().UTC().AddDate(0, 0, -m.cfg.RetentionDays)
	keys, err := m.backups.DeleteOlderThan(before)
	if err != nil {
		return fmt.Errorf("delete old backups: %w", err)
	}

	for _, key := range keys {
		if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(m.cfg.S3.Bucket),
			Key:    aws.String(key),
		}); err != nil {
			m.logger.Warn("delete s3 object", "key", key, "error", err)
		}
	}
	return nil
}
