package restoring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	audit_logs "tenantbase-backend/internal/features/audit_logs"
	"tenantbase-backend/internal/features/backups"
	restores_core "tenantbase-backend/internal/features/restores/core"
	"tenantbase-backend/internal/util/tools"
)

// Hand-written fakes for the orchestrator collaborators, used by the package
// tests.

type MockRestoreStore struct {
	mu       sync.Mutex
	restores map[uuid.UUID]*restores_core.Restore

	CreateErr error
	SaveErr   error

	// FailSaveOnStatus fails Save calls that try to persist the given status,
	// for exercising mid-phase persist failures.
	FailSaveOnStatus restores_core.RestoreStatus

	DueForCleanup []*restores_core.Restore
}

func NewMockRestoreStore() *MockRestoreStore {
	return &MockRestoreStore{restores: map[uuid.UUID]*restores_core.Restore{}}
}

func (m *MockRestoreStore) Create(restore *restores_core.Restore) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if restore.ID == uuid.Nil {
		restore.ID = uuid.New()
	}

	for _, existing := range m.restores {
		if existing.ProjectID == restore.ProjectID && !existing.Status.IsTerminal() {
			return restores_core.ErrRestoreAlreadyRunning
		}
	}

	clone := *restore
	m.restores[restore.ID] = &clone

	return nil
}

func (m *MockRestoreStore) Save(restore *restores_core.Restore) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	if m.FailSaveOnStatus != "" && restore.Status == m.FailSaveOnStatus {
		return ErrMockSaveFailure
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	clone := *restore
	m.restores[restore.ID] = &clone

	return nil
}

func (m *MockRestoreStore) FindByID(id uuid.UUID) (*restores_core.Restore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	restore, ok := m.restores[id]
	if !ok {
		return nil, fmt.Errorf("restore %s not found", id)
	}

	clone := *restore
	return &clone, nil
}

func (m *MockRestoreStore) FindByProjectID(
	projectID uuid.UUID,
	limit int,
	offset int,
) ([]*restores_core.Restore, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matches []*restores_core.Restore
	for _, restore := range m.restores {
		if restore.ProjectID == projectID {
			clone := *restore
			matches = append(matches, &clone)
		}
	}

	return matches, int64(len(matches)), nil
}

func (m *MockRestoreStore) FindDueForCleanup(now time.Time) ([]*restores_core.Restore, error) {
	return m.DueForCleanup, nil
}

// Get returns the stored state of a restore, bypassing errors configured for
// the store methods.
func (m *MockRestoreStore) Get(id uuid.UUID) *restores_core.Restore {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.restores[id]
}

type MockBackupProvider struct {
	Backup      *backups.Backup
	GetErr      error
	Payload     []byte
	DownloadErr error

	Snapshot    *backups.Backup
	SnapshotErr error

	EncryptedDataKey []byte
	DataKeyIV        []byte
	PayloadIV        []byte
	KeysErr          error
}

func (m *MockBackupProvider) GetBackup(id uuid.UUID) (*backups.Backup, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return m.Backup, nil
}

func (m *MockBackupProvider) CreateBackup(
	ctx context.Context,
	projectID uuid.UUID,
	reason string,
	createdBy string,
) (*backups.Backup, error) {
	if m.SnapshotErr != nil {
		return nil, m.SnapshotErr
	}
	return m.Snapshot, nil
}

func (m *MockBackupProvider) DownloadPayload(
	ctx context.Context,
	backup *backups.Backup,
) ([]byte, error) {
	if m.DownloadErr != nil {
		return nil, m.DownloadErr
	}
	return m.Payload, nil
}

func (m *MockBackupProvider) EnvelopeKeys(
	backup *backups.Backup,
) ([]byte, []byte, []byte, error) {
	if m.KeysErr != nil {
		return nil, nil, nil, m.KeysErr
	}
	return m.EncryptedDataKey, m.DataKeyIV, m.PayloadIV, nil
}

type MockProjectProvider struct {
	SchemaName string
	Err        error
}

func (m *MockProjectProvider) GetLiveSchemaName(projectID uuid.UUID) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return m.SchemaName, nil
}

// MockSchemaSession records every DDL call and can be told to fail specific
// renames or drops by schema name.
type MockSchemaSession struct {
	LockErr error

	// LockHook runs just before a successful acquisition, for exercising state
	// changes that land between the precondition check and the lock.
	LockHook func()

	RenameErrs map[string]error
	DropErrs   map[string]error

	// FailRenameCall fails the Nth RenameSchema call (1-based) with
	// FailRenameErr, for exercising mid-swap failures on generated names.
	FailRenameCall int
	FailRenameErr  error
	renameCalls    int

	ExistingSchemas map[string]bool
	ExistsErr       error

	Renames  [][2]string
	Drops    []string
	Locked   bool
	Released bool
	Closed   bool
}

func NewMockSchemaSession() *MockSchemaSession {
	return &MockSchemaSession{
		RenameErrs:      map[string]error{},
		DropErrs:        map[string]error{},
		ExistingSchemas: map[string]bool{},
	}
}

func (m *MockSchemaSession) TryAcquireLock(ctx context.Context, projectID uuid.UUID) error {
	if m.LockErr != nil {
		return m.LockErr
	}
	if m.LockHook != nil {
		m.LockHook()
	}
	m.Locked = true
	return nil
}

func (m *MockSchemaSession) ReleaseLock(ctx context.Context, projectID uuid.UUID) {
	m.Released = true
}

func (m *MockSchemaSession) RenameSchema(ctx context.Context, from, to string) error {
	m.renameCalls++
	if m.FailRenameCall > 0 && m.renameCalls == m.FailRenameCall {
		return m.FailRenameErr
	}
	if err := m.RenameErrs[from]; err != nil {
		return err
	}
	m.Renames = append(m.Renames, [2]string{from, to})
	return nil
}

func (m *MockSchemaSession) DropSchema(ctx context.Context, name string) error {
	if err := m.DropErrs[name]; err != nil {
		return err
	}
	m.Drops = append(m.Drops, name)
	return nil
}

func (m *MockSchemaSession) SchemaExists(ctx context.Context, name string) (bool, error) {
	if m.ExistsErr != nil {
		return false, m.ExistsErr
	}
	return m.ExistingSchemas[name], nil
}

func (m *MockSchemaSession) Close(ctx context.Context) {
	m.Closed = true
}

func MockSessionFactory(session SchemaSession) SessionFactory {
	return func(ctx context.Context) (SchemaSession, error) {
		return session, nil
	}
}

type MockSchemaValidator struct {
	Results *restores_core.ValidationResults
	Err     error

	RestoredSchema string
	OriginalSchema string
}

func (m *MockSchemaValidator) Validate(
	ctx context.Context,
	restoredSchema string,
	originalSchema string,
) (*restores_core.ValidationResults, error) {
	m.RestoredSchema = restoredSchema
	m.OriginalSchema = originalSchema

	if m.Err != nil {
		return nil, m.Err
	}
	return m.Results, nil
}

type MockPayloadStash struct {
	mu       sync.Mutex
	payloads map[uuid.UUID][]byte

	PutErr error
}

func NewMockPayloadStash() *MockPayloadStash {
	return &MockPayloadStash{payloads: map[uuid.UUID][]byte{}}
}

func (m *MockPayloadStash) Put(restoreID uuid.UUID, payload []byte) error {
	if m.PutErr != nil {
		return m.PutErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.payloads[restoreID] = payload

	return nil
}

func (m *MockPayloadStash) Take(restoreID uuid.UUID) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	payload := m.payloads[restoreID]
	delete(m.payloads, restoreID)

	return payload
}

func (m *MockPayloadStash) Peek(restoreID uuid.UUID) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.payloads[restoreID]
}

type RecordedAudit struct {
	Action    audit_logs.AuditAction
	ProjectID uuid.UUID
	RestoreID *uuid.UUID
	Details   audit_logs.AuditDetails
}

type MockAuditWriter struct {
	mu      sync.Mutex
	Entries []RecordedAudit
}

func (m *MockAuditWriter) Write(
	action audit_logs.AuditAction,
	projectID uuid.UUID,
	restoreID *uuid.UUID,
	details audit_logs.AuditDetails,
) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Entries = append(m.Entries, RecordedAudit{
		Action:    action,
		ProjectID: projectID,
		RestoreID: restoreID,
		Details:   details,
	})
}

func (m *MockAuditWriter) Actions() []audit_logs.AuditAction {
	m.mu.Lock()
	defer m.mu.Unlock()

	actions := make([]audit_logs.AuditAction, 0, len(m.Entries))
	for _, entry := range m.Entries {
		actions = append(actions, entry.Action)
	}

	return actions
}

type MockCommandRunner struct {
	Result *tools.CommandResult
	Err    error

	Name  string
	Args  []string
	Stdin []byte

	// CtxErr records ctx.Err() as seen at invocation time.
	CtxErr error
}

func (m *MockCommandRunner) Run(
	ctx context.Context,
	name string,
	args []string,
	stdin []byte,
	extraEnv []string,
) (*tools.CommandResult, error) {
	m.Name = name
	m.Args = args
	m.Stdin = stdin
	m.CtxErr = ctx.Err()

	if m.Err != nil {
		return m.Result, m.Err
	}

	if m.Result != nil {
		return m.Result, nil
	}

	return &tools.CommandResult{ExitCode: 0}, nil
}

var (
	ErrMockToolFailure = errors.New("mock restore tool failure")
	ErrMockSaveFailure = errors.New("mock save failure")
)
