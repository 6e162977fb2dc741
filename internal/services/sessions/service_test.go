package sessions_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/chatgate/chat-service/internal/domain/errors"
	"github.com/chatgate/chat-service/internal/domain/models"
	"github.com/chatgate/chat-service/internal/services/sessions"
)

// memStore is an in-memory SessionsStore for tests.
type memStore struct {
	mu   sync.Mutex
	docs map[string]models.Session
}

func newMemStore() *memStore {
	return &memStore{docs: make(map[string]models.Session)}
}

func (m *memStore) Put(ctx context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[session.SessionID] = *session
	return nil
}

func (m *memStore) Get(ctx context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, nil
	}
	return &doc, nil
}

func (m *memStore) ListByUser(ctx context.Context, userID string, limit int64) ([]*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.Session
	for _, doc := range m.docs {
		if doc.UserID == userID {
			d := doc
			out = append(out, &d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	return nil
}

func (m *memStore) EnsureIndexes(ctx context.Context) error {
	return nil
}

func newTestService(t *testing.T, store *memStore) sessions.Service {
	t.Helper()

	svc, err := sessions.NewService(&sessions.Config{
		Store:   store,
		IdleTTL: 30 * time.Minute,
	})
	require.NoError(t, err)
	return svc
}

// plant stores a session built from the given fields.
func plant(t *testing.T, store *memStore, session models.Session) {
	t.Helper()
	require.NoError(t, store.Put(context.Background(), &session))
}

func activeSession(sessionID, userID string) models.Session {
	now := time.Now().UTC()
	return models.Session{
		SessionID:            sessionID,
		UserID:               userID,
		Status:               models.SessionStatusActive,
		CreatedAt:            now,
		LastActivityAt:       now,
		ExpiresAt:            now.Add(30 * time.Minute),
		MaxDurationInMinutes: models.MaxSessionDurationMinutes,
	}
}

func TestNewService_Validation(t *testing.T) {
	_, err := sessions.NewService(nil)
	assert.Error(t, err)

	_, err = sessions.NewService(&sessions.Config{})
	assert.Error(t, err)
}

func TestService_EnsureSession_CreatesWhenAbsent(t *testing.T) {
	// Arrange
	svc := newTestService(t, newMemStore())

	// Act
	session, err := svc.EnsureSession(context.Background(), "user-1", "")

	// Assert
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.True(t, strings.HasPrefix(session.SessionID, "sess_"))
	assert.Equal(t, "user-1", session.UserID)
	assert.Equal(t, models.SessionStatusActive, session.Status)
	assert.True(t, session.ExpiresAt.After(time.Now().UTC()))
}

func TestService_EnsureSession_UnknownIDCreatesFresh(t *testing.T) {
	svc := newTestService(t, newMemStore())

	session, err := svc.EnsureSession(context.Background(), "user-1", "sess_missing")

	require.NoError(t, err)
	require.NotNil(t, session)
	assert.NotEqual(t, "sess_missing", session.SessionID)
	assert.Equal(t, models.SessionStatusActive, session.Status)
}

func TestService_EnsureSession_ActiveIsExtended(t *testing.T) {
	// Arrange
	store := newMemStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	first, err := svc.EnsureSession(ctx, "user-1", "")
	require.NoError(t, err)

	// Act
	second, err := svc.EnsureSession(ctx, "user-1", first.SessionID)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, models.SessionStatusActive, second.Status)
	assert.False(t, second.ExpiresAt.Before(first.ExpiresAt))
}

func TestService_EnsureSession_InactiveReactivates(t *testing.T) {
	// Arrange
	store := newMemStore()
	svc := newTestService(t, store)

	inactive := activeSession("sess_1", "user-1")
	inactive.Status = models.SessionStatusInactive
	plant(t, store, inactive)

	// Act
	session, err := svc.EnsureSession(context.Background(), "user-1", "sess_1")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "sess_1", session.SessionID)
	assert.Equal(t, models.SessionStatusActive, session.Status)
}

func TestService_EnsureSession_SuspendedIsRefused(t *testing.T) {
	// Arrange
	store := newMemStore()
	svc := newTestService(t, store)

	suspended := activeSession("sess_1", "user-1")
	suspended.Status = models.SessionStatusSuspended
	plant(t, store, suspended)

	// Act
	session, err := svc.EnsureSession(context.Background(), "user-1", "sess_1")

	// Assert
	assert.Nil(t, session)
	require.Error(t, err)
	domainErr, ok := domainerrors.GetDomainError(err)
	require.True(t, ok)
	assert.Equal(t, domainerrors.ErrCodeAuthorization, domainErr.Code)
}

func TestService_EnsureSession_ForeignUserIsRefused(t *testing.T) {
	// Arrange
	store := newMemStore()
	svc := newTestService(t, store)
	plant(t, store, activeSession("sess_1", "user-2"))

	// Act
	session, err := svc.EnsureSession(context.Background(), "user-1", "sess_1")

	// Assert
	assert.Nil(t, session)
	require.Error(t, err)
	domainErr, ok := domainerrors.GetDomainError(err)
	require.True(t, ok)
	assert.Equal(t, domainerrors.ErrCodeAuthorization, domainErr.Code)
}

func TestService_EnsureSession_ExpiredYieldsFresh(t *testing.T) {
	// Arrange
	store := newMemStore()
	svc := newTestService(t, store)

	expired := activeSession("sess_1", "user-1")
	expired.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	plant(t, store, expired)

	// Act
	session, err := svc.EnsureSession(context.Background(), "user-1", "sess_1")

	// Assert
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.NotEqual(t, "sess_1", session.SessionID)
	assert.Equal(t, models.SessionStatusActive, session.Status)
}

func TestService_Get_MarksExpiredOnRead(t *testing.T) {
	// Arrange
	store := newMemStore()
	svc := newTestService(t, store)

	stale := activeSession("sess_1", "user-1")
	stale.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	plant(t, store, stale)

	// Act
	session, err := svc.Get(context.Background(), "sess_1")

	// Assert
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, models.SessionStatusExpired, session.Status)
}

func TestService_Get_NeverMasksSuspension(t *testing.T) {
	// Arrange
	store := newMemStore()
	svc := newTestService(t, store)

	suspended := activeSession("sess_1", "user-1")
	suspended.Status = models.SessionStatusSuspended
	suspended.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	plant(t, store, suspended)

	// Act
	session, err := svc.Get(context.Background(), "sess_1")

	// Assert
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, models.SessionStatusSuspended, session.Status)
}

func TestService_Touch_CapsAtHardDeadline(t *testing.T) {
	// Arrange: the session's total lifetime ends in one minute
	store := newMemStore()
	svc := newTestService(t, store)

	short := activeSession("sess_1", "user-1")
	short.MaxDurationInMinutes = 1
	plant(t, store, short)

	// Act
	session, err := svc.Touch(context.Background(), "sess_1")

	// Assert
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.WithinDuration(t, session.HardDeadline(), session.ExpiresAt, time.Second)
}

func TestService_Touch_AbsentReturnsNil(t *testing.T) {
	svc := newTestService(t, newMemStore())

	session, err := svc.Touch(context.Background(), "missing")

	assert.NoError(t, err)
	assert.Nil(t, session)
}

func TestService_OperatorTransitions(t *testing.T) {
	// Arrange
	store := newMemStore()
	svc := newTestService(t, store)
	ctx := context.Background()
	plant(t, store, activeSession("sess_1", "user-1"))

	// Act / Assert
	session, err := svc.Suspend(ctx, "sess_1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusSuspended, session.Status)

	session, err = svc.Reactivate(ctx, "sess_1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusActive, session.Status)

	session, err = svc.Deactivate(ctx, "sess_1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusInactive, session.Status)
}

func TestService_Transitions_NotFound(t *testing.T) {
	svc := newTestService(t, newMemStore())
	ctx := context.Background()

	_, err := svc.Suspend(ctx, "missing")
	assert.True(t, domainerrors.IsNotFound(err))

	_, err = svc.Deactivate(ctx, "missing")
	assert.True(t, domainerrors.IsNotFound(err))

	_, err = svc.Reactivate(ctx, "missing")
	assert.True(t, domainerrors.IsNotFound(err))
}

func TestService_Reactivate_PastHardDeadline(t *testing.T) {
	// Arrange
	store := newMemStore()
	svc := newTestService(t, store)

	dead := activeSession("sess_1", "user-1")
	dead.CreatedAt = time.Now().UTC().Add(-25 * time.Hour)
	dead.Status = models.SessionStatusSuspended
	plant(t, store, dead)

	// Act
	_, err := svc.Reactivate(context.Background(), "sess_1")

	// Assert
	require.Error(t, err)
	assert.True(t, domainerrors.IsValidationError(err))
}

func TestService_ListByUser(t *testing.T) {
	// Arrange
	store := newMemStore()
	svc := newTestService(t, store)

	oldest := activeSession("sess_1", "user-1")
	oldest.CreatedAt = time.Now().UTC().Add(-time.Hour)
	plant(t, store, oldest)
	plant(t, store, activeSession("sess_2", "user-1"))
	plant(t, store, activeSession("sess_3", "user-2"))

	// Act
	list, err := svc.ListByUser(context.Background(), "user-1", 10)

	// Assert
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "sess_2", list[0].SessionID)
	assert.Equal(t, "sess_1", list[1].SessionID)
}
