package v1_test

import (
	"context"

	"github.com/google/uuid"

	"github.com/casefront/engage/internal/domain"
	"github.com/casefront/engage/internal/intake"
	"github.com/casefront/engage/internal/server/middleware"
)

func fixedFirmID() uuid.UUID {
	return uuid.MustParse("11111111-1111-1111-1111-111111111111")
}

func fixedUserID() uuid.UUID {
	return uuid.MustParse("22222222-2222-2222-2222-222222222222")
}

// ---------------------------------------------------------------------------
// Context helpers: inject firm/user/role into context for DoCtx
// ---------------------------------------------------------------------------

func firmCtx(firmID uuid.UUID) context.Context {
	ctx := context.Background()
	ctx = context.WithValue(ctx, middleware.ContextKeyFirmID, firmID)
	return ctx
}

func staffCtx(firmID, userID uuid.UUID) context.Context {
	ctx := firmCtx(firmID)
	ctx = context.WithValue(ctx, middleware.ContextKeyUserID, userID)
	ctx = context.WithValue(ctx, middleware.ContextKeyUserRole, middleware.RoleStaff)
	return ctx
}

func adminCtx(firmID uuid.UUID) context.Context {
	ctx := firmCtx(firmID)
	ctx = context.WithValue(ctx, middleware.ContextKeyUserID, fixedUserID())
	ctx = context.WithValue(ctx, middleware.ContextKeyUserRole, middleware.RoleAdmin)
	return ctx
}

// ---------------------------------------------------------------------------
// Mock DataStore
// ---------------------------------------------------------------------------

type mockDataStore struct {
	firms    domain.FirmRepository
	users    domain.UserRepository
	sessions domain.SessionRepository
	audit    domain.AuditRepository
}

func (m *mockDataStore) Firms() domain.FirmRepository       { return m.firms }
func (m *mockDataStore) Users() domain.UserRepository       { return m.users }
func (m *mockDataStore) Sessions() domain.SessionRepository { return m.sessions }
func (m *mockDataStore) Audit() domain.AuditRepository      { return m.audit }

// ---------------------------------------------------------------------------
// Mock FirmRepository
// ---------------------------------------------------------------------------

type mockFirmRepo struct {
	createFunc    func(ctx context.Context, f *domain.Firm) error
	getByIDFunc   func(ctx context.Context, id uuid.UUID) (*domain.Firm, error)
	getBySlugFunc func(ctx context.Context, slug string) (*domain.Firm, error)
	updateFunc    func(ctx context.Context, f *domain.Firm) error
	listFunc      func(ctx context.Context) ([]*domain.Firm, error)
}

func (m *mockFirmRepo) Create(ctx context.Context, f *domain.Firm) error {
	return m.createFunc(ctx, f)
}

func (m *mockFirmRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Firm, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockFirmRepo) GetBySlug(ctx context.Context, slug string) (*domain.Firm, error) {
	return m.getBySlugFunc(ctx, slug)
}

func (m *mockFirmRepo) Update(ctx context.Context, f *domain.Firm) error {
	return m.updateFunc(ctx, f)
}

func (m *mockFirmRepo) List(ctx context.Context) ([]*domain.Firm, error) {
	return m.listFunc(ctx)
}

// ---------------------------------------------------------------------------
// Mock UserRepository
// ---------------------------------------------------------------------------

type mockUserRepo struct {
	createFunc     func(ctx context.Context, u *domain.User) error
	getByIDFunc    func(ctx context.Context, firmID, id uuid.UUID) (*domain.User, error)
	getByEmailFunc func(ctx context.Context, firmID uuid.UUID, email string) (*domain.User, error)
	listByFirmFunc func(ctx context.Context, firmID uuid.UUID) ([]*domain.User, error)
	countAllFunc   func(ctx context.Context) (int, error)
}

func (m *mockUserRepo) Create(ctx context.Context, u *domain.User) error {
	return m.createFunc(ctx, u)
}

func (m *mockUserRepo) GetByID(ctx context.Context, firmID, id uuid.UUID) (*domain.User, error) {
	return m.getByIDFunc(ctx, firmID, id)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, firmID uuid.UUID, email string) (*domain.User, error) {
	return m.getByEmailFunc(ctx, firmID, email)
}

func (m *mockUserRepo) ListByFirm(ctx context.Context, firmID uuid.UUID) ([]*domain.User, error) {
	return m.listByFirmFunc(ctx, firmID)
}

func (m *mockUserRepo) CountAll(ctx context.Context) (int, error) {
	return m.countAllFunc(ctx)
}

// ---------------------------------------------------------------------------
// Mock SessionRepository
// ---------------------------------------------------------------------------

type mockSessionRepo struct {
	createFunc               func(ctx context.Context, s *domain.IntakeSession) error
	getByIDFunc              func(ctx context.Context, id uuid.UUID) (*domain.IntakeSession, error)
	getByResumeTokenHashFunc func(ctx context.Context, hash string) (*domain.IntakeSession, error)
	updateFunc               func(ctx context.Context, s *domain.IntakeSession) error
	appendMessageFunc        func(ctx context.Context, msg *domain.Message) error
	listByFirmFunc           func(ctx context.Context, firmID uuid.UUID, readyOnly bool, limit, offset int) ([]*domain.IntakeSession, error)
}

func (m *mockSessionRepo) Create(ctx context.Context, s *domain.IntakeSession) error {
	return m.createFunc(ctx, s)
}

func (m *mockSessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.IntakeSession, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockSessionRepo) GetByResumeTokenHash(ctx context.Context, hash string) (*domain.IntakeSession, error) {
	return m.getByResumeTokenHashFunc(ctx, hash)
}

func (m *mockSessionRepo) Update(ctx context.Context, s *domain.IntakeSession) error {
	return m.updateFunc(ctx, s)
}

func (m *mockSessionRepo) AppendMessage(ctx context.Context, msg *domain.Message) error {
	return m.appendMessageFunc(ctx, msg)
}

func (m *mockSessionRepo) ListByFirm(ctx context.Context, firmID uuid.UUID, readyOnly bool, limit, offset int) ([]*domain.IntakeSession, error) {
	return m.listByFirmFunc(ctx, firmID, readyOnly, limit, offset)
}

// ---------------------------------------------------------------------------
// Mock AuditRepository
// ---------------------------------------------------------------------------

type mockAuditRepo struct {
	recordFunc         func(ctx context.Context, entry *domain.AuditEntry) error
	listByFirmFunc     func(ctx context.Context, firmID uuid.UUID, limit, offset int) ([]*domain.AuditEntry, error)
	listByResourceFunc func(ctx context.Context, firmID uuid.UUID, resource string, resourceID uuid.UUID) ([]*domain.AuditEntry, error)
}

func (m *mockAuditRepo) Record(ctx context.Context, entry *domain.AuditEntry) error {
	return m.recordFunc(ctx, entry)
}

func (m *mockAuditRepo) ListByFirm(ctx context.Context, firmID uuid.UUID, limit, offset int) ([]*domain.AuditEntry, error) {
	return m.listByFirmFunc(ctx, firmID, limit, offset)
}

func (m *mockAuditRepo) ListByResource(ctx context.Context, firmID uuid.UUID, resource string, resourceID uuid.UUID) ([]*domain.AuditEntry, error) {
	return m.listByResourceFunc(ctx, firmID, resource, resourceID)
}

// ---------------------------------------------------------------------------
// Mock AuthService
// ---------------------------------------------------------------------------

type mockAuthService struct {
	registerFunc     func(ctx context.Context, firmID uuid.UUID, email, password, name, role string) (*domain.User, error)
	loginFunc        func(ctx context.Context, firmID uuid.UUID, email, password string) (string, string, error)
	refreshTokenFunc func(ctx context.Context, refreshToken string) (string, error)
}

func (m *mockAuthService) Register(ctx context.Context, firmID uuid.UUID, email, password, name, role string) (*domain.User, error) {
	return m.registerFunc(ctx, firmID, email, password, name, role)
}

func (m *mockAuthService) Login(ctx context.Context, firmID uuid.UUID, email, password string) (string, string, error) {
	return m.loginFunc(ctx, firmID, email, password)
}

func (m *mockAuthService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	return m.refreshTokenFunc(ctx, refreshToken)
}

// ---------------------------------------------------------------------------
// Mock AssertionVerifier
// ---------------------------------------------------------------------------

type mockAssertionVerifier struct {
	verifyFunc func(assertion string) (*intake.VerifiedIdentity, error)
}

func (m *mockAssertionVerifier) Verify(assertion string) (*intake.VerifiedIdentity, error) {
	return m.verifyFunc(assertion)
}

// ---------------------------------------------------------------------------
// Mock IntakeOrchestrator
// ---------------------------------------------------------------------------

type mockOrchestrator struct {
	startSessionFunc func(ctx context.Context, firmID uuid.UUID, categoryHint domain.MatterCategory) (*domain.IntakeSession, string, error)
	handleTurnFunc   func(ctx context.Context, sessionID uuid.UUID, userMessage string) (*intake.TurnResult, error)
}

func (m *mockOrchestrator) StartSession(ctx context.Context, firmID uuid.UUID, categoryHint domain.MatterCategory) (*domain.IntakeSession, string, error) {
	return m.startSessionFunc(ctx, firmID, categoryHint)
}

func (m *mockOrchestrator) HandleTurn(ctx context.Context, sessionID uuid.UUID, userMessage string) (*intake.TurnResult, error) {
	return m.handleTurnFunc(ctx, sessionID, userMessage)
}

// ---------------------------------------------------------------------------
// Mock IntakeMachine
// ---------------------------------------------------------------------------

type mockMachine struct {
	secureFunc           func(ctx context.Context, sessionID uuid.UUID, verified intake.VerifiedIdentity) (*domain.IntakeSession, error)
	resumeByTokenFunc    func(ctx context.Context, token string) (*domain.IntakeSession, error)
	getSessionFunc       func(ctx context.Context, firmID, sessionID uuid.UUID) (*domain.IntakeSession, error)
	overrideConflictFunc func(ctx context.Context, sessionID, actorID uuid.UUID, reason string) (*domain.IntakeSession, error)
	closeSessionFunc     func(ctx context.Context, firmID, sessionID, actorID uuid.UUID) (*domain.IntakeSession, error)
}

func (m *mockMachine) Secure(ctx context.Context, sessionID uuid.UUID, verified intake.VerifiedIdentity) (*domain.IntakeSession, error) {
	return m.secureFunc(ctx, sessionID, verified)
}

func (m *mockMachine) ResumeByToken(ctx context.Context, token string) (*domain.IntakeSession, error) {
	return m.resumeByTokenFunc(ctx, token)
}

func (m *mockMachine) GetSession(ctx context.Context, firmID, sessionID uuid.UUID) (*domain.IntakeSession, error) {
	return m.getSessionFunc(ctx, firmID, sessionID)
}

func (m *mockMachine) OverrideConflict(ctx context.Context, sessionID, actorID uuid.UUID, reason string) (*domain.IntakeSession, error) {
	return m.overrideConflictFunc(ctx, sessionID, actorID, reason)
}

func (m *mockMachine) CloseSession(ctx context.Context, firmID, sessionID, actorID uuid.UUID) (*domain.IntakeSession, error) {
	return m.closeSessionFunc(ctx, firmID, sessionID, actorID)
}

// ---------------------------------------------------------------------------
// Mock conflict list stores
// ---------------------------------------------------------------------------

type mockConflictEntryStore struct {
	createFunc     func(ctx context.Context, e *domain.ConflictEntry) error
	listByFirmFunc func(ctx context.Context, firmID uuid.UUID, limit, offset int) ([]*domain.ConflictEntry, error)
}

func (m *mockConflictEntryStore) Create(ctx context.Context, e *domain.ConflictEntry) error {
	return m.createFunc(ctx, e)
}

func (m *mockConflictEntryStore) ListByFirm(ctx context.Context, firmID uuid.UUID, limit, offset int) ([]*domain.ConflictEntry, error) {
	return m.listByFirmFunc(ctx, firmID, limit, offset)
}

type mockConflictIndex struct {
	addFunc func(ctx context.Context, e *domain.ConflictEntry) error
}

func (m *mockConflictIndex) Add(ctx context.Context, e *domain.ConflictEntry) error {
	return m.addFunc(ctx, e)
}
