package service_test

import (
	"context"
	"time"

	"github.com/HammadCopilot/expense-tracker/internal/domain"
)

// Hand-written port mocks shared by the service tests.

// --- ExpenseStore ---

type mockExpenseStore struct {
	expenses map[string]*domain.Expense // by ID
	inRange  []domain.Expense

	createErr error
	rangeErr  error

	created []*domain.Expense
	updates map[string]map[string]any
	deleted []string
}

func newMockExpenseStore() *mockExpenseStore {
	return &mockExpenseStore{
		expenses: map[string]*domain.Expense{},
		updates:  map[string]map[string]any{},
	}
}

func (m *mockExpenseStore) CreateExpense(_ context.Context, exp *domain.Expense) (*domain.Expense, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	cp := *exp
	m.expenses[exp.ID] = &cp
	m.created = append(m.created, &cp)
	return &cp, nil
}

func (m *mockExpenseStore) ListExpenses(_ context.Context, userID string, _ domain.ExpenseFilters) ([]domain.Expense, error) {
	var out []domain.Expense
	for _, e := range m.expenses {
		if e.UserID == userID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *mockExpenseStore) GetExpense(_ context.Context, userID, expenseID string) (*domain.Expense, error) {
	e, ok := m.expenses[expenseID]
	if !ok || e.UserID != userID {
		return nil, &domain.ErrNotFound{Resource: "expense", ID: expenseID}
	}
	cp := *e
	return &cp, nil
}

func (m *mockExpenseStore) UpdateExpense(_ context.Context, expenseID string, updates map[string]any) error {
	m.updates[expenseID] = updates
	return nil
}

func (m *mockExpenseStore) DeleteExpense(_ context.Context, expenseID string) error {
	m.deleted = append(m.deleted, expenseID)
	delete(m.expenses, expenseID)
	return nil
}

func (m *mockExpenseStore) ListExpensesInRange(_ context.Context, _ string, _, _ time.Time) ([]domain.Expense, error) {
	if m.rangeErr != nil {
		return nil, m.rangeErr
	}
	return m.inRange, nil
}

// --- CategoryStore ---

type mockCategoryStore struct {
	categories map[string]domain.Category // by ID
	listErr    error
	listCalls  int
	created    [][]domain.Category
}

func newMockCategoryStore() *mockCategoryStore {
	return &mockCategoryStore{categories: map[string]domain.Category{}}
}

func (m *mockCategoryStore) ListCategories(_ context.Context, userID string) ([]domain.Category, error) {
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.Category
	for _, c := range m.categories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockCategoryStore) CreateCategories(_ context.Context, categories []domain.Category) error {
	m.created = append(m.created, categories)
	for _, c := range categories {
		m.categories[c.ID] = c
	}
	return nil
}

func (m *mockCategoryStore) GetCategoriesByIDs(_ context.Context, ids []string) (map[string]domain.Category, error) {
	out := map[string]domain.Category{}
	for _, id := range ids {
		if c, ok := m.categories[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

// --- ReceiptStore ---

type mockReceiptStore struct {
	receipts  map[string]*domain.Receipt
	createErr error
	created   []*domain.Receipt
	deleted   []string
}

func newMockReceiptStore() *mockReceiptStore {
	return &mockReceiptStore{receipts: map[string]*domain.Receipt{}}
}

func (m *mockReceiptStore) CreateReceipt(_ context.Context, r *domain.Receipt) (*domain.Receipt, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	cp := *r
	m.receipts[r.ID] = &cp
	m.created = append(m.created, &cp)
	return &cp, nil
}

func (m *mockReceiptStore) GetReceipt(_ context.Context, receiptID string) (*domain.Receipt, error) {
	r, ok := m.receipts[receiptID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "receipt", ID: receiptID}
	}
	cp := *r
	return &cp, nil
}

func (m *mockReceiptStore) DeleteReceipt(_ context.Context, receiptID string) error {
	m.deleted = append(m.deleted, receiptID)
	delete(m.receipts, receiptID)
	return nil
}

func (m *mockReceiptStore) ListReceiptsByExpenses(_ context.Context, expenseIDs []string) (map[string][]domain.Receipt, error) {
	out := map[string][]domain.Receipt{}
	for _, r := range m.receipts {
		out[r.ExpenseID] = append(out[r.ExpenseID], *r)
	}
	return out, nil
}

// --- BlobStore ---

type mockBlobStore struct {
	baseURL   string
	uploadErr error
	deleteErr error
	uploaded  []string
	deleted   []string
}

func newMockBlobStore() *mockBlobStore {
	return &mockBlobStore{baseURL: "https://supabase.test/storage/v1/object/public/receipts/"}
}

func (m *mockBlobStore) Upload(_ context.Context, key, _ string, _ []byte) (string, error) {
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	m.uploaded = append(m.uploaded, key)
	return m.baseURL + key, nil
}

func (m *mockBlobStore) Delete(_ context.Context, key string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, key)
	return nil
}

// --- AuthStore ---

type mockAuthStore struct {
	usersByEmail map[string]*domain.User
	usersByID    map[string]*domain.User
	tokens       map[string]*domain.RefreshToken

	createUserErr error
}

func newMockAuthStore() *mockAuthStore {
	return &mockAuthStore{
		usersByEmail: map[string]*domain.User{},
		usersByID:    map[string]*domain.User{},
		tokens:       map[string]*domain.RefreshToken{},
	}
}

func (m *mockAuthStore) addUser(u *domain.User) {
	m.usersByEmail[u.Email] = u
	m.usersByID[u.ID] = u
}

func (m *mockAuthStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	return m.usersByEmail[email], nil
}

func (m *mockAuthStore) GetUserByID(_ context.Context, userID string) (*domain.User, error) {
	u, ok := m.usersByID[userID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "user", ID: userID}
	}
	return u, nil
}

func (m *mockAuthStore) CreateUser(_ context.Context, user *domain.User) (*domain.User, error) {
	if m.createUserErr != nil {
		return nil, m.createUserErr
	}
	m.addUser(user)
	return user, nil
}

func (m *mockAuthStore) StoreRefreshToken(_ context.Context, userID, tokenHash string, expiresAt time.Time) error {
	m.tokens[tokenHash] = &domain.RefreshToken{
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
	}
	return nil
}

func (m *mockAuthStore) GetRefreshToken(_ context.Context, tokenHash string) (*domain.RefreshToken, error) {
	return m.tokens[tokenHash], nil
}

func (m *mockAuthStore) RevokeRefreshToken(_ context.Context, tokenHash string) error {
	delete(m.tokens, tokenHash)
	return nil
}

func (m *mockAuthStore) RevokeAllRefreshTokens(_ context.Context, userID string) error {
	for hash, tok := range m.tokens {
		if tok.UserID == userID {
			delete(m.tokens, hash)
		}
	}
	return nil
}
