// Package memory is an in-process storage backend with the same repository
// contracts as the Postgres one: unique keys, foreign keys and all-or-nothing
// transactions. It backs the service tests and local runs without a database.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/qh20812/Edu-Core-Server/internal/model"
	"github.com/qh20812/Edu-Core-Server/internal/service"
)

type pair [2]uuid.UUID

type tables struct {
	tenants       map[uuid.UUID]*model.Tenant
	users         map[uuid.UUID]*model.User
	subjects      map[uuid.UUID]*model.Subject
	classes       map[uuid.UUID]*model.Class
	classUsers    map[pair]*model.ClassUser
	questions     map[uuid.UUID]*model.Question
	exams         map[uuid.UUID]*model.Exam
	examQuestions map[pair]*model.ExamQuestion
	assignments   map[uuid.UUID]*model.Assignment
	submissions   map[uuid.UUID]*model.Submission
}

func newTables() tables {
	return tables{
		tenants:       map[uuid.UUID]*model.Tenant{},
		users:         map[uuid.UUID]*model.User{},
		subjects:      map[uuid.UUID]*model.Subject{},
		classes:       map[uuid.UUID]*model.Class{},
		classUsers:    map[pair]*model.ClassUser{},
		questions:     map[uuid.UUID]*model.Question{},
		exams:         map[uuid.UUID]*model.Exam{},
		examQuestions: map[pair]*model.ExamQuestion{},
		assignments:   map[uuid.UUID]*model.Assignment{},
		submissions:   map[uuid.UUID]*model.Submission{},
	}
}

// clone copies the maps. Stored rows are never mutated in place, so sharing
// the pointed-to values is safe.
func (t tables) clone() tables {
	return tables{
		tenants:       maps.Clone(t.tenants),
		users:         maps.Clone(t.users),
		subjects:      maps.Clone(t.subjects),
		classes:       maps.Clone(t.classes),
		classUsers:    maps.Clone(t.classUsers),
		questions:     maps.Clone(t.questions),
		exams:         maps.Clone(t.exams),
		examQuestions: maps.Clone(t.examQuestions),
		assignments:   maps.Clone(t.assignments),
		submissions:   maps.Clone(t.submissions),
	}
}

// DB holds every table. Writers are serialized by txMu, one transaction or
// one standalone write at a time; readers only take mu. A transaction works
// on a staged copy that replaces the tables on commit, so readers outside it
// never see uncommitted rows.
type DB struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	t    tables
	now  func() time.Time
}

func NewDB() *DB {
	return &DB{t: newTables(), now: time.Now}
}

type txKey struct{}

// txState is the staged copy written by one transaction.
type txState struct {
	mu sync.RWMutex
	t  tables
}

func txFrom(ctx context.Context) *txState {
	tx, _ := ctx.Value(txKey{}).(*txState)
	return tx
}

// WithinTx runs fn against a staged copy of the tables and publishes it only
// when fn returns nil. An error or panic discards the copy.
func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}
	db.txMu.Lock()
	defer db.txMu.Unlock()

	db.mu.RLock()
	tx := &txState{t: db.t.clone()}
	db.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	db.mu.Lock()
	db.t = tx.t
	db.mu.Unlock()
	return nil
}

func (db *DB) write(ctx context.Context, fn func(t *tables) error) error {
	if tx := txFrom(ctx); tx != nil {
		tx.mu.Lock()
		defer tx.mu.Unlock()
		return fn(&tx.t)
	}
	db.txMu.Lock()
	defer db.txMu.Unlock()
	db.mu.Lock()
	defer db.mu.Unlock()
	return fn(&db.t)
}

func (db *DB) read(ctx context.Context, fn func(t *tables)) {
	if tx := txFrom(ctx); tx != nil {
		tx.mu.RLock()
		defer tx.mu.RUnlock()
		fn(&tx.t)
		return
	}
	db.mu.RLock()
	defer db.mu.RUnlock()
	fn(&db.t)
}

// Len reports the row count of a table, for assertions in tests.
func (db *DB) Len(table string) int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	switch table {
	case "tenants":
		return len(db.t.tenants)
	case "users":
		return len(db.t.users)
	case "subjects":
		return len(db.t.subjects)
	case "classes":
		return len(db.t.classes)
	case "class_users":
		return len(db.t.classUsers)
	case "questions":
		return len(db.t.questions)
	case "exams":
		return len(db.t.exams)
	case "exam_questions":
		return len(db.t.examQuestions)
	case "assignments":
		return len(db.t.assignments)
	case "submissions":
		return len(db.t.submissions)
	}
	return -1
}

// Store exposes db through the service repository contracts.
func (db *DB) Store() *service.Store {
	return &service.Store{
		Tx:            db,
		Tenants:       tenantRepo{db},
		Users:         userRepo{db},
		Subjects:      subjectRepo{db},
		Classes:       classRepo{db},
		ClassUsers:    classUserRepo{db},
		Questions:     questionRepo{db},
		Exams:         examRepo{db},
		ExamQuestions: examQuestionRepo{db},
		Assignments:   assignmentRepo{db},
		Submissions:   submissionRepo{db},
		Lists:         listBackend{db},
	}
}

func ptr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
