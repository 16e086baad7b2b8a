package persistence

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/coverline/backend/pkg/constants"
)

func newPolicyRepo(t *testing.T) (*PolicyRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	tm := NewTransactionManager(db)
	return NewPolicyRepository(db, tm), mock, func() { db.Close() }
}

func TestPolicyUpdateStatusCAS(t *testing.T) {
	repo, mock, cleanup := newPolicyRepo(t)
	defer cleanup()

	query := regexp.QuoteMeta("UPDATE policies")

	// Status still matches: transition applies
	mock.ExpectExec(query).
		WithArgs(constants.PolicyStatusPendingFinal, "pol-1", constants.PolicyStatusPendingInitial).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.UpdateStatusCAS(context.Background(), "pol-1",
		constants.PolicyStatusPendingInitial, constants.PolicyStatusPendingFinal)
	assert.NoError(t, err)
	assert.True(t, ok)

	// Concurrent transition won: zero rows, caller sees false
	mock.ExpectExec(query).
		WithArgs(constants.PolicyStatusPendingFinal, "pol-1", constants.PolicyStatusPendingInitial).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err = repo.UpdateStatusCAS(context.Background(), "pol-1",
		constants.PolicyStatusPendingInitial, constants.PolicyStatusPendingFinal)
	assert.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPolicyGetScansApprovers(t *testing.T) {
	repo, mock, cleanup := newPolicyRepo(t)
	defer cleanup()

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "customer_id", "premium_amount", "status", "risk_score",
		"initial_approver_id", "final_approver_id", "initial_approval_date", "final_approval_date",
		"end_date", "created_date", "last_modified_date",
	}).AddRow("pol-1", "cust-1", 120000.0, constants.PolicyStatusPendingFinal, 3,
		"admin-1", nil, now, nil, nil, now, now)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT")).WithArgs("pol-1").WillReturnRows(rows)

	policy, err := repo.Get(context.Background(), "pol-1")
	assert.NoError(t, err)
	assert.Equal(t, "pol-1", policy.ID)
	assert.NotNil(t, policy.InitialApproverID)
	assert.Equal(t, "admin-1", *policy.InitialApproverID)
	assert.Nil(t, policy.FinalApproverID)
	assert.Nil(t, policy.EndDate)
}

func TestPolicyGetForUpdateRequiresTransaction(t *testing.T) {
	repo, _, cleanup := newPolicyRepo(t)
	defer cleanup()

	_, err := repo.GetForUpdate(context.Background(), "pol-1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "transaction required")
}

func TestPolicyListExpirable(t *testing.T) {
	repo, mock, cleanup := newPolicyRepo(t)
	defer cleanup()

	now := time.Now()
	ended := now.AddDate(0, -1, 0)
	rows := sqlmock.NewRows([]string{
		"id", "customer_id", "premium_amount", "status", "risk_score",
		"initial_approver_id", "final_approver_id", "initial_approval_date", "final_approval_date",
		"end_date", "created_date", "last_modified_date",
	}).AddRow("pol-1", "cust-1", 90000.0, constants.PolicyStatusActive, 2,
		"admin-1", "admin-2", now, now, ended, now, now)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT")).
		WithArgs(constants.PolicyStatusActive, now).
		WillReturnRows(rows)

	policies, err := repo.ListExpirable(context.Background(), now)
	assert.NoError(t, err)
	assert.Len(t, policies, 1)
	assert.Equal(t, constants.PolicyStatusActive, policies[0].Status)
}
