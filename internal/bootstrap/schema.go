package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/coverline/backend/internal/infrastructure/database"
	"github.com/coverline/backend/pkg/constants"
)

// tableDDL holds one CREATE TABLE statement per table, keyed for logging
type tableDDL struct {
	name string
	ddl  string
}

func coreTables() []tableDDL {
	return []tableDDL{
		{constants.TableAdmin, fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id VARCHAR(40) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				email VARCHAR(255) NOT NULL UNIQUE,
				role VARCHAR(64) NOT NULL,
				password_hash VARCHAR(255) NOT NULL,
				created_date TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`, constants.TableAdmin)},

		{constants.TablePolicy, fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id VARCHAR(40) PRIMARY KEY,
				customer_id VARCHAR(40) NOT NULL,
				premium_amount DECIMAL(14,2) NOT NULL,
				status VARCHAR(40) NOT NULL,
				risk_score INT NOT NULL DEFAULT 0,
				initial_approver_id VARCHAR(40) NULL,
				final_approver_id VARCHAR(40) NULL,
				initial_approval_date DATETIME NULL,
				final_approval_date DATETIME NULL,
				end_date DATETIME NULL,
				created_date TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				last_modified_date TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				INDEX idx_policy_status_end (status, end_date),
				INDEX idx_policy_customer (customer_id)
			)`, constants.TablePolicy)},

		{constants.TableInitialPayment, fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id VARCHAR(40) PRIMARY KEY,
				policy_id VARCHAR(40) NOT NULL,
				amount DECIMAL(14,2) NOT NULL,
				paid_date DATETIME NOT NULL,
				created_date TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				INDEX idx_payment_policy (policy_id)
			)`, constants.TableInitialPayment)},

		{constants.TableWorkflow, fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id VARCHAR(40) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NULL
			)`, constants.TableWorkflow)},

		{constants.TableWorkflowStep, fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id VARCHAR(40) PRIMARY KEY,
				workflow_id VARCHAR(40) NOT NULL,
				step_order INT NOT NULL,
				step_name VARCHAR(255) NOT NULL,
				task_type VARCHAR(20) NOT NULL,
				configuration JSON NULL,
				assigned_role VARCHAR(64) NULL,
				due_date DATETIME NULL,
				UNIQUE KEY uniq_step_order (workflow_id, step_order)
			)`, constants.TableWorkflowStep)},

		{constants.TableClaim, fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id VARCHAR(40) PRIMARY KEY,
				policy_id VARCHAR(40) NOT NULL,
				customer_id VARCHAR(40) NOT NULL,
				description TEXT NOT NULL,
				amount DECIMAL(14,2) NOT NULL,
				claim_status VARCHAR(20) NOT NULL,
				workflow_id VARCHAR(40) NULL,
				current_step_order INT NULL,
				risk_score INT NOT NULL DEFAULT 0,
				risk_level VARCHAR(10) NOT NULL DEFAULT 'LOW',
				risk_flags VARCHAR(255) NOT NULL DEFAULT '',
				admin_id VARCHAR(40) NULL,
				status_log TEXT NOT NULL,
				created_date TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				last_modified_date TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				INDEX idx_claim_customer (customer_id),
				INDEX idx_claim_workflow (workflow_id, current_step_order)
			)`, constants.TableClaim)},

		{constants.TableWorkflowTimer, fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id VARCHAR(40) PRIMARY KEY,
				claim_id VARCHAR(40) NOT NULL,
				resume_at DATETIME NOT NULL,
				expected_step_order INT NOT NULL,
				next_step_order INT NULL,
				fired BOOLEAN NOT NULL DEFAULT FALSE,
				created_date TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				INDEX idx_timer_due (fired, resume_at)
			)`, constants.TableWorkflowTimer)},

		{constants.TableOutboxEvent, fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id VARCHAR(40) PRIMARY KEY,
				event_type VARCHAR(64) NOT NULL,
				payload JSON NOT NULL,
				status VARCHAR(20) NOT NULL DEFAULT 'pending',
				retry_count INT NOT NULL DEFAULT 0,
				error_message TEXT NULL,
				processed_date DATETIME NULL,
				created_date TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				last_modified_date TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				INDEX idx_outbox_status (status, created_date)
			)`, constants.TableOutboxEvent)},

		{constants.TableNotification, fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id VARCHAR(40) PRIMARY KEY,
				customer_id VARCHAR(40) NOT NULL,
				message TEXT NOT NULL,
				type VARCHAR(20) NOT NULL,
				is_read BOOLEAN NOT NULL DEFAULT FALSE,
				created_date TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				INDEX idx_notification_customer (customer_id, created_date)
			)`, constants.TableNotification)},
	}
}

// InitializeSchema creates the core tables if they do not exist yet
func InitializeSchema(db *database.Connection) error {
	log.Println("🔧 Initializing core schema...")

	for _, table := range coreTables() {
		if _, err := db.ExecContext(context.Background(), table.ddl); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table.name, err)
		}
	}

	log.Printf("✅ Schema ready (%d tables)", len(coreTables()))
	return nil
}
