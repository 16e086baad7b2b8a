package bootstrap

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/coverline/backend/internal/infrastructure/database"
	"github.com/coverline/backend/pkg/auth"
	"github.com/coverline/backend/pkg/constants"
	"github.com/coverline/backend/pkg/utils"
)

// DefaultWorkflowID is the claims workflow seeded on first start
const DefaultWorkflowID = "standard-claims"

type seedAdmin struct {
	id    string
	name  string
	email string
	role  string
}

// Two security officers are seeded so four-eyes approval works out of the box
func seedAdmins() []seedAdmin {
	return []seedAdmin{
		{"admin-claims", "Claims Admin", "claims@coverline.local", constants.RoleClaimsAdmin},
		{"admin-sec-1", "Security Officer One", "security1@coverline.local", constants.RoleSecurityOfficer},
		{"admin-sec-2", "Security Officer Two", "security2@coverline.local", constants.RoleSecurityOfficer},
	}
}

// InitializeSeedData inserts the default admins and the standard claims
// workflow. Idempotent: existing rows are left alone.
func InitializeSeedData(db *database.Connection) error {
	ctx := context.Background()

	if err := seedAdminRows(ctx, db); err != nil {
		return err
	}
	if err := seedDefaultWorkflow(ctx, db); err != nil {
		return err
	}
	return nil
}

func seedAdminRows(ctx context.Context, db *database.Connection) error {
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		password = "ChangeMe123"
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash seed password: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT IGNORE INTO %s (id, name, email, role, password_hash, created_date)
		VALUES (?, ?, ?, ?, ?, NOW())
	`, constants.TableAdmin)

	for _, admin := range seedAdmins() {
		result, err := db.ExecContext(ctx, query, admin.id, admin.name, admin.email, admin.role, hash)
		if err != nil {
			return fmt.Errorf("failed to seed admin %s: %w", admin.email, err)
		}
		if rows, _ := result.RowsAffected(); rows > 0 {
			log.Printf("👤 Seeded admin %s (%s)", admin.email, admin.role)
		}
	}
	return nil
}

type seedStep struct {
	order  int
	name   string
	task   string
	role   *string
	config map[string]interface{}
}

func seedDefaultWorkflow(ctx context.Context, db *database.Connection) error {
	workflowQuery := fmt.Sprintf(`
		INSERT IGNORE INTO %s (id, name, description)
		VALUES (?, ?, ?)
	`, constants.TableWorkflow)

	result, err := db.ExecContext(ctx, workflowQuery, DefaultWorkflowID,
		"Standard claims handling",
		"Assign by amount, adjuster review, cooling-off timer, customer notification")
	if err != nil {
		return fmt.Errorf("failed to seed workflow: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return nil // already seeded
	}

	claimsAdminRole := constants.RoleClaimsAdmin
	steps := []seedStep{
		{1, "Assign small claims", constants.TaskTypeRule, nil, map[string]interface{}{
			constants.ConfigRuleName:  constants.RuleAssignByAmount,
			constants.ConfigThreshold: 50_000,
			constants.ConfigAdminID:   "admin-claims",
		}},
		{2, "Adjuster review", constants.TaskTypeManual, &claimsAdminRole, nil},
		{3, "Cooling-off period", constants.TaskTypeTimer, nil, map[string]interface{}{
			constants.ConfigDurationSeconds: 300,
		}},
		{4, "Notify customer", constants.TaskTypeAPI, nil, map[string]interface{}{
			constants.ConfigTask:    constants.APITaskSendNotification,
			constants.ConfigMessage: "Your claim has finished processing.",
		}},
	}

	stepQuery := fmt.Sprintf(`
		INSERT INTO %s (id, workflow_id, step_order, step_name, task_type, configuration, assigned_role)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, constants.TableWorkflowStep)

	for _, step := range steps {
		var configJSON interface{}
		if step.config != nil {
			raw, err := json.Marshal(step.config)
			if err != nil {
				return fmt.Errorf("failed to marshal step configuration: %w", err)
			}
			configJSON = raw
		}
		_, err := db.ExecContext(ctx, stepQuery,
			utils.GenerateID(), DefaultWorkflowID, step.order, step.name, step.task, configJSON, step.role)
		if err != nil {
			return fmt.Errorf("failed to seed workflow step %d: %w", step.order, err)
		}
	}

	log.Printf("📋 Seeded workflow %q with %d steps", DefaultWorkflowID, len(steps))
	return nil
}
