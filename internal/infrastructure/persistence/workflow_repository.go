package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/coverline/backend/internal/domain/models"
	"github.com/coverline/backend/pkg/constants"
)

// WorkflowRepository provides read access to workflow definitions and
// steps. Step configuration is stored as a JSON column and decoded into a
// generic map; a malformed configuration surfaces at execution time, not
// here.
type WorkflowRepository struct {
	db *sql.DB
	tm *TransactionManager
}

// NewWorkflowRepository creates a new WorkflowRepository
func NewWorkflowRepository(db *sql.DB, tm *TransactionManager) *WorkflowRepository {
	return &WorkflowRepository{db: db, tm: tm}
}

// GetWorkflow retrieves a workflow definition by ID
func (r *WorkflowRepository) GetWorkflow(ctx context.Context, workflowID string) (*models.WorkflowDefinition, error) {
	query := fmt.Sprintf(`
		SELECT id, name, description FROM %s WHERE id = ?
	`, constants.TableWorkflow)

	exec := r.tm.ExecutorFor(ctx)
	row := exec.QueryRowContext(ctx, query, workflowID)

	var wf models.WorkflowDefinition
	var description sql.NullString
	err := row.Scan(&wf.ID, &wf.Name, &description)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}
	if description.Valid {
		wf.Description = &description.String
	}
	return &wf, nil
}

// GetStep returns the step at (workflowID, stepOrder), or nil when absent.
// A deleted step leaves a gap; callers treat nil as workflow completion.
func (r *WorkflowRepository) GetStep(ctx context.Context, workflowID string, stepOrder int) (*models.WorkflowStep, error) {
	query := fmt.Sprintf(`
		SELECT id, workflow_id, step_order, step_name, task_type, configuration, assigned_role, due_date
		FROM %s
		WHERE workflow_id = ? AND step_order = ?
	`, constants.TableWorkflowStep)

	exec := r.tm.ExecutorFor(ctx)
	rows, err := exec.QueryContext(ctx, query, workflowID, stepOrder)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow step: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanStep(rows)
}

// NextStepOrder returns the minimum step_order strictly greater than
// after, or nil when no further step exists. Step orders need not be
// contiguous.
func (r *WorkflowRepository) NextStepOrder(ctx context.Context, workflowID string, after int) (*int, error) {
	query := fmt.Sprintf(`
		SELECT MIN(step_order) FROM %s WHERE workflow_id = ? AND step_order > ?
	`, constants.TableWorkflowStep)

	exec := r.tm.ExecutorFor(ctx)
	row := exec.QueryRowContext(ctx, query, workflowID, after)

	var next sql.NullInt64
	if err := row.Scan(&next); err != nil {
		return nil, fmt.Errorf("failed to query next step order: %w", err)
	}
	if !next.Valid {
		return nil, nil
	}
	order := int(next.Int64)
	return &order, nil
}

// ListSteps returns all steps of a workflow ordered by step_order
func (r *WorkflowRepository) ListSteps(ctx context.Context, workflowID string) ([]*models.WorkflowStep, error) {
	query := fmt.Sprintf(`
		SELECT id, workflow_id, step_order, step_name, task_type, configuration, assigned_role, due_date
		FROM %s
		WHERE workflow_id = ?
		ORDER BY step_order ASC
	`, constants.TableWorkflowStep)

	exec := r.tm.ExecutorFor(ctx)
	rows, err := exec.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow steps: %w", err)
	}
	defer rows.Close()

	var steps []*models.WorkflowStep
	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

// ListOverdueSteps reports claims parked on a step whose due date passed.
// Used by the SLA report only; the engine never enforces due dates.
func (r *WorkflowRepository) ListOverdueSteps(ctx context.Context, now time.Time) ([]*models.OverdueStep, error) {
	query := fmt.Sprintf(`
		SELECT c.id, s.step_name, s.step_order, s.task_type, s.due_date
		FROM %s c
		JOIN %s s ON s.workflow_id = c.workflow_id AND s.step_order = c.current_step_order
		WHERE c.current_step_order IS NOT NULL AND s.due_date IS NOT NULL AND s.due_date < ?
	`, constants.TableClaim, constants.TableWorkflowStep)

	exec := r.tm.ExecutorFor(ctx)
	rows, err := exec.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query overdue steps: %w", err)
	}
	defer rows.Close()

	var overdue []*models.OverdueStep
	for rows.Next() {
		var o models.OverdueStep
		if err := rows.Scan(&o.ClaimID, &o.StepName, &o.StepOrder, &o.TaskType, &o.DueDate); err != nil {
			return nil, fmt.Errorf("failed to scan overdue step: %w", err)
		}
		overdue = append(overdue, &o)
	}
	return overdue, rows.Err()
}

func scanStep(rows *sql.Rows) (*models.WorkflowStep, error) {
	var step models.WorkflowStep
	var configJSON sql.NullString
	var assignedRole sql.NullString
	var dueDate sql.NullTime

	err := rows.Scan(&step.ID, &step.WorkflowID, &step.StepOrder, &step.StepName,
		&step.TaskType, &configJSON, &assignedRole, &dueDate)
	if err != nil {
		return nil, fmt.Errorf("failed to scan workflow step: %w", err)
	}

	if configJSON.Valid && configJSON.String != "" {
		if err := json.Unmarshal([]byte(configJSON.String), &step.Configuration); err != nil {
			// Leave configuration nil; the executor reports the malformed step
			log.Printf("⚠️ Step %s: malformed configuration JSON: %v", step.ID, err)
		}
	}
	if assignedRole.Valid {
		step.AssignedRole = &assignedRole.String
	}
	if dueDate.Valid {
		step.DueDate = &dueDate.Time
	}

	return &step, nil
}
