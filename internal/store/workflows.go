package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"weblogd/internal/models"
)

// SaveWorkflow creates or replaces the workflow named wf.Name. Steps are
// stored in the given order; a step without an explicit next step advances
// to the one after it. Approvers are usernames.
func (s *Store) SaveWorkflow(ctx context.Context, wf *models.Workflow) (err error) {
	if wf == nil {
		return fmt.Errorf("workflow is required")
	}
	wf.Name = strings.TrimSpace(wf.Name)
	if wf.Name == "" {
		return fmt.Errorf("workflow name is required")
	}
	if len(wf.Steps) == 0 {
		return fmt.Errorf("workflow %q has no steps", wf.Name)
	}

	stepIndex := map[string]int{}
	for i := range wf.Steps {
		step := &wf.Steps[i]
		step.Name = strings.TrimSpace(step.Name)
		if step.Name == "" {
			return fmt.Errorf("workflow %q: step %d has no name", wf.Name, i+1)
		}
		if _, dup := stepIndex[step.Name]; dup {
			return fmt.Errorf("workflow %q: duplicate step %q", wf.Name, step.Name)
		}
		stepType, err := models.ParseStepType(string(step.Type))
		if err != nil {
			return fmt.Errorf("workflow %q: step %q: %w", wf.Name, step.Name, err)
		}
		step.Type = stepType
		step.Order = i
		stepIndex[step.Name] = i
	}
	for _, step := range wf.Steps {
		if step.Next != "" {
			if _, ok := stepIndex[step.Next]; !ok {
				return fmt.Errorf("workflow %q: step %q points to unknown step %q", wf.Name, step.Name, step.Next)
			}
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	members, err := workflowMembers(ctx, tx, wf.Name)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM workflows WHERE name = ?`, wf.Name); err != nil {
		return err
	}
	result, err := tx.ExecContext(ctx, `
		INSERT INTO workflows (name, use_checkin_checkout, created_at) VALUES (?, ?, ?)
	`, wf.Name, boolToInt(wf.UseCheckInCheckOut), dbFormatTime(s.clock()))
	if err != nil {
		return err
	}
	if wf.ID, err = result.LastInsertId(); err != nil {
		return err
	}

	for i := range wf.Steps {
		step := &wf.Steps[i]
		step.WorkflowID = wf.ID
		result, err := tx.ExecContext(ctx, `
			INSERT INTO workflow_steps (workflow_id, name, step_order, type) VALUES (?, ?, ?, ?)
		`, wf.ID, step.Name, step.Order, string(step.Type))
		if err != nil {
			return err
		}
		if step.ID, err = result.LastInsertId(); err != nil {
			return err
		}
		for _, username := range step.Approvers {
			result, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO workflow_step_approvers (step_id, user_id)
				SELECT ?, id FROM users WHERE username = ?
			`, step.ID, normalizeUsername(username))
			if err != nil {
				return err
			}
			if affected, _ := result.RowsAffected(); affected == 0 {
				return fmt.Errorf("workflow %q: step %q: unknown approver %q", wf.Name, step.Name, username)
			}
		}
	}

	for i := range wf.Steps {
		step := &wf.Steps[i]
		switch {
		case step.Next != "":
			step.NextStepID = wf.Steps[stepIndex[step.Next]].ID
		case step.Type != models.StepPublished && i+1 < len(wf.Steps):
			step.NextStepID = wf.Steps[i+1].ID
			step.Next = wf.Steps[i+1].Name
		}
		if step.NextStepID == 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, `UPDATE workflow_steps SET next_step_id = ? WHERE id = ?`, step.NextStepID, step.ID); err != nil {
			return err
		}
	}

	for i := range wf.Scopes {
		scope := &wf.Scopes[i]
		scope.WorkflowID = wf.ID
		result, err := tx.ExecContext(ctx, `
			INSERT INTO workflow_scopes (workflow_id, path_prefix, document_type, culture) VALUES (?, ?, ?, ?)
		`, wf.ID, scope.PathPrefix, string(scope.DocumentType), scope.Culture)
		if err != nil {
			return err
		}
		if scope.ID, err = result.LastInsertId(); err != nil {
			return err
		}
	}

	// Documents of a replaced workflow follow it: same step name, or the first step.
	for _, member := range members {
		stepID := wf.Steps[0].ID
		if i, ok := stepIndex[member.stepName]; ok {
			stepID = wf.Steps[i].ID
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE documents SET workflow_id = ?, step_id = ? WHERE id = ?
		`, wf.ID, stepID, member.documentID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

type workflowMember struct {
	documentID int64
	stepName   string
}

// workflowMembers lists the documents under the workflow named name with the
// name of the step each one is in.
func workflowMembers(ctx context.Context, tx *sql.Tx, name string) ([]workflowMember, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT d.id, COALESCE(ws.name, '')
		FROM documents d
		JOIN workflows w ON w.id = d.workflow_id
		LEFT JOIN workflow_steps ws ON ws.id = d.step_id
		WHERE w.name = ?
	`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []workflowMember
	for rows.Next() {
		var m workflowMember
		if err := rows.Scan(&m.documentID, &m.stepName); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// DeleteWorkflow removes a workflow by name. Documents using it keep their
// content and lose the association.
func (s *Store) DeleteWorkflow(ctx context.Context, name string) (bool, error) {
	wf, err := s.getWorkflowBy(ctx, "name = ?", strings.TrimSpace(name))
	if err != nil || wf == nil {
		return false, err
	}
	if _, err := s.db.ExecContext(ctx, `
		UPDATE documents SET workflow_id = 0, step_id = 0, checked_out_by = 0 WHERE workflow_id = ?
	`, wf.ID); err != nil {
		return false, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM workflows WHERE id = ?`, wf.ID); err != nil {
		return false, err
	}
	return true, nil
}

// ListWorkflows returns all workflows with their steps and scopes.
func (s *Store) ListWorkflows(ctx context.Context) ([]models.Workflow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM workflows ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	out := make([]models.Workflow, 0, len(ids))
	for _, id := range ids {
		wf, err := s.GetWorkflow(ctx, id)
		if err != nil {
			return nil, err
		}
		if wf != nil {
			out = append(out, *wf)
		}
	}
	return out, nil
}

// GetWorkflow returns a workflow by id with its steps and scopes.
func (s *Store) GetWorkflow(ctx context.Context, id int64) (*models.Workflow, error) {
	if id <= 0 {
		return nil, nil
	}
	return s.getWorkflowBy(ctx, "id = ?", id)
}

func (s *Store) getWorkflowBy(ctx context.Context, where string, arg any) (*models.Workflow, error) {
	var wf models.Workflow
	var useCheckout int
	err := s.db.QueryRowContext(ctx, `SELECT id, name, use_checkin_checkout FROM workflows WHERE `+where, arg).
		Scan(&wf.ID, &wf.Name, &useCheckout)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	wf.UseCheckInCheckOut = useCheckout != 0

	steps, err := s.listSteps(ctx, "s.workflow_id = ?", wf.ID)
	if err != nil {
		return nil, err
	}
	wf.Steps = steps

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workflow_id, path_prefix, document_type, culture FROM workflow_scopes WHERE workflow_id = ? ORDER BY id ASC
	`, wf.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var scope models.WorkflowScope
		var docType string
		if err := rows.Scan(&scope.ID, &scope.WorkflowID, &scope.PathPrefix, &docType, &scope.Culture); err != nil {
			return nil, err
		}
		scope.DocumentType = models.DocumentType(docType)
		wf.Scopes = append(wf.Scopes, scope)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &wf, nil
}

func (s *Store) listSteps(ctx context.Context, where string, arg any) ([]models.WorkflowStep, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.workflow_id, s.name, s.step_order, s.type, s.next_step_id, COALESCE(n.name, '')
		FROM workflow_steps s
		LEFT JOIN workflow_steps n ON n.id = s.next_step_id
		WHERE `+where+`
		ORDER BY s.step_order ASC
	`, arg)
	if err != nil {
		return nil, err
	}
	steps := []models.WorkflowStep{}
	for rows.Next() {
		var step models.WorkflowStep
		var stepType string
		if err := rows.Scan(&step.ID, &step.WorkflowID, &step.Name, &step.Order, &stepType, &step.NextStepID, &step.Next); err != nil {
			rows.Close()
			return nil, err
		}
		step.Type = models.StepType(stepType)
		steps = append(steps, step)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	for i := range steps {
		approvers, err := s.stepApprovers(ctx, steps[i].ID)
		if err != nil {
			return nil, err
		}
		steps[i].Approvers = approvers
	}
	return steps, nil
}

func (s *Store) stepApprovers(ctx context.Context, stepID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.username FROM workflow_step_approvers a JOIN users u ON u.id = a.user_id
		WHERE a.step_id = ? ORDER BY u.username ASC
	`, stepID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (s *Store) getStep(ctx context.Context, id int64) (*models.WorkflowStep, error) {
	if id <= 0 {
		return nil, nil
	}
	steps, err := s.listSteps(ctx, "s.id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, nil
	}
	return &steps[0], nil
}

func (s *Store) matchWorkflow(ctx context.Context, doc *models.Document) (*models.Workflow, error) {
	workflows, err := s.ListWorkflows(ctx)
	if err != nil {
		return nil, err
	}
	for i := range workflows {
		for _, scope := range workflows[i].Scopes {
			if scope.Matches(doc) {
				return &workflows[i], nil
			}
		}
	}
	return nil, nil
}

// NodeWorkflow returns the workflow doc is under, or nil.
func (s *Store) NodeWorkflow(ctx context.Context, doc *models.Document) (*models.Workflow, error) {
	if doc == nil || doc.WorkflowID == 0 {
		return nil, nil
	}
	return s.GetWorkflow(ctx, doc.WorkflowID)
}

// Step returns the workflow step doc is in, or nil.
func (s *Store) Step(ctx context.Context, doc *models.Document) (*models.WorkflowStep, error) {
	if doc == nil {
		return nil, nil
	}
	return s.getStep(ctx, doc.StepID)
}

// CanApprove reports whether user may approve doc out of step. Steps
// without approvers may be approved by anyone.
func (s *Store) CanApprove(ctx context.Context, doc *models.Document, step *models.WorkflowStep, user *models.User) (bool, error) {
	if step == nil || user == nil {
		return false, nil
	}
	if user.IsGlobalAdmin || len(step.Approvers) == 0 {
		return true, nil
	}
	for _, approver := range step.Approvers {
		if approver == user.Username {
			return true, nil
		}
	}
	return false, nil
}

// Scope returns the workflow scope covering doc, or nil when no workflow applies.
func (s *Store) Scope(ctx context.Context, doc *models.Document) (*models.WorkflowScope, error) {
	workflow, err := s.matchWorkflow(ctx, doc)
	if err != nil || workflow == nil {
		return nil, err
	}
	for i := range workflow.Scopes {
		if workflow.Scopes[i].Matches(doc) {
			return &workflow.Scopes[i], nil
		}
	}
	return nil, nil
}

// MoveToFirstStep sends doc back to the first step of its workflow.
func (s *Store) MoveToFirstStep(ctx context.Context, doc *models.Document) error {
	workflow, err := s.NodeWorkflow(ctx, doc)
	if err != nil {
		return err
	}
	if workflow == nil || len(workflow.Steps) == 0 {
		return fmt.Errorf("document %s is not under workflow", doc.AliasPath)
	}
	doc.StepID = workflow.Steps[0].ID
	return s.saveWorkflowState(ctx, doc)
}

// Publish advances doc along its approval path for user. It stops at a
// published step, at a step user cannot approve, or at a step with no
// successor, and returns the step reached. A nil step means the path loops.
func (s *Store) Publish(ctx context.Context, doc *models.Document, user *models.User) (*models.WorkflowStep, error) {
	step, err := s.Step(ctx, doc)
	if err != nil {
		return nil, err
	}
	if step == nil {
		return nil, fmt.Errorf("document %s has no workflow step", doc.AliasPath)
	}

	visited := map[int64]struct{}{}
	for !step.IsPublished() {
		if _, seen := visited[step.ID]; seen {
			return nil, nil
		}
		visited[step.ID] = struct{}{}

		if !step.IsDefault() {
			ok, err := s.CanApprove(ctx, doc, step, user)
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
		}
		if step.NextStepID == 0 {
			break
		}
		next, err := s.getStep(ctx, step.NextStepID)
		if err != nil {
			return nil, err
		}
		if next == nil {
			break
		}
		step = next
	}

	doc.StepID = step.ID
	if err := s.saveWorkflowState(ctx, doc); err != nil {
		return nil, err
	}
	return step, nil
}

// CheckOut locks doc for user.
func (s *Store) CheckOut(ctx context.Context, doc *models.Document, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user is required")
	}
	if doc.CheckedOutBy != 0 && doc.CheckedOutBy != user.ID {
		return fmt.Errorf("document %s is checked out by another user", doc.AliasPath)
	}
	doc.CheckedOutBy = user.ID
	return s.saveWorkflowState(ctx, doc)
}

// CheckIn releases the edit lock on doc.
func (s *Store) CheckIn(ctx context.Context, doc *models.Document, user *models.User) error {
	doc.CheckedOutBy = 0
	return s.saveWorkflowState(ctx, doc)
}

// RemoveWorkflow detaches doc from its workflow.
func (s *Store) RemoveWorkflow(ctx context.Context, doc *models.Document) error {
	doc.WorkflowID = 0
	doc.StepID = 0
	doc.CheckedOutBy = 0
	return s.saveWorkflowState(ctx, doc)
}

// IsPublished reports whether doc is visible to readers now.
func (s *Store) IsPublished(ctx context.Context, doc *models.Document) (bool, error) {
	if doc == nil {
		return false, nil
	}
	if doc.StepID != 0 {
		step, err := s.Step(ctx, doc)
		if err != nil {
			return false, err
		}
		if !step.IsPublished() {
			return false, nil
		}
	}
	return doc.IsLive(s.clock()), nil
}

func (s *Store) saveWorkflowState(ctx context.Context, doc *models.Document) error {
	doc.UpdatedAt = s.clock()
	_, err := s.db.ExecContext(ctx, `
		UPDATE documents SET workflow_id = ?, step_id = ?, checked_out_by = ?, updated_at = ? WHERE id = ?
	`, doc.WorkflowID, doc.StepID, doc.CheckedOutBy, dbFormatTime(doc.UpdatedAt), doc.ID)
	return err
}
