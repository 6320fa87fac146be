package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pocketbook/internal/domain/goal"
)

const goalColumns = `id, user_id, title, target_amount, current_amount, target_date, description, category, is_completed, created_at, updated_at`

type GoalRepository struct {
	db *DB
}

func NewGoalRepository(db *DB) *GoalRepository {
	return &GoalRepository{db: db}
}

func scanGoal(row interface{ Scan(...any) error }) (*goal.Goal, error) {
	var g goal.Goal
	err := row.Scan(&g.ID, &g.UserID, &g.Title, &g.TargetAmount, &g.CurrentAmount, &g.TargetDate,
		&g.Description, &g.Category, &g.IsCompleted, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *GoalRepository) Create(ctx context.Context, params goal.CreateParams) (*goal.Goal, error) {
	query := `
		INSERT INTO savings_goals (user_id, title, target_amount, target_date, description, category)
		VALUES ($1, $2, $3, $4::date, $5, $6)
		RETURNING ` + goalColumns

	g, err := scanGoal(r.db.QueryRowContext(ctx, query,
		params.UserID, params.Title, params.TargetAmount, params.TargetDate.Format("2006-01-02"), params.Description, params.Category,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create savings goal: %w", err)
	}
	return g, nil
}

func (r *GoalRepository) GetByID(ctx context.Context, id string, userID int64) (*goal.Goal, error) {
	g, err := scanGoal(r.db.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM savings_goals WHERE id = $1 AND user_id = $2`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goal.ErrGoalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get savings goal: %w", err)
	}
	return g, nil
}

func (r *GoalRepository) List(ctx context.Context, userID int64) ([]*goal.Goal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM savings_goals WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list savings goals: %w", err)
	}
	defer rows.Close()

	goals := make([]*goal.Goal, 0)
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan savings goal: %w", err)
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

// Update applies the non-nil fields and recomputes is_completed from the
// resulting amounts in the same statement.
func (r *GoalRepository) Update(ctx context.Context, id string, userID int64, params goal.UpdateParams) (*goal.Goal, error) {
	var targetDate *string
	if params.TargetDate != nil {
		s := params.TargetDate.Format("2006-01-02")
		targetDate = &s
	}

	query := `
		UPDATE savings_goals
		SET title = COALESCE($3, title),
		    target_amount = COALESCE($4::numeric, target_amount),
		    current_amount = COALESCE($5::numeric, current_amount),
		    target_date = COALESCE($6::date, target_date),
		    description = COALESCE($7, description),
		    category = COALESCE($8, category),
		    is_completed = COALESCE($5::numeric, current_amount) >= COALESCE($4::numeric, target_amount),
		    updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + goalColumns

	g, err := scanGoal(r.db.QueryRowContext(ctx, query,
		id, userID, params.Title, params.TargetAmount, params.CurrentAmount, targetDate, params.Description, params.Category,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goal.ErrGoalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update savings goal: %w", err)
	}
	return g, nil
}

func (r *GoalRepository) Delete(ctx context.Context, id string, userID int64) error {
	err := r.db.execAffected(ctx, goal.ErrGoalNotFound,
		`DELETE FROM savings_goals WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil && !errors.Is(err, goal.ErrGoalNotFound) {
		return fmt.Errorf("failed to delete savings goal: %w", err)
	}
	return err
}

// SetFunds is a compare-and-set on current_amount; a goal that changed or
// completed since it was read is left untouched.
func (r *GoalRepository) SetFunds(ctx context.Context, params goal.FundsParams) (*goal.Goal, error) {
	query := `
		UPDATE savings_goals
		SET current_amount = $4,
		    is_completed = $5,
		    updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND NOT is_completed AND current_amount = $3
		RETURNING ` + goalColumns

	g, err := scanGoal(r.db.QueryRowContext(ctx, query,
		params.ID, params.UserID, params.Previous, params.Current, params.Complete,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goal.ErrConcurrentUpdate
	}
	if err != nil {
		return nil, fmt.Errorf("failed to add funds: %w", err)
	}
	return g, nil
}
