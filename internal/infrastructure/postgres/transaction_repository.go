package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"pocketbook/internal/domain/transaction"
)

const transactionColumns = `id, user_id, amount, category, type, date, description, created_at, updated_at`

type TransactionRepository struct {
	db *DB
}

func NewTransactionRepository(db *DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func scanTransaction(row interface{ Scan(...any) error }) (*transaction.Transaction, error) {
	var tx transaction.Transaction
	err := row.Scan(&tx.ID, &tx.UserID, &tx.Amount, &tx.Category, &tx.Type, &tx.Date, &tx.Description, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *TransactionRepository) Create(ctx context.Context, params transaction.CreateParams) (*transaction.Transaction, error) {
	query := `
		INSERT INTO transactions (user_id, amount, category, type, date, description)
		VALUES ($1, $2, $3, $4, COALESCE($5, NOW()), $6)
		RETURNING ` + transactionColumns

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query,
		params.UserID, params.Amount, params.Category, string(params.Type), params.Date, params.Description,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return tx, nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id string, userID int64) (*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1 AND user_id = $2`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, transaction.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return tx, nil
}

// buildListQuery renders the filtered SELECT. Conditions are joined with
// AND; values are always bound as parameters.
func buildListQuery(userID int64, f transaction.ListFilter) (string, []any) {
	conds := []string{"user_id = $1"}
	args := []any{userID}

	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Type != "" {
		add("type = $%d", string(f.Type))
	}
	if f.Category != "" {
		add("category ILIKE $%d", "%"+escapeLike(f.Category)+"%")
	}
	if f.From != nil {
		add("date >= $%d", *f.From)
	}
	if f.To != nil {
		add("date <= $%d", *f.To)
	}
	if f.Before != nil {
		add("date < $%d", *f.Before)
	}

	order := "DESC"
	if f.SortAscending {
		order = "ASC"
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` +
		strings.Join(conds, " AND ") + ` ORDER BY date ` + order + `, created_at ` + order
	return query, args
}

func (r *TransactionRepository) List(ctx context.Context, userID int64, f transaction.ListFilter) ([]*transaction.Transaction, error) {
	query, args := buildListQuery(userID, f)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	txs := make([]*transaction.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return txs, nil
}

func (r *TransactionRepository) Update(ctx context.Context, id string, userID int64, params transaction.UpdateParams) (*transaction.Transaction, error) {
	var typ *string
	if params.Type != nil {
		s := string(*params.Type)
		typ = &s
	}

	query := `
		UPDATE transactions
		SET amount = COALESCE($3::numeric, amount),
		    category = COALESCE($4, category),
		    type = COALESCE($5, type),
		    date = COALESCE($6, date),
		    description = COALESCE($7, description),
		    updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + transactionColumns

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query,
		id, userID, params.Amount, params.Category, typ, params.Date, params.Description,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, transaction.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}
	return tx, nil
}

func (r *TransactionRepository) Delete(ctx context.Context, id string, userID int64) error {
	err := r.db.execAffected(ctx, transaction.ErrTransactionNotFound,
		`DELETE FROM transactions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil && !errors.Is(err, transaction.ErrTransactionNotFound) {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return err
}
