package db

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNilParameter        = errors.New("sql parameter is nil")
	ErrMultipleBatchParams = errors.New("only one batch parameter is allowed")
)

const uniqueViolationCode = "23505"

// UpdateDatabase executes a single statement and returns the affected rows.
func UpdateDatabase(ctx context.Context, tx *gorm.DB, statement string, args ...any) (int64, error) {
	if err := checkParams(args); err != nil {
		return 0, err
	}
	result := tx.WithContext(ctx).Exec(statement, args...)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// BatchUpdate executes statement once per element of the single []string
// argument, broadcasting the remaining arguments. Without a slice argument it
// behaves like UpdateDatabase.
func BatchUpdate(ctx context.Context, tx *gorm.DB, statement string, args ...any) (int64, error) {
	if err := checkParams(args); err != nil {
		return 0, err
	}

	batchIndex := -1
	for i, arg := range args {
		if _, ok := arg.([]string); ok {
			if batchIndex >= 0 {
				return 0, ErrMultipleBatchParams
			}
			batchIndex = i
		}
	}
	if batchIndex < 0 {
		return UpdateDatabase(ctx, tx, statement, args...)
	}

	values := args[batchIndex].([]string)
	var total int64
	row := make([]any, len(args))
	copy(row, args)
	for _, value := range values {
		row[batchIndex] = value
		result := tx.WithContext(ctx).Exec(statement, row...)
		if result.Error != nil {
			return total, fmt.Errorf("batch update %q: %w", value, result.Error)
		}
		total += result.RowsAffected
	}
	return total, nil
}

// QueryStrings returns the first column of every row.
func QueryStrings(ctx context.Context, tx *gorm.DB, statement string, args ...any) ([]string, error) {
	if err := checkParams(args); err != nil {
		return nil, err
	}
	var values []string
	if err := tx.WithContext(ctx).Raw(statement, args...).Scan(&values).Error; err != nil {
		return nil, err
	}
	return values, nil
}

// QueryInt returns the first column of the first row. found is false when
// the query yields no row.
func QueryInt(ctx context.Context, tx *gorm.DB, statement string, args ...any) (value int64, found bool, err error) {
	if err := checkParams(args); err != nil {
		return 0, false, err
	}
	rows, err := tx.WithContext(ctx).Raw(statement, args...).Rows()
	if err != nil {
		return 0, false, err
	}
	defer rows.Close()
	if !rows.Next() {
		return 0, false, rows.Err()
	}
	if err := rows.Scan(&value); err != nil {
		return 0, false, err
	}
	return value, true, rows.Err()
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

func ConstraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

func checkParams(args []any) error {
	for i, arg := range args {
		if arg == nil {
			return fmt.Errorf("parameter %d: %w", i+1, ErrNilParameter)
		}
		v := reflect.ValueOf(arg)
		if v.Kind() == reflect.Pointer && v.IsNil() {
			return fmt.Errorf("parameter %d: %w", i+1, ErrNilParameter)
		}
	}
	return nil
}
