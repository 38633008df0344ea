package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx/types"
)

func expectAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func marshalJSON(value interface{}) (types.JSONText, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return types.JSONText(payload), nil
}
