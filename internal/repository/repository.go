package repository

import (
	"errors"

	"gorm.io/gorm"
)

// conn 事务内使用 tx，否则使用默认连接
func conn(db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return db
}

func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
