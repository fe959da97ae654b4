package service

import "gorm.io/gorm"

// TxRunner инкапсулирует границы транзакции: сервисы описывают работу
// внутри транзакции замыканием, а открытие/коммит/откат остаются здесь.
type TxRunner interface {
	// RunInTransaction выполняет fn в транзакции. Ошибка fn или паника
	// откатывают транзакцию целиком, nil - коммитит.
	RunInTransaction(fn func(tx *gorm.DB) error) error
}

type gormTxRunner struct {
	db *gorm.DB
}

// NewGormTxRunner создает TxRunner поверх подключения gorm
func NewGormTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db}
}

func (r *gormTxRunner) RunInTransaction(fn func(tx *gorm.DB) error) error {
	tx := r.db.Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}
