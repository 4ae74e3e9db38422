package service

import (
	"guardianledger/internal/config"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
)

// Services HTTP 层和后台任务共用的一组服务
type Services struct {
	Users        *UserService
	Accounts     *AccountService
	Guardians    *GuardianService
	Alerts       *AlertService
	Transactions *TransactionService
}

func NewServices(db *gorm.DB, cfg *config.Config, locker ReviewLocker, logger *log.Logger) *Services {
	return &Services{
		Users:        NewUserService(db),
		Accounts:     NewAccountService(db),
		Guardians:    NewGuardianService(db),
		Alerts:       NewAlertService(db),
		Transactions: NewTransactionService(db, cfg, locker, logger),
	}
}
