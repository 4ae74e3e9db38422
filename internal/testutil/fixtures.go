package testutil

import (
	"fmt"
	"math/rand"
	"testing"

	"guardianledger/internal/model"
	"guardianledger/pkg/idgen"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func RandomPhone() string {
	return fmt.Sprintf("09%09d", rand.Intn(1_000_000_000))
}

func SeedUser(t testing.TB, db *gorm.DB, name string) *model.User {
	t.Helper()
	user := &model.User{
		UserID:      idgen.NewID(),
		FullName:    name,
		PhoneNumber: RandomPhone(),
		IsActive:    true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func SeedAccount(t testing.TB, db *gorm.DB, ownerUserID, balance string) *model.Account {
	t.Helper()
	account := &model.Account{
		AccountID:     idgen.NewID(),
		OwnerUserID:   ownerUserID,
		AccountNumber: idgen.NewAccountNumber(),
		Balance:       decimal.RequireFromString(balance),
		AccountType:   model.AccountTypeSavings,
		Status:        model.AccountStatusActive,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return account
}

func SeedGuardian(t testing.TB, db *gorm.DB, seniorUserID, guardianUserID, status string) *model.GuardianRelationship {
	t.Helper()
	rel := &model.GuardianRelationship{
		GuardianRelationshipID: idgen.NewID(),
		SeniorUserID:           seniorUserID,
		GuardianUserID:         guardianUserID,
		Status:                 status,
	}
	if err := db.Create(rel).Error; err != nil {
		t.Fatalf("seed guardian: %v", err)
	}
	return rel
}

// Balance 重新读取账户余额
func Balance(t testing.TB, db *gorm.DB, accountID string) decimal.Decimal {
	t.Helper()
	var account model.Account
	if err := db.Where("account_id = ?", accountID).First(&account).Error; err != nil {
		t.Fatalf("reload account %s: %v", accountID, err)
	}
	return account.Balance
}

func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
