package model

import (
	"time"
)

const (
	FundStatusPending   = "Pending"
	FundStatusCompleted = "Completed"
	FundStatusCancelled = "Cancelled"
)

// FundRequest 充值申请表
// 用户自报的打款凭据，资金在系统外流转（bKash/Nagad/加密转账），
// 必须由管理员人工核实后才允许入账
//
// 状态只允许 Pending -> Completed（入账）或 Pending -> Cancelled（驳回），
// 已终结的申请永不二次处理
type FundRequest struct {
	ID            int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	RequestNo     string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"request_no"`
	UID           string     `gorm:"type:varchar(64);index;not null" json:"uid"`
	UserEmail     string     `gorm:"type:varchar(128);not null" json:"user_email"`
	Amount        float64    `gorm:"type:decimal(15,4);not null" json:"amount"`
	Currency      string     `gorm:"type:varchar(8);not null" json:"currency"` // BDT | USD
	Method        string     `gorm:"type:varchar(32);not null" json:"method"`  // bKash / Nagad / Binance / Bybit
	TransactionID string     `gorm:"type:varchar(128);not null" json:"transaction_id"` // 用户自报的外部交易号
	Status        string     `gorm:"type:varchar(20);index;not null" json:"status"`
	ResolvedAt    *time.Time `json:"resolved_at"`
	CreatedAt     time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (FundRequest) TableName() string {
	return "fund_request"
}
