package model

import (
	"time"
)

// ============================================================================
// 台账流水类型常量
// ============================================================================

const (
	TransactionTypeOrderPayment = "ORDER_PAYMENT" // 下单扣款
	TransactionTypeFundCredit   = "FUND_CREDIT"   // 充值入账
	TransactionTypeAdminAdjust  = "ADMIN_ADJUST"  // 管理员手工调整
)

// ============================================================================
// 台账流水实体
// ============================================================================

// BalanceTransaction 余额流水表
// 记录余额的每一笔变动，是对账的核心依据
//
// 【重要】流水表设计原则：
// 1. 只追加，不修改，不删除 —— 保证审计可追溯
// 2. 每笔流水必须关联业务单号（订单号/充值单号/调整单号）—— 便于对账
// 3. 记录交易前后余额 —— 便于校验余额一致性
// 4. 流水与余额更新在同一个数据库事务内提交 —— 两者永远一致
type BalanceTransaction struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionNo string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"transaction_no"` // 流水号（全局唯一）
	UID           string    `gorm:"type:varchar(64);index;not null" json:"uid"`
	ReferenceNo   string    `gorm:"type:varchar(64);index;not null" json:"reference_no"` // 关联业务单号
	Amount        float64   `gorm:"type:decimal(15,4);not null" json:"amount"`           // 金额（正数入账，负数出账）
	Type          string    `gorm:"type:varchar(20);index;not null" json:"type"`         // 流水类型
	BalanceBefore float64   `gorm:"type:decimal(15,4);not null" json:"balance_before"`   // 变动前余额
	BalanceAfter  float64   `gorm:"type:decimal(15,4);not null" json:"balance_after"`    // 变动后余额
	Remark        string    `gorm:"type:varchar(256)" json:"remark"`                     // 备注
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (BalanceTransaction) TableName() string {
	return "balance_transaction"
}
