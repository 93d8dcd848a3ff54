package model

import (
	"time"
)

const (
	OrderStatusPending    = "Pending"
	OrderStatusInProgress = "In Progress"
	OrderStatusCompleted  = "Completed"
	OrderStatusPartial    = "Partial"
	OrderStatusCancelled  = "Cancelled"
)

// ValidStatusTransitions 订单状态机
// 状态变更是纯管理动作，不触碰台账（取消订单不退款）
var ValidStatusTransitions = map[string][]string{
	OrderStatusPending:    {OrderStatusInProgress, OrderStatusCompleted, OrderStatusPartial, OrderStatusCancelled},
	OrderStatusInProgress: {OrderStatusCompleted, OrderStatusPartial, OrderStatusCancelled},
}

func CanTransitionTo(currentStatus, targetStatus string) bool {
	allowedStatuses, exists := ValidStatusTransitions[currentStatus]
	if !exists {
		return false
	}
	for _, s := range allowedStatuses {
		if s == targetStatus {
			return true
		}
	}
	return false
}

// Order 订单表
// charge 在创建时一次性算定（rate / 1000 * quantity），之后永不重算
type Order struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNo     string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"order_no"`
	RequestID   string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"request_id"` // 幂等ID，客户端生成
	UID         string    `gorm:"type:varchar(64);index;not null" json:"uid"`
	UserEmail   string    `gorm:"type:varchar(128);not null" json:"user_email"` // 下单时的邮箱快照
	ServiceID   int64     `gorm:"not null" json:"service_id"`
	ServiceName string    `gorm:"type:varchar(256);not null" json:"service_name"` // 下单时的服务名快照
	Link        string    `gorm:"type:varchar(512);not null" json:"link"`
	Quantity    int64     `gorm:"not null" json:"quantity"`
	Charge      float64   `gorm:"type:decimal(15,4);not null" json:"charge"`
	Status      string    `gorm:"type:varchar(20);index;not null" json:"status"`
	ProviderID  string    `gorm:"type:varchar(64)" json:"provider_id"` // 上游供应商单号，可为空
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Order) TableName() string {
	return "panel_order"
}
