package model

import (
	"time"
)

const (
	PaymentCategoryLocal  = "local"
	PaymentCategoryCrypto = "crypto"
)

// PaymentMethod 收款方式表
// 管理员维护的收款账户信息，充值页面据此展示可用渠道；台账核心不触碰此表
type PaymentMethod struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Key         string    `gorm:"type:varchar(32);uniqueIndex;not null" json:"key"` // bkash / nagad / binance / bybit
	Name        string    `gorm:"type:varchar(64);not null" json:"name"`
	Account     string    `gorm:"type:varchar(128);not null" json:"account"` // 收款号码或链上地址
	AccountName string    `gorm:"type:varchar(128);not null" json:"account_name"`
	Type        string    `gorm:"type:varchar(32);not null" json:"type"`               // Personal / Agent / Merchant / TRC20 Address
	Category    string    `gorm:"type:varchar(16);not null" json:"category"`           // local | crypto
	Note        string    `gorm:"type:varchar(256)" json:"note"`                       // 展示给用户的提示，可为空
	LogoURL     string    `gorm:"type:varchar(512)" json:"logo_url"`
	QRCodeURL   string    `gorm:"type:varchar(512)" json:"qr_code_url"`
	Enabled     bool      `gorm:"not null;default:true" json:"enabled"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PaymentMethod) TableName() string {
	return "payment_method"
}

// DefaultPaymentMethods 收款方式为空时的种子数据
var DefaultPaymentMethods = []PaymentMethod{
	{Key: "bkash", Name: "bKash", Account: "01700000000", AccountName: "John Doe", Type: "Personal", Category: PaymentCategoryLocal, Note: "Send money is not available.", Enabled: true},
	{Key: "nagad", Name: "Nagad", Account: "01800000000", AccountName: "Jane Smith", Type: "Personal", Category: PaymentCategoryLocal, Note: "Only Cash-in is allowed.", Enabled: true},
	{Key: "binance", Name: "Binance", Account: "YOUR_TRC20_ADDRESS", AccountName: "USDT", Type: "TRC20 Address", Category: PaymentCategoryCrypto, Enabled: true},
	{Key: "bybit", Name: "Bybit", Account: "YOUR_BYBIT_UID", AccountName: "USDT", Type: "TRC20 Address", Category: PaymentCategoryCrypto, Enabled: true},
}
