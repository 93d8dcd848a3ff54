package model

// ServiceOffering 服务目录表
// 外部供给的静态目录：rate 为每 1000 单位的单价，min/max 限定下单数量区间
type ServiceOffering struct {
	ID       int64   `gorm:"primaryKey" json:"id"` // 目录方指定的服务ID，非自增
	Name     string  `gorm:"type:varchar(256);not null" json:"name"`
	Category string  `gorm:"type:varchar(64);index;not null" json:"category"`
	Details  string  `gorm:"type:varchar(512)" json:"details"`
	Rate     float64 `gorm:"type:decimal(15,4);not null" json:"rate"` // 每1000单位的价格
	Min      int64   `gorm:"not null" json:"min"`
	Max      int64   `gorm:"not null" json:"max"`
	Refill   bool    `gorm:"not null;default:false" json:"refill"`
}

func (ServiceOffering) TableName() string {
	return "service_offering"
}

// ChargeFor 按目录价计算下单费用，只在创建订单时调用一次
func (s *ServiceOffering) ChargeFor(quantity int64) float64 {
	return s.Rate / 1000 * float64(quantity)
}

// QuantityInRange 数量是否落在 [min, max] 区间内
func (s *ServiceOffering) QuantityInRange(quantity int64) bool {
	return quantity >= s.Min && quantity <= s.Max
}

// DefaultServiceOfferings 目录为空时的种子数据
var DefaultServiceOfferings = []ServiceOffering{
	{ID: 101, Name: "TikTok Followers [Real]", Category: "TikTok", Details: "Real accounts | No drop | Start 0-1h", Rate: 120, Min: 100, Max: 50000, Refill: true},
	{ID: 102, Name: "TikTok Likes", Category: "TikTok", Details: "HQ | Fast delivery", Rate: 50, Min: 100, Max: 100000},
	{ID: 103, Name: "TikTok Video Views", Category: "TikTok", Details: "Instant start", Rate: 5, Min: 1000, Max: 1000000},
	{ID: 201, Name: "Facebook Page Likes", Category: "Facebook", Details: "Real | Slow drip", Rate: 180, Min: 100, Max: 20000, Refill: true},
	{ID: 202, Name: "Facebook Post Reactions", Category: "Facebook", Details: "Mixed reactions", Rate: 60, Min: 50, Max: 10000},
	{ID: 301, Name: "YouTube Subscribers", Category: "YouTube", Details: "Non-drop | 30d refill", Rate: 450, Min: 50, Max: 10000, Refill: true},
	{ID: 302, Name: "YouTube Watch Hours", Category: "YouTube", Details: "Monetization eligible", Rate: 900, Min: 100, Max: 4000},
	{ID: 401, Name: "Instagram Followers", Category: "Instagram", Details: "HQ profiles", Rate: 150, Min: 100, Max: 50000},
}
