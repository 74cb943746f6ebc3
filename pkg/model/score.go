// Package model 定义当值排班引擎的核心数据模型
package model

// Weights 单层级的公平性评分权重
type Weights struct {
	HardExceed  float64 `json:"hard_exceed"`  // 周工时达到硬上限
	SoftExceed  float64 `json:"soft_exceed"`  // 周工时超软上限
	UnderFloor  float64 `json:"under_floor"`  // 周工时低于利用下限
	CarryFlat   float64 `json:"carry_flat"`   // 结转偏差首单位
	CarryStep   float64 `json:"carry_step"`   // 结转偏差每增单位
	Recurrence  float64 `json:"recurrence"`   // 当值-休一日-当值
	WeekendPair float64 `json:"weekend_pair"` // 同周周五+周日当值
}

// ScoreConfig 按层级的评分权重配置
type ScoreConfig struct {
	ByTier  map[Tier]Weights `json:"by_tier,omitempty"`
	Default Weights          `json:"default"`
	Floor   float64          `json:"floor"` // 周低利用下限（小时）
}

// DefaultScoreConfig 返回默认评分配置
func DefaultScoreConfig() *ScoreConfig {
	return &ScoreConfig{
		Default: Weights{
			HardExceed:  100,
			SoftExceed:  10,
			UnderFloor:  3,
			CarryFlat:   6,
			CarryStep:   4,
			Recurrence:  3,
			WeekendPair: 4,
		},
		Floor: WeekFloorDefault,
	}
}

// For 返回某层级生效的权重
func (c *ScoreConfig) For(t Tier) Weights {
	if c.ByTier != nil {
		if w, ok := c.ByTier[t]; ok {
			return w
		}
	}
	return c.Default
}
