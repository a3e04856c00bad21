// internal/models/player.go
package models

import (
	"strings"
	"time"
)

// DefaultPlayerHealth 新玩家的初始生命值
const DefaultPlayerHealth = 100

// Player 表示一次游玩会话中的玩家状态
type Player struct {
	Health         int    `json:"health"`
	Inventory      []Item `json:"inventory"`
	CurrentEventID int    `json:"current_event_id"`
}

// NewPlayer 创建位于指定事件的新玩家
func NewPlayer(startEventID int) *Player {
	return &Player{
		Health:         DefaultPlayerHealth,
		Inventory:      []Item{},
		CurrentEventID: startEventID,
	}
}

// AddItem 将物品副本放入背包
func (p *Player) AddItem(item Item) {
	p.Inventory = append(p.Inventory, item)
}

// FindItem 按名称（不区分大小写）查找背包物品
func (p *Player) FindItem(name string) (Item, bool) {
	for _, item := range p.Inventory {
		if strings.EqualFold(item.Name, name) {
			return item, true
		}
	}
	return Item{}, false
}

// RemoveItem 按名称移除一件背包物品并返回它
func (p *Player) RemoveItem(name string) (Item, bool) {
	for i, item := range p.Inventory {
		if strings.EqualFold(item.Name, name) {
			removed := p.Inventory[i]
			p.Inventory = append(p.Inventory[:i], p.Inventory[i+1:]...)
			return removed, true
		}
	}
	return Item{}, false
}

// Heal 恢复生命值，不设上限。
func (p *Player) Heal(amount int) {
	if amount < 0 {
		return
	}
	p.Health += amount
}

// ApplyDamage 扣除生命值，下限钳制为 0
func (p *Player) ApplyDamage(amount int) {
	if amount < 0 {
		return
	}
	p.Health -= amount
	if p.Health < 0 {
		p.Health = 0
	}
}

// Save 表示一次游玩进度的持久化快照。
// 背包是独立的物品副本，与存活的故事图生命周期无关。
type Save struct {
	StoryID        string    `json:"story_id"`
	StoryTitle     string    `json:"story_title"`
	CurrentEventID int       `json:"current_event_id"`
	Inventory      []Item    `json:"inventory"`
	Health         int       `json:"health"`
	SavedAt        time.Time `json:"saved_at"`
}

// NewSave 从玩家状态生成存档快照
func NewSave(story *StoryGraph, player *Player) *Save {
	inventory := make([]Item, len(player.Inventory))
	copy(inventory, player.Inventory)

	return &Save{
		StoryID:        story.ID,
		StoryTitle:     story.Title,
		CurrentEventID: player.CurrentEventID,
		Inventory:      inventory,
		Health:         player.Health,
		SavedAt:        time.Now(),
	}
}

// RestorePlayer 从存档恢复玩家状态
func (s *Save) RestorePlayer() *Player {
	inventory := make([]Item, len(s.Inventory))
	copy(inventory, s.Inventory)

	// 旧格式存档没有生命值字段
	health := s.Health
	if health <= 0 {
		health = DefaultPlayerHealth
	}

	return &Player{
		Health:         health,
		Inventory:      inventory,
		CurrentEventID: s.CurrentEventID,
	}
}
