// internal/models/item.go
package models

import (
	"fmt"
	"strings"
)

// ItemKind 表示物品的具体类型（封闭的判别式联合）
type ItemKind string

const (
	// ItemKindKey 钥匙类物品，仅通过选项的 required_items 间接生效
	ItemKindKey ItemKind = "KeyItem"
	// ItemKindConsumable 消耗类物品，使用后恢复生命值
	ItemKindConsumable ItemKind = "ConsumableItem"
	// ItemKindWeapon 武器类物品，使用后切换装备状态
	ItemKindWeapon ItemKind = "WeaponItem"
)

// ValidItemKind 检查判别式取值是否合法
func ValidItemKind(kind ItemKind) bool {
	switch kind {
	case ItemKindKey, ItemKindConsumable, ItemKindWeapon:
		return true
	}
	return false
}

// Item 表示一个物品。物品是值对象：复制进背包后与模板无关联。
// 不同 Kind 只使用自己的载荷字段，其余字段保持零值。
type Item struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Kind       ItemKind `json:"kind"`
	HealAmount int      `json:"heal_amount,omitempty"` // ConsumableItem
	Damage     int      `json:"damage,omitempty"`      // WeaponItem
	Equipped   bool     `json:"equipped,omitempty"`    // WeaponItem
}

// ItemPayload 携带与 Kind 对应的载荷
type ItemPayload struct {
	HealAmount int
	Damage     int
}

// NewItem 按类型创建物品
func NewItem(kind ItemKind, name string, payload ItemPayload) (Item, error) {
	if strings.TrimSpace(name) == "" {
		return Item{}, fmt.Errorf("物品名称不能为空")
	}
	if !ValidItemKind(kind) {
		return Item{}, fmt.Errorf("未知的物品类型: %s", kind)
	}

	item := Item{
		Name: name,
		Kind: kind,
	}

	switch kind {
	case ItemKindConsumable:
		item.HealAmount = payload.HealAmount
	case ItemKindWeapon:
		item.Damage = payload.Damage
	}

	return item, nil
}

// NewKeyItem 创建钥匙物品
func NewKeyItem(name string) Item {
	return Item{Name: name, Kind: ItemKindKey}
}

// SameKey 判断两个钥匙物品是否等价。钥匙按名称比较：
// 同名钥匙的任意副本都可以解锁同一个选项。
func (it Item) SameKey(other Item) bool {
	if it.Kind != ItemKindKey || other.Kind != ItemKindKey {
		return false
	}
	return it.Name == other.Name
}

// UseEffect 表示使用物品产生的效果
type UseEffect string

const (
	EffectNone       UseEffect = "none"
	EffectHealed     UseEffect = "healed"
	EffectEquipped   UseEffect = "equipped"
	EffectUnequipped UseEffect = "unequipped"
)

// Use 对玩家使用物品，返回效果和描述消息。
// 钥匙物品没有直接数值效果，它的作用通过选项的 required_items 门控体现。
func (it *Item) Use(player *Player) (UseEffect, string) {
	switch it.Kind {
	case ItemKindConsumable:
		player.Heal(it.HealAmount)
		return EffectHealed, fmt.Sprintf("你使用了 %s，恢复了 %d 点生命值", it.Name, it.HealAmount)
	case ItemKindWeapon:
		it.Equipped = !it.Equipped
		if it.Equipped {
			return EffectEquipped, fmt.Sprintf("你装备了 %s", it.Name)
		}
		return EffectUnequipped, fmt.Sprintf("你卸下了 %s", it.Name)
	case ItemKindKey:
		return EffectNone, fmt.Sprintf("%s 看起来可以用来打开什么东西", it.Name)
	default:
		return EffectNone, fmt.Sprintf("%s 没有任何反应", it.Name)
	}
}
