// internal/models/event.go
package models

import "strings"

// Option 表示事件中的一个可触发选项。
// LinkedEventID 是对目标事件的非拥有引用（按 id），缺失表示死路。
type Option struct {
	ID            int      `json:"id"`
	DisplayName   string   `json:"display_name"`
	BodyText      string   `json:"body_text"`
	TriggerWords  []string `json:"trigger_words"`  // 小写、去重，保留插入顺序
	RequiredItems []Item   `json:"required_items"` // 全部交出后才能激活
	LinkedEventID *int     `json:"linked_event_id,omitempty"`
}

// AddTriggerWord 添加触发词（小写化并去重）
func (o *Option) AddTriggerWord(word string) {
	w := strings.ToLower(strings.TrimSpace(word))
	if w == "" {
		return
	}
	for _, existing := range o.TriggerWords {
		if existing == w {
			return
		}
	}
	o.TriggerWords = append(o.TriggerWords, w)
}

// RequiresKey 检查选项是否需要指定名称的钥匙
func (o *Option) RequiresKey(name string) bool {
	for _, required := range o.RequiredItems {
		if required.Kind == ItemKindKey && required.Name == name {
			return true
		}
	}
	return false
}

// SurrenderKey 用一把钥匙抵消选项的一个需求，返回是否有需求被抵消
func (o *Option) SurrenderKey(key Item) bool {
	for i, required := range o.RequiredItems {
		if required.SameKey(key) {
			o.RequiredItems = append(o.RequiredItems[:i], o.RequiredItems[i+1:]...)
			return true
		}
	}
	return false
}

// Blocked 检查选项是否仍被未满足的物品需求阻塞
func (o *Option) Blocked() bool {
	return len(o.RequiredItems) > 0
}

// ClearLink 清除选项的出边引用
func (o *Option) ClearLink() {
	o.LinkedEventID = nil
}

// Event 表示故事中的一个叙事节点
type Event struct {
	ID            int       `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	IsFirst       bool      `json:"is_first"`
	Options       []*Option `json:"options"` // 插入顺序即展示顺序
	ItemsToPickUp []Item    `json:"items_to_pick_up"`
}

// OptionByID 按 id 查找选项
func (e *Event) OptionByID(optionID int) (*Option, bool) {
	for _, option := range e.Options {
		if option.ID == optionID {
			return option, true
		}
	}
	return nil, false
}

// FindPickup 按名称（不区分大小写）查找可拾取物品
func (e *Event) FindPickup(name string) (Item, bool) {
	for _, item := range e.ItemsToPickUp {
		if strings.EqualFold(item.Name, name) {
			return item, true
		}
	}
	return Item{}, false
}

// TakePickup 从事件中移除并返回指定物品。拾取是单向的：
// 物品离开事件后不能再放回世界。
func (e *Event) TakePickup(name string) (Item, bool) {
	for i, item := range e.ItemsToPickUp {
		if strings.EqualFold(item.Name, name) {
			e.ItemsToPickUp = append(e.ItemsToPickUp[:i], e.ItemsToPickUp[i+1:]...)
			return item, true
		}
	}
	return Item{}, false
}
