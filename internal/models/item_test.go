// internal/models/item_test.go
package models

import (
	"testing"
)

func TestNewItem_Validation(t *testing.T) {
	if _, err := NewItem(ItemKindConsumable, "", ItemPayload{}); err == nil {
		t.Error("期望空名称返回错误，实际为 nil")
	}
	if _, err := NewItem("MagicItem", "法杖", ItemPayload{}); err == nil {
		t.Error("期望未知类型返回错误，实际为 nil")
	}

	potion, err := NewItem(ItemKindConsumable, "药水", ItemPayload{HealAmount: 20, Damage: 5})
	if err != nil {
		t.Fatalf("创建消耗品失败: %v", err)
	}
	if potion.HealAmount != 20 {
		t.Errorf("消耗品应携带恢复量 20，实际为 %d", potion.HealAmount)
	}
	if potion.Damage != 0 {
		t.Errorf("消耗品不应携带伤害载荷，实际为 %d", potion.Damage)
	}
}

func TestItemUse_Consumable(t *testing.T) {
	player := NewPlayer(1)
	player.Health = 50

	potion, _ := NewItem(ItemKindConsumable, "药水", ItemPayload{HealAmount: 30})
	effect, _ := potion.Use(player)

	if effect != EffectHealed {
		t.Errorf("期望效果为 %s，实际为 %s", EffectHealed, effect)
	}
	if player.Health != 80 {
		t.Errorf("期望生命值为 80，实际为 %d", player.Health)
	}
}

func TestItemUse_WeaponToggle(t *testing.T) {
	player := NewPlayer(1)
	sword, _ := NewItem(ItemKindWeapon, "长剑", ItemPayload{Damage: 10})

	effect, _ := sword.Use(player)
	if effect != EffectEquipped || !sword.Equipped {
		t.Errorf("第一次使用应装备武器，效果为 %s", effect)
	}

	effect, _ = sword.Use(player)
	if effect != EffectUnequipped || sword.Equipped {
		t.Errorf("第二次使用应卸下武器，效果为 %s", effect)
	}
}

func TestItemUse_KeyHasNoDirectEffect(t *testing.T) {
	player := NewPlayer(1)
	key := NewKeyItem("铜钥匙")

	effect, message := key.Use(player)
	if effect != EffectNone {
		t.Errorf("钥匙不应有直接效果，实际为 %s", effect)
	}
	if message == "" {
		t.Error("钥匙使用应返回描述消息")
	}
	if player.Health != DefaultPlayerHealth {
		t.Errorf("钥匙不应改变生命值，实际为 %d", player.Health)
	}
}

func TestSameKey(t *testing.T) {
	bronze := NewKeyItem("铜钥匙")
	bronzeCopy := NewKeyItem("铜钥匙")
	silver := NewKeyItem("银钥匙")
	potion, _ := NewItem(ItemKindConsumable, "铜钥匙", ItemPayload{HealAmount: 1})

	if !bronze.SameKey(bronzeCopy) {
		t.Error("同名钥匙应等价")
	}
	if bronze.SameKey(silver) {
		t.Error("不同名钥匙不应等价")
	}
	if bronze.SameKey(potion) {
		t.Error("非钥匙物品不参与钥匙等价")
	}
}

func TestPlayerHealthClamp(t *testing.T) {
	player := NewPlayer(1)

	player.ApplyDamage(150)
	if player.Health != 0 {
		t.Errorf("生命值下限应钳制为 0，实际为 %d", player.Health)
	}

	player.Heal(30)
	if player.Health != 30 {
		t.Errorf("期望生命值为 30，实际为 %d", player.Health)
	}

	// 负数参数是无操作
	player.Heal(-10)
	player.ApplyDamage(-10)
	if player.Health != 30 {
		t.Errorf("负数参数不应改变生命值，实际为 %d", player.Health)
	}
}

func TestSaveRestorePlayer(t *testing.T) {
	graph := NewStoryGraph("s1", "标题", "", "")
	player := NewPlayer(3)
	player.Health = 42
	player.AddItem(NewKeyItem("铜钥匙"))

	save := NewSave(graph, player)
	restored := save.RestorePlayer()

	if restored.Health != 42 {
		t.Errorf("期望恢复生命值 42，实际为 %d", restored.Health)
	}
	if restored.CurrentEventID != 3 {
		t.Errorf("期望恢复事件 3，实际为 %d", restored.CurrentEventID)
	}
	if len(restored.Inventory) != 1 || restored.Inventory[0].Name != "铜钥匙" {
		t.Errorf("背包恢复不正确: %+v", restored.Inventory)
	}

	// 旧格式存档没有生命值字段，恢复为默认值
	legacy := &Save{StoryID: "s1", CurrentEventID: 1}
	if restored := legacy.RestorePlayer(); restored.Health != DefaultPlayerHealth {
		t.Errorf("旧存档应恢复默认生命值，实际为 %d", restored.Health)
	}
}
