// internal/game/session_test.go
package game

import (
	"testing"

	"github.com/Corphon/TaleWeaver/internal/models"
)

// sessionStory 两个事件：入口有钥匙拾取和钥匙门，门后是终点
func sessionStory() *models.StoryGraph {
	target := 2
	door := &models.Option{
		ID:            1,
		DisplayName:   "铁门",
		TriggerWords:  []string{"open", "door"},
		RequiredItems: []models.Item{models.NewKeyItem("bronze")},
		LinkedEventID: &target,
	}

	return &models.StoryGraph{
		ID:    "s1",
		Title: "测试故事",
		Events: map[int]*models.Event{
			1: {
				ID:          1,
				Name:        "入口",
				Description: "起点",
				IsFirst:     true,
				ItemsToPickUp: []models.Item{
					models.NewKeyItem("bronze"),
				},
				Options: []*models.Option{door},
			},
			2: {
				ID:          2,
				Name:        "内室",
				Description: "你进入了内室",
			},
		},
	}
}

func newTestSession(t *testing.T) *Session {
	t.Helper()

	session, err := NewSession(sessionStory(), DefaultVocabulary())
	if err != nil {
		t.Fatalf("创建会话失败: %v", err)
	}
	return session
}

func TestNewSession_RequiresFirstEvent(t *testing.T) {
	story := sessionStory()
	story.Events[1].IsFirst = false

	if _, err := NewSession(story, DefaultVocabulary()); err == nil {
		t.Fatal("期望没有起始事件时创建失败，实际为 nil")
	}
}

func TestHandleInput_EmptyIsNoOp(t *testing.T) {
	session := newTestSession(t)

	// 空输入（语音识别不可用）是无操作，不是错误
	result, err := session.HandleInput("   ")
	if err != nil {
		t.Fatalf("空输入不应返回错误: %v", err)
	}
	if result.Outcome != ResolutionNoInput {
		t.Errorf("期望 %s，实际为 %s", ResolutionNoInput, result.Outcome)
	}
	if session.Player.CurrentEventID != 1 {
		t.Error("空输入不应改变状态")
	}
}

func TestHandleInput_PickupIsOneWay(t *testing.T) {
	session := newTestSession(t)

	result, err := session.HandleInput("bronze")
	if err != nil {
		t.Fatalf("拾取失败: %v", err)
	}
	if result.Outcome != ResolutionPickup {
		t.Fatalf("期望 %s，实际为 %s", ResolutionPickup, result.Outcome)
	}
	if len(session.Player.Inventory) != 1 {
		t.Fatalf("背包应有一件物品，实际为 %d", len(session.Player.Inventory))
	}
	if len(session.CurrentEvent().ItemsToPickUp) != 0 {
		t.Error("物品应已离开事件")
	}

	// 再次拾取同名物品：报告物品不存在
	result, err = session.HandleInput("bronze")
	if err != nil {
		t.Fatalf("重复拾取不应返回错误: %v", err)
	}
	if result.Outcome != ResolutionUnresolved {
		t.Errorf("期望 %s，实际为 %s", ResolutionUnresolved, result.Outcome)
	}
	if result.Message != "物品不存在: bronze" {
		t.Errorf("重复拾取的消息不正确: %q", result.Message)
	}
}

func TestHandleInput_KeyGateFlow(t *testing.T) {
	session := newTestSession(t)

	// 没有钥匙时门被阻塞
	result, _ := session.HandleInput("open door")
	if result.Outcome != ResolutionBlocked {
		t.Fatalf("期望 %s，实际为 %s", ResolutionBlocked, result.Outcome)
	}

	// 拾取钥匙、打开背包、使用钥匙
	if result, _ = session.HandleInput("bronze"); result.Outcome != ResolutionPickup {
		t.Fatalf("拾取失败: %+v", result)
	}
	if result, _ = session.HandleInput("inventory"); result.Outcome != ResolutionOpenInventory {
		t.Fatalf("打开背包失败: %+v", result)
	}
	if result, _ = session.HandleInput("bronze"); result.Outcome != ResolutionApplyKey {
		t.Fatalf("应用钥匙失败: %+v", result)
	}

	// 钥匙已离开背包，需求已清除
	if len(session.Player.Inventory) != 0 {
		t.Error("钥匙应已离开背包")
	}

	// 关上背包后再开门：阻塞解除，沿出边移动
	if result, _ = session.HandleInput("close"); result.Outcome != ResolutionCloseInventory {
		t.Fatalf("关闭背包失败: %+v", result)
	}
	result, _ = session.HandleInput("open door")
	if result.Outcome != ResolutionTraverse {
		t.Fatalf("期望 %s，实际为 %s", ResolutionTraverse, result.Outcome)
	}
	if session.Player.CurrentEventID != 2 {
		t.Errorf("期望移动到事件 2，实际为 %d", session.Player.CurrentEventID)
	}
	if result.Message != "你进入了内室" {
		t.Errorf("移动消息应为目标事件描述: %q", result.Message)
	}
}

func TestHandleInput_PendingChoice(t *testing.T) {
	story := sessionStory()
	target := 2
	chest := &models.Option{
		ID:            2,
		DisplayName:   "木箱",
		RequiredItems: []models.Item{models.NewKeyItem("bronze")},
		LinkedEventID: &target,
	}
	story.Events[1].Options = append(story.Events[1].Options, chest)

	session, err := NewSession(story, DefaultVocabulary())
	if err != nil {
		t.Fatalf("创建会话失败: %v", err)
	}

	session.HandleInput("bronze")
	session.HandleInput("inventory")

	// 钥匙命中两个选项，进入待选择子状态
	result, _ := session.HandleInput("bronze")
	if result.Outcome != ResolutionAwaitChoice {
		t.Fatalf("期望 %s，实际为 %s", ResolutionAwaitChoice, result.Outcome)
	}
	if session.Pending == nil {
		t.Fatal("应进入待选择子状态")
	}

	// 无效选择保持待选择状态，不发生任何状态变更
	result, _ = session.HandleInput("别的东西")
	if result.Outcome != ResolutionInvalidSelection {
		t.Fatalf("期望 %s，实际为 %s", ResolutionInvalidSelection, result.Outcome)
	}
	if session.Pending == nil {
		t.Error("无效选择后应保持待选择状态")
	}
	if len(session.Player.Inventory) != 1 {
		t.Error("无效选择不应消耗钥匙")
	}

	// 输入候选展示名（不区分大小写）完成选择
	result, _ = session.HandleInput("木箱")
	if result.Outcome != ResolutionApplyKey {
		t.Fatalf("期望 %s，实际为 %s", ResolutionApplyKey, result.Outcome)
	}
	if session.Pending != nil {
		t.Error("选择完成后待选择状态应清除")
	}
	if chest.Blocked() {
		t.Error("木箱的需求应已清除")
	}
}

func TestHandleInput_UseConsumable(t *testing.T) {
	session := newTestSession(t)
	session.Player.Health = 50
	potion, _ := models.NewItem(models.ItemKindConsumable, "potion", models.ItemPayload{HealAmount: 25})
	session.Player.AddItem(potion)

	session.HandleInput("inventory")
	result, _ := session.HandleInput("potion")

	if result.Outcome != ResolutionUseItem {
		t.Fatalf("期望 %s，实际为 %s", ResolutionUseItem, result.Outcome)
	}
	if session.Player.Health != 75 {
		t.Errorf("期望生命值 75，实际为 %d", session.Player.Health)
	}
	if len(session.Player.Inventory) != 0 {
		t.Error("消耗品使用后应被移除")
	}
}

func TestHandleInput_UseWeaponToggles(t *testing.T) {
	session := newTestSession(t)
	sword, _ := models.NewItem(models.ItemKindWeapon, "sword", models.ItemPayload{Damage: 10})
	session.Player.AddItem(sword)

	session.HandleInput("inventory")
	result, _ := session.HandleInput("sword")

	if result.Outcome != ResolutionUseItem {
		t.Fatalf("期望 %s，实际为 %s", ResolutionUseItem, result.Outcome)
	}
	if !session.Player.Inventory[0].Equipped {
		t.Error("武器使用后应处于装备状态且保留在背包")
	}
}

func TestMutationHook(t *testing.T) {
	session := newTestSession(t)

	mutations := 0
	session.SetMutationHook(func() { mutations++ })

	session.HandleInput("bronze")    // 拾取：变更
	session.HandleInput("inventory") // 打开背包：纯展示，不变更
	session.HandleInput("bronze")    // 应用钥匙：变更
	session.HandleInput("close")
	session.HandleInput("open door") // 移动：变更

	if mutations != 3 {
		t.Errorf("期望 3 次状态变更回调，实际为 %d", mutations)
	}
}

func TestResumeSession(t *testing.T) {
	story := sessionStory()
	save := &models.Save{
		StoryID:        "s1",
		StoryTitle:     "测试故事",
		CurrentEventID: 2,
		Health:         80,
		Inventory:      []models.Item{models.NewKeyItem("bronze")},
	}

	session, err := ResumeSession(story, save, DefaultVocabulary())
	if err != nil {
		t.Fatalf("恢复会话失败: %v", err)
	}
	if session.Player.CurrentEventID != 2 || session.Player.Health != 80 {
		t.Errorf("恢复状态不正确: %+v", session.Player)
	}

	// 存档指向不存在的事件
	bad := &models.Save{StoryID: "s1", CurrentEventID: 99}
	if _, err := ResumeSession(story, bad, DefaultVocabulary()); err == nil {
		t.Error("期望恢复到不存在的事件失败，实际为 nil")
	}
}
