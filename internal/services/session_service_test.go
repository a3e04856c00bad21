// internal/services/session_service_test.go
package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	apperrors "github.com/Corphon/TaleWeaver/internal/errors"
	"github.com/Corphon/TaleWeaver/internal/game"
	"github.com/Corphon/TaleWeaver/internal/models"
)

// sessionTestStory 入口事件有钥匙拾取和钥匙门，门后是终点
func sessionTestStory() *models.StoryGraph {
	target := 2
	return &models.StoryGraph{
		ID:    "s1",
		Title: "会话测试",
		Events: map[int]*models.Event{
			1: {
				ID:          1,
				Name:        "入口",
				Description: "起点",
				IsFirst:     true,
				ItemsToPickUp: []models.Item{
					models.NewKeyItem("bronze"),
				},
				Options: []*models.Option{
					{
						ID:            1,
						DisplayName:   "铁门",
						TriggerWords:  []string{"open", "door"},
						RequiredItems: []models.Item{models.NewKeyItem("bronze")},
						LinkedEventID: &target,
					},
				},
			},
			2: {ID: 2, Name: "内室", Description: "你进入了内室"},
		},
	}
}

func newTestSessionService(t *testing.T, autoSave bool) *SessionService {
	t.Helper()

	library := newTestLibrary(t)
	if err := library.SaveStory(context.Background(), sessionTestStory()); err != nil {
		t.Fatalf("保存故事失败: %v", err)
	}
	return NewSessionService(library, nil, autoSave)
}

func TestStartSession(t *testing.T) {
	sessions := newTestSessionService(t, false)
	ctx := context.Background()

	active, err := sessions.StartSession(ctx, "s1")
	if err != nil {
		t.Fatalf("启动会话失败: %v", err)
	}
	if active.ID == "" {
		t.Error("会话应分配 id")
	}
	if active.Session.Player.CurrentEventID != 1 {
		t.Errorf("会话应从起始事件开始，实际为 %d", active.Session.Player.CurrentEventID)
	}

	if _, err := sessions.GetSession(active.ID); err != nil {
		t.Errorf("注册表应能找到会话: %v", err)
	}
	if _, err := sessions.StartSession(ctx, "missing"); !apperrors.IsNotFoundError(err) {
		t.Errorf("不存在的故事应报告未找到，实际为 %v", err)
	}
}

func TestStartSession_PrivateCopy(t *testing.T) {
	sessions := newTestSessionService(t, false)
	ctx := context.Background()

	active, err := sessions.StartSession(ctx, "s1")
	if err != nil {
		t.Fatalf("启动会话失败: %v", err)
	}

	// 游玩期间的拾取不影响库中的原始故事
	if _, err := sessions.HandleInput(ctx, active.ID, "bronze"); err != nil {
		t.Fatalf("处理输入失败: %v", err)
	}
	original, err := sessions.Library.LoadStory(ctx, "s1")
	if err != nil {
		t.Fatalf("加载故事失败: %v", err)
	}
	if len(original.Events[1].ItemsToPickUp) != 1 {
		t.Error("库中的故事不应受会话影响")
	}
}

func TestHandleInput_RecordsTurn(t *testing.T) {
	sessions := newTestSessionService(t, false)
	ctx := context.Background()

	active, err := sessions.StartSession(ctx, "s1")
	if err != nil {
		t.Fatalf("启动会话失败: %v", err)
	}

	result, err := sessions.HandleInput(ctx, active.ID, "bronze")
	if err != nil {
		t.Fatalf("处理输入失败: %v", err)
	}
	if result.Outcome != game.ResolutionPickup {
		t.Errorf("期望 %s，实际为 %s", game.ResolutionPickup, result.Outcome)
	}

	if _, err := sessions.HandleInput(ctx, "missing", "open"); !apperrors.IsNotFoundError(err) {
		t.Errorf("不存在的会话应报告未找到，实际为 %v", err)
	}
}

func TestAutoSavePersistsMutations(t *testing.T) {
	sessions := newTestSessionService(t, true)
	ctx := context.Background()

	active, err := sessions.StartSession(ctx, "s1")
	if err != nil {
		t.Fatalf("启动会话失败: %v", err)
	}

	// 拾取是状态变更，自动存档应立即落盘
	if _, err := sessions.HandleInput(ctx, active.ID, "bronze"); err != nil {
		t.Fatalf("处理输入失败: %v", err)
	}

	_, save, err := sessions.Library.LoadGame(ctx, "会话测试")
	if err != nil {
		t.Fatalf("自动存档后应能加载进度: %v", err)
	}
	if len(save.Inventory) != 1 || save.Inventory[0].Name != "bronze" {
		t.Errorf("自动存档的背包不正确: %+v", save.Inventory)
	}
}

func TestHandleInput_ConcurrentTurns(t *testing.T) {
	sessions := newTestSessionService(t, true)
	ctx := context.Background()

	active, err := sessions.StartSession(ctx, "s1")
	if err != nil {
		t.Fatalf("启动会话失败: %v", err)
	}

	// HTTP 和 websocket 可能同时投递输入，回合必须串行化：
	// 并发争抢同一件物品时恰好一次拾取成功，其余报告物品不存在
	const workers = 32
	var wg sync.WaitGroup
	var pickups int64
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := sessions.HandleInput(ctx, active.ID, "bronze")
			if err != nil {
				t.Errorf("并发输入不应返回错误: %v", err)
				return
			}
			if result.Outcome == game.ResolutionPickup {
				atomic.AddInt64(&pickups, 1)
			}
		}()
	}
	wg.Wait()

	if pickups != 1 {
		t.Errorf("期望恰好一次拾取成功，实际为 %d", pickups)
	}
	if got := len(active.Session.Player.Inventory); got != 1 {
		t.Errorf("背包应恰好有一件物品，实际为 %d", got)
	}
}

func TestStartMetricsReporting(t *testing.T) {
	sessions := newTestSessionService(t, false)

	// 汇报协程随上下文取消退出
	ctx, cancel := context.WithCancel(context.Background())
	sessions.StartMetricsReporting(ctx)
	cancel()
}

func TestResumeGame(t *testing.T) {
	sessions := newTestSessionService(t, false)
	ctx := context.Background()

	// 玩到内室后显式保存
	active, err := sessions.StartSession(ctx, "s1")
	if err != nil {
		t.Fatalf("启动会话失败: %v", err)
	}
	for _, input := range []string{"bronze", "inventory", "bronze", "close", "open door"} {
		if _, err := sessions.HandleInput(ctx, active.ID, input); err != nil {
			t.Fatalf("处理输入 %q 失败: %v", input, err)
		}
	}
	if err := sessions.SaveGame(ctx, active.ID); err != nil {
		t.Fatalf("保存进度失败: %v", err)
	}

	resumed, err := sessions.ResumeGame(ctx, "会话测试")
	if err != nil {
		t.Fatalf("恢复会话失败: %v", err)
	}
	if resumed.Session.Player.CurrentEventID != 2 {
		t.Errorf("恢复的会话应在内室，实际为 %d", resumed.Session.Player.CurrentEventID)
	}
	// 存档快照中入口的钥匙已被拾走，不会重新出现
	if len(resumed.Session.Story.Events[1].ItemsToPickUp) != 0 {
		t.Error("已拾取的物品不应随恢复重新出现")
	}
}

func TestEndSession(t *testing.T) {
	sessions := newTestSessionService(t, false)
	ctx := context.Background()

	active, err := sessions.StartSession(ctx, "s1")
	if err != nil {
		t.Fatalf("启动会话失败: %v", err)
	}
	if got := len(sessions.ListSessions()); got != 1 {
		t.Fatalf("期望 1 个活动会话，实际为 %d", got)
	}

	if err := sessions.EndSession(active.ID); err != nil {
		t.Fatalf("结束会话失败: %v", err)
	}
	if got := len(sessions.ListSessions()); got != 0 {
		t.Errorf("期望 0 个活动会话，实际为 %d", got)
	}
	if err := sessions.EndSession(active.ID); !apperrors.IsNotFoundError(err) {
		t.Errorf("重复结束应报告未找到，实际为 %v", err)
	}
}
