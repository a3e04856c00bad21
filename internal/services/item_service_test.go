// internal/services/item_service_test.go
package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/Corphon/TaleWeaver/internal/errors"
	"github.com/Corphon/TaleWeaver/internal/models"
)

func newTestItemService(t *testing.T) *ItemService {
	t.Helper()

	items, err := NewItemService(t.TempDir())
	if err != nil {
		t.Fatalf("创建物品服务失败: %v", err)
	}
	return items
}

func TestAddGetItem(t *testing.T) {
	items := newTestItemService(t)
	ctx := context.Background()

	added, err := items.AddItem(ctx, "s1", models.ItemKindConsumable, "药水", models.ItemPayload{HealAmount: 30})
	if err != nil {
		t.Fatalf("添加物品失败: %v", err)
	}
	if added.ID == "" {
		t.Fatal("新物品应分配 id")
	}

	got, err := items.GetItem(ctx, "s1", added.ID)
	if err != nil {
		t.Fatalf("获取物品失败: %v", err)
	}
	if got.Name != "药水" || got.Kind != models.ItemKindConsumable || got.HealAmount != 30 {
		t.Errorf("物品内容不正确: %+v", got)
	}
}

func TestAddItem_Validation(t *testing.T) {
	items := newTestItemService(t)
	ctx := context.Background()

	if _, err := items.AddItem(ctx, "", models.ItemKindKey, "钥匙", models.ItemPayload{}); !apperrors.IsValidationError(err) {
		t.Errorf("空故事 id 应拒绝，实际为 %v", err)
	}
	if _, err := items.AddItem(ctx, "s1", models.ItemKindKey, "  ", models.ItemPayload{}); !apperrors.IsValidationError(err) {
		t.Errorf("空名称应拒绝，实际为 %v", err)
	}
	if _, err := items.AddItem(ctx, "s1", "MysteryItem", "谜物", models.ItemPayload{}); !apperrors.IsValidationError(err) {
		t.Errorf("未知物品类型应拒绝，实际为 %v", err)
	}
}

func TestGetAllItems_SkipsCorrupt(t *testing.T) {
	items := newTestItemService(t)
	ctx := context.Background()

	if _, err := items.AddItem(ctx, "s1", models.ItemKindKey, "铜钥匙", models.ItemPayload{}); err != nil {
		t.Fatalf("添加物品失败: %v", err)
	}
	if _, err := items.AddItem(ctx, "s1", models.ItemKindWeapon, "长剑", models.ItemPayload{Damage: 10}); err != nil {
		t.Fatalf("添加物品失败: %v", err)
	}

	// 损坏文件不中断列表
	storyDir := filepath.Join(items.BasePath, "s1")
	if err := os.WriteFile(filepath.Join(storyDir, "broken.json"), []byte("{oops"), 0644); err != nil {
		t.Fatalf("写入损坏文件失败: %v", err)
	}

	all, err := items.GetAllItems(ctx, "s1")
	if err != nil {
		t.Fatalf("列出物品失败: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("期望 2 件物品，实际为 %d", len(all))
	}
}

func TestUpdateItem(t *testing.T) {
	items := newTestItemService(t)
	ctx := context.Background()

	added, err := items.AddItem(ctx, "s1", models.ItemKindWeapon, "长剑", models.ItemPayload{Damage: 10})
	if err != nil {
		t.Fatalf("添加物品失败: %v", err)
	}

	added.Damage = 15
	if err := items.UpdateItem(ctx, "s1", added); err != nil {
		t.Fatalf("更新物品失败: %v", err)
	}
	got, err := items.GetItem(ctx, "s1", added.ID)
	if err != nil {
		t.Fatalf("获取物品失败: %v", err)
	}
	if got.Damage != 15 {
		t.Errorf("更新未生效: %+v", got)
	}

	// 不存在的物品无法更新
	missing := &models.Item{ID: "missing", Name: "幽灵", Kind: models.ItemKindKey}
	if err := items.UpdateItem(ctx, "s1", missing); !apperrors.IsNotFoundError(err) {
		t.Errorf("更新不存在的物品应失败，实际为 %v", err)
	}
}

func TestDeleteItem(t *testing.T) {
	items := newTestItemService(t)
	ctx := context.Background()

	added, err := items.AddItem(ctx, "s1", models.ItemKindKey, "铜钥匙", models.ItemPayload{})
	if err != nil {
		t.Fatalf("添加物品失败: %v", err)
	}

	if err := items.DeleteItem(ctx, "s1", added.ID); err != nil {
		t.Fatalf("删除物品失败: %v", err)
	}
	if _, err := items.GetItem(ctx, "s1", added.ID); !apperrors.IsNotFoundError(err) {
		t.Error("物品应已删除")
	}
	if err := items.DeleteItem(ctx, "s1", added.ID); !apperrors.IsNotFoundError(err) {
		t.Errorf("重复删除应报告未找到，实际为 %v", err)
	}
}
