// internal/services/item_service.go
package services

import (
	"context"
	"fmt"

	"github.com/Corphon/TaleWeaver/internal/codec"
	apperrors "github.com/Corphon/TaleWeaver/internal/errors"
	"github.com/Corphon/TaleWeaver/internal/models"
	"github.com/Corphon/TaleWeaver/internal/storage"
	"github.com/Corphon/TaleWeaver/internal/utils"
	"github.com/google/uuid"
)

// ItemService 管理按故事归档的物品模板目录。
// 模板是创作阶段的素材：编辑器从这里取物品放进事件的拾取列表
// 或选项的需求列表，游玩阶段不依赖本服务。
type ItemService struct {
	BasePath string
	Storage  *storage.FileStorage
}

// NewItemService 创建物品模板服务
func NewItemService(basePath string) (*ItemService, error) {
	if basePath == "" {
		basePath = "data/items"
	}

	fileStorage, err := storage.NewFileStorage(basePath)
	if err != nil {
		return nil, apperrors.NewIOError("创建物品存储失败", err)
	}

	return &ItemService{
		BasePath: basePath,
		Storage:  fileStorage,
	}, nil
}

// AddItem 添加物品模板。种类与载荷经过构造器校验，
// 新模板（ID 为空）分配新 id。
func (s *ItemService) AddItem(ctx context.Context, storyID string, kind models.ItemKind, name string, payload models.ItemPayload) (*models.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if storyID == "" {
		return nil, apperrors.NewValidationError("故事 id 不能为空", nil)
	}

	item, err := models.NewItem(kind, name, payload)
	if err != nil {
		return nil, err
	}
	item.ID = uuid.NewString()

	if err := s.writeItem(storyID, item); err != nil {
		return nil, err
	}
	return &item, nil
}

// GetItem 获取物品模板
func (s *ItemService) GetItem(ctx context.Context, storyID, itemID string) (*models.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !s.Storage.FileExists(storyID, itemID+".json") {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("物品不存在: %s", itemID), nil)
	}

	data, err := s.Storage.LoadFile(storyID, itemID+".json")
	if err != nil {
		return nil, apperrors.NewIOError(fmt.Sprintf("读取物品数据失败: %s", itemID), err)
	}

	item, err := codec.DecodeItem(data)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetAllItems 获取故事的所有物品模板。
// 单个损坏文件跳过并记录警告，不中断列表。
func (s *ItemService) GetAllItems(ctx context.Context, storyID string) ([]*models.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	files, err := s.Storage.ListFiles(storyID, ".json")
	if err != nil {
		return nil, apperrors.NewIOError("读取物品目录失败", err)
	}

	items := make([]*models.Item, 0, len(files))
	for _, filename := range files {
		data, err := s.Storage.LoadFile(storyID, filename)
		if err != nil {
			utils.GetLogger().Warnf("无法读取物品文件 %s: %v", filename, err)
			continue
		}

		item, err := codec.DecodeItem(data)
		if err != nil {
			utils.GetLogger().Warnf("无法解析物品文件 %s: %v", filename, err)
			continue
		}
		items = append(items, &item)
	}

	return items, nil
}

// UpdateItem 更新物品模板
func (s *ItemService) UpdateItem(ctx context.Context, storyID string, item *models.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if item == nil || item.ID == "" {
		return apperrors.NewValidationError("物品 id 不能为空", nil)
	}
	if !models.ValidItemKind(item.Kind) {
		return apperrors.NewValidationError(fmt.Sprintf("未知的物品类型: %s", item.Kind), nil)
	}
	if !s.Storage.FileExists(storyID, item.ID+".json") {
		return apperrors.NewNotFoundError(fmt.Sprintf("物品不存在: %s", item.ID), nil)
	}

	return s.writeItem(storyID, *item)
}

// DeleteItem 删除物品模板
func (s *ItemService) DeleteItem(ctx context.Context, storyID, itemID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !s.Storage.FileExists(storyID, itemID+".json") {
		return apperrors.NewNotFoundError(fmt.Sprintf("物品不存在: %s", itemID), nil)
	}

	if err := s.Storage.DeleteFile(storyID, itemID+".json"); err != nil {
		return apperrors.NewIOError(fmt.Sprintf("删除物品失败: %s", itemID), err)
	}
	return nil
}

func (s *ItemService) writeItem(storyID string, item models.Item) error {
	data, err := codec.EncodeItem(item)
	if err != nil {
		return err
	}

	if err := s.Storage.SaveFile(storyID, item.ID+".json", data); err != nil {
		return apperrors.NewIOError(fmt.Sprintf("保存物品数据失败: %s", item.ID), err)
	}
	return nil
}
