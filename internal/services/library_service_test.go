// internal/services/library_service_test.go
package services

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	apperrors "github.com/Corphon/TaleWeaver/internal/errors"
	"github.com/Corphon/TaleWeaver/internal/models"
)

func newTestLibrary(t *testing.T) *LibraryService {
	t.Helper()

	library, err := NewLibraryService(t.TempDir())
	if err != nil {
		t.Fatalf("创建故事库失败: %v", err)
	}
	return library
}

func libraryTestStory(id, title string) *models.StoryGraph {
	target := 2
	return &models.StoryGraph{
		ID:    id,
		Title: title,
		Events: map[int]*models.Event{
			1: {
				ID:          1,
				Name:        "入口",
				Description: "起点",
				IsFirst:     true,
				ItemsToPickUp: []models.Item{
					models.NewKeyItem("铜钥匙"),
				},
				Options: []*models.Option{
					{
						ID:            1,
						DisplayName:   "前进",
						TriggerWords:  []string{"forward"},
						LinkedEventID: &target,
					},
				},
			},
			2: {ID: 2, Name: "终点", Description: "结束"},
		},
	}
}

func TestSaveLoadStoryRoundTrip(t *testing.T) {
	library := newTestLibrary(t)
	ctx := context.Background()
	story := libraryTestStory("s1", "测试故事")

	if err := library.SaveStory(ctx, story); err != nil {
		t.Fatalf("保存故事失败: %v", err)
	}

	loaded, err := library.LoadStory(ctx, "s1")
	if err != nil {
		t.Fatalf("加载故事失败: %v", err)
	}
	if !reflect.DeepEqual(loaded, story) {
		t.Errorf("故事往返不相等\n保存: %+v\n加载: %+v", story, loaded)
	}
}

func TestLoadStory_NotFound(t *testing.T) {
	library := newTestLibrary(t)

	_, err := library.LoadStory(context.Background(), "missing")
	if !apperrors.IsNotFoundError(err) {
		t.Errorf("期望未找到错误，实际为 %v", err)
	}
}

func TestListStories_SkipsCorruptAndUntitled(t *testing.T) {
	library := newTestLibrary(t)
	ctx := context.Background()

	if err := library.SaveStory(ctx, libraryTestStory("good", "正常故事")); err != nil {
		t.Fatalf("保存故事失败: %v", err)
	}

	// 直接写入损坏文件和无标题文件
	storiesPath := filepath.Join(library.BasePath, "stories")
	if err := os.WriteFile(filepath.Join(storiesPath, "broken.json"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("写入损坏文件失败: %v", err)
	}
	untitled := []byte(`{"id":"untitled","title":"","description":"","author":"","events":[]}`)
	if err := os.WriteFile(filepath.Join(storiesPath, "untitled.json"), untitled, 0644); err != nil {
		t.Fatalf("写入无标题文件失败: %v", err)
	}

	stories, err := library.ListStories(ctx)
	if err != nil {
		t.Fatalf("列出故事失败: %v", err)
	}
	if len(stories) != 1 || stories[0].ID != "good" {
		t.Errorf("列表应只含正常故事，实际为 %d 个", len(stories))
	}
}

func TestSaveLoadGameRoundTrip(t *testing.T) {
	library := newTestLibrary(t)
	ctx := context.Background()
	story := libraryTestStory("s1", "存档故事")

	player := models.NewPlayer(2)
	player.Health = 77
	player.AddItem(models.NewKeyItem("铜钥匙"))
	save := models.NewSave(story, player)

	if err := library.SaveGame(ctx, story, save); err != nil {
		t.Fatalf("保存进度失败: %v", err)
	}

	loadedStory, loadedSave, err := library.LoadGame(ctx, "存档故事")
	if err != nil {
		t.Fatalf("加载进度失败: %v", err)
	}
	if !reflect.DeepEqual(loadedStory, story) {
		t.Error("存档的故事快照往返不相等")
	}
	if loadedSave.CurrentEventID != 2 || loadedSave.Health != 77 {
		t.Errorf("进度恢复不正确: %+v", loadedSave)
	}
	if len(loadedSave.Inventory) != 1 || loadedSave.Inventory[0].Name != "铜钥匙" {
		t.Errorf("背包恢复不正确: %+v", loadedSave.Inventory)
	}
}

func TestLoadGame_LegacyYAML(t *testing.T) {
	library := newTestLibrary(t)
	ctx := context.Background()

	saveDir := filepath.Join(library.BasePath, "saves", "旧故事")
	if err := os.MkdirAll(saveDir, 0755); err != nil {
		t.Fatalf("创建存档目录失败: %v", err)
	}

	storyYAML := []byte(`
id: legacy
title: 旧故事
description: ""
author: ""
events:
  - id: 1
    name: 起点
    description: 旧世界
    isFirst: true
    itemsToPickUp: []
    options: []
`)
	progressYAML := []byte(`
storyId: legacy
storyTitle: 旧故事
currentEventId: 1
inventory: []
`)
	if err := os.WriteFile(filepath.Join(saveDir, "story.yaml"), storyYAML, 0644); err != nil {
		t.Fatalf("写入旧故事快照失败: %v", err)
	}
	if err := os.WriteFile(filepath.Join(saveDir, "progress.yaml"), progressYAML, 0644); err != nil {
		t.Fatalf("写入旧进度失败: %v", err)
	}

	story, save, err := library.LoadGame(ctx, "旧故事")
	if err != nil {
		t.Fatalf("加载旧格式存档失败: %v", err)
	}
	if story.Title != "旧故事" || save.CurrentEventID != 1 {
		t.Errorf("旧格式存档解析不正确: %+v / %+v", story, save)
	}
	// 旧格式的时间戳来自文件修改时间
	if save.SavedAt.IsZero() {
		t.Error("旧格式存档应携带文件修改时间")
	}

	// 列表也应看到旧格式存档
	titles, err := library.ListSaves(ctx)
	if err != nil {
		t.Fatalf("列出存档失败: %v", err)
	}
	if len(titles) != 1 || titles[0] != "旧故事" {
		t.Errorf("存档列表不正确: %v", titles)
	}
}

func TestDeleteStory_CascadesSave(t *testing.T) {
	library := newTestLibrary(t)
	ctx := context.Background()
	story := libraryTestStory("s1", "要删除的故事")

	if err := library.SaveStory(ctx, story); err != nil {
		t.Fatalf("保存故事失败: %v", err)
	}
	save := models.NewSave(story, models.NewPlayer(1))
	if err := library.SaveGame(ctx, story, save); err != nil {
		t.Fatalf("保存进度失败: %v", err)
	}

	if err := library.DeleteStory(ctx, "s1"); err != nil {
		t.Fatalf("删除故事失败: %v", err)
	}

	if _, err := library.LoadStory(ctx, "s1"); !apperrors.IsNotFoundError(err) {
		t.Error("故事应已删除")
	}
	if _, _, err := library.LoadGame(ctx, "要删除的故事"); !apperrors.IsNotFoundError(err) {
		t.Error("删除故事应级联删除其存档")
	}
}

func TestImportStory(t *testing.T) {
	library := newTestLibrary(t)
	ctx := context.Background()

	blob, err := library.ExportStory(ctx, "missing")
	if !apperrors.IsNotFoundError(err) {
		t.Errorf("导出不存在的故事应失败，实际为 %v", err)
	}

	story := libraryTestStory("s1", "导出故事")
	if err := library.SaveStory(ctx, story); err != nil {
		t.Fatalf("保存故事失败: %v", err)
	}
	blob, err = library.ExportStory(ctx, "s1")
	if err != nil {
		t.Fatalf("导出故事失败: %v", err)
	}

	imported, err := library.ImportStory(ctx, blob)
	if err != nil {
		t.Fatalf("导入故事失败: %v", err)
	}
	if imported.Title != "导出故事" {
		t.Errorf("导入标题不正确: %s", imported.Title)
	}

	// 无标题的故事拒绝导入
	untitled := []byte(`{"id":"x","title":"  ","description":"","author":"","events":[]}`)
	if _, err := library.ImportStory(ctx, untitled); !apperrors.IsValidationError(err) {
		t.Errorf("无标题故事应拒绝导入，实际为 %v", err)
	}
}

func TestSaveStory_Validation(t *testing.T) {
	library := newTestLibrary(t)
	ctx := context.Background()

	if err := library.SaveStory(ctx, nil); !apperrors.IsValidationError(err) {
		t.Errorf("空故事应拒绝保存，实际为 %v", err)
	}

	story := libraryTestStory("", "无id")
	if err := library.SaveStory(ctx, story); !apperrors.IsValidationError(err) {
		t.Errorf("无 id 故事应拒绝保存，实际为 %v", err)
	}
}

func TestContextCancellation(t *testing.T) {
	library := newTestLibrary(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := library.SaveStory(ctx, libraryTestStory("s1", "标题")); err == nil {
		t.Error("已取消的上下文应中止保存")
	}
	if _, err := library.ListStories(ctx); err == nil {
		t.Error("已取消的上下文应中止列表")
	}
}
