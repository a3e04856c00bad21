// internal/services/library_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Corphon/TaleWeaver/internal/codec"
	apperrors "github.com/Corphon/TaleWeaver/internal/errors"
	"github.com/Corphon/TaleWeaver/internal/models"
	"github.com/Corphon/TaleWeaver/internal/storage"
	"github.com/Corphon/TaleWeaver/internal/utils"
	"github.com/google/uuid"
)

const (
	storiesDir = "stories"
	savesDir   = "saves"

	storyFileJSON    = "story.json"
	progressFileJSON = "progress.json"
	storyFileYAML    = "story.yaml"
	progressFileYAML = "progress.yaml"
)

// LibraryService 管理内容目录中的故事集合与游玩存档。
// 每个故事一个文件，存档按故事标题归档到独立命名空间。
// 同一故事 id 的读写通过 LockManager 串行化，
// 底层写入是原子重命名，读者不会看到半写的文件。
type LibraryService struct {
	BasePath string
	Storage  *storage.FileStorage
	Locks    *LockManager
}

// NewLibraryService 创建故事库服务
func NewLibraryService(basePath string) (*LibraryService, error) {
	if basePath == "" {
		basePath = "data/library"
	}

	fileStorage, err := storage.NewFileStorage(basePath)
	if err != nil {
		return nil, apperrors.NewIOError("创建文件存储失败", err)
	}

	return &LibraryService{
		BasePath: basePath,
		Storage:  fileStorage,
		Locks:    NewLockManager(),
	}, nil
}

// SaveStory 持久化故事图
func (s *LibraryService) SaveStory(ctx context.Context, graph *models.StoryGraph) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if graph == nil {
		return apperrors.NewValidationError("故事图不能为空", nil)
	}
	if graph.ID == "" {
		return apperrors.NewValidationError("故事 id 不能为空", nil)
	}
	if err := graph.Validate(); err != nil {
		return err
	}

	data, err := codec.EncodeStory(graph)
	if err != nil {
		return err
	}

	return s.Locks.ExecuteWithStoryLock(graph.ID, func() error {
		if err := s.Storage.SaveFile(storiesDir, graph.ID+".json", data); err != nil {
			return apperrors.NewIOError(fmt.Sprintf("保存故事失败: %s", graph.ID), err)
		}
		return nil
	})
}

// LoadStory 加载故事图。文件缺失返回未找到错误，
// 文件损坏在直接加载时是硬失败。
func (s *LibraryService) LoadStory(ctx context.Context, storyID string) (*models.StoryGraph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if storyID == "" {
		return nil, apperrors.NewValidationError("故事 id 不能为空", nil)
	}

	var graph *models.StoryGraph
	err := s.Locks.ExecuteWithStoryReadLock(storyID, func() error {
		if !s.Storage.FileExists(storiesDir, storyID+".json") {
			return apperrors.NewNotFoundError(fmt.Sprintf("故事不存在: %s", storyID), nil)
		}

		data, err := s.Storage.LoadFile(storiesDir, storyID+".json")
		if err != nil {
			return apperrors.NewIOError(fmt.Sprintf("读取故事失败: %s", storyID), err)
		}

		decoded, err := codec.DecodeStory(data)
		if err != nil {
			return err
		}
		graph = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return graph, nil
}

// DeleteStory 删除故事及其归属的存档
func (s *LibraryService) DeleteStory(ctx context.Context, storyID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	graph, err := s.LoadStory(ctx, storyID)
	if err != nil {
		return err
	}

	return s.Locks.ExecuteWithStoryLock(storyID, func() error {
		if err := s.Storage.DeleteFile(storiesDir, storyID+".json"); err != nil {
			return apperrors.NewIOError(fmt.Sprintf("删除故事失败: %s", storyID), err)
		}

		// 删除故事时级联删除其存档
		saveDir := saveDirName(graph.Title)
		if s.Storage.DirExists(savesDir + "/" + saveDir) {
			if err := s.Storage.DeleteDir(savesDir + "/" + saveDir); err != nil {
				utils.GetLogger().Warnf("删除故事存档失败 %s: %v", graph.Title, err)
			}
		}
		return nil
	})
}

// ListStories 加载并解析所有已持久化的故事。
// 单个损坏文件只跳过并记录警告，不中断整个列表；
// 标题为空的故事视为无效，同样被排除。
func (s *LibraryService) ListStories(ctx context.Context) ([]*models.StoryGraph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	files, err := s.Storage.ListFiles(storiesDir, ".json")
	if err != nil {
		return nil, apperrors.NewIOError("读取故事目录失败", err)
	}

	stories := make([]*models.StoryGraph, 0, len(files))
	for _, filename := range files {
		data, err := s.Storage.LoadFile(storiesDir, filename)
		if err != nil {
			utils.GetLogger().Warnf("无法读取故事文件 %s: %v", filename, err)
			continue
		}

		graph, err := codec.DecodeStory(data)
		if err != nil {
			utils.GetLogger().Warnf("无法解析故事文件 %s: %v", filename, err)
			continue
		}

		if strings.TrimSpace(graph.Title) == "" {
			utils.GetLogger().Warnf("故事标题为空，跳过: %s", filename)
			continue
		}

		stories = append(stories, graph)
	}

	return stories, nil
}

// SaveGame 持久化游玩进度：故事快照与进度快照并置写入，
// 以故事标题为键。新写入统一使用 JSON 格式（时间戳内嵌）。
func (s *LibraryService) SaveGame(ctx context.Context, graph *models.StoryGraph, save *models.Save) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if graph == nil || save == nil {
		return apperrors.NewValidationError("故事和存档不能为空", nil)
	}
	if strings.TrimSpace(save.StoryTitle) == "" {
		return apperrors.NewValidationError("存档标题不能为空", nil)
	}

	storyData, err := codec.EncodeStory(graph)
	if err != nil {
		return err
	}
	progressData, err := codec.EncodeProgress(save)
	if err != nil {
		return err
	}

	dir := savesDir + "/" + saveDirName(save.StoryTitle)
	return s.Locks.ExecuteWithStoryLock(save.StoryID, func() error {
		if err := s.Storage.SaveFile(dir, storyFileJSON, storyData); err != nil {
			return apperrors.NewIOError(fmt.Sprintf("保存存档故事快照失败: %s", save.StoryTitle), err)
		}
		if err := s.Storage.SaveFile(dir, progressFileJSON, progressData); err != nil {
			return apperrors.NewIOError(fmt.Sprintf("保存存档进度失败: %s", save.StoryTitle), err)
		}
		return nil
	})
}

// LoadGame 按故事标题加载存档。优先读取当前 JSON 格式，
// 找不到时回退到旧 YAML 格式（时间戳取文件修改时间）。
func (s *LibraryService) LoadGame(ctx context.Context, title string) (*models.StoryGraph, *models.Save, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	dir := savesDir + "/" + saveDirName(title)

	if s.Storage.FileExists(dir, progressFileJSON) {
		storyData, err := s.Storage.LoadFile(dir, storyFileJSON)
		if err != nil {
			return nil, nil, apperrors.NewIOError(fmt.Sprintf("读取存档故事快照失败: %s", title), err)
		}
		graph, err := codec.DecodeStory(storyData)
		if err != nil {
			return nil, nil, err
		}

		progressData, err := s.Storage.LoadFile(dir, progressFileJSON)
		if err != nil {
			return nil, nil, apperrors.NewIOError(fmt.Sprintf("读取存档进度失败: %s", title), err)
		}
		save, err := codec.DecodeProgress(progressData)
		if err != nil {
			return nil, nil, err
		}
		return graph, save, nil
	}

	// 旧格式回退
	if s.Storage.FileExists(dir, progressFileYAML) {
		storyData, err := s.Storage.LoadFile(dir, storyFileYAML)
		if err != nil {
			return nil, nil, apperrors.NewIOError(fmt.Sprintf("读取存档故事快照失败: %s", title), err)
		}
		graph, err := codec.DecodeStoryYAML(storyData)
		if err != nil {
			return nil, nil, err
		}

		progressData, err := s.Storage.LoadFile(dir, progressFileYAML)
		if err != nil {
			return nil, nil, apperrors.NewIOError(fmt.Sprintf("读取存档进度失败: %s", title), err)
		}
		modTime, err := s.Storage.FileModTime(dir, progressFileYAML)
		if err != nil {
			return nil, nil, apperrors.NewIOError(fmt.Sprintf("读取存档时间失败: %s", title), err)
		}
		save, err := codec.DecodeLegacyProgress(progressData, modTime)
		if err != nil {
			return nil, nil, err
		}
		return graph, save, nil
	}

	return nil, nil, apperrors.NewNotFoundError(fmt.Sprintf("存档不存在: %s", title), nil)
}

// DeleteSave 删除指定标题的存档
func (s *LibraryService) DeleteSave(ctx context.Context, title string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := savesDir + "/" + saveDirName(title)
	if !s.Storage.DirExists(dir) {
		return apperrors.NewNotFoundError(fmt.Sprintf("存档不存在: %s", title), nil)
	}

	if err := s.Storage.DeleteDir(dir); err != nil {
		return apperrors.NewIOError(fmt.Sprintf("删除存档失败: %s", title), err)
	}
	return nil
}

// ListSaves 列出所有存档对应的故事标题
func (s *LibraryService) ListSaves(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !s.Storage.DirExists(savesDir) {
		return []string{}, nil
	}

	dirs, err := s.Storage.ListDirs(savesDir)
	if err != nil {
		return nil, apperrors.NewIOError("读取存档目录失败", err)
	}

	titles := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		title, ok := s.readSaveTitle(savesDir + "/" + dir)
		if !ok {
			continue
		}
		titles = append(titles, title)
	}
	return titles, nil
}

// readSaveTitle 从存档的进度文档读取故事标题（兼容两种格式）
func (s *LibraryService) readSaveTitle(dir string) (string, bool) {
	if s.Storage.FileExists(dir, progressFileJSON) {
		data, err := s.Storage.LoadFile(dir, progressFileJSON)
		if err != nil {
			utils.GetLogger().Warnf("无法读取存档 %s: %v", dir, err)
			return "", false
		}
		save, err := codec.DecodeProgress(data)
		if err != nil {
			utils.GetLogger().Warnf("无法解析存档 %s: %v", dir, err)
			return "", false
		}
		return save.StoryTitle, true
	}

	if s.Storage.FileExists(dir, progressFileYAML) {
		data, err := s.Storage.LoadFile(dir, progressFileYAML)
		if err != nil {
			utils.GetLogger().Warnf("无法读取存档 %s: %v", dir, err)
			return "", false
		}
		modTime, err := s.Storage.FileModTime(dir, progressFileYAML)
		if err != nil {
			modTime = time.Time{}
		}
		save, err := codec.DecodeLegacyProgress(data, modTime)
		if err != nil {
			utils.GetLogger().Warnf("无法解析存档 %s: %v", dir, err)
			return "", false
		}
		return save.StoryTitle, true
	}

	return "", false
}

// CreateStory 创建并持久化一个新的空故事
func (s *LibraryService) CreateStory(ctx context.Context, title, description, author string) (*models.StoryGraph, error) {
	if strings.TrimSpace(title) == "" {
		return nil, apperrors.NewValidationError("故事标题不能为空", nil)
	}

	graph := models.NewStoryGraph(uuid.NewString(), title, description, author)
	if err := s.SaveStory(ctx, graph); err != nil {
		return nil, err
	}
	return graph, nil
}

// ExportStory 将故事导出为不透明字节块（供文件选择器协作方使用）
func (s *LibraryService) ExportStory(ctx context.Context, storyID string) ([]byte, error) {
	graph, err := s.LoadStory(ctx, storyID)
	if err != nil {
		return nil, err
	}
	return codec.EncodeStory(graph)
}

// ImportStory 从字节块导入故事。标题为空的故事视为无效，拒绝导入。
// 缺失 id 的故事在导入时分配新 id。
func (s *LibraryService) ImportStory(ctx context.Context, blob []byte) (*models.StoryGraph, error) {
	graph, err := codec.DecodeStory(blob)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(graph.Title) == "" {
		return nil, apperrors.NewValidationError("导入的故事缺少标题", nil)
	}
	if graph.ID == "" {
		graph.ID = uuid.NewString()
	}

	if err := s.SaveStory(ctx, graph); err != nil {
		return nil, err
	}
	return graph, nil
}

// saveDirName 把故事标题规范为存档目录名
func saveDirName(title string) string {
	mapped := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(title))
	if mapped == "" {
		mapped = "_"
	}
	return mapped
}
