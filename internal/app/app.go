// internal/app/app.go
package app

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/Corphon/TaleWeaver/internal/config"
	"github.com/Corphon/TaleWeaver/internal/di"
	"github.com/Corphon/TaleWeaver/internal/services"
	"github.com/Corphon/TaleWeaver/internal/speech"
	"github.com/Corphon/TaleWeaver/internal/utils"
)

// App 聚合应用级依赖
type App struct {
	Config *config.Config

	Library  *services.LibraryService
	Items    *services.ItemService
	Sessions *services.SessionService
}

var (
	instance *App
	mu       sync.Mutex
)

// InitServices 按依赖顺序初始化所有服务并注册到容器。
// 顺序：配置 → 日志 → 故事库 → 物品目录 → 会话。
func InitServices() error {
	mu.Lock()
	defer mu.Unlock()

	if instance != nil {
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}

	if err := utils.InitLogger(filepath.Join(cfg.LogDir, "taleweaver.log")); err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	if cfg.DebugMode {
		utils.GetLogger().SetLogLevel(utils.DEBUG)
	}

	library, err := services.NewLibraryService(filepath.Join(cfg.DataDir, "library"))
	if err != nil {
		return fmt.Errorf("初始化故事库服务失败: %w", err)
	}

	items, err := services.NewItemService(filepath.Join(cfg.DataDir, "items"))
	if err != nil {
		return fmt.Errorf("初始化物品服务失败: %w", err)
	}

	// 服务端运行没有语音设备，无声实现占位；
	// 桌面适配器可在注册表里替换 "speaker" 后重建会话服务
	var speaker speech.Speaker = speech.NullSpeaker{}
	sessions := services.NewSessionService(library, speaker, cfg.AutoSave)

	container := di.GetContainer()
	container.Register("config", cfg)
	container.Register("library", library)
	container.Register("item", items)
	container.Register("speaker", speaker)
	container.Register("session", sessions)

	instance = &App{
		Config:   cfg,
		Library:  library,
		Items:    items,
		Sessions: sessions,
	}

	utils.GetLogger().Infof("服务初始化完成，注册数量: %d", len(container.GetNames()))
	return nil
}

// GetApp 返回已初始化的应用实例
func GetApp() (*App, error) {
	mu.Lock()
	defer mu.Unlock()

	if instance == nil {
		return nil, fmt.Errorf("应用未初始化，请先调用 InitServices")
	}
	return instance, nil
}

// Reset 清空应用实例与容器（测试用）
func Reset() {
	mu.Lock()
	defer mu.Unlock()

	instance = nil
	di.GetContainer().Clear()
}
