// internal/api/handlers.go
package api

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Corphon/TaleWeaver/internal/models"
	"github.com/Corphon/TaleWeaver/internal/services"
	"github.com/gin-gonic/gin"
)

// Handler 处理API请求
type Handler struct {
	Library  *services.LibraryService
	Items    *services.ItemService
	Sessions *services.SessionService

	response *ResponseHelper
}

// NewHandler 创建API处理器
func NewHandler(
	library *services.LibraryService,
	items *services.ItemService,
	sessions *services.SessionService) *Handler {

	return &Handler{
		Library:  library,
		Items:    items,
		Sessions: sessions,
		response: NewResponseHelper(),
	}
}

// APIResponse 统一响应结构
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// APIError API错误结构
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ========================================
// 故事管理
// ========================================

// CreateStoryRequest 创建故事请求
type CreateStoryRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Author      string `json:"author"`
}

// GetStories 获取故事列表
func (h *Handler) GetStories(c *gin.Context) {
	stories, err := h.Library.ListStories(c.Request.Context())
	if err != nil {
		h.response.AppError(c, err)
		return
	}

	summaries := make([]gin.H, 0, len(stories))
	for _, story := range stories {
		summaries = append(summaries, gin.H{
			"id":          story.ID,
			"title":       story.Title,
			"description": story.Description,
			"author":      story.Author,
			"eventCount":  len(story.Events),
		})
	}
	h.response.Success(c, summaries)
}

// CreateStory 创建故事
func (h *Handler) CreateStory(c *gin.Context) {
	var req CreateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.response.BadRequest(c, "请求参数无效", err.Error())
		return
	}

	story, err := h.Library.CreateStory(c.Request.Context(), req.Title, req.Description, req.Author)
	if err != nil {
		h.response.AppError(c, err)
		return
	}
	h.response.Created(c, story, "故事创建成功")
}

// GetStory 获取故事
func (h *Handler) GetStory(c *gin.Context) {
	story, err := h.Library.LoadStory(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.response.AppError(c, err)
		return
	}
	h.response.Success(c, story)
}

// DeleteStory 删除故事（级联删除存档）
func (h *Handler) DeleteStory(c *gin.Context) {
	if err := h.Library.DeleteStory(c.Request.Context(), c.Param("id")); err != nil {
		h.response.AppError(c, err)
		return
	}
	h.response.Success(c, nil, "故事删除成功")
}

// ExportStory 导出故事文件
func (h *Handler) ExportStory(c *gin.Context) {
	storyID := c.Param("id")
	blob, err := h.Library.ExportStory(c.Request.Context(), storyID)
	if err != nil {
		h.response.AppError(c, err)
		return
	}
	h.response.DownloadResponse(c, blob, storyID+".json", "application/json")
}

// ImportStory 导入故事文件
func (h *Handler) ImportStory(c *gin.Context) {
	blob, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, 10<<20))
	if err != nil {
		h.response.BadRequest(c, "读取导入内容失败", err.Error())
		return
	}

	story, err := h.Library.ImportStory(c.Request.Context(), blob)
	if err != nil {
		h.response.AppError(c, err)
		return
	}
	h.response.Created(c, story, "故事导入成功")
}

// ========================================
// 故事编辑
// ========================================

// AddEventRequest 添加事件请求
type AddEventRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	IsFirst     bool   `json:"isFirst"`
}

// AddOptionRequest 添加选项请求
type AddOptionRequest struct {
	Name          string   `json:"name" binding:"required"`
	Text          string   `json:"text"`
	TriggerWords  []string `json:"triggerWords"`
	LinkedEventID *int     `json:"linkedEventId"`
}

// AddEvent 向故事添加事件
func (h *Handler) AddEvent(c *gin.Context) {
	var req AddEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.response.BadRequest(c, "请求参数无效", err.Error())
		return
	}

	ctx := c.Request.Context()
	story, err := h.Library.LoadStory(ctx, c.Param("id"))
	if err != nil {
		h.response.AppError(c, err)
		return
	}

	event := &models.Event{
		ID:          story.NextEventID(),
		Name:        req.Name,
		Description: req.Description,
	}
	if err := story.AddEvent(event); err != nil {
		h.response.AppError(c, err)
		return
	}
	if req.IsFirst {
		if err := story.SetFirstEvent(event.ID); err != nil {
			h.response.AppError(c, err)
			return
		}
	}

	if err := h.Library.SaveStory(ctx, story); err != nil {
		h.response.AppError(c, err)
		return
	}
	h.response.Created(c, event, "事件添加成功")
}

// DeleteEvent 删除事件（级联清理指向它的选项链接）
func (h *Handler) DeleteEvent(c *gin.Context) {
	eventID, ok := h.intParam(c, "event_id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	story, err := h.Library.LoadStory(ctx, c.Param("id"))
	if err != nil {
		h.response.AppError(c, err)
		return
	}

	if err := story.DeleteEvent(eventID); err != nil {
		h.response.AppError(c, err)
		return
	}
	if err := h.Library.SaveStory(ctx, story); err != nil {
		h.response.AppError(c, err)
		return
	}
	h.response.Success(c, nil, "事件删除成功")
}

// SetFirstEvent 指定起始事件
func (h *Handler) SetFirstEvent(c *gin.Context) {
	eventID, ok := h.intParam(c, "event_id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	story, err := h.Library.LoadStory(ctx, c.Param("id"))
	if err != nil {
		h.response.AppError(c, err)
		return
	}

	if err := story.SetFirstEvent(eventID); err != nil {
		h.response.AppError(c, err)
		return
	}
	if err := h.Library.SaveStory(ctx, story); err != nil {
		h.response.AppError(c, err)
		return
	}
	h.response.Success(c, nil, "起始事件设置成功")
}

// AddOption 向事件添加选项
func (h *Handler) AddOption(c *gin.Context) {
	eventID, ok := h.intParam(c, "event_id")
	if !ok {
		return
	}

	var req AddOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.response.BadRequest(c, "请求参数无效", err.Error())
		return
	}

	ctx := c.Request.Context()
	story, err := h.Library.LoadStory(ctx, c.Param("id"))
	if err != nil {
		h.response.AppError(c, err)
		return
	}

	option := &models.Option{
		ID:            story.NextOptionID(eventID),
		DisplayName:   req.Name,
		BodyText:      req.Text,
		LinkedEventID: req.LinkedEventID,
	}
	for _, word := range req.TriggerWords {
		option.AddTriggerWord(word)
	}

	if err := story.AddOption(eventID, option); err != nil {
		h.response.AppError(c, err)
		return
	}
	if err := h.Library.SaveStory(ctx, story); err != nil {
		h.response.AppError(c, err)
		return
	}
	h.response.Created(c, option, "选项添加成功")
}

// DeleteOption 删除选项
func (h *Handler) DeleteOption(c *gin.Context) {
	eventID, ok := h.intParam(c, "event_id")
	if !ok {
		return
	}
	optionID, ok := h.intParam(c, "option_id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	story, err := h.Library.LoadStory(ctx, c.Param("id"))
	if err != nil {
		h.response.AppError(c, err)
		return
	}

	if err := story.DeleteOption(eventID, optionID); err != nil {
		h.response.AppError(c, err)
		return
	}
	if err := h.Library.SaveStory(ctx, story); err != nil {
		h.response.AppError(c, err)
		return
	}
	h.response.Success(c, nil, "选项删除成功")
}

// ========================================
// 物品模板
// ========================================

// ItemRequest 物品模板请求
type ItemRequest struct {
	Kind       string `json:"type" binding:"required"`
	Name       string `json:"name" binding:"required"`
	HealAmount int    `json:"healAmount"`
	Damage     int    `json:"damage"`
}

// GetItems 获取故事的物品模板列表
func (h *Handler) GetItems(c *gin.Context) {
	items, err := h.Items.GetAllItems(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.response.AppError(c, err)
		return
	}
	h.response.Success(c, items)
}

// AddItem 添加物品模板
func (h *Handler) AddItem(c *gin.Context) {
	var req ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.response.BadRequest(c, "请求参数无效", err.Error())
		return
	}

	item, err := h.Items.AddItem(c.Request.Context(), c.Param("id"),
		models.ItemKind(req.Kind), req.Name,
		models.ItemPayload{HealAmount: req.HealAmount, Damage: req.Damage})
	if err != nil {
		h.response.AppError(c, err)
		return
	}
	h.response.Created(c, item, "物品添加成功")
}

// GetItem 获取物品模板
func (h *Handler) GetItem(c *gin.Context) {
	item, err := h.Items.GetItem(c.Request.Context(), c.Param("id"), c.Param("item_id"))
	if err != nil {
		h.response.AppError(c, err)
		return
	}
	h.response.Success(c, item)
}

// DeleteItem 删除物品模板
func (h *Handler) DeleteItem(c *gin.Context) {
	if err := h.Items.DeleteItem(c.Request.Context(), c.Param("id"), c.Param("item_id")); err != nil {
		h.response.AppError(c, err)
		return
	}
	h.response.Success(c, nil, "物品删除成功")
}

// ========================================
// 存档
// ========================================

// GetSaves 获取存档列表
func (h *Handler) GetSaves(c *gin.Context) {
	titles, err := h.Library.ListSaves(c.Request.Context())
	if err != nil {
		h.response.AppError(c, err)
		return
	}
	h.response.Success(c, titles)
}

// DeleteSave 删除存档
func (h *Handler) DeleteSave(c *gin.Context) {
	if err := h.Library.DeleteSave(c.Request.Context(), c.Param("title")); err != nil {
		h.response.AppError(c, err)
		return
	}
	h.response.Success(c, nil, "存档删除成功")
}

// ========================================
// 游玩会话
// ========================================

// StartSessionRequest 启动会话请求：二选一，
// 指定 storyId 开新局，指定 saveTitle 从存档继续
type StartSessionRequest struct {
	StoryID   string `json:"storyId"`
	SaveTitle string `json:"saveTitle"`
}

// InputRequest 玩家输入请求
type InputRequest struct {
	Input string `json:"input"`
}

// StartSession 启动游玩会话
func (h *Handler) StartSession(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.response.BadRequest(c, "请求参数无效", err.Error())
		return
	}

	var active *services.ActiveSession
	var err error
	switch {
	case req.SaveTitle != "":
		active, err = h.Sessions.ResumeGame(c.Request.Context(), req.SaveTitle)
	case req.StoryID != "":
		active, err = h.Sessions.StartSession(c.Request.Context(), req.StoryID)
	default:
		h.response.BadRequest(c, "必须指定 storyId 或 saveTitle")
		return
	}
	if err != nil {
		h.response.AppError(c, err)
		return
	}

	h.response.Created(c, h.sessionState(active), "会话已启动")
}

// GetSessionState 获取会话状态
func (h *Handler) GetSessionState(c *gin.Context) {
	active, err := h.Sessions.GetSession(c.Param("id"))
	if err != nil {
		h.response.AppError(c, err)
		return
	}
	h.response.Success(c, h.sessionState(active))
}

// HandleSessionInput 处理玩家输入
func (h *Handler) HandleSessionInput(c *gin.Context) {
	var req InputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.response.BadRequest(c, "请求参数无效", err.Error())
		return
	}

	result, err := h.Sessions.HandleInput(c.Request.Context(), c.Param("id"), req.Input)
	if err != nil {
		h.response.AppError(c, err)
		return
	}
	h.response.Success(c, result)
}

// SaveSession 显式保存会话进度
func (h *Handler) SaveSession(c *gin.Context) {
	if err := h.Sessions.SaveGame(c.Request.Context(), c.Param("id")); err != nil {
		h.response.AppError(c, err)
		return
	}
	h.response.Success(c, nil, "进度保存成功")
}

// EndSession 结束会话
func (h *Handler) EndSession(c *gin.Context) {
	if err := h.Sessions.EndSession(c.Param("id")); err != nil {
		h.response.AppError(c, err)
		return
	}
	h.response.Success(c, nil, "会话已结束")
}

// sessionState 组装会话状态视图
func (h *Handler) sessionState(active *services.ActiveSession) gin.H {
	session := active.Session
	state := gin.H{
		"sessionId":     active.ID,
		"storyId":       session.Story.ID,
		"storyTitle":    session.Story.Title,
		"inventoryOpen": session.InventoryOpen,
		"player":        session.Player,
	}
	if event := session.CurrentEvent(); event != nil {
		state["currentEvent"] = event
	}
	return state
}

// intParam 解析整数路径参数，失败时写入400响应
func (h *Handler) intParam(c *gin.Context, name string) (int, bool) {
	value, err := strconv.Atoi(c.Param(name))
	if err != nil {
		h.response.BadRequest(c, "路径参数无效: "+name, err.Error())
		return 0, false
	}
	return value, true
}
