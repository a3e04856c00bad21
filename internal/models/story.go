// internal/models/story.go
package models

import (
	"fmt"
	"sort"
	"time"

	apperrors "github.com/Corphon/TaleWeaver/internal/errors"
)

// StoryGraph 表示一部完整的互动小说作品：
// 一组事件节点，由选项连接成有向图（允许环和共享目标）。
type StoryGraph struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Author      string         `json:"author"`
	Events      map[int]*Event `json:"events"`
	CreatedAt   time.Time      `json:"created_at,omitempty"`
	LastUpdated time.Time      `json:"last_updated,omitempty"`
}

// NewStoryGraph 创建空的故事图
func NewStoryGraph(id, title, description, author string) *StoryGraph {
	return &StoryGraph{
		ID:          id,
		Title:       title,
		Description: description,
		Author:      author,
		Events:      make(map[int]*Event),
		CreatedAt:   time.Now(),
		LastUpdated: time.Now(),
	}
}

// EventIDs 返回按 id 升序排列的事件 id 列表
func (g *StoryGraph) EventIDs() []int {
	ids := make([]int, 0, len(g.Events))
	for id := range g.Events {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// SortedEvents 返回按 id 升序排列的事件列表
func (g *StoryGraph) SortedEvents() []*Event {
	events := make([]*Event, 0, len(g.Events))
	for _, id := range g.EventIDs() {
		events = append(events, g.Events[id])
	}
	return events
}

// FirstEvent 返回标记为起始的事件，没有则返回 nil。
// 起始事件是派生属性：始终以 IsFirst 标志为准。
func (g *StoryGraph) FirstEvent() *Event {
	for _, id := range g.EventIDs() {
		if g.Events[id].IsFirst {
			return g.Events[id]
		}
	}
	return nil
}

// AddEvent 向故事图中添加事件
func (g *StoryGraph) AddEvent(event *Event) error {
	if event == nil {
		return apperrors.NewValidationError("事件不能为空", nil)
	}
	if _, exists := g.Events[event.ID]; exists {
		return apperrors.NewValidationError(fmt.Sprintf("事件 id 已存在: %d", event.ID), nil)
	}

	if g.Events == nil {
		g.Events = make(map[int]*Event)
	}
	g.Events[event.ID] = event
	g.LastUpdated = time.Now()
	return nil
}

// DeleteEvent 删除事件并级联清理：
// 先丢弃该事件自己的选项（清除各自的出边），
// 再将其他事件中指向它的选项引用置空，最后移除事件本身。
// 如果被删除的事件是起始事件，起始事件变为无（需要作者重新指定）。
func (g *StoryGraph) DeleteEvent(eventID int) error {
	event, exists := g.Events[eventID]
	if !exists {
		return apperrors.NewNotFoundError(fmt.Sprintf("事件不存在: %d", eventID), nil)
	}

	for _, option := range event.Options {
		option.ClearLink()
	}
	event.Options = nil

	for _, other := range g.Events {
		if other.ID == eventID {
			continue
		}
		for _, option := range other.Options {
			if option.LinkedEventID != nil && *option.LinkedEventID == eventID {
				option.ClearLink()
			}
		}
	}

	delete(g.Events, eventID)
	g.LastUpdated = time.Now()
	return nil
}

// SetFirstEvent 指定起始事件。该标志是排他的：
// 先清除原起始事件的标志，再设置目标事件。
func (g *StoryGraph) SetFirstEvent(eventID int) error {
	target, exists := g.Events[eventID]
	if !exists {
		return apperrors.NewNotFoundError(fmt.Sprintf("事件不存在: %d", eventID), nil)
	}

	if previous := g.FirstEvent(); previous != nil {
		previous.IsFirst = false
	}
	target.IsFirst = true
	g.LastUpdated = time.Now()
	return nil
}

// AddOption 向指定事件追加选项
func (g *StoryGraph) AddOption(eventID int, option *Option) error {
	event, exists := g.Events[eventID]
	if !exists {
		return apperrors.NewNotFoundError(fmt.Sprintf("事件不存在: %d", eventID), nil)
	}
	if option == nil {
		return apperrors.NewValidationError("选项不能为空", nil)
	}
	if option.LinkedEventID != nil {
		if _, ok := g.Events[*option.LinkedEventID]; !ok {
			return apperrors.NewValidationError(
				fmt.Sprintf("选项引用了不存在的事件: %d", *option.LinkedEventID), nil)
		}
	}
	if _, dup := event.OptionByID(option.ID); dup {
		return apperrors.NewValidationError(
			fmt.Sprintf("选项 id 已存在于事件 %d: %d", eventID, option.ID), nil)
	}

	event.Options = append(event.Options, option)
	g.LastUpdated = time.Now()
	return nil
}

// DeleteOption 删除指定事件中的选项。
// 没有其他对象按 id 引用选项，因此只需清除选项自身的出边。
func (g *StoryGraph) DeleteOption(eventID, optionID int) error {
	event, exists := g.Events[eventID]
	if !exists {
		return apperrors.NewNotFoundError(fmt.Sprintf("事件不存在: %d", eventID), nil)
	}

	for i, option := range event.Options {
		if option.ID == optionID {
			option.ClearLink()
			event.Options = append(event.Options[:i], event.Options[i+1:]...)
			g.LastUpdated = time.Now()
			return nil
		}
	}
	return apperrors.NewNotFoundError(
		fmt.Sprintf("选项不存在于事件 %d: %d", eventID, optionID), nil)
}

// Validate 检查图的完整性：选项出边必须指向图内存在的事件，
// 起始事件标志至多一个。
func (g *StoryGraph) Validate() error {
	firstCount := 0
	for _, event := range g.Events {
		if event.IsFirst {
			firstCount++
		}
		for _, option := range event.Options {
			if option.LinkedEventID == nil {
				continue
			}
			if _, ok := g.Events[*option.LinkedEventID]; !ok {
				return apperrors.NewValidationError(
					fmt.Sprintf("事件 %d 的选项 %d 引用了不存在的事件 %d",
						event.ID, option.ID, *option.LinkedEventID), nil)
			}
		}
	}
	if firstCount > 1 {
		return apperrors.NewValidationError(
			fmt.Sprintf("起始事件标志必须唯一，当前有 %d 个", firstCount), nil)
	}
	return nil
}

// GenerateNewEventID 生成下一个事件 id：取现有最大 id 加一，空列表返回 1。
func GenerateNewEventID(events []*Event) int {
	maxID := 0
	for _, event := range events {
		if event.ID > maxID {
			maxID = event.ID
		}
	}
	return maxID + 1
}

// NextEventID 为当前故事图生成下一个事件 id
func (g *StoryGraph) NextEventID() int {
	return GenerateNewEventID(g.SortedEvents())
}

// NextOptionID 为指定事件生成下一个选项 id
func (g *StoryGraph) NextOptionID(eventID int) int {
	event, exists := g.Events[eventID]
	if !exists {
		return 1
	}
	maxID := 0
	for _, option := range event.Options {
		if option.ID > maxID {
			maxID = option.ID
		}
	}
	return maxID + 1
}
