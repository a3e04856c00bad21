// internal/codec/graph_codec.go
package codec

import (
	"encoding/json"
	"fmt"

	apperrors "github.com/Corphon/TaleWeaver/internal/errors"
	"github.com/Corphon/TaleWeaver/internal/models"
	"gopkg.in/yaml.v3"
)

// 故事文件的持久化结构。事件之间的引用（选项出边）只记录目标事件的 id，
// 不内联目标事件本身：这是打破 Event↔Option 环的关键。
// 字段名即对外的文件格式，JSON 为当前写入格式，YAML 仅用于读取旧导出。

type storyDoc struct {
	ID          string     `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description" yaml:"description"`
	Author      string     `json:"author" yaml:"author"`
	Events      []eventDoc `json:"events" yaml:"events"`
}

type eventDoc struct {
	ID            int         `json:"id" yaml:"id"`
	Name          string      `json:"name" yaml:"name"`
	Description   string      `json:"description" yaml:"description"`
	IsFirst       bool        `json:"isFirst" yaml:"isFirst"`
	ItemsToPickUp []itemDoc   `json:"itemsToPickUp" yaml:"itemsToPickUp"`
	Options       []optionDoc `json:"options" yaml:"options"`
}

type optionDoc struct {
	ID            int       `json:"id" yaml:"id"`
	Name          string    `json:"name" yaml:"name"`
	Text          string    `json:"text" yaml:"text"`
	TriggerWords  []string  `json:"triggerWords" yaml:"triggerWords"`
	RequiredItems []itemDoc `json:"requiredItems" yaml:"requiredItems"`
	LinkedEventID *int      `json:"linkedEventId,omitempty" yaml:"linkedEventId,omitempty"`
}

// itemDoc 的 Type 字段是多态判别式，取值为具体物品类型名
type itemDoc struct {
	ID         string `json:"id,omitempty" yaml:"id,omitempty"`
	Name       string `json:"name" yaml:"name"`
	Type       string `json:"type,omitempty" yaml:"type,omitempty"`
	HealAmount int    `json:"healAmount,omitempty" yaml:"healAmount,omitempty"`
	Damage     int    `json:"damage,omitempty" yaml:"damage,omitempty"`
	Equipped   bool   `json:"equipped,omitempty" yaml:"equipped,omitempty"`
}

// EncodeStory 将故事图序列化为 JSON 字节。事件按 id 升序写出，
// 保证同一个图的编码结果稳定。
func EncodeStory(graph *models.StoryGraph) ([]byte, error) {
	if graph == nil {
		return nil, apperrors.NewValidationError("故事图不能为空", nil)
	}

	doc := storyDoc{
		ID:          graph.ID,
		Title:       graph.Title,
		Description: graph.Description,
		Author:      graph.Author,
		Events:      make([]eventDoc, 0, len(graph.Events)),
	}

	for _, event := range graph.SortedEvents() {
		doc.Events = append(doc.Events, encodeEvent(event))
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, apperrors.NewIOError("序列化故事数据失败", err)
	}
	return data, nil
}

func encodeEvent(event *models.Event) eventDoc {
	doc := eventDoc{
		ID:            event.ID,
		Name:          event.Name,
		Description:   event.Description,
		IsFirst:       event.IsFirst,
		ItemsToPickUp: make([]itemDoc, 0, len(event.ItemsToPickUp)),
		Options:       make([]optionDoc, 0, len(event.Options)),
	}

	for _, item := range event.ItemsToPickUp {
		doc.ItemsToPickUp = append(doc.ItemsToPickUp, encodeItem(item))
	}
	for _, option := range event.Options {
		doc.Options = append(doc.Options, encodeOption(option))
	}
	return doc
}

func encodeOption(option *models.Option) optionDoc {
	doc := optionDoc{
		ID:            option.ID,
		Name:          option.DisplayName,
		Text:          option.BodyText,
		TriggerWords:  append([]string(nil), option.TriggerWords...),
		RequiredItems: make([]itemDoc, 0, len(option.RequiredItems)),
	}
	if doc.TriggerWords == nil {
		doc.TriggerWords = []string{}
	}
	for _, item := range option.RequiredItems {
		doc.RequiredItems = append(doc.RequiredItems, encodeItem(item))
	}
	if option.LinkedEventID != nil {
		linked := *option.LinkedEventID
		doc.LinkedEventID = &linked
	}
	return doc
}

func encodeItem(item models.Item) itemDoc {
	return itemDoc{
		ID:         item.ID,
		Name:       item.Name,
		Type:       string(item.Kind),
		HealAmount: item.HealAmount,
		Damage:     item.Damage,
		Equipped:   item.Equipped,
	}
}

// DecodeStory 从 JSON 字节还原故事图
func DecodeStory(data []byte) (*models.StoryGraph, error) {
	var doc storyDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.NewDecodeError("解析故事数据失败", err)
	}
	return buildGraph(&doc)
}

// DecodeStoryYAML 从 YAML 字节还原故事图（旧导出格式的存档快照）
func DecodeStoryYAML(data []byte) (*models.StoryGraph, error) {
	var doc storyDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.NewDecodeError("解析故事数据失败", err)
	}
	return buildGraph(&doc)
}

// buildGraph 分两阶段还原图结构：先把所有事件按 id 物化，
// 再按 id 解析选项出边。两个选项指向同一事件时共享同一个目标，
// 不会克隆，也不会无限递归。
func buildGraph(doc *storyDoc) (*models.StoryGraph, error) {
	graph := &models.StoryGraph{
		ID:          doc.ID,
		Title:       doc.Title,
		Description: doc.Description,
		Author:      doc.Author,
		Events:      make(map[int]*models.Event, len(doc.Events)),
	}

	// 第一阶段：物化事件节点
	for i := range doc.Events {
		eventData := &doc.Events[i]
		if _, exists := graph.Events[eventData.ID]; exists {
			return nil, apperrors.NewDecodeError(
				fmt.Sprintf("事件 id 重复: %d", eventData.ID), nil)
		}

		event := &models.Event{
			ID:          eventData.ID,
			Name:        eventData.Name,
			Description: eventData.Description,
			IsFirst:     eventData.IsFirst,
		}
		for _, item := range eventData.ItemsToPickUp {
			decoded, err := decodeItem(item)
			if err != nil {
				return nil, err
			}
			event.ItemsToPickUp = append(event.ItemsToPickUp, decoded)
		}
		graph.Events[event.ID] = event
	}

	// 第二阶段：解析选项及其出边引用
	for i := range doc.Events {
		eventData := &doc.Events[i]
		event := graph.Events[eventData.ID]

		for j := range eventData.Options {
			optionData := &eventData.Options[j]
			option := &models.Option{
				ID:          optionData.ID,
				DisplayName: optionData.Name,
				BodyText:    optionData.Text,
			}
			if len(optionData.TriggerWords) > 0 {
				option.TriggerWords = append([]string(nil), optionData.TriggerWords...)
			}
			for _, item := range optionData.RequiredItems {
				decoded, err := decodeItem(item)
				if err != nil {
					return nil, err
				}
				option.RequiredItems = append(option.RequiredItems, decoded)
			}
			if optionData.LinkedEventID != nil {
				targetID := *optionData.LinkedEventID
				if _, ok := graph.Events[targetID]; !ok {
					return nil, apperrors.NewDecodeError(
						fmt.Sprintf("事件 %d 的选项 %d 引用了不存在的事件 %d",
							eventData.ID, optionData.ID, targetID), nil)
				}
				option.LinkedEventID = &targetID
			}
			event.Options = append(event.Options, option)
		}
	}

	return graph, nil
}

// decodeItem 按判别式还原具体物品类型
func decodeItem(doc itemDoc) (models.Item, error) {
	if doc.Type == "" {
		return models.Item{}, apperrors.NewDecodeErrorWithCode(
			apperrors.CodeMissingDiscriminator,
			fmt.Sprintf("物品缺少类型判别式: %s", doc.Name))
	}

	kind := models.ItemKind(doc.Type)
	if !models.ValidItemKind(kind) {
		return models.Item{}, apperrors.NewDecodeErrorWithCode(
			apperrors.CodeUnknownItemKind,
			fmt.Sprintf("未知的物品类型: %s", doc.Type))
	}

	item := models.Item{
		ID:   doc.ID,
		Name: doc.Name,
		Kind: kind,
	}
	switch kind {
	case models.ItemKindConsumable:
		item.HealAmount = doc.HealAmount
	case models.ItemKindWeapon:
		item.Damage = doc.Damage
		item.Equipped = doc.Equipped
	}
	return item, nil
}

// EncodeItem 单独序列化一个物品（物品模板目录使用同一种线上格式）
func EncodeItem(item models.Item) ([]byte, error) {
	data, err := json.MarshalIndent(encodeItem(item), "", "  ")
	if err != nil {
		return nil, apperrors.NewIOError("序列化物品数据失败", err)
	}
	return data, nil
}

// DecodeItem 单独还原一个物品
func DecodeItem(data []byte) (models.Item, error) {
	var doc itemDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return models.Item{}, apperrors.NewDecodeError("解析物品数据失败", err)
	}
	return decodeItem(doc)
}
